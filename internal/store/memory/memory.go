// Package memory is an in-process store.Store. It is safe for concurrent
// use and loses everything on exit.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/store"
)

// Store keeps every entity in insertion order.
type Store struct {
	mu           sync.RWMutex
	now          func() time.Time
	transactions []model.Transaction
	accounts     []model.Account
	categories   []model.Category
	tags         []model.Tag
	imports      []model.ImportRecord
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{now: time.Now}
}

func (s *Store) CreateTransaction(_ context.Context, tx *model.Transaction) error {
	if tx.UserID == "" {
		return fmt.Errorf("transaction user ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store.PrepareTransaction(tx, s.now())
	cp := *tx
	cp.TagIDs = append([]string(nil), tx.TagIDs...)
	s.transactions = append(s.transactions, cp)
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, tx := range s.transactions {
		if tx.UserID == userID && tx.ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			tx.TagIDs = append([]string(nil), tx.TagIDs...)
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a *model.Account) error {
	if a.UserID == "" || a.Name == "" {
		return fmt.Errorf("account user ID and name are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store.PrepareAccount(a, s.now())
	s.accounts = append(s.accounts, *a)
	return nil
}

func (s *Store) GetAccount(_ context.Context, userID, id string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.UserID == userID && a.ID == id {
			return a, nil
		}
	}
	return model.Account{}, fmt.Errorf("account %s: %w", id, store.ErrNotFound)
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c *model.Category) error {
	if c.UserID == "" || c.Name == "" {
		return fmt.Errorf("category user ID and name are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = store.NewID()
	}
	s.categories = append(s.categories, *c)
	return nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateTag(_ context.Context, t *model.Tag) error {
	if t.UserID == "" || t.Name == "" {
		return fmt.Errorf("tag user ID and name are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = store.NewID()
	}
	s.tags = append(s.tags, *t)
	return nil
}

func (s *Store) ListTags(_ context.Context, userID string) ([]model.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Tag
	for _, t := range s.tags {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) CreateImportRecord(_ context.Context, r model.ImportRecord) error {
	if r.UserID == "" || r.Hash == "" {
		return fmt.Errorf("import record user ID and hash are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ImportDate.IsZero() {
		r.ImportDate = s.now().UTC()
	}
	s.imports = append(s.imports, r)
	return nil
}

func (s *Store) ImportedHashes(_ context.Context, userID string, source model.Source) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]struct{})
	for _, r := range s.imports {
		if r.UserID == userID && r.Source == source {
			out[r.Hash] = struct{}{}
		}
	}
	return out, nil
}

// ImportRecords returns every provenance record for the user.
func (s *Store) ImportRecords(userID string) []model.ImportRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ImportRecord
	for _, r := range s.imports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) Close() error { return nil }
