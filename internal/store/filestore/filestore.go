// Package filestore keeps the ledger as CSV files under a directory, one
// file per entity, so the directory can be versioned with git.
package filestore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/store"
)

// File names relative to the store directory.
const (
	AccountsFile     = "accounts.csv"
	CategoriesFile   = "categories.csv"
	TagsFile         = "tags.csv"
	TransactionsFile = "transactions.csv"
	ImportsFile      = "imports/imported.csv"
)

// Store is a store.Store backed by CSV files. A single process should own
// the directory; the mutex only serializes callers within it.
type Store struct {
	mu  sync.Mutex
	dir string
	now func() time.Time

	accounts     table[model.Account]
	categories   table[model.Category]
	tags         table[model.Tag]
	transactions table[model.Transaction]
	imports      table[model.ImportRecord]
}

var _ store.Store = (*Store)(nil)

// Open returns a store rooted at dir. Files are created lazily.
func Open(dir string) *Store {
	return &Store{
		dir: dir,
		now: time.Now,
		accounts: table[model.Account]{
			path: filepath.Join(dir, AccountsFile), header: accountHeader,
			marshal: MarshalAccount, unmarshal: UnmarshalAccount,
		},
		categories: table[model.Category]{
			path: filepath.Join(dir, CategoriesFile), header: categoryHeader,
			marshal: MarshalCategory, unmarshal: UnmarshalCategory,
		},
		tags: table[model.Tag]{
			path: filepath.Join(dir, TagsFile), header: tagHeader,
			marshal: MarshalTag, unmarshal: UnmarshalTag,
		},
		transactions: table[model.Transaction]{
			path: filepath.Join(dir, TransactionsFile), header: transactionHeader,
			marshal: MarshalTransaction, unmarshal: UnmarshalTransaction,
		},
		imports: table[model.ImportRecord]{
			path: filepath.Join(dir, ImportsFile), header: importHeader,
			marshal: MarshalImportRecord, unmarshal: UnmarshalImportRecord,
		},
	}
}

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

func (s *Store) CreateTransaction(_ context.Context, tx *model.Transaction) error {
	if tx.UserID == "" {
		return fmt.Errorf("transaction user ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store.PrepareTransaction(tx, s.now())
	if err := s.transactions.append(*tx); err != nil {
		return fmt.Errorf("saving transaction: %w", err)
	}
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.transactions.readAll()
	if err != nil {
		return err
	}
	kept := all[:0]
	found := false
	for _, tx := range all {
		if tx.UserID == userID && tx.ID == id {
			found = true
			continue
		}
		kept = append(kept, tx)
	}
	if !found {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return s.transactions.writeAll(kept)
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.transactions.readAll()
	if err != nil {
		return nil, err
	}
	return filter(all, func(tx model.Transaction) bool { return tx.UserID == userID }), nil
}

func (s *Store) CreateAccount(_ context.Context, a *model.Account) error {
	if a.UserID == "" || a.Name == "" {
		return fmt.Errorf("account user ID and name are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store.PrepareAccount(a, s.now())
	if err := s.accounts.append(*a); err != nil {
		return fmt.Errorf("saving account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(_ context.Context, userID, id string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.accounts.readAll()
	if err != nil {
		return model.Account{}, err
	}
	for _, a := range all {
		if a.UserID == userID && a.ID == id {
			return a, nil
		}
	}
	return model.Account{}, fmt.Errorf("account %s: %w", id, store.ErrNotFound)
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.accounts.readAll()
	if err != nil {
		return nil, err
	}
	return filter(all, func(a model.Account) bool { return a.UserID == userID }), nil
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
	if err := s.categories.append(*c); err != nil {
		return fmt.Errorf("saving category: %w", err)
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.categories.readAll()
	if err != nil {
		return nil, err
	}
	return filter(all, func(c model.Category) bool { return c.UserID == userID }), nil
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
	if err := s.tags.append(*t); err != nil {
		return fmt.Errorf("saving tag: %w", err)
	}
	return nil
}

func (s *Store) ListTags(_ context.Context, userID string) ([]model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.tags.readAll()
	if err != nil {
		return nil, err
	}
	return filter(all, func(t model.Tag) bool { return t.UserID == userID }), nil
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
	if err := s.imports.append(r); err != nil {
		return fmt.Errorf("saving import record: %w", err)
	}
	return nil
}

func (s *Store) ImportedHashes(_ context.Context, userID string, source model.Source) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.imports.readAll()
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{})
	for _, r := range all {
		if r.UserID == userID && r.Source == source {
			out[r.Hash] = struct{}{}
		}
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

func filter[T any](rows []T, keep func(T) bool) []T {
	var out []T
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
