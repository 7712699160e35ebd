// Package store defines the persistence collaborators the import pipeline
// consumes. Backends live in subpackages.
package store

import (
	"context"
	"errors"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// ErrNotFound is returned when a lookup by id finds nothing for the user.
var ErrNotFound = errors.New("not found")

// Transactions persists committed ledger transactions. Create assigns an
// ID and CreatedAt when they are empty.
type Transactions interface {
	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error)
}

// Accounts persists user accounts.
type Accounts interface {
	CreateAccount(ctx context.Context, a *model.Account) error
	GetAccount(ctx context.Context, userID, id string) (model.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]model.Account, error)
}

// Categories persists user categories.
type Categories interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
}

// Tags persists user tags.
type Tags interface {
	CreateTag(ctx context.Context, t *model.Tag) error
	ListTags(ctx context.Context, userID string) ([]model.Tag, error)
}

// ImportRecords persists provenance. Records are append-only.
type ImportRecords interface {
	CreateImportRecord(ctx context.Context, r model.ImportRecord) error
	ImportedHashes(ctx context.Context, userID string, source model.Source) (map[string]struct{}, error)
}

// Store bundles every collaborator a backend provides.
type Store interface {
	Transactions
	Accounts
	Categories
	Tags
	ImportRecords
	Close() error
}
