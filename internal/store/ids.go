package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// PrepareTransaction fills the ID and CreatedAt of a new transaction.
func PrepareTransaction(tx *model.Transaction, now time.Time) {
	if tx.ID == "" {
		tx.ID = NewID()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now.UTC()
	}
}

// PrepareAccount fills the ID and CreatedAt of a new account.
func PrepareAccount(a *model.Account, now time.Time) {
	if a.ID == "" {
		a.ID = NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now.UTC()
	}
}
