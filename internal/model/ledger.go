package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a user's money container (card, checking, cash...).
type Account struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// SystemKey marks categories the application manages itself.
type SystemKey string

const (
	SystemNone        SystemKey = ""
	SystemTransferIn  SystemKey = "transfer_in"
	SystemTransferOut SystemKey = "transfer_out"
)

// Category classifies transactions of one type.
type Category struct {
	ID     string          `json:"id"`
	UserID string          `json:"userId"`
	Name   string          `json:"name"`
	Type   TransactionType `json:"type"`
	System SystemKey       `json:"system,omitempty"`
}

// IsSystem reports whether the category is application-managed.
func (c Category) IsSystem() bool { return c.System != SystemNone }

// Tag is a free-form label attached to transactions.
type Tag struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// Transaction is a committed domain transaction.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	AccountID   string          `json:"accountId"`
	CategoryID  string          `json:"categoryId,omitempty"` // empty = uncategorized
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Memo        string          `json:"memo,omitempty"`
	Payee       string          `json:"payee,omitempty"`
	TagIDs      []string        `json:"tagIds,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Money is an amount in a currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}
