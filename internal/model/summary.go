package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DuplicateDetail identifies a skipped row well enough to audit the decision.
type DuplicateDetail struct {
	Index       int             `json:"index"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Date        time.Time       `json:"date"`
	HashPrefix  string          `json:"hashPrefix"`
	Reason      string          `json:"reason"`
}

// FailureDetail describes one record that could not be committed.
type FailureDetail struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Error       string `json:"error"`
}

// Summary is the outcome of one commit run.
type Summary struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
	// Abandoned counts selected records never reached because the run was cancelled.
	Abandoned int `json:"abandoned,omitempty"`

	DuplicateDetails []DuplicateDetail `json:"duplicateDetails,omitempty"`
	Failures         []FailureDetail   `json:"failures,omitempty"`

	// Net imported amount per currency (income minus expense).
	Totals []Money `json:"totals,omitempty"`
	// Totals converted into the user's base currency, when a converter is available.
	NetTotal *Money `json:"netTotal,omitempty"`
}
