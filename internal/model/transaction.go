package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money movement.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Opposite returns the mirrored direction.
func (t TransactionType) Opposite() TransactionType {
	if t == TypeIncome {
		return TypeExpense
	}
	return TypeIncome
}

// ParseTransactionType accepts "income"/"expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

// Source identifies the bank or file format a statement came from.
type Source string

const (
	SourceTrustee  Source = "trustee"
	SourcePrivat   Source = "privat"
	SourceMonobank Source = "monobank"
	SourceHomeBank Source = "homebank"
)

// Sources lists every supported source in display order.
var Sources = []Source{SourceTrustee, SourcePrivat, SourceMonobank, SourceHomeBank}

// ParseSource resolves a user-supplied bank name, accepting a few aliases.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trustee", "trustee-plus", "trusteeplus":
		return SourceTrustee, nil
	case "privat", "privatbank", "privat24":
		return SourcePrivat, nil
	case "monobank", "mono":
		return SourceMonobank, nil
	case "homebank", "qif":
		return SourceHomeBank, nil
	}
	return "", fmt.Errorf("unknown bank %q (supported: trustee, privat, monobank, homebank)", s)
}

// IsPDF reports whether statements from this source arrive as PDF.
func (s Source) IsPDF() bool {
	return s == SourceTrustee || s == SourcePrivat
}

// MultiAccount reports whether one file can carry several accounts.
func (s Source) MultiAccount() bool {
	return s == SourceHomeBank
}

// ParsedTransaction is the format-agnostic output of every parser.
// Amount is a non-negative magnitude; direction is carried by Type.
type ParsedTransaction struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Currency    string          `json:"currency"`
	Hash        string          `json:"hash"`
	Source      Source          `json:"source"`

	Memo     string `json:"memo,omitempty"`
	Payee    string `json:"payee,omitempty"`
	Category string `json:"category,omitempty"` // bank's own category label

	// QIF only.
	Account         string `json:"account,omitempty"`
	IsTransfer      bool   `json:"isTransfer,omitempty"`
	TransferAccount string `json:"transferAccount,omitempty"`
}

// SignedAmount returns the amount with expense as negative.
func (p ParsedTransaction) SignedAmount() decimal.Decimal {
	if p.Type == TypeExpense {
		return p.Amount.Neg()
	}
	return p.Amount
}

// AccountInfo holds statement header metadata when the format carries it.
type AccountInfo struct {
	Holder   string   `json:"holder,omitempty"`
	Number   string   `json:"number,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Period   string   `json:"period,omitempty"`
	Accounts []string `json:"accounts,omitempty"` // QIF account names in file order
}
