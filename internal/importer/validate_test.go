package importer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fintrack-dev/fintrack/internal/model"
)

func validTxn() model.ParsedTransaction {
	return model.ParsedTransaction{
		Date:        time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Description: "Silpo",
		Amount:      decimal.RequireFromString("150.50"),
		Type:        model.TypeExpense,
		Currency:    "UAH",
		Hash:        "abc",
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, Validate(validTxn()))
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*model.ParsedTransaction)
		field  string
	}{
		{"negative amount", func(p *model.ParsedTransaction) { p.Amount = decimal.RequireFromString("-1") }, "amount"},
		{"too precise", func(p *model.ParsedTransaction) { p.Amount = decimal.RequireFromString("1.005") }, "amount"},
		{"bad type", func(p *model.ParsedTransaction) { p.Type = "transfer" }, "type"},
		{"lowercase currency", func(p *model.ParsedTransaction) { p.Currency = "uah" }, "currency"},
		{"missing currency", func(p *model.ParsedTransaction) { p.Currency = "" }, "currency"},
		{"zero date", func(p *model.ParsedTransaction) { p.Date = time.Time{} }, "date"},
		{"missing hash", func(p *model.ParsedTransaction) { p.Hash = "" }, "hash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := validTxn()
			tt.modify(&txn)
			errs := Validate(txn)
			if assert.Len(t, errs, 1) {
				assert.Equal(t, tt.field, errs[0].Field)
				assert.Contains(t, errs[0].Error(), tt.field)
			}
		})
	}
}

func TestValidateAll(t *testing.T) {
	bad := validTxn()
	bad.Currency = "?"
	got := ValidateAll([]model.ParsedTransaction{validTxn(), bad, validTxn()})
	assert.Len(t, got, 1)
	assert.Contains(t, got, 1)
}
