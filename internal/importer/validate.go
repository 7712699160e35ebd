package importer

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// ValidationError describes a single rule a parsed record breaks.
type ValidationError struct {
	Field       string
	Hash        string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Validate checks the invariants every parsed record must hold before it
// may be committed.
func Validate(t model.ParsedTransaction) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Hash: t.Hash, Description: fmt.Sprintf(format, args...)})
	}

	if t.Amount.IsNegative() {
		add("amount", "amount %s is negative; direction belongs in type", t.Amount.String())
	}
	hundred := decimal.NewFromInt(100)
	if !t.Amount.Mul(hundred).Equal(t.Amount.Mul(hundred).Floor()) {
		add("amount", "amount %s has more than 2 decimal places", t.Amount.String())
	}
	if !t.Type.Valid() {
		add("type", "type %q is neither income nor expense", t.Type)
	}
	if !currencyRe.MatchString(t.Currency) {
		add("currency", "currency %q is not a 3-letter code", t.Currency)
	}
	if t.Date.IsZero() {
		add("date", "date is missing")
	}
	if t.Hash == "" {
		add("hash", "hash is missing")
	}
	return errs
}

// ValidateAll validates every record and returns violations keyed by index.
func ValidateAll(txns []model.ParsedTransaction) map[int][]ValidationError {
	out := make(map[int][]ValidationError)
	for i, t := range txns {
		if errs := Validate(t); len(errs) > 0 {
			out[i] = errs
		}
	}
	return out
}
