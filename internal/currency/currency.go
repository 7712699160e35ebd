// Package currency converts amounts between currencies using a remote rate
// provider with a static fallback table.
package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// ErrUnknownCurrency is returned when no rate is known for a pair.
var ErrUnknownCurrency = errors.New("unknown currency")

// Provider returns how many units of each currency one unit of base buys.
type Provider interface {
	Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// StaticRates holds the USD value of one unit of each currency.
type StaticRates map[string]decimal.Decimal

// DefaultStaticRates is the built-in fallback table.
func DefaultStaticRates() StaticRates {
	return StaticRates{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("1.08"),
		"GBP": decimal.RequireFromString("1.27"),
		"CHF": decimal.RequireFromString("1.13"),
		"PLN": decimal.RequireFromString("0.25"),
		"CZK": decimal.RequireFromString("0.043"),
		"UAH": decimal.RequireFromString("0.024"),
		"CAD": decimal.RequireFromString("0.74"),
		"JPY": decimal.RequireFromString("0.0067"),
	}
}

// Rate returns units of to per unit of from.
func (s StaticRates) Rate(from, to string) (decimal.Decimal, error) {
	f, ok := s[from]
	if !ok || f.IsZero() {
		return decimal.Zero, fmt.Errorf("%s: %w", from, ErrUnknownCurrency)
	}
	t, ok := s[to]
	if !ok || t.IsZero() {
		return decimal.Zero, fmt.Errorf("%s: %w", to, ErrUnknownCurrency)
	}
	return f.Div(t), nil
}

// Converter converts money. Provider may be nil, in which case only the
// fallback table is used.
type Converter struct {
	Provider Provider
	Fallback StaticRates
	Log      zerolog.Logger
}

// NewConverter returns a converter with the default fallback table.
func NewConverter(p Provider, log zerolog.Logger) *Converter {
	return &Converter{Provider: p, Fallback: DefaultStaticRates(), Log: log}
}

// Convert converts amount from one currency to another, rounded to cents.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return amount, nil
	}
	rate, err := c.rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(2), nil
}

// ConvertMany converts every amount to one currency and sums them.
func (c *Converter) ConvertMany(ctx context.Context, amounts []model.Money, to string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, m := range amounts {
		v, err := c.Convert(ctx, m.Amount, m.Currency, to)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(v)
	}
	return total, nil
}

func (c *Converter) rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if c.Provider != nil {
		rates, err := c.Provider.Rates(ctx, from)
		if err == nil {
			if r, ok := rates[to]; ok && !r.IsZero() {
				return r, nil
			}
			c.Log.Debug().Str("from", from).Str("to", to).Msg("rate missing from provider, using fallback")
		} else {
			c.Log.Warn().Err(err).Str("from", from).Msg("rate provider failed, using fallback")
		}
	}
	if c.Fallback == nil {
		return decimal.Zero, fmt.Errorf("%s to %s: %w", from, to, ErrUnknownCurrency)
	}
	r, err := c.Fallback.Rate(from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("converting %s to %s: %w", from, to, err)
	}
	return r, nil
}
