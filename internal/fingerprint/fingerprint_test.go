package fingerprint

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fintrack-dev/fintrack/internal/model"
)

func baseFields() Fields {
	return Fields{
		Source:      model.SourceMonobank,
		Date:        time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("150.5"),
		Type:        model.TypeExpense,
		Currency:    "UAH",
		Description: "Silpo",
	}
}

func TestHash_Deterministic(t *testing.T) {
	a := Hash(baseFields())
	b := Hash(baseFields())
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHash_NormalizesInsignificantDifferences(t *testing.T) {
	f := baseFields()
	g := baseFields()
	g.Amount = decimal.RequireFromString("150.50")
	g.Currency = " uah"
	g.Description = "  Silpo  "
	assert.Equal(t, Hash(f), Hash(g))
}

func TestHash_FieldsMatter(t *testing.T) {
	base := Hash(baseFields())

	tests := []struct {
		name   string
		modify func(*Fields)
	}{
		{"source", func(f *Fields) { f.Source = model.SourcePrivat }},
		{"account", func(f *Fields) { f.Account = "Checking" }},
		{"date", func(f *Fields) { f.Date = f.Date.Add(time.Minute) }},
		{"amount", func(f *Fields) { f.Amount = decimal.RequireFromString("150.51") }},
		{"type", func(f *Fields) { f.Type = model.TypeIncome }},
		{"currency", func(f *Fields) { f.Currency = "USD" }},
		{"description", func(f *Fields) { f.Description = "ATB" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := baseFields()
			tt.modify(&f)
			assert.NotEqual(t, base, Hash(f))
		})
	}
}

func TestOf(t *testing.T) {
	f := baseFields()
	p := model.ParsedTransaction{
		Source:      f.Source,
		Date:        f.Date,
		Amount:      f.Amount,
		Type:        f.Type,
		Currency:    f.Currency,
		Description: f.Description,
		Memo:        "ignored",
	}
	assert.Equal(t, Hash(f), Of(p))
}

func TestMirror(t *testing.T) {
	h := Hash(baseFields())
	m := Mirror(h)
	assert.Equal(t, h+":mirror", m)
	assert.True(t, IsMirror(m))
	assert.False(t, IsMirror(h))
}

func TestShort(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0123456789abcdef", "0123456789ab"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Short(tt.input))
	}
}
