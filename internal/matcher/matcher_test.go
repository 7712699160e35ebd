package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fintrack-dev/fintrack/internal/model"
)

var testCategories = []model.Category{
	{ID: "food", Name: "Food", Type: model.TypeExpense},
	{ID: "salary", Name: "Salary", Type: model.TypeIncome},
	{ID: "transport", Name: "Transport", Type: model.TypeExpense},
	{ID: "coffee", Name: "Coffee Shops", Type: model.TypeExpense},
	{ID: "groceries-ua", Name: "Продукти", Type: model.TypeExpense},
	{ID: "xfer-out", Name: "Transfer Out", Type: model.TypeExpense, System: model.SystemTransferOut},
	{ID: "xfer-in", Name: "Transfer In", Type: model.TypeIncome, System: model.SystemTransferIn},
}

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func TestSuggest_ByName(t *testing.T) {
	m := New(testCategories, nil)

	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"exact name case-insensitive", Query{Description: "FOOD", Type: model.TypeExpense}, "food"},
		{"income category", Query{Description: "salary", Type: model.TypeIncome}, "salary"},
		{"bank category label", Query{Description: "Silpo", BankCategory: "food", Type: model.TypeExpense}, "food"},
		{"name inside description", Query{Description: "Uber Transport Kyiv", Type: model.TypeExpense}, "transport"},
		{"name inside payee", Query{Description: "Card payment", Payee: "City transport", Type: model.TypeExpense}, "transport"},
		{"token overlap", Query{Description: "Coffee beans store", Type: model.TypeExpense}, "coffee"},
		{"cyrillic case fold", Query{Description: "ПРОДУКТИ", Type: model.TypeExpense}, "groceries-ua"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Suggest(tt.query)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got.CategoryID)
			assert.Equal(t, StrategyName, got.Strategy)
		})
	}
}

func TestSuggest_TypeMustMatch(t *testing.T) {
	m := New(testCategories, nil)
	_, ok := m.Suggest(Query{Description: "Salary", Type: model.TypeExpense})
	assert.False(t, ok)
}

func TestSuggest_NoMatch(t *testing.T) {
	m := New(testCategories, nil)
	_, ok := m.Suggest(Query{Description: "Random text xyz", Type: model.TypeExpense})
	assert.False(t, ok)
}

func TestSuggest_NeverSystemCategory(t *testing.T) {
	m := New(testCategories, []model.Transaction{
		{Description: "Move to savings", CategoryID: "xfer-out", Type: model.TypeExpense, Date: day(1)},
	})
	_, ok := m.Suggest(Query{Description: "Transfer Out", Type: model.TypeExpense})
	assert.False(t, ok)
	_, ok = m.Suggest(Query{Description: "Move to savings", Type: model.TypeExpense})
	assert.False(t, ok)
}

func TestSuggest_ByHistory(t *testing.T) {
	history := []model.Transaction{
		{Description: "SILPO 1234", CategoryID: "old", Type: model.TypeExpense, Date: day(1)},
		{Description: "Silpo", CategoryID: "recent", Type: model.TypeExpense, Date: day(10)},
		{Description: "Silpo refund", CategoryID: "refunds", Type: model.TypeIncome, Date: day(12)},
		{Description: "Netflix", CategoryID: "", Type: model.TypeExpense, Date: day(15)},
	}
	m := New(testCategories, history)

	got, ok := m.Suggest(Query{Description: "silpo 9876", Type: model.TypeExpense})
	assert.True(t, ok)
	assert.Equal(t, "recent", got.CategoryID, "most recent equal description wins")
	assert.Equal(t, StrategyHistory, got.Strategy)

	got, ok = m.Suggest(Query{Description: "Silpo Kyiv Obolon", Type: model.TypeExpense})
	assert.True(t, ok)
	assert.Equal(t, "recent", got.CategoryID)

	got, ok = m.Suggest(Query{Description: "Silpo refund", Type: model.TypeIncome})
	assert.True(t, ok)
	assert.Equal(t, "refunds", got.CategoryID)

	_, ok = m.Suggest(Query{Description: "Netflix", Type: model.TypeExpense})
	assert.False(t, ok, "uncategorized history is ignored")
}

func TestSuggest_NameBeatsHistory(t *testing.T) {
	m := New(testCategories, []model.Transaction{
		{Description: "Food", CategoryID: "other", Type: model.TypeExpense, Date: day(1)},
	})
	got, ok := m.Suggest(Query{Description: "Food", Type: model.TypeExpense})
	assert.True(t, ok)
	assert.Equal(t, "food", got.CategoryID)
}

func TestSuggest_ShortTokensIgnored(t *testing.T) {
	m := New([]model.Category{{ID: "tv", Name: "TV", Type: model.TypeExpense}}, nil)
	_, ok := m.Suggest(Query{Description: "Paid tv bill", Type: model.TypeExpense})
	assert.True(t, ok, "phrase containment still works for short names")
	_, ok = m.Suggest(Query{Description: "TVs and more", Type: model.TypeExpense})
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Café—Bar!! ", "café bar"},
		{"ﬁnance", "finance"},
		{"ATB-Market, Kyiv", "atb market kyiv"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.input))
	}
}
