package transfer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-dev/fintrack/internal/fingerprint"
	"github.com/fintrack-dev/fintrack/internal/model"
)

var (
	catIn  = model.Category{ID: "cat-in", Name: "Transfer In", Type: model.TypeIncome, System: model.SystemTransferIn}
	catOut = model.Category{ID: "cat-out", Name: "Transfer Out", Type: model.TypeExpense, System: model.SystemTransferOut}
)

func pairer() Pairer {
	return Pairer{
		Accounts:    map[string]string{"Checking": "acc-1", "Savings": "acc-2"},
		TransferIn:  &catIn,
		TransferOut: &catOut,
	}
}

func transferRow(account, to string, typ model.TransactionType, amount string) model.ParsedTransaction {
	r := model.ParsedTransaction{
		Date:            time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description:     "Move money",
		Amount:          decimal.RequireFromString(amount),
		Type:            typ,
		Currency:        "UAH",
		Source:          model.SourceHomeBank,
		Account:         account,
		IsTransfer:      true,
		TransferAccount: to,
	}
	r.Hash = fingerprint.Of(r)
	return r
}

func TestPlan_MirrorsOneSidedTransfer(t *testing.T) {
	rec := transferRow("Checking", "Savings", model.TypeExpense, "100.00")
	plan := pairer().Plan([]model.ParsedTransaction{rec})

	require.Contains(t, plan.Mirrors, 0)
	m := plan.Mirrors[0]
	assert.Equal(t, "acc-2", m.AccountID)
	assert.Equal(t, "cat-in", m.CategoryID)
	assert.Equal(t, model.TypeIncome, m.Record.Type)
	assert.True(t, m.Record.Amount.Equal(rec.Amount))
	assert.Equal(t, rec.Date, m.Record.Date)
	assert.Equal(t, "From Checking", m.Record.Description)
	assert.Equal(t, fingerprint.Mirror(rec.Hash), m.Record.Hash)
	assert.Equal(t, "Savings", m.Record.Account)
	assert.Equal(t, "cat-out", plan.Categories[0])
	assert.Empty(t, plan.Skipped)
}

func TestPlan_IncomeTransferMirrorsAsExpense(t *testing.T) {
	rec := transferRow("Savings", "Checking", model.TypeIncome, "50.00")
	plan := pairer().Plan([]model.ParsedTransaction{rec})

	require.Contains(t, plan.Mirrors, 0)
	m := plan.Mirrors[0]
	assert.Equal(t, "acc-1", m.AccountID)
	assert.Equal(t, model.TypeExpense, m.Record.Type)
	assert.Equal(t, "cat-out", m.CategoryID)
	assert.Equal(t, "To Savings", m.Record.Description)
	assert.Equal(t, "cat-in", plan.Categories[0])
}

func TestPlan_CounterpartInBatch(t *testing.T) {
	out := transferRow("Checking", "Savings", model.TypeExpense, "100.00")
	in := transferRow("Savings", "Checking", model.TypeIncome, "100.00")
	plan := pairer().Plan([]model.ParsedTransaction{out, in})

	assert.Empty(t, plan.Mirrors)
	assert.Equal(t, ReasonCounterpartInRun, plan.Skipped[0])
	assert.Equal(t, ReasonCounterpartInRun, plan.Skipped[1])
	assert.Equal(t, "cat-out", plan.Categories[0])
	assert.Equal(t, "cat-in", plan.Categories[1])
}

func TestPlan_CounterpartDifferentAmountStillMirrors(t *testing.T) {
	out := transferRow("Checking", "Savings", model.TypeExpense, "100.00")
	in := transferRow("Savings", "Checking", model.TypeIncome, "90.00")
	plan := pairer().Plan([]model.ParsedTransaction{out, in})
	assert.Len(t, plan.Mirrors, 2)
}

func TestPlan_UnmappedCounterpart(t *testing.T) {
	rec := transferRow("Checking", "Brokerage", model.TypeExpense, "100.00")
	plan := pairer().Plan([]model.ParsedTransaction{rec})
	assert.Empty(t, plan.Mirrors)
	assert.Equal(t, ReasonUnmapped, plan.Skipped[0])
	assert.Equal(t, "cat-out", plan.Categories[0], "one-sided transfer still gets the transfer category")
}

func TestPlan_SameAccount(t *testing.T) {
	p := pairer()
	p.Accounts["Savings"] = "acc-1"
	plan := p.Plan([]model.ParsedTransaction{transferRow("Checking", "Savings", model.TypeExpense, "1.00")})
	assert.Empty(t, plan.Mirrors)
	assert.Equal(t, ReasonSameAccount, plan.Skipped[0])
}

func TestPlan_MissingCategories(t *testing.T) {
	p := pairer()
	p.TransferIn = nil
	plan := p.Plan([]model.ParsedTransaction{transferRow("Checking", "Savings", model.TypeExpense, "1.00")})
	assert.True(t, plan.MissingCategories)
	assert.Empty(t, plan.Mirrors)
	assert.Empty(t, plan.Categories)
	assert.Equal(t, ReasonNoCategories, plan.Skipped[0])
}

func TestPlan_NoTransfers(t *testing.T) {
	p := Pairer{}
	rec := transferRow("Checking", "", model.TypeExpense, "1.00")
	rec.IsTransfer = false
	plan := p.Plan([]model.ParsedTransaction{rec})
	assert.False(t, plan.MissingCategories)
	assert.Empty(t, plan.Mirrors)
}

func TestFindCategories(t *testing.T) {
	cats := []model.Category{
		{ID: "food", Name: "Food", Type: model.TypeExpense},
		catOut,
		catIn,
	}
	in, out := FindCategories(cats)
	require.NotNil(t, in)
	require.NotNil(t, out)
	assert.Equal(t, "cat-in", in.ID)
	assert.Equal(t, "cat-out", out.ID)

	in, out = FindCategories(cats[:1])
	assert.Nil(t, in)
	assert.Nil(t, out)
}
