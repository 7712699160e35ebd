package importer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-dev/fintrack/internal/model"
)

const privatStatement = "PrivatBank\n" +
	"Statement for period 01.03.2024 - 31.03.2024\n" +
	"05.03.2024 14:30\n" +
	"123456******7890 Supermarkets\tSilpo -150,00 UAH -150,00 UAH 1 234,56\n" +
	"06.03.2024\n" +
	"123456******7890 Transfers\tFrom card 5168 +2 000,00 UAH 2 000,00 UAH 3 234,56\n" +
	"07.03.2024 08:00:15\n" +
	"123456******7890 Online  Netflix subscription -452,30 UAH -10,99 USD 2 782,26\n" +
	"monthly plan\n"

func TestPrivatParser_ParseText(t *testing.T) {
	res, err := (&PrivatParser{}).ParseText(privatStatement)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 3)

	silpo := res.Transactions[0]
	assert.Equal(t, "Silpo", silpo.Description)
	assert.Equal(t, "Supermarkets", silpo.Category)
	assert.Equal(t, "150.00", silpo.Amount.StringFixed(2))
	assert.Equal(t, model.TypeExpense, silpo.Type)
	assert.Equal(t, "UAH", silpo.Currency)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), silpo.Date)
	assert.Empty(t, silpo.Memo)
	assert.Equal(t, model.SourcePrivat, silpo.Source)
	assert.NotEmpty(t, silpo.Hash)

	transfer := res.Transactions[1]
	assert.Equal(t, "From card 5168", transfer.Description)
	assert.Equal(t, "Transfers", transfer.Category)
	assert.Equal(t, "2000.00", transfer.Amount.StringFixed(2))
	assert.Equal(t, model.TypeIncome, transfer.Type)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), transfer.Date)

	netflix := res.Transactions[2]
	assert.Equal(t, "Online", netflix.Category)
	assert.Equal(t, "Netflix subscription monthly plan", netflix.Description)
	assert.Equal(t, "452.30", netflix.Amount.StringFixed(2))
	assert.Equal(t, "Operation: 10.99 USD", netflix.Memo)
	assert.Equal(t, time.Date(2024, 3, 7, 8, 0, 15, 0, time.UTC), netflix.Date)
}

func TestPrivatParser_AccountInfo(t *testing.T) {
	res, err := (&PrivatParser{}).ParseText(privatStatement)
	require.NoError(t, err)
	require.NotNil(t, res.AccountInfo)
	assert.Equal(t, "123456******7890", res.AccountInfo.Number)
	assert.Equal(t, "UAH", res.AccountInfo.Currency)
	assert.Equal(t, "01.03.2024 - 31.03.2024", res.AccountInfo.Period)
}

func TestPrivatParser_InlineDate(t *testing.T) {
	text := "05.03.2024 14:30\t123456******7890\tCafe\tAroma Kava\t-85,00 UAH\t-85,00 UAH\t1 000,00"
	res, err := (&PrivatParser{}).ParseText(text)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	txn := res.Transactions[0]
	assert.Equal(t, "Cafe", txn.Category)
	assert.Equal(t, "Aroma Kava", txn.Description)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), txn.Date)
}

func TestPrivatParser_NoCategoryGap(t *testing.T) {
	text := "05.03.2024\n123456******7890 ATM withdrawal -500,00 UAH"
	res, err := (&PrivatParser{}).ParseText(text)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Empty(t, res.Transactions[0].Category)
	assert.Equal(t, "ATM withdrawal", res.Transactions[0].Description)
}

func TestPrivatParser_RowWithoutDate(t *testing.T) {
	_, err := (&PrivatParser{}).ParseText("123456******7890 Shop -5,00 UAH")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Line)
}

func TestPrivatParser_NoRows(t *testing.T) {
	_, err := (&PrivatParser{}).ParseText("PrivatBank\n2024.03.05, 14:30 Coffee -3.50 EUR")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, model.SourcePrivat, pe.Source)
}

func TestPrivatParser_Idempotent(t *testing.T) {
	p := &PrivatParser{}
	a, err := p.ParseText(privatStatement)
	require.NoError(t, err)
	b, err := p.ParseText(privatStatement)
	require.NoError(t, err)
	for i := range a.Transactions {
		assert.Equal(t, a.Transactions[i].Hash, b.Transactions[i].Hash)
	}
}
