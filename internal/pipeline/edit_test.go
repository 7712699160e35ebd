package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/session"
	"github.com/fintrack-dev/fintrack/internal/store/memory"
)

// previewSession uploads a one-row Monobank statement with seeded categories.
func previewSession(t *testing.T) (*Service, *memory.Store, *session.Session, *categories.Index) {
	t.Helper()
	ctx := context.Background()
	svc, st := newService(t)
	_, err := categories.Seed(ctx, st, user)
	require.NoError(t, err)
	acct := addAccount(t, st, "Mono")

	data := monoHeader + "\"05.03.2024 10:00:00\",\"Groceries\",5411,-20.00,-20.00,UAH,—,0.00,0.00,80.00\n"
	sess, err := svc.Upload(ctx, UploadRequest{UserID: user, FileName: "a.csv", Data: []byte(data), AccountID: acct})
	require.NoError(t, err)

	cats, err := st.ListCategories(ctx, user)
	require.NoError(t, err)
	return svc, st, sess, categories.NewIndex(cats)
}

func TestUpdateRecord_EditsKeepHash(t *testing.T) {
	ctx := context.Background()
	svc, st, sess, cats := previewSession(t)
	hash := sess.Records[0].Transaction.Hash
	rent, ok := cats.Lookup("Rent")
	require.True(t, ok)

	when := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	got, err := svc.UpdateRecord(ctx, sess.ID, 0, RecordPatch{
		Description: ptr("  Monthly rent "),
		Amount:      ptr(decimal.RequireFromString("25.00")),
		Currency:    ptr("usd"),
		Date:        &when,
		CategoryID:  ptr(rent.ID),
	})
	require.NoError(t, err)

	rec := got.Records[0]
	assert.Equal(t, "Monthly rent", rec.Transaction.Description)
	assert.Equal(t, "25.00", rec.Transaction.Amount.StringFixed(2))
	assert.Equal(t, "USD", rec.Transaction.Currency)
	assert.Equal(t, when, rec.Transaction.Date)
	assert.Equal(t, rent.ID, rec.CategoryID)
	assert.False(t, rec.AutoCategorized)
	assert.Empty(t, rec.Strategy)
	assert.Equal(t, hash, rec.Transaction.Hash)

	sum, err := svc.Commit(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Imported)
	txs, err := st.ListTransactions(ctx, user)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Monthly rent", txs[0].Description)
	assert.Equal(t, rent.ID, txs[0].CategoryID)
	assert.Equal(t, hash, st.ImportRecords(user)[0].Hash)
}

func TestUpdateRecord_TypeFlipDropsAutoCategory(t *testing.T) {
	svc, _, sess, _ := previewSession(t)
	require.True(t, sess.Records[0].AutoCategorized)

	got, err := svc.UpdateRecord(context.Background(), sess.ID, 0, RecordPatch{Type: ptr(model.TypeIncome)})
	require.NoError(t, err)
	assert.Equal(t, model.TypeIncome, got.Records[0].Transaction.Type)
	assert.Empty(t, got.Records[0].CategoryID)
}

func TestUpdateRecord_Invalid(t *testing.T) {
	svc, _, sess, cats := previewSession(t)
	salary, _ := cats.Lookup("Salary")

	tests := []struct {
		name  string
		index int
		patch RecordPatch
	}{
		{"out of range", 5, RecordPatch{Selected: ptr(false)}},
		{"negative amount", 0, RecordPatch{Amount: ptr(decimal.RequireFromString("-1"))}},
		{"too many decimals", 0, RecordPatch{Amount: ptr(decimal.RequireFromString("1.005"))}},
		{"bad currency", 0, RecordPatch{Currency: ptr("hryvnia")}},
		{"bad type", 0, RecordPatch{Type: ptr(model.TransactionType("transfer"))}},
		{"unknown category", 0, RecordPatch{CategoryID: ptr("nope")}},
		{"category of other type", 0, RecordPatch{CategoryID: ptr(salary.ID)}},
		{"unknown tag", 0, RecordPatch{TagIDs: &[]string{"nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateRecord(context.Background(), sess.ID, tt.index, tt.patch)
			assert.ErrorIs(t, err, ErrInvalidEdit)
		})
	}

	got, err := svc.Session(context.Background(), sess.ID)
	require.NoError(t, err)
	rec := got.Records[0]
	assert.Equal(t, sess.Records[0].Transaction.Amount.String(), rec.Transaction.Amount.String(), "failed edits change nothing")
	assert.Equal(t, "UAH", rec.Transaction.Currency)
	assert.Equal(t, model.TypeExpense, rec.Transaction.Type)
	assert.Equal(t, sess.Records[0].CategoryID, rec.CategoryID)
	assert.Empty(t, rec.TagIDs)
}

func TestUpdateRecord_DeselectAndTags(t *testing.T) {
	ctx := context.Background()
	svc, st, sess, _ := previewSession(t)
	tag := &model.Tag{UserID: user, Name: "trip"}
	require.NoError(t, st.CreateTag(ctx, tag))

	got, err := svc.UpdateRecord(ctx, sess.ID, 0, RecordPatch{TagIDs: &[]string{tag.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{tag.ID}, got.Records[0].TagIDs)

	_, err = svc.UpdateRecord(ctx, sess.ID, 0, RecordPatch{Selected: ptr(false)})
	require.NoError(t, err)

	sum, err := svc.Commit(ctx, sess.ID)
	require.NoError(t, err)
	assert.Zero(t, sum.Imported)
	assert.Zero(t, sum.Duplicates)
}

func TestSetAccountAndMapAccounts_WrongSource(t *testing.T) {
	ctx := context.Background()
	svc, st, sess, _ := previewSession(t)
	acct := addAccount(t, st, "Other")

	_, err := svc.MapAccounts(ctx, sess.ID, map[string]string{"Default": acct})
	assert.ErrorIs(t, err, ErrInvalidEdit)

	qif, err := svc.Upload(ctx, UploadRequest{UserID: user, FileName: "x.qif", Data: []byte(transferQIF)})
	require.NoError(t, err)
	_, err = svc.SetAccount(ctx, qif.ID, acct)
	assert.ErrorIs(t, err, ErrInvalidEdit)

	_, err = svc.Upload(ctx, UploadRequest{UserID: user, FileName: "x.qif", Data: []byte(transferQIF), AccountID: acct})
	assert.ErrorIs(t, err, ErrInvalidEdit)

	got, err := svc.MapAccounts(ctx, qif.ID, map[string]string{"Checking": acct})
	require.NoError(t, err)
	assert.Equal(t, acct, got.AccountMappings["Checking"])

	got, err = svc.MapAccounts(ctx, qif.ID, map[string]string{"Checking": ""})
	require.NoError(t, err)
	assert.NotContains(t, got.AccountMappings, "Checking")

	_, err = svc.MapAccounts(ctx, qif.ID, map[string]string{"Checking": "missing"})
	assert.ErrorIs(t, err, ErrInvalidEdit)
}
