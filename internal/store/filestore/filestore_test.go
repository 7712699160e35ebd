package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/store"
)

func TestEmptyDir(t *testing.T) {
	s := Open(t.TempDir())
	ctx := context.Background()

	txs, err := s.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, txs)

	hashes, err := s.ImportedHashes(ctx, "u1", model.SourceMonobank)
	require.NoError(t, err)
	assert.Empty(t, hashes)
}

func TestTransactionsPersistAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := Open(dir)

	first := &model.Transaction{
		UserID: "u1", AccountID: "a1", Type: model.TypeExpense, Amount: dec("10"),
		Currency: "UAH", Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Description: "Silpo",
	}
	second := &model.Transaction{
		UserID: "u1", AccountID: "a1", Type: model.TypeIncome, Amount: dec("500"),
		Currency: "UAH", Date: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), Description: "Salary",
	}
	require.NoError(t, s.CreateTransaction(ctx, first))
	require.NoError(t, s.CreateTransaction(ctx, second))

	data, err := os.ReadFile(filepath.Join(dir, TransactionsFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,user_id,"))
	assert.Equal(t, 1, strings.Count(string(data), "id,user_id,"), "header written once")

	reopened := Open(dir)
	got, err := reopened.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Silpo", got[0].Description)
	assert.True(t, got[1].Amount.Equal(dec("500")))

	require.NoError(t, reopened.DeleteTransaction(ctx, "u1", first.ID))
	got, err = reopened.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, second.ID, got[0].ID)

	err = reopened.DeleteTransaction(ctx, "u1", first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAccountsAndCategories(t *testing.T) {
	ctx := context.Background()
	s := Open(t.TempDir())

	acct := &model.Account{UserID: "u1", Name: "Mono Black", Currency: "UAH"}
	require.NoError(t, s.CreateAccount(ctx, acct))
	got, err := s.GetAccount(ctx, "u1", acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mono Black", got.Name)

	_, err = s.GetAccount(ctx, "u1", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.CreateCategory(ctx, &model.Category{UserID: "u1", Name: "Food", Type: model.TypeExpense}))
	require.NoError(t, s.CreateTag(ctx, &model.Tag{UserID: "u1", Name: "vacation"}))

	cats, err := s.ListCategories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	tags, err := s.ListTags(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tags, 1)
}

func TestImportRecordsAppendOnly(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := Open(dir)

	require.NoError(t, s.CreateImportRecord(ctx, model.ImportRecord{UserID: "u1", TransactionID: "t1", Hash: "h1", Source: model.SourceTrustee}))
	require.NoError(t, s.CreateImportRecord(ctx, model.ImportRecord{UserID: "u1", TransactionID: "t2", Hash: "h2", Source: model.SourceTrustee}))
	require.NoError(t, s.CreateImportRecord(ctx, model.ImportRecord{UserID: "u1", TransactionID: "t3", Hash: "h3", Source: model.SourceHomeBank}))

	hashes, err := s.ImportedHashes(ctx, "u1", model.SourceTrustee)
	require.NoError(t, err)
	assert.Len(t, hashes, 2)
	assert.Contains(t, hashes, "h1")
	assert.NotContains(t, hashes, "h3")

	_, err = os.Stat(filepath.Join(dir, "imports", "imported.csv"))
	require.NoError(t, err)
}

func TestCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, AccountsFile), []byte("id,user_id,name,currency,created_at\na,b\n"), 0o644))

	_, err := Open(dir).ListAccounts(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accounts.csv")
}
