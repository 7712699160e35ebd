package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/store"
)

// openTestStore connects to FINTRACK_TEST_DSN or skips.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("FINTRACK_TEST_DSN")
	if dsn == "" {
		t.Skip("FINTRACK_TEST_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestPostgresRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := "test-" + uuid.NewString()

	acct := &model.Account{UserID: user, Name: "Card", Currency: "UAH"}
	require.NoError(t, s.CreateAccount(ctx, acct))
	got, err := s.GetAccount(ctx, user, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "Card", got.Name)

	_, err = s.GetAccount(ctx, user, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)

	tx := &model.Transaction{
		UserID: user, AccountID: acct.ID, Type: model.TypeExpense,
		Amount: decimal.RequireFromString("99.90"), Currency: "UAH",
		Date: time.Date(2024, 2, 29, 18, 5, 0, 0, time.UTC), Description: "Nova Poshta",
	}
	require.NoError(t, s.CreateTransaction(ctx, tx))

	txs, err := s.ListTransactions(ctx, user)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(tx.Amount))
	assert.True(t, txs[0].Date.Equal(tx.Date))

	require.NoError(t, s.CreateImportRecord(ctx, model.ImportRecord{UserID: user, TransactionID: tx.ID, Hash: "abc", Source: model.SourceMonobank}))
	hashes, err := s.ImportedHashes(ctx, user, model.SourceMonobank)
	require.NoError(t, err)
	assert.Contains(t, hashes, "abc")

	require.NoError(t, s.DeleteTransaction(ctx, user, tx.ID))
	assert.ErrorIs(t, s.DeleteTransaction(ctx, user, tx.ID), store.ErrNotFound)
}
