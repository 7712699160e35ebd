// Package postgres is a store.Store on PostgreSQL via pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/store"
)

// Schema is applied by Migrate. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	currency   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS accounts_user_idx ON accounts (user_id);

CREATE TABLE IF NOT EXISTS categories (
	id      TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name    TEXT NOT NULL,
	type    TEXT NOT NULL CHECK (type IN ('income', 'expense')),
	system  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS categories_user_idx ON categories (user_id);

CREATE TABLE IF NOT EXISTS tags (
	id      TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	account_id  TEXT NOT NULL,
	category_id TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL CHECK (type IN ('income', 'expense')),
	amount      NUMERIC(18, 2) NOT NULL CHECK (amount >= 0),
	currency    TEXT NOT NULL,
	date        TIMESTAMP NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	memo        TEXT NOT NULL DEFAULT '',
	payee       TEXT NOT NULL DEFAULT '',
	tag_ids     TEXT[] NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS transactions_user_idx ON transactions (user_id, date);

CREATE TABLE IF NOT EXISTS import_records (
	user_id        TEXT NOT NULL,
	transaction_id TEXT NOT NULL,
	hash           TEXT NOT NULL,
	source         TEXT NOT NULL,
	import_date    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS import_records_lookup_idx ON import_records (user_id, source);
`

// Store implements store.Store.
type Store struct {
	Pool *pgxpool.Pool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool, now: time.Now}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.Pool.Close()
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	store.PrepareTransaction(tx, s.now())
	tags := tx.TagIDs
	if tags == nil {
		tags = []string{}
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO transactions
		   (id, user_id, account_id, category_id, type, amount, currency, date,
		    description, memo, payee, tag_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13)`,
		tx.ID, tx.UserID, tx.AccountID, tx.CategoryID, string(tx.Type), tx.Amount.StringFixed(2),
		tx.Currency, tx.Date, tx.Description, tx.Memo, tx.Payee, tags, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, user_id, account_id, category_id, type, amount::text, currency, date,
		        description, memo, payee, tag_ids, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY date, created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			tx     model.Transaction
			typ    string
			amount string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.AccountID, &tx.CategoryID, &typ, &amount,
			&tx.Currency, &tx.Date, &tx.Description, &tx.Memo, &tx.Payee, &tx.TagIDs, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		tx.Type = model.TransactionType(typ)
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
		}
		if len(tx.TagIDs) == 0 {
			tx.TagIDs = nil
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	store.PrepareAccount(a, s.now())
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO accounts (id, user_id, name, currency, created_at) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.UserID, a.Name, a.Currency, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, userID, id string) (model.Account, error) {
	var a model.Account
	err := s.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, currency, created_at FROM accounts WHERE user_id = $1 AND id = $2`,
		userID, id,
	).Scan(&a.ID, &a.UserID, &a.Name, &a.Currency, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("loading account: %w", err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, user_id, name, currency, created_at FROM accounts WHERE user_id = $1 ORDER BY created_at, name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Currency, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	if c.ID == "" {
		c.ID = store.NewID()
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO categories (id, user_id, name, type, system) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, c.Name, string(c.Type), string(c.System),
	)
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, user_id, name, type, system FROM categories WHERE user_id = $1 ORDER BY type, name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var (
			c           model.Category
			typ, system string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &typ, &system); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.Type = model.TransactionType(typ)
		c.System = model.SystemKey(system)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateTag(ctx context.Context, t *model.Tag) error {
	if t.ID == "" {
		t.ID = store.NewID()
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO tags (id, user_id, name) VALUES ($1, $2, $3)`, t.ID, t.UserID, t.Name)
	if err != nil {
		return fmt.Errorf("inserting tag: %w", err)
	}
	return nil
}

func (s *Store) ListTags(ctx context.Context, userID string) ([]model.Tag, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, user_id, name FROM tags WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var out []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateImportRecord(ctx context.Context, r model.ImportRecord) error {
	if r.ImportDate.IsZero() {
		r.ImportDate = s.now().UTC()
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO import_records (user_id, transaction_id, hash, source, import_date) VALUES ($1, $2, $3, $4, $5)`,
		r.UserID, r.TransactionID, r.Hash, string(r.Source), r.ImportDate,
	)
	if err != nil {
		return fmt.Errorf("inserting import record: %w", err)
	}
	return nil
}

func (s *Store) ImportedHashes(ctx context.Context, userID string, source model.Source) (map[string]struct{}, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT hash FROM import_records WHERE user_id = $1 AND source = $2`,
		userID, string(source),
	)
	if err != nil {
		return nil, fmt.Errorf("loading imported hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scanning hash: %w", err)
		}
		out[h] = struct{}{}
	}
	return out, rows.Err()
}
