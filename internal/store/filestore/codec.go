package filestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/model"
)

const (
	dateFormat      = "2006-01-02T15:04:05"
	timestampFormat = time.RFC3339
	tagSeparator    = "|"
)

const (
	accountFields = 5
	acctColID     = 0
	acctColUser   = 1
	acctColName   = 2
	acctColCcy    = 3
	acctColCreate = 4
)

var accountHeader = []string{"id", "user_id", "name", "currency", "created_at"}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(a model.Account) []string {
	row := make([]string, accountFields)
	row[acctColID] = a.ID
	row[acctColUser] = a.UserID
	row[acctColName] = a.Name
	row[acctColCcy] = a.Currency
	row[acctColCreate] = formatTimestamp(a.CreatedAt)
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != accountFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", accountFields, len(record))
	}
	created, err := parseTimestamp(record[acctColCreate])
	if err != nil {
		return model.Account{}, err
	}
	return model.Account{
		ID:        record[acctColID],
		UserID:    record[acctColUser],
		Name:      record[acctColName],
		Currency:  record[acctColCcy],
		CreatedAt: created,
	}, nil
}

const (
	categoryFields = 5
	catColID       = 0
	catColUser     = 1
	catColName     = 2
	catColType     = 3
	catColSystem   = 4
)

var categoryHeader = []string{"id", "user_id", "name", "type", "system"}

// MarshalCategory converts a Category to a CSV row.
func MarshalCategory(c model.Category) []string {
	row := make([]string, categoryFields)
	row[catColID] = c.ID
	row[catColUser] = c.UserID
	row[catColName] = c.Name
	row[catColType] = string(c.Type)
	row[catColSystem] = string(c.System)
	return row
}

// UnmarshalCategory converts a CSV row to a Category.
func UnmarshalCategory(record []string) (model.Category, error) {
	if len(record) != categoryFields {
		return model.Category{}, fmt.Errorf("expected %d fields, got %d", categoryFields, len(record))
	}
	typ, err := model.ParseTransactionType(record[catColType])
	if err != nil {
		return model.Category{}, err
	}
	return model.Category{
		ID:     record[catColID],
		UserID: record[catColUser],
		Name:   record[catColName],
		Type:   typ,
		System: model.SystemKey(record[catColSystem]),
	}, nil
}

const (
	tagFields  = 3
	tagColID   = 0
	tagColUser = 1
	tagColName = 2
)

var tagHeader = []string{"id", "user_id", "name"}

// MarshalTag converts a Tag to a CSV row.
func MarshalTag(t model.Tag) []string {
	return []string{tagColID: t.ID, tagColUser: t.UserID, tagColName: t.Name}
}

// UnmarshalTag converts a CSV row to a Tag.
func UnmarshalTag(record []string) (model.Tag, error) {
	if len(record) != tagFields {
		return model.Tag{}, fmt.Errorf("expected %d fields, got %d", tagFields, len(record))
	}
	return model.Tag{ID: record[tagColID], UserID: record[tagColUser], Name: record[tagColName]}, nil
}

const (
	txFields     = 13
	txColID      = 0
	txColUser    = 1
	txColAccount = 2
	txColCat     = 3
	txColType    = 4
	txColAmount  = 5
	txColCcy     = 6
	txColDate    = 7
	txColDesc    = 8
	txColMemo    = 9
	txColPayee   = 10
	txColTags    = 11
	txColCreate  = 12
)

var transactionHeader = []string{
	"id", "user_id", "account_id", "category_id", "type", "amount", "currency",
	"date", "description", "memo", "payee", "tags", "created_at",
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(tx model.Transaction) []string {
	row := make([]string, txFields)
	row[txColID] = tx.ID
	row[txColUser] = tx.UserID
	row[txColAccount] = tx.AccountID
	row[txColCat] = tx.CategoryID
	row[txColType] = string(tx.Type)
	row[txColAmount] = tx.Amount.StringFixed(2)
	row[txColCcy] = tx.Currency
	row[txColDate] = tx.Date.Format(dateFormat)
	row[txColDesc] = tx.Description
	row[txColMemo] = tx.Memo
	row[txColPayee] = tx.Payee
	row[txColTags] = strings.Join(tx.TagIDs, tagSeparator)
	row[txColCreate] = formatTimestamp(tx.CreatedAt)
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != txFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", txFields, len(record))
	}

	typ, err := model.ParseTransactionType(record[txColType])
	if err != nil {
		return model.Transaction{}, err
	}
	amount, err := decimal.NewFromString(record[txColAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[txColAmount], err)
	}
	date, err := time.Parse(dateFormat, record[txColDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[txColDate], err)
	}
	created, err := parseTimestamp(record[txColCreate])
	if err != nil {
		return model.Transaction{}, err
	}

	var tags []string
	if record[txColTags] != "" {
		tags = strings.Split(record[txColTags], tagSeparator)
	}

	return model.Transaction{
		ID:          record[txColID],
		UserID:      record[txColUser],
		AccountID:   record[txColAccount],
		CategoryID:  record[txColCat],
		Type:        typ,
		Amount:      amount,
		Currency:    record[txColCcy],
		Date:        date,
		Description: record[txColDesc],
		Memo:        record[txColMemo],
		Payee:       record[txColPayee],
		TagIDs:      tags,
		CreatedAt:   created,
	}, nil
}

const (
	importFields = 5
	impColUser   = 0
	impColTx     = 1
	impColHash   = 2
	impColSource = 3
	impColDate   = 4
)

var importHeader = []string{"user_id", "transaction_id", "hash", "source", "import_date"}

// MarshalImportRecord converts an ImportRecord to a CSV row.
func MarshalImportRecord(r model.ImportRecord) []string {
	row := make([]string, importFields)
	row[impColUser] = r.UserID
	row[impColTx] = r.TransactionID
	row[impColHash] = r.Hash
	row[impColSource] = string(r.Source)
	row[impColDate] = formatTimestamp(r.ImportDate)
	return row
}

// UnmarshalImportRecord converts a CSV row to an ImportRecord.
func UnmarshalImportRecord(record []string) (model.ImportRecord, error) {
	if len(record) != importFields {
		return model.ImportRecord{}, fmt.Errorf("expected %d fields, got %d", importFields, len(record))
	}
	date, err := parseTimestamp(record[impColDate])
	if err != nil {
		return model.ImportRecord{}, err
	}
	return model.ImportRecord{
		UserID:        record[impColUser],
		TransactionID: record[impColTx],
		Hash:          record[impColHash],
		Source:        model.Source(record[impColSource]),
		ImportDate:    date,
	}, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampFormat)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
