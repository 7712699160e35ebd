package commands_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const monoCSV = `"Дата i час операції","Деталі операції",MCC,"Сума в валюті картки (UAH)","Сума в валюті операції","Валюта","Курс","Сума комісій (UAH)","Сума кешбеку (UAH)","Залишок після операції"
"05.03.2024 10:00:00","Groceries",5411,-20.00,-20.00,UAH,—,0.00,0.00,80.00
"06.03.2024 11:30:00","Salary",4829,1000.00,1000.00,UAH,—,0.00,0.00,1080.00
`

const transferQIF = `!Account
NChecking
TBank
^
!Type:Bank
D03/15/2024
T-100.00
PMove to savings
L[Savings]
^
D03/16/2024
T-42.50
PGroceries
^
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImport_CSV(t *testing.T) {
	dir, cfg := initProject(t)
	_, err := runFintrack(t, "--config", cfg, "accounts", "add", "Mono")
	require.NoError(t, err)
	stmt := writeFile(t, t.TempDir(), "march.csv", monoCSV)

	out, err := runFintrack(t, "--config", cfg, "import", stmt, "--account", "mono", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "monobank statement march.csv: 2 records")
	assert.Contains(t, out, "Groceries?")
	assert.Contains(t, out, "Dry run")

	out, err = runFintrack(t, "--config", cfg, "import", stmt, "--account", "mono")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2, duplicates 0, failed 0")
	assert.Contains(t, out, "net 980.00 UAH")

	out, err = runFintrack(t, "--config", cfg, "import", stmt, "--account", "mono")
	require.NoError(t, err)
	assert.Contains(t, out, "already imported")
	assert.Contains(t, out, "Imported 0, duplicates 2, failed 0")

	out, err = runFintrack(t, "--config", cfg, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "march.csv")

	archived, err := filepath.Glob(filepath.Join(dir, "archive", "alice", "*", "march.csv"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestImport_SkipRecords(t *testing.T) {
	_, cfg := initProject(t)
	_, err := runFintrack(t, "--config", cfg, "accounts", "add", "Mono")
	require.NoError(t, err)
	stmt := writeFile(t, t.TempDir(), "march.csv", monoCSV)

	out, err := runFintrack(t, "--config", cfg, "import", stmt, "--account", "Mono", "--skip", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "Imported 1, duplicates 0, failed 0")
}

func TestImport_RequiresKnownAccount(t *testing.T) {
	_, cfg := initProject(t)
	stmt := writeFile(t, t.TempDir(), "march.csv", monoCSV)

	_, err := runFintrack(t, "--config", cfg, "import", stmt, "--account", "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no account")

	_, err = runFintrack(t, "--config", cfg, "import", stmt)
	require.Error(t, err, "commit without a destination account")
}

func TestImport_QIFWithMapping(t *testing.T) {
	_, cfg := initProject(t)
	for _, name := range []string{"Checking", "Rainy day"} {
		_, err := runFintrack(t, "--config", cfg, "accounts", "add", name)
		require.NoError(t, err)
	}
	stmt := writeFile(t, t.TempDir(), "export.qif", transferQIF)

	out, err := runFintrack(t, "--config", cfg, "import", stmt, "--map", "Savings=rainy day")
	require.NoError(t, err)
	assert.Contains(t, out, `account "Savings" -> Rainy day`)
	assert.Contains(t, out, "transfer to Savings")
	assert.Contains(t, out, "Imported 3, duplicates 0, failed 0")
}

func TestInbox(t *testing.T) {
	dir, cfg := initProject(t)
	_, err := runFintrack(t, "--config", cfg, "accounts", "add", "Mono")
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "inbox"), "march.csv", monoCSV)
	writeFile(t, filepath.Join(dir, "inbox"), "notes.txt", "not a statement")

	out, err := runFintrack(t, "--config", cfg, "inbox", "--account", "Mono")
	require.NoError(t, err)
	assert.Contains(t, out, "== march.csv")
	assert.Contains(t, out, "Imported 2")

	_, err = os.Stat(filepath.Join(dir, "inbox", "processed", "march.csv"))
	require.NoError(t, err, "imported file moves to processed/")
	_, err = os.Stat(filepath.Join(dir, "inbox", "notes.txt"))
	require.NoError(t, err, "other files are left alone")

	out, err = runFintrack(t, "--config", cfg, "inbox")
	require.NoError(t, err)
	assert.Contains(t, out, "is empty")
}

func TestInbox_KeepsFailedFiles(t *testing.T) {
	dir, cfg := initProject(t)
	writeFile(t, filepath.Join(dir, "inbox"), "march.csv", monoCSV)

	_, err := runFintrack(t, "--config", cfg, "inbox")
	require.Error(t, err, "no account given for a CSV statement")

	_, err = os.Stat(filepath.Join(dir, "inbox", "march.csv"))
	require.NoError(t, err)
}

func TestParse_QIF(t *testing.T) {
	stmt := writeFile(t, t.TempDir(), "export.qif", transferQIF)

	out, err := runFintrack(t, "parse", stmt)
	require.NoError(t, err)
	assert.Contains(t, out, "homebank: 2 transactions")
	assert.Contains(t, out, "2024-03-15")
	assert.Contains(t, out, "Checking -> Savings")
}

func TestParse_UnknownExtension(t *testing.T) {
	stmt := writeFile(t, t.TempDir(), "notes.txt", "hello")
	_, err := runFintrack(t, "parse", stmt)
	require.Error(t, err)
}

func TestAccountsAndCategories(t *testing.T) {
	_, cfg := initProject(t)

	_, err := runFintrack(t, "--config", cfg, "accounts", "add", "Cash", "--currency", "usd")
	require.NoError(t, err)
	_, err = runFintrack(t, "--config", cfg, "accounts", "add", "cash")
	require.Error(t, err, "names are unique ignoring case")

	out, err := runFintrack(t, "--config", cfg, "accounts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Cash")
	assert.Contains(t, out, "USD")

	out, err = runFintrack(t, "--config", cfg, "categories", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "Transfer In (system)")
}
