package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// MirrorSuffix is appended to a transfer's hash to form its counterpart's hash.
const MirrorSuffix = ":mirror"

// ShortLen is the length of a hash prefix shown to users.
const ShortLen = 12

// Fields are the semantically identifying parts of a statement row.
type Fields struct {
	Source      model.Source
	Account     string
	Date        time.Time
	Amount      decimal.Decimal
	Type        model.TransactionType
	Currency    string
	Description string
}

// Hash returns the hex SHA-256 of the identifying fields. Row position
// never participates, so re-parsing the same file gives the same hashes.
func Hash(f Fields) string {
	parts := []string{
		string(f.Source),
		strings.TrimSpace(f.Account),
		f.Date.Format("2006-01-02T15:04:05"),
		f.Amount.StringFixed(2),
		string(f.Type),
		strings.ToUpper(strings.TrimSpace(f.Currency)),
		collapseSpace(f.Description),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Of hashes a parsed transaction.
func Of(p model.ParsedTransaction) string {
	return Hash(Fields{
		Source:      p.Source,
		Account:     p.Account,
		Date:        p.Date,
		Amount:      p.Amount,
		Type:        p.Type,
		Currency:    p.Currency,
		Description: p.Description,
	})
}

// Mirror returns the hash of the synthesized counterpart of a transfer.
func Mirror(hash string) string {
	return hash + MirrorSuffix
}

// IsMirror reports whether hash was produced by Mirror.
func IsMirror(hash string) bool {
	return strings.HasSuffix(hash, MirrorSuffix)
}

// Short returns the first ShortLen characters of hash.
func Short(hash string) string {
	if len(hash) <= ShortLen {
		return hash
	}
	return hash[:ShortLen]
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
