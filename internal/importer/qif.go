package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// DateOrder says how to read ambiguous slash dates like 03/04/2024.
type DateOrder string

const (
	DateOrderAuto DateOrder = ""
	DateOrderDMY  DateOrder = "dmy"
	DateOrderMDY  DateOrder = "mdy"
)

// ParseDateOrder accepts "", "auto", "dmy" or "mdy".
func ParseDateOrder(s string) (DateOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DateOrderAuto, nil
	case "dmy":
		return DateOrderDMY, nil
	case "mdy":
		return DateOrderMDY, nil
	}
	return "", fmt.Errorf("unknown date order %q (want auto, dmy or mdy)", s)
}

// DefaultQIFAccount holds transactions that appear before any !Account block.
const DefaultQIFAccount = "Default"

// QIFParser parses QIF files as exported by HomeBank. Multi-account exports
// group transactions under !Account blocks; a category written as
// [Account Name] marks a transfer to that account.
type QIFParser struct {
	DateOrder DateOrder
	// Currency assigned to every transaction; QIF has no currency field.
	Currency string
}

var (
	qifISODateRe   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	qifDotDateRe   = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2,4})$`)
	qifSlashDateRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(['/-])\s*(\d{2,4})$`)
)

// qifRecord is a transaction as written, before dates are resolved.
type qifRecord struct {
	line     int
	account  string
	date     string
	amount   string
	payee    string
	memo     string
	category string
	number   string
}

// Source returns the parser's format.
func (p *QIFParser) Source() model.Source { return model.SourceHomeBank }

// Parse tokenizes the QIF line-tag format.
func (p *QIFParser) Parse(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	recs, accounts, err := p.tokenize(data)
	if err != nil {
		return nil, err
	}

	order := p.DateOrder
	if order == DateOrderAuto {
		order = guessDateOrder(recs)
	}

	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	txns := make([]model.ParsedTransaction, 0, len(recs))
	for _, r := range recs {
		txn, err := r.resolve(order, currency)
		if err != nil {
			return nil, &ParseError{Source: p.Source(), Line: r.line, Reason: "invalid transaction", Err: err}
		}
		txns = append(txns, txn)
	}

	seal(p.Source(), txns)
	return &Result{
		Transactions: txns,
		AccountInfo:  &model.AccountInfo{Currency: currency, Accounts: accounts},
	}, nil
}

func (p *QIFParser) tokenize(data []byte) ([]qifRecord, []string, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		recs       []qifRecord
		accounts   []string
		seen       = map[string]bool{}
		account    = DefaultQIFAccount
		current    qifRecord
		started    bool
		recognized bool
		acctName   string
		// section is "account", "txn" or "skip".
		section = "txn"
	)

	addAccount := func(name string) {
		if !seen[name] {
			seen[name] = true
			accounts = append(accounts, name)
		}
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if line[0] == '!' {
			recognized = true
			header := strings.ToLower(line)
			switch {
			case strings.HasPrefix(header, "!account"):
				section = "account"
				acctName = ""
			case strings.HasPrefix(header, "!option"), strings.HasPrefix(header, "!clear"):
				// Export flags; no data follows.
			case strings.HasPrefix(header, "!type:cat"), strings.HasPrefix(header, "!type:class"),
				strings.HasPrefix(header, "!type:memorized"), strings.HasPrefix(header, "!type:prices"),
				strings.HasPrefix(header, "!type:security"):
				section = "skip"
			case strings.HasPrefix(header, "!type:"):
				section = "txn"
			default:
				return nil, nil, &ParseError{Source: p.Source(), Line: lineNo, Reason: fmt.Sprintf("unknown header %q", line)}
			}
			continue
		}

		tag, value := line[0], strings.TrimSpace(line[1:])

		switch section {
		case "account":
			switch tag {
			case 'N':
				acctName = value
			case '^':
				recognized = true
				if acctName != "" {
					account = acctName
					addAccount(account)
				}
				section = "txn"
			}
			continue
		case "skip":
			if tag == '^' {
				recognized = true
			}
			continue
		}

		if tag == '^' {
			recognized = true
			if started {
				if current.date == "" {
					return nil, nil, &ParseError{Source: p.Source(), Line: current.line, Reason: "transaction without date"}
				}
				addAccount(current.account)
				recs = append(recs, current)
			}
			current, started = qifRecord{}, false
			continue
		}

		if !started {
			current = qifRecord{line: lineNo, account: account}
			started = true
		}
		switch tag {
		case 'D':
			current.date = value
		case 'T':
			current.amount = value
		case 'U':
			if current.amount == "" {
				current.amount = value
			}
		case 'P':
			current.payee = value
		case 'M':
			current.memo = value
		case 'L':
			current.category = value
		case 'N':
			current.number = value
		default:
			// Splits (S, E, $), cleared status and address lines are not imported.
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, &ParseError{Source: p.Source(), Reason: "reading QIF", Err: err}
	}
	if !recognized {
		return nil, nil, &ParseError{Source: p.Source(), Reason: "no QIF headers or records found"}
	}
	if started && current.date != "" {
		// Trailing record without the closing caret.
		addAccount(current.account)
		recs = append(recs, current)
	}
	return recs, accounts, nil
}

func (r qifRecord) resolve(order DateOrder, currency string) (model.ParsedTransaction, error) {
	date, err := parseQIFDate(r.date, order)
	if err != nil {
		return model.ParsedTransaction{}, err
	}
	if r.amount == "" {
		return model.ParsedTransaction{}, fmt.Errorf("missing amount")
	}
	signed, err := parseAmount(r.amount)
	if err != nil {
		return model.ParsedTransaction{}, err
	}
	typ, amount := typeFromSigned(signed)

	txn := model.ParsedTransaction{
		Date:        date,
		Description: r.payee,
		Amount:      amount,
		Type:        typ,
		Currency:    currency,
		Payee:       r.payee,
		Memo:        r.memo,
		Account:     r.account,
	}
	if r.number != "" {
		txn.Memo = joinMemo(r.memo, "No. "+r.number)
	}
	if txn.Description == "" {
		txn.Description = r.memo
	}

	cat := r.category
	if strings.HasPrefix(cat, "[") {
		if end := strings.Index(cat, "]"); end > 0 {
			txn.IsTransfer = true
			txn.TransferAccount = strings.TrimSpace(cat[1:end])
			cat = ""
		}
	}
	if i := strings.Index(cat, "/"); i >= 0 {
		cat = cat[:i]
	}
	txn.Category = strings.TrimSpace(cat)
	return txn, nil
}

// guessDateOrder reads day-first when any slash date has a first component
// above 12 and month-first otherwise.
func guessDateOrder(recs []qifRecord) DateOrder {
	for _, r := range recs {
		m := qifSlashDateRe.FindStringSubmatch(strings.TrimSpace(r.date))
		if m == nil {
			continue
		}
		if atoi(m[1]) > 12 {
			return DateOrderDMY
		}
	}
	return DateOrderMDY
}

func parseQIFDate(s string, order DateOrder) (time.Time, error) {
	s = strings.TrimSpace(s)
	if m := qifISODateRe.FindStringSubmatch(s); m != nil {
		return wallClock(atoi(m[1]), atoi(m[2]), atoi(m[3]), 0, 0, 0)
	}
	if m := qifDotDateRe.FindStringSubmatch(s); m != nil {
		return wallClock(expandYear(m[3], false), atoi(m[2]), atoi(m[1]), 0, 0, 0)
	}
	if m := qifSlashDateRe.FindStringSubmatch(s); m != nil {
		a, b := atoi(m[1]), atoi(m[2])
		year := expandYear(m[4], m[3] == "'")
		if order == DateOrderDMY {
			return wallClock(year, b, a, 0, 0, 0)
		}
		return wallClock(year, a, b, 0, 0, 0)
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// expandYear turns two-digit years into four. Quicken's apostrophe form
// ("1/5'24") always means 20xx.
func expandYear(s string, apostrophe bool) int {
	y := atoi(s)
	if len(s) > 2 {
		return y
	}
	if apostrophe || y < 70 {
		return 2000 + y
	}
	return 1900 + y
}
