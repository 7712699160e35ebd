package importer

import (
	"regexp"
	"strings"

	"github.com/fintrack-dev/fintrack/internal/extract"
	"github.com/fintrack-dev/fintrack/internal/model"
)

// TrusteeParser parses Trustee Plus PDF statements.
//
// Rows look like:
//
//	2024.03.05, 14:30 Coffee Point -3.50 EUR 96.50 EUR
//
// A "+" on the amount marks income; anything else is an expense. Lines
// following a row that match nothing else continue its description.
type TrusteeParser struct{}

const (
	trusteeColYear = iota + 1
	trusteeColMonth
	trusteeColDay
	trusteeColHour
	trusteeColMinute
	trusteeColSecond
	trusteeColDesc
	trusteeColAmount
	trusteeColCurrency
)

var (
	trusteeRowRe = regexp.MustCompile(`^(\d{4})\.(\d{2})\.(\d{2}),\s*(\d{2}):(\d{2})(?::(\d{2}))?(?:\s+(.*?))?\s+(` +
		amountExpr + `)(?:\s*([A-Z]{3}))?(?:\s+` + amountExpr + `(?:\s*[A-Z]{3})?)?$`)

	trusteeCurrencyRe = regexp.MustCompile(`(?i)^(?:currency|валюта)\s*:\s*([A-Z]{3})\b`)
	trusteeAccountRe  = regexp.MustCompile(`(?i)^(?:iban|account|рахунок)\s*:?\s*([A-Z]{2}\d{2}[A-Z0-9 ]{10,}|\d[\d *]{5,})$`)
	trusteePeriodRe   = regexp.MustCompile(`(?i)^(?:period|період)\s*:\s*(.+)$`)
	trusteeHolderRe   = regexp.MustCompile(`(?i)^(?:client|holder|клієнт)\s*:\s*(.+)$`)
	trusteeFooterRe   = regexp.MustCompile(`(?i)trustee\s*plus|trustee\.plus`)
)

// Source returns the parser's bank.
func (p *TrusteeParser) Source() model.Source { return model.SourceTrustee }

// Parse extracts text from a PDF and parses it.
func (p *TrusteeParser) Parse(data []byte) (*Result, error) {
	return parsePDF(p, data)
}

// ParseText parses already-extracted statement text.
func (p *TrusteeParser) ParseText(text string) (*Result, error) {
	info := &model.AccountInfo{}
	var txns []model.ParsedTransaction
	canExtend := false

	for i, raw := range splitLines(text) {
		line := normalizeSpace(raw)
		if line == "" {
			canExtend = false
			continue
		}

		if m := trusteeRowRe.FindStringSubmatch(line); m != nil {
			txn, err := trusteeRow(m)
			if err != nil {
				return nil, &ParseError{Source: p.Source(), Line: i + 1, Reason: "invalid row", Err: err}
			}
			txns = append(txns, txn)
			canExtend = true
			continue
		}

		if trusteeHeader(line, info) || trusteeFooterRe.MatchString(line) {
			canExtend = false
			continue
		}

		if canExtend && isContinuation(line) {
			last := &txns[len(txns)-1]
			last.Description = normalizeSpace(last.Description + " " + line)
			continue
		}
		canExtend = false
	}

	if len(txns) == 0 {
		return nil, &ParseError{Source: p.Source(), Reason: "no transactions found; is this a Trustee Plus statement?"}
	}
	for i := range txns {
		if txns[i].Currency == "" {
			txns[i].Currency = info.Currency
		}
		if txns[i].Currency == "" {
			return nil, &ParseError{Source: p.Source(), Reason: "no currency on row and none in statement header"}
		}
	}
	if info.Currency == "" {
		info.Currency = txns[0].Currency
	}

	seal(p.Source(), txns)
	return &Result{Transactions: txns, AccountInfo: info}, nil
}

func trusteeRow(m []string) (model.ParsedTransaction, error) {
	sec := 0
	if m[trusteeColSecond] != "" {
		sec = atoi(m[trusteeColSecond])
	}
	date, err := wallClock(atoi(m[trusteeColYear]), atoi(m[trusteeColMonth]), atoi(m[trusteeColDay]),
		atoi(m[trusteeColHour]), atoi(m[trusteeColMinute]), sec)
	if err != nil {
		return model.ParsedTransaction{}, err
	}

	amount, err := parseAmount(m[trusteeColAmount])
	if err != nil {
		return model.ParsedTransaction{}, err
	}
	typ := model.TypeExpense
	if strings.HasPrefix(m[trusteeColAmount], "+") {
		typ = model.TypeIncome
	}

	return model.ParsedTransaction{
		Date:        date,
		Description: m[trusteeColDesc],
		Amount:      amount.Abs(),
		Type:        typ,
		Currency:    m[trusteeColCurrency],
	}, nil
}

// trusteeHeader records statement metadata; first occurrence wins.
func trusteeHeader(line string, info *model.AccountInfo) bool {
	set := func(dst *string, v string) {
		if *dst == "" {
			*dst = strings.TrimSpace(v)
		}
	}
	switch {
	case trusteeCurrencyRe.MatchString(line):
		set(&info.Currency, strings.ToUpper(trusteeCurrencyRe.FindStringSubmatch(line)[1]))
	case trusteeAccountRe.MatchString(line):
		set(&info.Number, strings.ReplaceAll(trusteeAccountRe.FindStringSubmatch(line)[1], " ", ""))
	case trusteePeriodRe.MatchString(line):
		set(&info.Period, trusteePeriodRe.FindStringSubmatch(line)[1])
	case trusteeHolderRe.MatchString(line):
		set(&info.Holder, trusteeHolderRe.FindStringSubmatch(line)[1])
	default:
		return false
	}
	return true
}

// parsePDF extracts text and hands it to a text parser.
func parsePDF(p TextParser, data []byte) (*Result, error) {
	text, err := extract.Text(data)
	if err != nil {
		return nil, &ParseError{Source: p.Source(), Reason: "extracting PDF text", Err: err}
	}
	return p.ParseText(text)
}
