package importer

import (
	"regexp"
	"strings"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// PrivatParser parses PrivatBank PDF statements.
//
// Each transaction is a date line followed by a card row:
//
//	05.03.2024 14:30
//	123456******7890 Supermarkets<TAB>Silpo -150,00 UAH -150,00 UAH 1 234,56
//
// The first amount is in card currency, the optional second in operation
// currency, the last bare number is the running balance. The bank's own
// category label is split from the description by a tab or a wide gap.
type PrivatParser struct{}

const (
	privatColDay = iota + 1
	privatColMonth
	privatColYear
	privatColHour
	privatColMinute
	privatColSecond
)

const (
	privatColCard = iota + 1
	privatColText
	privatColAmount
	privatColCurrency
	privatColOpAmount
	privatColOpCurrency
)

const privatDateExpr = `(\d{2})\.(\d{2})\.(\d{4})(?:\s+(\d{2}):(\d{2})(?::(\d{2}))?)?`

var (
	privatDateRe = regexp.MustCompile(`^` + privatDateExpr + `$`)
	privatRowRe  = regexp.MustCompile(`^(\d{6}\*+\d{4})\s+(.+?)\s+(` + amountExpr + `)\s*([A-Z]{3})` +
		`(?:\s+(` + amountExpr + `)\s*([A-Z]{3}))?(?:\s+` + amountExpr + `(?:\s*[A-Z]{3})?)?$`)
	// Date and card row extracted onto one line.
	privatInlineRe = regexp.MustCompile(`^` + privatDateExpr + `\s+(\d{6}\*+\d{4}\s+.+)$`)

	privatPeriodRe = regexp.MustCompile(`(?i)(?:за період|period|період)\s*:?\s*(?:з\s+|from\s+)?(\d{2}\.\d{2}\.\d{4})\s*(?:-|–|по|to)\s*(\d{2}\.\d{2}\.\d{4})`)
	privatHolderRe = regexp.MustCompile(`(?i)^(?:клієнт|client|власник)\s*:\s*(.+)$`)
	privatFooterRe = regexp.MustCompile(`(?i)privatbank|приватбанк|privatbank\.ua`)
	privatGapRe    = regexp.MustCompile(`\t+| {2,}`)
	privatCardRe   = regexp.MustCompile(`\d{6}\*+\d{4}`)
	privatAmountRe = regexp.MustCompile(`\s+` + amountExpr + `\s*[A-Z]{3}`)
)

// Source returns the parser's bank.
func (p *PrivatParser) Source() model.Source { return model.SourcePrivat }

// Parse extracts text from a PDF and parses it.
func (p *PrivatParser) Parse(data []byte) (*Result, error) {
	return parsePDF(p, data)
}

// ParseText parses already-extracted statement text.
func (p *PrivatParser) ParseText(text string) (*Result, error) {
	info := &model.AccountInfo{}
	var txns []model.ParsedTransaction
	var pending []string // submatches of the last date line
	canExtend := false

	for i, raw := range splitLines(text) {
		lineNo := i + 1
		if raw == "" {
			canExtend = false
			continue
		}
		line := normalizeSpace(raw)

		if m := privatDateRe.FindStringSubmatch(line); m != nil {
			pending = m
			canExtend = false
			continue
		}

		row := raw
		if m := privatInlineRe.FindStringSubmatch(line); m != nil {
			pending = m
			if loc := privatCardRe.FindStringIndex(raw); loc != nil {
				row = raw[loc[0]:]
			}
		}

		if m := privatRowRe.FindStringSubmatch(normalizeSpace(row)); m != nil {
			if pending == nil {
				return nil, &ParseError{Source: p.Source(), Line: lineNo, Reason: "card row without a preceding date"}
			}
			txn, err := privatRow(pending, m, rowText(row, m[privatColCard]))
			if err != nil {
				return nil, &ParseError{Source: p.Source(), Line: lineNo, Reason: "invalid row", Err: err}
			}
			if info.Number == "" {
				info.Number = m[privatColCard]
			}
			txns = append(txns, txn)
			canExtend = true
			continue
		}

		if privatHeader(line, info) || privatFooterRe.MatchString(line) {
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
		return nil, &ParseError{Source: p.Source(), Reason: "no transactions found; is this a PrivatBank statement?"}
	}
	if info.Currency == "" {
		info.Currency = txns[0].Currency
	}

	seal(p.Source(), txns)
	return &Result{Transactions: txns, AccountInfo: info}, nil
}

func privatRow(date, m []string, text string) (model.ParsedTransaction, error) {
	sec, hour, minute := 0, 0, 0
	if date[privatColHour] != "" {
		hour, minute = atoi(date[privatColHour]), atoi(date[privatColMinute])
	}
	if date[privatColSecond] != "" {
		sec = atoi(date[privatColSecond])
	}
	when, err := wallClock(atoi(date[privatColYear]), atoi(date[privatColMonth]), atoi(date[privatColDay]), hour, minute, sec)
	if err != nil {
		return model.ParsedTransaction{}, err
	}

	signed, err := parseAmount(m[privatColAmount])
	if err != nil {
		return model.ParsedTransaction{}, err
	}
	typ, amount := typeFromSigned(signed)

	category, desc := splitCategory(text)
	currency := m[privatColCurrency]

	var memo string
	if op := m[privatColOpCurrency]; op != "" && op != currency {
		if opAmount, err := parseAmount(m[privatColOpAmount]); err == nil {
			memo = "Operation: " + opAmount.Abs().StringFixed(2) + " " + op
		}
	}

	return model.ParsedTransaction{
		Date:        when,
		Description: desc,
		Amount:      amount,
		Type:        typ,
		Currency:    currency,
		Category:    category,
		Memo:        memo,
	}, nil
}

// rowText returns the raw text between the card mask and the first amount,
// keeping tabs so the category gap can be found.
func rowText(raw, card string) string {
	rest := raw
	if idx := strings.Index(raw, card); idx >= 0 {
		rest = raw[idx+len(card):]
	}
	if loc := privatAmountRe.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	return strings.Trim(rest, " \t")
}

// splitCategory separates "Category<gap>Description". Without a gap the
// whole text is the description.
func splitCategory(text string) (category, desc string) {
	parts := privatGapRe.Split(text, 2)
	if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
		return normalizeSpace(parts[0]), normalizeSpace(parts[1])
	}
	return "", normalizeSpace(text)
}

func privatHeader(line string, info *model.AccountInfo) bool {
	if m := privatPeriodRe.FindStringSubmatch(line); m != nil {
		if info.Period == "" {
			info.Period = m[1] + " - " + m[2]
		}
		return true
	}
	if m := privatHolderRe.FindStringSubmatch(line); m != nil {
		if info.Holder == "" {
			info.Holder = strings.TrimSpace(m[1])
		}
		return true
	}
	return false
}
