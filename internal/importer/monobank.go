package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// MonobankParser parses monobank CSV exports. Exports use "," or ";" and
// localized decimals depending on the app version.
type MonobankParser struct{}

const (
	monoColDate = iota
	monoColDesc
	monoColMCC
	monoColCardAmount
	monoColOpAmount
	monoColOpCurrency
	monoColRate
	monoColCommission
	monoColCashback
	monoColBalance

	monoMinFields   = monoColOpAmount + 1
	defaultCurrency = "UAH"
)

var (
	monoDateLayouts = []string{"02.01.2006 15:04:05", "02.01.2006 15:04", "02.01.2006"}
	monoCurrencyRe  = regexp.MustCompile(`\(([A-Za-z]{3})\)`)
	utf8BOM         = []byte{0xEF, 0xBB, 0xBF}
)

// Source returns the parser's bank.
func (p *MonobankParser) Source() model.Source { return model.SourceMonobank }

// Parse reads a monobank CSV.
func (p *MonobankParser) Parse(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Source: p.Source(), Reason: "empty file"}
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	info := &model.AccountInfo{Currency: defaultCurrency}
	var txns []model.ParsedTransaction
	headerSeen := false

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			line := 0
			if errors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return nil, &ParseError{Source: p.Source(), Line: line, Reason: "malformed CSV", Err: err}
		}
		line, _ := cr.FieldPos(0)
		if blankRecord(rec) {
			continue
		}

		if _, ok := parseMonoDate(rec[monoColDate]); !ok {
			if headerSeen || len(txns) > 0 {
				return nil, &ParseError{Source: p.Source(), Line: line, Reason: fmt.Sprintf("invalid date %q", rec[monoColDate])}
			}
			headerSeen = true
			if len(rec) > monoColCardAmount {
				if m := monoCurrencyRe.FindStringSubmatch(rec[monoColCardAmount]); m != nil {
					info.Currency = strings.ToUpper(m[1])
				}
			}
			continue
		}

		if len(rec) < monoMinFields {
			return nil, &ParseError{Source: p.Source(), Line: line,
				Reason: fmt.Sprintf("expected at least %d columns, got %d", monoMinFields, len(rec))}
		}
		txn, err := monoRow(rec, info.Currency)
		if err != nil {
			return nil, &ParseError{Source: p.Source(), Line: line, Reason: "invalid row", Err: err}
		}
		txns = append(txns, txn)
	}

	if !headerSeen && len(txns) == 0 {
		return nil, &ParseError{Source: p.Source(), Reason: "no header or transactions; is this a monobank export?"}
	}

	seal(p.Source(), txns)
	return &Result{Transactions: txns, AccountInfo: info}, nil
}

func monoRow(rec []string, cardCurrency string) (model.ParsedTransaction, error) {
	date, _ := parseMonoDate(rec[monoColDate])

	signed, err := parseAmount(rec[monoColCardAmount])
	if err != nil {
		return model.ParsedTransaction{}, err
	}
	typ, amount := typeFromSigned(signed)

	var opNote, mccNote, feeNote string
	if cur := strings.ToUpper(field(rec, monoColOpCurrency)); cur != "" && cur != cardCurrency {
		if op, err := parseAmount(field(rec, monoColOpAmount)); err == nil {
			opNote = fmt.Sprintf("Operation: %s %s", op.Abs().StringFixed(2), cur)
			if rate := field(rec, monoColRate); rate != "" && rate != "—" {
				opNote += " @ " + rate
			}
		}
	}
	if mcc := field(rec, monoColMCC); mcc != "" {
		mccNote = "MCC " + mcc
	}
	if fee, err := parseAmount(field(rec, monoColCommission)); err == nil && !fee.IsZero() {
		feeNote = fmt.Sprintf("Commission: %s %s", fee.Abs().StringFixed(2), cardCurrency)
	}

	return model.ParsedTransaction{
		Date:        date,
		Description: normalizeSpace(rec[monoColDesc]),
		Amount:      amount,
		Type:        typ,
		Currency:    cardCurrency,
		Memo:        joinMemo(opNote, mccNote, feeNote),
	}, nil
}

func parseMonoDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range monoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sniffDelimiter picks ";" when the first line has more semicolons than
// commas outside quotes.
func sniffDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	commas, semis := 0, 0
	quoted := false
	for _, c := range first {
		switch c {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				commas++
			}
		case ';':
			if !quoted {
				semis++
			}
		}
	}
	if semis > commas {
		return ';'
	}
	return ','
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
