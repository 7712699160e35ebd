package importer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// amountExpr matches a decimal amount with exactly two fraction digits and
// optional space-grouped thousands: "-1 234,56", "+10.00", "150,00".
const amountExpr = `[+\-\x{2212}]?(?:\d{1,3}(?:[ \x{00a0}\x{202f}]\d{3})+|\d+)[.,]\d{2}`

var (
	errEmptyAmount = errors.New("empty amount")

	// Lines that never belong to a transaction description.
	noiseRe = regexp.MustCompile(`(?i)^(?:page|сторінка|стр\.?)\s*\d+|^\d+\s*(?:/|of|з|із)\s*\d+$|^(?:balance|баланс|залишок|total|разом|всього)\b`)
	spaceRe = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

// parseAmount reads a signed decimal written with either "." or "," as the
// decimal separator. When both appear, the last one is the decimal separator.
// A lone comma followed by exactly three digits groups thousands: "1,234".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "", "\u2212", "-").Replace(s)
	if s == "" || s == "-" || s == "+" {
		return decimal.Zero, errEmptyAmount
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// typeFromSigned maps a signed amount to type and magnitude. Zero is income.
func typeFromSigned(d decimal.Decimal) (model.TransactionType, decimal.Decimal) {
	if d.IsNegative() {
		return model.TypeExpense, d.Abs()
	}
	return model.TypeIncome, d
}

// splitLines normalizes line endings and trims each line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

// normalizeSpace collapses runs of spaces and tabs into one space.
func normalizeSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// isContinuation reports whether line can extend the previous description.
func isContinuation(line string) bool {
	if line == "" || len([]rune(line)) > 120 {
		return false
	}
	return !noiseRe.MatchString(line)
}

func wallClock(year, month, day, hour, minute, sec int) (time.Time, error) {
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d %02d:%02d:%02d", year, month, day, hour, minute, sec)
	}
	return t, nil
}

// atoi parses a short digit run already validated by a regexp.
func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func joinMemo(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "; ")
}
