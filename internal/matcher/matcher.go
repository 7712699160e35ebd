package matcher

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// Strategy names how a suggestion was found.
type Strategy string

const (
	StrategyName    Strategy = "name"
	StrategyHistory Strategy = "history"
)

// minTokenLen is the shortest token that counts toward overlap matching.
const minTokenLen = 3

// Query is what is known about a record when suggesting its category.
type Query struct {
	Description  string
	Payee        string
	BankCategory string
	Type         model.TransactionType
}

// Suggestion is a proposed category. It is never presented as certain.
type Suggestion struct {
	CategoryID string   `json:"categoryId"`
	Strategy   Strategy `json:"strategy"`
}

type category struct {
	id     string
	typ    model.TransactionType
	name   string
	tokens []string
}

type past struct {
	categoryID string
	typ        model.TransactionType
	key        string
}

// Matcher suggests categories by name similarity, then by the user's history.
type Matcher struct {
	categories []category
	history    []past
}

// New indexes categories and past transactions. System categories are
// skipped and history is searched most recent first.
func New(categories []model.Category, history []model.Transaction) *Matcher {
	m := &Matcher{}
	system := make(map[string]bool)
	for _, c := range categories {
		if c.IsSystem() {
			system[c.ID] = true
			continue
		}
		name := Normalize(c.Name)
		if name == "" {
			continue
		}
		m.categories = append(m.categories, category{id: c.ID, typ: c.Type, name: name, tokens: tokens(name)})
	}

	sorted := make([]model.Transaction, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	for _, t := range sorted {
		if t.CategoryID == "" || system[t.CategoryID] {
			continue
		}
		key := historyKey(t.Description)
		if key == "" {
			continue
		}
		m.history = append(m.history, past{categoryID: t.CategoryID, typ: t.Type, key: key})
	}
	return m
}

// Suggest returns a category for q, or false when nothing plausible matches.
func (m *Matcher) Suggest(q Query) (Suggestion, bool) {
	if id, ok := m.byName(q); ok {
		return Suggestion{CategoryID: id, Strategy: StrategyName}, true
	}
	if id, ok := m.byHistory(q); ok {
		return Suggestion{CategoryID: id, Strategy: StrategyHistory}, true
	}
	return Suggestion{}, false
}

func (m *Matcher) byName(q Query) (string, bool) {
	bank := Normalize(q.BankCategory)
	texts := nonEmpty(Normalize(q.Description), Normalize(q.Payee))
	withBank := nonEmpty(append(texts, bank)...)

	// Bank label or whole text equals a category name.
	for _, c := range m.categories {
		if c.typ != q.Type {
			continue
		}
		if (bank != "" && bank == c.name) || contains(texts, func(s string) bool { return s == c.name }) {
			return c.id, true
		}
	}
	// Category name appears as a phrase in the text or bank label.
	for _, c := range m.categories {
		if c.typ != q.Type {
			continue
		}
		phrase := " " + c.name + " "
		if contains(withBank, func(s string) bool { return strings.Contains(" "+s+" ", phrase) }) {
			return c.id, true
		}
	}
	// Any significant token in common.
	var textTokens []string
	for _, s := range withBank {
		textTokens = append(textTokens, tokens(s)...)
	}
	for _, c := range m.categories {
		if c.typ != q.Type {
			continue
		}
		if overlaps(c.tokens, textTokens) {
			return c.id, true
		}
	}
	return "", false
}

func (m *Matcher) byHistory(q Query) (string, bool) {
	keys := nonEmpty(historyKey(q.Description), historyKey(q.Payee))
	if len(keys) == 0 {
		return "", false
	}
	for _, h := range m.history {
		if h.typ == q.Type && contains(keys, func(k string) bool { return k == h.key }) {
			return h.categoryID, true
		}
	}
	for _, h := range m.history {
		if h.typ != q.Type {
			continue
		}
		match := contains(keys, func(k string) bool {
			if utf8.RuneCountInString(k) < minTokenLen || utf8.RuneCountInString(h.key) < minTokenLen {
				return false
			}
			return strings.Contains(k, h.key) || strings.Contains(h.key, k)
		})
		if match {
			return h.categoryID, true
		}
	}
	return "", false
}

// Normalize folds case, applies NFKC, turns punctuation and symbols into
// spaces and collapses whitespace.
func Normalize(s string) string {
	s = norm.NFKC.String(cases.Fold().String(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// historyKey is Normalize without purely numeric tokens, so card numbers and
// receipt ids do not defeat matching against earlier transactions.
func historyKey(s string) string {
	var kept []string
	for _, f := range strings.Fields(Normalize(s)) {
		if strings.IndexFunc(f, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

func tokens(normalized string) []string {
	var out []string
	for _, f := range strings.Fields(normalized) {
		if utf8.RuneCountInString(f) >= minTokenLen {
			out = append(out, f)
		}
	}
	return out
}

func overlaps(a, b []string) bool {
	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	for _, t := range a {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

func nonEmpty(ss ...string) []string {
	var out []string
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func contains(ss []string, pred func(string) bool) bool {
	for _, s := range ss {
		if pred(s) {
			return true
		}
	}
	return false
}
