package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fintrack-dev/fintrack/internal/fingerprint"
	"github.com/fintrack-dev/fintrack/internal/model"
)

// ErrUnknownFormat is returned when no parser handles a file or bank.
var ErrUnknownFormat = errors.New("unknown statement format")

// Result is everything a parser extracts from one statement.
type Result struct {
	Transactions []model.ParsedTransaction `json:"transactions"`
	AccountInfo  *model.AccountInfo        `json:"accountInfo,omitempty"`
}

// Parser converts raw statement bytes into parsed transactions. Parsers are
// pure: same bytes in, same records and hashes out.
type Parser interface {
	Parse(data []byte) (*Result, error)
	Source() model.Source
}

// TextParser is implemented by PDF parsers so callers that already extracted
// the text (for bank detection) do not extract it twice.
type TextParser interface {
	Parser
	ParseText(text string) (*Result, error)
}

// ParseError describes a statement the parser could not understand.
type ParseError struct {
	Source model.Source
	Line   int // 1-based; 0 when not tied to a line
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Source))
	b.WriteString(": ")
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Options tune parsers whose formats leave details to the exporter.
type Options struct {
	// QIFDateOrder forces day/month order for QIF dates; DateOrderAuto guesses per file.
	QIFDateOrder DateOrder
	// QIFCurrency is assigned to QIF transactions, which carry no currency.
	QIFCurrency string
}

// Registry holds parsers keyed by source.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate source.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(string(p.Source()))
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser source: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for source, or nil.
func (r *Registry) Get(source model.Source) Parser {
	return r.parsers[strings.ToLower(string(source))]
}

// Sources lists registered sources in sorted order.
func (r *Registry) Sources() []model.Source {
	out := make([]model.Source, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, model.Source(k))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Parse dispatches data to the parser registered for source.
func (r *Registry) Parse(source model.Source, data []byte) (*Result, error) {
	p := r.Get(source)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, source)
	}
	return p.Parse(data)
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	r.Register(&TrusteeParser{})
	r.Register(&PrivatParser{})
	r.Register(&MonobankParser{})
	r.Register(&QIFParser{DateOrder: opts.QIFDateOrder, Currency: opts.QIFCurrency})
	return r
}

// Kind is the container type of a statement file.
type Kind string

const (
	KindPDF Kind = "pdf"
	KindCSV Kind = "csv"
	KindQIF Kind = "qif"
)

// KindOf classifies a file name by extension.
func KindOf(fileName string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return KindPDF, nil
	case ".csv":
		return KindCSV, nil
	case ".qif":
		return KindQIF, nil
	}
	return "", fmt.Errorf("%w: unsupported file extension %q", ErrUnknownFormat, filepath.Ext(fileName))
}

// SourceForKind returns the only source a non-PDF kind can be. PDFs need
// detection, so ok is false for them.
func SourceForKind(k Kind) (model.Source, bool) {
	switch k {
	case KindCSV:
		return model.SourceMonobank, true
	case KindQIF:
		return model.SourceHomeBank, true
	}
	return "", false
}

// AcceptsKind reports whether a source's statements come in files of kind k.
func AcceptsKind(s model.Source, k Kind) bool {
	if s.IsPDF() {
		return k == KindPDF
	}
	want, _ := SourceForKind(k)
	return want == s
}

// seal stamps source and hash on every record.
func seal(source model.Source, txns []model.ParsedTransaction) {
	for i := range txns {
		txns[i].Source = source
		txns[i].Hash = fingerprint.Of(txns[i])
	}
}
