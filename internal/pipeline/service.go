// Package pipeline runs a statement import from upload to committed
// transactions: detect, parse, preview, map, commit, summarize.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fintrack-dev/fintrack/internal/archive"
	"github.com/fintrack-dev/fintrack/internal/currency"
	"github.com/fintrack-dev/fintrack/internal/dedup"
	"github.com/fintrack-dev/fintrack/internal/detect"
	"github.com/fintrack-dev/fintrack/internal/extract"
	"github.com/fintrack-dev/fintrack/internal/importer"
	"github.com/fintrack-dev/fintrack/internal/matcher"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/session"
	"github.com/fintrack-dev/fintrack/internal/store"
)

var (
	ErrSessionNotFound  = session.ErrNotFound
	ErrAlreadyCommitted = errors.New("import session already committed")
	ErrNoTargetAccount  = errors.New("no target account selected")
	ErrUnmappedAccount  = errors.New("source account not mapped")
	ErrInvalidEdit      = errors.New("invalid edit")
)

// MethodSelected marks a PDF whose bank the user chose explicitly.
const MethodSelected detect.Method = "selected"

// Service orchestrates imports. It is safe for concurrent use; each
// commit run owns its own dedup gate.
type Service struct {
	store     store.Store
	parsers   *importer.Registry
	sessions  *session.Registry
	archiver  archive.Archiver
	converter *currency.Converter
	base      string
	log       zerolog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithArchiver keeps a copy of every uploaded file.
func WithArchiver(a archive.Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithConverter enables the base-currency net total in summaries.
func WithConverter(c *currency.Converter, baseCurrency string) Option {
	return func(s *Service) {
		s.converter = c
		s.base = strings.ToUpper(baseCurrency)
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a Service.
func New(st store.Store, parsers *importer.Registry, sessions *session.Registry, opts ...Option) *Service {
	s := &Service{
		store:    st,
		parsers:  parsers,
		sessions: sessions,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// UploadRequest is one statement file handed to Upload.
type UploadRequest struct {
	UserID   string
	FileName string
	Data     []byte
	// Bank overrides detection for PDFs and must agree with the file kind
	// for CSV and QIF.
	Bank model.Source
	// AccountID is the destination for single-account sources.
	AccountID string
}

// Upload parses a statement into a new preview session.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*session.Session, error) {
	if req.UserID == "" {
		return nil, errors.New("user ID is required")
	}
	kind, err := importer.KindOf(req.FileName)
	if err != nil {
		return nil, err
	}

	source, method, res, err := s.parse(kind, req)
	if err != nil {
		return nil, err
	}
	log := s.log.With().Str("user", req.UserID).Str("file", req.FileName).Str("source", string(source)).Logger()

	sess := &session.Session{
		UserID:       req.UserID,
		Source:       source,
		DetectMethod: string(method),
		FileName:     req.FileName,
		AccountInfo:  res.AccountInfo,
	}

	if req.AccountID != "" {
		if source.MultiAccount() {
			return nil, fmt.Errorf("%w: %s imports use account mappings", ErrInvalidEdit, source)
		}
		if _, err := s.store.GetAccount(ctx, req.UserID, req.AccountID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEdit, err)
		}
		sess.AccountID = req.AccountID
	}

	accounts, err := s.store.ListAccounts(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	cats, err := s.store.ListCategories(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	history, err := s.store.ListTransactions(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	gate, err := dedup.Load(ctx, s.store, req.UserID, source)
	if err != nil {
		return nil, err
	}

	m := matcher.New(cats, history)
	sess.Records = make([]session.Record, len(res.Transactions))
	for i, t := range res.Transactions {
		rec := session.Record{Index: i, Transaction: t, Selected: true}
		if sug, ok := m.Suggest(matcher.Query{
			Description:  t.Description,
			Payee:        t.Payee,
			BankCategory: t.Category,
			Type:         t.Type,
		}); ok {
			rec.CategoryID = sug.CategoryID
			rec.AutoCategorized = true
			rec.Strategy = string(sug.Strategy)
		}
		rec.AlreadyImported = gate.IsDuplicate(t.Hash)
		sess.Records[i] = rec
	}

	if source.MultiAccount() {
		sess.AccountMappings = autoMap(sess.AccountNames(), accounts)
	}

	if s.archiver != nil {
		uri, err := s.archiver.Put(ctx, req.UserID, req.FileName, req.Data)
		if err != nil {
			log.Warn().Err(err).Msg("archiving statement failed")
		} else {
			sess.ArchiveURI = uri
		}
	}

	sess = s.sessions.Put(sess)
	log.Info().
		Str("session", sess.ID).
		Str("method", sess.DetectMethod).
		Int("records", len(sess.Records)).
		Msg("statement parsed")
	return sess, nil
}

// parse resolves the source for a file and runs its parser.
func (s *Service) parse(kind importer.Kind, req UploadRequest) (model.Source, detect.Method, *importer.Result, error) {
	if kind != importer.KindPDF {
		source, _ := importer.SourceForKind(kind)
		if req.Bank != "" && req.Bank != source {
			return "", "", nil, fmt.Errorf("%w: %s statements are not %s files", importer.ErrUnknownFormat, req.Bank, kind)
		}
		p := s.parsers.Get(source)
		if p == nil {
			return "", "", nil, fmt.Errorf("%w: %q", importer.ErrUnknownFormat, source)
		}
		res, err := p.Parse(req.Data)
		return source, "", res, err
	}

	if req.Bank != "" && !importer.AcceptsKind(req.Bank, kind) {
		return "", "", nil, fmt.Errorf("%w: %s statements are not PDF files", importer.ErrUnknownFormat, req.Bank)
	}
	text, err := extract.Text(req.Data)
	if err != nil {
		src := req.Bank
		if src == "" {
			src = detect.DefaultSource
		}
		return "", "", nil, &importer.ParseError{Source: src, Reason: "extracting PDF text", Err: err}
	}

	guess := detect.Classify(text)
	source, method := guess.Source, guess.Method
	if req.Bank != "" {
		if guess.Method == detect.MethodMarker && guess.Source != req.Bank {
			s.log.Warn().Str("selected", string(req.Bank)).Str("detected", string(guess.Source)).Msg("selected bank differs from detected bank")
		}
		source, method = req.Bank, MethodSelected
	}

	p := s.parsers.Get(source)
	if p == nil {
		return "", "", nil, fmt.Errorf("%w: %q", importer.ErrUnknownFormat, source)
	}
	var res *importer.Result
	if tp, ok := p.(importer.TextParser); ok {
		res, err = tp.ParseText(text)
	} else {
		res, err = p.Parse(req.Data)
	}
	return source, method, res, err
}

// DetectFile classifies a PDF statement without parsing it.
func (s *Service) DetectFile(data []byte) (detect.Result, error) {
	text, err := extract.Text(data)
	if err != nil {
		return detect.Result{}, err
	}
	return detect.Classify(text), nil
}

// Session returns a copy of an import session.
func (s *Service) Session(_ context.Context, id string) (*session.Session, error) {
	return s.sessions.Get(id)
}

// Discard drops an import session without committing anything.
func (s *Service) Discard(_ context.Context, id string) error {
	return s.sessions.Delete(id)
}

// autoMap pairs file account names with same-named user accounts.
func autoMap(names []string, accounts []model.Account) map[string]string {
	out := make(map[string]string)
	for _, n := range names {
		for _, a := range accounts {
			if strings.EqualFold(strings.TrimSpace(a.Name), strings.TrimSpace(n)) {
				out[n] = a.ID
				break
			}
		}
	}
	return out
}
