package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/archive"
	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/config"
	"github.com/fintrack-dev/fintrack/internal/currency"
	"github.com/fintrack-dev/fintrack/internal/gitops"
	"github.com/fintrack-dev/fintrack/internal/importer"
	"github.com/fintrack-dev/fintrack/internal/logger"
	"github.com/fintrack-dev/fintrack/internal/pipeline"
	"github.com/fintrack-dev/fintrack/internal/session"
	"github.com/fintrack-dev/fintrack/internal/store"
	"github.com/fintrack-dev/fintrack/internal/store/filestore"
	"github.com/fintrack-dev/fintrack/internal/store/memory"
	"github.com/fintrack-dev/fintrack/internal/store/postgres"
)

// env is everything a command needs, built from fintrack.yaml.
type env struct {
	cfg      *config.Config
	root     string // directory holding fintrack.yaml
	log      zerolog.Logger
	store    store.Store
	sessions *session.Registry
	svc      *pipeline.Service
	closers  []func() error
}

func openEnv(ctx context.Context, configPath string, stderr io.Writer) (*env, error) {
	path, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(nil)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.UserID == "" {
		return nil, errors.New("user_id is not set; edit fintrack.yaml or set FINTRACK_USER")
	}

	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: stderr})
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, root: filepath.Dir(path), log: log}

	if err := e.openStore(ctx); err != nil {
		return nil, err
	}
	if _, err := categories.Seed(ctx, e.store, cfg.UserID); err != nil {
		e.close()
		return nil, fmt.Errorf("seeding categories: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithConverter(e.converter(), cfg.BaseCurrency),
	}
	arch, err := e.archiver(ctx)
	if err != nil {
		e.close()
		return nil, err
	}
	if arch != nil {
		opts = append(opts, pipeline.WithArchiver(arch))
	}

	order, err := importer.ParseDateOrder(cfg.Import.QIFDateOrder)
	if err != nil {
		e.close()
		return nil, fmt.Errorf("import.qif_date_order: %w", err)
	}
	parsers := importer.DefaultRegistry(importer.Options{QIFDateOrder: order, QIFCurrency: cfg.BaseCurrency})
	e.sessions = session.NewRegistry(cfg.Import.SessionTTL)
	e.svc = pipeline.New(e.store, parsers, e.sessions, opts...)
	return e, nil
}

func (e *env) openStore(ctx context.Context) error {
	switch e.cfg.Store.Driver {
	case config.DriverPostgres:
		pg, err := postgres.Open(ctx, e.cfg.Store.DSN)
		if err != nil {
			return err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return err
		}
		e.store = pg
	case config.DriverMemory:
		e.store = memory.New()
	default:
		e.store = filestore.Open(config.Resolve(e.root, e.cfg.Store.Dir))
	}
	e.closers = append(e.closers, e.store.Close)
	return nil
}

func (e *env) archiver(ctx context.Context) (archive.Archiver, error) {
	switch e.cfg.Archive.Driver {
	case config.ArchiveDir:
		return archive.DirArchiver{Root: config.Resolve(e.root, e.cfg.Archive.Dir)}, nil
	case config.ArchiveGCS:
		a, err := archive.NewGCSArchiver(ctx, e.cfg.Archive.Bucket)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, a.Close)
		return a, nil
	}
	return nil, nil
}

func (e *env) converter() *currency.Converter {
	var p currency.Provider
	if e.cfg.Currency.RatesURL != "" {
		p = currency.NewHTTPProvider(e.cfg.Currency.RatesURL, e.cfg.Currency.Timeout)
	}
	c := currency.NewConverter(p, e.log)
	for code, usd := range e.cfg.Currency.FallbackRates {
		c.Fallback[strings.ToUpper(code)] = decimal.NewFromFloat(usd)
	}
	return c
}

// git returns the project repo when commits after imports are enabled.
func (e *env) git() *gitops.Repo {
	if !e.cfg.Git.AutoCommit || e.cfg.Store.Driver != config.DriverFile || !gitops.IsRepo(e.root) {
		return nil
	}
	return gitops.Open(e.root, e.cfg.Git.AuthorName, e.cfg.Git.AuthorEmail)
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.log.Warn().Err(err).Msg("closing resource")
		}
	}
	e.closers = nil
}
