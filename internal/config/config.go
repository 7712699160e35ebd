package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file created by `fintrack init`.
const FileName = "fintrack.yaml"

// Store drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMemory   = "memory" // in-process, for trying out serve
)

// Archive drivers.
const (
	ArchiveNone = "none"
	ArchiveDir  = "dir"
	ArchiveGCS  = "gcs"
)

// Config represents the top-level fintrack.yaml configuration.
type Config struct {
	UserID       string         `yaml:"user_id"`
	BaseCurrency string         `yaml:"base_currency"`
	Store        StoreConfig    `yaml:"store"`
	Import       ImportConfig   `yaml:"import"`
	Currency     CurrencyConfig `yaml:"currency"`
	Archive      ArchiveConfig  `yaml:"archive"`
	Server       ServerConfig   `yaml:"server"`
	Log          LogConfig      `yaml:"log"`
	Git          GitConfig      `yaml:"git"`
}

// StoreConfig selects where transactions and import records live.
type StoreConfig struct {
	Driver string `yaml:"driver"`        // "file", "postgres" or "memory"
	Dir    string `yaml:"dir,omitempty"` // file driver, relative to the config file
	DSN    string `yaml:"dsn,omitempty"` // postgres driver
}

// ImportConfig tunes statement imports.
type ImportConfig struct {
	DefaultBank  string        `yaml:"default_bank,omitempty"`
	InboxDir     string        `yaml:"inbox_dir"`
	QIFDateOrder string        `yaml:"qif_date_order,omitempty"` // "auto", "dmy" or "mdy"
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

// CurrencyConfig controls base-currency conversion of import totals.
type CurrencyConfig struct {
	RatesURL string        `yaml:"rates_url,omitempty"`
	Timeout  time.Duration `yaml:"timeout"`
	// FallbackRates is the USD value of one unit per currency code, used
	// when the rates service is unreachable.
	FallbackRates map[string]float64 `yaml:"fallback_rates,omitempty"`
}

// ArchiveConfig controls where original statement files are kept.
type ArchiveConfig struct {
	Driver string `yaml:"driver"` // "none", "dir" or "gcs"
	Dir    string `yaml:"dir,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
}

// ServerConfig configures `fintrack serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// GitConfig controls git integration of the file store.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a fintrack.yaml file from disk. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(userID string) *Config {
	return &Config{
		UserID:       userID,
		BaseCurrency: "UAH",
		Store: StoreConfig{
			Driver: DriverFile,
			Dir:    "data",
		},
		Import: ImportConfig{
			InboxDir:     "inbox",
			QIFDateOrder: "auto",
			SessionTTL:   time.Hour,
		},
		Currency: CurrencyConfig{
			Timeout: 10 * time.Second,
		},
		Archive: ArchiveConfig{
			Driver: ArchiveDir,
			Dir:    "archive",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "fintrack",
			AuthorEmail: "fintrack@localhost",
		},
	}
}

// Validate reports settings no command could work with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the file driver")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Archive.Driver {
	case "", ArchiveNone:
	case ArchiveDir:
		if c.Archive.Dir == "" {
			return fmt.Errorf("archive.dir is required for the dir driver")
		}
	case ArchiveGCS:
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the gcs driver")
		}
	default:
		return fmt.Errorf("unknown archive driver %q", c.Archive.Driver)
	}
	if len(c.BaseCurrency) != 3 {
		return fmt.Errorf("base_currency %q is not a 3-letter code", c.BaseCurrency)
	}
	if c.Import.SessionTTL < 0 {
		return fmt.Errorf("import.session_ttl must not be negative")
	}
	return nil
}

// ApplyEnv overrides settings from FINTRACK_* environment variables. A
// DSN switches the store to postgres and a bucket switches the archive to
// GCS.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("FINTRACK_DSN"); v != "" {
		c.Store.Driver = DriverPostgres
		c.Store.DSN = v
	}
	if v := getenv("FINTRACK_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("FINTRACK_USER"); v != "" {
		c.UserID = v
	}
	if v := getenv("FINTRACK_GCS_BUCKET"); v != "" {
		c.Archive.Driver = ArchiveGCS
		c.Archive.Bucket = v
	}
}

// Resolve turns a path from the config into one relative to root, the
// directory holding fintrack.yaml. Absolute paths are kept.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
