package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/config"
	"github.com/fintrack-dev/fintrack/internal/gitops"
	"github.com/fintrack-dev/fintrack/internal/importer"
	"github.com/fintrack-dev/fintrack/internal/store/filestore"
)

func newInitCommand() *cobra.Command {
	var userID string
	var baseCurrency string
	var withGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new fintrack project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, userID, baseCurrency, withGit)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id the ledger belongs to (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&baseCurrency, "base-currency", "UAH", "currency import totals are converted into")
	cmd.Flags().BoolVar(&withGit, "git", true, "version the project with git")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir, userID, baseCurrency string, withGit bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	cfg := config.Default(userID)
	cfg.BaseCurrency = baseCurrency
	cfg.Git.AutoCommit = withGit
	if err := cfg.Validate(); err != nil {
		return err
	}

	dirs := []string{
		cfg.Store.Dir,
		cfg.Archive.Dir,
		"logs",
		cfg.Import.InboxDir,
		filepath.Join(cfg.Import.InboxDir, importer.ProcessedDir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	st := filestore.Open(filepath.Join(dir, cfg.Store.Dir))
	n, err := categories.Seed(ctx, st, userID)
	if err != nil {
		return fmt.Errorf("seeding categories: %w", err)
	}

	// Statements carry account numbers; keep them out of history.
	gitignore := cfg.Import.InboxDir + "/\n" + cfg.Archive.Dir + "/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	hash := ""
	if withGit {
		repo := gitops.Open(dir, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
		if err := repo.Init(ctx); err != nil {
			return fmt.Errorf("git init: %w", err)
		}
		if hash, err = repo.CommitAll(ctx, "init: fintrack project for "+userID); err != nil {
			return fmt.Errorf("initial commit: %w", err)
		}
	}

	fmt.Fprintf(out, "Initialized fintrack project at %s with %d categories", dir, n)
	if hash != "" {
		fmt.Fprintf(out, " (%s)", hash)
	}
	fmt.Fprintln(out)
	return nil
}
