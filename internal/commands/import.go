package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/config"
	"github.com/fintrack-dev/fintrack/internal/detect"
	"github.com/fintrack-dev/fintrack/internal/extract"
	"github.com/fintrack-dev/fintrack/internal/importer"
	"github.com/fintrack-dev/fintrack/internal/importlog"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/pipeline"
	"github.com/fintrack-dev/fintrack/internal/session"
)

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file.pdf>",
		Short: "Report which bank produced a PDF statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading statement: %w", err)
			}
			text, err := extract.Text(data)
			if err != nil {
				return err
			}
			res := detect.Classify(text)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", res.Source, res.Method)
			return nil
		},
	}
}

func newParseCommand() *cobra.Command {
	var bank string
	var dateOrder string
	var currency string

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a statement and print its transactions without importing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := importer.ParseDateOrder(dateOrder)
			if err != nil {
				return err
			}
			reg := importer.DefaultRegistry(importer.Options{QIFDateOrder: order, QIFCurrency: currency})
			res, source, err := parseFile(reg, args[0], bank)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d transactions\n", source, len(res.Transactions))
			if err := printTransactions(out, res.Transactions); err != nil {
				return err
			}
			invalid := importer.ValidateAll(res.Transactions)
			indexes := make([]int, 0, len(invalid))
			for i := range invalid {
				indexes = append(indexes, i)
			}
			sort.Ints(indexes)
			for _, i := range indexes {
				for _, e := range invalid[i] {
					fmt.Fprintf(out, "invalid #%d: %s\n", i+1, e)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bank, "bank", "", "bank format for PDFs (trustee, privat); detected when empty")
	cmd.Flags().StringVar(&dateOrder, "qif-date-order", "auto", "QIF date order: auto, dmy or mdy")
	cmd.Flags().StringVar(&currency, "qif-currency", "UAH", "currency assigned to QIF transactions")
	return cmd
}

// parseFile runs a parser without any store or session.
func parseFile(reg *importer.Registry, path, bank string) (*importer.Result, model.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading statement: %w", err)
	}
	kind, err := importer.KindOf(path)
	if err != nil {
		return nil, "", err
	}
	var source model.Source
	if bank != "" {
		if source, err = model.ParseSource(bank); err != nil {
			return nil, "", err
		}
		if !importer.AcceptsKind(source, kind) {
			return nil, "", fmt.Errorf("%w: %s statements are not %s files", importer.ErrUnknownFormat, source, kind)
		}
	} else if s, ok := importer.SourceForKind(kind); ok {
		source = s
	} else {
		text, err := extract.Text(data)
		if err != nil {
			return nil, "", err
		}
		source = detect.Classify(text).Source
	}
	res, err := reg.Parse(source, data)
	if err != nil {
		return nil, "", err
	}
	return res, source, nil
}

type importOptions struct {
	bank     string
	account  string
	mappings []string
	skip     []int
	dryRun   bool
}

func newImportCommand(g *globals) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a bank statement into the ledger",
		Long: `Import parses a statement, previews it with suggested categories and
commits every selected record that was not imported before.

Single-account statements (PDF, CSV) need --account. QIF exports map their
accounts by name; use --map "File name=account" for names that differ.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), g.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			_, err = e.importFile(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.bank, "bank", "", "bank format for PDFs (trustee, privat); detected when empty")
	cmd.Flags().StringVar(&opts.account, "account", "", "destination account name or id")
	cmd.Flags().StringArrayVar(&opts.mappings, "map", nil, "QIF account mapping Name=account (repeatable)")
	cmd.Flags().IntSliceVar(&opts.skip, "skip", nil, "record numbers to leave out, e.g. 2,5")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show the preview without committing")
	return cmd
}

// importFile runs one statement through the pipeline and returns the
// commit summary, or nil on a dry run.
func (e *env) importFile(ctx context.Context, out io.Writer, path string, opts importOptions) (*model.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading statement: %w", err)
	}
	accounts, err := e.store.ListAccounts(ctx, e.cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	bank := opts.bank
	if kind, _ := importer.KindOf(path); bank == "" && kind == importer.KindPDF {
		bank = e.cfg.Import.DefaultBank
	}
	req := pipeline.UploadRequest{
		UserID:   e.cfg.UserID,
		FileName: filepath.Base(path),
		Data:     data,
		Bank:     model.Source(strings.ToLower(bank)),
	}
	if opts.account != "" {
		if req.AccountID, err = resolveAccount(accounts, opts.account); err != nil {
			return nil, err
		}
	}

	sess, err := e.svc.Upload(ctx, req)
	if err != nil {
		return nil, err
	}
	sessionID := sess.ID
	defer func() {
		if err := e.svc.Discard(context.WithoutCancel(ctx), sessionID); err != nil && !errors.Is(err, pipeline.ErrSessionNotFound) {
			e.log.Warn().Err(err).Msg("discarding session")
		}
	}()

	if len(opts.mappings) > 0 {
		m, err := parseMappings(accounts, opts.mappings)
		if err != nil {
			return nil, err
		}
		if sess, err = e.svc.MapAccounts(ctx, sessionID, m); err != nil {
			return nil, err
		}
	}
	deselect := false
	for _, n := range opts.skip {
		if sess, err = e.svc.UpdateRecord(ctx, sessionID, n-1, pipeline.RecordPatch{Selected: &deselect}); err != nil {
			return nil, fmt.Errorf("skipping record %d: %w", n, err)
		}
	}

	cats, err := e.store.ListCategories(ctx, e.cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	if err := printPreview(out, sess, categories.NewIndex(cats)); err != nil {
		return nil, err
	}
	printMappings(out, sess, accounts)
	if opts.dryRun {
		fmt.Fprintln(out, "Dry run: nothing committed.")
		return nil, nil
	}

	sum, err := e.svc.Commit(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	printSummary(out, sum)

	entry := importlog.FromSummary(time.Now(), e.cfg.UserID, req.FileName, sess.Source, sess.ArchiveURI, sum)
	if repo := e.git(); repo != nil && sum.Imported > 0 {
		hash, err := repo.CommitAll(ctx, fmt.Sprintf("import: %s (%d transactions)", req.FileName, sum.Imported))
		if err != nil {
			e.log.Warn().Err(err).Msg("committing ledger to git")
		} else if hash != "" {
			entry.CommitHash = hash
			fmt.Fprintf(out, "Committed %s\n", hash)
		}
	}
	if err := importlog.Append(e.root, entry); err != nil {
		e.log.Warn().Err(err).Msg("writing import log")
	}
	return sum, nil
}

func printMappings(out io.Writer, sess *session.Session, accounts []model.Account) {
	if !sess.Source.MultiAccount() {
		return
	}
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	for _, n := range sess.AccountNames() {
		target := "(unmapped)"
		if id, ok := sess.AccountMappings[n]; ok {
			target = names[id]
		}
		fmt.Fprintf(out, "  account %q -> %s\n", n, target)
	}
}

// resolveAccount accepts an account id or a case-insensitive name.
func resolveAccount(accounts []model.Account, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	for _, a := range accounts {
		if a.ID == ref {
			return a.ID, nil
		}
	}
	for _, a := range accounts {
		if strings.EqualFold(a.Name, ref) {
			return a.ID, nil
		}
	}
	return "", fmt.Errorf("no account %q; create it with `fintrack accounts add`", ref)
}

func parseMappings(accounts []model.Account, pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, ref, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("mapping %q is not Name=account", p)
		}
		id, err := resolveAccount(accounts, ref)
		if err != nil {
			return nil, err
		}
		out[strings.TrimSpace(name)] = id
	}
	return out, nil
}

func newInboxCommand(g *globals) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Import every statement waiting in the inbox directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), g.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()
			return e.runInbox(cmd.Context(), cmd.OutOrStdout(), account)
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "destination account for PDF and CSV statements")
	return cmd
}

// runInbox imports each inbox file in name order. Files that commit
// without failures move to processed/; the rest stay for another try.
func (e *env) runInbox(ctx context.Context, out io.Writer, account string) error {
	dir := config.Resolve(e.root, e.cfg.Import.InboxDir)
	files, err := importer.Scan(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "Inbox %s is empty.\n", dir)
		return nil
	}

	var failed int
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(out, "== %s\n", f.Name)
		opts := importOptions{}
		if f.Kind != importer.KindQIF {
			opts.account = account
		}
		sum, err := e.importFile(ctx, out, f.Path, opts)
		if err != nil {
			failed++
			fmt.Fprintf(out, "error: %v\n", err)
			e.log.Warn().Err(err).Str("file", f.Name).Msg("inbox import failed")
			continue
		}
		if sum.Failed > 0 || sum.Abandoned > 0 {
			failed++
			continue
		}
		if err := importer.MarkProcessed(dir, f.Name); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inbox files were not fully imported", failed, len(files))
	}
	return nil
}
