package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/fingerprint"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/session"
)

const dateFormat = "2006-01-02"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// printTransactions lists parsed records numbered from 1.
func printTransactions(w io.Writer, txns []model.ParsedTransaction) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tDATE\tTYPE\tAMOUNT\tACCOUNT\tDESCRIPTION\tHASH")
	for i, t := range txns {
		account := t.Account
		if t.IsTransfer {
			account += " -> " + t.TransferAccount
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s %s\t%s\t%s\t%s\n",
			i+1, t.Date.Format(dateFormat), t.Type, t.Amount.StringFixed(2), t.Currency,
			account, t.Description, fingerprint.Short(t.Hash))
	}
	return tw.Flush()
}

// printPreview lists session records with their suggested categories.
func printPreview(w io.Writer, sess *session.Session, cats *categories.Index) error {
	fmt.Fprintf(w, "%s statement %s: %d records", sess.Source, sess.FileName, len(sess.Records))
	if sess.DetectMethod != "" {
		fmt.Fprintf(w, " (detected by %s)", sess.DetectMethod)
	}
	fmt.Fprintln(w)

	tw := newTable(w)
	fmt.Fprintln(tw, "#\tDATE\tTYPE\tAMOUNT\tDESCRIPTION\tCATEGORY\tNOTE")
	for _, r := range sess.Records {
		t := r.Transaction
		category := "-"
		if c, ok := cats.Get(r.CategoryID); ok {
			category = c.Name
			if r.AutoCategorized {
				category += "?"
			}
		}
		note := ""
		switch {
		case !r.Selected:
			note = "skipped"
		case r.AlreadyImported:
			note = "already imported"
		case t.IsTransfer:
			note = "transfer to " + t.TransferAccount
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s %s\t%s\t%s\t%s\n",
			r.Index+1, t.Date.Format(dateFormat), t.Type, t.Amount.StringFixed(2), t.Currency,
			t.Description, category, note)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, sum *model.Summary) {
	fmt.Fprintf(w, "Imported %d, duplicates %d, failed %d", sum.Imported, sum.Duplicates, sum.Failed)
	if sum.Abandoned > 0 {
		fmt.Fprintf(w, ", abandoned %d", sum.Abandoned)
	}
	fmt.Fprintln(w)
	for _, d := range sum.DuplicateDetails {
		fmt.Fprintf(w, "  duplicate #%d %s %s %s %q [%s] %s\n",
			d.Index+1, d.Date.Format(dateFormat), d.Amount.StringFixed(2), d.Currency, d.Description, d.HashPrefix, d.Reason)
	}
	for _, f := range sum.Failures {
		fmt.Fprintf(w, "  failed #%d %q: %s\n", f.Index+1, f.Description, f.Error)
	}
	for _, m := range sum.Totals {
		fmt.Fprintf(w, "  net %s %s\n", m.Amount.StringFixed(2), m.Currency)
	}
	if sum.NetTotal != nil {
		fmt.Fprintf(w, "  net total %s %s\n", sum.NetTotal.Amount.StringFixed(2), sum.NetTotal.Currency)
	}
}
