package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/importlog"
	"github.com/fintrack-dev/fintrack/internal/model"
)

func newAccountsCommand(g *globals) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage destination accounts",
	}
	accountsCmd.AddCommand(newAccountsListCommand(g), newAccountsAddCommand(g))
	return accountsCmd
}

func newAccountsListCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), g.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			accounts, err := e.store.ListAccounts(cmd.Context(), e.cfg.UserID)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tCURRENCY")
			for _, a := range accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Name, a.Currency)
			}
			return tw.Flush()
		},
	}
}

func newAccountsAddCommand(g *globals) *cobra.Command {
	var currency string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			currency = strings.ToUpper(strings.TrimSpace(currency))
			if name == "" {
				return fmt.Errorf("account name must not be empty")
			}
			if len(currency) != 3 {
				return fmt.Errorf("currency %q is not a 3-letter code", currency)
			}

			e, err := openEnv(cmd.Context(), g.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			existing, err := e.store.ListAccounts(cmd.Context(), e.cfg.UserID)
			if err != nil {
				return err
			}
			for _, a := range existing {
				if strings.EqualFold(a.Name, name) {
					return fmt.Errorf("account %q already exists (%s)", a.Name, a.ID)
				}
			}

			a := &model.Account{UserID: e.cfg.UserID, Name: name, Currency: currency}
			if err := e.store.CreateAccount(cmd.Context(), a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %s (%s)\n", a.Name, a.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "UAH", "account currency")
	return cmd
}

func newCategoriesCommand(g *globals) *cobra.Command {
	categoriesCmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect categories",
	}
	categoriesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories by type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), g.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			cats, err := e.store.ListCategories(cmd.Context(), e.cfg.UserID)
			if err != nil {
				return err
			}
			idx := categories.NewIndex(cats)
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "TYPE\tNAME\tID")
			for _, t := range []model.TransactionType{model.TypeIncome, model.TypeExpense} {
				for _, c := range idx.ByType(t) {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", t, c.Name, c.ID)
				}
			}
			for _, c := range idx.All() {
				if c.IsSystem() {
					fmt.Fprintf(tw, "%s\t%s (system)\t%s\n", c.Type, c.Name, c.ID)
				}
			}
			return tw.Flush()
		},
	})
	return categoriesCmd
}

func newHistoryCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show committed imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), g.configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			entries, err := importlog.Read(e.root)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "WHEN\tFILE\tSOURCE\tIMPORTED\tDUPLICATES\tFAILED\tCOMMIT")
			for _, en := range entries {
				if en.UserID != e.cfg.UserID {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					en.Timestamp.Local().Format("2006-01-02 15:04"), en.FileName, en.Source,
					en.Imported, en.Duplicates, en.Failed, en.CommitHash)
			}
			return tw.Flush()
		},
	}
}
