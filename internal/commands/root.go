package commands

import (
	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/buildinfo"
	"github.com/fintrack-dev/fintrack/internal/config"
)

// globals holds persistent flag values shared by subcommands.
type globals struct {
	configPath string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:     "fintrack",
		Short:   "Import bank statements into a personal ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", config.FileName, "path to "+config.FileName)

	rootCmd.AddCommand(
		newInitCommand(),
		newDetectCommand(),
		newParseCommand(),
		newImportCommand(g),
		newInboxCommand(g),
		newAccountsCommand(g),
		newCategoriesCommand(g),
		newHistoryCommand(g),
		newServeCommand(g),
	)
	return rootCmd
}
