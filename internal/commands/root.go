package commands

import (
	"github.com/spf13/cobra"

	"github.com/cryptotax-uk/cryptotax/internal/buildinfo"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	dir      string
	config   string
	envFile  string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:     "cryptotax",
		Short:   "UK capital gains for crypto assets under HMRC share pooling rules",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.dir, "dir", "C", ".", "project directory")
	pf.StringVar(&flags.config, "config", "", "config file (default <dir>/cryptotax.yaml)")
	pf.StringVar(&flags.envFile, "env-file", "", "dotenv file (default <dir>/.env)")
	pf.StringVar(&flags.logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newComputeCommand(flags))
	rootCmd.AddCommand(newConfigCommand(flags))
	rootCmd.AddCommand(newRunsCommand(flags))

	return rootCmd
}
