package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the ingestly application
var rootCmd = &cobra.Command{
	Use:   "ingestly",
	Short: "Pulls mail and news into a hosted store",
	Long: `ingestly runs small batch ingestion pipelines, usually from cron.

  emails  stores every message from one sender found in a Gmail mailbox
  news    stores a daily digest of national headlines with a generated post

Settings come from the environment, an optional .env file and an optional
TOML file. Each run prints one summary line and exits non-zero on failure.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// rootFlags are shared by every pipeline command.
type rootFlags struct {
	configFile string
	envFile    string
	logLevel   string
	dryRun     bool
}

var flags rootFlags

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "ingestly version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "TOML file with non-secret settings")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file read before the environment")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "store into memory and print the rows instead of writing to the sink")

	rootCmd.AddCommand(newEmailsCmd())
	rootCmd.AddCommand(newNewsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
