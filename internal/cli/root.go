// Package cli provides the command-line interface for askdb.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/askdb-labs/askdb/internal/cli/commands"
	"github.com/askdb-labs/askdb/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "askdb",
		Short: "askdb - ask questions of your trip data in plain English",
		Long: `askdb answers natural-language questions about the NYC taxi trip dataset.

Questions are routed to a query intent, missing details are clarified, and
the resulting SQL is shown for approval before anything runs. Generated SQL
passes a structural safety gate; nothing else reaches the database.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))

			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = commands.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./askdb.yaml)")
	rootCmd.PersistentFlags().String("database", "", "database adapter (duckdb|sqlite|postgres)")
	rootCmd.PersistentFlags().String("db-path", "", "database file for embedded engines (:memory: for in-memory)")
	rootCmd.PersistentFlags().String("dsn", "", "postgres connection string")
	rootCmd.PersistentFlags().Int("row-cap", 0, "maximum rows a query may return")
	rootCmd.PersistentFlags().Duration("timeout", 0, "query execution time limit")
	rootCmd.PersistentFlags().String("classifier", "", "intent classifier (rules|gemini)")
	rootCmd.PersistentFlags().String("seeds-dir", "", "directory containing seed CSV files")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("database", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"duckdb", "sqlite", "postgres"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewAskCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	rootCmd.SetContext(context.Background())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
