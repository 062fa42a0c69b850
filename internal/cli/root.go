// Package cli provides the queryflow command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/queryflow/internal/config"
	"github.com/leapstack-labs/queryflow/pkg/driver"
	"github.com/leapstack-labs/queryflow/pkg/writer"

	_ "github.com/leapstack-labs/queryflow/pkg/drivers/duckdb"
	_ "github.com/leapstack-labs/queryflow/pkg/drivers/postgres"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:     "queryflow",
		Short:   "Queryflow - Query Processing Pipeline",
		Version: Version,
		Long: `Queryflow turns an abstract, database-agnostic query description into a
native SQL query, executes it through a pluggable driver, and streams the
post-processed result set to stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./queryflow.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "", "Output format (csv|json|table)")
	rootCmd.PersistentFlags().String("metadata-path", "", "Path to the metadata store")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return writer.List(), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newRunCommand(&cfgFile))
	rootCmd.AddCommand(newDriversCommand())
	rootCmd.AddCommand(newFormatsCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// newLogger builds the CLI logger; debug records go to stderr only when
// verbose is set.
func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newDriversCommand lists the registered database drivers.
func newDriversCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List registered database drivers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range driver.List() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// newFormatsCommand lists the registered output formats.
func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List registered output formats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range writer.List() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// loadConfig loads configuration for a command invocation.
func loadConfig(cmd *cobra.Command, cfgFile string) (*config.Config, error) {
	return config.Load(cfgFile, cmd.Root().PersistentFlags())
}
