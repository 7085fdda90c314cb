package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	experimentFile string
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "epo",
	Short: "End-to-end predict-and-optimize dataset toolchain",
	Long: `EPO Unified CLI

Builds aligned feature/cost tensor bundles from kline panels and
solves the market-neutral decision model against them.

Usage:
  go run ./cmd/epo [command]

Examples:
  go run ./cmd/epo build
  go run ./cmd/epo inspect data/crypto_data.epob
  go run ./cmd/epo solve --t 120 --cap 0.5
  go run ./cmd/epo precompute --save-db
  go run ./cmd/epo scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&experimentFile, "experiment", "", "experiment YAML (default: EXPERIMENT_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
