package cmd

import (
	"fmt"
	"os"

	"adforge/internal/config"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "adforge",
	Short: "Adforge generates and ranks marketing content from a company URL",
	Long: `Adforge turns a company URL and value proposition into ranked ad
concepts with generated media. A run extracts the brand context, generates
buyer personas, produces idea batches for the selected persona, scores every
idea, and renders image and video assets for the top-ranked ones.

All intermediate artifacts are written to a per-run output directory and the
local database, so every run is inspectable and replayable.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.adforge.yaml, then $HOME)")
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
