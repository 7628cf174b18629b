// =============================================================================
// Brand Payout Report - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (brandreport)
//   ├── generateCmd (brandreport generate)
//   ├── validateCmd (brandreport validate)
//   ├── serveCmd    (brandreport serve)
//   └── versionCmd  (brandreport version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the main configuration before any subcommand runs
//   3. Setting up logging
//   4. Cancelling the command context on SIGINT / SIGTERM
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brandpayout/brand-report/internal/classifier"
	"github.com/brandpayout/brand-report/internal/config"
	"github.com/brandpayout/brand-report/internal/converter"
	"github.com/brandpayout/brand-report/internal/logger"
	"github.com/brandpayout/brand-report/internal/types"
	"github.com/brandpayout/brand-report/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// mainConfig and log are initialized before any subcommand runs.
var (
	mainConfig *config.MainConfig
	log        zerolog.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "brandreport",
	Short: "Brand Payout Report - Per-brand sales, commission and payout workbooks",

	Long: `Brand Payout Report turns a sales ledger export and a brand catalog into a
payout workbook with one sheet per brand.

Every sales line that survives the document type and status filters is
assigned to a catalog brand by a language model. Lines the model cannot
place are reported under OTROS. Each brand sheet lists its sales with
commission and IGV, followed by the total sales, rent, commission and the
amount to deposit.

Example Usage:
  brandreport generate --ventas ventas.xlsx --marcas marcas.xlsx
  brandreport validate --ventas ventas.xlsx --marcas marcas.xlsx
  brandreport serve --addr :8080`,

	SilenceUsage: true,

	// PersistentPreRunE loads configuration and logging for every subcommand.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		mainConfig = cfg

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		log = logger.New(level)
		cmd.SetContext(logger.WithContext(cmd.Context(), log))

		log.Debug().Str("config", cfgFile).Msg("configuration loaded")
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print the help message.
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the global flags.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file; defaults apply when it does not exist",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging (every classified row is logged)",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// newClassifier builds the production classifier, or the offline lookup
// table when offline is set.
func newClassifier(ctx context.Context, offline bool) (classifier.Classifier, error) {
	if offline {
		log.Warn().Msg("offline classifier in use: every row is reported under " + types.UnknownBrand)
		return &classifier.StaticClassifier{}, nil
	}

	apiKey, err := mainConfig.APIKey()
	if err != nil {
		return nil, err
	}

	c, err := classifier.NewGeminiClassifier(ctx, apiKey, mainConfig.Classifier.Model)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("model", c.Model()).Msg("classifier ready")
	return c, nil
}

// newConverter builds a converter around c.
func newConverter(c classifier.Classifier) (*converter.Converter, error) {
	return converter.New(mainConfig, c, log)
}

// inputFiles checks that both input files exist and returns them as
// converter inputs read from disk.
func inputFiles(salesPath, catalogPath string) (converter.Input, converter.Input, error) {
	if !utils.FileExists(salesPath) {
		return converter.Input{}, converter.Input{}, fmt.Errorf("sales ledger not found: %s", salesPath)
	}
	if !utils.FileExists(catalogPath) {
		return converter.Input{}, converter.Input{}, fmt.Errorf("brand catalog not found: %s", catalogPath)
	}

	return converter.Input{Path: salesPath}, converter.Input{Path: catalogPath}, nil
}
