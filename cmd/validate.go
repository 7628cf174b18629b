// =============================================================================
// Brand Payout Report - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the configuration
// and both input files without classifying anything or writing output.
//
// COMMAND USAGE:
//   brandreport validate --ventas FILE --marcas FILE
//
// CHECKS:
//   - The configuration file parses and its filter rules name ledger columns
//   - Both files open and carry their required columns
//   - Every Total, COMISION and ALQUILER cell is a number
//   - Catalog brands are unique
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/brandpayout/brand-report/internal/classifier"
	"github.com/spf13/cobra"
)

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and input files without generating a report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

// init registers the validate command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&salesFile, "ventas", "", "Sales ledger export (.xlsx or .csv)")
	validateCmd.Flags().StringVar(&catalogFile, "marcas", "", "Brand catalog (.xlsx or .csv)")

	validateCmd.MarkFlagRequired("ventas")
	validateCmd.MarkFlagRequired("marcas")
}

// runValidate loads both inputs and reports what a generation would see.
func runValidate() error {
	// Validation never classifies, so no credential is needed.
	conv, err := newConverter(&classifier.StaticClassifier{})
	if err != nil {
		return err
	}

	sales, catalog, err := inputFiles(salesFile, catalogFile)
	if err != nil {
		return err
	}

	stats, err := conv.Validate(sales, catalog)
	if err != nil {
		return err
	}

	fmt.Println("=== Validation Passed ===")
	fmt.Printf("Sales rows:     %d\n", stats.RowsRead)
	fmt.Printf("Rows kept:      %d\n", stats.RowsKept)
	fmt.Printf("Catalog brands: %d\n", stats.CatalogBrands)

	if stats.RowsKept == 0 {
		fmt.Println("\nWarning: no sales row passes the filters; generate would produce no report.")
	}

	return nil
}
