// =============================================================================
// Brand Payout Report - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, which is the main command for
// producing a payout report. It orchestrates the whole run from the command
// line.
//
// COMMAND USAGE:
//   brandreport generate --ventas FILE --marcas FILE [flags]
//
// FLAGS:
//   --ventas   : Sales ledger export (.xlsx or .csv)
//   --marcas   : Brand catalog (.xlsx or .csv)
//   --out      : Output directory (overrides output_dir)
//   --dry-run  : Classify offline (every row becomes OTROS) and write nothing
//   --upload   : Also publish the report to the configured GCS bucket
//
// PROCESSING PIPELINE:
//   1. Build the classifier (Gemini, or the offline table for --dry-run)
//   2. Open the input files
//   3. Run the report generation
//   4. Write the report, or the error log when the inputs are invalid
//   5. Optionally publish the report
//   6. Write the run summary
//
// =============================================================================

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brandpayout/brand-report/internal/storage"
	"github.com/brandpayout/brand-report/internal/validation"
	"github.com/brandpayout/brand-report/internal/xlsxwriter"
	"github.com/brandpayout/brand-report/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// salesFile and catalogFile are the two input spreadsheets.
var (
	salesFile   string
	catalogFile string
)

// outputDir overrides the configured output directory.
var outputDir string

// dryRun classifies offline and writes no output files.
var dryRun bool

// upload publishes the report to Google Cloud Storage.
var upload bool

// =============================================================================
// GENERATE COMMAND DEFINITION
// =============================================================================

// generateCmd represents the 'generate' command.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the brand payout report",
	Long: `The generate command reads the sales ledger and the brand catalog, assigns
every kept sales line to a brand and writes the payout workbook.

On success:
  - The workbook is written to the output directory
  - A run summary is written next to it
  - With --upload, the workbook is also published to GCS

On invalid input:
  - No workbook is written
  - Every problem found is printed and written to an error log`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the generate command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&salesFile, "ventas", "", "Sales ledger export (.xlsx or .csv)")
	generateCmd.Flags().StringVar(&catalogFile, "marcas", "", "Brand catalog (.xlsx or .csv)")
	generateCmd.Flags().StringVar(&outputDir, "out", "", "Output directory (overrides output_dir in the config)")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Classify offline and write no output files")
	generateCmd.Flags().BoolVar(&upload, "upload", false, "Publish the report to the configured GCS bucket")

	generateCmd.MarkFlagRequired("ventas")
	generateCmd.MarkFlagRequired("marcas")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runGenerate orchestrates one report generation from the command line.
func runGenerate(cmd *cobra.Command) error {
	ctx := cmd.Context()
	startTime := time.Now()

	if upload && mainConfig.Storage.Bucket == "" {
		return errors.New("--upload needs storage.bucket in the configuration")
	}
	if upload && dryRun {
		return errors.New("--upload cannot be combined with --dry-run")
	}

	fm := utils.NewFileManager(mainConfig.OutputDir)
	fm.UseTimestampSubdirs = mainConfig.OutputDateSubdirs
	if outputDir != "" {
		fm.OutputDir = outputDir
	}

	// Fail before any classification if the report could not be saved.
	if !dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 1: BUILD THE CLASSIFIER
	// =========================================================================

	c, err := newClassifier(ctx, dryRun)
	if err != nil {
		return err
	}
	conv, err := newConverter(c)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2-3: OPEN INPUTS AND GENERATE
	// =========================================================================

	sales, catalog, err := inputFiles(salesFile, catalogFile)
	if err != nil {
		return err
	}

	fmt.Println("=== Brand Payout Report ===")
	fmt.Printf("Sales ledger:  %s\n", salesFile)
	fmt.Printf("Brand catalog: %s\n", catalogFile)
	fmt.Println("Classifying sales rows...")

	result, err := conv.Run(ctx, sales, catalog)
	if err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) && !dryRun {
			if logPath, logErr := fm.WriteErrorLog(utils.ErrorLogEntries(verrs)); logErr != nil {
				log.Error().Err(logErr).Msg("failed to write error log")
			} else {
				fmt.Printf("Errors have been logged to %s\n", logPath)
			}
		}
		return err
	}

	// =========================================================================
	// STEP 4: PRINT AND WRITE THE REPORT
	// =========================================================================

	fmt.Println("\n=== Report ===")
	for _, s := range result.Summaries {
		fmt.Printf("  %-31s %4d row(s)  payout %s\n", s.SheetName, len(s.Records), s.NetPayout.StringFixed(2))
	}
	fmt.Printf("\nRows read:           %d\n", result.Stats.RowsRead)
	fmt.Printf("Rows kept:           %d\n", result.Stats.RowsKept)
	fmt.Printf("Unclassified rows:   %d\n", result.Stats.Unclassified)
	fmt.Printf("Classifier failures: %d\n", result.Stats.ClassifierFailures)
	fmt.Printf("Time elapsed:        %s\n", result.Stats.ProcessingTime)

	if dryRun {
		fmt.Println("\nDry run: no files written.")
		return nil
	}

	params := map[string]string{"uuid": result.RunID}
	reportPath, err := fm.WriteReport(utils.GenerateOutputFileName(mainConfig.OutputFileFormat, params), result.Report)
	if err != nil {
		return err
	}
	fmt.Printf("\nReport written to %s\n", reportPath)

	// =========================================================================
	// STEP 5: PUBLISH
	// =========================================================================

	var publishedTo string
	if upload {
		publisher, err := storage.NewGCSPublisher(ctx, mainConfig.Storage.Bucket)
		if err != nil {
			return err
		}
		defer publisher.Close()

		fmt.Printf("Publishing to bucket %s...\n", publisher.Bucket())
		objectName := utils.ExpandName(mainConfig.Storage.ObjectFormat, time.Now(), params)
		publishedTo, err = publish(ctx, publisher, result.Report, objectName)
		if err != nil {
			return err
		}
		fmt.Printf("Report published to %s\n", publishedTo)
	}

	// =========================================================================
	// STEP 6: RUN SUMMARY
	// =========================================================================

	summary := utils.RunSummary{
		RunID:              result.RunID,
		StartTime:          startTime,
		EndTime:            time.Now(),
		SalesFile:          salesFile,
		CatalogFile:        catalogFile,
		ReportFile:         reportPath,
		PublishedTo:        publishedTo,
		RowsRead:           result.Stats.RowsRead,
		RowsKept:           result.Stats.RowsKept,
		Unclassified:       result.Stats.Unclassified,
		ClassifierFailures: result.Stats.ClassifierFailures,
	}
	for _, s := range result.Summaries {
		summary.Brands = append(summary.Brands, utils.BrandLine{
			Brand:     s.Brand,
			SheetName: s.SheetName,
			Records:   len(s.Records),
			NetPayout: s.NetPayout,
		})
	}

	if _, err := fm.WriteSummaryLog(summary); err != nil {
		log.Error().Err(err).Msg("failed to write run summary")
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// publish uploads the report through p under objectName.
func publish(ctx context.Context, p storage.Publisher, report []byte, objectName string) (string, error) {
	uri, err := p.Publish(ctx, objectName, xlsxwriter.ContentType, bytes.NewReader(report))
	if err != nil {
		return "", fmt.Errorf("failed to publish report: %w", err)
	}

	log.Info().Str("uri", uri).Msg("report published")
	return uri, nil
}
