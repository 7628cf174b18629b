// =============================================================================
// Brand Payout Report - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the CLI, including:
//   - Directory management
//   - Report and object naming
//   - Writing finished reports to disk
//   - Error log and run summary generation
//
// OUTPUT STRATEGY:
//   - Reports are written to a temporary file in the output directory and
//     renamed into place, so a reader never sees a half-written workbook
//   - Validation problems are written to an error log next to the reports
//   - Every successful run leaves a plain-text summary next to its report
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brandpayout/brand-report/internal/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the CLI.
type FileManager struct {
	// OutputDir is the directory where reports and logs are placed.
	OutputDir string

	// UseTimestampSubdirs places output under date-based subdirectories.
	// Example: output/2024/01/15/reporte_marcas.xlsx
	UseTimestampSubdirs bool
}

// NewFileManager creates a new FileManager for the output directory.
func NewFileManager(outputDir string) *FileManager {
	return &FileManager{OutputDir: outputDir}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the output directory if it doesn't exist.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.outputDir(time.Now()), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// outputDir returns the directory output written at now goes to.
func (fm *FileManager) outputDir(now time.Time) string {
	if !fm.UseTimestampSubdirs {
		return fm.OutputDir
	}
	return filepath.Join(
		fm.OutputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()),
	)
}

// =============================================================================
// REPORT OUTPUT
// =============================================================================

// WriteReport writes the report bytes under fileName in the output directory.
//
// RETURNS:
//   - The path of the written report.
//   - An error if writing fails. No partial file is left behind.
func (fm *FileManager) WriteReport(fileName string, data []byte) (string, error) {
	dir := fm.outputDir(time.Now())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(fileName))

	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}

	return path, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name from a format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//   - params: Extra placeholder values. A "uuid" entry replaces the random
//             UUID (the CLI passes the run ID).
//
// RETURNS:
//   - The generated file name, always ending in .xlsx.
//
// EXAMPLE:
//   format: "reporte_{date}_{uuid}.xlsx"
//   output: "reporte_20240115_a1b2c3d4-e5f6-7890-abcd-ef1234567890.xlsx"
func GenerateOutputFileName(format string, params map[string]string) string {
	result := ExpandName(format, time.Now(), params)

	// Ensure .xlsx extension.
	if !strings.HasSuffix(strings.ToLower(result), ".xlsx") {
		result += ".xlsx"
	}

	return result
}

// ExpandName replaces the naming placeholders in format. It is also used for
// published object names.
func ExpandName(format string, now time.Time, params map[string]string) string {
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}

	// Add custom params.
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	FieldName    string
	FieldValue   string
}

// ErrorLogEntries converts validation problems into log entries.
func ErrorLogEntries(errs validation.Errors) []ErrorLogEntry {
	now := time.Now()
	entries := make([]ErrorLogEntry, 0, len(errs))
	for _, e := range errs {
		entries = append(entries, ErrorLogEntry{
			Timestamp:    now,
			FileName:     e.Source,
			ErrorType:    "validation",
			ErrorMessage: e.Message,
			RowNumber:    e.Row,
			FieldName:    e.Column,
			FieldValue:   e.Value,
		})
	}
	return entries
}

// WriteErrorLog writes error entries to a log file in the output directory.
//
// RETURNS:
//   - The path to the error log file ("" when there is nothing to write).
//   - An error if writing fails.
func (fm *FileManager) WriteErrorLog(entries []ErrorLogEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	now := time.Now()
	dir := fm.outputDir(now)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	logPath := filepath.Join(dir, fmt.Sprintf("error_log_%s.txt", now.Format("20060102_150405")))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Brand Payout Report - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		now.Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  File:           %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number:     %d\n", entry.RowNumber)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Column:         %s\n", entry.FieldName)
		}
		if entry.FieldValue != "" {
			fmt.Fprintf(writer, "  Value:          %s\n", entry.FieldValue)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about one report generation.
type RunSummary struct {
	RunID              string
	StartTime          time.Time
	EndTime            time.Time
	SalesFile          string
	CatalogFile        string
	ReportFile         string
	PublishedTo        string
	RowsRead           int
	RowsKept           int
	Unclassified       int
	ClassifierFailures int
	Brands             []BrandLine
}

// BrandLine is one brand's figures in the run summary.
type BrandLine struct {
	Brand     string
	SheetName string
	Records   int
	NetPayout decimal.Decimal
}

// WriteSummaryLog writes a run summary to a text file in the output directory.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func (fm *FileManager) WriteSummaryLog(summary RunSummary) (string, error) {
	dir := fm.outputDir(summary.EndTime)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	summaryPath := filepath.Join(dir, fmt.Sprintf("run_summary_%s.txt", summary.EndTime.Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Brand Payout Report - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Sales Ledger:   %s\n"+
		"  Brand Catalog:  %s\n"+
		"  Report:         %s\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.SalesFile,
		summary.CatalogFile,
		summary.ReportFile)
	if summary.PublishedTo != "" {
		fmt.Fprintf(writer, "  Published To:   %s\n", summary.PublishedTo)
	}

	fmt.Fprintf(writer, "\nStatistics:\n"+
		"  Rows Read:           %d\n"+
		"  Rows Kept:           %d\n"+
		"  Unclassified Rows:   %d\n"+
		"  Classifier Failures: %d\n"+
		"  Brands:              %d\n\n",
		summary.RowsRead,
		summary.RowsKept,
		summary.Unclassified,
		summary.ClassifierFailures,
		len(summary.Brands))

	if len(summary.Brands) > 0 {
		writer.WriteString("Brands:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, b := range summary.Brands {
			fmt.Fprintf(writer, "  Brand:      %s\n", b.Brand)
			if b.SheetName != b.Brand {
				fmt.Fprintf(writer, "  Sheet:      %s\n", b.SheetName)
			}
			fmt.Fprintf(writer, "  Rows:       %d\n", b.Records)
			fmt.Fprintf(writer, "  Net Payout: %s\n\n", b.NetPayout.StringFixed(2))
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
