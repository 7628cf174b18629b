// =============================================================================
// Brand Payout Report - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Brand Payout Report CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   brandreport generate    - Generate the payout workbook from two spreadsheets
//   brandreport validate    - Check the configuration and input files
//   brandreport serve       - Serve the upload page over HTTP
//   brandreport version     - Display the application version
//
// ARCHITECTURE:
//   This application follows a modular design where:
//   - cmd/           : Contains all CLI command definitions (Cobra)
//   - internal/      : Contains core business logic (not for external import)
//   - pkg/           : Contains shared utilities
//
// =============================================================================

package main

import (
	"github.com/brandpayout/brand-report/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
