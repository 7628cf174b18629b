// =============================================================================
// Brand Payout Report - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which runs the upload page. Users
// upload both spreadsheets in the browser and download the finished report.
//
// COMMAND USAGE:
//   brandreport serve [--addr :8080]
//
// ENDPOINTS:
//   GET  /         - Upload form
//   POST /reports  - Multipart fields "ventas" and "marcas"; returns the xlsx
//   GET  /healthz  - Liveness probe
//
// =============================================================================

package cmd

import (
	"github.com/brandpayout/brand-report/internal/server"
	"github.com/spf13/cobra"
)

// addr overrides the configured listen address.
var addr string

// serveCmd represents the 'serve' command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report upload page over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// init registers the serve command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr in the config)")
}

// runServe starts the HTTP server and blocks until the command context is
// cancelled.
func runServe(cmd *cobra.Command) error {
	c, err := newClassifier(cmd.Context(), false)
	if err != nil {
		return err
	}
	conv, err := newConverter(c)
	if err != nil {
		return err
	}

	cfg := mainConfig.Server
	if addr != "" {
		cfg.Addr = addr
	}

	// Each upload gets its own run; the file name is fixed for downloads.
	return server.New(conv, cfg, "", log).Run(cmd.Context())
}
