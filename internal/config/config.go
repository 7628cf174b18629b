// =============================================================================
// Brand Payout Report - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the application
// configuration: where reports are written, how the classifier is reached,
// how the HTTP upload page listens, where finished reports are published and
// which sales rows survive filtering.
//
// CONFIGURATION SOURCES:
//   1. Main Config (config.yaml): optional, every setting has a default
//   2. .env file: optional, loaded into the process environment
//   3. Environment: the classifier API credential (GEMINI_API_KEY by default)
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultSalesSkipRows is the number of report-header rows at the top of
	// every sales ledger export.
	DefaultSalesSkipRows = 2

	// DefaultReportFileName is the file name offered to the end user.
	DefaultReportFileName = "reporte_marcas.xlsx"

	// DefaultModel is the text-generation model used for brand matching.
	DefaultModel = "gemini-2.5-flash"

	// DefaultAPIKeyEnv is the environment variable holding the credential.
	DefaultAPIKeyEnv = "GEMINI_API_KEY"

	// DefaultMaxUploadMB caps the size of an upload request.
	DefaultMaxUploadMB = 32
)

// ErrMissingAPIKey is returned when the classifier credential is not set.
var ErrMissingAPIKey = errors.New("classifier API key is not set")

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// SalesSkipRows is the number of leading rows skipped in the sales
	// ledger before the header row.
	// Default: 2
	SalesSkipRows int `yaml:"sales_skip_rows"`

	// Filters decide which sales rows are kept. A row survives only if
	// every rule accepts it.
	Filters []FilterRule `yaml:"filters"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is where `generate` writes finished reports.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// OutputFileFormat defines the report file name.
	// Placeholders:
	//   {uuid}      - The run ID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	// Default: "reporte_marcas.xlsx"
	OutputFileFormat string `yaml:"output_file_format"`

	// OutputDateSubdirs places reports and logs under YYYY/MM/DD
	// subdirectories of OutputDir.
	// Default: false
	OutputDateSubdirs bool `yaml:"output_date_subdirs"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// Classifier configures the brand classifier.
	Classifier ClassifierConfig `yaml:"classifier"`

	// Server configures the HTTP upload page.
	Server ServerConfig `yaml:"server"`

	// Storage configures report publishing.
	Storage StorageConfig `yaml:"storage"`
}

// ClassifierConfig holds the text-generation settings.
type ClassifierConfig struct {
	// Model is the model identifier sent with every request.
	// Default: "gemini-2.5-flash"
	Model string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the credential.
	// Default: "GEMINI_API_KEY"
	APIKeyEnv string `yaml:"api_key_env"`
}

// ServerConfig holds the HTTP shell settings.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `yaml:"addr"`

	// MaxUploadMB caps the multipart form size.
	// Default: 32
	MaxUploadMB int64 `yaml:"max_upload_mb"`
}

// StorageConfig holds the report publishing settings.
type StorageConfig struct {
	// Bucket is the GCS bucket. Empty disables publishing.
	Bucket string `yaml:"bucket"`

	// ObjectFormat is the object name, with the same placeholders as
	// OutputFileFormat.
	// Default: "reports/{timestamp}_{uuid}_reporte_marcas.xlsx"
	ObjectFormat string `yaml:"object_format"`
}

// =============================================================================
// FILTER RULE STRUCTURE
// =============================================================================

// FilterRule keeps a sales row only when its Field value is one of Allowed.
type FilterRule struct {
	// Field is the sales ledger column header.
	Field string `yaml:"field"`

	// Allowed is the set of accepted values (exact match).
	Allowed []string `yaml:"allowed"`
}

// DefaultFilters returns the document type and status rules applied when
// the configuration does not define its own.
func DefaultFilters() []FilterRule {
	return []FilterRule{
		{Field: "Tipo de comprobante", Allowed: []string{"Boleta", "Factura"}},
		{Field: "Estado del documento", Allowed: []string{"Emitido"}},
		{Field: "Estado", Allowed: []string{"Aceptado"}},
	}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	config := &MainConfig{SalesSkipRows: DefaultSalesSkipRows}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// A missing file is not an error: the defaults are returned instead, so the
// tool works with nothing but the API credential in the environment.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML document, applies defaults and validates the result.
func Parse(data []byte) (*MainConfig, error) {
	// Pre-set so an explicit `sales_skip_rows: 0` survives defaulting.
	config := MainConfig{SalesSkipRows: DefaultSalesSkipRows}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if len(config.Filters) == 0 {
		config.Filters = DefaultFilters()
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputFileFormat == "" {
		config.OutputFileFormat = DefaultReportFileName
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.Classifier.Model == "" {
		config.Classifier.Model = DefaultModel
	}
	if config.Classifier.APIKeyEnv == "" {
		config.Classifier.APIKeyEnv = DefaultAPIKeyEnv
	}
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = DefaultMaxUploadMB
	}
	if config.Storage.ObjectFormat == "" {
		config.Storage.ObjectFormat = "reports/{timestamp}_{uuid}_" + DefaultReportFileName
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if config.SalesSkipRows < 0 {
		return fmt.Errorf("sales_skip_rows must not be negative, got %d", config.SalesSkipRows)
	}
	if config.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server.max_upload_mb must not be negative, got %d", config.Server.MaxUploadMB)
	}
	if !strings.HasSuffix(strings.ToLower(config.OutputFileFormat), ".xlsx") {
		return fmt.Errorf("output_file_format must end in .xlsx, got %q", config.OutputFileFormat)
	}

	for i, rule := range config.Filters {
		if strings.TrimSpace(rule.Field) == "" {
			return fmt.Errorf("filters[%d]: field is required", i)
		}
		if len(rule.Allowed) == 0 {
			return fmt.Errorf("filters[%d] (%s): allowed must list at least one value", i, rule.Field)
		}
	}

	return nil
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// APIKey loads .env (if present) and returns the classifier credential from
// the environment variable named in the configuration.
func (c *MainConfig) APIKey() (string, error) {
	// A missing .env is normal in production; the variable may already be set.
	_ = godotenv.Load()

	key := strings.TrimSpace(os.Getenv(c.Classifier.APIKeyEnv))
	if key == "" {
		return "", fmt.Errorf("%w: set %s in the environment or .env", ErrMissingAPIKey, c.Classifier.APIKeyEnv)
	}
	return key, nil
}
