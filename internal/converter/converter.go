// =============================================================================
// Brand Payout Report - Aggregation Pipeline
// =============================================================================
//
// This module contains the core report logic. It orchestrates one report
// generation, from the two uploaded spreadsheets to the finished workbook.
//
// PIPELINE:
//   1. Load the sales ledger (skipping its report header) and the catalog
//   2. Convert both tables to typed records (fatal on missing columns)
//   3. Filter sales rows by document type and status
//   4. Classify every surviving row into a brand, one call per row, in order
//   5. Left-join the brand against the catalog (unmatched -> rate 0, rent 0)
//   6. Compute commission = rate * total and tax = total * 0.18
//   7. Summarize per brand and write the workbook
//
// CONCURRENCY:
//   A run is strictly sequential: step 4 blocks once per row. Separate runs
//   share nothing and may execute concurrently (the HTTP shell does this).
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/brandpayout/brand-report/internal/classifier"
	"github.com/brandpayout/brand-report/internal/config"
	"github.com/brandpayout/brand-report/internal/types"
	"github.com/brandpayout/brand-report/internal/validation"
	"github.com/brandpayout/brand-report/internal/xlsxparser"
	"github.com/brandpayout/brand-report/internal/xlsxwriter"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Input is one input file, either an upload (Reader) or a file on disk
// (Path). With neither set the file was not supplied.
type Input struct {
	// Name is the original file name; its extension selects the loader.
	Name string

	// Path is read when Reader is nil.
	Path string

	Reader io.Reader
}

// Result represents the outcome of one report generation.
type Result struct {
	// RunID identifies the run in logs and published object names.
	RunID string

	// Report is the finished workbook.
	Report []byte

	// Summaries are the per-brand figures written to the report.
	Summaries []types.BrandSummary

	// Records are the classified line items, in ledger order.
	Records []types.ClassifiedRecord

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsRead is the number of sales ledger data rows.
	RowsRead int

	// RowsKept is the number of rows that survived filtering.
	RowsKept int

	// CatalogBrands is the number of brands in the catalog.
	CatalogBrands int

	// Brands is the number of distinct brands in the report (sheets).
	Brands int

	// Unclassified is the number of rows assigned types.UnknownBrand.
	Unclassified int

	// ClassifierFailures is the number of classification calls that failed
	// and fell back to types.UnknownBrand.
	ClassifierFailures int

	// ProcessingTime is the time taken by the run.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter generates brand payout reports.
type Converter struct {
	// config is the main application configuration.
	config *config.MainConfig

	// classifier assigns brands to sales descriptions.
	classifier classifier.Classifier

	// filter decides which sales rows are kept.
	filter *Filter

	logger zerolog.Logger
}

// New creates a new Converter.
func New(cfg *config.MainConfig, c classifier.Classifier, logger zerolog.Logger) (*Converter, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if c == nil {
		return nil, fmt.Errorf("converter: classifier is required")
	}

	filter, err := NewFilter(cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("converter: %w", err)
	}

	return &Converter{
		config:     cfg,
		classifier: c,
		filter:     filter,
		logger:     logger,
	}, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the full pipeline for one pair of uploaded files.
//
// Any input problem (missing file, missing column, malformed number) is
// returned as a validation error and no report is produced. Classifier
// failures never abort the run.
func (c *Converter) Run(ctx context.Context, sales, catalog Input) (*Result, error) {
	startTime := time.Now()
	result := &Result{RunID: uuid.NewString()}
	log := c.logger.With().Str("run_id", result.RunID).Logger()

	// =========================================================================
	// STEP 1-2: LOAD AND VALIDATE INPUTS
	// =========================================================================

	salesRecords, entries, err := c.load(sales, catalog)
	if err != nil {
		return nil, err
	}

	result.Stats.RowsRead = len(salesRecords)
	result.Stats.CatalogBrands = len(entries)
	log.Info().
		Int("sales_rows", len(salesRecords)).
		Int("catalog_brands", len(entries)).
		Msg("inputs loaded")

	// =========================================================================
	// STEP 3-6: FILTER, CLASSIFY, JOIN
	// =========================================================================

	records, err := c.aggregate(ctx, salesRecords, entries, &result.Stats, log)
	if err != nil {
		return nil, err
	}
	result.Records = records

	// =========================================================================
	// STEP 7: SUMMARIZE AND WRITE
	// =========================================================================

	result.Summaries = Summarize(records)
	result.Stats.Brands = len(result.Summaries)

	report, err := xlsxwriter.Write(result.Summaries, log)
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	result.Report = report

	result.Stats.ProcessingTime = time.Since(startTime)
	log.Info().
		Int("rows_kept", result.Stats.RowsKept).
		Int("brands", result.Stats.Brands).
		Int("unclassified", result.Stats.Unclassified).
		Int("classifier_failures", result.Stats.ClassifierFailures).
		Dur("elapsed", result.Stats.ProcessingTime).
		Msg("report generated")

	return result, nil
}

// Validate loads and checks both inputs and applies the row filter without
// classifying anything.
func (c *Converter) Validate(sales, catalog Input) (ProcessingStats, error) {
	var stats ProcessingStats

	salesRecords, entries, err := c.load(sales, catalog)
	if err != nil {
		return stats, err
	}

	stats.RowsRead = len(salesRecords)
	stats.RowsKept = len(c.filter.Apply(salesRecords))
	stats.CatalogBrands = len(entries)
	return stats, nil
}

// Aggregate filters, classifies and joins the sales records.
func (c *Converter) Aggregate(ctx context.Context, sales []types.SalesRecord, catalog types.Catalog) ([]types.ClassifiedRecord, error) {
	var stats ProcessingStats
	return c.aggregate(ctx, sales, catalog, &stats, c.logger)
}

func (c *Converter) aggregate(ctx context.Context, sales []types.SalesRecord, catalog types.Catalog, stats *ProcessingStats, log zerolog.Logger) ([]types.ClassifiedRecord, error) {
	kept := c.filter.Apply(sales)
	stats.RowsKept = len(kept)
	log.Debug().Int("kept", len(kept)).Int("dropped", len(sales)-len(kept)).Msg("sales rows filtered")

	brands := catalog.Brands()
	records := make([]types.ClassifiedRecord, 0, len(kept))

	for i, sale := range kept {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("report generation interrupted after %d of %d rows: %w", i, len(kept), err)
		}

		brand, failed := classifier.Resolve(ctx, c.classifier, sale.Name, brands, log)
		if failed {
			stats.ClassifierFailures++
		}
		if brand == types.UnknownBrand {
			stats.Unclassified++
		}

		log.Debug().Int("row", sale.Row).Str("name", sale.Name).Str("brand", brand).Msg("row classified")
		records = append(records, Join(sale, brand, catalog))
	}

	return records, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// load reads both inputs and converts them to typed records.
func (c *Converter) load(sales, catalog Input) ([]types.SalesRecord, types.Catalog, error) {
	salesTable, err := loadInput(sales, "sales ledger", c.config.SalesSkipRows)
	if err != nil {
		return nil, nil, err
	}
	catalogTable, err := loadInput(catalog, "brand catalog", 0)
	if err != nil {
		return nil, nil, err
	}

	salesRecords, salesErr := validation.ParseSales(salesTable)
	entries, catalogErr := validation.ParseCatalog(catalogTable)

	// Report problems in both files at once.
	var errs validation.Errors
	for _, e := range []error{salesErr, catalogErr} {
		if es, ok := e.(validation.Errors); ok {
			errs = append(errs, es...)
		} else if e != nil {
			return nil, nil, e
		}
	}
	if len(errs) > 0 {
		return nil, nil, errs
	}

	return salesRecords, entries, nil
}

// loadInput loads one file, treating an unreadable workbook as a validation
// problem the user can fix by uploading again.
func loadInput(in Input, what string, skipRows int) (*types.Table, error) {
	name := in.Name
	if name == "" {
		name = in.Path
	}
	if name == "" {
		name = what
	}

	var table *types.Table
	var err error
	switch {
	case in.Reader != nil:
		table, err = xlsxparser.LoadNamed(in.Reader, name, skipRows)
	case in.Path != "":
		table, err = xlsxparser.LoadFile(in.Path, skipRows)
	default:
		return nil, validation.Errors{{Source: what, Message: "no file supplied"}}
	}
	if err != nil {
		return nil, validation.Errors{{Source: name, Message: err.Error()}}
	}
	return table, nil
}

// Join annotates a sales record with its brand and the catalog figures.
// Brands without a catalog entry get a zero commission rate and rent.
func Join(sale types.SalesRecord, brand string, catalog types.Catalog) types.ClassifiedRecord {
	rate, rent := decimal.Zero, decimal.Zero
	if entry, ok := catalog.Lookup(brand); ok {
		rate, rent = entry.CommissionRate, entry.Rent
	}

	return types.ClassifiedRecord{
		IssueDate:      sale.IssueDate,
		Name:           sale.Name,
		Total:          sale.Total,
		Brand:          brand,
		CommissionRate: rate,
		Rent:           rent,
		Commission:     rate.Mul(sale.Total),
		Tax:            sale.Total.Mul(types.TaxRate),
	}
}

// Summarize groups records by brand in order of first appearance and
// computes each brand's totals.
func Summarize(records []types.ClassifiedRecord) []types.BrandSummary {
	var summaries []types.BrandSummary
	index := make(map[string]int)

	for _, r := range records {
		i, ok := index[r.Brand]
		if !ok {
			i = len(summaries)
			index[r.Brand] = i
			summaries = append(summaries, types.BrandSummary{
				Brand:      r.Brand,
				Rent:       r.Rent,
				TotalSales: decimal.Zero,
				Commission: decimal.Zero,
			})
		}

		s := &summaries[i]
		s.Records = append(s.Records, r)
		s.TotalSales = s.TotalSales.Add(r.Total)
		s.Commission = s.Commission.Add(r.Commission)
	}

	for i := range summaries {
		s := &summaries[i]
		s.NetPayout = s.TotalSales.Sub(s.Rent).Sub(s.Commission)
	}

	return summaries
}
