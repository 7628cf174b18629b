// =============================================================================
// Brand Payout Report - Shared Types
// =============================================================================
//
// This package contains the shared types used across multiple modules to
// avoid import cycles. Types defined here are used by:
//   - xlsxparser / csvparser (Table)
//   - validation (Table -> typed records)
//   - converter (aggregation)
//   - xlsxwriter (report output)
//
// =============================================================================

package types

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// UnknownBrand is the brand assigned to any sales row that could not be
// matched to a catalog brand.
const UnknownBrand = "OTROS"

// MaxSheetNameLength is the hard spreadsheet limit for sheet names.
const MaxSheetNameLength = 31

// TaxRate is the fixed IGV rate applied to every line total.
var TaxRate = decimal.RequireFromString("0.18")

// Sales ledger column headers.
const (
	ColIssueDate        = "Fecha de emisión"
	ColName             = "Nombre"
	ColTotal            = "Total"
	ColDocumentType     = "Tipo de comprobante"
	ColDocumentStatus   = "Estado del documento"
	ColAcceptanceStatus = "Estado"
)

// Brand catalog column headers.
const (
	ColBrand      = "MARCA"
	ColCommission = "COMISION"
	ColRent       = "ALQUILER"
)

// =============================================================================
// TABULAR INPUT
// =============================================================================

// Table is a loaded spreadsheet: an ordered header set and ordered rows.
type Table struct {
	// Source is the file name the table was read from (for messages).
	Source string

	// Headers are the trimmed column names, in sheet order.
	Headers []string

	// Rows holds the data rows.
	Rows []Row
}

// Row is one data row of a Table.
type Row struct {
	// Number is the 1-based row number in the source file.
	Number int

	// Values are the cells as displayed in the spreadsheet.
	Values []string

	// Raw are the unformatted cell values (numbers without thousands
	// separators or currency symbols). Same length as Values.
	Raw []string
}

// ColumnIndex returns the position of the named header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the displayed value at column i, or "" when the row is short.
func (r Row) Cell(i int) string {
	if i >= 0 && i < len(r.Values) {
		return r.Values[i]
	}
	return ""
}

// RawCell returns the raw value at column i, falling back to the displayed
// value when no raw value was captured.
func (r Row) RawCell(i int) string {
	if i >= 0 && i < len(r.Raw) && r.Raw[i] != "" {
		return r.Raw[i]
	}
	return r.Cell(i)
}

// =============================================================================
// DOMAIN RECORDS
// =============================================================================

// SalesRecord is one row of the sales ledger.
type SalesRecord struct {
	IssueDate        string
	DocumentType     string
	DocumentStatus   string
	AcceptanceStatus string
	Name             string
	Total            decimal.Decimal

	// Row is the 1-based source row, used in error messages.
	Row int
}

// Field returns the value of a ledger column by header name. It is used by
// the configurable filter rules.
func (s SalesRecord) Field(column string) (string, bool) {
	switch column {
	case ColIssueDate:
		return s.IssueDate, true
	case ColDocumentType:
		return s.DocumentType, true
	case ColDocumentStatus:
		return s.DocumentStatus, true
	case ColAcceptanceStatus:
		return s.AcceptanceStatus, true
	case ColName:
		return s.Name, true
	case ColTotal:
		return s.Total.String(), true
	default:
		return "", false
	}
}

// BrandCatalogEntry is one row of the brand reference table.
type BrandCatalogEntry struct {
	// Brand is the unique key.
	Brand string

	// CommissionRate is a fraction (0.1 = 10%).
	CommissionRate decimal.Decimal

	// Rent is the fixed rent deducted once per brand.
	Rent decimal.Decimal
}

// Catalog is the loaded brand catalog, in file order.
type Catalog []BrandCatalogEntry

// Brands returns the brand names in catalog order.
func (c Catalog) Brands() []string {
	names := make([]string, 0, len(c))
	for _, e := range c {
		names = append(names, e.Brand)
	}
	return names
}

// Lookup finds a catalog entry by exact brand name.
func (c Catalog) Lookup(brand string) (BrandCatalogEntry, bool) {
	for _, e := range c {
		if e.Brand == brand {
			return e, true
		}
	}
	return BrandCatalogEntry{}, false
}

// ClassifiedRecord is a filtered sales row annotated with its brand and the
// derived commission and tax amounts.
type ClassifiedRecord struct {
	IssueDate string
	Name      string
	Total     decimal.Decimal

	// Brand is always a catalog brand name or UnknownBrand.
	Brand string

	// CommissionRate and Rent come from the catalog join; zero when the
	// brand has no catalog entry.
	CommissionRate decimal.Decimal
	Rent           decimal.Decimal

	// Commission = CommissionRate * Total.
	Commission decimal.Decimal

	// Tax = Total * TaxRate.
	Tax decimal.Decimal
}

// BrandSummary is derived per distinct brand and never persisted.
type BrandSummary struct {
	Brand string

	// SheetName is the worksheet the brand was written to. It is assigned by
	// the report writer and may differ from Brand (length limit, forbidden
	// characters, collisions).
	SheetName string

	// Records are the brand's line items in input order.
	Records []ClassifiedRecord

	TotalSales decimal.Decimal
	Rent       decimal.Decimal
	Commission decimal.Decimal

	// NetPayout = TotalSales - Rent - Commission.
	NetPayout decimal.Decimal
}
