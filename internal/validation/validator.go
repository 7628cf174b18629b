// =============================================================================
// Brand Payout Report - Validation Module
// =============================================================================
//
// This module turns loaded tables into typed records and is the single place
// where malformed input is detected. Any problem found here is fatal for the
// run: no partial report is produced, and every problem is reported at once
// so the user can fix the file and upload it again.
//
// VALIDATION RULES:
//   Sales ledger:
//     - Required columns: Fecha de emisión, Nombre, Total, Tipo de comprobante,
//       Estado del documento, Estado
//     - Total must be a number (blank is treated as 0)
//   Brand catalog:
//     - Required columns: MARCA, COMISION, ALQUILER
//     - COMISION is a fraction; "10%" is accepted as 0.10
//     - ALQUILER must be a number (blank is treated as 0)
//     - MARCA is a unique key; blank brand rows are ignored
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/brandpayout/brand-report/internal/types"
	"github.com/shopspring/decimal"
)

// Required columns per input.
var (
	SalesColumns = []string{
		types.ColIssueDate,
		types.ColName,
		types.ColTotal,
		types.ColDocumentType,
		types.ColDocumentStatus,
		types.ColAcceptanceStatus,
	}

	CatalogColumns = []string{
		types.ColBrand,
		types.ColCommission,
		types.ColRent,
	}
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Error represents a single validation problem.
type Error struct {
	// Source is the file name the problem was found in.
	Source string

	// Row is the 1-based row number, or 0 for file-level problems such as a
	// missing column.
	Row int

	// Column is the column header involved.
	Column string

	// Value is the offending cell value, if any.
	Value string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Row > 0 {
		fmt.Fprintf(&b, ", row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ", column '%s'", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	return b.String()
}

// Errors is a list of validation problems returned as one error.
type Errors []*Error

// Error implements the error interface.
func (es Errors) Error() string {
	return FormatErrors(es)
}

// IsValidation reports whether err (or anything it wraps) is a validation
// problem, as opposed to an I/O or service failure.
func IsValidation(err error) bool {
	var es Errors
	var e *Error
	return errors.As(err, &es) || errors.As(err, &e)
}

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errs []*Error) string {
	if len(errs) == 0 {
		return "no validation errors"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "validation failed with %d error(s):", len(errs))
	for i, err := range errs {
		fmt.Fprintf(&builder, "\n  %d. %s", i+1, err.Error())
	}
	return builder.String()
}

// =============================================================================
// TABLE CONVERSION
// =============================================================================

// ParseSales converts the sales ledger table into SalesRecords.
func ParseSales(table *types.Table) ([]types.SalesRecord, error) {
	if table == nil {
		return nil, Errors{{Source: "sales ledger", Message: "no file supplied"}}
	}

	idx, errs := requireColumns(table, SalesColumns)
	if len(errs) > 0 {
		return nil, errs
	}

	records := make([]types.SalesRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		total, err := ParseAmount(row.RawCell(idx[types.ColTotal]))
		if err != nil {
			errs = append(errs, &Error{
				Source:  table.Source,
				Row:     row.Number,
				Column:  types.ColTotal,
				Value:   row.Cell(idx[types.ColTotal]),
				Message: "not a number",
			})
			continue
		}

		records = append(records, types.SalesRecord{
			IssueDate:        strings.TrimSpace(row.Cell(idx[types.ColIssueDate])),
			DocumentType:     strings.TrimSpace(row.Cell(idx[types.ColDocumentType])),
			DocumentStatus:   strings.TrimSpace(row.Cell(idx[types.ColDocumentStatus])),
			AcceptanceStatus: strings.TrimSpace(row.Cell(idx[types.ColAcceptanceStatus])),
			Name:             strings.TrimSpace(row.Cell(idx[types.ColName])),
			Total:            total,
			Row:              row.Number,
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return records, nil
}

// ParseCatalog converts the brand catalog table into a Catalog.
func ParseCatalog(table *types.Table) (types.Catalog, error) {
	if table == nil {
		return nil, Errors{{Source: "brand catalog", Message: "no file supplied"}}
	}

	idx, errs := requireColumns(table, CatalogColumns)
	if len(errs) > 0 {
		return nil, errs
	}

	catalog := make(types.Catalog, 0, len(table.Rows))
	seen := make(map[string]int)

	for _, row := range table.Rows {
		brand := strings.TrimSpace(row.Cell(idx[types.ColBrand]))
		if brand == "" {
			continue
		}

		if first, dup := seen[brand]; dup {
			errs = append(errs, &Error{
				Source:  table.Source,
				Row:     row.Number,
				Column:  types.ColBrand,
				Value:   brand,
				Message: fmt.Sprintf("duplicate brand (first defined on row %d)", first),
			})
			continue
		}
		seen[brand] = row.Number

		rate, err := ParseRate(row.RawCell(idx[types.ColCommission]))
		if err != nil {
			errs = append(errs, &Error{
				Source:  table.Source,
				Row:     row.Number,
				Column:  types.ColCommission,
				Value:   row.Cell(idx[types.ColCommission]),
				Message: "not a commission rate",
			})
			continue
		}

		rent, err := ParseAmount(row.RawCell(idx[types.ColRent]))
		if err != nil {
			errs = append(errs, &Error{
				Source:  table.Source,
				Row:     row.Number,
				Column:  types.ColRent,
				Value:   row.Cell(idx[types.ColRent]),
				Message: "not a number",
			})
			continue
		}

		catalog = append(catalog, types.BrandCatalogEntry{
			Brand:          brand,
			CommissionRate: rate,
			Rent:           rent,
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return catalog, nil
}

// requireColumns resolves every required header to its index, reporting
// each missing one.
func requireColumns(table *types.Table, required []string) (map[string]int, Errors) {
	idx := make(map[string]int, len(required))
	var errs Errors

	for _, col := range required {
		i := table.ColumnIndex(col)
		if i < 0 {
			errs = append(errs, &Error{
				Source:  table.Source,
				Column:  col,
				Message: "required column is missing",
			})
			continue
		}
		idx[col] = i
	}

	return idx, errs
}

// =============================================================================
// NUMBER PARSING
// =============================================================================

// thousandsComma matches "1,234" and "12,345,678" (comma as group separator).
var thousandsComma = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+$`)

// ParseAmount parses a money cell. Blank cells are zero. Currency markers
// ("S/", "S/.", "$") and spaces are ignored. Both "1,234.56" and "1.234,56"
// read as 1234.56.
func ParseAmount(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	for _, marker := range []string{"S/.", "S/", "$", " ", "\u00a0"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	if s == "" {
		return decimal.Zero, nil
	}

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		// Whichever separator comes last is the decimal point.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case thousandsComma.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ","):
		s = strings.Replace(s, ",", ".", 1)
	}

	return decimal.NewFromString(s)
}

// ParseRate parses a commission rate. "0.1" and "10%" are both 0.1.
func ParseRate(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if strings.HasSuffix(s, "%") {
		pct, err := ParseAmount(strings.TrimSuffix(s, "%"))
		if err != nil {
			return decimal.Zero, err
		}
		return pct.Div(decimal.NewFromInt(100)), nil
	}
	return ParseAmount(s)
}
