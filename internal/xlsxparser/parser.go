// =============================================================================
// Brand Payout Report - Spreadsheet Loader
// =============================================================================
//
// This module reads the two uploaded spreadsheets into tabular form:
//   - The sales ledger, whose first rows are a non-tabular report header and
//     are skipped unconditionally (SalesSkipRows)
//   - The brand catalog, which starts with its header row
//
// SHEET LAYOUT (after skipped rows):
//
//   | Row N   | Fecha de emisión | Tipo de comprobante | ... | Nombre | Total |
//   | Row N+1 | 02/01/2024       | Boleta              | ... | ACME X | 1000  |
//
// Only the first sheet of a workbook is read. No column validation happens
// here: a missing column surfaces in the validation package when the table
// is turned into records.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/brandpayout/brand-report/internal/csvparser"
	"github.com/brandpayout/brand-report/internal/types"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Load reads the first sheet of an XLSX workbook.
//
// PARAMETERS:
//   - r: The workbook contents. A nil reader means no file was supplied and
//     yields a nil table without error.
//   - source: A name for the input, used in error messages.
//   - skipRows: Number of leading rows to drop before the header row.
//
// RETURNS:
//   - The table (headers + data rows).
//   - An error if the workbook cannot be read or has no header row.
func Load(r io.Reader, source string, skipRows int) (*types.Table, error) {
	if r == nil {
		return nil, nil
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", source, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", source)
	}

	// Displayed values keep dates and text as the user sees them.
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", source, err)
	}

	// Raw values give amounts without number formatting.
	rawRows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read raw rows from %s: %w", source, err)
	}

	return BuildTable(source, rows, rawRows, skipRows)
}

// LoadFile opens a file from disk and loads it with the loader matching its
// extension (.xlsx or .csv).
func LoadFile(path string, skipRows int) (*types.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return LoadNamed(f, filepath.Base(path), skipRows)
}

// LoadNamed dispatches on the extension of name. Uploaded files arrive with
// only a name and a reader, so this is shared by the CLI and HTTP shell.
func LoadNamed(r io.Reader, name string, skipRows int) (*types.Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return csvparser.Load(r, name, skipRows)
	case ".xlsx", ".xlsm", "":
		return Load(r, name, skipRows)
	default:
		return nil, fmt.Errorf("unsupported file type %q for %s (expected .xlsx or .csv)", filepath.Ext(name), name)
	}
}

// BuildTable turns sheet rows into a Table. rawRows may be nil; when present
// it must be aligned with rows.
func BuildTable(source string, rows, rawRows [][]string, skipRows int) (*types.Table, error) {
	if skipRows < 0 {
		skipRows = 0
	}
	if len(rows) <= skipRows {
		return nil, fmt.Errorf("%s has no header row after skipping %d row(s)", source, skipRows)
	}

	table := &types.Table{
		Source:  source,
		Headers: cleanHeaders(rows[skipRows]),
	}

	// Parse each data row.
	for i := skipRows + 1; i < len(rows); i++ {
		row := rows[i]

		// Skip empty rows.
		if isRowEmpty(row) {
			continue
		}

		values := padRow(row, len(table.Headers))
		var raw []string
		if i < len(rawRows) {
			raw = padRow(rawRows[i], len(values))
		}

		table.Rows = append(table.Rows, types.Row{
			Number: i + 1,
			Values: values,
			Raw:    raw,
		})
	}

	return table, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cleanHeaders trims whitespace around every header cell.
func cleanHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = strings.TrimSpace(h)
	}
	return headers
}

// padRow returns a copy of row extended with empty cells to at least n
// columns. Spreadsheet readers drop trailing empty cells.
func padRow(row []string, n int) []string {
	size := len(row)
	if n > size {
		size = n
	}
	out := make([]string, size)
	copy(out, row)
	return out
}
