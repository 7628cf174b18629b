// =============================================================================
// Brand Payout Report - CSV Loader
// =============================================================================
//
// Some point-of-sale systems export the sales ledger as CSV instead of XLSX.
// This module reads such files into the same Table the XLSX loader produces,
// so the rest of the pipeline does not care which format was uploaded.
//
// FEATURES:
//   - Delimiter detection (comma, semicolon, tab, pipe) from the header line
//   - UTF-8 byte order mark removal (spreadsheet "Save as CSV" adds one)
//   - The same fixed leading-row skip as the XLSX loader
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/brandpayout/brand-report/internal/types"
)

// utf8BOM is stripped from the start of the input.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Load reads a CSV document into a Table.
//
// PARAMETERS:
//   - r: The CSV contents. A nil reader yields a nil table without error.
//   - source: A name for the input, used in error messages.
//   - skipRows: Number of leading records to drop before the header record.
//
// RETURNS:
//   - The table. Raw values are not captured for CSV; Row.RawCell falls back
//     to the displayed value.
//   - An error if the CSV is malformed or has no header row.
func Load(r io.Reader, source string, skipRows int) (*types.Table, error) {
	if r == nil {
		return nil, nil
	}

	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	csvReader := csv.NewReader(bytes.NewReader(data))
	configureReader(csvReader, detectDelimiter(data, skipRows))

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", source, err)
	}

	if skipRows < 0 {
		skipRows = 0
	}
	if len(allRows) <= skipRows {
		return nil, fmt.Errorf("%s has no header row after skipping %d row(s)", source, skipRows)
	}

	table := &types.Table{
		Source:  source,
		Headers: cleanHeaders(allRows[skipRows]),
	}

	for i := skipRows + 1; i < len(allRows); i++ {
		row := allRows[i]
		if isRowEmpty(row) {
			continue
		}

		values := make([]string, max(len(row), len(table.Headers)))
		copy(values, row)

		table.Rows = append(table.Rows, types.Row{
			Number: i + 1,
			Values: values,
		})
	}

	return table, nil
}

// configureReader configures the CSV reader for loosely formatted exports.
func configureReader(reader *csv.Reader, delimiter rune) {
	reader.Comma = delimiter

	// Report headers above the table usually have fewer columns.
	reader.FieldsPerRecord = -1

	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// detectDelimiter picks the candidate delimiter that appears most often on
// the header line (the first line after the skipped ones). Ties and lines
// without any candidate fall back to comma.
func detectDelimiter(data []byte, skipRows int) rune {
	lines := strings.Split(string(data), "\n")
	idx := skipRows
	if idx < 0 || idx >= len(lines) {
		idx = 0
	}
	line := lines[idx]

	best, bestCount := ',', strings.Count(line, ",")
	for _, candidate := range []rune{';', '\t', '|'} {
		if n := strings.Count(line, string(candidate)); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// cleanHeaders trims whitespace (and stray quotes) around header cells.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, h := range headers {
		cleaned[i] = strings.Trim(strings.TrimSpace(h), `"`)
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
