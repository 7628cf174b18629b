// =============================================================================
// Brand Payout Report - XLSX Writer Module
// =============================================================================
//
// This module is responsible for generating the report workbook from the
// per-brand summaries. The workbook is built entirely in memory.
//
// SHEET STRUCTURE:
//   One sheet per brand, in order of first appearance in the sales ledger:
//
//   Row 1        | Fecha de emisión | Nombre | Total | Comision | IGV |  <- styled
//   Row 2..n+1   | one line item per row                              |
//   Row n+2..n+3 | (blank)                                            |
//   Row n+4      | Total Venta | Alquiler | Comisión | Monto Total a Depositar |  <- styled
//   Row n+5      | summary values                                     |
//
// SHEET NAMES:
//   - Characters the format forbids (: \ / ? * [ ]) become "_"
//   - Names are cut to 31 characters
//   - Names that collide (case-insensitively) get a "~2", "~3", ... suffix
//
// =============================================================================

package xlsxwriter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/brandpayout/brand-report/internal/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the generated report.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrNoRecords is returned when there is nothing to write. A workbook needs at
// least one sheet.
var ErrNoRecords = errors.New("no sales rows left after filtering; nothing to report")

// Column headers of the report.
var (
	DataHeaders    = []string{"Fecha de emisión", "Nombre", "Total", "Comision", "IGV"}
	SummaryHeaders = []string{"Total Venta", "Alquiler", "Comisión", "Monto Total a Depositar"}
)

const (
	// headerFill is the background of both header rows.
	headerFill = "#D7E4BC"

	// widthPadding is added to the widest cell of each data column.
	widthPadding = 3

	// fallbackSheetName replaces a brand whose name sanitizes to nothing.
	fallbackSheetName = "Hoja"
)

// forbiddenSheetChars are the characters a sheet name may not contain.
var forbiddenSheetChars = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// =============================================================================
// WORKBOOK GENERATION
// =============================================================================

// Write renders the summaries as a workbook and returns its bytes. The
// SheetName of every summary is set to the sheet it was written to.
func Write(summaries []types.BrandSummary, log zerolog.Logger) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTo(&buf, summaries, log); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo renders the summaries as a workbook into w.
func WriteTo(w io.Writer, summaries []types.BrandSummary, log zerolog.Logger) error {
	if len(summaries) == 0 {
		return ErrNoRecords
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	brands := make([]string, len(summaries))
	for i, s := range summaries {
		brands[i] = s.Brand
	}
	names := SheetNames(brands)

	for i := range summaries {
		s := &summaries[i]
		s.SheetName = names[i]
		if s.SheetName != s.Brand {
			log.Warn().Str("brand", s.Brand).Str("sheet", s.SheetName).Msg("brand written under a different sheet name")
		}

		// The new workbook starts with one default sheet; reuse it for the
		// first brand.
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), s.SheetName)
		} else {
			_, err = f.NewSheet(s.SheetName)
		}
		if err != nil {
			return fmt.Errorf("failed to create sheet for brand %q: %w", s.Brand, err)
		}

		if err := writeSheet(f, s, headerStyle); err != nil {
			return fmt.Errorf("failed to write sheet for brand %q: %w", s.Brand, err)
		}
	}

	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return nil
}

// writeSheet fills one brand sheet: line items, summary block and widths.
func writeSheet(f *excelize.File, s *types.BrandSummary, headerStyle int) error {
	sheet := s.SheetName

	// Character widths per data column, seeded with the headers.
	widths := make([]int, len(DataHeaders))
	for i, h := range DataHeaders {
		widths[i] = utf8.RuneCountInString(h)
	}

	if err := writeRow(f, sheet, 1, toAny(DataHeaders)); err != nil {
		return err
	}
	if err := styleRow(f, sheet, 1, len(DataHeaders), headerStyle); err != nil {
		return err
	}

	for i, r := range s.Records {
		values := []any{r.IssueDate, r.Name, number(r.Total), number(r.Commission), number(r.Tax)}
		if err := writeRow(f, sheet, i+2, values); err != nil {
			return err
		}

		for col, text := range []string{r.IssueDate, r.Name, r.Total.String(), r.Commission.String(), r.Tax.String()} {
			if n := utf8.RuneCountInString(text); n > widths[col] {
				widths[col] = n
			}
		}
	}

	// Two blank rows separate the line items from the summary block.
	summaryRow := len(s.Records) + 4
	if err := writeRow(f, sheet, summaryRow, toAny(SummaryHeaders)); err != nil {
		return err
	}
	if err := styleRow(f, sheet, summaryRow, len(SummaryHeaders), headerStyle); err != nil {
		return err
	}
	totals := []any{number(s.TotalSales), number(s.Rent), number(s.Commission), number(s.NetPayout)}
	if err := writeRow(f, sheet, summaryRow+1, totals); err != nil {
		return err
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(w+widthPadding)); err != nil {
			return err
		}
	}

	return nil
}

// =============================================================================
// SHEET NAMING
// =============================================================================

// SheetName turns a brand into a valid sheet name, without collision handling.
func SheetName(brand string) string {
	name := trimSheetName(forbiddenSheetChars.Replace(brand))
	// Cutting can expose an apostrophe at the end again.
	name = trimSheetName(truncate(name, types.MaxSheetNameLength))
	if name == "" {
		name = fallbackSheetName
	}
	return name
}

// SheetNames assigns a unique sheet name to every brand, in order. When two
// brands reduce to the same name the later one gets a "~N" suffix, with the
// base shortened so the result stays within the length limit.
func SheetNames(brands []string) []string {
	names := make([]string, len(brands))
	taken := make(map[string]bool, len(brands))

	for i, brand := range brands {
		base := SheetName(brand)
		name := base
		for n := 2; taken[strings.ToLower(name)]; n++ {
			suffix := fmt.Sprintf("~%d", n)
			name = trimSheetName(truncate(base, types.MaxSheetNameLength-utf8.RuneCountInString(suffix))) + suffix
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}

	return names
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// trimSheetName drops surrounding whitespace and apostrophes; a sheet name
// may not start or end with an apostrophe.
func trimSheetName(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '\'' || unicode.IsSpace(r)
	})
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// number converts a money amount for a numeric cell.
func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// writeRow writes values starting at column A of the 1-based row.
func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// styleRow applies style to the first cols cells of the 1-based row.
func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}
