package converter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brandpayout/brand-report/internal/classifier"
	"github.com/brandpayout/brand-report/internal/config"
	"github.com/brandpayout/brand-report/internal/types"
	"github.com/brandpayout/brand-report/internal/validation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sale(docType, name, total string) types.SalesRecord {
	return types.SalesRecord{
		IssueDate:        "02/01/2024",
		DocumentType:     docType,
		DocumentStatus:   "Emitido",
		AcceptanceStatus: "Aceptado",
		Name:             name,
		Total:            d(total),
	}
}

var acmeCatalog = types.Catalog{{Brand: "ACME", CommissionRate: d("0.1"), Rent: d("500")}}

func newConverter(t *testing.T, c classifier.Classifier) *Converter {
	t.Helper()
	conv, err := New(config.Default(), c, zerolog.Nop())
	require.NoError(t, err)
	return conv
}

func TestAggregate_AcmeScenario(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{Default: "ACME"})

	records, err := conv.Aggregate(context.Background(), []types.SalesRecord{
		sale("Boleta", "Polo ACME", "1000"),
		sale("Factura", "Casaca ACME", "2000"),
	}, acmeCatalog)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.True(t, d("100").Equal(records[0].Commission))
	assert.True(t, d("200").Equal(records[1].Commission))
	assert.True(t, d("180").Equal(records[0].Tax))
	assert.True(t, d("360").Equal(records[1].Tax))

	summaries := Summarize(records)
	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, "ACME", s.Brand)
	assert.True(t, d("3000").Equal(s.TotalSales))
	assert.True(t, d("300").Equal(s.Commission))
	assert.True(t, d("500").Equal(s.Rent))
	assert.True(t, d("2200").Equal(s.NetPayout))
}

func TestAggregate_FiltersRows(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{Default: "ACME"})

	annulled := sale("Boleta", "anulada", "10")
	annulled.DocumentStatus = "Anulado"
	rejected := sale("Factura", "rechazada", "20")
	rejected.AcceptanceStatus = "Rechazado"

	records, err := conv.Aggregate(context.Background(), []types.SalesRecord{
		sale("Nota de crédito", "nota", "5"),
		sale("Boleta", "uno", "1"),
		annulled,
		rejected,
		sale("Factura", "dos", "2"),
	}, acmeCatalog)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "uno", records[0].Name)
	assert.Equal(t, "dos", records[1].Name)
}

func TestAggregate_TaxIsExact(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{})

	records, err := conv.Aggregate(context.Background(), []types.SalesRecord{
		sale("Boleta", "a", "0.1"),
		sale("Boleta", "b", "33.33"),
		sale("Boleta", "c", "1234567.89"),
	}, acmeCatalog)
	require.NoError(t, err)

	assert.Equal(t, "0.018", records[0].Tax.String())
	assert.Equal(t, "5.9994", records[1].Tax.String())
	assert.Equal(t, "222222.2202", records[2].Tax.String())
}

func TestAggregate_UnmatchedBrand(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{Table: map[string]string{
		"Polo ACME":   "ACME",
		"Bolsa":       "OTROS",
		"Llavero XYZ": "XYZ",
	}})

	records, err := conv.Aggregate(context.Background(), []types.SalesRecord{
		sale("Boleta", "Polo ACME", "1000"),
		sale("Boleta", "Bolsa", "50"),
		sale("Boleta", "Llavero XYZ", "20"),
	}, acmeCatalog)
	require.NoError(t, err)

	for _, r := range records[1:] {
		assert.Equal(t, types.UnknownBrand, r.Brand)
		assert.True(t, r.Commission.IsZero())
		assert.True(t, r.Rent.IsZero())
	}

	summaries := Summarize(records)
	require.Len(t, summaries, 2)
	assert.Equal(t, types.UnknownBrand, summaries[1].Brand)
	assert.True(t, d("70").Equal(summaries[1].TotalSales))
	assert.True(t, d("70").Equal(summaries[1].NetPayout))
}

func TestAggregate_ClassifierFailure(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{
		Default:  "ACME",
		Failures: map[string]error{"falla": errors.New("quota exceeded")},
	})

	records, err := conv.Aggregate(context.Background(), []types.SalesRecord{
		sale("Boleta", "ok", "100"),
		sale("Boleta", "falla", "200"),
	}, acmeCatalog)
	require.NoError(t, err)

	assert.Equal(t, "ACME", records[0].Brand)
	assert.Equal(t, types.UnknownBrand, records[1].Brand)
	assert.True(t, records[1].Commission.IsZero())
}

func TestAggregate_CatalogOtrosRow(t *testing.T) {
	catalog := types.Catalog{
		{Brand: "ACME", CommissionRate: d("0.1"), Rent: d("500")},
		{Brand: "Otros", CommissionRate: d("0.05"), Rent: d("100")},
	}
	conv := newConverter(t, &classifier.StaticClassifier{})

	records, err := conv.Aggregate(context.Background(), []types.SalesRecord{
		sale("Boleta", "Bolsa", "200"),
	}, catalog)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Otros", records[0].Brand)
	assert.True(t, d("10").Equal(records[0].Commission))
	assert.True(t, d("100").Equal(records[0].Rent))
}

func TestAggregate_Cancelled(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := conv.Aggregate(ctx, []types.SalesRecord{sale("Boleta", "a", "1")}, acmeCatalog)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregate_Idempotent(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{Table: map[string]string{"Polo ACME": "ACME"}})
	sales := []types.SalesRecord{
		sale("Boleta", "Polo ACME", "1000"),
		sale("Boleta", "Otra cosa", "12.5"),
		sale("Factura", "Polo ACME", "2000"),
	}

	first, err := conv.Aggregate(context.Background(), sales, acmeCatalog)
	require.NoError(t, err)
	second, err := conv.Aggregate(context.Background(), sales, acmeCatalog)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, Summarize(first), Summarize(second))
}

func TestSummarize_FirstAppearanceOrder(t *testing.T) {
	summaries := Summarize([]types.ClassifiedRecord{
		{Brand: "ZETA", Total: d("1"), Commission: d("0"), Rent: d("0")},
		{Brand: "ACME", Total: d("2"), Commission: d("0"), Rent: d("0")},
		{Brand: "ZETA", Total: d("3"), Commission: d("0"), Rent: d("0")},
	})

	require.Len(t, summaries, 2)
	assert.Equal(t, "ZETA", summaries[0].Brand)
	assert.Len(t, summaries[0].Records, 2)
	assert.Equal(t, "ACME", summaries[1].Brand)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(config.Default(), nil, zerolog.Nop())
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Filters = []config.FilterRule{{Field: "Color", Allowed: []string{"rojo"}}}
	_, err = New(cfg, &classifier.StaticClassifier{}, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown sales column")
}

// =============================================================================
// END-TO-END RUN
// =============================================================================

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func salesWorkbook(t *testing.T) *bytes.Buffer {
	return workbook(t, [][]any{
		{"REPORTE DE VENTAS"},
		{"Enero 2024"},
		{"Fecha de emisión", "Tipo de comprobante", "Estado del documento", "Estado", "Nombre", "Total"},
		{"02/01/2024", "Boleta", "Emitido", "Aceptado", "Polo ACME", 1000},
		{"03/01/2024", "Factura", "Emitido", "Aceptado", "Casaca ACME", 2000},
		{"04/01/2024", "Nota de crédito", "Emitido", "Aceptado", "Devolución", -100},
		{"05/01/2024", "Boleta", "Emitido", "Aceptado", "Bolsa de regalo", 50},
	})
}

func catalogWorkbook(t *testing.T) *bytes.Buffer {
	return workbook(t, [][]any{
		{"MARCA", "COMISION", "ALQUILER"},
		{"ACME", 0.1, 500},
	})
}

func TestRun_EndToEnd(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{Table: map[string]string{
		"Polo ACME":   "ACME",
		"Casaca ACME": "acme.",
	}})

	result, err := conv.Run(context.Background(),
		Input{Name: "ventas.xlsx", Reader: salesWorkbook(t)},
		Input{Name: "marcas.xlsx", Reader: catalogWorkbook(t)},
	)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 4, result.Stats.RowsRead)
	assert.Equal(t, 3, result.Stats.RowsKept)
	assert.Equal(t, 2, result.Stats.Brands)
	assert.Equal(t, 1, result.Stats.Unclassified)
	assert.Equal(t, 0, result.Stats.ClassifierFailures)

	f, err := excelize.OpenReader(bytes.NewReader(result.Report))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"ACME", "OTROS"}, f.GetSheetList())
	rows, err := f.GetRows("ACME")
	require.NoError(t, err)
	assert.Equal(t, []string{"3000", "500", "300", "2200"}, rows[6])
	assert.Equal(t, "ACME", result.Summaries[0].SheetName)
}

func TestRun_ClassifierFailureStillReports(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{
		Default:  "ACME",
		Failures: map[string]error{"Bolsa de regalo": errors.New("quota exceeded")},
	})

	result, err := conv.Run(context.Background(),
		Input{Name: "ventas.xlsx", Reader: salesWorkbook(t)},
		Input{Name: "marcas.xlsx", Reader: catalogWorkbook(t)},
	)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.ClassifierFailures)
	assert.Equal(t, 1, result.Stats.Unclassified)

	f, err := excelize.OpenReader(bytes.NewReader(result.Report))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"ACME", "OTROS"}, f.GetSheetList())
	rows, err := f.GetRows("OTROS")
	require.NoError(t, err)
	assert.Equal(t, []string{"05/01/2024", "Bolsa de regalo", "50", "0", "9"}, rows[1])
}

func TestRun_FromPaths(t *testing.T) {
	dir := t.TempDir()
	salesPath := filepath.Join(dir, "ventas.xlsx")
	catalogPath := filepath.Join(dir, "marcas.xlsx")
	require.NoError(t, os.WriteFile(salesPath, salesWorkbook(t).Bytes(), 0644))
	require.NoError(t, os.WriteFile(catalogPath, catalogWorkbook(t).Bytes(), 0644))

	conv := newConverter(t, &classifier.StaticClassifier{Default: "ACME"})
	result, err := conv.Run(context.Background(),
		Input{Path: salesPath},
		Input{Path: catalogPath},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Stats.RowsKept)
	assert.Equal(t, 1, result.Stats.Brands)

	_, err = conv.Run(context.Background(),
		Input{Path: filepath.Join(dir, "falta.xlsx")},
		Input{Path: catalogPath},
	)
	require.Error(t, err)
	assert.True(t, validation.IsValidation(err))
	assert.Contains(t, err.Error(), "falta.xlsx")
}

func TestRun_ValidationErrors(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{})

	_, err := conv.Run(context.Background(),
		Input{Name: "ventas.xlsx"},
		Input{Name: "marcas.xlsx", Reader: catalogWorkbook(t)},
	)
	require.Error(t, err)
	assert.True(t, validation.IsValidation(err))

	badCatalog := workbook(t, [][]any{{"MARCA", "ALQUILER"}, {"ACME", 500}})
	_, err = conv.Run(context.Background(),
		Input{Name: "ventas.xlsx", Reader: salesWorkbook(t)},
		Input{Name: "marcas.xlsx", Reader: badCatalog},
	)
	require.Error(t, err)
	assert.True(t, validation.IsValidation(err))
	assert.Contains(t, err.Error(), "COMISION")

	_, err = conv.Run(context.Background(),
		Input{Name: "ventas.xlsx", Reader: strings.NewReader("not a workbook")},
		Input{Name: "marcas.xlsx", Reader: catalogWorkbook(t)},
	)
	assert.True(t, validation.IsValidation(err))
}

func TestRun_NothingToReport(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{})
	sales := workbook(t, [][]any{
		{"x"}, {"y"},
		{"Fecha de emisión", "Tipo de comprobante", "Estado del documento", "Estado", "Nombre", "Total"},
		{"04/01/2024", "Nota de crédito", "Emitido", "Aceptado", "Devolución", -100},
	})

	_, err := conv.Run(context.Background(),
		Input{Name: "ventas.xlsx", Reader: sales},
		Input{Name: "marcas.xlsx", Reader: catalogWorkbook(t)},
	)
	assert.ErrorContains(t, err, "nothing to report")
}

func TestValidate(t *testing.T) {
	conv := newConverter(t, &classifier.StaticClassifier{})

	stats, err := conv.Validate(
		Input{Name: "ventas.xlsx", Reader: salesWorkbook(t)},
		Input{Name: "marcas.xlsx", Reader: catalogWorkbook(t)},
	)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.RowsRead)
	assert.Equal(t, 3, stats.RowsKept)
	assert.Equal(t, 1, stats.CatalogBrands)
}
