package validation

import (
	"fmt"
	"testing"

	"github.com/brandpayout/brand-report/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(source string, headers []string, rows ...[]string) *types.Table {
	t := &types.Table{Source: source, Headers: headers}
	for i, r := range rows {
		t.Rows = append(t.Rows, types.Row{Number: i + 2, Values: r})
	}
	return t
}

var salesHeaders = []string{"Fecha de emisión", "Tipo de comprobante", "Estado del documento", "Estado", "Nombre", "Total"}

func TestParseSales(t *testing.T) {
	tbl := table("ventas.xlsx", salesHeaders,
		[]string{"02/01/2024", "Boleta", "Emitido", "Aceptado", " Polo ACME ", "1000"},
		[]string{"03/01/2024", "Nota de crédito", "Emitido", "Aceptado", "Devolución", ""},
	)

	records, err := ParseSales(tbl)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Polo ACME", records[0].Name)
	assert.True(t, decimal.NewFromInt(1000).Equal(records[0].Total))
	assert.Equal(t, 2, records[0].Row)
	assert.True(t, records[1].Total.IsZero())
}

func TestParseSales_MissingColumns(t *testing.T) {
	tbl := table("ventas.xlsx", []string{"Fecha de emisión", "Nombre"})

	_, err := ParseSales(tbl)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 4)
	assert.Equal(t, "Total", errs[0].Column)
	assert.Contains(t, err.Error(), "required column is missing")
}

func TestParseSales_BadTotal(t *testing.T) {
	tbl := table("ventas.xlsx", salesHeaders,
		[]string{"02/01/2024", "Boleta", "Emitido", "Aceptado", "Polo", "mil"},
	)

	_, err := ParseSales(tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ventas.xlsx, row 2, column 'Total': not a number (value: 'mil')")
}

func TestParseSales_NilTable(t *testing.T) {
	_, err := ParseSales(nil)
	assert.True(t, IsValidation(err))
}

func TestParseCatalog(t *testing.T) {
	tbl := table("marcas.xlsx", []string{"MARCA", "COMISION", "ALQUILER"},
		[]string{"ACME", "0.1", "500"},
		[]string{"", "", ""},
		[]string{"ZETA", "15%", ""},
	)

	catalog, err := ParseCatalog(tbl)
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	assert.Equal(t, []string{"ACME", "ZETA"}, catalog.Brands())
	assert.True(t, decimal.RequireFromString("0.15").Equal(catalog[1].CommissionRate))
	assert.True(t, catalog[1].Rent.IsZero())

	entry, ok := catalog.Lookup("ACME")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(500).Equal(entry.Rent))
}

func TestParseCatalog_Errors(t *testing.T) {
	tbl := table("marcas.xlsx", []string{"MARCA", "COMISION", "ALQUILER"},
		[]string{"ACME", "0.1", "500"},
		[]string{"ACME", "0.2", "100"},
		[]string{"ZETA", "abc", "100"},
		[]string{"OMEGA", "0.1", "mucho"},
	)

	_, err := ParseCatalog(tbl)
	var errs Errors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Message, "duplicate brand (first defined on row 2)")
	assert.Equal(t, "COMISION", errs[1].Column)
	assert.Equal(t, "ALQUILER", errs[2].Column)

	_, err = ParseCatalog(table("marcas.xlsx", []string{"MARCA"}))
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 2)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1000", "1000"},
		{" 2000.50 ", "2000.5"},
		{"S/ 1,234.56", "1234.56"},
		{"S/. 99", "99"},
		{"$1,000", "1000"},
		{"12,5", "12.5"},
		{"1.234,56", "1234.56"},
		{"S/ 1.234.567,8", "1234567.8"},
		{"", "0"},
		{"-300", "-300"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	_, err := ParseAmount("doce")
	assert.Error(t, err)
}

func TestParseRate(t *testing.T) {
	got, err := ParseRate("12.5%")
	require.NoError(t, err)
	assert.Equal(t, "0.125", got.String())

	got, err = ParseRate("0.1")
	require.NoError(t, err)
	assert.Equal(t, "0.1", got.String())

	_, err = ParseRate("x%")
	assert.Error(t, err)
}

func TestIsValidation(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", &Error{Source: "x", Message: "bad"})
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsValidation(fmt.Errorf("network down")))
}
