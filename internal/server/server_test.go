package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brandpayout/brand-report/internal/classifier"
	"github.com/brandpayout/brand-report/internal/config"
	"github.com/brandpayout/brand-report/internal/converter"
	"github.com/brandpayout/brand-report/internal/xlsxwriter"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) []byte {
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
	return buf.Bytes()
}

func salesFile(t *testing.T) []byte {
	return workbook(t, [][]any{
		{"REPORTE DE VENTAS"},
		{"Enero 2024"},
		{"Fecha de emisión", "Tipo de comprobante", "Estado del documento", "Estado", "Nombre", "Total"},
		{"02/01/2024", "Boleta", "Emitido", "Aceptado", "Polo ACME", 1000},
		{"03/01/2024", "Factura", "Emitido", "Aceptado", "Casaca ACME", 2000},
	})
}

func catalogFile(t *testing.T) []byte {
	return workbook(t, [][]any{
		{"MARCA", "COMISION", "ALQUILER"},
		{"ACME", 0.1, 500},
	})
}

// upload builds a multipart request with the given files keyed by field.
func upload(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, data := range files {
		part, err := w.CreateFormFile(field, field+".xlsx")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/reports", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	conv, err := converter.New(config.Default(), &classifier.StaticClassifier{Default: "ACME"}, zerolog.Nop())
	require.NoError(t, err)
	return New(conv, config.Default().Server, "", zerolog.Nop())
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestCreateReport(t *testing.T) {
	rec := serve(newTestServer(t), upload(t, map[string][]byte{
		FieldSales:   salesFile(t),
		FieldCatalog: catalogFile(t),
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxwriter.ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="reporte_marcas.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("ACME")
	require.NoError(t, err)
	assert.Equal(t, []string{"3000", "500", "300", "2200"}, rows[6])
}

func TestCreateReport_MissingFile(t *testing.T) {
	rec := serve(newTestServer(t), upload(t, map[string][]byte{
		FieldSales: salesFile(t),
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), MissingFilesMessage)
}

func TestCreateReport_TooLarge(t *testing.T) {
	conv, err := converter.New(config.Default(), &classifier.StaticClassifier{Default: "ACME"}, zerolog.Nop())
	require.NoError(t, err)
	cfg := config.Default().Server
	cfg.MaxUploadMB = 1
	s := New(conv, cfg, "", zerolog.Nop())

	rec := serve(s, upload(t, map[string][]byte{
		FieldSales:   bytes.Repeat([]byte{'x'}, 2<<20),
		FieldCatalog: catalogFile(t),
	}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "1 MB")
}

func TestCreateReport_ValidationError(t *testing.T) {
	badCatalog := workbook(t, [][]any{{"MARCA", "ALQUILER"}, {"ACME", 500}})

	rec := serve(newTestServer(t), upload(t, map[string][]byte{
		FieldSales:   salesFile(t),
		FieldCatalog: badCatalog,
	}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Message string `json:"message"`
		Errors  []struct {
			Source string `json:"source"`
			Column string `json:"column"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "marcas.xlsx", body.Errors[0].Source)
	assert.Equal(t, "COMISION", body.Errors[0].Column)
}

type failingGenerator struct{}

func (failingGenerator) Run(context.Context, converter.Input, converter.Input) (*converter.Result, error) {
	return nil, errors.New("disk full")
}

func TestCreateReport_InternalError(t *testing.T) {
	s := New(failingGenerator{}, config.Default().Server, "", zerolog.Nop())
	rec := serve(s, upload(t, map[string][]byte{
		FieldSales:   []byte("a"),
		FieldCatalog: []byte("b"),
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk full")
}

type noRecordsGenerator struct{}

func (noRecordsGenerator) Run(context.Context, converter.Input, converter.Input) (*converter.Result, error) {
	return nil, xlsxwriter.ErrNoRecords
}

func TestCreateReport_NothingToReport(t *testing.T) {
	s := New(noRecordsGenerator{}, config.Default().Server, "", zerolog.Nop())
	rec := serve(s, upload(t, map[string][]byte{
		FieldSales:   []byte("a"),
		FieldCatalog: []byte("b"),
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestIndexAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="ventas"`)
	assert.Contains(t, rec.Body.String(), `name="marcas"`)
	assert.Contains(t, rec.Body.String(), "Generar Reporte")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRecovery(t *testing.T) {
	s := New(panicGenerator{}, config.Default().Server, "", zerolog.Nop())
	rec := serve(s, upload(t, map[string][]byte{
		FieldSales:   []byte("a"),
		FieldCatalog: []byte("b"),
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panicGenerator struct{}

func (panicGenerator) Run(context.Context, converter.Input, converter.Input) (*converter.Result, error) {
	panic("boom")
}

func TestRouter_KeepsGinMode(t *testing.T) {
	prev := gin.Mode()
	gin.SetMode(gin.TestMode)
	t.Cleanup(func() { gin.SetMode(prev) })

	newTestServer(t).Router()
	assert.Equal(t, gin.TestMode, gin.Mode())
}
