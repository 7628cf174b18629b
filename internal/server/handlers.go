package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/brandpayout/brand-report/internal/converter"
	"github.com/brandpayout/brand-report/internal/logger"
	"github.com/brandpayout/brand-report/internal/validation"
	"github.com/brandpayout/brand-report/internal/xlsxwriter"
	"github.com/gin-gonic/gin"
)

// Multipart field names of the upload form.
const (
	FieldSales   = "ventas"
	FieldCatalog = "marcas"
)

// MissingFilesMessage is shown until both spreadsheets are supplied.
const MissingFilesMessage = "Por favor, carga ambos archivos para generar el reporte."

type handlers struct {
	server *Server
}

// Index serves the upload form.
// GET /
func (h *handlers) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index", gin.H{
		"SalesField":   FieldSales,
		"CatalogField": FieldCatalog,
		"Hint":         MissingFilesMessage,
	})
}

// Health handles liveness probe.
// GET /healthz
func (h *handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// CreateReport generates a report from the two uploaded spreadsheets and
// returns it as a download.
// POST /reports
func (h *handlers) CreateReport(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.server.maxUploadBytes())

	salesHeader, salesErr := c.FormFile(FieldSales)
	catalogHeader, catalogErr := c.FormFile(FieldCatalog)

	var tooLarge *http.MaxBytesError
	if errors.As(salesErr, &tooLarge) || errors.As(catalogErr, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"message": fmt.Sprintf("Los archivos superan el límite de %d MB.", h.server.maxUploadBytes()>>20),
		})
		return
	}
	if salesErr != nil || catalogErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": MissingFilesMessage})
		return
	}

	salesFile, err := salesHeader.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("open upload %q: %w", salesHeader.Filename, err))
		return
	}
	defer salesFile.Close()

	catalogFile, err := catalogHeader.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("open upload %q: %w", catalogHeader.Filename, err))
		return
	}
	defer catalogFile.Close()

	sales := converter.Input{Name: salesHeader.Filename, Reader: salesFile}
	catalog := converter.Input{Name: catalogHeader.Filename, Reader: catalogFile}

	result, err := h.server.generator.Run(c.Request.Context(), sales, catalog)
	if err != nil {
		h.fail(c, err)
		return
	}

	log.Info().
		Str("run_id", result.RunID).
		Int("brands", result.Stats.Brands).
		Int("bytes", len(result.Report)).
		Msg("report served")

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.server.fileName))
	c.Header("X-Run-ID", result.RunID)
	c.Header("Content-Length", strconv.Itoa(len(result.Report)))
	c.Data(http.StatusOK, xlsxwriter.ContentType, result.Report)
}

// fail maps a generation error to a JSON response. Input problems are the
// user's to fix and are reported in full; anything else is logged and hidden.
func (h *handlers) fail(c *gin.Context, err error) {
	var verrs validation.Errors
	var verr *validation.Error

	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "Los archivos cargados no son válidos.",
			"errors":  errorDetails(verrs),
		})
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "Los archivos cargados no son válidos.",
			"errors":  errorDetails(validation.Errors{verr}),
		})
	case errors.Is(err, xlsxwriter.ErrNoRecords):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "Ninguna venta cumple los filtros; no hay nada que reportar.",
		})
	default:
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Msg("report generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"message":    "Internal server error",
			"request_id": c.GetString("request_id"),
		})
	}
}

func errorDetails(errs validation.Errors) []gin.H {
	details := make([]gin.H, 0, len(errs))
	for _, e := range errs {
		d := gin.H{"source": e.Source, "message": e.Message}
		if e.Row > 0 {
			d["row"] = e.Row
		}
		if e.Column != "" {
			d["column"] = e.Column
		}
		if e.Value != "" {
			d["value"] = e.Value
		}
		details = append(details, d)
	}
	return details
}

const indexHTML = `<!DOCTYPE html>
<html lang="es">
<head>
  <meta charset="utf-8">
  <title>Reporte de marcas</title>
</head>
<body>
  <h1>Aplicación para cargar y procesar archivos de Excel</h1>
  <form method="post" action="/reports" enctype="multipart/form-data">
    <p>
      <label for="{{.SalesField}}">Sube el archivo de ventas.</label>
      <input type="file" id="{{.SalesField}}" name="{{.SalesField}}" accept=".xlsx,.csv" required>
    </p>
    <p>
      <label for="{{.CatalogField}}">Sube el listado de marcas.</label>
      <input type="file" id="{{.CatalogField}}" name="{{.CatalogField}}" accept=".xlsx,.csv" required>
    </p>
    <p>{{.Hint}}</p>
    <button type="submit">Generar Reporte</button>
  </form>
</body>
</html>
`
