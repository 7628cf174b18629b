// Package server provides the HTTP upload and download shell.
//
// The shell performs no business logic: it accepts the two uploaded
// spreadsheets, hands them to the report generator and streams the workbook
// back as a download.
package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/brandpayout/brand-report/internal/config"
	"github.com/brandpayout/brand-report/internal/converter"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ReportGenerator runs one report generation.
type ReportGenerator interface {
	Run(ctx context.Context, sales, catalog converter.Input) (*converter.Result, error)
}

// Server serves the upload page and report endpoint.
type Server struct {
	generator ReportGenerator
	cfg       config.ServerConfig
	fileName  string
	log       zerolog.Logger
}

// New creates a server. fileName is the attachment name of the downloaded
// report.
func New(generator ReportGenerator, cfg config.ServerConfig, fileName string, log zerolog.Logger) *Server {
	if fileName == "" {
		fileName = config.DefaultReportFileName
	}
	return &Server{
		generator: generator,
		cfg:       cfg,
		fileName:  fileName,
		log:       log,
	}
}

// Router creates and configures the gin router.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = s.maxUploadBytes()
	router.SetHTMLTemplate(template.Must(template.New("index").Parse(indexHTML)))

	// Global middleware (order matters!)
	router.Use(Recovery(s.log))
	router.Use(Logger(s.log))

	h := &handlers{server: s}
	router.GET("/", h.Index)
	router.GET("/healthz", h.Health)
	router.POST("/reports", h.CreateReport)

	return router
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server...")

	// Report generation classifies row by row; give running requests time to
	// finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	s.log.Info().Msg("server stopped")
	return nil
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = config.DefaultMaxUploadMB
	}
	return mb << 20
}
