// Package http exposes the ingestion and pipeline operations over REST.
package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/hyeonsu-kang/docuclass/internal/core/ports"
	"github.com/hyeonsu-kang/docuclass/internal/observability/metrics"
)

// XLSXWriter streams the stats workbook.
type XLSXWriter interface {
	WriteXLSX(ctx context.Context, w io.Writer) error
}

type Server struct {
	ingestor   ports.DocumentIngestor
	reader     ports.DocumentReader
	remover    ports.DocumentRemover
	ocr        ports.OCRService
	classify   ports.ClassificationService
	taxonomy   ports.TaxonomyService
	history    ports.HistoryRepository
	stats      ports.StatsReader
	exporter   XLSXWriter
	logger     *slog.Logger
	previewLen int
}

type Options struct {
	Ingestor ports.DocumentIngestor
	Reader   ports.DocumentReader
	Remover  ports.DocumentRemover
	OCR      ports.OCRService
	Classify ports.ClassificationService
	Taxonomy ports.TaxonomyService
	History  ports.HistoryRepository
	Stats    ports.StatsReader
	Exporter XLSXWriter
	Logger   *slog.Logger

	// TextPreviewChars caps the transcript preview in OCR responses.
	TextPreviewChars int
}

func NewServer(opts Options) *Server {
	previewLen := opts.TextPreviewChars
	if previewLen <= 0 {
		previewLen = 500
	}
	return &Server{
		ingestor:   opts.Ingestor,
		reader:     opts.Reader,
		remover:    opts.Remover,
		ocr:        opts.OCR,
		classify:   opts.Classify,
		taxonomy:   opts.Taxonomy,
		history:    opts.History,
		stats:      opts.Stats,
		exporter:   opts.Exporter,
		logger:     opts.Logger,
		previewLen: previewLen,
	}
}

// Handler builds the routed handler with the middleware chain applied.
func (s *Server) Handler(httpMetrics *metrics.HTTPServerMetrics, limits LimitConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /v1/documents", s.handleUpload)
	mux.HandleFunc("GET /v1/documents", s.handleListDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("DELETE /v1/documents", s.handleDeleteDocument)

	mux.HandleFunc("POST /v1/documents/ocr", s.handleOCR)
	mux.HandleFunc("POST /v1/documents/classify", s.handleClassify)
	mux.HandleFunc("POST /v1/taxonomy", s.handleTaxonomy)

	mux.HandleFunc("GET /v1/history", s.handleHistory)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/stats/export", s.handleStatsExport)

	var handler http.Handler = mux
	handler = s.backpressure(limits, handler)
	handler = s.rateLimit(limits, handler)
	handler = s.accessLog(handler)
	handler = requestID(handler)
	if httpMetrics != nil {
		handler = httpMetrics.Middleware("api", handler)
	}
	return handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func previewText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
