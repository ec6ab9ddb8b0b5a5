// Package bootstrap assembles the application graph shared by the api
// and worker binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	httpadapter "github.com/hyeonsu-kang/docuclass/internal/adapters/http"
	"github.com/hyeonsu-kang/docuclass/internal/config"
	"github.com/hyeonsu-kang/docuclass/internal/core/ports"
	"github.com/hyeonsu-kang/docuclass/internal/core/usecase"
	"github.com/hyeonsu-kang/docuclass/internal/export"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/archive"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/classifier"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/llm/ollama"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/ocrengine"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/pagerender"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/pdfinfo"
	natsqueue "github.com/hyeonsu-kang/docuclass/internal/infrastructure/queue/nats"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/repository/postgres"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/resilience"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/storage/localfs"
	"github.com/hyeonsu-kang/docuclass/internal/observability/metrics"
)

// App is the wired application. The api binary serves Handler; the
// worker binary consumes Queue with Processor.
type App struct {
	Handler         http.Handler
	Processor       ports.DocumentProcessor
	Queue           ports.MessageQueue
	HTTPMetrics     *metrics.HTTPServerMetrics
	PipelineMetrics *metrics.PipelineMetrics

	db     *sql.DB
	queue  *natsqueue.Queue
	logger *slog.Logger
}

func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		db.Close()
		return nil, err
	}

	queue, err := natsqueue.Connect(natsqueue.Config{
		URL:     cfg.NATSURL,
		Subject: cfg.NATSSubject,
	}, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	mappings, err := classifier.LoadLabelMappings(cfg.LabelMapPath)
	if err != nil {
		queue.Close()
		db.Close()
		return nil, fmt.Errorf("load label mappings: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	engine := ocrengine.New(ocrengine.Config{
		BaseURL: cfg.OCREngineURL,
		Timeout: cfg.OCRTimeout,
	}, executor, logger)

	taskClassifier := classifier.New(classifier.Config{
		BaseURL:   cfg.ClassifierURL,
		ModelID:   cfg.ClassifierID,
		MaxLength: cfg.ClassifyMaxLen,
	}, mappings, executor, logger)

	generator, err := ollama.NewClient(ollama.Config{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaModel,
		Timeout: cfg.OllamaTimeout,
	}, executor, logger)
	if err != nil {
		queue.Close()
		db.Close()
		return nil, err
	}

	documents := postgres.NewDocumentRepository(db)
	ocrResults := postgres.NewOCRResultRepository(db)
	classifications := postgres.NewClassificationRepository(db)
	history := postgres.NewHistoryRepository(db)

	pipelineMetrics := metrics.NewPipelineMetrics(service)
	httpMetrics := metrics.NewHTTPServerMetrics(service)

	renderer := pagerender.New(cfg.PdftoppmPath, cfg.RenderDPI, "")
	counter := pdfinfo.NewCounter()
	walker := archive.NewZipWalker()

	ingest := usecase.NewIngestService(documents, storage, walker, counter, queue, logger)
	ocr := usecase.NewOCRService(documents, ocrResults, storage, renderer, engine, counter, pipelineMetrics, service, logger)
	classify := usecase.NewClassifyService(documents, ocrResults, classifications, history, taskClassifier, pipelineMetrics, service, logger)
	taxonomy := usecase.NewTaxonomyService(documents, ocrResults, generator, logger)
	docs := usecase.NewDocumentService(documents, history, storage, logger)
	processor := usecase.NewProcessService(ocr, classify, logger)
	exporter := export.NewService(documents)

	server := httpadapter.NewServer(httpadapter.Options{
		Ingestor:         ingest,
		Reader:           docs,
		Remover:          docs,
		OCR:              ocr,
		Classify:         classify,
		Taxonomy:         taxonomy,
		History:          history,
		Stats:            documents,
		Exporter:         exporter,
		Logger:           logger,
		TextPreviewChars: cfg.TextPreviewChars,
	})

	handler := server.Handler(httpMetrics, httpadapter.LimitConfig{
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxConcurrent:  cfg.APIMaxConcurrent,
	})

	return &App{
		Handler:         handler,
		Processor:       processor,
		Queue:           queue,
		HTTPMetrics:     httpMetrics,
		PipelineMetrics: pipelineMetrics,
		db:              db,
		queue:           queue,
		logger:          logger,
	}, nil
}

func (a *App) Close() {
	a.queue.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
}
