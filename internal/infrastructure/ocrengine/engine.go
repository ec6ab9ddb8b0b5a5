// Package ocrengine implements page-level text recognition against the
// OCR model sidecar.
package ocrengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/modelhost"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/resilience"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/sidecar"
)

const engineID = "paddleocr-vl"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Engine recognizes one page image at a time. The underlying model is
// loaded on first use of a pipeline scope and released on Cleanup.
type Engine struct {
	client   *sidecar.Client
	handle   *modelhost.Handle
	executor *resilience.Executor
	logger   *slog.Logger
}

func New(cfg Config, executor *resilience.Executor, logger *slog.Logger) *Engine {
	client := sidecar.NewClient(cfg.BaseURL, cfg.Timeout)
	e := &Engine{
		client:   client,
		executor: executor,
		logger:   logger,
	}
	e.handle = modelhost.NewHandle(&sidecarModel{client: client}, logger)
	return e
}

func (e *Engine) EnsureLoaded(ctx context.Context) error {
	return e.handle.EnsureLoaded(ctx)
}

func (e *Engine) Cleanup(ctx context.Context) {
	e.handle.Cleanup(ctx)
}

func (e *Engine) EngineID() string {
	return engineID
}

type recognizeRequest struct {
	ImagePath string `json:"image_path"`
}

type recognizeResponse struct {
	Text string `json:"text"`
}

func (e *Engine) Recognize(ctx context.Context, imagePath string) (string, error) {
	var out recognizeResponse
	err := e.executor.Execute(ctx, "ocr.recognize", func(ctx context.Context) error {
		out = recognizeResponse{}
		return e.client.PostJSON(ctx, "/v1/predict", recognizeRequest{ImagePath: imagePath}, &out)
	}, classifyTransportError)
	if err != nil {
		return "", fmt.Errorf("recognize page image: %w", err)
	}
	return out.Text, nil
}

type sidecarModel struct {
	client *sidecar.Client
}

func (m *sidecarModel) Name() string { return engineID }

func (m *sidecarModel) Load(ctx context.Context) error {
	return m.client.Load(ctx, struct{}{})
}

func (m *sidecarModel) Release(ctx context.Context) error {
	return m.client.Unload(ctx)
}

func classifyTransportError(err error) resilience.ErrorClassification {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
