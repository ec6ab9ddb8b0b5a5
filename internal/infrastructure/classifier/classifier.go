// Package classifier runs the two-task document classifier against its
// model sidecar. The sidecar returns raw logits; label mapping, softmax
// and top-k selection happen here so results stay reproducible across
// sidecar versions.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/modelhost"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/resilience"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/sidecar"
)

type Config struct {
	BaseURL   string
	ModelID   string
	MaxLength int
	Timeout   time.Duration
}

type Classifier struct {
	client    *sidecar.Client
	handle    *modelhost.Handle
	executor  *resilience.Executor
	logger    *slog.Logger
	mappings  map[string]LabelMapping
	modelID   string
	maxLength int
}

func New(cfg Config, mappings map[string]LabelMapping, executor *resilience.Executor, logger *slog.Logger) *Classifier {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 512
	}
	client := sidecar.NewClient(cfg.BaseURL, cfg.Timeout)
	c := &Classifier{
		client:    client,
		executor:  executor,
		logger:    logger,
		mappings:  mappings,
		modelID:   cfg.ModelID,
		maxLength: cfg.MaxLength,
	}
	c.handle = modelhost.NewHandle(&sidecarModel{client: client, modelID: cfg.ModelID}, logger)
	return c
}

func (c *Classifier) EnsureLoaded(ctx context.Context) error {
	return c.handle.EnsureLoaded(ctx)
}

func (c *Classifier) Cleanup(ctx context.Context) {
	c.handle.Cleanup(ctx)
}

type logitsRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

type logitsResponse struct {
	Logits map[string][]float64 `json:"logits"`
}

// Predict classifies the text for both tasks. When the model cannot be
// loaded it returns the sentinel degraded classification instead of an
// error, so callers can persist the attempt and move on.
func (c *Classifier) Predict(ctx context.Context, text string, withProbabilities bool) (domain.Classification, error) {
	if err := c.handle.EnsureLoaded(ctx); err != nil {
		if domain.IsKind(err, domain.ErrModelUnavailable) {
			c.logger.Warn("classifier unavailable, returning degraded result", "error", err)
			return c.degraded(err), nil
		}
		return domain.Classification{}, err
	}

	var out logitsResponse
	err := c.executor.Execute(ctx, "classifier.logits", func(ctx context.Context) error {
		out = logitsResponse{}
		return c.client.PostJSON(ctx, "/v1/logits", logitsRequest{Text: text, MaxLength: c.maxLength}, &out)
	}, classifyTransportError)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classifier logits: %w", err)
	}

	cls := domain.Classification{ModelID: c.modelID}
	for _, task := range []string{domain.TaskAgency, domain.TaskDocumentType} {
		mapping := c.mappings[task]
		logits, ok := out.Logits[task]
		if !ok || len(logits) != mapping.NumLabels {
			return domain.Classification{}, fmt.Errorf("classifier returned %d logits for task %q, want %d", len(logits), task, mapping.NumLabels)
		}
		pred := predictTask(logits, mapping, withProbabilities)
		switch task {
		case domain.TaskAgency:
			cls.Agency = pred
		case domain.TaskDocumentType:
			cls.DocumentType = pred
		}
	}
	return cls, nil
}

func (c *Classifier) degraded(cause error) domain.Classification {
	sentinel := domain.TaskPrediction{Label: domain.UnknownLabel, Confidence: 0.0}
	return domain.Classification{
		Agency:       sentinel,
		DocumentType: sentinel,
		ModelID:      c.modelID,
		ModelError:   cause.Error(),
	}
}

type sidecarModel struct {
	client  *sidecar.Client
	modelID string
}

func (m *sidecarModel) Name() string { return m.modelID }

func (m *sidecarModel) Load(ctx context.Context) error {
	return m.client.Load(ctx, map[string]string{"model_id": m.modelID})
}

func (m *sidecarModel) Release(ctx context.Context) error {
	return m.client.Unload(ctx)
}

func classifyTransportError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
