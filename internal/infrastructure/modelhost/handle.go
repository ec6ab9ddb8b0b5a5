package modelhost

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

// Model is a heavyweight backend (OCR engine, classifier) that must be
// explicitly loaded before use and released afterwards.
type Model interface {
	Name() string
	Load(ctx context.Context) error
	Release(ctx context.Context) error
}

// Handle manages one model's load/release lifecycle. EnsureLoaded is
// idempotent; once a load fails the failure sticks until Cleanup runs,
// so a pipeline stage does not retry the load on every page. Cleanup is
// safe to call repeatedly and resets the failure so the next stage gets
// a fresh attempt.
type Handle struct {
	model  Model
	logger *slog.Logger

	mu      sync.Mutex
	loaded  bool
	loadErr error
}

func NewHandle(model Model, logger *slog.Logger) *Handle {
	return &Handle{model: model, logger: logger}
}

func (h *Handle) EnsureLoaded(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.loaded {
		return nil
	}
	if h.loadErr != nil {
		return domain.WrapError(domain.ErrModelUnavailable, "modelhost.EnsureLoaded", h.loadErr)
	}

	if err := h.model.Load(ctx); err != nil {
		h.loadErr = err
		h.logger.Error("model load failed", "model", h.model.Name(), "error", err)
		return domain.WrapError(domain.ErrModelUnavailable, "modelhost.EnsureLoaded", err)
	}
	h.loaded = true
	h.logger.Info("model loaded", "model", h.model.Name())
	return nil
}

func (h *Handle) Cleanup(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.loaded {
		if err := h.model.Release(ctx); err != nil {
			h.logger.Warn("model release failed", "model", h.model.Name(), "error", err)
		} else {
			h.logger.Info("model released", "model", h.model.Name())
		}
	}
	h.loaded = false
	h.loadErr = nil
}

// Loaded reports whether the model is currently resident.
func (h *Handle) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loaded
}

// Scoped runs fn with the model loaded and releases it on every exit
// path, fn errors and panics included.
func (h *Handle) Scoped(ctx context.Context, fn func(context.Context) error) error {
	defer h.Cleanup(context.WithoutCancel(ctx))

	if err := h.EnsureLoaded(ctx); err != nil {
		return err
	}
	return fn(ctx)
}
