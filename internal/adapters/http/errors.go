package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
	"github.com/hyeonsu-kang/docuclass/internal/infrastructure/resilience"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload) //nolint:errcheck
}

// writeError maps semantic error kinds to HTTP statuses. Unknown errors
// stay opaque to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
		message = err.Error()
	case domain.IsKind(err, domain.ErrDocumentNotFound), domain.IsKind(err, domain.ErrOCRResultNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case domain.IsKind(err, domain.ErrIllegalTransition):
		status = http.StatusConflict
		message = err.Error()
	case domain.IsKind(err, domain.ErrModelUnavailable), resilience.IsCircuitOpen(err):
		status = http.StatusServiceUnavailable
		message = "model temporarily unavailable"
	case domain.IsKind(err, domain.ErrTemporary):
		status = http.StatusServiceUnavailable
		message = "temporary failure, retry later"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}

	writeJSON(w, status, map[string]string{"error": message})
}
