package domain

import "time"

// The two fixed classification tasks: issuing agency and document type.
const (
	TaskAgency       = "기관"
	TaskDocumentType = "문서유형"
)

// UnknownLabel is the sentinel prediction when the classifier model could not
// be loaded. It is persisted with a model error marker but never denormalized
// onto the document row.
const UnknownLabel = "Unknown"

type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// TaskPrediction is one head's output. Confidence equals the softmax
// probability at the predicted label. TopK, when present, holds
// min(5, num_labels) entries sorted by descending score, ties broken by the
// lower class index.
type TaskPrediction struct {
	Label      string       `json:"label"`
	Confidence float64      `json:"confidence"`
	TopK       []LabelScore `json:"top_k,omitempty"`
}

type Classification struct {
	Agency       TaskPrediction `json:"agency"`
	DocumentType TaskPrediction `json:"document_type"`
	ModelID      string         `json:"model_id"`
	ModelError   string         `json:"model_error,omitempty"`
}

// Degraded reports whether this is the non-throwing "could not classify"
// result produced when the model is unavailable.
func (c Classification) Degraded() bool {
	return c.ModelError != ""
}

// ClassificationPayloadVersion tags the serialized result shape.
const ClassificationPayloadVersion = 1

type ClassificationPayload struct {
	Version      int            `json:"version"`
	Agency       TaskPrediction `json:"agency"`
	DocumentType TaskPrediction `json:"document_type"`
}

// ClassificationResult is one classification run. Immutable; the latest by
// created_at drives the denormalized fields on the document row.
type ClassificationResult struct {
	ID         int64 `json:"id"`
	DocumentID int64 `json:"doc_id"`
	Classification
	ProcessingMS int64     `json:"processing_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
