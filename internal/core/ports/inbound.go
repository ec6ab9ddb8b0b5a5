package ports

import (
	"context"
	"io"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

// DocumentIngestor is the inbound contract for PDF/ZIP upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.UploadResult, error)
}

// OCRService runs the OCR stage for a stored document.
type OCRService interface {
	RunByPath(ctx context.Context, path string) (*domain.OCRResult, error)
}

// ClassificationService runs the two-task classification stage.
type ClassificationService interface {
	ClassifyByID(ctx context.Context, documentID int64, withProbabilities bool) (*domain.ClassificationResult, error)
	ClassifyByPath(ctx context.Context, path string, withProbabilities bool) (*domain.ClassificationResult, error)
}

// TaxonomyService generates an LLM-driven category hierarchy over OCR'd
// documents.
type TaxonomyService interface {
	Generate(ctx context.Context, depth int, paths []string) (*domain.TaxonomyResult, error)
}

// DocumentProcessor is the inbound contract for asynchronous pipeline runs
// (OCR followed by classification for one document).
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID int64) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
}

// DocumentRemover deletes a document, its dependent rows and its stored file.
type DocumentRemover interface {
	RemoveByPath(ctx context.Context, path string) error
}
