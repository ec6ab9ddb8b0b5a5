package ports

import (
	"context"
	"io"
	"time"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	// CreateBatch inserts all documents in one transaction, skipping paths
	// that already exist, and returns the ids of the rows actually inserted.
	CreateBatch(ctx context.Context, docs []*domain.Document) ([]int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	GetByPath(ctx context.Context, path string) (*domain.Document, error)
	ExistsByPath(ctx context.Context, path string) (bool, error)
	List(ctx context.Context) ([]domain.Document, error)
	// UpdatePageCount corrects the stored page count when the upload-time
	// count was unavailable and the OCR stage derived the real one.
	UpdatePageCount(ctx context.Context, id int64, pages int) error
	// MarkOCRDone flips ocr_done and moves the document to the given status.
	MarkOCRDone(ctx context.Context, id int64, status domain.DocumentStatus) error
	// SaveClassification denormalizes the current labels/confidences onto the
	// document row, flips is_classified and moves it to classified.
	SaveClassification(ctx context.Context, id int64, cls domain.Classification, at time.Time) error
	// Delete removes the document; dependent OCR/classification rows cascade.
	Delete(ctx context.Context, id int64) error
}

// OCRResultRepository persists immutable OCR runs.
type OCRResultRepository interface {
	Insert(ctx context.Context, result *domain.OCRResult) error
	// LatestByDocumentID returns the authoritative (most recent) run.
	LatestByDocumentID(ctx context.Context, documentID int64) (*domain.OCRResult, error)
}

// ClassificationRepository persists immutable classification runs.
type ClassificationRepository interface {
	Insert(ctx context.Context, result *domain.ClassificationResult) error
	LatestByDocumentID(ctx context.Context, documentID int64) (*domain.ClassificationResult, error)
}

// HistoryRepository appends and lists classification audit entries.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	List(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}

// StatsReader aggregates persisted classification state.
type StatsReader interface {
	Stats(ctx context.Context) (*domain.Stats, error)
}

// ObjectStorage stores source documents and extracted archive entries under
// slash-separated keys.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	// AbsPath resolves a key to a filesystem path for tools that need one
	// (page rendering, the OCR sidecar).
	AbsPath(key string) string
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID int64) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, int64) error) error
}

// ArchiveEntryFunc receives one repaired archive entry. Entry names use
// forward slashes; open streams the entry bytes.
type ArchiveEntryFunc func(name string, dir bool, open func() (io.ReadCloser, error)) error

// ArchiveWalker enumerates archive entries in archive order, repairing
// mis-decoded filenames along the way.
type ArchiveWalker interface {
	Walk(ctx context.Context, archivePath string, fn ArchiveEntryFunc) error
}

// PageCounter reports the page count of a stored PDF.
type PageCounter interface {
	Count(ctx context.Context, pdfPath string) (int, error)
}

// PageRenderer rasterizes a single PDF page to a transient image.
type PageRenderer interface {
	RenderPage(ctx context.Context, pdfPath string, page int) (imagePath string, err error)
	Discard(imagePath string)
}

// ModelLifecycle is the scoped-acquisition surface of a managed model.
// EnsureLoaded is idempotent; Cleanup is safe to call repeatedly and must run
// on every scope exit, error paths included.
type ModelLifecycle interface {
	EnsureLoaded(ctx context.Context) error
	Cleanup(ctx context.Context)
}

// OCREngine recognizes text on one page image at a time.
type OCREngine interface {
	ModelLifecycle
	Recognize(ctx context.Context, imagePath string) (string, error)
	EngineID() string
}

// TaskClassifier runs the two-head classifier. Predict never fails on an
// unavailable model; it returns the sentinel degraded classification instead.
type TaskClassifier interface {
	ModelLifecycle
	Predict(ctx context.Context, text string, withProbabilities bool) (domain.Classification, error)
}

// CategoryGenerator asks the LLM service for a category assignment of the
// requested depth.
type CategoryGenerator interface {
	Generate(ctx context.Context, text string, depth int) (domain.CategoryAssignment, error)
}
