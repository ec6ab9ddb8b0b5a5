package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
	"github.com/hyeonsu-kang/docuclass/internal/core/ports"
	"github.com/hyeonsu-kang/docuclass/internal/observability/metrics"
)

// ClassifyService runs the two-task classifier over a document's latest
// OCR transcript. Every run is persisted; only non-degraded runs touch
// the document row and the audit history.
type ClassifyService struct {
	documents       ports.DocumentRepository
	ocrResults      ports.OCRResultRepository
	classifications ports.ClassificationRepository
	history         ports.HistoryRepository
	classifier      ports.TaskClassifier
	metrics         *metrics.PipelineMetrics
	service         string
	logger          *slog.Logger
	now             func() time.Time
}

func NewClassifyService(
	documents ports.DocumentRepository,
	ocrResults ports.OCRResultRepository,
	classifications ports.ClassificationRepository,
	history ports.HistoryRepository,
	classifier ports.TaskClassifier,
	pipelineMetrics *metrics.PipelineMetrics,
	service string,
	logger *slog.Logger,
) *ClassifyService {
	return &ClassifyService{
		documents:       documents,
		ocrResults:      ocrResults,
		classifications: classifications,
		history:         history,
		classifier:      classifier,
		metrics:         pipelineMetrics,
		service:         service,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *ClassifyService) ClassifyByID(ctx context.Context, documentID int64, withProbabilities bool) (*domain.ClassificationResult, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, doc, withProbabilities)
}

func (s *ClassifyService) ClassifyByPath(ctx context.Context, path string, withProbabilities bool) (*domain.ClassificationResult, error) {
	doc, err := s.documents.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, doc, withProbabilities)
}

func (s *ClassifyService) run(ctx context.Context, doc *domain.Document, withProbabilities bool) (result *domain.ClassificationResult, err error) {
	if !doc.OCRDone {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ClassifyService.run",
			fmt.Errorf("document %d has not been through OCR", doc.ID))
	}
	if !doc.Status.CanTransition(domain.StatusClassified) {
		return nil, domain.WrapError(domain.ErrIllegalTransition, "ClassifyService.run",
			fmt.Errorf("%s -> %s", doc.Status, domain.StatusClassified))
	}

	ocr, err := s.ocrResults.LatestByDocumentID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(ocr.FullText) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ClassifyService.run",
			fmt.Errorf("document %d has an empty transcript", doc.ID))
	}

	start := time.Now()
	s.metrics.StartStage()
	defer func() {
		s.metrics.FinishStage(s.service, "classify", time.Since(start), err)
	}()

	cls, err := s.classifyScoped(ctx, ocr.FullText, withProbabilities)
	if err != nil {
		return nil, err
	}

	result = &domain.ClassificationResult{
		DocumentID:     doc.ID,
		Classification: cls,
		ProcessingMS:   time.Since(start).Milliseconds(),
	}
	if err = s.classifications.Insert(ctx, result); err != nil {
		return nil, err
	}

	if cls.Degraded() {
		// The attempt is recorded but the document stays as it was: not
		// classified, prior labels intact, no audit entry.
		s.logger.Warn("classification degraded", "doc_id", doc.ID, "model_error", cls.ModelError)
		return result, nil
	}

	kind, changed := domain.HistoryKindFor(doc, cls)

	if err = s.documents.SaveClassification(ctx, doc.ID, cls, s.now()); err != nil {
		return nil, err
	}

	if changed {
		entry := &domain.HistoryEntry{
			DocumentID:       doc.ID,
			Filename:         doc.Filename,
			Path:             doc.Path,
			PrevAgency:       doc.Agency,
			PrevDocumentType: doc.DocumentType,
			NewAgency:        cls.Agency.Label,
			NewDocumentType:  cls.DocumentType.Label,
			Kind:             kind,
		}
		if err = s.history.Append(ctx, entry); err != nil {
			return nil, err
		}
	}

	s.logger.Info("classification completed",
		"doc_id", doc.ID,
		"agency", cls.Agency.Label,
		"document_type", cls.DocumentType.Label,
		"changed", changed,
	)
	return result, nil
}

// classifyScoped keeps the model resident only for the prediction and
// releases it regardless of outcome.
func (s *ClassifyService) classifyScoped(ctx context.Context, text string, withProbabilities bool) (domain.Classification, error) {
	defer s.classifier.Cleanup(context.WithoutCancel(ctx))
	return s.classifier.Predict(ctx, text, withProbabilities)
}
