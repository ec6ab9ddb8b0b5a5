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

// OCRService renders and recognizes every page of a stored document,
// one page at a time. The engine model stays resident for the whole run
// and is released when the run ends, error paths included.
type OCRService struct {
	documents  ports.DocumentRepository
	ocrResults ports.OCRResultRepository
	storage    ports.ObjectStorage
	renderer   ports.PageRenderer
	engine     ports.OCREngine
	pages      ports.PageCounter
	metrics    *metrics.PipelineMetrics
	service    string
	logger     *slog.Logger
}

func NewOCRService(
	documents ports.DocumentRepository,
	ocrResults ports.OCRResultRepository,
	storage ports.ObjectStorage,
	renderer ports.PageRenderer,
	engine ports.OCREngine,
	pages ports.PageCounter,
	pipelineMetrics *metrics.PipelineMetrics,
	service string,
	logger *slog.Logger,
) *OCRService {
	return &OCRService{
		documents:  documents,
		ocrResults: ocrResults,
		storage:    storage,
		renderer:   renderer,
		engine:     engine,
		pages:      pages,
		metrics:    pipelineMetrics,
		service:    service,
		logger:     logger,
	}
}

func (s *OCRService) RunByPath(ctx context.Context, path string) (*domain.OCRResult, error) {
	doc, err := s.documents.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, doc)
}

func (s *OCRService) runByID(ctx context.Context, documentID int64) (*domain.OCRResult, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, doc)
}

func (s *OCRService) run(ctx context.Context, doc *domain.Document) (result *domain.OCRResult, err error) {
	if doc.PageCount <= 0 {
		// The upload-time count can be missing when the PDF parser choked
		// on the file; re-derive it here so the document stays processable.
		if err := s.recountPages(ctx, doc); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	s.metrics.StartStage()
	defer func() {
		s.metrics.FinishStage(s.service, "ocr", time.Since(start), err)
	}()

	if err = s.engine.EnsureLoaded(ctx); err != nil {
		s.metrics.ObserveModelLoad(s.service, s.engine.EngineID(), err)
		return nil, err
	}
	s.metrics.ObserveModelLoad(s.service, s.engine.EngineID(), nil)
	defer s.engine.Cleanup(context.WithoutCancel(ctx))

	pdfPath := s.storage.AbsPath(doc.Path)
	pages := make([]domain.PageText, 0, doc.PageCount)
	var fullText strings.Builder

	for page := 1; page <= doc.PageCount; page++ {
		text, pageErr := s.recognizePage(ctx, pdfPath, page)
		if pageErr != nil {
			// A partial transcript is worse than none; the document keeps
			// its current status and the run can be retried whole.
			err = fmt.Errorf("page %d of %d: %w", page, doc.PageCount, pageErr)
			return nil, err
		}
		pages = append(pages, domain.PageText{PageNumber: page, Text: text})
		fmt.Fprintf(&fullText, "[Page %d]\n%s\n\n", page, text)
	}
	s.metrics.AddOCRPages(s.service, len(pages))

	result = &domain.OCRResult{
		DocumentID:   doc.ID,
		FullText:     fullText.String(),
		Pages:        pages,
		Engine:       s.engine.EngineID(),
		ProcessingMS: time.Since(start).Milliseconds(),
	}
	if err = s.ocrResults.Insert(ctx, result); err != nil {
		return nil, err
	}

	// Re-running OCR on a classified document keeps the classified
	// status; only the first run moves uploaded to ocr_done.
	nextStatus := doc.Status
	if doc.Status == domain.StatusUploaded {
		nextStatus = domain.StatusOCRDone
	}
	if !doc.Status.CanTransition(nextStatus) {
		err = domain.WrapError(domain.ErrIllegalTransition, "OCRService.run",
			fmt.Errorf("%s -> %s", doc.Status, nextStatus))
		return nil, err
	}
	if err = s.documents.MarkOCRDone(ctx, doc.ID, nextStatus); err != nil {
		return nil, err
	}

	s.logger.Info("ocr completed",
		"doc_id", doc.ID,
		"pages", len(pages),
		"processing_ms", result.ProcessingMS,
	)
	return result, nil
}

// recountPages derives the real page count for a document stored with
// count zero and persists the correction.
func (s *OCRService) recountPages(ctx context.Context, doc *domain.Document) error {
	pages, err := s.pages.Count(ctx, s.storage.AbsPath(doc.Path))
	if err != nil || pages <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "OCRService.run",
			fmt.Errorf("document %d has no readable pages", doc.ID))
	}
	if err := s.documents.UpdatePageCount(ctx, doc.ID, pages); err != nil {
		return err
	}
	doc.PageCount = pages
	s.logger.Info("page count recovered", "doc_id", doc.ID, "pages", pages)
	return nil
}

// recognizePage renders one page, recognizes it and discards the image
// before moving on, so disk usage stays at a single page.
func (s *OCRService) recognizePage(ctx context.Context, pdfPath string, page int) (string, error) {
	imagePath, err := s.renderer.RenderPage(ctx, pdfPath, page)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	defer s.renderer.Discard(imagePath)

	text, err := s.engine.Recognize(ctx, imagePath)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}
