package usecase

import (
	"context"
	"log/slog"
)

// ProcessService is the worker-side orchestrator: OCR then
// classification for one ingested document.
type ProcessService struct {
	ocr      *OCRService
	classify *ClassifyService
	logger   *slog.Logger
}

func NewProcessService(ocr *OCRService, classify *ClassifyService, logger *slog.Logger) *ProcessService {
	return &ProcessService{ocr: ocr, classify: classify, logger: logger}
}

func (s *ProcessService) ProcessByID(ctx context.Context, documentID int64) error {
	if _, err := s.ocr.runByID(ctx, documentID); err != nil {
		return err
	}

	result, err := s.classify.ClassifyByID(ctx, documentID, false)
	if err != nil {
		return err
	}
	if result.Degraded() {
		s.logger.Warn("pipeline finished degraded", "doc_id", documentID)
		return nil
	}

	s.logger.Info("pipeline completed",
		"doc_id", documentID,
		"agency", result.Agency.Label,
		"document_type", result.DocumentType.Label,
	)
	return nil
}
