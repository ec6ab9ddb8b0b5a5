package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
	"github.com/hyeonsu-kang/docuclass/internal/core/ports"
)

// TaxonomyService drives LLM category generation over OCR'd documents.
// A document whose generation fails gets the fallback category instead
// of failing the whole run.
type TaxonomyService struct {
	documents  ports.DocumentRepository
	ocrResults ports.OCRResultRepository
	generator  ports.CategoryGenerator
	logger     *slog.Logger
}

func NewTaxonomyService(
	documents ports.DocumentRepository,
	ocrResults ports.OCRResultRepository,
	generator ports.CategoryGenerator,
	logger *slog.Logger,
) *TaxonomyService {
	return &TaxonomyService{
		documents:  documents,
		ocrResults: ocrResults,
		generator:  generator,
		logger:     logger,
	}
}

// Generate categorizes the given paths, or every OCR'd document when no
// paths are given.
func (s *TaxonomyService) Generate(ctx context.Context, depth int, paths []string) (*domain.TaxonomyResult, error) {
	if depth < domain.TaxonomyMinDepth || depth > domain.TaxonomyMaxDepth {
		return nil, domain.WrapError(domain.ErrInvalidInput, "TaxonomyService.Generate",
			fmt.Errorf("depth %d out of range [%d,%d]", depth, domain.TaxonomyMinDepth, domain.TaxonomyMaxDepth))
	}

	docs, err := s.targets(ctx, paths)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "TaxonomyService.Generate",
			fmt.Errorf("no documents with a transcript to categorize"))
	}

	assignments := make([]domain.CategoryAssignment, 0, len(docs))
	for _, doc := range docs {
		assignments = append(assignments, s.assign(ctx, doc, depth))
	}

	return &domain.TaxonomyResult{
		Depth:       depth,
		Assignments: assignments,
		Tree:        domain.BuildCategoryTree(assignments),
	}, nil
}

func (s *TaxonomyService) targets(ctx context.Context, paths []string) ([]domain.Document, error) {
	if len(paths) > 0 {
		docs := make([]domain.Document, 0, len(paths))
		for _, p := range paths {
			doc, err := s.documents.GetByPath(ctx, p)
			if err != nil {
				return nil, err
			}
			docs = append(docs, *doc)
		}
		return docs, nil
	}

	all, err := s.documents.List(ctx)
	if err != nil {
		return nil, err
	}
	docs := all[:0]
	for _, doc := range all {
		if doc.OCRDone {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *TaxonomyService) assign(ctx context.Context, doc domain.Document, depth int) domain.CategoryAssignment {
	fallback := domain.CategoryAssignment{
		Path:     doc.Path,
		Category: domain.FallbackCategory,
		Fallback: true,
	}

	if !doc.OCRDone {
		s.logger.Warn("document skipped taxonomy, no transcript", "doc_id", doc.ID)
		return fallback
	}
	ocr, err := s.ocrResults.LatestByDocumentID(ctx, doc.ID)
	if err != nil {
		s.logger.Warn("transcript lookup failed", "doc_id", doc.ID, "error", err)
		return fallback
	}

	assignment, err := s.generator.Generate(ctx, ocr.FullText, depth)
	if err != nil {
		s.logger.Warn("category generation failed", "doc_id", doc.ID, "error", err)
		return fallback
	}
	assignment.Path = doc.Path
	return assignment
}
