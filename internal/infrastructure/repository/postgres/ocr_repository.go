package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

type OCRResultRepository struct {
	db *sql.DB
}

func NewOCRResultRepository(db *sql.DB) *OCRResultRepository {
	return &OCRResultRepository{db: db}
}

func (r *OCRResultRepository) Insert(ctx context.Context, result *domain.OCRResult) error {
	payload, err := json.Marshal(domain.PagePayload{
		Version: domain.PagePayloadVersion,
		Pages:   result.Pages,
	})
	if err != nil {
		return fmt.Errorf("marshal page data: %w", err)
	}

	query := `
		INSERT INTO ocr_results (document_id, full_text, page_data, ocr_engine, processing_ms)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		result.DocumentID, result.FullText, payload, result.Engine, result.ProcessingMS,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "OCRResultRepository.Insert", err)
	}
	return nil
}

func (r *OCRResultRepository) LatestByDocumentID(ctx context.Context, documentID int64) (*domain.OCRResult, error) {
	query := `
		SELECT id, document_id, full_text, page_data, ocr_engine, processing_ms, created_at
		FROM ocr_results
		WHERE document_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var result domain.OCRResult
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, documentID).Scan(
		&result.ID, &result.DocumentID, &result.FullText, &payload,
		&result.Engine, &result.ProcessingMS, &result.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrOCRResultNotFound, "OCRResultRepository.LatestByDocumentID", err)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "OCRResultRepository.LatestByDocumentID", err)
	}

	var pages domain.PagePayload
	if err := json.Unmarshal(payload, &pages); err != nil {
		return nil, fmt.Errorf("unmarshal page data: %w", err)
	}
	result.Pages = pages.Pages
	return &result, nil
}
