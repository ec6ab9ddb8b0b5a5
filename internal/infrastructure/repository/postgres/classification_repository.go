package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

type ClassificationRepository struct {
	db *sql.DB
}

func NewClassificationRepository(db *sql.DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

func (r *ClassificationRepository) Insert(ctx context.Context, result *domain.ClassificationResult) error {
	payload, err := json.Marshal(domain.ClassificationPayload{
		Version:      domain.ClassificationPayloadVersion,
		Agency:       result.Agency,
		DocumentType: result.DocumentType,
	})
	if err != nil {
		return fmt.Errorf("marshal result data: %w", err)
	}

	query := `
		INSERT INTO classification_results (document_id, result_data, model_id, model_error)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		result.DocumentID, payload, result.ModelID, result.ModelError,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "ClassificationRepository.Insert", err)
	}
	return nil
}

func (r *ClassificationRepository) LatestByDocumentID(ctx context.Context, documentID int64) (*domain.ClassificationResult, error) {
	query := `
		SELECT id, document_id, result_data, model_id, model_error, created_at
		FROM classification_results
		WHERE document_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var result domain.ClassificationResult
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, documentID).Scan(
		&result.ID, &result.DocumentID, &payload, &result.ModelID, &result.ModelError, &result.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "ClassificationRepository.LatestByDocumentID", err)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "ClassificationRepository.LatestByDocumentID", err)
	}

	var data domain.ClassificationPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("unmarshal result data: %w", err)
	}
	result.Agency = data.Agency
	result.DocumentType = data.DocumentType
	return &result, nil
}
