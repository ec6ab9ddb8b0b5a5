package postgres

import (
	"context"
	"database/sql"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	query := `
		INSERT INTO classification_history
			(document_id, filename, path, prev_agency, prev_document_type, new_agency, new_document_type, change_kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		entry.DocumentID, entry.Filename, entry.Path,
		entry.PrevAgency, entry.PrevDocumentType,
		entry.NewAgency, entry.NewDocumentType,
		entry.Kind,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "HistoryRepository.Append", err)
	}
	return nil
}

func (r *HistoryRepository) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, document_id, filename, path,
			prev_agency, prev_document_type, new_agency, new_document_type,
			change_kind, created_at
		FROM classification_history
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "HistoryRepository.List", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		err := rows.Scan(
			&e.ID, &e.DocumentID, &e.Filename, &e.Path,
			&e.PrevAgency, &e.PrevDocumentType, &e.NewAgency, &e.NewDocumentType,
			&e.Kind, &e.CreatedAt,
		)
		if err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "HistoryRepository.List", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "HistoryRepository.List", err)
	}
	return entries, nil
}
