package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, path, filename, file_size, page_count, member_id,
	status, ocr_done, is_classified,
	agency, document_type, confidence_agency, confidence_document_type, classified_at,
	created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (path, filename, file_size, page_count, member_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		doc.Path, doc.Filename, doc.FileSize, doc.PageCount, doc.MemberID, doc.Status,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "DocumentRepository.Create", err)
	}
	return nil
}

// CreateBatch inserts all documents in one transaction. Rows whose path
// already exists are skipped; the returned ids belong to the rows
// actually inserted, in input order.
func (r *DocumentRepository) CreateBatch(ctx context.Context, docs []*domain.Document) ([]int64, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.CreateBatch", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO documents (path, filename, file_size, page_count, member_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (path) DO NOTHING
		RETURNING id, created_at, updated_at`

	var inserted []int64
	for _, doc := range docs {
		err := tx.QueryRowContext(ctx, query,
			doc.Path, doc.Filename, doc.FileSize, doc.PageCount, doc.MemberID, doc.Status,
		).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.CreateBatch", err)
		}
		inserted = append(inserted, doc.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.CreateBatch", err)
	}
	return inserted, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1`, documentColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "DocumentRepository.GetByID")
}

func (r *DocumentRepository) GetByPath(ctx context.Context, path string) (*domain.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE path = $1`, documentColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, path), "DocumentRepository.GetByPath")
}

func (r *DocumentRepository) ExistsByPath(ctx context.Context, path string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE path = $1)`, path).Scan(&exists)
	if err != nil {
		return false, domain.WrapError(domain.ErrTemporary, "DocumentRepository.ExistsByPath", err)
	}
	return exists, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]domain.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents ORDER BY created_at DESC, id DESC`, documentColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.List", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := scanDocument(rows, &doc); err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.List", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.List", err)
	}
	return docs, nil
}

func (r *DocumentRepository) UpdatePageCount(ctx context.Context, id int64, pages int) error {
	query := `
		UPDATE documents
		SET page_count = $2, updated_at = now()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, pages)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "DocumentRepository.UpdatePageCount", err)
	}
	return requireRow(result, "DocumentRepository.UpdatePageCount")
}

func (r *DocumentRepository) MarkOCRDone(ctx context.Context, id int64, status domain.DocumentStatus) error {
	query := `
		UPDATE documents
		SET ocr_done = TRUE, status = $2, updated_at = now()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "DocumentRepository.MarkOCRDone", err)
	}
	return requireRow(result, "DocumentRepository.MarkOCRDone")
}

func (r *DocumentRepository) SaveClassification(ctx context.Context, id int64, cls domain.Classification, at time.Time) error {
	query := `
		UPDATE documents
		SET is_classified = TRUE,
			status = $2,
			agency = $3,
			document_type = $4,
			confidence_agency = $5,
			confidence_document_type = $6,
			classified_at = $7,
			updated_at = now()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		id, domain.StatusClassified,
		cls.Agency.Label, cls.DocumentType.Label,
		cls.Agency.Confidence, cls.DocumentType.Confidence,
		at,
	)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "DocumentRepository.SaveClassification", err)
	}
	return requireRow(result, "DocumentRepository.SaveClassification")
}

func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "DocumentRepository.Delete", err)
	}
	return requireRow(result, "DocumentRepository.Delete")
}

// Stats aggregates document counts for the stats endpoint. Label
// breakdowns only count classified documents.
func (r *DocumentRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{ByStatus: make(map[domain.DocumentStatus]int64)}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.Stats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.DocumentStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.Stats", err)
		}
		stats.ByStatus[status] = count
		stats.TotalDocuments += count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.Stats", err)
	}

	stats.ByAgency, err = r.labelCounts(ctx, "agency")
	if err != nil {
		return nil, err
	}
	stats.ByDocumentType, err = r.labelCounts(ctx, "document_type")
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *DocumentRepository) labelCounts(ctx context.Context, column string) ([]domain.LabelCount, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*)
		FROM documents
		WHERE is_classified = TRUE
		GROUP BY %s
		ORDER BY COUNT(*) DESC, %s ASC`, column, column, column)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.Stats", err)
	}
	defer rows.Close()

	var counts []domain.LabelCount
	for rows.Next() {
		var c domain.LabelCount
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.Stats", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "DocumentRepository.Stats", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DocumentRepository) scanOne(row rowScanner, op string) (*domain.Document, error) {
	var doc domain.Document
	err := scanDocument(row, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, op, err)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, op, err)
	}
	return &doc, nil
}

func scanDocument(row rowScanner, doc *domain.Document) error {
	return row.Scan(
		&doc.ID, &doc.Path, &doc.Filename, &doc.FileSize, &doc.PageCount, &doc.MemberID,
		&doc.Status, &doc.OCRDone, &doc.Classified,
		&doc.Agency, &doc.DocumentType, &doc.ConfidenceAgency, &doc.ConfidenceDocumentType, &doc.ClassifiedAt,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
}

func requireRow(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, op, sql.ErrNoRows)
	}
	return nil
}
