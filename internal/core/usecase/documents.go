package usecase

import (
	"context"
	"log/slog"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
	"github.com/hyeonsu-kang/docuclass/internal/core/ports"
)

// DocumentService covers the read and delete paths that need no model.
type DocumentService struct {
	documents ports.DocumentRepository
	history   ports.HistoryRepository
	storage   ports.ObjectStorage
	logger    *slog.Logger
}

func NewDocumentService(
	documents ports.DocumentRepository,
	history ports.HistoryRepository,
	storage ports.ObjectStorage,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		documents: documents,
		history:   history,
		storage:   storage,
		logger:    logger,
	}
}

func (s *DocumentService) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	return s.documents.GetByID(ctx, id)
}

func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.documents.List(ctx)
}

// RemoveByPath deletes the document row (dependent OCR/classification
// rows cascade), records the deletion in the audit history and removes
// the stored file last, so a storage failure never leaves a dangling
// database row.
func (s *DocumentService) RemoveByPath(ctx context.Context, path string) error {
	doc, err := s.documents.GetByPath(ctx, path)
	if err != nil {
		return err
	}

	entry := &domain.HistoryEntry{
		DocumentID:       doc.ID,
		Filename:         doc.Filename,
		Path:             doc.Path,
		PrevAgency:       doc.Agency,
		PrevDocumentType: doc.DocumentType,
		Kind:             domain.ChangeDeleted,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		return err
	}

	if err := s.documents.Delete(ctx, doc.ID); err != nil {
		return err
	}
	if err := s.storage.Remove(ctx, doc.Path); err != nil {
		s.logger.Warn("stored file removal failed", "path", doc.Path, "error", err)
	}

	s.logger.Info("document deleted", "doc_id", doc.ID, "path", doc.Path)
	return nil
}
