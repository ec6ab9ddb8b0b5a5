// Package usecase wires the document pipeline: upload, OCR,
// classification, taxonomy generation and the supporting read paths.
package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
	"github.com/hyeonsu-kang/docuclass/internal/core/ports"
)

// IngestService registers uploaded PDFs and ZIP bundles. Single PDFs
// keep their filename as the storage key; archives are unpacked under a
// directory named after the archive.
type IngestService struct {
	documents ports.DocumentRepository
	storage   ports.ObjectStorage
	walker    ports.ArchiveWalker
	pages     ports.PageCounter
	queue     ports.MessageQueue
	logger    *slog.Logger
}

func NewIngestService(
	documents ports.DocumentRepository,
	storage ports.ObjectStorage,
	walker ports.ArchiveWalker,
	pages ports.PageCounter,
	queue ports.MessageQueue,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		documents: documents,
		storage:   storage,
		walker:    walker,
		pages:     pages,
		queue:     queue,
		logger:    logger,
	}
}

func (s *IngestService) Upload(ctx context.Context, filename string, body io.Reader) (*domain.UploadResult, error) {
	filename = path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if filename == "" || filename == "." || filename == "/" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "IngestService.Upload", fmt.Errorf("empty filename"))
	}

	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return s.uploadPDF(ctx, filename, body)
	case ".zip":
		return s.uploadArchive(ctx, filename, body)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "IngestService.Upload",
			fmt.Errorf("unsupported file type %q, only .pdf and .zip are accepted", path.Ext(filename)))
	}
}

func (s *IngestService) uploadPDF(ctx context.Context, filename string, body io.Reader) (*domain.UploadResult, error) {
	exists, err := s.documents.ExistsByPath(ctx, filename)
	if err != nil {
		return nil, err
	}
	if exists {
		return &domain.UploadResult{
			Message:   fmt.Sprintf("%s은(는) 이미 업로드된 문서입니다", filename),
			FileCount: 0,
		}, nil
	}

	size, err := s.storage.Save(ctx, filename, body)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	pageCount, err := s.pages.Count(ctx, s.storage.AbsPath(filename))
	if err != nil {
		s.logger.Warn("page count failed", "path", filename, "error", err)
		pageCount = 0
	}

	doc := &domain.Document{
		Path:      filename,
		Filename:  filename,
		FileSize:  size,
		PageCount: pageCount,
		Status:    domain.StatusUploaded,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.publishIngested(ctx, doc.ID)
	s.logger.Info("document uploaded", "doc_id", doc.ID, "path", doc.Path, "pages", doc.PageCount)

	return &domain.UploadResult{
		Message:   fmt.Sprintf("%s 업로드 완료", filename),
		FileCount: 1,
		Documents: []*domain.Document{doc},
	}, nil
}

func (s *IngestService) publishIngested(ctx context.Context, documentID int64) {
	if s.queue == nil {
		return
	}
	if err := s.queue.PublishDocumentIngested(ctx, documentID); err != nil {
		// Publishing is best-effort; the document can still be processed
		// through the explicit trigger endpoints.
		s.logger.Warn("publish ingestion event failed", "doc_id", documentID, "error", err)
	}
}
