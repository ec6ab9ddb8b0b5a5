package usecase

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

// uploadArchive stores the ZIP, unpacks its PDF entries under a
// directory named after the archive and registers them in one batch.
// Entries whose path is already registered are skipped, so re-uploading
// the same archive is a no-op for the overlapping files.
func (s *IngestService) uploadArchive(ctx context.Context, filename string, body io.Reader) (*domain.UploadResult, error) {
	archiveKey := "_archives/" + filename
	if _, err := s.storage.Save(ctx, archiveKey, body); err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}
	defer s.storage.Remove(context.WithoutCancel(ctx), archiveKey) //nolint:errcheck

	root := strings.TrimSuffix(filename, path.Ext(filename))

	var candidates []*domain.Document
	err := s.walker.Walk(ctx, s.storage.AbsPath(archiveKey), func(name string, dir bool, open func() (io.ReadCloser, error)) error {
		if dir || strings.ToLower(path.Ext(name)) != ".pdf" {
			return nil
		}

		dest := root + "/" + name
		exists, err := s.documents.ExistsByPath(ctx, dest)
		if err != nil {
			return err
		}
		if exists {
			s.logger.Debug("archive entry already registered", "path", dest)
			return nil
		}

		rc, err := open()
		if err != nil {
			return err
		}
		size, err := s.storage.Save(ctx, dest, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("store archive entry %q: %w", name, err)
		}

		pageCount, err := s.pages.Count(ctx, s.storage.AbsPath(dest))
		if err != nil {
			s.logger.Warn("page count failed", "path", dest, "error", err)
			pageCount = 0
		}

		candidates = append(candidates, &domain.Document{
			Path:      dest,
			Filename:  path.Base(name),
			FileSize:  size,
			PageCount: pageCount,
			Status:    domain.StatusUploaded,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("extract archive: %w", err)
	}

	if len(candidates) == 0 {
		return &domain.UploadResult{
			Message:   fmt.Sprintf("%s에서 등록할 PDF가 없습니다", filename),
			FileCount: 0,
		}, nil
	}

	insertedIDs, err := s.documents.CreateBatch(ctx, candidates)
	if err != nil {
		return nil, err
	}

	inserted := make([]*domain.Document, 0, len(insertedIDs))
	for _, doc := range candidates {
		if doc.ID != 0 {
			inserted = append(inserted, doc)
			s.publishIngested(ctx, doc.ID)
		}
	}

	s.logger.Info("archive ingested",
		"archive", filename,
		"entries", len(candidates),
		"registered", len(insertedIDs),
	)

	return &domain.UploadResult{
		Message:   fmt.Sprintf("%s에서 %d개 문서 업로드 완료", filename, len(insertedIDs)),
		FileCount: len(insertedIDs),
		Documents: inserted,
	}, nil
}
