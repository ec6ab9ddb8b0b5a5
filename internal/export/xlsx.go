// Package export renders document classification state as an XLSX
// workbook for offline review.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
	"github.com/hyeonsu-kang/docuclass/internal/core/ports"
)

const sheetName = "documents"

var headers = []string{
	"문서번호", "경로", "파일명", "페이지수", "상태", "기관", "문서유형",
	"기관 신뢰도", "문서유형 신뢰도", "분류일시", "등록일시",
}

type Service struct {
	documents ports.DocumentRepository
}

func NewService(documents ports.DocumentRepository) *Service {
	return &Service{documents: documents}
}

// WriteXLSX streams a workbook with one row per document.
func (s *Service) WriteXLSX(ctx context.Context, w io.Writer) error {
	docs, err := s.documents.List(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, doc := range docs {
		if err := s.writeRow(f, i+2, doc); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (s *Service) writeRow(f *excelize.File, row int, doc domain.Document) error {
	values := []any{
		doc.ID, doc.Path, doc.Filename, doc.PageCount, string(doc.Status),
		doc.Agency, doc.DocumentType,
		doc.ConfidenceAgency, doc.ConfidenceDocumentType,
		formatTime(doc.ClassifiedAt), doc.CreatedAt.Format(time.RFC3339),
	}
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("row cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, value); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
