package pdfinfo

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Counter reads PDF page counts from the document catalog without
// rasterizing anything.
type Counter struct{}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Count(_ context.Context, pdfPath string) (int, error) {
	f, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := reader.NumPage()
	if pages <= 0 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return pages, nil
}
