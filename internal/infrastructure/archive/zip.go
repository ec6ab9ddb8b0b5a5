package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hyeonsu-kang/docuclass/internal/core/ports"
)

// ZipWalker enumerates ZIP entries in archive order with repaired names.
type ZipWalker struct{}

func NewZipWalker() *ZipWalker {
	return &ZipWalker{}
}

func (w *ZipWalker) Walk(ctx context.Context, archivePath string, fn ports.ArchiveEntryFunc) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := NormalizeName(RepairName(file.Name))
		if name == "" {
			continue
		}
		dir := file.FileInfo().IsDir() || strings.HasSuffix(name, "/")

		entry := file
		open := func() (io.ReadCloser, error) {
			rc, err := entry.Open()
			if err != nil {
				return nil, fmt.Errorf("open archive entry %q: %w", name, err)
			}
			return rc, nil
		}
		if err := fn(name, dir, open); err != nil {
			return err
		}
	}
	return nil
}
