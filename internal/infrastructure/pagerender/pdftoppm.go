package pagerender

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

// Runner abstracts external command execution so the renderer can be
// tested without poppler installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Renderer rasterizes single PDF pages to transient PNGs via pdftoppm.
// Each rendered page lives only until Discard; the pipeline never holds
// more than one page image at a time.
type Renderer struct {
	binary string
	dpi    int
	tmpDir string
	runner Runner
}

func New(binary string, dpi int, tmpDir string) *Renderer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 100
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &Renderer{binary: binary, dpi: dpi, tmpDir: tmpDir, runner: execRunner{}}
}

// WithRunner swaps the command runner; tests use this.
func (r *Renderer) WithRunner(runner Runner) *Renderer {
	r.runner = runner
	return r
}

func (r *Renderer) RenderPage(ctx context.Context, pdfPath string, page int) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("page must be >= 1, got %d", page)
	}

	prefix := filepath.Join(r.tmpDir, "page-"+uuid.NewString())
	args := []string{
		"-r", strconv.Itoa(r.dpi),
		"-png",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		pdfPath,
		prefix,
	}
	out, err := r.runner.Run(ctx, r.binary, args...)
	if err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w: %s", page, err, out)
	}

	// pdftoppm pads the page suffix depending on total page count, so
	// glob instead of reconstructing it.
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", fmt.Errorf("glob rendered page: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	return matches[0], nil
}

func (r *Renderer) Discard(imagePath string) {
	if imagePath == "" {
		return
	}
	_ = os.Remove(imagePath)
}
