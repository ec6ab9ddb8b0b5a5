package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
	"github.com/hyeonsu-kang/docuclass/internal/core/ports"
	"github.com/hyeonsu-kang/docuclass/internal/observability/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.PipelineMetrics {
	return metrics.NewPipelineMetrics("test")
}

type fakeDocumentRepo struct {
	byID   map[int64]*domain.Document
	byPath map[string]*domain.Document
	nextID int64

	markedStatus map[int64]domain.DocumentStatus
	pageCounts   map[int64]int
	saved        map[int64]domain.Classification
	deleted      []int64
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		byID:         make(map[int64]*domain.Document),
		byPath:       make(map[string]*domain.Document),
		nextID:       1,
		markedStatus: make(map[int64]domain.DocumentStatus),
		pageCounts:   make(map[int64]int),
		saved:        make(map[int64]domain.Classification),
	}
}

func (r *fakeDocumentRepo) add(doc *domain.Document) *domain.Document {
	if doc.ID == 0 {
		doc.ID = r.nextID
		r.nextID++
	}
	r.byID[doc.ID] = doc
	r.byPath[doc.Path] = doc
	return doc
}

func (r *fakeDocumentRepo) Create(_ context.Context, doc *domain.Document) error {
	r.add(doc)
	return nil
}

func (r *fakeDocumentRepo) CreateBatch(_ context.Context, docs []*domain.Document) ([]int64, error) {
	var inserted []int64
	for _, doc := range docs {
		if _, ok := r.byPath[doc.Path]; ok {
			continue
		}
		r.add(doc)
		inserted = append(inserted, doc.ID)
	}
	return inserted, nil
}

func (r *fakeDocumentRepo) GetByID(_ context.Context, id int64) (*domain.Document, error) {
	doc, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocumentRepo) GetByPath(_ context.Context, path string) (*domain.Document, error) {
	doc, ok := r.byPath[path]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocumentRepo) ExistsByPath(_ context.Context, path string) (bool, error) {
	_, ok := r.byPath[path]
	return ok, nil
}

func (r *fakeDocumentRepo) List(_ context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	for _, doc := range r.byID {
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (r *fakeDocumentRepo) UpdatePageCount(_ context.Context, id int64, pages int) error {
	doc, ok := r.byID[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.PageCount = pages
	r.pageCounts[id] = pages
	return nil
}

func (r *fakeDocumentRepo) MarkOCRDone(_ context.Context, id int64, status domain.DocumentStatus) error {
	doc, ok := r.byID[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.OCRDone = true
	doc.Status = status
	r.markedStatus[id] = status
	return nil
}

func (r *fakeDocumentRepo) SaveClassification(_ context.Context, id int64, cls domain.Classification, at time.Time) error {
	doc, ok := r.byID[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.Classified = true
	doc.Status = domain.StatusClassified
	doc.Agency = cls.Agency.Label
	doc.DocumentType = cls.DocumentType.Label
	doc.ClassifiedAt = &at
	r.saved[id] = cls
	return nil
}

func (r *fakeDocumentRepo) Delete(_ context.Context, id int64) error {
	doc, ok := r.byID[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	delete(r.byPath, doc.Path)
	delete(r.byID, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeOCRResultRepo struct {
	latest   map[int64]*domain.OCRResult
	inserted []*domain.OCRResult
}

func newFakeOCRResultRepo() *fakeOCRResultRepo {
	return &fakeOCRResultRepo{latest: make(map[int64]*domain.OCRResult)}
}

func (r *fakeOCRResultRepo) Insert(_ context.Context, result *domain.OCRResult) error {
	result.ID = int64(len(r.inserted) + 1)
	result.CreatedAt = time.Now()
	r.inserted = append(r.inserted, result)
	r.latest[result.DocumentID] = result
	return nil
}

func (r *fakeOCRResultRepo) LatestByDocumentID(_ context.Context, documentID int64) (*domain.OCRResult, error) {
	result, ok := r.latest[documentID]
	if !ok {
		return nil, domain.ErrOCRResultNotFound
	}
	return result, nil
}

type fakeClassificationRepo struct {
	inserted []*domain.ClassificationResult
}

func (r *fakeClassificationRepo) Insert(_ context.Context, result *domain.ClassificationResult) error {
	result.ID = int64(len(r.inserted) + 1)
	result.CreatedAt = time.Now()
	r.inserted = append(r.inserted, result)
	return nil
}

func (r *fakeClassificationRepo) LatestByDocumentID(_ context.Context, documentID int64) (*domain.ClassificationResult, error) {
	for i := len(r.inserted) - 1; i >= 0; i-- {
		if r.inserted[i].DocumentID == documentID {
			return r.inserted[i], nil
		}
	}
	return nil, domain.ErrDocumentNotFound
}

type fakeHistoryRepo struct {
	entries []*domain.HistoryEntry
}

func (r *fakeHistoryRepo) Append(_ context.Context, entry *domain.HistoryEntry) error {
	entry.ID = int64(len(r.entries) + 1)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeHistoryRepo) List(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	var out []domain.HistoryEntry
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out, nil
}

type fakeStorage struct {
	files   map[string][]byte
	removed []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string][]byte)}
}

func (s *fakeStorage) Save(_ context.Context, key string, data io.Reader) (int64, error) {
	content, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}
	s.files[key] = content
	return int64(len(content)), nil
}

func (s *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := s.files[key]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *fakeStorage) Remove(_ context.Context, key string) error {
	delete(s.files, key)
	s.removed = append(s.removed, key)
	return nil
}

func (s *fakeStorage) AbsPath(key string) string {
	return "/store/" + key
}

type fakeQueue struct {
	published []int64
}

func (q *fakeQueue) PublishDocumentIngested(_ context.Context, documentID int64) error {
	q.published = append(q.published, documentID)
	return nil
}

func (q *fakeQueue) SubscribeDocumentIngested(context.Context, func(context.Context, int64) error) error {
	return nil
}

type fakePageCounter struct {
	count int
	err   error
}

func (c *fakePageCounter) Count(context.Context, string) (int, error) {
	return c.count, c.err
}

// fakeArchive replays scripted entries instead of reading a real ZIP.
type archiveEntry struct {
	name    string
	dir     bool
	content string
}

type fakeArchive struct {
	entries []archiveEntry
}

func (a *fakeArchive) Walk(_ context.Context, _ string, fn ports.ArchiveEntryFunc) error {
	for _, e := range a.entries {
		entry := e
		err := fn(entry.name, entry.dir, func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(entry.content)), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type fakeRenderer struct {
	rendered  []int
	discarded []string
	failPage  int
}

func (r *fakeRenderer) RenderPage(_ context.Context, _ string, page int) (string, error) {
	if r.failPage != 0 && page == r.failPage {
		return "", domain.ErrTemporary
	}
	r.rendered = append(r.rendered, page)
	return "/tmp/page-" + strings.Repeat("x", page) + ".png", nil
}

func (r *fakeRenderer) Discard(imagePath string) {
	r.discarded = append(r.discarded, imagePath)
}

type fakeEngine struct {
	loads    int
	cleanups int
	loadErr  error
	texts    map[int]string
	calls    int
}

func (e *fakeEngine) EnsureLoaded(context.Context) error {
	if e.loadErr != nil {
		return domain.WrapError(domain.ErrModelUnavailable, "fakeEngine.EnsureLoaded", e.loadErr)
	}
	e.loads++
	return nil
}

func (e *fakeEngine) Cleanup(context.Context) { e.cleanups++ }

func (e *fakeEngine) EngineID() string { return "fake-ocr" }

func (e *fakeEngine) Recognize(_ context.Context, _ string) (string, error) {
	e.calls++
	if text, ok := e.texts[e.calls]; ok {
		return text, nil
	}
	return "text", nil
}

type fakeClassifier struct {
	result   domain.Classification
	cleanups int
}

func (c *fakeClassifier) EnsureLoaded(context.Context) error { return nil }

func (c *fakeClassifier) Cleanup(context.Context) { c.cleanups++ }

func (c *fakeClassifier) Predict(context.Context, string, bool) (domain.Classification, error) {
	return c.result, nil
}

type fakeGenerator struct {
	assignments map[string]domain.CategoryAssignment
	err         error
}

func (g *fakeGenerator) Generate(_ context.Context, text string, _ int) (domain.CategoryAssignment, error) {
	if g.err != nil {
		return domain.CategoryAssignment{}, g.err
	}
	if a, ok := g.assignments[text]; ok {
		return a, nil
	}
	return domain.CategoryAssignment{Category: "기타"}, nil
}

func classifiedDoc(repo *fakeDocumentRepo, path, agency, docType string) *domain.Document {
	return repo.add(&domain.Document{
		Path:         path,
		Filename:     path,
		PageCount:    1,
		Status:       domain.StatusClassified,
		OCRDone:      true,
		Classified:   true,
		Agency:       agency,
		DocumentType: docType,
	})
}

func mustNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
