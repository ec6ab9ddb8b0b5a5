package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

type stubIngestor struct {
	result *domain.UploadResult
	err    error
	got    string
}

func (s *stubIngestor) Upload(_ context.Context, filename string, _ io.Reader) (*domain.UploadResult, error) {
	s.got = filename
	return s.result, s.err
}

type stubReader struct {
	doc  *domain.Document
	docs []domain.Document
	err  error
}

func (s *stubReader) GetByID(context.Context, int64) (*domain.Document, error) {
	return s.doc, s.err
}

func (s *stubReader) List(context.Context) ([]domain.Document, error) {
	return s.docs, s.err
}

type stubRemover struct {
	err  error
	path string
}

func (s *stubRemover) RemoveByPath(_ context.Context, path string) error {
	s.path = path
	return s.err
}

type stubOCR struct {
	result *domain.OCRResult
	err    error
}

func (s *stubOCR) RunByPath(context.Context, string) (*domain.OCRResult, error) {
	return s.result, s.err
}

type stubClassify struct {
	result *domain.ClassificationResult
	err    error
	byID   int64
	byPath string
}

func (s *stubClassify) ClassifyByID(_ context.Context, id int64, _ bool) (*domain.ClassificationResult, error) {
	s.byID = id
	return s.result, s.err
}

func (s *stubClassify) ClassifyByPath(_ context.Context, path string, _ bool) (*domain.ClassificationResult, error) {
	s.byPath = path
	return s.result, s.err
}

type stubTaxonomy struct {
	result *domain.TaxonomyResult
	err    error
	depth  int
}

func (s *stubTaxonomy) Generate(_ context.Context, depth int, _ []string) (*domain.TaxonomyResult, error) {
	s.depth = depth
	return s.result, s.err
}

type stubHistory struct {
	entries []domain.HistoryEntry
}

func (s *stubHistory) Append(context.Context, *domain.HistoryEntry) error { return nil }

func (s *stubHistory) List(context.Context, int) ([]domain.HistoryEntry, error) {
	return s.entries, nil
}

type stubStats struct {
	stats *domain.Stats
}

func (s *stubStats) Stats(context.Context) (*domain.Stats, error) {
	return s.stats, nil
}

type stubExporter struct{}

func (stubExporter) WriteXLSX(_ context.Context, w io.Writer) error {
	_, err := w.Write([]byte("xlsx-bytes"))
	return err
}

type serverStubs struct {
	ingestor *stubIngestor
	reader   *stubReader
	remover  *stubRemover
	ocr      *stubOCR
	classify *stubClassify
	taxonomy *stubTaxonomy
}

func newTestHandler(t *testing.T, stubs *serverStubs) http.Handler {
	t.Helper()
	if stubs.ingestor == nil {
		stubs.ingestor = &stubIngestor{}
	}
	if stubs.reader == nil {
		stubs.reader = &stubReader{}
	}
	if stubs.remover == nil {
		stubs.remover = &stubRemover{}
	}
	if stubs.ocr == nil {
		stubs.ocr = &stubOCR{}
	}
	if stubs.classify == nil {
		stubs.classify = &stubClassify{}
	}
	if stubs.taxonomy == nil {
		stubs.taxonomy = &stubTaxonomy{}
	}

	server := NewServer(Options{
		Ingestor:         stubs.ingestor,
		Reader:           stubs.reader,
		Remover:          stubs.remover,
		OCR:              stubs.ocr,
		Classify:         stubs.classify,
		Taxonomy:         stubs.taxonomy,
		History:          &stubHistory{},
		Stats:            &stubStats{stats: &domain.Stats{TotalDocuments: 2}},
		Exporter:         stubExporter{},
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		TextPreviewChars: 10,
	})
	return server.Handler(nil, LimitConfig{})
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t, &serverStubs{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUploadReturnsCreated(t *testing.T) {
	stubs := &serverStubs{ingestor: &stubIngestor{result: &domain.UploadResult{Message: "업로드 완료", FileCount: 1}}}
	handler := newTestHandler(t, stubs)

	body, contentType := multipartBody(t, "file", "고지서.pdf", "%PDF-1.7")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got domain.UploadResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FileCount != 1 {
		t.Fatalf("file_count = %d", got.FileCount)
	}
	if stubs.ingestor.got != "고지서.pdf" {
		t.Fatalf("filename = %q", stubs.ingestor.got)
	}
}

func TestUploadMissingFileField(t *testing.T) {
	handler := newTestHandler(t, &serverStubs{})

	body, contentType := multipartBody(t, "document", "고지서.pdf", "data")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	stubs := &serverStubs{reader: &stubReader{err: domain.ErrDocumentNotFound}}
	handler := newTestHandler(t, stubs)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents/42", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetDocumentRejectsNonNumericID(t *testing.T) {
	handler := newTestHandler(t, &serverStubs{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeleteRequiresPath(t *testing.T) {
	handler := newTestHandler(t, &serverStubs{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/documents", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestOCRTriggerPreviewsText(t *testing.T) {
	stubs := &serverStubs{ocr: &stubOCR{result: &domain.OCRResult{
		FullText:     "[Page 1]\n아주 긴 본문 텍스트입니다\n\n",
		Pages:        []domain.PageText{{PageNumber: 1, Text: "본문"}},
		ProcessingMS: 1200,
	}}}
	handler := newTestHandler(t, stubs)

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/ocr", strings.NewReader(`{"path": "고지서.pdf"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got ocrResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Success || got.PageCount != 1 || got.ProcessingMS != 1200 {
		t.Fatalf("response = %+v", got)
	}
	if len([]rune(got.TextPreview)) > 10 {
		t.Fatalf("preview too long: %q", got.TextPreview)
	}
}

func TestClassifyWrapsResultInEnvelope(t *testing.T) {
	stubs := &serverStubs{classify: &stubClassify{result: &domain.ClassificationResult{
		DocumentID: 7,
		Classification: domain.Classification{
			Agency:       domain.TaskPrediction{Label: "국세청", Confidence: 0.93},
			DocumentType: domain.TaskPrediction{Label: "고지서", Confidence: 0.88},
			ModelID:      "kobert-v1",
		},
		ProcessingMS: 42,
	}}}
	handler := newTestHandler(t, stubs)

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/classify", strings.NewReader(`{"id": 7}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got classifyResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.Success {
		t.Fatalf("success = false, want true")
	}
	if got.DocID != 7 || got.Agency.Label != "국세청" || got.DocumentType.Label != "고지서" {
		t.Fatalf("unexpected envelope %+v", got)
	}
	if got.ProcessingMS != 42 {
		t.Fatalf("processing_ms = %d, want 42", got.ProcessingMS)
	}
}

func TestClassifyDegradedRunReportsFailure(t *testing.T) {
	stubs := &serverStubs{classify: &stubClassify{result: &domain.ClassificationResult{
		DocumentID: 7,
		Classification: domain.Classification{
			Agency:       domain.TaskPrediction{Label: domain.UnknownLabel},
			DocumentType: domain.TaskPrediction{Label: domain.UnknownLabel},
			ModelError:   "load failed",
		},
	}}}
	handler := newTestHandler(t, stubs)

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/classify", strings.NewReader(`{"id": 7}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got classifyResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Success {
		t.Fatalf("degraded run must report success = false")
	}
	if got.ModelError != "load failed" {
		t.Fatalf("model_error = %q", got.ModelError)
	}
}

func TestClassifyConflictOnIllegalTransition(t *testing.T) {
	stubs := &serverStubs{classify: &stubClassify{err: domain.WrapError(domain.ErrIllegalTransition, "test", domain.ErrIllegalTransition)}}
	handler := newTestHandler(t, stubs)

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/classify", strings.NewReader(`{"id": 7}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestClassifyRequiresIDOrPath(t *testing.T) {
	handler := newTestHandler(t, &serverStubs{})
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/classify", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestClassifyModelUnavailableMapsTo503(t *testing.T) {
	stubs := &serverStubs{classify: &stubClassify{err: domain.WrapError(domain.ErrModelUnavailable, "test", domain.ErrModelUnavailable)}}
	handler := newTestHandler(t, stubs)

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/classify", strings.NewReader(`{"path": "a.pdf"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTaxonomyPassesDepth(t *testing.T) {
	stubs := &serverStubs{taxonomy: &stubTaxonomy{result: &domain.TaxonomyResult{Depth: 2}}}
	handler := newTestHandler(t, stubs)

	req := httptest.NewRequest(http.MethodPost, "/v1/taxonomy", strings.NewReader(`{"depth": 2}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if stubs.taxonomy.depth != 2 {
		t.Fatalf("depth = %d", stubs.taxonomy.depth)
	}
}

func TestStatsExportSetsAttachmentHeaders(t *testing.T) {
	handler := newTestHandler(t, &serverStubs{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats/export", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("content disposition = %q", cd)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	handler := newTestHandler(t, &serverStubs{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	handler.ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("request id = %q", rec.Header().Get(requestIDHeader))
	}
}

func TestBackpressureShedsLoad(t *testing.T) {
	server := NewServer(Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	entered := make(chan struct{})
	block := make(chan struct{})
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-block
	})
	handler := server.backpressure(LimitConfig{MaxConcurrent: 1}, inner)

	done := make(chan struct{})
	go func() {
		defer close(done)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))
	}()
	<-entered

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 while at capacity", rec.Code)
	}

	close(block)
	<-done
}

func TestRateLimitReturns429(t *testing.T) {
	server := NewServer(Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := server.rateLimit(LimitConfig{RateLimitRPS: 1, RateLimitBurst: 1}, inner)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
}
