package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

const maxUploadBytes = 200 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, s.logger, domain.WrapError(domain.ErrInvalidInput, "handleUpload",
			fmt.Errorf("multipart field %q required: %w", "file", err)))
		return
	}
	defer file.Close()

	result, err := s.ingestor.Upload(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.reader.List(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, s.logger, domain.WrapError(domain.ErrInvalidInput, "handleGetDocument",
			fmt.Errorf("document id must be an integer")))
		return
	}

	doc, err := s.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, s.logger, domain.WrapError(domain.ErrInvalidInput, "handleDeleteDocument",
			fmt.Errorf("query parameter %q required", "path")))
		return
	}

	if err := s.remover.RemoveByPath(r.Context(), path); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s 삭제 완료", path),
	})
}

type ocrRequest struct {
	Path string `json:"path"`
}

type ocrResponse struct {
	Success      bool   `json:"success"`
	PageCount    int    `json:"page_count"`
	ProcessingMS int64  `json:"processing_ms"`
	TextPreview  string `json:"text_preview"`
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	var req ocrRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if req.Path == "" {
		writeError(w, s.logger, domain.WrapError(domain.ErrInvalidInput, "handleOCR",
			fmt.Errorf("path required")))
		return
	}

	result, err := s.ocr.RunByPath(r.Context(), req.Path)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ocrResponse{
		Success:      true,
		PageCount:    len(result.Pages),
		ProcessingMS: result.ProcessingMS,
		TextPreview:  previewText(result.FullText, s.previewLen),
	})
}

type classifyRequest struct {
	ID                int64  `json:"id,omitempty"`
	Path              string `json:"path,omitempty"`
	WithProbabilities bool   `json:"with_probabilities,omitempty"`
}

type classifyResponse struct {
	Success      bool                  `json:"success"`
	DocID        int64                 `json:"doc_id"`
	Agency       domain.TaskPrediction `json:"agency"`
	DocumentType domain.TaskPrediction `json:"document_type"`
	ModelID      string                `json:"model_id"`
	ModelError   string                `json:"model_error,omitempty"`
	ProcessingMS int64                 `json:"processing_ms"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	var result *domain.ClassificationResult
	var err error
	switch {
	case req.ID != 0:
		result, err = s.classify.ClassifyByID(r.Context(), req.ID, req.WithProbabilities)
	case req.Path != "":
		result, err = s.classify.ClassifyByPath(r.Context(), req.Path, req.WithProbabilities)
	default:
		err = domain.WrapError(domain.ErrInvalidInput, "handleClassify",
			fmt.Errorf("either id or path required"))
	}
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, classifyResponse{
		Success:      !result.Degraded(),
		DocID:        result.DocumentID,
		Agency:       result.Agency,
		DocumentType: result.DocumentType,
		ModelID:      result.ModelID,
		ModelError:   result.ModelError,
		ProcessingMS: result.ProcessingMS,
	})
}

type taxonomyRequest struct {
	Depth int      `json:"depth"`
	Paths []string `json:"paths,omitempty"`
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	var req taxonomyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	result, err := s.taxonomy.Generate(r.Context(), req.Depth, req.Paths)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, s.logger, domain.WrapError(domain.ErrInvalidInput, "handleHistory",
				fmt.Errorf("limit must be a non-negative integer")))
			return
		}
		limit = parsed
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatsExport(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("documents-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.exporter.WriteXLSX(r.Context(), w); err != nil {
		// Headers are already out; all we can do is log.
		s.logger.Error("stats export failed", "error", err)
	}
}

func decodeJSON(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decodeJSON", err)
	}
	return nil
}
