package domain

import "time"

// PageText is the OCR transcript of a single page. Page numbers are 1-based
// and strictly ascending within a result.
type PageText struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// PagePayloadVersion tags the serialized page_data shape so stored rows stay
// readable across schema evolution.
const PagePayloadVersion = 1

// PagePayload is the persisted form of the per-page records.
type PagePayload struct {
	Version int        `json:"version"`
	Pages   []PageText `json:"pages"`
}

// OCRResult is one OCR run over a document. Results are immutable once
// written; a re-run inserts a new row and the latest by created_at is
// authoritative.
type OCRResult struct {
	ID           int64      `json:"id"`
	DocumentID   int64      `json:"doc_id"`
	FullText     string     `json:"full_text"`
	Pages        []PageText `json:"pages"`
	Engine       string     `json:"ocr_engine"`
	ProcessingMS int64      `json:"processing_ms"`
	CreatedAt    time.Time  `json:"created_at"`
}
