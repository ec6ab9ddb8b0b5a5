package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusOCRDone    DocumentStatus = "ocr_done"
	StatusClassified DocumentStatus = "classified"
)

// legalTransitions is the transition table of the document pipeline.
// Self-transitions cover caller-initiated re-runs of a stage.
var legalTransitions = map[DocumentStatus]map[DocumentStatus]bool{
	StatusUploaded: {
		StatusOCRDone: true,
	},
	StatusOCRDone: {
		StatusOCRDone:    true,
		StatusClassified: true,
	},
	StatusClassified: {
		StatusClassified: true,
	},
}

func (s DocumentStatus) Valid() bool {
	_, ok := legalTransitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is a legal pipeline
// step. A failed stage leaves the current status untouched; illegal moves are
// rejected with ErrIllegalTransition, never applied.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	return legalTransitions[s][next]
}

type Document struct {
	ID        int64  `json:"doc_id"`
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	FileSize  int64  `json:"file_size"`
	PageCount int    `json:"page_count"`
	MemberID  *int64 `json:"member_id,omitempty"`

	Status     DocumentStatus `json:"status"`
	OCRDone    bool           `json:"ocr_done"`
	Classified bool           `json:"is_classified"`

	Agency                 string     `json:"agency,omitempty"`
	DocumentType           string     `json:"document_type,omitempty"`
	ConfidenceAgency       float64    `json:"confidence_agency,omitempty"`
	ConfidenceDocumentType float64    `json:"confidence_document_type,omitempty"`
	ClassifiedAt           *time.Time `json:"classified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UploadResult is the outcome of one upload request. FileCount is the number
// of newly registered documents; a duplicate path counts zero.
type UploadResult struct {
	Message   string      `json:"message"`
	FileCount int         `json:"file_count"`
	Documents []*Document `json:"documents,omitempty"`
}
