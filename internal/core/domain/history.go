package domain

import "time"

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// HistoryEntry is an audit record of a classification change. Entries are
// written only when the new classification differs materially from the prior
// one, or when a document is deleted. The document id is a plain value, not a
// foreign key, so history survives document deletion.
type HistoryEntry struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"doc_id"`
	Filename   string `json:"filename"`
	Path       string `json:"path"`

	PrevAgency       string `json:"prev_agency,omitempty"`
	PrevDocumentType string `json:"prev_document_type,omitempty"`
	NewAgency        string `json:"new_agency,omitempty"`
	NewDocumentType  string `json:"new_document_type,omitempty"`

	Kind      ChangeKind `json:"change_kind"`
	CreatedAt time.Time  `json:"created_at"`
}

// HistoryKindFor decides whether a fresh classification warrants an audit
// entry against the document's current denormalized state. It returns the
// change kind and false when nothing material changed.
func HistoryKindFor(doc *Document, cls Classification) (ChangeKind, bool) {
	if !doc.Classified {
		return ChangeCreated, true
	}
	if doc.Agency != cls.Agency.Label || doc.DocumentType != cls.DocumentType.Label {
		return ChangeUpdated, true
	}
	return "", false
}
