package domain

type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Stats is a read-only aggregation over persisted document state.
type Stats struct {
	TotalDocuments int64                    `json:"total_documents"`
	ByStatus       map[DocumentStatus]int64 `json:"by_status"`
	ByAgency       []LabelCount             `json:"by_agency"`
	ByDocumentType []LabelCount             `json:"by_document_type"`
}
