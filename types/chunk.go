package types

import "time"

// Chunk is a bounded span of a document's markdown, the unit of vector
// indexing. Sub-chunks produced by size splitting share the section
// path of the original and point back to it via ParentChunkID.
type Chunk struct {
	ChunkID       string     `json:"chunk_id"`
	DocID         string     `json:"doc_id"`
	CustomerID    string     `json:"customer_id"`
	SID           string     `json:"sid"`
	Environment   string     `json:"environment,omitempty"`
	ReportDate    *time.Time `json:"report_date,omitempty"`
	SectionPath   string     `json:"section_path"`
	PageStart     int        `json:"page_start"`
	PageEnd       int        `json:"page_end"`
	Severity      Severity   `json:"severity,omitempty"`
	Category      Category   `json:"category,omitempty"`
	SAPNoteIDs    []string   `json:"sap_note_ids,omitempty"`
	ContentMD     string     `json:"content_md"`
	ContentVector []float32  `json:"content_vector,omitempty"`
	ParentChunkID string     `json:"parent_chunk_id,omitempty"`
	HeaderLevel   int        `json:"header_level,omitempty"` // 0 = intro/no-header content
}
