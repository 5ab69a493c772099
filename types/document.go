package types

import "time"

// Processing status values for a Document. A pipeline run walks them in
// order; "failed" is reachable from any non-terminal status.
const (
	StatusPending         = "pending"
	StatusExtracting      = "extracting"
	StatusAlertExtraction = "alert_extraction"
	StatusChunking        = "chunking"
	StatusEmbedding       = "embedding"
	StatusIndexing        = "indexing"
	StatusCompleted       = "completed"
	StatusFailed          = "failed"
)

// Document is the per-upload metadata record kept in the search index.
// processing_status is the single progress signal external pollers see.
type Document struct {
	DocID            string     `json:"doc_id"`
	CustomerID       string     `json:"customer_id"`
	SID              string     `json:"sid"`
	Environment      string     `json:"environment,omitempty"`
	ReportDate       *time.Time `json:"report_date,omitempty"`
	Title            string     `json:"title,omitempty"`
	FileName         string     `json:"file_name"`
	Pages            int        `json:"pages"`
	SHA256           string     `json:"sha256"`
	SourceURL        string     `json:"source_url,omitempty"`
	ProcessingStatus string     `json:"processing_status"`
	AlertCount       *int       `json:"alert_count,omitempty"`
	ChunkCount       *int       `json:"chunk_count,omitempty"`
}

// PageSpan maps a character range of the assembled markdown back to the
// PDF page it came from.
type PageSpan struct {
	StartOffset int
	EndOffset   int
	Page        int
}

// ExtractionResult is what the content extractor hands to the pipeline:
// document metadata, the full markdown text with its offset-to-page
// table, and PNG renders of the priority pages for the vision model.
type ExtractionResult struct {
	Document       *Document
	Markdown       string
	PageMap        []PageSpan
	PriorityImages [][]byte
}
