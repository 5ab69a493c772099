package types

import "time"

// Severity of an extracted alert, mirroring the EWA priority sections.
type Severity string

const (
	SeverityVeryHigh Severity = "very_high"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
	SeverityUnknown  Severity = "unknown"
)

// Category of an extracted alert.
type Category string

const (
	CategorySecurity      Category = "security"
	CategoryPerformance   Category = "performance"
	CategoryStability     Category = "stability"
	CategoryConfiguration Category = "configuration"
	CategoryLifecycle     Category = "lifecycle"
	CategoryDataVolume    Category = "data_volume"
	CategoryDatabase      Category = "database"
	CategoryBW            Category = "bw"
	CategoryOther         Category = "other"
	CategoryUnknown       Category = "unknown"
)

// ValidSeverity reports whether s is one of the recognized severities.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityVeryHigh, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo, SeverityUnknown:
		return true
	}
	return false
}

// ValidCategory reports whether c is one of the recognized categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategorySecurity, CategoryPerformance, CategoryStability, CategoryConfiguration,
		CategoryLifecycle, CategoryDataVolume, CategoryDatabase, CategoryBW, CategoryOther, CategoryUnknown:
		return true
	}
	return false
}

// Alert is one finding extracted from the report's priority tables.
// EvidenceChunkIDs is populated after chunking by the evidence linker
// and holds at most five chunk ids of the same document.
type Alert struct {
	AlertID          string     `json:"alert_id"`
	CustomerID       string     `json:"customer_id"`
	DocID            string     `json:"doc_id"`
	SID              string     `json:"sid"`
	Environment      string     `json:"environment,omitempty"`
	ReportDate       *time.Time `json:"report_date,omitempty"`
	Title            string     `json:"title"`
	Severity         Severity   `json:"severity"`
	Category         Category   `json:"category"`
	SectionPath      string     `json:"section_path"`
	PageStart        int        `json:"page_start"`
	PageEnd          int        `json:"page_end"`
	PageRange        string     `json:"page_range"`
	EvidenceChunkIDs []string   `json:"evidence_chunk_ids,omitempty"`
	SAPNoteIDs       []string   `json:"sap_note_ids,omitempty"`
	Description      string     `json:"description,omitempty"`
	Recommendation   string     `json:"recommendation,omitempty"`
}

// AlertExtractionResult is the outcome of one vision extraction call.
type AlertExtractionResult struct {
	Alerts               []*Alert `json:"alerts"`
	PagesProcessed       int      `json:"pages_processed"`
	ExtractionConfidence float64  `json:"extraction_confidence"`
}
