package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/senjoyee/ewa-mcp/types"
	"github.com/senjoyee/ewa-mcp/utils"
)

const alertExtractionPrompt = `You are analyzing SAP EarlyWatch Alert priority table images.
Extract ALL alerts visible in these images and return them as a JSON array.

For each alert, extract:
- title: The alert name/description (e.g., "Database Growth", "Security Patch Missing")
- severity: One of [very_high, high, medium, low, info] based on the priority section (Very High Priority = very_high, etc.)
- category: One of [security, performance, stability, configuration, lifecycle, data_volume, database, bw, other]
  - security: Security patches, vulnerabilities, audit issues
  - performance: Response time, throughput, resource utilization
  - stability: System crashes, dumps, errors
  - configuration: Parameter settings, profile recommendations
  - lifecycle: Support package levels, end-of-life notices
  - data_volume: Database size, table growth, archiving
  - database: DB-specific issues (Oracle, HANA, SQL Server)
  - bw: Business Warehouse specific
  - other: Anything not matching above
- sap_note_ids: Array of SAP note numbers mentioned (e.g., ["1234567", "2345678"])
- page_range: The page number where this alert appears (from image context)
- description: Full alert text/description if available
- recommendation: Recommended action if visible

Output format:
{
  "alerts": [
    {
      "title": "string",
      "severity": "very_high|high|medium|low|info",
      "category": "security|performance|stability|configuration|lifecycle|data_volume|database|bw|other",
      "sap_note_ids": ["1234567"],
      "page_range": "1",
      "description": "optional full text",
      "recommendation": "optional action"
    }
  ],
  "pages_processed": 4,
  "extraction_confidence": 0.95
}

Be thorough - extract every single alert visible in the priority tables.`

var pageRangePattern = regexp.MustCompile(`^(\d+)\s*(?:-\s*(\d+))?$`)

// alertExtractionSchema is the strict output schema sent to backends
// that support structured output.
var alertExtractionSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"alerts": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"title":    {Type: jsonschema.String},
					"severity": {Type: jsonschema.String, Enum: []string{"very_high", "high", "medium", "low", "info", "unknown"}},
					"category": {Type: jsonschema.String, Enum: []string{
						"security", "performance", "stability", "configuration", "lifecycle",
						"data_volume", "database", "bw", "other", "unknown",
					}},
					"sap_note_ids":   {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}},
					"page_range":     {Type: jsonschema.String},
					"description":    {Type: jsonschema.String},
					"recommendation": {Type: jsonschema.String},
				},
				Required:             []string{"title", "severity", "category", "sap_note_ids", "page_range", "description", "recommendation"},
				AdditionalProperties: false,
			},
		},
		"pages_processed":       {Type: jsonschema.Integer},
		"extraction_confidence": {Type: jsonschema.Number},
	},
	Required:             []string{"alerts", "pages_processed", "extraction_confidence"},
	AdditionalProperties: false,
}

// alertPayload mirrors the model's expected JSON output.
type alertPayload struct {
	Alerts []struct {
		Title          string   `json:"title"`
		Severity       string   `json:"severity"`
		Category       string   `json:"category"`
		SAPNoteIDs     []string `json:"sap_note_ids"`
		PageRange      string   `json:"page_range"`
		Description    string   `json:"description"`
		Recommendation string   `json:"recommendation"`
	} `json:"alerts"`
	PagesProcessed       int     `json:"pages_processed"`
	ExtractionConfidence float64 `json:"extraction_confidence"`
}

// parseAlertPayload decodes a model response into an alertPayload. The
// raw text may be clean JSON, fenced JSON, or JSON embedded in prose.
// Failures are permanent: the response shape is deterministic, so
// retrying the same call cannot help.
func parseAlertPayload(raw string) (*alertPayload, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, Permanent(fmt.Errorf("empty model response"))
	}

	var payload alertPayload
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		return &payload, nil
	}

	recovered := utils.ExtractJSONObject(text)
	if recovered == "" {
		return nil, Permanent(fmt.Errorf("no JSON object found in model response"))
	}
	if err := json.Unmarshal([]byte(recovered), &payload); err != nil {
		return nil, Permanent(fmt.Errorf("failed to parse model response: %w", err))
	}
	return &payload, nil
}

// parsePageBounds parses a page range string like "3" or "3-4". A
// non-conforming string yields the default page for both bounds.
func parsePageBounds(pageRange string, defaultPage int) (int, int) {
	m := pageRangePattern.FindStringSubmatch(strings.TrimSpace(pageRange))
	if m == nil {
		return defaultPage, defaultPage
	}

	start, _ := strconv.Atoi(m[1])
	end := start
	if m[2] != "" {
		end, _ = strconv.Atoi(m[2])
	}
	return start, end
}

// buildExtractionResult converts a parsed payload into Alert models.
// Alert ids are positional ({doc_id}_{ordinal}), so they are stable for
// a given response regardless of content.
func buildExtractionResult(payload *alertPayload, doc *types.Document, imageCount int) *types.AlertExtractionResult {
	alerts := make([]*types.Alert, 0, len(payload.Alerts))
	for idx, a := range payload.Alerts {
		severity := types.Severity(a.Severity)
		if !types.ValidSeverity(severity) {
			severity = types.SeverityUnknown
		}
		category := types.Category(a.Category)
		if !types.ValidCategory(category) {
			category = types.CategoryUnknown
		}

		pageStart, pageEnd := parsePageBounds(a.PageRange, 1)
		title := a.Title
		if title == "" {
			title = "Unknown Alert"
		}

		alerts = append(alerts, &types.Alert{
			AlertID:        fmt.Sprintf("%s_%d", doc.DocID, idx),
			CustomerID:     doc.CustomerID,
			DocID:          doc.DocID,
			SID:            doc.SID,
			Environment:    doc.Environment,
			ReportDate:     doc.ReportDate,
			Title:          title,
			Severity:       severity,
			Category:       category,
			SectionPath:    "Priority/" + severityTitle(severity),
			PageStart:      pageStart,
			PageEnd:        pageEnd,
			PageRange:      a.PageRange,
			SAPNoteIDs:     a.SAPNoteIDs,
			Description:    a.Description,
			Recommendation: a.Recommendation,
		})
	}

	pagesProcessed := payload.PagesProcessed
	if pagesProcessed == 0 {
		pagesProcessed = imageCount
	}

	return &types.AlertExtractionResult{
		Alerts:               alerts,
		PagesProcessed:       pagesProcessed,
		ExtractionConfidence: payload.ExtractionConfidence,
	}
}

// severityTitle renders a severity value in title case, e.g.
// "very_high" -> "Very High".
func severityTitle(severity types.Severity) string {
	words := strings.Split(string(severity), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
