package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/senjoyee/ewa-mcp/config"
	"github.com/senjoyee/ewa-mcp/types"
)

// maxEvidenceChunks bounds how many chunk ids the evidence linker
// attaches to a single alert.
const maxEvidenceChunks = 5

var (
	headerPattern  = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	sapNotePattern = regexp.MustCompile(`(?i)(?:SAP\s*)?note\s*(?:Number\s*)?[:\-]?\s*(\d{7,10})`)
)

// severityKeywords is scanned in order; the first match wins, so the
// more specific "very high" entries come before plain "high".
var severityKeywords = []struct {
	keywords []string
	severity types.Severity
}{
	{[]string{"very high", "critical"}, types.SeverityVeryHigh},
	{[]string{"high"}, types.SeverityHigh},
	{[]string{"medium"}, types.SeverityMedium},
	{[]string{"low"}, types.SeverityLow},
	{[]string{"info"}, types.SeverityInfo},
}

// categoryKeywords is scanned in order; only the first matching
// category is kept.
var categoryKeywords = []struct {
	keywords []string
	category types.Category
}{
	{[]string{"security", "patch", "vulnerability", "audit", "authorization"}, types.CategorySecurity},
	{[]string{"performance", "response time", "throughput", "cpu", "memory"}, types.CategoryPerformance},
	{[]string{"stability", "crash", "dump", "error", "abap"}, types.CategoryStability},
	{[]string{"configuration", "parameter", "profile", "settings"}, types.CategoryConfiguration},
	{[]string{"lifecycle", "support package", "sp", "upgrade", "version"}, types.CategoryLifecycle},
	{[]string{"data volume", "database size", "growth", "archiving", "table size"}, types.CategoryDataVolume},
	{[]string{"hana", "oracle", "sql server", "db2", "database"}, types.CategoryDatabase},
	{[]string{"bw", "business warehouse", "infocube", "dso"}, types.CategoryBW},
}

// ChunkerService splits markdown by headers into hierarchy-aware,
// size-bounded chunks and links alerts to their evidence chunks.
type ChunkerService struct {
	maxChunkSize int
}

func NewChunkerService(cfg config.PipelineConfig) *ChunkerService {
	return &ChunkerService{
		maxChunkSize: cfg.MaxChunkSize,
	}
}

// section is one header-delimited span of the markdown.
type section struct {
	headerLevel int
	headerText  string
	content     string
	startPos    int
	endPos      int
}

// ChunkDocument splits markdown into chunks. Each header starts a new
// section running until the next header; content before the first
// header becomes a level-0 "Introduction" section, and a document with
// no headers at all yields a single chunk covering the whole text.
// Sections whose assembled content exceeds the size bound are split on
// paragraph boundaries into sub-chunks.
func (s *ChunkerService) ChunkDocument(markdown string, doc *types.Document, pageMap []types.PageSpan) []*types.Chunk {
	sections := splitByHeaders(markdown)
	paths := buildSectionPaths(sections)

	var chunks []*types.Chunk
	for i, sec := range sections {
		pageStart, pageEnd := pageRangeFor(sec.startPos, sec.endPos, pageMap)

		content := sec.content
		if sec.headerLevel > 0 {
			content = strings.TrimSpace(fmt.Sprintf("%s %s\n\n%s", strings.Repeat("#", sec.headerLevel), sec.headerText, sec.content))
		}

		text := strings.ToLower(sec.headerText + " " + sec.content)
		chunk := &types.Chunk{
			ChunkID:     fmt.Sprintf("%s_chunk_%04d", doc.DocID, i),
			DocID:       doc.DocID,
			CustomerID:  doc.CustomerID,
			SID:         doc.SID,
			Environment: doc.Environment,
			ReportDate:  doc.ReportDate,
			SectionPath: paths[i],
			PageStart:   pageStart,
			PageEnd:     pageEnd,
			Severity:    matchSeverity(text),
			Category:    matchCategory(text),
			SAPNoteIDs:  extractSAPNotes(sec.content),
			ContentMD:   content,
			HeaderLevel: sec.headerLevel,
		}

		if len(chunk.ContentMD) > s.maxChunkSize {
			chunks = append(chunks, s.splitLargeChunk(chunk, i)...)
		} else {
			chunks = append(chunks, chunk)
		}
	}

	return chunks
}

// splitByHeaders cuts markdown into header-delimited sections.
func splitByHeaders(markdown string) []section {
	matches := headerPattern.FindAllStringSubmatchIndex(markdown, -1)

	if len(matches) == 0 {
		// No headers: the whole document is one section.
		return []section{{headerLevel: 0, headerText: "Document", content: markdown, startPos: 0, endPos: len(markdown)}}
	}

	var sections []section

	if first := matches[0][0]; first > 0 {
		if intro := strings.TrimSpace(markdown[:first]); intro != "" {
			sections = append(sections, section{
				headerLevel: 0,
				headerText:  "Introduction",
				content:     intro,
				startPos:    0,
				endPos:      first,
			})
		}
	}

	for i, m := range matches {
		level := m[3] - m[2]
		headerText := strings.TrimSpace(markdown[m[4]:m[5]])

		end := len(markdown)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		sections = append(sections, section{
			headerLevel: level,
			headerText:  headerText,
			content:     strings.TrimSpace(markdown[m[1]:end]),
			startPos:    m[0],
			endPos:      end,
		})
	}

	return sections
}

// buildSectionPaths derives the hierarchical numbered path for every
// section in one pass. A counter per header depth increments when a
// header at that depth is seen; counters deeper than a newly seen
// header reset. Path components carry dotted ordinals ("1. Overview",
// "1.1 System Info"); level-0 sections use their raw name.
func buildSectionPaths(sections []section) []string {
	type chainEntry struct {
		level   int
		ordinal int
		text    string
	}

	paths := make([]string, len(sections))
	var counters [6]int
	var chain []chainEntry

	for i, sec := range sections {
		if sec.headerLevel == 0 {
			paths[i] = sec.headerText
			continue
		}

		level := sec.headerLevel
		counters[level-1]++
		for l := level; l < len(counters); l++ {
			counters[l] = 0
		}

		for len(chain) > 0 && chain[len(chain)-1].level >= level {
			chain = chain[:len(chain)-1]
		}
		chain = append(chain, chainEntry{level: level, ordinal: counters[level-1], text: sec.headerText})

		parts := make([]string, len(chain))
		ordinals := make([]string, 0, len(chain))
		for j, entry := range chain {
			ordinals = append(ordinals, fmt.Sprintf("%d", entry.ordinal))
			prefix := strings.Join(ordinals, ".")
			if j == 0 {
				prefix += "."
			}
			parts[j] = prefix + " " + entry.text
		}
		paths[i] = strings.Join(parts, "/")
	}

	return paths
}

// pageRangeFor maps section character offsets through the offset-to-
// page table. endPos is exclusive while the table's EndOffset is
// inclusive, so the lookup uses the section's last character. Without
// a table every section defaults to page 1.
func pageRangeFor(startPos, endPos int, pageMap []types.PageSpan) (int, int) {
	if len(pageMap) == 0 {
		return 1, 1
	}

	end := endPos - 1
	if end < startPos {
		end = startPos
	}

	pageStart, pageEnd := 1, 1
	for _, span := range pageMap {
		if startPos >= span.StartOffset && startPos <= span.EndOffset {
			pageStart = span.Page
		}
		if end >= span.StartOffset && end <= span.EndOffset {
			pageEnd = span.Page
		}
	}
	if last := pageMap[len(pageMap)-1]; end > last.EndOffset {
		pageEnd = last.Page
	}
	if pageEnd < pageStart {
		pageEnd = pageStart
	}
	return pageStart, pageEnd
}

func matchSeverity(text string) types.Severity {
	for _, entry := range severityKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.severity
			}
		}
	}
	return ""
}

func matchCategory(text string) types.Category {
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.category
			}
		}
	}
	return ""
}

// extractSAPNotes pulls 7-10 digit note numbers referenced in the
// content, deduplicated in first-seen order.
func extractSAPNotes(content string) []string {
	matches := sapNotePattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var notes []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			notes = append(notes, m[1])
		}
	}
	return notes
}

// splitLargeChunk breaks an oversized chunk on paragraph boundaries.
// The header line is repeated at the top of every sub-chunk so each
// stays independently grounded; a single paragraph larger than the
// bound is kept intact rather than truncated.
func (s *ChunkerService) splitLargeChunk(chunk *types.Chunk, baseIdx int) []*types.Chunk {
	lines := strings.Split(chunk.ContentMD, "\n")
	header := ""
	body := chunk.ContentMD
	if len(lines) > 0 && strings.HasPrefix(lines[0], "#") {
		header = lines[0]
		body = strings.Join(lines[1:], "\n")
	}

	var subChunks []*types.Chunk
	emit := func(content string, subNum int) {
		sub := *chunk
		sub.ChunkID = fmt.Sprintf("%s_chunk_%04d_sub%02d", chunk.DocID, baseIdx, subNum)
		sub.ContentMD = strings.TrimSpace(content)
		sub.ParentChunkID = chunk.ChunkID
		subChunks = append(subChunks, &sub)
	}

	paragraphs := strings.Split(body, "\n\n")
	current := ""
	if header != "" {
		current = header + "\n\n"
	}
	subNum := 0

	for _, para := range paragraphs {
		hasBody := strings.TrimSpace(current) != "" && strings.TrimSpace(current) != header
		// +2 accounts for the joining blank line.
		if len(current)+2+len(para) > s.maxChunkSize && hasBody {
			emit(current, subNum)
			subNum++
			if header != "" {
				current = header + "\n\n" + para
			} else {
				current = para
			}
			continue
		}
		if strings.TrimSpace(current) != "" {
			current += "\n\n" + para
		} else {
			current = para
		}
	}

	if strings.TrimSpace(current) != "" {
		emit(current, subNum)
	}

	return subChunks
}

// LinkAlerts populates each alert's evidence chunk ids. A chunk counts
// as evidence when its page range overlaps the alert's, or when the
// alert's severity or category appears in the chunk's section path.
// The heuristic is deterministic and bounded, not a correctness-
// critical join.
func (s *ChunkerService) LinkAlerts(alerts []*types.Alert, chunks []*types.Chunk) {
	for _, alert := range alerts {
		seen := make(map[string]bool)
		var evidence []string

		for _, chunk := range chunks {
			pageOverlap := chunk.PageStart <= alert.PageEnd && chunk.PageEnd >= alert.PageStart

			sectionMatch := false
			path := strings.ToLower(chunk.SectionPath)
			if alert.Severity != "" && strings.Contains(path, strings.ReplaceAll(string(alert.Severity), "_", " ")) {
				sectionMatch = true
			}
			if alert.Category != "" && strings.Contains(path, strings.ReplaceAll(string(alert.Category), "_", " ")) {
				sectionMatch = true
			}

			if (pageOverlap || sectionMatch) && !seen[chunk.ChunkID] {
				seen[chunk.ChunkID] = true
				evidence = append(evidence, chunk.ChunkID)
			}
		}

		if len(evidence) > maxEvidenceChunks {
			evidence = evidence[:maxEvidenceChunks]
		}
		alert.EvidenceChunkIDs = evidence
	}
}
