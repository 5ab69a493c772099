package service

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/config"
	"github.com/senjoyee/ewa-mcp/types"
)

var (
	pdfinfoPagesPattern = regexp.MustCompile(`Pages:\s+(\d+)`)
	sidFilenamePattern  = regexp.MustCompile(`[A-Z]{3}\d{3}`)
	sidPagePattern      = regexp.MustCompile(`(?i)System\s*[:\-]?\s*([A-Z]{3}\d{3})`)
	numberedHeading     = regexp.MustCompile(`^(\d+(?:\.\d+)*)[.)]?\s+\S`)
)

// PDFService converts raw PDF bytes into document metadata, markdown
// text with an offset-to-page table, and PNG renders of the priority
// pages. Extraction shells out to the poppler tools (pdfinfo,
// pdftotext, pdftoppm), which must be on PATH.
type PDFService struct {
	priorityPages int
	renderDPI     int
	logger        *zap.Logger
}

func NewPDFService(cfg config.ExtractorConfig, logger *zap.Logger) *PDFService {
	return &PDFService{
		priorityPages: cfg.PriorityPages,
		renderDPI:     144, // 2x the 72 dpi default, for legible table renders
		logger:        logger,
	}
}

// Extract runs the full content extraction for one uploaded PDF.
func (s *PDFService) Extract(ctx context.Context, pdfBytes []byte, customerID, fileName string) (*types.ExtractionResult, error) {
	hash := sha256.Sum256(pdfBytes)
	sha := hex.EncodeToString(hash[:])

	tmpFile, err := os.CreateTemp("", "ewa-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write(pdfBytes); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	tmpFile.Close()

	pages, err := getNumPages(ctx, tmpFile.Name())
	if err != nil {
		return nil, err
	}
	s.logger.Info("opened PDF", zap.String("file_name", fileName), zap.Int("pages", pages))

	markdown, pageMap, firstPageText, err := s.extractMarkdown(ctx, tmpFile.Name(), pages)
	if err != nil {
		return nil, err
	}

	images, err := s.renderPriorityPages(ctx, tmpFile.Name(), pages)
	if err != nil {
		return nil, err
	}

	docID := fmt.Sprintf("%s_%s_%s", customerID, sha[:16], time.Now().UTC().Format("20060102150405"))
	document := &types.Document{
		DocID:            docID,
		CustomerID:       customerID,
		SID:              extractSID(fileName, firstPageText),
		FileName:         fileName,
		Pages:            pages,
		SHA256:           sha,
		ProcessingStatus: types.StatusExtracting,
	}

	return &types.ExtractionResult{
		Document:       document,
		Markdown:       markdown,
		PageMap:        pageMap,
		PriorityImages: images,
	}, nil
}

// extractMarkdown pulls text page by page, promotes heading-like lines
// to markdown headers, and records which character range of the joined
// text belongs to which page.
func (s *PDFService) extractMarkdown(ctx context.Context, path string, pages int) (string, []types.PageSpan, string, error) {
	var builder strings.Builder
	var pageMap []types.PageSpan
	firstPageText := ""

	for pageNum := 1; pageNum <= pages; pageNum++ {
		text, err := extractPageText(ctx, path, pageNum)
		if err != nil {
			s.logger.Warn("failed to extract page text, skipping page",
				zap.Int("page", pageNum), zap.Error(err))
			continue
		}
		if pageNum == 1 {
			firstPageText = text
		}

		md := promoteHeadings(cleanText(text))
		if md == "" {
			continue
		}

		start := builder.Len()
		builder.WriteString(md)
		builder.WriteString("\n\n")
		pageMap = append(pageMap, types.PageSpan{
			StartOffset: start,
			EndOffset:   builder.Len() - 1,
			Page:        pageNum,
		})
	}

	return builder.String(), pageMap, firstPageText, nil
}

func (s *PDFService) renderPriorityPages(ctx context.Context, path string, pages int) ([][]byte, error) {
	last := s.priorityPages
	if last > pages {
		last = pages
	}
	if last == 0 {
		return nil, nil
	}

	tempDir, err := os.MkdirTemp("", "ewa-pages-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-f", "1", "-l", strconv.Itoa(last),
		"-r", strconv.Itoa(s.renderDPI),
		"-png", path, filepath.Join(tempDir, "page"))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to render priority pages: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(tempDir, "page-*.png"))
	if err != nil || len(files) == 0 {
		return nil, fmt.Errorf("no page renders produced: %w", err)
	}
	sort.Strings(files)

	images := make([][]byte, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read page render: %w", err)
		}
		images = append(images, data)
	}
	return images, nil
}

func extractPageText(ctx context.Context, path string, pageNumber int) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext",
		"-f", strconv.Itoa(pageNumber),
		"-l", strconv.Itoa(pageNumber),
		"-enc", "UTF-8", "-nopgbrk",
		path, "-")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed for page %d: %w", pageNumber, err)
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("got nothing at page %d", pageNumber)
	}
	return text, nil
}

func getNumPages(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, "pdfinfo", path)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("error running pdfinfo: %w", err)
	}

	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		if matches := pdfinfoPagesPattern.FindStringSubmatch(scanner.Text()); len(matches) == 2 {
			return strconv.Atoi(matches[1])
		}
	}
	return 0, fmt.Errorf("unable to determine page count from pdfinfo")
}

// extractSID pulls the SAP System ID from the filename, falling back to
// a "System: XXX000" mention on the first page.
func extractSID(fileName, firstPageText string) string {
	if match := sidFilenamePattern.FindString(strings.ToUpper(fileName)); match != "" {
		return match
	}
	if matches := sidPagePattern.FindStringSubmatch(firstPageText); len(matches) == 2 {
		return strings.ToUpper(matches[1])
	}
	return "UNKNOWN"
}

// promoteHeadings rewrites heading-like lines as markdown headers so
// the chunker can recover the section hierarchy. EWA reports number
// their sections ("1. Overview", "1.1 System Info"); the nesting depth
// of the dotted number decides the header level.
func promoteHeadings(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if level := headingLevel(trimmed); level > 0 {
			lines[i] = strings.Repeat("#", level) + " " + trimmed
		}
	}
	return strings.Join(lines, "\n")
}

// headingLevel classifies a line as a section heading. Dotted-number
// prefixes map to their depth; short all-caps lines count as level 1.
func headingLevel(line string) int {
	if len([]rune(line)) > 80 {
		return 0
	}

	if m := numberedHeading.FindStringSubmatch(line); m != nil {
		return strings.Count(m[1], ".") + 1
	}

	totalLetters, upperLetters := 0, 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			totalLetters++
			if unicode.IsUpper(r) {
				upperLetters++
			}
		}
	}
	if totalLetters >= 4 && upperLetters == totalLetters {
		return 1
	}
	return 0
}

func cleanText(text string) string {
	replacements := map[string]string{
		"\x00":   "",   // stray null bytes from pdftotext
		"\ufffd": "",   // unicode replacement character
		"\x1b":   "",   // escape sequences
		"\r":     "",
		"\f":     "\n", // form feed marks a page break
	}
	cleaned := text
	for old, repl := range replacements {
		cleaned = strings.ReplaceAll(cleaned, old, repl)
	}
	return strings.TrimSpace(cleaned)
}
