package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSID(t *testing.T) {
	tests := []struct {
		name          string
		fileName      string
		firstPageText string
		want          string
	}{
		{
			name:     "from filename",
			fileName: "EWA_PRD001_2025-01-01.pdf",
			want:     "PRD001",
		},
		{
			name:     "lowercase filename",
			fileName: "ewa_prd001.pdf",
			want:     "PRD001",
		},
		{
			name:          "from first page",
			fileName:      "report.pdf",
			firstPageText: "EarlyWatch Alert\nSystem: QAS002\nPeriod 01.01.2025",
			want:          "QAS002",
		},
		{
			name:          "first page with dash separator",
			fileName:      "report.pdf",
			firstPageText: "System - DEV003",
			want:          "DEV003",
		},
		{
			name:          "filename wins over page",
			fileName:      "EWA_PRD001.pdf",
			firstPageText: "System: QAS002",
			want:          "PRD001",
		},
		{
			name:     "nothing found",
			fileName: "report.pdf",
			want:     "UNKNOWN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractSID(tt.fileName, tt.firstPageText))
		})
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"1. Overview", 1},
		{"1 Overview", 1},
		{"2.3 Hardware Capacity", 2},
		{"10.2.1 Table Growth", 3},
		{"1) Parenthesized", 1},
		{"SERVICE SUMMARY", 1},
		{"ABC", 0},
		{"Normal prose sentence.", 0},
		{"1.", 0},
		{strings.Repeat("LONG ", 20), 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, headingLevel(tt.line), "line: %q", tt.line)
	}
}

func TestPromoteHeadings(t *testing.T) {
	in := strings.Join([]string{
		"1. Service Summary",
		"Some body text about the service.",
		"1.1 Alert Overview",
		"More text.",
	}, "\n")

	got := promoteHeadings(in)

	lines := strings.Split(got, "\n")
	assert.Equal(t, "# 1. Service Summary", lines[0])
	assert.Equal(t, "Some body text about the service.", lines[1])
	assert.Equal(t, "## 1.1 Alert Overview", lines[2])
}

func TestPromoteHeadingsIdempotent(t *testing.T) {
	in := "# Already a header\nbody"
	assert.Equal(t, in, promoteHeadings(in))
}

func TestCleanText(t *testing.T) {
	in := "line one\r\nline\x00 two\fline three\x1b"
	got := cleanText(in)

	assert.NotContains(t, got, "\r")
	assert.NotContains(t, got, "\x00")
	assert.NotContains(t, got, "\x1b")
	assert.Contains(t, got, "line one\nline two\nline three")
}
