package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "EWA_PRD001_2025.pdf", SanitizeFileName("EWA_PRD001_2025.pdf"))
	assert.Equal(t, "report__q1_.pdf", SanitizeFileName("report (q1).pdf"))
	assert.Equal(t, "a_b_c", SanitizeFileName("a/b/c"))
}

func TestFileNameWithoutExt(t *testing.T) {
	assert.Equal(t, "report", FileNameWithoutExt("/tmp/uploads/report.pdf"))
	assert.Equal(t, "archive.tar", FileNameWithoutExt("archive.tar.gz"))
	assert.Equal(t, "noext", FileNameWithoutExt("noext"))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("report.pdf"))
	assert.True(t, IsPDF("REPORT.PDF"))
	assert.False(t, IsPDF("report.docx"))
	assert.False(t, IsPDF("report"))
}
