package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/senjoyee/ewa-mcp/types"
)

func TestDocumentFromResult(t *testing.T) {
	data := map[string]models.JSONObject{
		"Get": map[string]interface{}{
			DOCUMENT_CLASS: []interface{}{
				map[string]interface{}{
					"doc_id":            "acme_doc01",
					"customer_id":       "acme",
					"sid":               "PRD001",
					"file_name":         "report.pdf",
					"pages":             float64(42),
					"processing_status": types.StatusCompleted,
					"alert_count":       float64(3),
					"chunk_count":       float64(17),
				},
			},
		},
	}

	doc, err := documentFromResult(data)

	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "acme_doc01", doc.DocID)
	assert.Equal(t, "acme", doc.CustomerID)
	assert.Equal(t, "PRD001", doc.SID)
	assert.Equal(t, 42, doc.Pages)
	assert.Equal(t, types.StatusCompleted, doc.ProcessingStatus)
	require.NotNil(t, doc.AlertCount)
	assert.Equal(t, 3, *doc.AlertCount)
	require.NotNil(t, doc.ChunkCount)
	assert.Equal(t, 17, *doc.ChunkCount)
}

func TestDocumentFromResultNotFound(t *testing.T) {
	tests := []struct {
		name string
		data map[string]models.JSONObject
	}{
		{"no Get key", map[string]models.JSONObject{}},
		{"nil Get value", map[string]models.JSONObject{"Get": nil}},
		{"missing class", map[string]models.JSONObject{"Get": map[string]interface{}{}}},
		{"empty result list", map[string]models.JSONObject{
			"Get": map[string]interface{}{DOCUMENT_CLASS: []interface{}{}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := documentFromResult(tt.data)
			require.NoError(t, err)
			assert.Nil(t, doc)
		})
	}
}

func TestDocumentFromResultBadShape(t *testing.T) {
	data := map[string]models.JSONObject{
		"Get": map[string]interface{}{
			DOCUMENT_CLASS: []interface{}{"not a map"},
		},
	}

	_, err := documentFromResult(data)
	assert.Error(t, err)
}

func TestDocumentFromResultOmitsMissingCounts(t *testing.T) {
	data := map[string]models.JSONObject{
		"Get": map[string]interface{}{
			DOCUMENT_CLASS: []interface{}{
				map[string]interface{}{
					"doc_id":            "acme_doc01",
					"processing_status": types.StatusEmbedding,
				},
			},
		},
	}

	doc, err := documentFromResult(data)

	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Nil(t, doc.AlertCount)
	assert.Nil(t, doc.ChunkCount)
	assert.Equal(t, types.StatusEmbedding, doc.ProcessingStatus)
}
