package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senjoyee/ewa-mcp/types"
)

// fakeIndex serves canned documents keyed by doc_id.
type fakeIndex struct {
	docs map[string]*types.Document
}

func (f *fakeIndex) IndexDocument(ctx context.Context, doc *types.Document) error { return nil }
func (f *fakeIndex) IndexChunks(ctx context.Context, chunks []*types.Chunk) error { return nil }
func (f *fakeIndex) IndexAlerts(ctx context.Context, alerts []*types.Alert) error { return nil }
func (f *fakeIndex) UpdateDocumentStatus(ctx context.Context, docID, status string, alertCount, chunkCount *int) error {
	return nil
}

func (f *fakeIndex) GetDocument(ctx context.Context, docID string) (*types.Document, error) {
	return f.docs[docID], nil
}

func (f *fakeIndex) FindDocument(ctx context.Context, customerID, fileName string) (*types.Document, error) {
	for _, doc := range f.docs {
		if doc.CustomerID == customerID && doc.FileName == fileName {
			return doc, nil
		}
	}
	return nil, nil
}

func newStatusServer(docs ...*types.Document) http.Handler {
	index := &fakeIndex{docs: make(map[string]*types.Document)}
	for _, d := range docs {
		index.docs[d.DocID] = d
	}
	return NewStatusHandler(index).HandleStatus()
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) types.DataResponse {
	t.Helper()
	var res types.DataResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func TestHandleStatusByDocID(t *testing.T) {
	count := 3
	doc := &types.Document{
		DocID:            "acme_doc01",
		CustomerID:       "acme",
		FileName:         "report.pdf",
		ProcessingStatus: types.StatusCompleted,
		AlertCount:       &count,
	}
	handler := newStatusServer(doc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/status?doc_id=acme_doc01", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	res := decodeResponse(t, rec)
	assert.True(t, res.Status)

	data, ok := res.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "acme_doc01", data["doc_id"])
	assert.Equal(t, types.StatusCompleted, data["processing_status"])
	assert.Equal(t, float64(3), data["alert_count"])
}

func TestHandleStatusByCustomerAndFile(t *testing.T) {
	doc := &types.Document{
		DocID:            "acme_doc01",
		CustomerID:       "acme",
		FileName:         "report.pdf",
		ProcessingStatus: types.StatusEmbedding,
	}
	handler := newStatusServer(doc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/status?customer_id=acme&file_name=report.pdf", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	res := decodeResponse(t, rec)
	require.True(t, res.Status)
	data := res.Data.(map[string]interface{})
	assert.Equal(t, types.StatusEmbedding, data["processing_status"])
}

func TestHandleStatusNotFound(t *testing.T) {
	handler := newStatusServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/status?doc_id=missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeResponse(t, rec).Status)
}

func TestHandleStatusMissingParams(t *testing.T) {
	handler := newStatusServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStatusRejectsPost(t *testing.T) {
	handler := newStatusServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/status?doc_id=x", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
