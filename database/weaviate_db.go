package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/config"
	"github.com/senjoyee/ewa-mcp/types"
)

const BATCH_SIZE = 200

var (
	DOCUMENT_CLASS = "EwaDocument"
	CHUNK_CLASS    = "EwaChunk"
	ALERT_CLASS    = "EwaAlert"

	DOCUMENT_CLASS_OBJECT = &models.Class{
		Class:      DOCUMENT_CLASS,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "doc_id", DataType: []string{"text"}},
			{Name: "customer_id", DataType: []string{"text"}},
			{Name: "sid", DataType: []string{"text"}},
			{Name: "environment", DataType: []string{"text"}},
			{Name: "file_name", DataType: []string{"text"}},
			{Name: "pages", DataType: []string{"int"}},
			{Name: "sha256", DataType: []string{"text"}},
			{Name: "source_url", DataType: []string{"text"}},
			{Name: "processing_status", DataType: []string{"text"}},
			{Name: "alert_count", DataType: []string{"int"}},
			{Name: "chunk_count", DataType: []string{"int"}},
		},
	}

	CHUNK_CLASS_OBJECT = &models.Class{
		Class:           CHUNK_CLASS,
		Vectorizer:      "none", // vectors are supplied by the embedder
		VectorIndexType: "hnsw",
		Properties: []*models.Property{
			{Name: "chunk_id", DataType: []string{"text"}},
			{Name: "doc_id", DataType: []string{"text"}},
			{Name: "customer_id", DataType: []string{"text"}},
			{Name: "sid", DataType: []string{"text"}},
			{Name: "section_path", DataType: []string{"text"}},
			{Name: "page_start", DataType: []string{"int"}},
			{Name: "page_end", DataType: []string{"int"}},
			{Name: "severity", DataType: []string{"text"}},
			{Name: "category", DataType: []string{"text"}},
			{Name: "sap_note_ids", DataType: []string{"text[]"}},
			{Name: "content_md", DataType: []string{"text"}},
			{Name: "parent_chunk_id", DataType: []string{"text"}},
			{Name: "header_level", DataType: []string{"int"}},
		},
	}

	ALERT_CLASS_OBJECT = &models.Class{
		Class:      ALERT_CLASS,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "alert_id", DataType: []string{"text"}},
			{Name: "doc_id", DataType: []string{"text"}},
			{Name: "customer_id", DataType: []string{"text"}},
			{Name: "sid", DataType: []string{"text"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "severity", DataType: []string{"text"}},
			{Name: "category", DataType: []string{"text"}},
			{Name: "section_path", DataType: []string{"text"}},
			{Name: "page_start", DataType: []string{"int"}},
			{Name: "page_end", DataType: []string{"int"}},
			{Name: "page_range", DataType: []string{"text"}},
			{Name: "evidence_chunk_ids", DataType: []string{"text[]"}},
			{Name: "sap_note_ids", DataType: []string{"text[]"}},
			{Name: "description", DataType: []string{"text"}},
			{Name: "recommendation", DataType: []string{"text"}},
		},
	}
)

// WeaviateStore indexes documents, chunks and alerts into Weaviate.
// Object ids are derived deterministically from the record ids, so
// batch writes behave as upserts and status updates can merge by id.
type WeaviateStore struct {
	client *weaviate.Client
	logger *zap.Logger
}

func NewWeaviateStore(cfg config.WeaviateConfig, logger *zap.Logger) (*WeaviateStore, error) {
	var scheme string
	if strings.Contains(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")

	clientConfig := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		clientConfig.AuthConfig = auth.ApiKey{
			Value: cfg.APIKey,
		}
	}

	client, err := weaviate.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	store := &WeaviateStore{client: client, logger: logger}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *WeaviateStore) ensureSchema(ctx context.Context) error {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}

	existing := make(map[string]bool, len(schema.Classes))
	for _, class := range schema.Classes {
		existing[class.Class] = true
	}

	for _, class := range []*models.Class{DOCUMENT_CLASS_OBJECT, CHUNK_CLASS_OBJECT, ALERT_CLASS_OBJECT} {
		if existing[class.Class] {
			continue
		}
		if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("failed to create %s class: %w", class.Class, err)
		}
	}
	return nil
}

// ReInit drops and recreates all three classes.
func (s *WeaviateStore) ReInit(ctx context.Context) error {
	for _, class := range []string{DOCUMENT_CLASS, CHUNK_CLASS, ALERT_CLASS} {
		err := s.client.Schema().ClassDeleter().WithClassName(class).Do(ctx)
		if err != nil {
			s.logger.Warn("failed to delete class", zap.String("class", class), zap.Error(err))
		}
	}
	return s.ensureSchema(ctx)
}

// objectID derives a stable Weaviate object id from a record id.
func objectID(recordID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String())
}

func (s *WeaviateStore) IndexDocument(ctx context.Context, doc *types.Document) error {
	obj := &models.Object{
		Class:      DOCUMENT_CLASS,
		ID:         objectID(doc.DocID),
		Properties: documentProperties(doc),
	}
	if _, err := s.client.Batch().ObjectsBatcher().WithObjects(obj).Do(ctx); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.DocID, err)
	}
	return nil
}

func (s *WeaviateStore) IndexChunks(ctx context.Context, chunks []*types.Chunk) error {
	total := len(chunks)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for _, chunk := range chunks[i:end] {
			obj := &models.Object{
				Class:      CHUNK_CLASS,
				ID:         objectID(chunk.ChunkID),
				Properties: chunkProperties(chunk),
			}
			if chunk.ContentVector != nil {
				obj.Vector = chunk.ContentVector
			}
			batcher = batcher.WithObjects(obj)
		}

		if _, err := batcher.Do(ctx); err != nil {
			return fmt.Errorf("failed to index chunk batch %d-%d: %w", i, end, err)
		}
		s.logger.Debug("indexed chunk batch", zap.Int("from", i), zap.Int("to", end), zap.Int("total", total))
	}
	return nil
}

func (s *WeaviateStore) IndexAlerts(ctx context.Context, alerts []*types.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	batcher := s.client.Batch().ObjectsBatcher()
	for _, alert := range alerts {
		batcher = batcher.WithObjects(&models.Object{
			Class:      ALERT_CLASS,
			ID:         objectID(alert.AlertID),
			Properties: alertProperties(alert),
		})
	}
	if _, err := batcher.Do(ctx); err != nil {
		return fmt.Errorf("failed to index alerts: %w", err)
	}
	return nil
}

func (s *WeaviateStore) UpdateDocumentStatus(ctx context.Context, docID, status string, alertCount, chunkCount *int) error {
	props := map[string]interface{}{
		"processing_status": status,
	}
	if alertCount != nil {
		props["alert_count"] = *alertCount
	}
	if chunkCount != nil {
		props["chunk_count"] = *chunkCount
	}

	err := s.client.Data().Updater().
		WithMerge().
		WithClassName(DOCUMENT_CLASS).
		WithID(string(objectID(docID))).
		WithProperties(props).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to update status of %s: %w", docID, err)
	}
	return nil
}

func (s *WeaviateStore) GetDocument(ctx context.Context, docID string) (*types.Document, error) {
	where := filters.Where().
		WithPath([]string{"doc_id"}).
		WithOperator(filters.Equal).
		WithValueString(docID)
	return s.queryDocument(ctx, where)
}

func (s *WeaviateStore) FindDocument(ctx context.Context, customerID, fileName string) (*types.Document, error) {
	where := filters.Where().WithOperator(filters.And).WithOperands([]*filters.WhereBuilder{
		filters.Where().WithPath([]string{"customer_id"}).WithOperator(filters.Equal).WithValueString(customerID),
		filters.Where().WithPath([]string{"file_name"}).WithOperator(filters.Equal).WithValueString(fileName),
	})
	return s.queryDocument(ctx, where)
}

func (s *WeaviateStore) queryDocument(ctx context.Context, where *filters.WhereBuilder) (*types.Document, error) {
	fields := []graphql.Field{
		{Name: "doc_id"},
		{Name: "customer_id"},
		{Name: "sid"},
		{Name: "file_name"},
		{Name: "pages"},
		{Name: "sha256"},
		{Name: "processing_status"},
		{Name: "alert_count"},
		{Name: "chunk_count"},
	}

	response, err := s.client.GraphQL().Get().
		WithClassName(DOCUMENT_CLASS).
		WithFields(fields...).
		WithWhere(where).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("document lookup failed: %w", err)
	}
	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("document lookup failed: %s", response.Errors[0].Message)
	}

	return documentFromResult(response.Data)
}

// documentFromResult unwraps a GraphQL Get response into a Document.
// A missing class key or an empty result list means not found.
func documentFromResult(data map[string]models.JSONObject) (*types.Document, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	rows, ok := get[DOCUMENT_CLASS].([]interface{})
	if !ok || len(rows) == 0 {
		return nil, nil
	}
	props, ok := rows[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected document shape in response")
	}

	doc := &types.Document{
		DocID:            asString(props["doc_id"]),
		CustomerID:       asString(props["customer_id"]),
		SID:              asString(props["sid"]),
		FileName:         asString(props["file_name"]),
		Pages:            asInt(props["pages"]),
		SHA256:           asString(props["sha256"]),
		ProcessingStatus: asString(props["processing_status"]),
	}
	if v, ok := props["alert_count"].(float64); ok {
		count := int(v)
		doc.AlertCount = &count
	}
	if v, ok := props["chunk_count"].(float64); ok {
		count := int(v)
		doc.ChunkCount = &count
	}
	return doc, nil
}

func documentProperties(doc *types.Document) map[string]interface{} {
	props := map[string]interface{}{
		"doc_id":            doc.DocID,
		"customer_id":       doc.CustomerID,
		"sid":               doc.SID,
		"environment":       doc.Environment,
		"file_name":         doc.FileName,
		"pages":             doc.Pages,
		"sha256":            doc.SHA256,
		"source_url":        doc.SourceURL,
		"processing_status": doc.ProcessingStatus,
	}
	if doc.AlertCount != nil {
		props["alert_count"] = *doc.AlertCount
	}
	if doc.ChunkCount != nil {
		props["chunk_count"] = *doc.ChunkCount
	}
	return props
}

func chunkProperties(chunk *types.Chunk) map[string]interface{} {
	return map[string]interface{}{
		"chunk_id":        chunk.ChunkID,
		"doc_id":          chunk.DocID,
		"customer_id":     chunk.CustomerID,
		"sid":             chunk.SID,
		"section_path":    chunk.SectionPath,
		"page_start":      chunk.PageStart,
		"page_end":        chunk.PageEnd,
		"severity":        string(chunk.Severity),
		"category":        string(chunk.Category),
		"sap_note_ids":    chunk.SAPNoteIDs,
		"content_md":      chunk.ContentMD,
		"parent_chunk_id": chunk.ParentChunkID,
		"header_level":    chunk.HeaderLevel,
	}
}

func alertProperties(alert *types.Alert) map[string]interface{} {
	return map[string]interface{}{
		"alert_id":           alert.AlertID,
		"doc_id":             alert.DocID,
		"customer_id":        alert.CustomerID,
		"sid":                alert.SID,
		"title":              alert.Title,
		"severity":           string(alert.Severity),
		"category":           string(alert.Category),
		"section_path":       alert.SectionPath,
		"page_start":         alert.PageStart,
		"page_end":           alert.PageEnd,
		"page_range":         alert.PageRange,
		"evidence_chunk_ids": alert.EvidenceChunkIDs,
		"sap_note_ids":       alert.SAPNoteIDs,
		"description":        alert.Description,
		"recommendation":     alert.Recommendation,
	}
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asInt(v interface{}) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}
