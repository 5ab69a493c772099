package database

import (
	"context"

	"github.com/senjoyee/ewa-mcp/types"
)

// DocumentIndex is the external index holding documents, chunks and
// alerts. The document's processing_status in this index is the only
// progress signal external pollers see.
type DocumentIndex interface {
	// Write side, used by the processing pipeline.
	IndexDocument(ctx context.Context, doc *types.Document) error
	IndexChunks(ctx context.Context, chunks []*types.Chunk) error
	IndexAlerts(ctx context.Context, alerts []*types.Alert) error
	UpdateDocumentStatus(ctx context.Context, docID, status string, alertCount, chunkCount *int) error

	// Read side, used for status polling.
	GetDocument(ctx context.Context, docID string) (*types.Document, error)
	FindDocument(ctx context.Context, customerID, fileName string) (*types.Document, error)
}
