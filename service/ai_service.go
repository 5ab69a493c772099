package service

import (
	"context"

	"github.com/senjoyee/ewa-mcp/types"
)

// AlertExtractor produces structured alerts from rendered priority-page
// images via a vision-capable reasoning backend.
type AlertExtractor interface {
	ExtractAlerts(ctx context.Context, images [][]byte, doc *types.Document) (*types.AlertExtractionResult, error)
}

// Embedder turns chunk texts into fixed-dimensionality vectors. The
// returned slice is 1:1 with the input: text i gets vector i.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
