package service

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/config"
)

// maxEmbeddingInputChars truncates each input as a token-limit safety.
const maxEmbeddingInputChars = 8000

// EmbeddingService generates chunk embeddings via an OpenAI-compatible
// embeddings deployment. Inputs are embedded in sub-batches with the
// output order preserved 1:1 with the input.
type EmbeddingService struct {
	client     *openai.Client
	deployment string
	dimensions int
	batchSize  int
	retry      RetryConfig
	logger     *zap.Logger
}

func NewEmbeddingService(ai config.AIConfig, cfg config.EmbedderConfig, logger *zap.Logger) *EmbeddingService {
	clientConfig := openai.DefaultConfig(ai.APIKey)
	clientConfig.BaseURL = ai.Endpoint
	return &EmbeddingService{
		client:     openai.NewClientWithConfig(clientConfig),
		deployment: cfg.Deployment,
		dimensions: cfg.Dimensions,
		batchSize:  cfg.BatchSize,
		retry:      DefaultRetryConfig(),
		logger:     logger,
	}
}

// EmbedBatch embeds all texts, batchSize at a time. Each sub-batch call
// is retried independently on transient failure.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += s.batchSize {
		end := i + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := make([]string, 0, end-i)
		for _, t := range texts[i:end] {
			if len(t) > maxEmbeddingInputChars {
				t = t[:maxEmbeddingInputChars]
			}
			batch = append(batch, t)
		}

		var vectors [][]float32
		err := Retry(ctx, s.retry, func(ctx context.Context) error {
			resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input:      batch,
				Model:      openai.EmbeddingModel(s.deployment),
				Dimensions: s.dimensions,
			})
			if err != nil {
				return fmt.Errorf("embedding request failed: %w", err)
			}
			if len(resp.Data) != len(batch) {
				return Permanent(fmt.Errorf("embedding count mismatch: sent %d, got %d", len(batch), len(resp.Data)))
			}

			vectors = make([][]float32, len(resp.Data))
			for _, d := range resp.Data {
				vectors[d.Index] = d.Embedding
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		embeddings = append(embeddings, vectors...)
		s.logger.Debug("embedded batch", zap.Int("from", i), zap.Int("to", end), zap.Int("total", len(texts)))
	}

	return embeddings, nil
}
