package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/config"
	"github.com/senjoyee/ewa-mcp/types"
)

// OpenAIAlertExtractor extracts alerts from priority-page renders using
// a vision deployment behind an OpenAI-compatible endpoint, requesting
// strict JSON-schema output.
type OpenAIAlertExtractor struct {
	client     *openai.Client
	deployment string
	retry      RetryConfig
	logger     *zap.Logger
}

func NewOpenAIAlertExtractor(ai config.AIConfig, cfg config.ExtractorConfig, logger *zap.Logger) *OpenAIAlertExtractor {
	clientConfig := openai.DefaultConfig(ai.APIKey)
	clientConfig.BaseURL = ai.Endpoint
	return &OpenAIAlertExtractor{
		client:     openai.NewClientWithConfig(clientConfig),
		deployment: cfg.Deployment,
		retry:      DefaultRetryConfig(),
		logger:     logger,
	}
}

// ExtractAlerts sends the page renders plus the extraction prompt and
// parses the structured response. Transient call failures are retried
// with backoff; parse failures are not.
func (s *OpenAIAlertExtractor) ExtractAlerts(ctx context.Context, images [][]byte, doc *types.Document) (*types.AlertExtractionResult, error) {
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: alertExtractionPrompt},
	}
	for idx, img := range images {
		parts = append(parts,
			openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
					Detail: openai.ImageURLDetailHigh,
				},
			},
			openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: fmt.Sprintf("[Page %d]", idx+1)},
		)
	}

	req := openai.ChatCompletionRequest{
		Model: s.deployment,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		MaxTokens: 4096,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "extract_ewa_alerts",
				Schema: &alertExtractionSchema,
				Strict: true,
			},
		},
	}

	var result *types.AlertExtractionResult
	err := Retry(ctx, s.retry, func(ctx context.Context) error {
		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("vision completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no response generated")
		}

		payload, err := parseAlertPayload(resp.Choices[0].Message.Content)
		if err != nil {
			return err
		}
		result = buildExtractionResult(payload, doc, len(images))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("vision extraction finished",
		zap.String("doc_id", doc.DocID),
		zap.Int("alerts", len(result.Alerts)),
		zap.Float64("confidence", result.ExtractionConfidence))
	return result, nil
}
