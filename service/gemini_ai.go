package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/senjoyee/ewa-mcp/config"
	"github.com/senjoyee/ewa-mcp/types"
)

// GeminiAlertExtractor is the Gemini-backed alternative to the OpenAI
// vision extractor. It shares the same prompt and payload parsing.
type GeminiAlertExtractor struct {
	client *genai.Client
	model  *genai.GenerativeModel
	retry  RetryConfig
	logger *zap.Logger
}

func NewGeminiAlertExtractor(ctx context.Context, cfg config.ExtractorConfig, logger *zap.Logger) (*GeminiAlertExtractor, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("no Gemini API key provided")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Deployment)
	model.ResponseMIMEType = "application/json"

	return &GeminiAlertExtractor{
		client: client,
		model:  model,
		retry:  DefaultRetryConfig(),
		logger: logger,
	}, nil
}

func (s *GeminiAlertExtractor) Close() error {
	return s.client.Close()
}

func (s *GeminiAlertExtractor) ExtractAlerts(ctx context.Context, images [][]byte, doc *types.Document) (*types.AlertExtractionResult, error) {
	parts := []genai.Part{genai.Text(alertExtractionPrompt)}
	for idx, img := range images {
		parts = append(parts,
			genai.ImageData("png", img),
			genai.Text(fmt.Sprintf("[Page %d]", idx+1)))
	}

	var result *types.AlertExtractionResult
	err := Retry(ctx, s.retry, func(ctx context.Context) error {
		resp, err := s.model.GenerateContent(ctx, parts...)
		if err != nil {
			return fmt.Errorf("gemini generation failed: %w", err)
		}

		text := ""
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text += string(t)
				}
			}
		}
		if text == "" {
			return fmt.Errorf("no response generated")
		}

		payload, err := parseAlertPayload(text)
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
