package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/config"
	"github.com/senjoyee/ewa-mcp/database"
	"github.com/senjoyee/ewa-mcp/service"
)

// app holds the wired service graph shared by the server and one-shot
// commands.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	store       *database.WeaviateStore
	fileService *service.FileService
	wsService   *service.WebSocketService
	closers     []func()
}

func buildApp(ctx context.Context, withWebSocket bool) (*app, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { logger.Sync() })

	store, err := database.NewWeaviateStore(cfg.WeaviateConfig, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to connect to Weaviate: %w", err)
	}
	a.store = store

	var alertExtractor service.AlertExtractor
	switch cfg.ExtractorConfig.Backend {
	case "gemini":
		gemini, err := service.NewGeminiAlertExtractor(ctx, cfg.ExtractorConfig, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create gemini extractor: %w", err)
		}
		a.closers = append(a.closers, func() { gemini.Close() })
		alertExtractor = gemini
	case "openai":
		alertExtractor = service.NewOpenAIAlertExtractor(cfg.AI, cfg.ExtractorConfig, logger)
	default:
		a.Close()
		return nil, fmt.Errorf("unknown alert extractor backend: %s", cfg.ExtractorConfig.Backend)
	}

	var publishers service.CompositeEventPublisher
	if cfg.EventConfig.NatsURL != "" {
		natsPublisher, err := service.NewNatsEventPublisher(cfg.EventConfig, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.closers = append(a.closers, natsPublisher.Close)
		publishers = append(publishers, natsPublisher)
	}
	if withWebSocket {
		a.wsService = service.NewWebSocketService(logger)
		publishers = append(publishers, a.wsService)
	}

	pipeline := service.NewPipelineService(
		service.NewPDFService(cfg.ExtractorConfig, logger),
		alertExtractor,
		service.NewChunkerService(cfg.PipelineConfig),
		service.NewEmbeddingService(cfg.AI, cfg.EmbedderConfig, logger),
		store,
		publishers,
		cfg.ExtractorConfig,
		logger,
	)

	fileService, err := service.NewFileService(cfg.UploadDir, pipeline, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.fileService = fileService

	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
