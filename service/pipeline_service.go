package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/config"
	"github.com/senjoyee/ewa-mcp/types"
	"github.com/senjoyee/ewa-mcp/utils"
)

var pdfMagic = []byte("%PDF")

// ContentExtractor converts raw PDF bytes into the pipeline's inputs.
type ContentExtractor interface {
	Extract(ctx context.Context, pdfBytes []byte, customerID, fileName string) (*types.ExtractionResult, error)
}

// Indexer is the external index the pipeline writes documents, chunks
// and alerts to. UpdateDocumentStatus merges into an existing record.
type Indexer interface {
	IndexDocument(ctx context.Context, doc *types.Document) error
	IndexChunks(ctx context.Context, chunks []*types.Chunk) error
	IndexAlerts(ctx context.Context, alerts []*types.Alert) error
	UpdateDocumentStatus(ctx context.Context, docID, status string, alertCount, chunkCount *int) error
}

// PipelineService drives one document through the processing stages:
// extracting, alert_extraction, chunking, embedding, indexing. Alert
// extraction failures degrade to zero alerts; every other stage failure
// is fatal and leaves the document in "failed". Stages for one
// document run strictly in sequence; only the alert extraction call
// runs on its own goroutine so the wall-clock timeout can preempt it.
type PipelineService struct {
	extractor      ContentExtractor
	alertExtractor AlertExtractor
	chunker        *ChunkerService
	embedder       Embedder
	indexer        Indexer
	events         EventPublisher
	alertTimeout   time.Duration
	logger         *zap.Logger
}

func NewPipelineService(
	extractor ContentExtractor,
	alertExtractor AlertExtractor,
	chunker *ChunkerService,
	embedder Embedder,
	indexer Indexer,
	events EventPublisher,
	cfg config.ExtractorConfig,
	logger *zap.Logger,
) *PipelineService {
	return &PipelineService{
		extractor:      extractor,
		alertExtractor: alertExtractor,
		chunker:        chunker,
		embedder:       embedder,
		indexer:        indexer,
		events:         events,
		alertTimeout:   cfg.Timeout,
		logger:         logger,
	}
}

// Process runs the full pipeline for one uploaded PDF and returns the
// final document record. Malformed input is rejected before any state
// is written.
func (s *PipelineService) Process(ctx context.Context, pdfBytes []byte, customerID, fileName string) (*types.Document, error) {
	if !utils.IsPDF(fileName) {
		return nil, fmt.Errorf("unsupported file type: %s", fileName)
	}
	if !bytes.HasPrefix(pdfBytes, pdfMagic) {
		return nil, fmt.Errorf("content of %s is not a PDF", fileName)
	}

	// Stage 1: content extraction. No document exists yet, so a failure
	// here leaves no partial state behind.
	s.logger.Info("extracting PDF content", zap.String("customer_id", customerID), zap.String("file_name", fileName))
	extraction, err := s.extractor.Extract(ctx, pdfBytes, customerID, fileName)
	if err != nil {
		return nil, fmt.Errorf("content extraction failed: %w", err)
	}
	doc := extraction.Document

	s.publish(types.EventProcessingStarted, doc, types.StatusExtracting, "")
	if err := s.indexer.IndexDocument(ctx, doc); err != nil {
		return nil, s.fail(ctx, doc, fmt.Errorf("failed to index document metadata: %w", err))
	}

	// Stage 2: alert extraction, bounded by a hard timeout and degraded
	// to zero alerts on any failure.
	s.setStage(ctx, doc, types.StatusAlertExtraction)
	alerts := s.extractAlerts(ctx, extraction)

	// Stage 3: chunking plus evidence linking.
	s.setStage(ctx, doc, types.StatusChunking)
	chunks := s.chunker.ChunkDocument(extraction.Markdown, doc, extraction.PageMap)
	s.chunker.LinkAlerts(alerts, chunks)
	s.logger.Info("chunked document", zap.String("doc_id", doc.DocID),
		zap.Int("chunks", len(chunks)), zap.Int("alerts", len(alerts)))

	// Stage 4: embeddings. Failure here is fatal, unlike alert extraction.
	s.setStage(ctx, doc, types.StatusEmbedding)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.ContentMD
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return doc, s.fail(ctx, doc, fmt.Errorf("embedding generation failed: %w", err))
	}
	for i, c := range chunks {
		c.ContentVector = vectors[i]
	}

	// Stage 5: index everything and finalize status.
	s.setStage(ctx, doc, types.StatusIndexing)
	if err := s.indexer.IndexChunks(ctx, chunks); err != nil {
		return doc, s.fail(ctx, doc, fmt.Errorf("failed to index chunks: %w", err))
	}
	if err := s.indexer.IndexAlerts(ctx, alerts); err != nil {
		return doc, s.fail(ctx, doc, fmt.Errorf("failed to index alerts: %w", err))
	}

	alertCount, chunkCount := len(alerts), len(chunks)
	if err := s.indexer.UpdateDocumentStatus(ctx, doc.DocID, types.StatusCompleted, &alertCount, &chunkCount); err != nil {
		return doc, s.fail(ctx, doc, fmt.Errorf("failed to finalize document status: %w", err))
	}
	doc.ProcessingStatus = types.StatusCompleted
	doc.AlertCount = &alertCount
	doc.ChunkCount = &chunkCount

	s.publish(types.EventProcessingCompleted, doc,
		fmt.Sprintf("completed (alerts: %d, chunks: %d)", alertCount, chunkCount), "")
	s.logger.Info("processing completed", zap.String("doc_id", doc.DocID),
		zap.Int("alerts", alertCount), zap.Int("chunks", chunkCount))
	return doc, nil
}

// extractAlerts runs the vision extractor in an isolated goroutine
// under the hard wall-clock timeout. Timeouts and extractor errors are
// logged and produce an empty alert list; they never fail the pipeline.
func (s *PipelineService) extractAlerts(ctx context.Context, extraction *types.ExtractionResult) []*types.Alert {
	result, err := RunWithTimeout(ctx, s.alertTimeout, func(ctx context.Context) (*types.AlertExtractionResult, error) {
		return s.alertExtractor.ExtractAlerts(ctx, extraction.PriorityImages, extraction.Document)
	})
	if err != nil {
		s.logger.Error("alert extraction failed, continuing without alerts",
			zap.String("doc_id", extraction.Document.DocID), zap.Error(err))
		return nil
	}
	return result.Alerts
}

// setStage persists the stage transition and emits the matching event.
// A status write failure at a stage boundary is logged but does not
// abort the run: the stage itself decides success or failure.
func (s *PipelineService) setStage(ctx context.Context, doc *types.Document, stage string) {
	doc.ProcessingStatus = stage
	if err := s.indexer.UpdateDocumentStatus(ctx, doc.DocID, stage, nil, nil); err != nil {
		s.logger.Warn("failed to persist stage transition",
			zap.String("doc_id", doc.DocID), zap.String("stage", stage), zap.Error(err))
	}
	s.publish(types.EventProcessingStage, doc, stage, "")
}

// fail moves an established document to the terminal "failed" status,
// emits the failure event, and returns err for the caller to report.
func (s *PipelineService) fail(ctx context.Context, doc *types.Document, err error) error {
	s.logger.Error("processing failed", zap.String("doc_id", doc.DocID), zap.Error(err))

	doc.ProcessingStatus = types.StatusFailed
	if statusErr := s.indexer.UpdateDocumentStatus(ctx, doc.DocID, types.StatusFailed, nil, nil); statusErr != nil {
		s.logger.Error("failed to write failed status",
			zap.String("doc_id", doc.DocID), zap.Error(statusErr))
	}
	s.publish(types.EventProcessingFailed, doc, types.StatusFailed, err.Error())
	return err
}

func (s *PipelineService) publish(eventType string, doc *types.Document, stage, errMsg string) {
	if s.events == nil {
		return
	}
	s.events.Publish(NewProcessingEvent(eventType, doc, stage, errMsg))
}
