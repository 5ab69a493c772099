package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/config"
	"github.com/senjoyee/ewa-mcp/types"
)

type fakeExtractor struct {
	result *types.ExtractionResult
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, pdfBytes []byte, customerID, fileName string) (*types.ExtractionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeAlertExtractor struct {
	result *types.AlertExtractionResult
	err    error
	block  bool
}

func (f *fakeAlertExtractor) ExtractAlerts(ctx context.Context, images [][]byte, doc *types.Document) (*types.AlertExtractionResult, error) {
	if f.block {
		<-make(chan struct{})
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeEmbedder struct {
	dims int
	err  error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, f.dims)
	}
	return vectors, nil
}

// fakeIndexer records every write so tests can assert on the status
// transition sequence.
type fakeIndexer struct {
	mu        sync.Mutex
	documents []*types.Document
	chunks    []*types.Chunk
	alerts    []*types.Alert
	statuses  []string

	indexChunksErr error
}

func (f *fakeIndexer) IndexDocument(ctx context.Context, doc *types.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, doc)
	return nil
}

func (f *fakeIndexer) IndexChunks(ctx context.Context, chunks []*types.Chunk) error {
	if f.indexChunksErr != nil {
		return f.indexChunksErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeIndexer) IndexAlerts(ctx context.Context, alerts []*types.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alerts...)
	return nil
}

func (f *fakeIndexer) UpdateDocumentStatus(ctx context.Context, docID, status string, alertCount, chunkCount *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*types.ProcessingEvent
}

func (r *recordingPublisher) Publish(event *types.ProcessingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

const testMarkdown = "# Overview\n\nSome content.\n\n# Hardware\n\nCPU details."

func testExtraction() *types.ExtractionResult {
	return &types.ExtractionResult{
		Document: testDoc(),
		Markdown: testMarkdown,
		PageMap:  nil,
		PriorityImages: [][]byte{
			[]byte("png1"), []byte("png2"),
		},
	}
}

func newTestPipeline(extractor ContentExtractor, alertExtractor AlertExtractor, embedder Embedder, indexer Indexer, events EventPublisher) *PipelineService {
	return NewPipelineService(
		extractor,
		alertExtractor,
		newTestChunker(4000),
		embedder,
		indexer,
		events,
		config.ExtractorConfig{Timeout: 100 * time.Millisecond},
		zap.NewNop(),
	)
}

func pdfBody() []byte {
	return []byte("%PDF-1.7 fake body")
}

func TestProcessSuccess(t *testing.T) {
	indexer := &fakeIndexer{}
	publisher := &recordingPublisher{}
	alerts := &types.AlertExtractionResult{
		Alerts: []*types.Alert{
			{AlertID: "a0", Severity: types.SeverityHigh, PageStart: 1, PageEnd: 1},
		},
		PagesProcessed: 2,
	}

	pipeline := newTestPipeline(
		&fakeExtractor{result: testExtraction()},
		&fakeAlertExtractor{result: alerts},
		&fakeEmbedder{dims: 4},
		indexer,
		publisher,
	)

	doc, err := pipeline.Process(context.Background(), pdfBody(), "acme", "report.pdf")

	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, doc.ProcessingStatus)
	require.NotNil(t, doc.AlertCount)
	require.NotNil(t, doc.ChunkCount)
	assert.Equal(t, 1, *doc.AlertCount)
	assert.Equal(t, 2, *doc.ChunkCount)

	// Stage transitions were persisted in order, ending in completed.
	assert.Equal(t, []string{
		types.StatusAlertExtraction,
		types.StatusChunking,
		types.StatusEmbedding,
		types.StatusIndexing,
		types.StatusCompleted,
	}, indexer.statuses)

	// Chunks got their vectors before indexing.
	require.Len(t, indexer.chunks, 2)
	for _, c := range indexer.chunks {
		assert.Len(t, c.ContentVector, 4)
	}
	require.Len(t, indexer.alerts, 1)
	assert.NotEmpty(t, indexer.alerts[0].EvidenceChunkIDs)

	eventTypes := publisher.eventTypes()
	require.NotEmpty(t, eventTypes)
	assert.Equal(t, types.EventProcessingStarted, eventTypes[0])
	assert.Equal(t, types.EventProcessingCompleted, eventTypes[len(eventTypes)-1])
}

func TestProcessRejectsNonPDFName(t *testing.T) {
	indexer := &fakeIndexer{}
	pipeline := newTestPipeline(
		&fakeExtractor{result: testExtraction()},
		&fakeAlertExtractor{result: &types.AlertExtractionResult{}},
		&fakeEmbedder{dims: 4},
		indexer,
		nil,
	)

	_, err := pipeline.Process(context.Background(), pdfBody(), "acme", "report.docx")

	require.Error(t, err)
	assert.Empty(t, indexer.documents, "no state may be written for rejected input")
	assert.Empty(t, indexer.statuses)
}

func TestProcessRejectsNonPDFContent(t *testing.T) {
	indexer := &fakeIndexer{}
	pipeline := newTestPipeline(
		&fakeExtractor{result: testExtraction()},
		&fakeAlertExtractor{result: &types.AlertExtractionResult{}},
		&fakeEmbedder{dims: 4},
		indexer,
		nil,
	)

	_, err := pipeline.Process(context.Background(), []byte("<html>not a pdf</html>"), "acme", "report.pdf")

	require.Error(t, err)
	assert.Empty(t, indexer.documents)
}

func TestProcessContinuesWhenAlertExtractionFails(t *testing.T) {
	indexer := &fakeIndexer{}
	pipeline := newTestPipeline(
		&fakeExtractor{result: testExtraction()},
		&fakeAlertExtractor{err: errors.New("vision backend down")},
		&fakeEmbedder{dims: 4},
		indexer,
		nil,
	)

	doc, err := pipeline.Process(context.Background(), pdfBody(), "acme", "report.pdf")

	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, doc.ProcessingStatus)
	assert.Equal(t, 0, *doc.AlertCount)
	assert.Empty(t, indexer.alerts)
	assert.Len(t, indexer.chunks, 2)
}

func TestProcessEnforcesAlertExtractionTimeout(t *testing.T) {
	indexer := &fakeIndexer{}
	pipeline := newTestPipeline(
		&fakeExtractor{result: testExtraction()},
		&fakeAlertExtractor{block: true},
		&fakeEmbedder{dims: 4},
		indexer,
		nil,
	)

	start := time.Now()
	doc, err := pipeline.Process(context.Background(), pdfBody(), "acme", "report.pdf")

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, types.StatusCompleted, doc.ProcessingStatus)
	assert.Equal(t, 0, *doc.AlertCount)
}

func TestProcessFailsOnEmbeddingError(t *testing.T) {
	indexer := &fakeIndexer{}
	publisher := &recordingPublisher{}
	pipeline := newTestPipeline(
		&fakeExtractor{result: testExtraction()},
		&fakeAlertExtractor{result: &types.AlertExtractionResult{}},
		&fakeEmbedder{err: errors.New("quota exceeded")},
		indexer,
		publisher,
	)

	doc, err := pipeline.Process(context.Background(), pdfBody(), "acme", "report.pdf")

	require.Error(t, err)
	assert.Equal(t, types.StatusFailed, doc.ProcessingStatus)
	require.NotEmpty(t, indexer.statuses)
	assert.Equal(t, types.StatusFailed, indexer.statuses[len(indexer.statuses)-1])

	eventTypes := publisher.eventTypes()
	assert.Equal(t, types.EventProcessingFailed, eventTypes[len(eventTypes)-1])
}

func TestProcessFailsOnChunkIndexError(t *testing.T) {
	indexer := &fakeIndexer{indexChunksErr: errors.New("weaviate unavailable")}
	pipeline := newTestPipeline(
		&fakeExtractor{result: testExtraction()},
		&fakeAlertExtractor{result: &types.AlertExtractionResult{}},
		&fakeEmbedder{dims: 4},
		indexer,
		nil,
	)

	doc, err := pipeline.Process(context.Background(), pdfBody(), "acme", "report.pdf")

	require.Error(t, err)
	assert.Equal(t, types.StatusFailed, doc.ProcessingStatus)
}

func TestProcessFailsOnExtractionError(t *testing.T) {
	indexer := &fakeIndexer{}
	pipeline := newTestPipeline(
		&fakeExtractor{err: errors.New("corrupt xref table")},
		&fakeAlertExtractor{result: &types.AlertExtractionResult{}},
		&fakeEmbedder{dims: 4},
		indexer,
		nil,
	)

	_, err := pipeline.Process(context.Background(), pdfBody(), "acme", "report.pdf")

	require.Error(t, err)
	assert.Empty(t, indexer.documents, "extraction failure happens before the document exists")
}
