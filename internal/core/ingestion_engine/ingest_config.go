package ingestion_engine

import (
	"log/slog"
	"sync"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/core/metrics"
)

// IngestConfig tunes the reindex pipeline.
//
// DataDir:          directory scanned for knowledge base sources.
// ChunkSize:        maximum characters per chunk (e.g., 500).
// ChunkOverlap:     characters shared by adjacent chunks (e.g., 100).
// MinContentLength: documents shorter than this after whitespace collapse are skipped.
// Workers:          bound on concurrent document normalization.
type IngestConfig struct {
	DataDir          string
	ChunkSize        int
	ChunkOverlap     int
	MinContentLength int
	Workers          int
}

func DefaultIngestConfig(dataDir string) *IngestConfig {
	return &IngestConfig{
		DataDir:          dataDir,
		ChunkSize:        500,
		ChunkOverlap:     100,
		MinContentLength: 50,
		Workers:          4,
	}
}

// DocumentIngestor rebuilds the knowledge base index from DataDir:
//
// cfg:        runtime tuning knobs for the pipeline.
// normalizer: turns PDFs, images and text files into plain text.
// index:      the index gateway that embeds chunks and swaps generations.
// publisher:  optional event sink notified after each rebuild.
// metrics:    optional Prometheus collectors.
// mu:         serializes rebuilds so ingestion is the single index writer.
// triggers:   coalescing queue of pending rebuild requests.
type DocumentIngestor struct {
	cfg        *IngestConfig
	normalizer *Normalizer
	index      IndexWriter
	publisher  core.EventPublisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	mu         sync.Mutex
	triggers   chan string
}
