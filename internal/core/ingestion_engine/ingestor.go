package ingestion_engine

import (
	"context"
	"log/slog"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/core/metrics"
	"github.com/markdave123-py/AmityBot/internal/models"
)

type Ingestor interface {
	Start(ctx context.Context)
	Enqueue(reason string)
	Reindex(ctx context.Context) (models.IngestReport, error)
	EnsureIndex(ctx context.Context) error
	ScheduleInitialBuild(ctx context.Context) (bool, error)
}

var _ Ingestor = (*DocumentIngestor)(nil)

// NewDocumentIngestor wires the pipeline. publisher and m may be nil.
func NewDocumentIngestor(cfg *IngestConfig, normalizer *Normalizer, index IndexWriter, publisher core.EventPublisher, m *metrics.Metrics, logger *slog.Logger) *DocumentIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentIngestor{
		cfg:        cfg,
		normalizer: normalizer,
		index:      index,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
		triggers:   make(chan string, 1),
	}
}

// Start runs the rebuild worker until ctx is done. Triggers that arrive while a
// rebuild is running collapse into one follow-up rebuild.
func (i *DocumentIngestor) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				i.logger.Info("ingestor worker shutting down")
				return
			case reason := <-i.triggers:
				i.logger.Info("reindex triggered", "reason", reason)
				if _, err := i.Reindex(ctx); err != nil {
					i.logger.Error("reindex failed", "reason", reason, "error", err)
				}
			}
		}
	}()
}

// Enqueue schedules a rebuild. It never blocks; if a rebuild is already
// pending the request is folded into it.
func (i *DocumentIngestor) Enqueue(reason string) {
	select {
	case i.triggers <- reason:
	default:
		i.logger.Debug("reindex already pending", "reason", reason)
	}
}
