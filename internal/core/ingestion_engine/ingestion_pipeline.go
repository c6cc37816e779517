package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/core/events"
	"github.com/markdave123-py/AmityBot/internal/models"
)

// IndexWriter is the part of the index gateway ingestion depends on.
type IndexWriter interface {
	Rebuild(ctx context.Context, chunks []models.Chunk) error
	Count(ctx context.Context) (int, error)
}

type source struct {
	path string
	ref  string
}

// Reindex rebuilds the index from every supported document under DataDir.
// Per-document failures are logged and skipped; embedding or index failures
// abort the run and leave the previous index serving.
func (i *DocumentIngestor) Reindex(ctx context.Context) (models.IngestReport, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	start := time.Now()
	report := models.IngestReport{}

	sources, err := i.enumerate()
	if err != nil {
		i.metrics.ObserveReindex(0, 0, 0, err)
		return report, err
	}
	report.DocumentsSeen = len(sources)

	docs := make([]*models.NormalizedDocument, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	if i.cfg.Workers > 0 {
		g.SetLimit(i.cfg.Workers)
	}
	for idx, src := range sources {
		g.Go(func() error {
			doc, err := i.load(gctx, src)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				i.logger.Warn("skipping document", "source", src.ref, "error", err)
				return nil
			}
			docs[idx] = &doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		i.metrics.ObserveReindex(0, 0, 0, err)
		return report, err
	}

	var chunks []models.Chunk
	for _, doc := range docs {
		if doc == nil {
			report.DocumentsSkipped++
			continue
		}
		text := CollapseWhitespace(doc.Text)
		if charLen(text) < i.cfg.MinContentLength {
			i.logger.Warn("skipping short document", "source", doc.SourceRef, "length", charLen(text))
			report.DocumentsSkipped++
			continue
		}
		docChunks, err := Split(models.NormalizedDocument{Text: text, SourceRef: doc.SourceRef}, i.cfg.ChunkSize, i.cfg.ChunkOverlap)
		if err != nil {
			i.metrics.ObserveReindex(0, 0, 0, err)
			return report, err
		}
		chunks = append(chunks, docChunks...)
		report.DocumentsIndexed++
	}

	if err := i.index.Rebuild(ctx, chunks); err != nil {
		i.metrics.ObserveReindex(0, 0, 0, err)
		return report, fmt.Errorf("rebuild index: %w", err)
	}

	report.Chunks = len(chunks)
	report.Duration = time.Since(start)
	i.metrics.ObserveReindex(report.Chunks, report.DocumentsSkipped, report.Duration, nil)
	i.logger.Info("knowledge base reindexed",
		"documents", report.DocumentsIndexed,
		"skipped", report.DocumentsSkipped,
		"chunks", report.Chunks,
		"duration", report.Duration)

	if i.publisher != nil {
		ev := events.ReindexedEvent{
			DocumentsIndexed: report.DocumentsIndexed,
			DocumentsSkipped: report.DocumentsSkipped,
			Chunks:           report.Chunks,
			DurationMs:       report.Duration.Milliseconds(),
			CompletedAt:      time.Now().UTC(),
		}
		if err := i.publisher.Publish(events.SubjectReindexed, ev); err != nil {
			i.logger.Warn("publish reindex event", "error", err)
		}
	}
	return report, nil
}

// EnsureIndex builds the index when no generation exists yet.
func (i *DocumentIngestor) EnsureIndex(ctx context.Context) error {
	n, err := i.index.Count(ctx)
	if err == nil {
		i.logger.Info("knowledge base index present", "chunks", n)
		return nil
	}
	if !errors.Is(err, core.ErrIndexUnavailable) {
		return fmt.Errorf("inspect index: %w", err)
	}
	i.logger.Info("no knowledge base index found, building")
	_, err = i.Reindex(ctx)
	return err
}

// ScheduleInitialBuild queues a background build when no generation exists
// yet and reports whether it did. Answers keep degrading to the unavailable
// notice until the build commits.
func (i *DocumentIngestor) ScheduleInitialBuild(ctx context.Context) (bool, error) {
	n, err := i.index.Count(ctx)
	if err == nil {
		i.logger.Info("knowledge base index present", "chunks", n)
		return false, nil
	}
	if !errors.Is(err, core.ErrIndexUnavailable) {
		return false, fmt.Errorf("inspect index: %w", err)
	}
	i.logger.Info("no knowledge base index found, scheduling build")
	i.Enqueue("startup")
	return true, nil
}

// enumerate lists supported sources in a stable order. A sidecar is folded
// into its original so each upload is indexed once.
func (i *DocumentIngestor) enumerate() ([]source, error) {
	var out []source
	err := filepath.WalkDir(i.cfg.DataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsSupported(path) {
			return nil
		}
		if isSidecar(path) {
			return nil
		}
		rel, err := filepath.Rel(i.cfg.DataDir, path)
		if err != nil {
			rel = d.Name()
		}
		out = append(out, source{path: path, ref: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan data dir %s: %w", i.cfg.DataDir, err)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ref < out[b].ref })
	return out, nil
}

// isSidecar reports whether path is extracted text for an original that still exists.
func isSidecar(path string) bool {
	if !strings.HasSuffix(path, SidecarSuffix) {
		return false
	}
	original := strings.TrimSuffix(path, SidecarSuffix)
	if !IsSupported(original) || IsPlainText(original) {
		return false
	}
	_, err := os.Stat(original)
	return err == nil
}

func (i *DocumentIngestor) load(ctx context.Context, src source) (models.NormalizedDocument, error) {
	if !IsPlainText(src.path) {
		if text, err := os.ReadFile(src.path + SidecarSuffix); err == nil {
			return models.NormalizedDocument{Text: string(text), SourceRef: src.ref}, nil
		}
	}

	data, err := os.ReadFile(src.path)
	if err != nil {
		return models.NormalizedDocument{}, fmt.Errorf("read %s: %w", src.ref, err)
	}

	doc, err := i.normalizer.Normalize(ctx, models.SourceDocument{FileName: filepath.Base(src.path), Path: src.path, Data: data})
	if err != nil {
		return doc, err
	}
	doc.SourceRef = src.ref

	if _, err := WriteSidecar(src.path, doc); err != nil {
		i.logger.Warn("sidecar not written", "source", src.ref, "error", err)
	}
	return doc, nil
}
