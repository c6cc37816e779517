package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
)

const (
	currentFile   = "CURRENT"
	recordsFile   = "records.json"
	generationPfx = "gen-"
)

var _ core.VectorStore = (*DiskStore)(nil)

// DiskStore is a persistent brute-force cosine index. Each write produces a new
// generation directory; the CURRENT file names the active one and is replaced
// with a rename, so readers only ever see a complete generation.
type DiskStore struct {
	dir string

	writeMu sync.Mutex // one writer at a time

	mu         sync.RWMutex
	generation string
	records    []core.VectorRecord
	norms      []float64
}

// OpenDiskStore loads the active generation from dir if one exists.
func OpenDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	s := &DiskStore{dir: dir}

	gen, err := os.ReadFile(filepath.Join(dir, currentFile))
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", currentFile, err)
	}

	name := strings.TrimSpace(string(gen))
	records, err := readGeneration(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	s.swap(name, records)
	return s, nil
}

func (s *DiskStore) Search(ctx context.Context, queryVec []float32, k int) ([]models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.generation == "" {
		return nil, core.ErrIndexUnavailable
	}
	if k <= 0 || len(s.records) == 0 {
		return nil, nil
	}

	qn := norm(queryVec)
	idxs := make([]int, len(s.records))
	scores := make([]float64, len(s.records))
	for i, r := range s.records {
		idxs[i] = i
		scores[i] = cosine(queryVec, qn, r.Embedding, s.norms[i])
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })

	k = min(k, len(idxs))
	out := make([]models.SearchResult, 0, k)
	for _, j := range idxs[:k] {
		c := s.records[j].Chunk
		out = append(out, models.SearchResult{Text: c.Text, SourceRef: c.SourceRef, Score: scores[j]})
	}
	return out, nil
}

func (s *DiskStore) Append(ctx context.Context, records []core.VectorRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	merged := make([]core.VectorRecord, 0, len(s.records)+len(records))
	merged = append(merged, s.records...)
	s.mu.RUnlock()

	return s.commit(ctx, append(merged, records...))
}

func (s *DiskStore) Replace(ctx context.Context, records []core.VectorRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.commit(ctx, records)
}

func (s *DiskStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.generation == "" {
		return 0, core.ErrIndexUnavailable
	}
	return len(s.records), nil
}

// Generation names the active generation directory, or "" before the first build.
func (s *DiskStore) Generation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// commit stages records as a new generation, points CURRENT at it and drops the
// previous generation. Caller holds writeMu.
func (s *DiskStore) commit(ctx context.Context, records []core.VectorRecord) error {
	name := generationPfx + uuid.NewString()
	genDir := filepath.Join(s.dir, name)

	if err := writeGeneration(genDir, records); err != nil {
		_ = os.RemoveAll(genDir)
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = os.RemoveAll(genDir)
		return err
	}

	tmp := filepath.Join(s.dir, currentFile+".tmp")
	if err := os.WriteFile(tmp, []byte(name+"\n"), 0o644); err != nil {
		_ = os.RemoveAll(genDir)
		return fmt.Errorf("stage %s: %w", currentFile, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, currentFile)); err != nil {
		_ = os.RemoveAll(genDir)
		return fmt.Errorf("swap %s: %w", currentFile, err)
	}

	previous := s.Generation()
	s.swap(name, records)

	if previous != "" && previous != name {
		_ = os.RemoveAll(filepath.Join(s.dir, previous))
	}
	return nil
}

func (s *DiskStore) swap(name string, records []core.VectorRecord) {
	norms := make([]float64, len(records))
	for i, r := range records {
		norms[i] = norm(r.Embedding)
	}

	s.mu.Lock()
	s.generation = name
	s.records = records
	s.norms = norms
	s.mu.Unlock()
}

func writeGeneration(dir string, records []core.VectorRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create generation: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, recordsFile))
	if err != nil {
		return fmt.Errorf("create records: %w", err)
	}
	if records == nil {
		records = []core.VectorRecord{}
	}
	if err := json.NewEncoder(f).Encode(records); err != nil {
		f.Close()
		return fmt.Errorf("encode records: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync records: %w", err)
	}
	return f.Close()
}

func readGeneration(dir string) ([]core.VectorRecord, error) {
	f, err := os.Open(filepath.Join(dir, recordsFile))
	if err != nil {
		return nil, fmt.Errorf("open generation: %w", err)
	}
	defer f.Close()

	var records []core.VectorRecord
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode generation %s: %w", filepath.Base(dir), err)
	}
	return records, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	n := min(len(a), len(b))
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
