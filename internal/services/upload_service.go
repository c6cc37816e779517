package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/core/ingestion_engine"
	"github.com/markdave123-py/AmityBot/internal/models"
)

var (
	ErrNoText           = errors.New("no text could be extracted")
	ErrDocumentNotFound = errors.New("document not found")
)

// Normalizer is the slice of the ingestion engine an upload needs.
type Normalizer interface {
	Normalize(ctx context.Context, doc models.SourceDocument) (models.NormalizedDocument, error)
}

// Archiver mirrors stored uploads to object storage.
type Archiver interface {
	Store(ctx context.Context, storedName, contentType string, data []byte) (string, error)
	Remove(ctx context.Context, storedName string) error
}

type ReindexTrigger interface {
	Enqueue(reason string)
}

type UploadResult struct {
	StoredName string `json:"stored_name"`
	Sidecar    string `json:"sidecar,omitempty"`
	ArchiveURL string `json:"archive_url,omitempty"`
	Message    string `json:"message"`
}

// UploadService accepts knowledge-base files into the data directory.
type UploadService struct {
	dataDir    string
	supported  func(string) bool
	normalizer Normalizer
	sidecar    func(string, models.NormalizedDocument) (string, error)
	trigger    ReindexTrigger
	archive    Archiver
	logger     *slog.Logger
	newID      func() string
}

// UploadDeps groups the collaborators of an UploadService. Archive may be nil.
type UploadDeps struct {
	Supported  func(fileName string) bool
	Normalizer Normalizer
	Sidecar    func(path string, doc models.NormalizedDocument) (string, error)
	Trigger    ReindexTrigger
	Archive    Archiver
	Logger     *slog.Logger
}

func NewUploadService(dataDir string, deps UploadDeps) *UploadService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{
		dataDir:    dataDir,
		supported:  deps.Supported,
		normalizer: deps.Normalizer,
		sidecar:    deps.Sidecar,
		trigger:    deps.Trigger,
		archive:    deps.Archive,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

// Upload saves data as <uuid>_<name>, extracts its text, writes the sidecar
// and schedules a rebuild. A rejected file leaves nothing behind.
func (s *UploadService) Upload(ctx context.Context, fileName, contentType string, data []byte) (*UploadResult, error) {
	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "." || base == string(filepath.Separator) || !s.supported(base) {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedType, fileName)
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	stored := s.newID() + "_" + base
	path := filepath.Join(s.dataDir, stored)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	doc, err := s.normalizer.Normalize(ctx, models.SourceDocument{FileName: base, Path: path, Data: data})
	if err == nil && strings.TrimSpace(doc.Text) == "" {
		err = ErrNoText
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	doc.SourceRef = stored

	sidecar, err := s.sidecar(path, doc)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	res := &UploadResult{StoredName: stored, Message: "File uploaded and KB reindex scheduled."}
	if sidecar != "" {
		res.Sidecar = filepath.Base(sidecar)
	}

	if s.archive != nil {
		url, err := s.archive.Store(ctx, stored, contentType, data)
		if err != nil {
			s.logger.Warn("archive upload failed", "file", stored, "error", err)
		} else {
			res.ArchiveURL = url
		}
	}

	s.logger.Info("upload accepted", "file", stored, "bytes", len(data), "sidecar", res.Sidecar)
	s.trigger.Enqueue("upload:" + stored)
	return res, nil
}

// Delete removes a stored upload, its sidecar and its archived copy, then
// schedules a rebuild so the document leaves the index.
func (s *UploadService) Delete(ctx context.Context, storedName string) error {
	if storedName == "" || filepath.Base(storedName) != storedName || !s.supported(storedName) {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, storedName)
	}

	path := filepath.Join(s.dataDir, storedName)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, storedName)
		}
		return fmt.Errorf("remove upload: %w", err)
	}
	if err := os.Remove(path + ingestion_engine.SidecarSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("sidecar removal failed", "file", storedName, "error", err)
	}

	if s.archive != nil {
		if err := s.archive.Remove(ctx, storedName); err != nil {
			s.logger.Warn("archive delete failed", "file", storedName, "error", err)
		}
	}

	s.logger.Info("upload removed", "file", storedName)
	s.trigger.Enqueue("delete:" + storedName)
	return nil
}
