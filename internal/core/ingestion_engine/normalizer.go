package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
)

// SidecarSuffix is appended to a non-text upload's name for its extracted text.
const SidecarSuffix = ".txt"

const pageBreak = "\f"

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Normalizer turns a source document into plain text.
type Normalizer struct {
	extractor core.DocumentExtractor
}

func NewNormalizer(extractor core.DocumentExtractor) *Normalizer {
	return &Normalizer{extractor: extractor}
}

// IsSupported reports whether fileName has an extraction strategy.
func IsSupported(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == ".txt" || ext == ".md" {
		return true
	}
	_, ok := contentTypes[ext]
	return ok
}

// IsPlainText reports whether fileName passes through without extraction.
func IsPlainText(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	return ext == ".txt" || ext == ".md"
}

func (n *Normalizer) Normalize(ctx context.Context, doc models.SourceDocument) (models.NormalizedDocument, error) {
	ext := strings.ToLower(filepath.Ext(doc.FileName))
	out := models.NormalizedDocument{SourceRef: doc.FileName}

	switch ext {
	case ".txt", ".md":
		out.Text = string(doc.Data)
		return out, nil

	case ".pdf":
		raw, err := n.extractor.ExtractText(ctx, doc.Data, contentTypes[ext])
		if err != nil {
			return out, wrapExtraction(doc.FileName, err)
		}
		out.Text = joinPages(raw)
		return out, nil

	case ".jpg", ".jpeg", ".png":
		raw, err := n.extractor.ExtractText(ctx, doc.Data, contentTypes[ext])
		if err != nil {
			return out, wrapExtraction(doc.FileName, err)
		}
		out.Text = raw
		return out, nil
	}

	return out, fmt.Errorf("%w: %q", core.ErrUnsupportedType, doc.FileName)
}

func wrapExtraction(name string, err error) error {
	if errors.Is(err, core.ErrExtractionFailure) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%w: %s: %v", core.ErrExtractionFailure, name, err)
}

// joinPages concatenates per-page text in order. Pages with no text contribute "".
func joinPages(raw string) string {
	return strings.TrimSpace(strings.Join(strings.Split(raw, pageBreak), ""))
}

// WriteSidecar stores extracted text next to the original upload so reindexing
// can skip extraction. Plain text sources have no sidecar.
func WriteSidecar(path string, doc models.NormalizedDocument) (string, error) {
	if IsPlainText(path) {
		return "", nil
	}
	sidecar := path + SidecarSuffix
	if err := os.WriteFile(sidecar, []byte(doc.Text), 0o644); err != nil {
		return "", fmt.Errorf("write sidecar: %w", err)
	}
	return sidecar, nil
}

// CollapseWhitespace replaces every whitespace run with one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
