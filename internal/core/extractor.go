package core

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedType is returned for uploads whose extension has no extraction strategy.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrExtractionFailure wraps PDF and OCR failures.
	ErrExtractionFailure = errors.New("text extraction failed")
)

// DocumentExtractor defines the interface for extracting text from binary document types.
type DocumentExtractor interface {
	// ExtractText returns the document text; contentType selects the parsing strategy.
	// PDF output keeps pdftotext's form-feed page separators.
	ExtractText(ctx context.Context, data []byte, contentType string) (string, error)
}
