package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/AmityBot/internal/core"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
// PDFs go through pdftotext; images go through tesseract when docconv is
// built with the ocr tag.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

func (e *DocconvExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return "", fmt.Errorf("%w: docconv %s: %v", core.ErrExtractionFailure, contentType, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return res.Body, nil
}
