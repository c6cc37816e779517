package ingestion_engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
)

type fakeExtractor struct {
	text  string
	err   error
	calls int
	types []string
}

func (f *fakeExtractor) ExtractText(_ context.Context, _ []byte, contentType string) (string, error) {
	f.calls++
	f.types = append(f.types, contentType)
	return f.text, f.err
}

func TestNormalize_PlainTextPassesThrough(t *testing.T) {
	ex := &fakeExtractor{}
	n := NewNormalizer(ex)

	for _, name := range []string{"notes.txt", "README.MD"} {
		out, err := n.Normalize(context.Background(), models.SourceDocument{FileName: name, Data: []byte("  raw\n\ntext ")})
		require.NoError(t, err)
		assert.Equal(t, "  raw\n\ntext ", out.Text)
		assert.Equal(t, name, out.SourceRef)
	}
	assert.Zero(t, ex.calls)
}

func TestNormalize_PDFConcatenatesPages(t *testing.T) {
	ex := &fakeExtractor{text: "Page one.\f\fPage three.\f"}
	n := NewNormalizer(ex)

	out, err := n.Normalize(context.Background(), models.SourceDocument{FileName: "fees.pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, "Page one.Page three.", out.Text)
	assert.Equal(t, []string{"application/pdf"}, ex.types)
}

func TestNormalize_ImageUsesOCR(t *testing.T) {
	ex := &fakeExtractor{text: "Scanned notice"}
	n := NewNormalizer(ex)

	for _, name := range []string{"a.jpg", "b.JPEG", "c.png"} {
		out, err := n.Normalize(context.Background(), models.SourceDocument{FileName: name, Data: []byte{0xff}})
		require.NoError(t, err)
		assert.Equal(t, "Scanned notice", out.Text)
	}
	assert.Equal(t, []string{"image/jpeg", "image/jpeg", "image/png"}, ex.types)
}

func TestNormalize_UnsupportedType(t *testing.T) {
	n := NewNormalizer(&fakeExtractor{})
	_, err := n.Normalize(context.Background(), models.SourceDocument{FileName: "slides.docx"})
	assert.ErrorIs(t, err, core.ErrUnsupportedType)
}

func TestNormalize_ExtractionFailure(t *testing.T) {
	n := NewNormalizer(&fakeExtractor{err: errors.New("pdftotext: exit 1")})
	_, err := n.Normalize(context.Background(), models.SourceDocument{FileName: "broken.pdf"})
	assert.ErrorIs(t, err, core.ErrExtractionFailure)
}

func TestWriteSidecar(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "fees.pdf")

	path, err := WriteSidecar(pdf, models.NormalizedDocument{Text: "Tuition details"})
	require.NoError(t, err)
	assert.Equal(t, pdf+".txt", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Tuition details", string(data))

	path, err = WriteSidecar(filepath.Join(dir, "plain.txt"), models.NormalizedDocument{Text: "x"})
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a\n\n b\t\tc  "))
	assert.Equal(t, "", CollapseWhitespace(" \n\t "))
}
