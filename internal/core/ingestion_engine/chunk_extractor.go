package ingestion_engine

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/AmityBot/internal/models"
)

// ErrInvalidChunkConfig is returned when overlap cannot fit inside a chunk.
var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// DefaultSeparators are tried in order; "" splits into single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Split cuts doc into chunks of at most maxSize characters. Text is split on the
// coarsest separator present; only pieces that still exceed maxSize are split
// again with the next separator. Each separator stays at the start of the piece
// that follows it, so chunk text is never lost at a boundary. Adjacent chunks
// share up to overlap characters.
func Split(doc models.NormalizedDocument, maxSize, overlap int) ([]models.Chunk, error) {
	if maxSize <= 0 || overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkConfig, maxSize, overlap)
	}

	s := splitter{maxSize: maxSize, overlap: overlap}
	texts := s.split(doc.Text, DefaultSeparators)

	chunks := make([]models.Chunk, 0, len(texts))
	for _, t := range texts {
		chunks = append(chunks, models.Chunk{Text: t, SourceRef: doc.SourceRef, Ordinal: len(chunks)})
	}
	return chunks, nil
}

type splitter struct {
	maxSize int
	overlap int
}

func charLen(s string) int { return utf8.RuneCountInString(s) }

func (s splitter) split(text string, separators []string) []string {
	sep, rest := pickSeparator(text, separators)

	var (
		out  []string
		good []string
	)
	for _, p := range splitKeep(text, sep) {
		if charLen(p) <= s.maxSize {
			good = append(good, p)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, p)
			continue
		}
		out = append(out, s.split(p, rest)...)
	}
	if len(good) > 0 {
		out = append(out, s.merge(good)...)
	}
	return out
}

// splitKeep splits text on sep and prefixes every piece after the first with
// sep. Empty pieces are dropped.
func splitKeep(text, sep string) []string {
	if sep == "" {
		return strings.Split(text, "")
	}
	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// pickSeparator returns the first separator present in text and the finer ones after it.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// merge packs small pieces into chunks, carrying a tail of whole pieces of at
// most overlap characters into the next chunk.
func (s splitter) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	flush := func() {
		if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
			out = append(out, doc)
		}
	}

	for _, p := range pieces {
		l := charLen(p)
		if total+l > s.maxSize && len(current) > 0 {
			flush()
			for total > s.overlap || (total > 0 && total+l > s.maxSize) {
				total -= charLen(current[0])
				current = current[1:]
			}
		}
		total += l
		current = append(current, p)
	}

	flush()
	return out
}
