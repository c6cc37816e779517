package ingestion_engine

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/AmityBot/internal/models"
)

func doc(text string) models.NormalizedDocument {
	return models.NormalizedDocument{Text: text, SourceRef: "brochure.txt"}
}

func TestSplit_InvalidConfig(t *testing.T) {
	_, err := Split(doc("hello"), 100, 100)
	assert.ErrorIs(t, err, ErrInvalidChunkConfig)

	_, err = Split(doc("hello"), 0, 0)
	assert.ErrorIs(t, err, ErrInvalidChunkConfig)

	_, err = Split(doc("hello"), 10, -1)
	assert.ErrorIs(t, err, ErrInvalidChunkConfig)
}

func TestSplit_EmptyInput(t *testing.T) {
	chunks, err := Split(doc(""), 500, 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = Split(doc("   "), 500, 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks, err := Split(doc("Amity University offers B.Tech programmes."), 500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Amity University offers B.Tech programmes.", chunks[0].Text)
	assert.Equal(t, "brochure.txt", chunks[0].SourceRef)
	assert.Equal(t, 0, chunks[0].Ordinal)
}

func TestSplit_RespectsMaxSizeAndOrdinals(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("The campus library opens at nine. ")
	}

	chunks, err := Split(doc(b.String()), 500, 100)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 500)
		assert.Equal(t, i, c.Ordinal)
		assert.NotEmpty(t, c.Text)
	}
}

func TestSplit_RawCharacterOverlapIsExact(t *testing.T) {
	text := strings.Repeat("abcdefghij", 120) // 1200 chars, no separators

	chunks, err := Split(doc(text), 500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, text[0:500], chunks[0].Text)
	assert.Equal(t, text[400:900], chunks[1].Text)
	assert.Equal(t, text[800:1200], chunks[2].Text)

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		assert.True(t, strings.HasPrefix(chunks[i].Text, prev[len(prev)-100:]))
	}
}

func TestSplit_WordOverlapCarriesWholeWords(t *testing.T) {
	words := make([]string, 0, 300)
	for i := 0; i < 300; i++ {
		words = append(words, "word")
	}
	text := strings.Join(words, " ")

	chunks, err := Split(doc(text), 50, 10)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1].Text[len(chunks[i-1].Text)-9:]
		assert.True(t, strings.HasPrefix(chunks[i].Text, prevTail), "chunk %d should start with previous tail", i)
		assert.LessOrEqual(t, len(chunks[i].Text), 50)
	}
}

func TestSplit_KeepsSeparatorWithFollowingChunk(t *testing.T) {
	text := "Fees are due in July. Hostel rooms are shared. Buses leave at eight."

	chunks, err := Split(doc(text), 30, 0)
	require.NoError(t, err)

	got := make([]string, 0, len(chunks))
	for _, c := range chunks {
		got = append(got, c.Text)
	}
	assert.Equal(t, []string{
		"Fees are due in July",
		". Hostel rooms are shared",
		". Buses leave at eight.",
	}, got)
	assert.Equal(t, text, strings.Join(got, ""))
}

func TestSplit_NoTextLostAcrossParagraphs(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Hostel curfew is ten.\nGuests sign in at the gate. Rooms are shared.\n\n")
	}
	text := b.String()

	chunks, err := Split(doc(text), 120, 0)
	require.NoError(t, err)

	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Text)
	}
	squash := func(s string) string { return strings.Join(strings.Fields(s), "") }
	assert.Equal(t, squash(text), squash(joined.String()))
}

func TestSplit_FallsBackOnlyForOversizedSegments(t *testing.T) {
	short := "Admissions open in May."
	long := strings.Repeat("x", 30)
	text := short + "\n\n" + long

	chunks, err := Split(doc(text), 25, 5)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, short, chunks[0].Text)
	for _, c := range chunks[1:] {
		assert.LessOrEqual(t, len(c.Text), 25)
	}
}

func TestSplit_Multibyte(t *testing.T) {
	text := strings.Repeat("é", 30)
	chunks, err := Split(doc(text), 10, 2)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 10)
		assert.True(t, utf8.ValidString(c.Text))
	}
}
