package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
)

func TestAssemble_RoleDepth(t *testing.T) {
	s := &fakeSearcher{hits: hits("one", "two", "three", "four", "five", "six")}
	a := NewContextAssembler(s, nil)
	ctx := context.Background()

	general, err := a.Assemble(ctx, "hostels", models.RoleGeneral)
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo", general)

	authed, err := a.Assemble(ctx, "hostels", models.RoleAuthenticated)
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo\n\nthree\n\nfour\n\nfive", authed)

	assert.Equal(t, []int{searchK, searchK}, s.ks)
}

func TestAssemble_ZeroHits(t *testing.T) {
	a := NewContextAssembler(&fakeSearcher{}, nil)
	out, err := a.Assemble(context.Background(), "anything", models.RoleGeneral)
	require.NoError(t, err)
	assert.Equal(t, EmptyContext, out)
}

func TestAssemble_IndexUnavailable(t *testing.T) {
	a := NewContextAssembler(&fakeSearcher{err: core.ErrIndexUnavailable}, nil)
	out, err := a.Assemble(context.Background(), "anything", models.RoleGeneral)
	require.NoError(t, err)
	assert.Equal(t, UnavailableContext, out)
}

func TestAssemble_SearchFailurePropagates(t *testing.T) {
	boom := errors.New("embedding quota")
	a := NewContextAssembler(&fakeSearcher{err: boom}, nil)
	_, err := a.Assemble(context.Background(), "anything", models.RoleGeneral)
	assert.ErrorIs(t, err, boom)
}

func TestAssemble_Truncates(t *testing.T) {
	big := strings.Repeat("a", 2000)
	a := NewContextAssembler(&fakeSearcher{hits: hits(big, big)}, nil)

	out, err := a.Assemble(context.Background(), "q", models.RoleGeneral)
	require.NoError(t, err)
	assert.Equal(t, MaxContextChars+len(truncationMarker), utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestContextDocs(t *testing.T) {
	assert.Equal(t, 2, ContextDocs(models.RoleGeneral))
	assert.Equal(t, 5, ContextDocs(models.RoleAuthenticated))
	assert.Equal(t, 2, ContextDocs(models.Role("guest")))
}
