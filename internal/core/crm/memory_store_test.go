package crm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/AmityBot/internal/core"
)

func seeded() *MemoryStore {
	s := NewMemoryStore(SeedLeads())
	s.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestGetLead(t *testing.T) {
	s := seeded()

	l, err := s.GetLead(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", l.Name)
	assert.Equal(t, "Interested", l.Status)
	assert.Equal(t, "Ms. Priya Sharma", l.AssignedCounselor)

	_, err = s.GetLead(context.Background(), "999")
	assert.ErrorIs(t, err, core.ErrLeadNotFound)
}

func TestSearchByName(t *testing.T) {
	s := seeded()

	got, err := s.SearchByName(context.Background(), "priya")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "101", got[0].ID)

	got, err = s.SearchByName(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListByStatusAndCounselor(t *testing.T) {
	s := seeded()

	got, err := s.ListByStatus(context.Background(), "enrolled")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Priya Patel", got[0].Name)

	got, err = s.ListByCounselor(context.Background(), "raj")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "101", got[0].ID)
	assert.Equal(t, "456", got[1].ID)
}

func TestUpdateStatus(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	old, err := s.UpdateStatus(ctx, "456", "Interested", "Picked up on third call")
	require.NoError(t, err)
	assert.Equal(t, "Not Responding", old)

	l, err := s.GetLead(ctx, "456")
	require.NoError(t, err)
	assert.Equal(t, "Interested", l.Status)
	assert.Equal(t, "2025-03-14", l.LastContact)
	assert.Equal(t, "Called multiple times, no response; Picked up on third call", l.Notes)

	_, err = s.UpdateStatus(ctx, "000", "Enrolled", "")
	assert.ErrorIs(t, err, core.ErrLeadNotFound)
}

func TestAppendNotes(t *testing.T) {
	assert.Equal(t, "a", AppendNotes("a", ""))
	assert.Equal(t, "b", AppendNotes("", "b"))
	assert.Equal(t, "a; b", AppendNotes("a", "b"))
}

func TestConcurrentAccess(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.UpdateStatus(ctx, "789", "Admitted", "")
		}()
		go func() {
			defer wg.Done()
			_, err := s.GetLead(ctx, "789")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
