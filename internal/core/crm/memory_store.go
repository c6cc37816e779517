package crm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
)

var _ core.LeadStore = (*MemoryStore)(nil)

// MemoryStore is an in-process CRM used for demos and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	leads map[string]models.LeadRecord
	now   func() time.Time
}

// NewMemoryStore returns a store holding leads. Pass SeedLeads() for the demo data.
func NewMemoryStore(leads []models.LeadRecord) *MemoryStore {
	m := &MemoryStore{leads: make(map[string]models.LeadRecord, len(leads)), now: time.Now}
	for _, l := range leads {
		m.leads[l.ID] = l
	}
	return m
}

// SeedLeads is the demo CRM data set.
func SeedLeads() []models.LeadRecord {
	return []models.LeadRecord{
		{
			ID: "123", Name: "John Doe", Status: "Interested",
			Email: "john.doe@email.com", Phone: "+91-9876543210",
			CourseInterest: "B.Tech Computer Science", LastContact: "2024-01-15",
			AssignedCounselor: "Ms. Priya Sharma", CreatedAt: "2024-01-10",
			Notes: "Interested in AI/ML specialization",
		},
		{
			ID: "456", Name: "Jane Smith", Status: "Not Responding",
			Email: "jane.smith@email.com", Phone: "+91-9876543211",
			CourseInterest: "MBA", LastContact: "2024-01-12",
			AssignedCounselor: "Mr. Raj Kumar", CreatedAt: "2024-01-08",
			Notes: "Called multiple times, no response",
		},
		{
			ID: "789", Name: "Rahul Gupta", Status: "Application Submitted",
			Email: "rahul.gupta@email.com", Phone: "+91-9876543212",
			CourseInterest: "B.Com", LastContact: "2024-01-20",
			AssignedCounselor: "Ms. Priya Sharma", CreatedAt: "2024-01-05",
			Notes: "Documents verified, awaiting admission decision",
		},
		{
			ID: "101", Name: "Priya Patel", Status: "Enrolled",
			Email: "priya.patel@email.com", Phone: "+91-9876543213",
			CourseInterest: "BCA", LastContact: "2024-01-22",
			AssignedCounselor: "Mr. Raj Kumar", CreatedAt: "2024-01-01",
			Notes: "Successfully enrolled for 2024 batch",
		},
	}
}

func (m *MemoryStore) GetLead(ctx context.Context, id string) (*models.LeadRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.leads[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrLeadNotFound, id)
	}
	return &l, nil
}

func (m *MemoryStore) SearchByName(ctx context.Context, name string) ([]models.LeadRecord, error) {
	needle := strings.ToLower(name)
	return m.filter(func(l models.LeadRecord) bool {
		return strings.Contains(strings.ToLower(l.Name), needle)
	}), nil
}

func (m *MemoryStore) ListByStatus(ctx context.Context, status string) ([]models.LeadRecord, error) {
	return m.filter(func(l models.LeadRecord) bool {
		return strings.EqualFold(l.Status, status)
	}), nil
}

func (m *MemoryStore) ListByCounselor(ctx context.Context, counselor string) ([]models.LeadRecord, error) {
	needle := strings.ToLower(counselor)
	return m.filter(func(l models.LeadRecord) bool {
		return l.AssignedCounselor != "" && strings.Contains(strings.ToLower(l.AssignedCounselor), needle)
	}), nil
}

// UpdateStatus sets a new status, stamps today's date as last contact and
// appends notes to the existing ones.
func (m *MemoryStore) UpdateStatus(ctx context.Context, id, status, notes string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leads[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", core.ErrLeadNotFound, id)
	}
	old := l.Status
	l.Status = status
	l.LastContact = m.now().Format(time.DateOnly)
	l.Notes = AppendNotes(l.Notes, notes)
	m.leads[id] = l
	return old, nil
}

// AppendNotes joins existing and extra notes with "; ".
func AppendNotes(existing, extra string) string {
	switch {
	case extra == "":
		return existing
	case existing == "":
		return extra
	default:
		return existing + "; " + extra
	}
}

func (m *MemoryStore) filter(keep func(models.LeadRecord) bool) []models.LeadRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.LeadRecord{}
	for _, l := range m.leads {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
