package core

import (
	"context"
	"errors"
	"io"

	"github.com/markdave123-py/AmityBot/internal/models"
)

var (
	// ErrIndexUnavailable means no index generation has been built yet.
	ErrIndexUnavailable = errors.New("knowledge base index unavailable")
	// ErrLeadNotFound is returned by LeadStore lookups for unknown ids.
	ErrLeadNotFound = errors.New("lead not found")
)

// VectorRecord is what a VectorStore persists for one chunk.
type VectorRecord struct {
	Chunk     models.Chunk `json:"chunk"`
	Embedding []float32    `json:"embedding"`
}

// VectorStore abstracts the persistent similarity index so the gateway never
// depends on a specific backend. Replace must be all-or-nothing: a failed
// Replace leaves the previous generation serving reads.
type VectorStore interface {
	Search(ctx context.Context, queryVec []float32, k int) ([]models.SearchResult, error)
	Append(ctx context.Context, records []VectorRecord) error
	Replace(ctx context.Context, records []VectorRecord) error
	Count(ctx context.Context) (int, error)
}

// LeadStore is the CRM boundary.
type LeadStore interface {
	GetLead(ctx context.Context, id string) (*models.LeadRecord, error)
	SearchByName(ctx context.Context, name string) ([]models.LeadRecord, error)
	ListByStatus(ctx context.Context, status string) ([]models.LeadRecord, error)
	ListByCounselor(ctx context.Context, counselor string) ([]models.LeadRecord, error)
	UpdateStatus(ctx context.Context, id, status, notes string) (oldStatus string, err error)
}

// SessionStore keeps chat history per session id. Appends must be safe
// for concurrent sessions.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) ([]models.Turn, error)
	Append(ctx context.Context, sessionID string, turn models.Turn) error
}

// ObjectClient is the bucket that mirrors knowledge-base uploads.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
}

// EventPublisher announces ingestion events to other services.
type EventPublisher interface {
	Publish(subject string, data any) error
}
