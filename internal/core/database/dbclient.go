package db

import (
	"context"

	"github.com/markdave123-py/AmityBot/internal/core"
)

// DbClient is the Postgres handle: a pgvector-backed index store and the
// leads table behind one connection pool.
type DbClient interface {
	core.VectorStore
	core.LeadStore

	Ping(ctx context.Context) error
	Close() error
}
