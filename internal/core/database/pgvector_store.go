package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
)

// activeGeneration returns the generation serving reads, or core.ErrIndexUnavailable.
func activeGeneration(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, lock bool) (uuid.UUID, error) {
	query := `SELECT active_generation FROM kb_index_meta WHERE id`
	if lock {
		query += ` FOR UPDATE`
	}
	var gen uuid.NullUUID
	err := q.QueryRowContext(ctx, query).Scan(&gen)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !gen.Valid) {
		return uuid.Nil, core.ErrIndexUnavailable
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("read active generation: %w", err)
	}
	return gen.UUID, nil
}

// searchQuery reads the active pointer and ranks its chunks in one statement,
// so a concurrent generation flip cannot leave the two reads disagreeing. The
// meta row is always returned; a NULL text column means no chunk matched.
const searchQuery = `
	SELECT m.active_generation IS NOT NULL, c.text, c.source_ref, c.distance
	FROM kb_index_meta m
	LEFT JOIN LATERAL (
		SELECT text, source_ref, embedding <=> $1 AS distance
		FROM kb_chunks
		WHERE generation = m.active_generation
		ORDER BY embedding <=> $1
		LIMIT $2
	) c ON TRUE
	WHERE m.id
	ORDER BY c.distance
`

// Search ranks chunks of the active generation by cosine distance.
func (c *DatabaseClient) Search(ctx context.Context, queryVec []float32, k int) ([]models.SearchResult, error) {
	rows, err := c.db.QueryContext(ctx, searchQuery, pgvector.NewVector(queryVec), max(k, 0))
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var (
		out     []models.SearchResult
		hasMeta bool
	)
	for rows.Next() {
		var (
			active          bool
			text, sourceRef sql.NullString
			distance        sql.NullFloat64
		)
		if err := rows.Scan(&active, &text, &sourceRef, &distance); err != nil {
			return nil, err
		}
		if !active {
			return nil, core.ErrIndexUnavailable
		}
		hasMeta = true
		if !text.Valid {
			continue
		}
		out = append(out, models.SearchResult{
			Text:      text.String,
			SourceRef: sourceRef.String,
			Score:     scoreFromDistance(distance.Float64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !hasMeta {
		return nil, core.ErrIndexUnavailable
	}
	return out, nil
}

// Append adds records to the active generation, creating one if none exists.
func (c *DatabaseClient) Append(ctx context.Context, records []core.VectorRecord) error {
	gen, err := activeGeneration(ctx, c.db, false)
	if errors.Is(err, core.ErrIndexUnavailable) {
		return c.Replace(ctx, records)
	}
	if err != nil {
		return err
	}
	return c.insertGeneration(ctx, gen, records)
}

// Replace writes records under a fresh generation, then flips the active
// pointer and drops the previous generation in a single transaction.
func (c *DatabaseClient) Replace(ctx context.Context, records []core.VectorRecord) error {
	gen := uuid.New()
	if err := c.insertGeneration(ctx, gen, records); err != nil {
		c.dropGeneration(gen)
		return err
	}

	if err := c.activate(ctx, gen); err != nil {
		c.dropGeneration(gen)
		return err
	}
	c.logger.Info("index generation activated", "generation", gen, "chunks", len(records))
	return nil
}

const countQuery = `
	SELECT m.active_generation IS NOT NULL,
		(SELECT count(*) FROM kb_chunks WHERE generation = m.active_generation)
	FROM kb_index_meta m
	WHERE m.id
`

func (c *DatabaseClient) Count(ctx context.Context) (int, error) {
	var (
		active bool
		n      int
	)
	err := c.db.QueryRowContext(ctx, countQuery).Scan(&active, &n)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return 0, core.ErrIndexUnavailable
	}
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (c *DatabaseClient) insertGeneration(ctx context.Context, gen uuid.UUID, records []core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO kb_chunks (generation, source_ref, ordinal, text, embedding)
		VALUES ($1, $2, $3, $4, $5)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, gen, r.Chunk.SourceRef, r.Chunk.Ordinal, r.Chunk.Text, pgvector.NewVector(r.Embedding)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert chunk %s#%d: %w", r.Chunk.SourceRef, r.Chunk.Ordinal, err)
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) activate(ctx context.Context, gen uuid.UUID) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO kb_index_meta (id) VALUES (TRUE) ON CONFLICT (id) DO NOTHING`); err != nil {
		return fmt.Errorf("init index meta: %w", err)
	}

	old, err := activeGeneration(ctx, tx, true)
	if err != nil && !errors.Is(err, core.ErrIndexUnavailable) {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE kb_index_meta SET active_generation = $1, updated_at = now() WHERE id`, gen); err != nil {
		return fmt.Errorf("flip generation: %w", err)
	}
	if old != uuid.Nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kb_chunks WHERE generation = $1`, old); err != nil {
			return fmt.Errorf("drop generation %s: %w", old, err)
		}
	}
	return tx.Commit()
}

// dropGeneration removes rows of a generation that never became active.
func (c *DatabaseClient) dropGeneration(gen uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCleanupTimeout)
	defer cancel()
	if _, err := c.db.ExecContext(ctx, `DELETE FROM kb_chunks WHERE generation = $1`, gen); err != nil {
		c.logger.Warn("cleanup staged generation", "generation", gen, "error", err)
	}
}

// scoreFromDistance converts pgvector cosine distance into similarity.
func scoreFromDistance(d float64) float64 {
	return 1 - d
}
