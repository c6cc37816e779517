package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/core/crm"
	"github.com/markdave123-py/AmityBot/internal/models"
)

var _ DbClient = (*DatabaseClient)(nil)

type DatabaseClient struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewDatabaseClient(ctx context.Context, databaseURL string, logger *slog.Logger) (*DatabaseClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info("connected to postgres")

	return &DatabaseClient{db: db, logger: logger, now: time.Now}, nil
}

func (c *DatabaseClient) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Leads

const defaultCleanupTimeout = 30 * time.Second

const leadColumns = `id, name, status, email, phone, course_interest, last_contact, assigned_counselor, created_at, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(r rowScanner) (models.LeadRecord, error) {
	var l models.LeadRecord
	err := r.Scan(&l.ID, &l.Name, &l.Status, &l.Email, &l.Phone, &l.CourseInterest,
		&l.LastContact, &l.AssignedCounselor, &l.CreatedAt, &l.Notes)
	return l, err
}

func (c *DatabaseClient) GetLead(ctx context.Context, id string) (*models.LeadRecord, error) {
	l, err := scanLead(c.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrLeadNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get lead %s: %w", id, err)
	}
	return &l, nil
}

func (c *DatabaseClient) SearchByName(ctx context.Context, name string) ([]models.LeadRecord, error) {
	return c.queryLeads(ctx, `SELECT `+leadColumns+` FROM leads WHERE name ILIKE '%' || $1 || '%' ORDER BY id`, name)
}

func (c *DatabaseClient) ListByStatus(ctx context.Context, status string) ([]models.LeadRecord, error) {
	return c.queryLeads(ctx, `SELECT `+leadColumns+` FROM leads WHERE lower(status) = lower($1) ORDER BY id`, status)
}

func (c *DatabaseClient) ListByCounselor(ctx context.Context, counselor string) ([]models.LeadRecord, error) {
	return c.queryLeads(ctx, `SELECT `+leadColumns+` FROM leads WHERE assigned_counselor <> '' AND assigned_counselor ILIKE '%' || $1 || '%' ORDER BY id`, counselor)
}

func (c *DatabaseClient) UpdateStatus(ctx context.Context, id, status, notes string) (string, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var oldStatus, oldNotes string
	err = tx.QueryRowContext(ctx, `SELECT status, notes FROM leads WHERE id = $1 FOR UPDATE`, id).Scan(&oldStatus, &oldNotes)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", core.ErrLeadNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("lock lead %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE leads SET status = $2, last_contact = $3, notes = $4 WHERE id = $1`,
		id, status, c.now().Format(time.DateOnly), crm.AppendNotes(oldNotes, notes))
	if err != nil {
		return "", fmt.Errorf("update lead %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit lead %s: %w", id, err)
	}

	c.logger.Info("lead status updated", "lead_id", id, "from", oldStatus, "to", status)
	return oldStatus, nil
}

func (c *DatabaseClient) queryLeads(ctx context.Context, q string, arg string) ([]models.LeadRecord, error) {
	rows, err := c.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.LeadRecord{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
