package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

type EventsRepo struct {
	db *sql.DB
}

func NewEventsRepo(db *sql.DB) *EventsRepo {
	return &EventsRepo{db: db}
}

func (r *EventsRepo) AddEvent(ctx context.Context, event core.Event) error {
	query := `INSERT INTO events (id, tenant_id, kind, payload, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, event.ID, event.TenantID, event.Kind, event.Payload, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *EventsRepo) CountEventsSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM events WHERE tenant_id = ? AND created_at >= ?`
	if err := r.db.QueryRowContext(ctx, query, tenantID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}
