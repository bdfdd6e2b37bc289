package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

type SessionsRepo struct {
	db *sql.DB
}

func NewSessionsRepo(db *sql.DB) *SessionsRepo {
	return &SessionsRepo{db: db}
}

func (r *SessionsRepo) AddTurn(ctx context.Context, sessionID, tenantID string, turn core.ConversationTurn) error {
	query := `INSERT INTO messages (session_id, tenant_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, sessionID, tenantID, turn.Role, turn.Content, turn.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

func (r *SessionsRepo) GetTurns(ctx context.Context, sessionID string, limit int) ([]core.ConversationTurn, error) {
	// Fetch the LAST 'limit' turns by ordering DESC
	query := `SELECT role, content, created_at FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []core.ConversationTurn
	for rows.Next() {
		var turn core.ConversationTurn
		if err := rows.Scan(&turn.Role, &turn.Content, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Back to chronological order for prompt assembly.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(turns)).Msg("loaded session turns")
	return turns, nil
}
