package core

import (
	"context"
	"time"
)

// VectorMatch is a note row returned by the record store's similarity
// search, with its cosine similarity already computed.
type VectorMatch struct {
	Note       Note
	Similarity float32
}

// NotesRepository is the record store contract. Both search paths are
// read-only and tenant-scoped; the tenant parameter is mandatory by
// construction so a scope violation cannot be expressed.
type NotesRepository interface {
	// SearchByVector returns tenant notes whose stored embedding has cosine
	// similarity >= threshold against vec, sorted by similarity descending
	// (created_at descending on ties), truncated to limit. Notes without an
	// embedding and notes in excluded are skipped.
	SearchByVector(ctx context.Context, tenantID string, vec []float32, threshold float32, limit int, excluded []string) ([]VectorMatch, error)

	// SearchLexical returns tenant notes whose title, body or summary
	// contains text (case-insensitive), ordered by created_at descending,
	// truncated to limit.
	SearchLexical(ctx context.Context, tenantID, text string, limit int, excluded []string) ([]Note, error)

	CreateNote(ctx context.Context, note Note) error
	ListNotes(ctx context.Context, tenantID string, limit int) ([]Note, error)
}

// SessionsRepository persists chat turns when the caller supplies a
// session id. Writes happen after the response is already produced.
type SessionsRepository interface {
	AddTurn(ctx context.Context, sessionID, tenantID string, turn ConversationTurn) error
	GetTurns(ctx context.Context, sessionID string, limit int) ([]ConversationTurn, error)
}

// EventsRepository stores analytics events.
type EventsRepository interface {
	AddEvent(ctx context.Context, event Event) error
	CountEventsSince(ctx context.Context, tenantID string, since time.Time) (int, error)
}
