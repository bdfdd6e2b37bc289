package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

var (
	ErrTenantRequired = errors.New("tenant id is required")
	ErrEmptyNote      = errors.New("note needs a title or a body")
)

// Service is the note write path: sanitize, embed, store. The stored
// embedding is always computed from the same (title, body, tags) text; a
// note either carries a real embedding or none at all.
type Service struct {
	repo      core.NotesRepository
	embedder  core.Embedder
	sanitizer *bluemonday.Policy
}

func NewService(repo core.NotesRepository, embedder core.Embedder) *Service {
	return &Service{
		repo:     repo,
		embedder: embedder,
		// Strip all markup: note text is stored and embedded as plain text.
		sanitizer: bluemonday.StrictPolicy(),
	}
}

type CreateNoteRequest struct {
	TenantID  string         `json:"tenant_id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Summary   string         `json:"summary,omitempty"`
	Category  string         `json:"category,omitempty"`
	NoteType  string         `json:"note_type,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	SourceURL string         `json:"source_url,omitempty"`
	Task      *core.TaskMeta `json:"task,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
}

func (s *Service) CreateNote(ctx context.Context, req CreateNoteRequest) (core.Note, error) {
	if req.TenantID == "" {
		return core.Note{}, ErrTenantRequired
	}

	title := strings.TrimSpace(s.sanitizer.Sanitize(req.Title))
	body := strings.TrimSpace(s.sanitizer.Sanitize(req.Body))
	if title == "" && body == "" {
		return core.Note{}, ErrEmptyNote
	}

	note := core.Note{
		ID:        uuid.NewString(),
		TenantID:  req.TenantID,
		Title:     title,
		Body:      body,
		Summary:   strings.TrimSpace(req.Summary),
		Category:  req.Category,
		NoteType:  req.NoteType,
		Tags:      req.Tags,
		SourceURL: req.SourceURL,
		Task:      req.Task,
		CreatedAt: time.Now().UTC(),
	}

	note.Embedding = s.resolveEmbedding(ctx, req.Embedding, note)

	if err := s.repo.CreateNote(ctx, note); err != nil {
		return core.Note{}, fmt.Errorf("failed to store note: %w", err)
	}

	log.FromCtx(ctx).Info().
		Str("note_id", note.ID).
		Bool("embedded", len(note.Embedding) > 0).
		Msg("note created")
	return note, nil
}

func (s *Service) ListNotes(ctx context.Context, tenantID string, limit int) ([]core.Note, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListNotes(ctx, tenantID, limit)
}

// resolveEmbedding prefers a valid caller-supplied vector, then the
// embedding provider. When both are unavailable the note is stored without
// an embedding: a synthetic vector must never masquerade as a real one in
// the store.
func (s *Service) resolveEmbedding(ctx context.Context, supplied []float32, note core.Note) []float32 {
	if len(supplied) == core.EmbeddingDims {
		return supplied
	}
	if len(supplied) > 0 {
		log.FromCtx(ctx).Warn().
			Int("dims", len(supplied)).
			Msg("ignoring supplied embedding with wrong dimensionality")
	}

	vec, err := s.embedder.Embed(ctx, EmbeddingText(note))
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("embedding failed, storing note without vector")
		return nil
	}
	return vec
}

// EmbeddingText is the fixed deterministic function of (title, body, tags)
// that note embeddings are computed from.
func EmbeddingText(note core.Note) string {
	parts := []string{note.Title, note.Body}
	if len(note.Tags) > 0 {
		parts = append(parts, strings.Join(note.Tags, " "))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
