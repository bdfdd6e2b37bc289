package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/service/ingest"
	"github.com/sandevgo/recall/pkg/log"
)

const backgroundTimeout = 30 * time.Second

// ChatService answers a user message from stored memories.
type ChatService interface {
	ProcessMessage(ctx context.Context, message, tenantID string, embedding []float32, history []core.ConversationTurn) (core.AssistantResult, error)
}

// NotesService is the note write/read path.
type NotesService interface {
	CreateNote(ctx context.Context, req ingest.CreateNoteRequest) (core.Note, error)
	ListNotes(ctx context.Context, tenantID string, limit int) ([]core.Note, error)
}

// EventSink records analytics events for answered chat turns and exposes
// the per-tenant activity counter built on them.
type EventSink interface {
	EmitChatMessage(ctx context.Context, tenantID string, result core.AssistantResult)
	ChatMessagesSince(ctx context.Context, tenantID string, since time.Time) (int, error)
}

type Handler struct {
	chat     ChatService
	notes    NotesService
	sessions core.SessionsRepository
	events   EventSink

	// background tracks fire-and-forget work so shutdown and tests can
	// wait for it.
	background sync.WaitGroup
}

func NewHandler(chat ChatService, notes NotesService, sessions core.SessionsRepository, events EventSink) *Handler {
	return &Handler{
		chat:     chat,
		notes:    notes,
		sessions: sessions,
		events:   events,
	}
}

// Wait blocks until all in-flight background side effects finish.
func (h *Handler) Wait() {
	h.background.Wait()
}

type chatRequest struct {
	Message     string                  `json:"message"`
	Embedding   []float32               `json:"embedding,omitempty"`
	ChatHistory []core.ConversationTurn `json:"chat_history,omitempty"`
	SessionID   string                  `json:"session_id,omitempty"`
	UserID      string                  `json:"user_id"`
}

type chatMetadata struct {
	MemoryCount     int  `json:"memory_count"`
	SearchPerformed bool `json:"search_performed"`
}

type chatResponse struct {
	Response  string              `json:"response"`
	AgentUsed string              `json:"agent_used"`
	Sources   []core.SearchResult `json:"sources"`
	Metadata  chatMetadata        `json:"metadata"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(ctx, w, http.StatusBadRequest, "message is required")
		return
	}
	if req.UserID == "" {
		respondError(ctx, w, http.StatusBadRequest, "user_id is required")
		return
	}

	result, err := h.chat.ProcessMessage(ctx, req.Message, req.UserID, req.Embedding, req.ChatHistory)
	if err != nil {
		if errors.Is(err, core.ErrEmptyMessage) {
			respondError(ctx, w, http.StatusBadRequest, "message is required")
			return
		}
		log.FromCtx(ctx).Error().Err(err).Msg("chat processing failed")
		respondError(ctx, w, http.StatusInternalServerError, "failed to process message")
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []core.SearchResult{}
	}

	// Register the side-effect work before the response leaves the socket
	// so Wait cannot miss it.
	h.background.Add(1)

	respondJSON(ctx, w, http.StatusOK, chatResponse{
		Response:  result.Answer,
		AgentUsed: core.AgentName,
		Sources:   sources,
		Metadata: chatMetadata{
			MemoryCount:     result.MemoryCount,
			SearchPerformed: result.SearchPerformed,
		},
	})

	// The request context dies as soon as this handler returns.
	go h.afterChat(context.WithoutCancel(ctx), req, result)
}

// afterChat runs the side effects of an already-answered turn: session
// persistence and analytics. A lost turn or event is logged and dropped,
// never surfaced to the caller who already has their answer.
func (h *Handler) afterChat(ctx context.Context, req chatRequest, result core.AssistantResult) {
	defer h.background.Done()

	ctx, cancel := context.WithTimeout(ctx, backgroundTimeout)
	defer cancel()

	if req.SessionID != "" && h.sessions != nil {
		now := time.Now().UTC()
		turns := []core.ConversationTurn{
			{Role: core.RoleUser, Content: req.Message, Timestamp: now},
			{Role: core.RoleAssistant, Content: result.Answer, Timestamp: now},
		}
		for _, turn := range turns {
			if err := h.sessions.AddTurn(ctx, req.SessionID, req.UserID, turn); err != nil {
				log.FromCtx(ctx).Warn().Err(err).
					Str("session_id", req.SessionID).
					Msg("failed to persist chat turn")
				break
			}
		}
	}

	if h.events != nil {
		h.events.EmitChatMessage(ctx, req.UserID, result)
	}
}

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ingest.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	note, err := h.notes.CreateNote(ctx, req)
	if err != nil {
		if errors.Is(err, ingest.ErrTenantRequired) || errors.Is(err, ingest.ErrEmptyNote) {
			respondError(ctx, w, http.StatusBadRequest, err.Error())
			return
		}
		log.FromCtx(ctx).Error().Err(err).Msg("note creation failed")
		respondError(ctx, w, http.StatusInternalServerError, "failed to create note")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, note)
}

type listNotesResponse struct {
	Notes []core.Note `json:"notes"`
	Count int         `json:"count"`
}

func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID := r.URL.Query().Get("user_id")
	if tenantID == "" {
		respondError(ctx, w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	notes, err := h.notes.ListNotes(ctx, tenantID, limit)
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("note listing failed")
		respondError(ctx, w, http.StatusInternalServerError, "failed to list notes")
		return
	}
	if notes == nil {
		notes = []core.Note{}
	}

	respondJSON(ctx, w, http.StatusOK, listNotesResponse{Notes: notes, Count: len(notes)})
}

type statsResponse struct {
	ChatMessagesToday int `json:"chat_messages_today"`
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID := r.URL.Query().Get("user_id")
	if tenantID == "" {
		respondError(ctx, w, http.StatusBadRequest, "user_id is required")
		return
	}

	since := time.Now().UTC().Truncate(24 * time.Hour)
	count, err := h.events.ChatMessagesSince(ctx, tenantID, since)
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("stats query failed")
		respondError(ctx, w, http.StatusInternalServerError, "failed to read stats")
		return
	}

	respondJSON(ctx, w, http.StatusOK, statsResponse{ChatMessagesToday: count})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": core.RecallVersion,
	})
}
