package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/service/ingest"
)

type fakeChat struct {
	result core.AssistantResult
	err    error

	calls       int
	lastMessage string
	lastTenant  string
	lastHistory []core.ConversationTurn
}

func (f *fakeChat) ProcessMessage(ctx context.Context, message, tenantID string, embedding []float32, history []core.ConversationTurn) (core.AssistantResult, error) {
	f.calls++
	f.lastMessage = message
	f.lastTenant = tenantID
	f.lastHistory = history
	return f.result, f.err
}

type fakeNotes struct {
	note    core.Note
	err     error
	listed  []core.Note
	lastReq ingest.CreateNoteRequest
}

func (f *fakeNotes) CreateNote(ctx context.Context, req ingest.CreateNoteRequest) (core.Note, error) {
	f.lastReq = req
	return f.note, f.err
}

func (f *fakeNotes) ListNotes(ctx context.Context, tenantID string, limit int) ([]core.Note, error) {
	return f.listed, f.err
}

type recordedTurn struct {
	sessionID string
	tenantID  string
	turn      core.ConversationTurn
}

type fakeSessions struct {
	turns []recordedTurn
}

func (f *fakeSessions) AddTurn(ctx context.Context, sessionID, tenantID string, turn core.ConversationTurn) error {
	f.turns = append(f.turns, recordedTurn{sessionID: sessionID, tenantID: tenantID, turn: turn})
	return nil
}

func (f *fakeSessions) GetTurns(ctx context.Context, sessionID string, limit int) ([]core.ConversationTurn, error) {
	return nil, nil
}

type fakeEvents struct {
	tenants []string
	results []core.AssistantResult
	count   int
}

func (f *fakeEvents) EmitChatMessage(ctx context.Context, tenantID string, result core.AssistantResult) {
	f.tenants = append(f.tenants, tenantID)
	f.results = append(f.results, result)
}

func (f *fakeEvents) ChatMessagesSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	return f.count, nil
}

func newTestServer(chat *fakeChat, notes *fakeNotes, sessions *fakeSessions, events *fakeEvents) (*Handler, *httptest.Server) {
	h := NewHandler(chat, notes, sessions, events)
	return h, httptest.NewServer(NewRouter(h))
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func TestChatHandler(t *testing.T) {
	chat := &fakeChat{result: core.AssistantResult{
		Answer:          "You bought milk on Tuesday.",
		Sources:         []core.SearchResult{{Note: core.Note{ID: "n1", Title: "Groceries"}, Similarity: 0.91, Mode: core.ModeVector}},
		SearchPerformed: true,
		MemoryCount:     3,
	}}
	sessions := &fakeSessions{}
	events := &fakeEvents{}
	h, server := newTestServer(chat, &fakeNotes{}, sessions, events)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/chat", map[string]any{
		"message":    "what did I buy?",
		"user_id":    "user-1",
		"session_id": "sess-1",
		"chat_history": []map[string]string{
			{"role": "user", "content": "hi"},
		},
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "You bought milk on Tuesday.", body.Response)
	assert.Equal(t, core.AgentName, body.AgentUsed)
	require.Len(t, body.Sources, 1)
	assert.Equal(t, "Groceries", body.Sources[0].Note.Title)
	assert.Equal(t, 3, body.Metadata.MemoryCount)
	assert.True(t, body.Metadata.SearchPerformed)

	assert.Equal(t, "what did I buy?", chat.lastMessage)
	assert.Equal(t, "user-1", chat.lastTenant)
	require.Len(t, chat.lastHistory, 1)

	// Side effects run after the response.
	h.Wait()
	require.Len(t, sessions.turns, 2)
	assert.Equal(t, "sess-1", sessions.turns[0].sessionID)
	assert.Equal(t, "user-1", sessions.turns[0].tenantID)
	assert.Equal(t, core.RoleUser, sessions.turns[0].turn.Role)
	assert.Equal(t, "what did I buy?", sessions.turns[0].turn.Content)
	assert.Equal(t, core.RoleAssistant, sessions.turns[1].turn.Role)
	assert.Equal(t, "You bought milk on Tuesday.", sessions.turns[1].turn.Content)

	require.Len(t, events.tenants, 1)
	assert.Equal(t, "user-1", events.tenants[0])
	assert.Equal(t, 3, events.results[0].MemoryCount)
}

func TestChatHandlerValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing message", body: map[string]any{"user_id": "user-1"}},
		{name: "blank message", body: map[string]any{"message": "   ", "user_id": "user-1"}},
		{name: "missing user id", body: map[string]any{"message": "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{}
			_, server := newTestServer(chat, &fakeNotes{}, &fakeSessions{}, &fakeEvents{})
			defer server.Close()

			resp := postJSON(t, server.URL+"/api/v1/chat", tt.body)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Zero(t, chat.calls)
		})
	}
}

func TestChatHandlerMalformedBody(t *testing.T) {
	_, server := newTestServer(&fakeChat{}, &fakeNotes{}, &fakeSessions{}, &fakeEvents{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/chat", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatHandlerWithoutSession(t *testing.T) {
	chat := &fakeChat{result: core.AssistantResult{Answer: "ok", SearchPerformed: true}}
	sessions := &fakeSessions{}
	events := &fakeEvents{}
	h, server := newTestServer(chat, &fakeNotes{}, sessions, events)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/chat", map[string]any{
		"message": "hello",
		"user_id": "user-1",
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	h.Wait()
	assert.Empty(t, sessions.turns)
	assert.Len(t, events.tenants, 1)
}

func TestCreateNoteHandler(t *testing.T) {
	notes := &fakeNotes{note: core.Note{
		ID:        "n1",
		TenantID:  "user-1",
		Title:     "Groceries",
		CreatedAt: time.Now().UTC(),
	}}
	_, server := newTestServer(&fakeChat{}, notes, &fakeSessions{}, &fakeEvents{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/notes", map[string]any{
		"tenant_id": "user-1",
		"title":     "Groceries",
		"body":      "buy milk",
		"tags":      []string{"errands"},
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created core.Note
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "n1", created.ID)

	assert.Equal(t, "user-1", notes.lastReq.TenantID)
	assert.Equal(t, "buy milk", notes.lastReq.Body)
}

func TestCreateNoteHandlerValidation(t *testing.T) {
	notes := &fakeNotes{err: ingest.ErrEmptyNote}
	_, server := newTestServer(&fakeChat{}, notes, &fakeSessions{}, &fakeEvents{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/notes", map[string]any{"tenant_id": "user-1"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListNotesHandler(t *testing.T) {
	notes := &fakeNotes{listed: []core.Note{{ID: "n1"}, {ID: "n2"}}}
	_, server := newTestServer(&fakeChat{}, notes, &fakeSessions{}, &fakeEvents{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/notes?user_id=user-1&limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body listNotesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Notes, 2)
}

func TestListNotesHandlerRequiresUserID(t *testing.T) {
	_, server := newTestServer(&fakeChat{}, &fakeNotes{}, &fakeSessions{}, &fakeEvents{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/notes")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsHandler(t *testing.T) {
	events := &fakeEvents{count: 7}
	_, server := newTestServer(&fakeChat{}, &fakeNotes{}, &fakeSessions{}, events)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/stats?user_id=user-1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body statsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 7, body.ChatMessagesToday)

	respMissing, err := http.Get(server.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer respMissing.Body.Close()
	assert.Equal(t, http.StatusBadRequest, respMissing.StatusCode)
}

func TestHealthHandler(t *testing.T) {
	_, server := newTestServer(&fakeChat{}, &fakeNotes{}, &fakeSessions{}, &fakeEvents{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, core.RecallVersion, body["version"])
}
