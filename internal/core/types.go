package core

import "time"

const (
	RecallName    = "Recall"
	RecallVersion = "0.1.0"

	// AgentName is reported in chat responses as agent_used.
	AgentName = "memory_assistant"

	// EmbeddingDims is the fixed dimensionality of note and query vectors.
	EmbeddingDims = 384
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Note is a stored unit of user memory. The embedding, when present, was
// computed from (title, body, tags) at write time and is only ever replaced
// as a whole, never patched.
type Note struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Summary   string     `json:"summary,omitempty"`
	Category  string     `json:"category,omitempty"`
	NoteType  string     `json:"note_type,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	SourceURL string     `json:"source_url,omitempty"`
	Task      *TaskMeta  `json:"task,omitempty"`
	Embedding []float32  `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TaskMeta carries the optional task-like fields some notes have.
type TaskMeta struct {
	ActionItems []string `json:"action_items,omitempty"`
	NextSteps   []string `json:"next_steps,omitempty"`
	Priority    string   `json:"priority,omitempty"`
}

// SearchMode identifies which retrieval path produced a result.
type SearchMode string

const (
	ModeVector  SearchMode = "vector"
	ModeLexical SearchMode = "lexical"
)

// Query describes a single retrieval request. TenantID is mandatory: every
// search is scoped to exactly one tenant.
type Query struct {
	Text        string
	Embedding   []float32
	TenantID    string
	ExcludedIDs []string
	Limit       int
	Threshold   float32
}

// SearchResult is a note plus its retrieval score in [0,1]. Lexical scores
// are synthetic (see search.Engine) and carry no relevance meaning.
type SearchResult struct {
	Note       Note       `json:"note"`
	Similarity float32    `json:"similarity"`
	Mode       SearchMode `json:"mode"`
}

// ConversationTurn is an ephemeral history entry supplied by the caller.
// The core keeps no conversation state of its own.
type ConversationTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// AssistantResult is the packaged outcome of one processed message.
// SearchPerformed is true whenever retrieval was attempted, even when it
// found nothing, so "looked and found nothing" stays distinguishable from
// "did not look".
type AssistantResult struct {
	Answer          string         `json:"answer"`
	Sources         []SearchResult `json:"sources"`
	SearchPerformed bool           `json:"search_performed"`
	MemoryCount     int            `json:"memory_count"`
}

// Event is an analytics record emitted after a chat turn. Emission is
// fire-and-forget: a lost event never fails the response it describes.
type Event struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Kind      string    `json:"kind"`
	Payload   string    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
