package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
	"github.com/sandevgo/recall/pkg/retry"
)

const EventChatMessage = "chat_message"

// Emitter records analytics events. Emission is a side effect of an
// already-answered request: it retries on storage hiccups and logs the
// final failure, but never reports one to the caller.
type Emitter struct {
	repo    core.EventsRepository
	retrier *retry.Retrier
}

func NewEmitter(repo core.EventsRepository) *Emitter {
	return &Emitter{
		repo:    repo,
		retrier: retry.NewDefaultRetrier(),
	}
}

type chatPayload struct {
	MemoryCount     int  `json:"memory_count"`
	SearchPerformed bool `json:"search_performed"`
	SourceCount     int  `json:"source_count"`
}

func (e *Emitter) EmitChatMessage(ctx context.Context, tenantID string, result core.AssistantResult) {
	payload, err := json.Marshal(chatPayload{
		MemoryCount:     result.MemoryCount,
		SearchPerformed: result.SearchPerformed,
		SourceCount:     len(result.Sources),
	})
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to marshal analytics payload")
		return
	}

	event := core.Event{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Kind:      EventChatMessage,
		Payload:   string(payload),
		CreatedAt: time.Now().UTC(),
	}

	err = e.retrier.Do(ctx, func() error {
		return e.repo.AddEvent(ctx, event)
	})
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("kind", event.Kind).Msg("dropping analytics event")
	}
}

// ChatMessagesSince reports how many chat turns a tenant has run since the
// given time.
func (e *Emitter) ChatMessagesSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	return e.repo.CountEventsSince(ctx, tenantID, since)
}
