package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// Searcher is the retrieval engine the assistant drives.
type Searcher interface {
	Search(ctx context.Context, query core.Query) ([]core.SearchResult, error)
}

// TokenCounter reports prompt sizes for diagnostics. Optional.
type TokenCounter interface {
	Count(text string) int
}

type Config struct {
	Candidates int     // notes requested from the engine
	MaxSources int     // sources cited in the result
	Threshold  float32 // vector similarity floor
}

func DefaultConfig() Config {
	return Config{
		Candidates: 15,
		MaxSources: 5,
		Threshold:  0.3,
	}
}

// Assistant composes embed -> search -> assemble -> generate and packages
// the outcome. Stateless across requests; safe for concurrent use.
type Assistant struct {
	engine    Searcher
	embedder  core.Embedder
	builder   *ContextBuilder
	generator *Generator
	counter   TokenCounter
	cfg       Config
}

func NewAssistant(engine Searcher, embedder core.Embedder, builder *ContextBuilder, generator *Generator, counter TokenCounter, cfg Config) *Assistant {
	return &Assistant{
		engine:    engine,
		embedder:  embedder,
		builder:   builder,
		generator: generator,
		counter:   counter,
		cfg:       cfg,
	}
}

// ProcessMessage answers one message against one tenant's memories.
// Finding nothing is a normal outcome, never an error; the only errors are
// input errors raised before retrieval starts.
func (a *Assistant) ProcessMessage(ctx context.Context, message, tenantID string, embedding []float32, history []core.ConversationTurn) (core.AssistantResult, error) {
	logger := log.FromCtx(ctx)

	message = strings.TrimSpace(message)
	if message == "" {
		return core.AssistantResult{}, core.ErrEmptyMessage
	}
	if tenantID == "" {
		return core.AssistantResult{}, fmt.Errorf("tenant id is required")
	}

	if len(embedding) != core.EmbeddingDims {
		if len(embedding) > 0 {
			logger.Warn().Int("dims", len(embedding)).Msg("ignoring caller embedding with wrong dimensionality")
		}
		embedding = a.embedQuery(ctx, message)
	}

	results, err := a.engine.Search(ctx, core.Query{
		Text:      message,
		Embedding: embedding,
		TenantID:  tenantID,
		Limit:     a.cfg.Candidates,
		Threshold: a.cfg.Threshold,
	})
	if err != nil {
		// Retrieval was attempted; degrade to an empty memory set.
		logger.Error().Err(err).Msg("search failed, answering without memories")
		results = nil
	}

	results = a.builder.FilterForReview(message, results)

	memoryContext := a.builder.Build(message, results, nil)
	recentHistory := RenderHistory(lastTurns(history, historyWindow))

	if a.counter != nil {
		logger.Debug().
			Int("context_tokens", a.counter.Count(memoryContext)).
			Int("memories", len(results)).
			Msg("assembled context")
	}

	answer := a.generator.Generate(ctx, message, memoryContext, recentHistory)

	sources := results
	if len(sources) > a.cfg.MaxSources {
		sources = sources[:a.cfg.MaxSources]
	}

	return core.AssistantResult{
		Answer:          answer,
		Sources:         sources,
		SearchPerformed: true,
		MemoryCount:     len(results),
	}, nil
}

// embedQuery embeds the message for vector search. Failure means lexical
// search only; it is logged, not surfaced.
func (a *Assistant) embedQuery(ctx context.Context, message string) []float32 {
	vec, err := a.embedder.Embed(ctx, message)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("query embedding failed, using lexical search only")
		return nil
	}
	return vec
}
