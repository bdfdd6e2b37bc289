package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// Generator turns an assembled context into an answer. Provider failures
// become fixed apology strings here; the pipeline above never sees them.
type Generator struct {
	provider    core.CompletionProvider
	maxTokens   int
	temperature float32
}

func NewGenerator(provider core.CompletionProvider, maxTokens int, temperature float32) *Generator {
	return &Generator{
		provider:    provider,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (g *Generator) Generate(ctx context.Context, query, memoryContext, recentHistory string) string {
	answer, err := g.provider.Complete(ctx, core.CompletionRequest{
		System:      systemDirective,
		User:        buildUserTurn(query, memoryContext, recentHistory),
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		if errors.Is(err, core.ErrRateLimited) {
			log.FromCtx(ctx).Warn().Err(err).Msg("completion rate limited")
			return apologyRateLimited
		}
		log.FromCtx(ctx).Error().Err(err).Msg("completion failed")
		return apologyGeneric
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		log.FromCtx(ctx).Warn().Msg("completion returned empty answer")
		return apologyGeneric
	}
	return answer
}

func buildUserTurn(query, memoryContext, recentHistory string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Question: %s\n", query))
	if recentHistory != "" {
		sb.WriteString("\nRecent conversation:\n")
		sb.WriteString(recentHistory)
	}
	sb.WriteString("\nMemory context:\n")
	sb.WriteString(memoryContext)
	return sb.String()
}
