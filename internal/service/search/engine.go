package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	// Lexical results get a synthetic descending score purely so mixed
	// result lists render consistently. It is not a relevance measure.
	lexicalScoreStart = 0.8
	lexicalScoreStep  = 0.1
)

// Engine performs hybrid retrieval: vector similarity when a query
// embedding is available, lexical substring matching otherwise or when the
// vector path errors or comes back empty.
type Engine struct {
	repo core.NotesRepository
}

func NewEngine(repo core.NotesRepository) *Engine {
	return &Engine{repo: repo}
}

// Search runs the query against exactly one tenant's notes. A vector-path
// failure and a vector-path empty result both fall through to lexical
// matching; neither surfaces to the caller.
func (e *Engine) Search(ctx context.Context, query core.Query) ([]core.SearchResult, error) {
	if query.TenantID == "" {
		return nil, fmt.Errorf("search: tenant id is required")
	}

	threshold := clampThreshold(query.Threshold)
	limit := clampLimit(query.Limit)

	if len(query.Embedding) == core.EmbeddingDims {
		matches, err := e.repo.SearchByVector(ctx, query.TenantID, query.Embedding, threshold, limit, query.ExcludedIDs)
		switch {
		case err != nil:
			// Degrade to lexical, do not surface.
			log.FromCtx(ctx).Warn().Err(err).Msg("vector search failed, falling back to lexical")
		case len(matches) == 0:
			log.FromCtx(ctx).Debug().Msg("vector search empty, falling back to lexical")
		default:
			results := make([]core.SearchResult, 0, len(matches))
			for _, m := range matches {
				results = append(results, core.SearchResult{
					Note:       m.Note,
					Similarity: m.Similarity,
					Mode:       core.ModeVector,
				})
			}
			return results, nil
		}
	} else if len(query.Embedding) > 0 {
		log.FromCtx(ctx).Warn().
			Int("dims", len(query.Embedding)).
			Msg("query embedding has wrong dimensionality, using lexical search")
	}

	return e.searchLexical(ctx, query, limit)
}

func (e *Engine) searchLexical(ctx context.Context, query core.Query, limit int) ([]core.SearchResult, error) {
	// An empty query with no usable embedding returns nothing, never the
	// whole tenant corpus.
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return []core.SearchResult{}, nil
	}

	notes, err := e.repo.SearchLexical(ctx, query.TenantID, text, limit, query.ExcludedIDs)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	results := make([]core.SearchResult, 0, len(notes))
	for i, note := range notes {
		results = append(results, core.SearchResult{
			Note:       note,
			Similarity: syntheticScore(i),
			Mode:       core.ModeLexical,
		})
	}
	return results, nil
}

func syntheticScore(rank int) float32 {
	score := lexicalScoreStart - lexicalScoreStep*float32(rank)
	if score < 0 {
		return 0
	}
	return score
}

func clampThreshold(threshold float32) float32 {
	if threshold < 0 {
		return 0
	}
	if threshold > 1 {
		return 1
	}
	return threshold
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
