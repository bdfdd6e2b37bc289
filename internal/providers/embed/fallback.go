package embed

import (
	"context"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// WithFallback tries the primary embedder and substitutes the fallback when
// the primary fails. Query-side only: ingestion must use the primary
// directly, so a fallback vector can never replace a previously stored real
// embedding.
type WithFallback struct {
	primary  core.Embedder
	fallback core.Embedder
}

func NewWithFallback(primary, fallback core.Embedder) *WithFallback {
	return &WithFallback{
		primary:  primary,
		fallback: fallback,
	}
}

func (w *WithFallback) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := w.primary.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}

	log.FromCtx(ctx).Warn().Err(err).Msg("primary embedder failed, using hash fallback")
	return w.fallback.Embed(ctx, text)
}

func (w *WithFallback) Dims() int {
	return w.primary.Dims()
}
