package embed

import (
	"context"
	"sync"

	"github.com/sandevgo/recall/internal/core"
)

// LazyEmbedder defers provider construction to the first Embed call and
// shares the single instance across all requests. Construction may be slow
// (remote model warmup); the sync.Once guard makes concurrent first callers
// wait for one in-flight initialization instead of duplicating it.
type LazyEmbedder struct {
	build func() (core.Embedder, error)
	dims  int

	once     sync.Once
	delegate core.Embedder
	initErr  error
}

func NewLazyEmbedder(dims int, build func() (core.Embedder, error)) *LazyEmbedder {
	return &LazyEmbedder{
		build: build,
		dims:  dims,
	}
}

func (l *LazyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	l.once.Do(func() {
		l.delegate, l.initErr = l.build()
	})
	if l.initErr != nil {
		return nil, l.initErr
	}
	return l.delegate.Embed(ctx, text)
}

func (l *LazyEmbedder) Dims() int {
	return l.dims
}
