package core

import "context"

// CompletionRequest is one bounded completion call: a fixed system
// directive plus a single user turn.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// CompletionProvider is the language-model endpoint. Throttling surfaces as
// an error wrapping ErrRateLimited.
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder converts text into a unit-normalized vector of EmbeddingDims.
// Identical input yields an identical vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dims() int
}
