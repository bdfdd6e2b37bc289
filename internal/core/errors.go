package core

import "errors"

var (
	// ErrEmptyMessage rejects a chat request before any retrieval happens.
	// An empty query is a client error, never "match everything".
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrRateLimited marks a completion-provider throttling response so the
	// generator can pick the rate-limit apology variant.
	ErrRateLimited = errors.New("completion provider rate limited")

	// ErrEmbedderUnavailable distinguishes a failed embedding call from an
	// empty result, so callers can decide to degrade to lexical search.
	ErrEmbedderUnavailable = errors.New("embedding provider unavailable")
)
