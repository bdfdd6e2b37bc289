package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tiktoken counts tokens with the cl100k_base encoding. Used for context
// size diagnostics only; nothing is truncated based on it.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

func New() (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
