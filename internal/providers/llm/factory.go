package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// NewProvider creates the appropriate CompletionProvider based on configuration.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (core.CompletionProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("starting llm provider")

	switch cfg.Provider {
	case "openrouter":
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.Model), nil
	case "ollama":
		return NewOllama(cfg.OllamaBaseURL, cfg.OllamaAPIKey, cfg.Model), nil
	case "custom":
		return NewOpenAICompatible(OpenAICompatibleConfig{
			BaseURL:    cfg.CustomBaseURL,
			APIKey:     cfg.CustomAPIKey,
			Model:      cfg.Model,
			AuthHeader: "Authorization",
			AuthPrefix: "Bearer ",
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
