package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/recall/pkg/log"
)

type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"openrouter"`
	Model    string `env:"LLM_MODEL" envDefault:"google/gemma-3-27b-it:free"`

	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	OllamaBaseURL    string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaAPIKey     string `env:"OLLAMA_API_KEY"`
	CustomBaseURL    string `env:"LLM_BASE_URL"`
	CustomAPIKey     string `env:"LLM_API_KEY"`

	// Generation bounds: answers favor determinism over creativity
	MaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"1000"`
	Temperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.3"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	c := &LLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	return c
}
