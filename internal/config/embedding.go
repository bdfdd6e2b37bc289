package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/recall/pkg/log"
)

type EmbeddingConfig struct {
	BaseURL string `env:"EMBEDDING_BASE_URL" envDefault:"http://localhost:11434"`
	APIKey  string `env:"EMBEDDING_API_KEY"`
	Model   string `env:"EMBEDDING_MODEL" envDefault:"all-minilm"`
	Dims    int    `env:"EMBEDDING_DIMS" envDefault:"384"`
}

func NewEmbeddingConfig(ctx context.Context) *EmbeddingConfig {
	c := &EmbeddingConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse embedding config")
	}
	return c
}
