package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/recall/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"RECALL_RUNTIME_PATH" envDefault:".recall"`

	// Retrieval knobs
	SearchCandidates int     `env:"SEARCH_CANDIDATES" envDefault:"15"`
	SearchThreshold  float64 `env:"SEARCH_THRESHOLD" envDefault:"0.3"`
	MaxSources       int     `env:"MAX_SOURCES" envDefault:"5"`

	// History turns appended to the prompt context
	HistoryWindow int `env:"HISTORY_WINDOW" envDefault:"6"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse app config")
	}
	return c
}

func (c AppConfig) GetDatabasePath() string {
	// Same home-relative resolution as GetRuntimePath.
	return filepath.Join(GetRuntimePath(), "recall.db")
}
