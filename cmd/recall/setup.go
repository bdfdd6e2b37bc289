package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/providers/embed"
	"github.com/sandevgo/recall/internal/providers/llm"
	"github.com/sandevgo/recall/internal/providers/tokenizer"
	"github.com/sandevgo/recall/internal/service/analytics"
	"github.com/sandevgo/recall/internal/service/assistant"
	"github.com/sandevgo/recall/internal/service/ingest"
	"github.com/sandevgo/recall/internal/service/search"
	"github.com/sandevgo/recall/internal/storage/sqlite"
	"github.com/sandevgo/recall/internal/transport/httpapi"
	"github.com/sandevgo/recall/pkg/log"
	"github.com/sandevgo/recall/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	err := initEnv(ctx, config.GetRuntimePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	llmCfg := config.NewLLMConfig(ctx)
	embCfg := config.NewEmbeddingConfig(ctx)
	serverCfg := config.NewServerConfig(ctx)

	// 2. Storage
	db, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	notesRepo := sqlite.NewNotesRepo(db)
	sessionsRepo := sqlite.NewSessionsRepo(db)
	eventsRepo := sqlite.NewEventsRepo(db)

	// 3. Completion provider
	aiProvider, err := llm.NewProvider(ctx, llmCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}

	// 4. Embedders. The HTTP embedder is shared and built once on first
	// use; queries fall back to the deterministic hash embedder when it is
	// unavailable, ingestion stores notes without a vector instead.
	lazyEmbedder := embed.NewLazyEmbedder(embCfg.Dims, func() (core.Embedder, error) {
		return embed.NewHTTPEmbedder(embCfg), nil
	})
	queryEmbedder := embed.NewWithFallback(lazyEmbedder, embed.NewHashEmbedder(embCfg.Dims))

	// 5. Token counter, diagnostics only
	var counter assistant.TokenCounter
	if tk, err := tokenizer.New(); err != nil {
		logger.Warn().Err(err).Msg("tokenizer unavailable, prompt sizes will not be logged")
	} else {
		counter = tk
	}

	// 6. Core pipeline
	engine := search.NewEngine(notesRepo)
	builder := assistant.NewContextBuilder()
	generator := assistant.NewGenerator(aiProvider, llmCfg.MaxTokens, float32(llmCfg.Temperature))
	asst := assistant.NewAssistant(engine, queryEmbedder, builder, generator, counter, assistant.Config{
		Candidates: appCfg.SearchCandidates,
		MaxSources: appCfg.MaxSources,
		Threshold:  float32(appCfg.SearchThreshold),
	})

	// 7. Write path and analytics
	ingestSvc := ingest.NewService(notesRepo, lazyEmbedder)
	emitter := analytics.NewEmitter(eventsRepo)

	// 8. Transport
	handler := httpapi.NewHandler(asst, ingestSvc, sessionsRepo, emitter)
	services = append(services, httpapi.NewServer(serverCfg, handler))

	return services
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, error) {
	if err := os.MkdirAll(config.GetRuntimePath(), 0o755); err != nil {
		return nil, err
	}
	return sqlite.NewDB(ctx, cfg.GetDatabasePath())
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
