package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"embed-server/internal/config"
	"embed-server/internal/embeddings"
	"embed-server/internal/logger"
	"embed-server/internal/retry"
)

// Deps bundles the runtime dependencies shared read-only by all handlers.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Embedder embeddings.Embedder
}

// loadBackoff is the first delay between model load attempts.
var loadBackoff = time.Second

// Build loads .env (if present) and config, then builds and loads the embedder.
func Build(ctx context.Context) (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return Deps{}, fmt.Errorf("failed to load config: %w", err)
	}
	return BuildFromConfig(ctx, cfg, logger.New(cfg.LogLevel, cfg.LogFormat))
}

// BuildFromConfig builds the embedder for cfg and loads its model once.
func BuildFromConfig(ctx context.Context, cfg config.Config, log *slog.Logger) (Deps, error) {
	embedder, err := buildEmbedder(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if err := loadModel(ctx, cfg.StartupAttempts, log, embedder); err != nil {
		return Deps{}, fmt.Errorf("failed to load embedding model: %w", err)
	}
	log.Info("embedding model ready", "provider", cfg.EmbedProvider, "model", embedder.Model())
	return Deps{
		Config:   cfg,
		Log:      log,
		Embedder: embedder,
	}, nil
}

func buildEmbedder(cfg config.Config, log *slog.Logger) (embeddings.Embedder, error) {
	switch cfg.EmbedProvider {
	case config.ProviderOllama:
		embedder, err := embeddings.NewOllamaEmbedder(embeddings.OllamaConfig{
			Host:      cfg.OllamaHost,
			Model:     cfg.EmbeddingModel,
			Pull:      cfg.OllamaPull,
			KeepAlive: cfg.OllamaKeepAlive,
			Log:       log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama embedder: %w", err)
		}
		log.Info("using Ollama embedder", "host", cfg.OllamaHost, "model", cfg.EmbeddingModel)
		return embedder, nil
	case config.ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when EMBED_PROVIDER=openai")
		}
		embedder, err := embeddings.NewOpenAIEmbedder(embeddings.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.EmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
		}
		log.Info("using OpenAI embedder", "base_url", cfg.OpenAIBaseURL, "model", cfg.EmbeddingModel)
		return embedder, nil
	default:
		return nil, fmt.Errorf("invalid EMBED_PROVIDER: %s (valid options: ollama, openai)", cfg.EmbedProvider)
	}
}

// loadModel retries transient load failures; a missing model is final.
func loadModel(ctx context.Context, attempts int, log *slog.Logger, e embeddings.Embedder) error {
	loader, ok := e.(embeddings.Loader)
	if !ok {
		return nil
	}
	return retry.Do(ctx, attempts, loadBackoff, func(ctx context.Context) error {
		err := loader.Load(ctx)
		if errors.Is(err, embeddings.ErrModelNotFound) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error, delay time.Duration) {
		log.Warn("embedding model not ready", "attempt", attempt, "err", err, "retry_in", delay)
	})
}
