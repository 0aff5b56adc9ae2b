package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	Host  string
	Model string
	// Pull fetches the model on Load when the server does not have it.
	Pull      bool
	KeepAlive time.Duration

	HTTPClient *http.Client
	Log        *slog.Logger
}

// OllamaEmbedder calls the /api/embed endpoint of an Ollama server.
type OllamaEmbedder struct {
	client    *ollama.Client
	model     string
	pull      bool
	keepAlive time.Duration
	log       *slog.Logger
}

var (
	_ Embedder = (*OllamaEmbedder)(nil)
	_ Loader   = (*OllamaEmbedder)(nil)
)

// NewOllamaEmbedder creates an embedder bound to one Ollama host and model.
func NewOllamaEmbedder(cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model required")
	}
	base, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ollama host must be an absolute URL, got %q", cfg.Host)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &OllamaEmbedder{
		client:    ollama.NewClient(base, hc),
		model:     cfg.Model,
		pull:      cfg.Pull,
		keepAlive: cfg.KeepAlive,
		log:       log,
	}, nil
}

func (e *OllamaEmbedder) Model() string { return e.model }

// Embed sends text as a single input; Ollama always answers with a batch, so the
// one row is unwrapped.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	req := &ollama.EmbedRequest{
		Model: e.model,
		Input: text,
	}
	if e.keepAlive > 0 {
		req.KeepAlive = &ollama.Duration{Duration: e.keepAlive}
	}
	resp, err := e.client.Embed(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return single(resp.Embeddings)
}

// Load checks that the server has the model and pulls it if allowed.
func (e *OllamaEmbedder) Load(ctx context.Context) error {
	_, err := e.client.Show(ctx, &ollama.ShowRequest{Model: e.model})
	if err == nil {
		return nil
	}
	var statusErr ollama.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		return fmt.Errorf("ollama show %s: %w", e.model, err)
	}
	if !e.pull {
		return fmt.Errorf("%w: %s", ErrModelNotFound, e.model)
	}

	e.log.Info("pulling embedding model", "model", e.model)
	var lastStatus string
	err = e.client.Pull(ctx, &ollama.PullRequest{Model: e.model}, func(p ollama.ProgressResponse) error {
		if p.Status != lastStatus {
			lastStatus = p.Status
			e.log.Info("pull progress", "model", e.model, "status", p.Status, "completed", p.Completed, "total", p.Total)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ollama pull %s: %w", e.model, err)
	}
	return nil
}
