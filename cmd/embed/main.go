package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"embed-server/internal/app"
	"embed-server/internal/embeddings"
	"embed-server/internal/httputil"
)

type embedRequest struct {
	Text        string `json:"text"`
	Instruction string `json:"instruction"`
}

type embedResponse struct {
	Embedding embeddings.Vector `json:"embedding"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	if err := run(ctx, deps); err != nil {
		deps.Log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log, deps.Config.RequestTimeout)

	r.Post("/embed", embedHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps))

	return r
}

// run serves until ctx is cancelled, then drains in-flight requests.
func run(ctx context.Context, deps app.Deps) error {
	srv := &http.Server{
		Addr:              deps.Config.Addr(),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Log.Info("embed server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.Config.ShutdownTimeout)
		defer cancel()
		deps.Log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func embedHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := httputil.DecodeJSON(w, r, deps.Config.MaxBodySize, &req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}

		input := embeddings.ComposeInput(req.Text, req.Instruction)
		vec, err := deps.Embedder.Embed(r.Context(), input)
		if err != nil {
			// Timeout middleware answers 504 once the deadline passes; a gone client needs no reply.
			if ctxErr := r.Context().Err(); ctxErr != nil {
				deps.Log.Warn("embedding abandoned", "err", err, "ctx_err", ctxErr)
				return
			}
			httputil.Fail(deps.Log, w, "embedding failed", err, http.StatusInternalServerError)
			return
		}
		deps.Log.Debug("embedded", "input_chars", len(input), "dims", len(vec))

		httputil.WriteJSON(w, http.StatusOK, embedResponse{Embedding: vec})
	}
}
