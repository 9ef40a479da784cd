// Package debugapi exposes an optional local observability listener:
// liveness, registry state and Prometheus metrics. It is not part of the
// user-facing surface and stays disabled unless an address is configured.
package debugapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mldesk/internal/registry"
)

// NewMux builds the debug router over the given registry.
func NewMux(reg *registry.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Get("/models", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reg.Infos())
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Serve runs the debug listener until the context is canceled.
func Serve(ctx context.Context, addr string, reg *registry.Registry, log zerolog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: NewMux(reg)}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("debug listener up")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-errCh
		return ctx.Err()
	}
}
