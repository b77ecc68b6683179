// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xtreamcache/xtreamcache/internal/log"
)

// healthResponse mirrors the shape of the teacher's own liveness probe
// response, trimmed to what a single SQLite-backed cache can usefully
// report: whether the database handle still answers a ping.
type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// ServeMetrics starts a passive HTTP listener exposing /metrics (Prometheus)
// and /healthz for a host that wants the cache's ambient observability
// surface without building its own. It never initiates outbound
// connections; the listener is opt-in and off unless a caller calls this
// explicitly. Blocks until ctx is cancelled, then shuts the server down.
func (c *Cache) ServeMetrics(ctx context.Context, addr string) error {
	logger := log.WithComponent("catalog.httpserver")

	r := chi.NewRouter()
	r.Use(log.Middleware())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", c.handleHealthz)

	srv := &http.Server{Addr: addr, Handler: r}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info().Str("addr", addr).Msg("metrics/healthz listener started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (c *Cache) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Timestamp: time.Now()}
	status := http.StatusOK

	if err := c.DB().PingContext(r.Context()); err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
