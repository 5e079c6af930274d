package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/docmake/internal/logfields"
)

// status tracks the last build result for the status endpoint.
type status struct {
	mu           sync.RWMutex
	lastError    string
	lastBuildID  string
	lastOutcome  string
	lastBuildAt  time.Time
	hasGoodBuild bool
}

func (s *status) setResult(buildID, outcome string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastBuildID = buildID
	s.lastOutcome = outcome
	s.lastBuildAt = time.Now()
	if err != nil {
		s.lastError = err.Error()
		return
	}
	s.lastError = ""
	s.hasGoodBuild = true
}

func (s *status) snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"last_build_id": s.lastBuildID,
		"last_outcome":  s.lastOutcome,
		"last_build_at": s.lastBuildAt,
		"last_error":    s.lastError,
		"ready":         s.hasGoodBuild,
	}
}

// httpServer serves the generated site plus health, status and metrics
// endpoints.
type httpServer struct {
	server *http.Server
	addr   string
}

func newHTTPServer(addr, htmlDir string, st *status, registry *prom.Registry) *httpServer {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(htmlDir)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st.snapshot())
	})
	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return &httpServer{
		server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr:   addr,
	}
}

// start begins serving on the configured address, returning the bound
// listener address (useful when addr uses port 0).
func (h *httpServer) start() (string, error) {
	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", h.addr, err)
	}
	go func() {
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Preview server error", logfields.Error(err))
		}
	}()
	return listener.Addr().String(), nil
}

func (h *httpServer) shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}
