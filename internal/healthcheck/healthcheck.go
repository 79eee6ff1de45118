// Package healthcheck serves the bridge's own liveness endpoint and probes
// the backends it depends on.
package healthcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"
)

const probeTimeout = 5 * time.Second

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

type Options struct {
	Listen string
	Logger *slog.Logger
	Checks map[string]Check
}

// NormalizeListen fills in a usable listen address. A bare port like
// ":8080" or "8080" binds all interfaces.
func NormalizeListen(listen string) (string, error) {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return "", fmt.Errorf("healthcheck: listen address is required")
	}
	if !strings.Contains(listen, ":") {
		listen = ":" + listen
	}
	if _, _, err := net.SplitHostPort(listen); err != nil {
		return "", fmt.Errorf("healthcheck: listen address is invalid: %w", err)
	}
	return listen, nil
}

// Start binds the health endpoint and serves it in the background. The
// caller owns shutdown of the returned server.
func Start(opts Options) (*http.Server, error) {
	listen, err := NormalizeListen(opts.Listen)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, r, opts.Checks)
	})

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Addr: listen, Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("healthcheck_serve_failed", "error", err.Error())
		}
	}()
	logger.Info("healthcheck_listening", "listen", ln.Addr().String())
	return srv, nil
}

func writeHealth(w http.ResponseWriter, r *http.Request, checks map[string]Check) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	status := "ok"
	results := make(map[string]string, len(checks))
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			status = "degraded"
			results[name] = err.Error()
		} else {
			results[name] = "ok"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": results,
	})
}
