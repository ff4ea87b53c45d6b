// Package admin provides a REST API for inspecting and reloading a
// running Wishmock server: status, service/method listing, schema
// introspection, proto/rule upload, and health checks.
//
// Grounded on this codebase's admin API surface (pkg/admin/api.go's
// http.NewServeMux + registerRoutes shape, handlers.go's
// writeJSON/writeError helpers), scoped down to the handful of
// read-mostly endpoints a programmable mock server's operator needs
// instead of the full mock-CRUD surface that server manages.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/wishmock/wishmock/internal/config"
	"github.com/wishmock/wishmock/pkg/httputil"
	"github.com/wishmock/wishmock/pkg/metrics"
	"github.com/wishmock/wishmock/pkg/util"
	"github.com/wishmock/wishmock/pkg/world"
)

// API exposes Wishmock's admin HTTP surface.
type API struct {
	Registry  *world.Registry
	Config    config.Config
	Log       *slog.Logger
	Version   string
	startTime time.Time

	// GRPCAddress and ConnectAddress report the bound listener
	// addresses for /admin/status; set by the caller once the gateway
	// has started.
	GRPCAddress    atomic.Pointer[string]
	ConnectAddress atomic.Pointer[string]

	httpServer *http.Server
}

// NewAPI builds an API bound to reg and cfg. startTime is recorded at
// construction for the uptime reported by /health.
func NewAPI(reg *world.Registry, cfg config.Config, log *slog.Logger, version string) *API {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &API{Registry: reg, Config: cfg, Log: log, Version: version, startTime: time.Now()}
}

// Handler builds the admin mux. Exported separately from Start so tests
// can exercise routes without binding a real listener.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /liveness", a.handleHealth)
	mux.HandleFunc("GET /readiness", a.handleReadiness)
	mux.Handle("GET /metrics", metrics.DefaultRegistry().Handler())

	mux.HandleFunc("GET /admin/status", a.handleStatus)
	mux.HandleFunc("GET /admin/services", a.handleServices)
	mux.HandleFunc("GET /admin/schema/{type}", a.handleSchema)
	mux.HandleFunc("POST /admin/upload/proto", a.handleUploadProto)
	mux.HandleFunc("POST /admin/upload/rule", a.handleUploadRule)
	return mux
}

// Start binds and serves the admin API on addr.
func (a *API) Start(addr string) error {
	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return a.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the admin listener, if started, forcing a
// hard close after 5s.
func (a *API) Stop() error {
	if a.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return a.httpServer.Close()
	}
	return nil
}

func (a *API) uptime() time.Duration {
	return time.Since(a.startTime)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, status int, errCode, message string) {
	httputil.WriteJSON(w, status, map[string]string{"error": errCode, "message": message})
}

// persistUpload writes content to dir/filename, creating dir if needed,
// rejecting any filename that would escape dir via ".." traversal.
func persistUpload(dir, filename, content string) (string, error) {
	safe, ok := util.SafeFilePath(filename)
	if !ok {
		return "", os.ErrPermission
	}
	full := filepath.Join(dir, safe)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", err
	}
	return full, nil
}
