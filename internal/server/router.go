// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/maruel/bibliodb/internal/history"
	"github.com/maruel/bibliodb/internal/resource"
	"github.com/maruel/bibliodb/internal/server/handlers"
	"github.com/maruel/bibliodb/internal/server/ratelimit"
)

// Config holds the dependencies of the router.
type Config struct {
	// Version is reported by /health.
	Version string
	Adapter *resource.Adapter
	// History is nil when the data file is not versioned.
	History *history.Repo
	// Limiter is nil when writes are not rate limited.
	Limiter *ratelimit.Limiter
	// MaxRequestBodyBytes is 0 for no limit.
	MaxRequestBodyBytes int64
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *Config) http.Handler {
	mux := &http.ServeMux{}
	eh := handlers.NewEntityHandler(cfg.Adapter)
	dh := handlers.NewDocumentHandler(cfg.Adapter.Store())
	hh := handlers.NewHealthHandler(cfg.Version, cfg.Adapter)
	histh := handlers.NewHistoryHandler(cfg.History, cfg.Adapter.Store().Path())

	// Whole document
	mux.HandleFunc("GET /{$}", dh.Raw)
	mux.HandleFunc("GET /json", dh.JSON)
	mux.HandleFunc("GET /favicon.ico", handlers.Favicon)

	// Server
	mux.Handle("GET /health", Wrap(hh.Health, cfg))
	mux.Handle("GET /history", Wrap(histh.History, cfg))
	mux.Handle("GET /schema/{kind}", Wrap(handlers.Schema, cfg))

	// Collections
	mux.Handle("GET /{kind}", Wrap(eh.List, cfg))
	mux.Handle("POST /{kind}", Wrap(eh.Create, cfg))
	mux.Handle("POST /{kind}/broadcast", Wrap(eh.Broadcast, cfg))
	mux.Handle("GET /{kind}/{id}", Wrap(eh.Get, cfg))
	mux.Handle("PUT /{kind}/{id}", Wrap(eh.Replace, cfg))
	mux.Handle("PATCH /{kind}/{id}", Wrap(eh.Patch, cfg))
	mux.Handle("DELETE /{kind}/{id}", Wrap(eh.Delete, cfg))

	var h http.Handler = mux
	h = ratelimit.Middleware(cfg.Limiter, rateLimited)(h)
	h = CORSMiddleware(h)
	return LoggingMiddleware(h)
}
