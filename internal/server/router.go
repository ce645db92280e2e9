// Package server implements the HTTP server and routing logic.
package server

import (
	"io/fs"
	"net/http"

	"github.com/vdb2/vdb2/internal/config"
	"github.com/vdb2/vdb2/internal/server/dto"
	"github.com/vdb2/vdb2/internal/server/handlers"
	"github.com/vdb2/vdb2/internal/server/ipgeo"
	"github.com/vdb2/vdb2/internal/server/ratelimit"
)

// Config holds the router configuration.
type Config struct {
	ServerConfig *config.ServerConfig
	// StaticDir holds the landing page and static assets.
	StaticDir string
	// Frontend provides index.html when StaticDir has none. May be nil.
	Frontend fs.FS
	Version  string
	IPGeo    *ipgeo.Checker // may be nil
}

// Router is the root HTTP handler.
type Router struct {
	http.Handler
	limiters *ratelimit.Config
}

// Close stops the rate limiter background cleanup.
func (rt *Router) Close() {
	rt.limiters.Close()
}

// NewRouter creates and configures the HTTP router.
// Serves API endpoints at /api/*, attachments at /vdb_files/* and static
// files at /.
func NewRouter(svc *handlers.Services, cfg *Config) *Router {
	if cfg.ServerConfig == nil {
		sc := config.DefaultServerConfig()
		cfg.ServerConfig = &sc
	}
	limiters := ratelimit.NewConfig(cfg.ServerConfig.RateLimits)
	mux := &http.ServeMux{}

	hh := handlers.NewHealthHandler(cfg.Version)
	sh := handlers.NewSchemaHandler()
	histh := handlers.NewHistoryHandler(svc.History)
	dh := handlers.NewDatabaseHandler(svc.Databases)
	eh := handlers.NewEntryHandler(svc.Entries)
	ah := handlers.NewAssetHandler(svc.Files, cfg.StaticDir, cfg.Frontend)

	mux.Handle("GET /api/health", Wrap(hh.Health, svc, cfg, limiters))
	mux.Handle("GET /api/schema", Wrap(sh.Schema, svc, cfg, limiters))
	mux.Handle("GET /api/history", Wrap(histh.ListHistory, svc, cfg, limiters))

	// Databases
	mux.Handle("GET /api/vdbs", Wrap(dh.ListDatabases, svc, cfg, limiters))
	mux.Handle("POST /api/vdbs", Wrap(dh.CreateDatabase, svc, cfg, limiters))
	mux.Handle("GET /api/vdbs/{id}", Wrap(dh.GetDatabase, svc, cfg, limiters))

	// Entries
	mux.Handle("GET /api/vdbs/{id}/entries", Wrap(eh.ListEntries, svc, cfg, limiters))
	mux.Handle("POST /api/vdbs/{id}/entries", Wrap(eh.CreateEntry, svc, cfg, limiters))

	// Unknown API paths answer JSON rather than falling through to static files.
	apiNotFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(r.Context(), w, dto.NotFound("endpoint").WithDetail("path", r.URL.Path))
	})
	mux.Handle("GET /api/", apiNotFound)
	mux.Handle("POST /api/", apiNotFound)

	// Attachments and static files
	mux.Handle("GET /vdb_files/{path...}", rateLimited(limiters, http.HandlerFunc(ah.ServeAttachment)))
	mux.Handle("GET /{$}", rateLimited(limiters, http.HandlerFunc(ah.ServeIndex)))
	mux.Handle("GET /", rateLimited(limiters, http.HandlerFunc(ah.ServeStatic)))

	return &Router{
		Handler:  withRequestLog(cfg.IPGeo, withCORS(mux)),
		limiters: limiters,
	}
}
