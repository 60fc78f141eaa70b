package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/origincreativegroup/folio/internal/projectservice"
	"github.com/origincreativegroup/folio/internal/studio"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// dir is used to serve project files read-only.
func NewRouter(svc *projectservice.Service, authEnabled bool, token string, sseHandler http.Handler, dir *studio.Dir) chi.Router {
	h := NewHandler(svc)
	fh := NewFileHandler(dir)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Project catalog.
	r.Get("/projects", h.ListProjects)
	r.Get("/projects/{folder}", h.GetProject)
	r.Put("/projects/{folder}/metadata", h.UpdateMetadata)
	r.Put("/projects/{folder}/narrative", h.UpdateNarrative)

	// Sync.
	r.Post("/projects/{folder}/sync", h.SyncProject)
	r.Post("/sync", h.SyncAll)

	// Archives.
	r.Post("/archives/import", h.ImportArchive)
	r.Get("/projects/{folder}/export", h.ExportProject)

	// Project files (read-only).
	r.Get("/projects/{folder}/files/*", fh.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
