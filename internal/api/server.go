// Package api serves the loopback HTTP API through which browser surfaces and the CLI reach a
// running daemon: sync commands, catalog edits, settings and the store change feed.
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/workspace"
)

// Server holds dependencies for HTTP handlers
type Server struct {
	store  *store.Store
	ws     workspace.Workspace
	router *chi.Mux
}

// NewServer creates a server with all routes configured. st backs the health check and the
// event stream; every other route goes through ws.
func NewServer(st *store.Store, ws workspace.Workspace) *Server {
	s := &Server{
		store:  st,
		ws:     ws,
		router: chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allowOrigin,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/sync", func(r chi.Router) {
			r.Post("/push", s.handleSync(s.ws.Push))
			r.Post("/pull", s.handleSync(s.ws.Pull))
		})
		r.Post("/commands", s.handleCommand)
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleEvents)

		r.Route("/libraries", func(r chi.Router) {
			r.Get("/", s.handleLibraries)
			r.Post("/", s.handleAddLibrary)
			r.Put("/", s.handleImportLibraries)
			r.Get("/current", s.handleCurrentLibrary)
			r.Patch("/{id}", s.handleRenameLibrary)
			r.Delete("/{id}", s.handleDeleteLibrary)
			r.Post("/{id}/switch", s.handleSwitchLibrary)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", s.handleAddCategory)
			r.Patch("/{id}", s.handleRenameCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/prompts", func(r chi.Router) {
			r.Post("/", s.handleAddPrompt)
			r.Post("/delete", s.handleDeletePrompts)
			r.Put("/{id}", s.handleUpdatePrompt)
			r.Post("/{id}/image", s.handleAttachImage)
		})

		r.Route("/selection", func(r chi.Router) {
			r.Get("/", s.handleSelection)
			r.Delete("/", s.handleClearSelection)
			r.Post("/toggle", s.handleToggleSelection)
			r.Post("/tags", s.handleAddTag)
			r.Post("/tags/remove", s.handleRemoveTag)
		})

		r.Route("/images", func(r chi.Router) {
			r.Get("/", s.handleListImages)
			r.Post("/test", s.handleTestImageHost)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleSettings)
			r.Patch("/{section}", s.handleSaveSettings)
		})
	})
}

// allowOrigin admits browser extensions and local pages only
func allowOrigin(_ *http.Request, origin string) bool {
	return strings.HasPrefix(origin, "chrome-extension://") ||
		strings.HasPrefix(origin, "moz-extension://") ||
		strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1")
}
