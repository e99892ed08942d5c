package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mechanicaltomato/fizzy/internal/engine"
	"github.com/mechanicaltomato/fizzy/internal/store"
)

// Server is the fizzy HTTP API for one tenant database.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server over a tenant store and its engine.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/collections", s.handleCreateCollection)
		r.Get("/collections", s.handleListCollections)
		r.Get("/collections/{collectionID}/entropy", s.handleGetCollectionEntropy)
		r.Put("/collections/{collectionID}/entropy", s.handleSetCollectionEntropy)
		r.Delete("/collections/{collectionID}/entropy", s.handleClearCollectionEntropy)

		r.Get("/account/entropy", s.handleGetAccountEntropy)
		r.Put("/account/entropy", s.handleSetAccountEntropy)

		r.Post("/cards", s.handleCreateCard)
		r.Get("/cards", s.handleListCards)
		r.Get("/cards/postponing_soon", s.handlePostponingSoon)
		r.Get("/cards/{cardID}", s.handleGetCard)
		r.Post("/cards/{cardID}/events", s.handleCaptureEvent)
		r.Delete("/cards/{cardID}/events/{kind}/{source}", s.handleReleaseEvents)
		r.Post("/cards/{cardID}/rescore", s.handleRescoreCard)
		r.Post("/rescore", s.handleRescoreAll)

		r.Post("/sweep", s.handleSweep)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
