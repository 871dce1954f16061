// Package server exposes the school search over HTTP and streams transit
// times over a websocket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jukenmap/jukenmap/internal/config"
	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/internal/transit"
	"github.com/jukenmap/jukenmap/pkg/google"
)

// SchoolSource provides the current school list.
type SchoolSource interface {
	Load(ctx context.Context) ([]model.School, error)
}

// DirectionsClient proxies Google Directions.
type DirectionsClient interface {
	Directions(ctx context.Context, req google.DirectionsRequest) (json.RawMessage, error)
}

// Deps are the collaborators behind the routes. Directions and Aggregator
// are nil when no Google key is configured.
type Deps struct {
	Schools    SchoolSource
	Directions DirectionsClient
	Aggregator *transit.Aggregator
	Catalog    *model.Catalog
	BrowserKey string
}

// Server is the HTTP API.
type Server struct {
	deps     Deps
	router   chi.Router
	server   *http.Server
	upgrader websocket.Upgrader
	log      *zap.Logger
	now      func() time.Time
}

// New builds the router and the underlying http.Server.
func New(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Catalog == nil {
		deps.Catalog = model.MustCatalog()
	}
	s := &Server{
		deps: deps,
		log:  zap.L().With(zap.String("component", "server")),
		now:  time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}

	if deps.Directions == nil || deps.Aggregator == nil {
		s.log.Warn("google maps API key not configured; directions and transit times are disabled")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/health", s.handleHealth)
		r.Route("/api", func(r chi.Router) {
			r.Get("/catalog", s.handleCatalog)
			r.Get("/schools", s.handleSchools)
			r.Get("/schools/search", s.handleSearch)
			r.Get("/schools.geojson", s.handleGeoJSON)
			r.Get("/schools/{id}/route", s.handleRoute)
			r.Get("/directions", s.handleDirections)
		})
	})

	// Long-lived; kept out of the timeout group.
	r.Get("/ws/transit", s.handleTransitWS)

	s.router = r
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.server.Addr }

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	response, _ := json.Marshal(map[string]string{"error": message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
