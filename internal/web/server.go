// Package web serves the tagimport HTTP API: preview and import of tag
// exports, and listing, deleting and exporting stored tracks.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JonMunkholm/tagimport/internal/config"
	"github.com/JonMunkholm/tagimport/internal/importer"
	"github.com/JonMunkholm/tagimport/internal/store"
	appmw "github.com/JonMunkholm/tagimport/internal/web/middleware"
)

// TrackStore is the part of *store.Store the handlers use.
type TrackStore interface {
	List(ctx context.Context, f store.Filter) ([]store.Track, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	Imports(ctx context.Context, limit int) ([]store.ImportSummary, error)
	Rollback(ctx context.Context, importID uuid.UUID) (int64, error)
}

// Server is the HTTP server for the tagimport API.
type Server struct {
	cfg     *config.Config
	service *importer.Service
	tracks  TrackStore
	logger  *slog.Logger
	router  *chi.Mux
	server  *http.Server

	limiter       *appmw.RateLimiter
	importLimiter *appmw.RateLimiter
	stopSweep     context.CancelFunc
}

// NewServer wires the router. tracks may be nil, in which case the track
// endpoints answer 503.
func NewServer(cfg *config.Config, service *importer.Service, tracks TrackStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		cfg:     cfg,
		service: service,
		tracks:  tracks,
		logger:  logger,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.limiter = appmw.NewRateLimiter(cfg.Rate.RequestsPerMinute, cfg.Rate.Burst)
		s.importLimiter = appmw.NewRateLimiter(cfg.Rate.ImportLimit, cfg.Rate.ImportLimit)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(appmw.TrustedRealIP(s.cfg.Security.TrustedProxies, s.logger))
	s.router.Use(appmw.Logger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(s.securityHeaders)
	if s.limiter != nil {
		s.router.Use(s.limiter.Handler(s.logger))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(appmw.APIKeyAuth(&s.cfg.Security, s.logger))

		r.Group(func(r chi.Router) {
			if s.importLimiter != nil {
				r.Use(s.importLimiter.Handler(s.logger))
			}
			r.Post("/preview", s.handlePreview)
			r.Post("/import", s.handleImport)
		})

		r.Get("/tracks", s.handleListTracks)
		r.Get("/tracks/export", s.handleExportTracks)
		r.Delete("/tracks/{id}", s.handleDeleteTrack)
		r.Delete("/tracks", s.handleClearTracks)

		r.Get("/imports", s.handleListImports)
		r.Post("/rollback/{importID}", s.handleRollbackImport)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweep = cancel
	for _, rl := range []*appmw.RateLimiter{s.limiter, s.importLimiter} {
		if rl != nil {
			go rl.Run(ctx)
		}
	}

	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopSweep != nil {
		s.stopSweep()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		}
		next.ServeHTTP(w, r)
	})
}

type healthResponse struct {
	Status string                  `json:"status"`
	Parse  *importer.LimiterStatus `json:"parse,omitempty"`
	Tracks *int64                  `json:"tracks,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if l := s.service.Limiter(); l != nil {
		st := l.Status()
		resp.Parse = &st
	}

	status := http.StatusOK
	if s.tracks != nil {
		n, err := s.tracks.Count(r.Context())
		if err != nil {
			s.logger.Error("health check: count tracks", "error", err)
			resp.Status = "degraded"
			resp.Error = importer.MapError(err).Message
			status = http.StatusServiceUnavailable
		} else {
			resp.Tracks = &n
		}
	}
	s.writeJSONStatus(w, status, resp)
}

// writeJSON encodes v as a 200 response.
func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	s.writeJSONStatus(w, http.StatusOK, v)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("json encode error", "error", err)
	}
}
