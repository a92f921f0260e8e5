// Package server exposes the pipeline stages over HTTP so each stage can be
// driven independently: ingest a company, generate and select personas,
// generate idea batches, score them, and render assets.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"adforge/internal/config"
	"adforge/internal/llm"
	"adforge/internal/logger"
	"adforge/internal/scrape"
	"adforge/internal/store"
	"adforge/internal/trends"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server is the HTTP front end for the pipeline.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	cfg        *config.Config
	client     *llm.Client
	media      llm.MediaGenerator
	store      *store.Store
	sampler    *scrape.Sampler
	trends     *trends.Scorer
	log        *slog.Logger
}

// New creates the server with its middleware and routes configured.
func New(cfg *config.Config, client *llm.Client, media llm.MediaGenerator, st *store.Store, sampler *scrape.Sampler, scorer *trends.Scorer) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		client:  client,
		media:   media,
		store:   st,
		sampler: sampler,
		trends:  scorer,
		log:     logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	// Generation endpoints block on model calls; the timeout has to cover a
	// full scoring or media pass, not a typical request.
	s.router.Use(middleware.Timeout(10 * time.Minute))

	if s.cfg.Server.CORSEnabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/status", s.handleStatus)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/ingest", s.handleIngest)

		r.Route("/personas", func(r chi.Router) {
			r.Post("/generate", s.handleGeneratePersonas)
			r.Post("/select", s.handleSelectPersona)
		})

		r.Post("/scripts/generate", s.handleGenerateScripts)
		r.Post("/scores/calculate", s.handleCalculateScores)

		r.Route("/assets", func(r chi.Router) {
			r.Post("/generate-images", s.handleGenerateImages)
			r.Post("/generate-videos", s.handleGenerateVideos)
		})
	})
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.cfg.Server.ReadTimeout,
		"write_timeout", s.cfg.Server.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router returns the chi router instance (useful for testing).
func (s *Server) Router() *chi.Mux {
	return s.router
}
