package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/blockedby/reactdl/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server exposes the status API and the websocket event feed.
type Server struct {
	http *http.Server
	hub  *Hub
	log  *logger.Logger
}

// NewServer builds the router and wraps it in an http.Server.
func NewServer(port string, hub *Hub, handler *Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Get()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handler.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", handler.Status)
		r.Get("/downloads/recent", handler.RecentDownloads)
	})
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	})

	return &Server{
		http: &http.Server{
			Addr:              ":" + port,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		hub: hub,
		log: log,
	}
}

// Start serves until the listener closes. Blocks; run in a goroutine.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("starting status server")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
