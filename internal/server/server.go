// Package server assembles the wallet service's root HTTP router:
// chi.NewRouter, the standard logging/recoverer middleware, CORS, and a
// graceful http.Server wrapper.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/walletcore/internal/wallet/handlers"
)

// Config controls how the HTTP server is built.
type Config struct {
	Port     int
	Log      zerolog.Logger
	DevMode  bool
	Handlers *handlers.Handlers
}

// Server wraps an http.Server with the lifecycle methods main() needs.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// New builds the root router and binds it to Config.Port.
func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	allowedOrigins := []string{"https://*", "http://*"}
	if !cfg.DevMode {
		allowedOrigins = []string{"https://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthHandler)
	cfg.Handlers.RegisterRoutes(r)

	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Port)),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: cfg.Log.With().Str("component", "http_server").Logger(),
	}
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
