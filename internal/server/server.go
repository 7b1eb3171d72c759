// ABOUTME: HTTP server assembly for comm-relay
// ABOUTME: Wires the router, middleware stack, and graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chambee/comm-relay/internal/auth"
	"github.com/chambee/comm-relay/internal/config"
	"github.com/chambee/comm-relay/internal/conversation"
	"github.com/chambee/comm-relay/internal/registry"
	"github.com/chambee/comm-relay/internal/store"
)

// Server ties the relay's pieces together behind one HTTP listener: the REST
// read API, the WebSocket relay endpoint, health, and metrics.
type Server struct {
	cfg           *config.Config
	store         store.Store
	authenticator *auth.Authenticator
	registry      *registry.Registry
	conversations *conversation.Service
	logger        *slog.Logger
	httpServer    *http.Server
}

// New assembles a Server from its dependencies.
func New(cfg *config.Config, st store.Store, authenticator *auth.Authenticator, reg *registry.Registry, conversations *conversation.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:           cfg,
		store:         st,
		authenticator: authenticator,
		registry:      reg,
		conversations: conversations,
		logger:        logger.With("component", "server"),
	}
	s.httpServer = &http.Server{
		Addr:        cfg.Server.HTTPAddr,
		Handler:     s.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// Router builds the HTTP routing tree. Exposed separately so tests can mount
// it on httptest servers.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	allowedOrigins := s.cfg.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	if s.cfg.Metrics.Enabled {
		r.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	}

	// WebSocket endpoint authenticates inside the handler so a failure can be
	// reported as a close frame instead of an HTTP status.
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(s.authenticator))
		r.Use(httprate.LimitByIP(120, time.Minute))

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", s.handleListConversations)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/messages", s.handleListMessages)
				r.Post("/read", s.handleMarkRead)
			})
		})
	})

	return r
}

// Start runs the listener until ctx is canceled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Server.HTTPAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close live relay connections first so sessions release registry slots
	// before the listener drains.
	s.registry.Close()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
