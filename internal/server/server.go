// Package server wires the backend, services and handlers into a chi
// router, and runs the HTTP server.
//
// COMPOSITION ROOT:
// Every dependency is assembled here, in New:
//
//	Backend (auth + store) → services → handlers → routes
//
// Handlers only see services, services only see the backend interfaces.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/sakif/tsubuyaki/internal/auth"
	"github.com/sakif/tsubuyaki/internal/config"
	"github.com/sakif/tsubuyaki/internal/handler"
	"github.com/sakif/tsubuyaki/internal/middleware"
	"github.com/sakif/tsubuyaki/internal/service"
)

// Server owns the router and the backend. Start closes the backend when
// the server stops.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	backend *Backend
	logger  *slog.Logger
}

func New(cfg *config.Config, b *Backend, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		backend: b,
		logger:  logger,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET  /               page
//	POST /posts          composer form
//	POST /auth/login     login form      (rate limited)
//	POST /auth/register  register form   (rate limited)
//	POST /auth/logout    logout
//	GET  /api/me         session as JSON
//	GET  /api/feed       feed as JSON
//	POST /api/posts      post as JSON
//	GET  /healthz        liveness
//
// MIDDLEWARE ORDER:
// RequestID, then RealIP when TRUST_PROXY is set (the limiter and the log
// key on RemoteAddr), then Logger, Recoverer, and finally the token cookie.
// Without TRUST_PROXY forwarding headers are ignored and RemoteAddr stays
// the socket peer.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	if s.config.TrustProxy {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(auth.AccessToken)

	store := s.backend.Store
	sessions := service.NewSessionManager(s.backend.Auth, store, s.logger)
	feed := service.NewFeedLoader(store, s.logger)
	composer := service.NewComposer(store, store, feed, s.logger)
	flow := service.NewAuthFlow(s.backend.Auth, store, s.logger)

	page, err := handler.NewPageHandler(sessions, feed, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	postHandler := handler.NewPostHandler(page, sessions, composer, s.logger)
	authHandler := handler.NewAuthHandler(page, sessions, flow, s.config.CookieSecure, s.logger)
	apiHandler := handler.NewAPIHandler(sessions, feed, composer, s.logger)

	limiter := middleware.NewRateLimiter(rate.Limit(s.config.AuthRateLimit), s.config.AuthRateBurst)

	s.router.Get("/", page.HandleIndex)
	s.router.Post("/posts", postHandler.HandleCreate)

	s.router.Route("/auth", func(r chi.Router) {
		r.With(limiter.Handler).Post("/login", authHandler.HandleLogin)
		r.With(limiter.Handler).Post("/register", authHandler.HandleRegister)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/me", apiHandler.HandleMe)
		r.Get("/feed", apiHandler.HandleFeed)
		r.Post("/posts", apiHandler.HandleCreatePost)
	})

	s.router.Get("/healthz", apiHandler.HandleHealth)
	return nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the backend.
func (s *Server) Start() error {
	defer s.backend.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
