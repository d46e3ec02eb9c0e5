// Package server wires the stores, services and handlers into a chi router
// and runs it with graceful shutdown.
//
// New is the composition root: it opens the database, builds each service
// on the repository interfaces and hands the services to the handlers.
// Handlers never see the database; services never see HTTP.
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

	"github.com/Thcamm/personal-diary/internal/auth"
	"github.com/Thcamm/personal-diary/internal/config"
	"github.com/Thcamm/personal-diary/internal/feed"
	"github.com/Thcamm/personal-diary/internal/handler"
	"github.com/Thcamm/personal-diary/internal/middleware"
	"github.com/Thcamm/personal-diary/internal/repository/sqlstore"
	"github.com/Thcamm/personal-diary/internal/service"
)

// Server owns the router and the database connection, which it closes on
// shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqlstore.DB
}

// New opens the database and builds the router.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the router, for tests that drive the server through
// httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes mounts:
//
//	GET    /healthz
//	POST   /auth/register, /auth/login, /auth/logout
//	GET    /auth/github/login, /auth/github/callback   (when configured)
//	GET    /api/me, /api/me/diaries, /api/feed, /api/users/{id}
//	POST   /api/diaries
//	GET    /api/diaries/{id}   PATCH, DELETE likewise
//	PUT    /api/diaries/{id}/like   DELETE likewise
//	GET    /api/diaries/{id}/comments   POST likewise
//	DELETE /api/comments/{id}
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.config.Auth.BcryptCost)

	var github *auth.GitHubProvider
	if s.config.GitHub.Enabled() {
		github = auth.NewGitHubProvider(s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL)
	}

	users, diaries, comments, likes := s.db.Users(), s.db.Diaries(), s.db.Comments(), s.db.Likes()

	authService := service.NewAuthService(users, tokens, passwords, s.logger)
	diaryService := service.NewDiaryService(diaries, s.logger)
	commentService := service.NewCommentService(comments, diaries, s.logger)
	likeService := service.NewLikeService(likes, diaries, s.logger)
	assembler := feed.NewAssembler(diaries, users, comments, likes, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.config.Auth.SecureCookies, s.logger)
	diaryHandler := handler.NewDiaryHandler(diaryService, likeService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)
	feedHandler := handler.NewFeedHandler(assembler, s.logger)
	userHandler := handler.NewUserHandler(authService, s.logger)

	limiter := middleware.NewRateLimiter(s.config.Auth.LoginRatePerMinute)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(s.config.RequestTimeout))
	s.router.Use(auth.OptionalAuth(tokens))

	s.router.Get("/healthz", handler.HandleHealth(s.db, s.logger))

	s.router.Route("/auth", func(r chi.Router) {
		r.With(limiter.Handler).Post("/register", authHandler.HandleRegister)
		r.With(limiter.Handler).Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		if authHandler.GitHubEnabled() {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/feed", feedHandler.HandleFeed)
		r.Get("/users/{id}", userHandler.HandleGet)
		r.Get("/diaries/{id}", diaryHandler.HandleGet)
		r.Get("/diaries/{id}/comments", commentHandler.HandleList)

		// Comments accept anonymous callers so the service can answer
		// with the policy's own denial.
		r.Post("/diaries/{id}/comments", commentHandler.HandleCreate)
		r.Delete("/comments/{id}", commentHandler.HandleDelete)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authHandler.HandleMe)
			r.Get("/me/diaries", feedHandler.HandleMine)
			r.Post("/diaries", diaryHandler.HandleCreate)
			r.Patch("/diaries/{id}", diaryHandler.HandleUpdate)
			r.Delete("/diaries/{id}", diaryHandler.HandleDelete)
			r.Put("/diaries/{id}/like", diaryHandler.HandleLike)
			r.Delete("/diaries/{id}/like", diaryHandler.HandleUnlike)
		})
	})

	return nil
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.Database.Driver),
			slog.Bool("github", s.config.GitHub.Enabled()),
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
