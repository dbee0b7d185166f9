// Package api provides the HTTP API server and handlers for the ReadQuest application.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/readquestapp/readquest-server/internal/http/response"
	"github.com/readquestapp/readquest-server/internal/service"
	"github.com/readquestapp/readquest-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store               *store.Store
	userService         *service.UserService
	bookService         *service.BookService
	progressService     *service.ProgressService
	gamificationService *service.GamificationService
	router              *chi.Mux
	logger              *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(store *store.Store, userService *service.UserService, bookService *service.BookService, progressService *service.ProgressService, gamificationService *service.GamificationService, logger *slog.Logger) *Server {
	s := &Server{
		store:               store,
		userService:         userService,
		bookService:         bookService,
		progressService:     progressService,
		gamificationService: gamificationService,
		router:              chi.NewRouter(),
		logger:              logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Registration is public.
		r.Post("/users", s.handleRegisterUser)

		// Rule catalogs are public, read-only.
		r.Get("/achievements", s.handleListAchievements)
		r.Get("/badges", s.handleListBadges)

		// Current-user endpoints.
		r.Route("/me", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/", s.handleGetCurrentUser)
			r.Get("/gamification", s.handleGetSummary)
			r.Post("/gamification/evaluate", s.handleEvaluate)
			r.Post("/gamification/streak", s.handleRecordStreak)
			r.Get("/progress", s.handleListProgress)
		})

		// Books.
		r.Route("/books", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/", s.handleListBooks)
			r.Get("/{id}", s.handleGetBook)
			r.With(s.requireLibrarian).Post("/", s.handleCreateBook)
			r.Post("/{id}/ratings", s.handleRateBook)

			// Per-book reading progress for the current user.
			r.Route("/{id}/progress", func(r chi.Router) {
				r.Get("/", s.handleGetProgress)
				r.Post("/start", s.handleStartReading)
				r.Put("/status", s.handleSetStatus)
				r.Post("/sessions", s.handleStartSession)
				r.Post("/sessions/end", s.handleEndSession)
				r.Post("/chapters/read", s.handleMarkChapterRead)
				r.Post("/chapters/complete", s.handleCompleteChapter)
				r.Post("/bookmarks", s.handleAddBookmark)
				r.Post("/notes", s.handleAddNote)
				r.Delete("/notes/{noteID}", s.handleDeleteNote)
				r.Post("/quizzes", s.handleSubmitQuiz)
			})
		})

		// Librarian administration of another user's gamification state.
		r.Route("/users/{id}", func(r chi.Router) {
			r.Use(s.requireUser)
			r.With(s.requireLibrarian).Get("/gamification", s.handleGetUserSummary)
			r.With(s.requireLibrarian).Post("/experience", s.handleAddExperience)
			r.With(s.requireLibrarian).Post("/achievements", s.handleAwardAchievement)
			r.With(s.requireLibrarian).Post("/gamification/reset", s.handleResetGamification)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}

// parsePaginationParams extracts pagination parameters from query string.
func parsePaginationParams(r *http.Request) store.PaginationParams {
	params := store.DefaultPaginationParams()

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			params.Limit = limit
		}
	}

	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		params.Cursor = cursor
	}

	params.Validate()

	return params
}
