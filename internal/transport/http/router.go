package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"artgram/internal/handler"
	"artgram/internal/httputil"
	"artgram/internal/metrics"
	authmw "artgram/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	FeedHandler    *handler.FeedHandler
	PostHandler    *handler.PostHandler
	LikeHandler    *handler.LikeHandler
	CommentHandler *handler.CommentHandler

	// MediaHandler is nil when images are served from R2.
	MediaHandler *handler.MediaHandler
	MediaPrefix  string

	JWTSecret      string
	RequestTimeout time.Duration
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMethodNotAllowed(w, "Method not allowed")
	})

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if cfg.MediaHandler != nil {
		r.Get(cfg.MediaPrefix+"/*", cfg.MediaHandler.Serve)
	}

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
	})

	// Public read endpoints with optional authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(cfg.JWTSecret))

		r.Get("/feed", cfg.FeedHandler.GetFeed)
		r.Get("/users/{username}", cfg.UserHandler.GetProfile)
		r.Get("/posts/{id}", cfg.PostHandler.GetByID)
		r.Get("/posts/{id}/likes", cfg.PostHandler.GetLikers)

		// Like toggle answers every method itself so that rejections,
		// 401 and 405 included, keep the toggle payload
		r.HandleFunc("/posts/{id}/like", cfg.LikeHandler.Toggle)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		// Current user endpoints
		r.Get("/me", cfg.AuthHandler.Me)
		r.Delete("/me", cfg.UserHandler.DeleteMe)
		r.Patch("/me/profile", cfg.UserHandler.UpdateProfile)

		// Post endpoints
		r.Post("/posts", cfg.PostHandler.Create)
		r.Patch("/posts/{id}", cfg.PostHandler.Update)
		r.Delete("/posts/{id}", cfg.PostHandler.Delete)

		// Comment endpoints
		r.Post("/posts/{id}/comments", cfg.CommentHandler.Create)
		r.Delete("/comments/{id}", cfg.CommentHandler.Delete)
	})

	return r
}
