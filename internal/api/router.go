package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Sibikrish3000/cr-agent/internal/api/handler"
	customMiddleware "github.com/Sibikrish3000/cr-agent/internal/api/middleware"
	"github.com/Sibikrish3000/cr-agent/internal/config"
)

// Dependencies are the services behind the HTTP API. Limiter, Cache and Metrics may be nil.
type Dependencies struct {
	Chat      handler.ChatService
	Storage   handler.StorageService
	DB        handler.Pinger
	Providers handler.ProviderLister
	Cache     handler.CacheFlusher
	Limiter   customMiddleware.Limiter
	Metrics   http.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	chatHandler := handler.NewChatHandler(deps.Chat)
	uploadHandler := handler.NewUploadHandler(deps.Storage, cfg.Storage.MaxUploadMB<<20)

	if deps.Metrics != nil && cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.DB))
		r.Get("/llm-providers", handler.ListLLMProviders(deps.Providers))

		r.Group(func(r chi.Router) {
			if deps.Limiter != nil {
				r.Use(customMiddleware.NewRateLimitMiddleware(deps.Limiter).Limit)
			}

			r.Post("/chat", chatHandler.Chat)
			r.Post("/upload", uploadHandler.Upload)

			r.Route("/storage", func(r chi.Router) {
				r.Get("/info", uploadHandler.StorageInfo)
				r.Post("/cleanup", uploadHandler.Cleanup)
			})

			// Cache management
			r.Post("/cache/flush", handler.FlushCache(deps.Cache))
		})
	})

	return r
}
