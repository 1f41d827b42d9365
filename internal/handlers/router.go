package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Lixing-Zhang/menu-extractor/internal/config"
	"github.com/Lixing-Zhang/menu-extractor/internal/middleware"
	"github.com/Lixing-Zhang/menu-extractor/internal/service"
)

// NewRouter wires middleware and every route of the API
func NewRouter(cfg *config.Config, menuService *service.MenuService, log *slog.Logger) http.Handler {
	healthHandler := NewHealthHandler(menuService, log)
	menuHandler := NewMenuHandler(menuService, cfg.Upload.MaxBytes, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))
	}

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "api_key", "X-API-Key"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.Auth))
		r.Route("/sessions", menuHandler.Routes)
	})

	return r
}
