package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lixing-Zhang/menu-extractor/internal/app"
	"github.com/Lixing-Zhang/menu-extractor/internal/config"
	"github.com/Lixing-Zhang/menu-extractor/internal/handlers"
	"github.com/Lixing-Zhang/menu-extractor/internal/idgen"
	"github.com/Lixing-Zhang/menu-extractor/internal/repository"
	"github.com/Lixing-Zhang/menu-extractor/internal/service"
	"github.com/Lixing-Zhang/menu-extractor/pkg/logger"
)

func main() {
	// Load configuration from .env, the optional YAML file and environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting menu extractor api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.LogLevel,
		"model", cfg.Gemini.Model,
	)

	sessionRepo := repository.NewInMemorySessionRepository()
	deps, err := app.NewDeps(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	menuService := service.NewMenuService(sessionRepo, deps, idgen.Default, log)

	router := handlers.NewRouter(cfg, menuService, log)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepIdle(sweepCtx, menuService, config.Duration(cfg.Session.IdleTimeout), app.SweepInterval(cfg), log)

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	menuService.Close(ctx)

	log.Info("server stopped gracefully")
}

// sweepIdle removes sessions idle for longer than maxIdle until ctx is done
func sweepIdle(ctx context.Context, svc *service.MenuService, maxIdle, interval time.Duration, log *slog.Logger) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.SweepIdle(ctx, maxIdle); err != nil {
				log.Error("failed to sweep idle sessions", "error", err)
			}
		}
	}
}
