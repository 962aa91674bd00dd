// Package main is the entry point for the stockcart server.
// It wires the price simulator, the cart automation engine, the websocket
// notification hub and the HTTP API, then runs until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/stockcart/internal/config"
	"github.com/aristath/stockcart/internal/di"
	"github.com/aristath/stockcart/internal/notify"
	"github.com/aristath/stockcart/internal/server"
	"github.com/aristath/stockcart/pkg/logger"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

// devOrigins are the local frontend dev-server ports allowed alongside FRONTEND_ORIGIN
var devOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:5175",
	"http://localhost:5176",
	"http://localhost:5177",
	"http://localhost:5178",
	"http://localhost:5179",
	"http://localhost:5180",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("version", Version).Msg("Starting stockcart")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, Version, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	origins := allowedOrigins(cfg.FrontendOrigin)

	srv := server.New(server.Config{
		Log:            log,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		AllowedOrigins: origins,
		DB:             container.DB,
		Simulator:      container.Simulator,
		Engine:         container.Engine,
		Scheduler:      container.Scheduler,
		Hub:            container.Hub,
		CartHandler:    container.CartHandler,
		RulesHandler:   container.RulesHandler,
		SessionOptions: notify.SessionOptions{
			SendBuffer:     notify.DefaultSendBuffer,
			WriteTimeout:   notify.DefaultWriteTimeout,
			OriginPatterns: originPatterns(origins),
		},
	})
	for _, job := range jobs.All() {
		srv.RegisterJob(job)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	container.Scheduler.Start()
	log.Info().
		Int("port", cfg.Port).
		Dur("automation_interval", cfg.AutomationInterval).
		Dur("market_interval", cfg.MarketInterval).
		Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop ticking before the database closes
	container.Scheduler.Stop(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func allowedOrigins(frontend string) []string {
	origins := make([]string, 0, len(devOrigins)+1)
	seen := make(map[string]bool, len(devOrigins)+1)
	for _, o := range append([]string{frontend}, devOrigins...) {
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	return origins
}

// originPatterns strips schemes; the websocket library matches on host only
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
