// Upsell agent server: the Workspace sales-chat widget backend.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/upsell-agent/internal/agent"
	"github.com/ashureev/upsell-agent/internal/api"
	"github.com/ashureev/upsell-agent/internal/config"
	"github.com/ashureev/upsell-agent/internal/health"
	"github.com/ashureev/upsell-agent/internal/identity"
	"github.com/ashureev/upsell-agent/internal/knowledge"
	"github.com/ashureev/upsell-agent/internal/middleware"
	"github.com/ashureev/upsell-agent/internal/persona"
	"github.com/ashureev/upsell-agent/internal/script"
	"github.com/ashureev/upsell-agent/internal/session"
	"github.com/ashureev/upsell-agent/internal/store"
	"github.com/ashureev/upsell-agent/internal/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "model", cfg.Generation.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	facts := knowledge.NewSource(cfg.Generation.KnowledgePath, logger)

	// A missing credential is not fatal: every turn gets the configuration-error reply.
	var gen agent.Generator
	if cfg.HasCredential() {
		g, err := agent.NewGeminiGenerator(ctx, cfg.Generation.APIKey, cfg.Generation.Model)
		if err != nil {
			slog.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		gen = g
		slog.Info("Gemini generator initialized", "model", g.Model())
	} else {
		slog.Warn("GOOGLE_API_KEY not set, agent replies will report a configuration error")
	}

	svc := agent.NewService(gen, facts, agent.Options{
		Temperature: cfg.Generation.Temperature,
		Timeout:     cfg.Generation.Timeout,
	}, logger)
	sessions := session.NewManager(repo, svc, cfg.SessionTTL, logger)

	limiter := api.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	defer limiter.Close()

	hub := stream.NewHub()
	defer hub.CloseAll()
	sessions.OnRemoved(hub.CloseSession)

	// Initialize handlers.
	apiHandler := api.NewHandler(sessions, persona.NewGenerator(persona.DefaultCatalog(), nil), script.Default(), limiter, svc.Configured(), logger)
	healthHandler := api.NewHealthHandler(repo, svc.Configured())
	wsHandler := stream.NewHandler(sessions, hub, limiter, cfg.AllowedOrigins, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Everything else is scoped to the anonymous identity.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.IsDevelopment()))
		apiHandler.RegisterRoutes(r)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// WriteTimeout stays 0 so WebSocket streams are not cut off.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return sessions.RunSweeper(gctx, session.DefaultSweepInterval)
	})

	if cfg.GRPCHealthPort != "" {
		healthServer := health.NewServer(repo, svc.Configured(), logger)
		g.Go(func() error {
			return healthServer.Serve(gctx, ":"+cfg.GRPCHealthPort)
		})
	}

	// Wait for shutdown signal or a failed component.
	g.Go(func() error {
		<-gctx.Done()
		stop()
		slog.Info("Shutting down gracefully...")

		hub.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
