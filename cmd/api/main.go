// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heimassist/assistant-platform/internal/config"
	"github.com/heimassist/assistant-platform/internal/events"
	"github.com/heimassist/assistant-platform/internal/handler"
	"github.com/heimassist/assistant-platform/internal/llm"
	"github.com/heimassist/assistant-platform/internal/middleware"
	"github.com/heimassist/assistant-platform/internal/orchestrator"
	"github.com/heimassist/assistant-platform/internal/planner"
	"github.com/heimassist/assistant-platform/internal/service"
	"github.com/heimassist/assistant-platform/internal/store"
	"github.com/heimassist/assistant-platform/internal/store/memory"
	"github.com/heimassist/assistant-platform/internal/store/postgres"
	"github.com/heimassist/assistant-platform/internal/tools"
	"github.com/heimassist/assistant-platform/pkg/logger"
	"github.com/heimassist/assistant-platform/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Infow("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "assistant-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warnw("failed to initialize tracing", "error", err)
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Store: Postgres when configured, in-memory otherwise.
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Errorw("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.CreateSchema(ctx); err != nil {
			log.Errorw("failed to create schema", "error", err)
			os.Exit(1)
		}
		st = pg
		log.Infow("using postgres store")
	} else {
		st = memory.New()
		log.Infow("using in-memory store")
	}

	// Optional event publishing.
	publisher, err := events.Connect(cfg.NATSURL, cfg.NATSToken, log)
	if err != nil {
		log.Errorw("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	client, err := buildLLMClient(cfg)
	if err != nil {
		log.Errorw("failed to create completion client", "error", err)
		os.Exit(1)
	}
	log.Infow("completion backend ready", "provider", client.Name())

	registry := tools.NewRegistry(tools.Config{
		SearxURL:       cfg.SearxURL,
		GeocodeURL:     cfg.GeocodeURL,
		ForecastURL:    cfg.ForecastURL,
		OSRMURL:        cfg.OSRMURL,
		WeatherTimeout: cfg.WeatherTimeout,
		SearchTimeout:  cfg.SearchTimeout,
		RouteTimeout:   cfg.RouteTimeout,
	}, log)

	conversationSvc := service.NewConversationService(st, log)
	messageSvc := service.NewMessageService(st, conversationSvc, publisher, log)
	settingsSvc := service.NewSettingsService(st, log)
	replySvc := service.NewReplyService(
		st,
		conversationSvc,
		service.NewWindowBuilder(st, cfg.MaxContextMessages),
		planner.New(client, registry.Allowlist(), log),
		orchestrator.New(registry, log),
		client,
		publisher,
		log,
	)

	healthHandler := handler.NewHealthHandler(st)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	messageHandler := handler.NewMessageHandler(messageSvc, log)
	settingsHandler := handler.NewSettingsHandler(settingsSvc, log)
	streamHandler := handler.NewStreamHandler(replySvc, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Update)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Put("/", conversationHandler.Rename)
				r.Delete("/", conversationHandler.Delete)

				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Create)

				r.Post("/reply", streamHandler.Reply)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infow("server listening", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Infow("server stopped")
}

// buildLLMClient selects the completion backend. Ollama is the default and
// needs no credentials.
func buildLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case "anthropic":
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	case "", "ollama":
		return llm.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}
