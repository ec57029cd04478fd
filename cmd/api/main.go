package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/maduarte95/arena-test/internal/auth"
	"github.com/maduarte95/arena-test/internal/config"
	"github.com/maduarte95/arena-test/internal/engine"
	"github.com/maduarte95/arena-test/internal/handlers"
	"github.com/maduarte95/arena-test/internal/logger"
	"github.com/maduarte95/arena-test/internal/middleware"
	"github.com/maduarte95/arena-test/internal/services"
	"github.com/maduarte95/arena-test/internal/storage"
	"github.com/maduarte95/arena-test/pkg/prompts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Arena API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	newLLM := func(modelName string) services.LLMService {
		switch strings.ToLower(cfg.LLMProvider) {
		case "anthropic":
			if cfg.AnthropicAPIKey == "" {
				log.Error("Anthropic API key is required when using anthropic provider")
				os.Exit(1)
			}
			return services.NewAnthropicService(cfg.AnthropicAPIKey, modelName, log)
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				log.Error("Gemini API key is required when using gemini provider")
				os.Exit(1)
			}
			svc, err := services.NewGeminiService(context.Background(), cfg.GeminiAPIKey, modelName, log)
			if err != nil {
				log.Error("Failed to create Gemini service", "error", err)
				os.Exit(1)
			}
			return svc
		default:
			return services.NewMockLLM()
		}
	}

	llmService := newLLM(cfg.ModelName)
	supportLLM := llmService
	if cfg.NarratorModelName != "" && cfg.NarratorModelName != cfg.ModelName {
		supportLLM = newLLM(cfg.NarratorModelName)
		log.Info("Using separate model for autonomous agents", "model", cfg.NarratorModelName)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer initCancel()
	if err := llmService.InitModel(initCtx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	store, err := storage.NewRedisStorage(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	if err := store.Ping(initCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established")

	library, err := prompts.LoadLibrary(cfg.PromptsDir)
	if err != nil {
		log.Error("Failed to load prompt templates", "dir", cfg.PromptsDir, "error", err)
		os.Exit(1)
	}

	arenaEngine := engine.NewEngineWithSupportLLM(llmService, supportLLM, store, library, cfg.ModelName, log)
	authService := auth.NewService(store, log)

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(store, log))
	mux.Handle("/v1/auth/", handlers.NewAuthHandler(authService, log))

	turnHandler := handlers.NewTurnHandler(arenaEngine, log)
	sessionHandler := handlers.NewSessionHandler(arenaEngine, store, turnHandler, log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: streaming turn responses manage their own deadlines.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := llmService.Close(); err != nil {
		log.Error("Error closing LLM service", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
