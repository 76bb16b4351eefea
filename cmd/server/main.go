// Self-explanation tutoring server.
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

	"github.com/ashureev/selfexplain/internal/api"
	"github.com/ashureev/selfexplain/internal/audio"
	"github.com/ashureev/selfexplain/internal/catalog"
	"github.com/ashureev/selfexplain/internal/config"
	"github.com/ashureev/selfexplain/internal/identity"
	"github.com/ashureev/selfexplain/internal/judge"
	"github.com/ashureev/selfexplain/internal/llm"
	"github.com/ashureev/selfexplain/internal/logbook"
	"github.com/ashureev/selfexplain/internal/middleware"
	"github.com/ashureev/selfexplain/internal/speech"
	"github.com/ashureev/selfexplain/internal/store"
	"github.com/ashureev/selfexplain/internal/tutor"
	"github.com/ashureev/selfexplain/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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

	if cfg.OpenAI.APIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

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

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	cat, err := catalog.Load(cfg.ConceptPath)
	if err != nil {
		slog.Error("Failed to load concept catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Concept catalog ready", "concepts", cat.Len())

	files, err := audio.NewStore(cfg.AudioDir)
	if err != nil {
		slog.Error("Failed to initialize audio store", "error", err)
		os.Exit(1)
	}

	// External model services.
	provider, err := llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          cfg.OpenAI.ChatModel,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
	})
	if err != nil {
		slog.Error("Failed to initialize OpenAI provider", "error", err)
		os.Exit(1)
	}
	generator := llm.WithRetry(provider, llm.DefaultRetryConfig())

	speechSvc, err := speech.NewOpenAISpeech(speech.Config{
		APIKey:             cfg.OpenAI.APIKey,
		BaseURL:            cfg.OpenAI.BaseURL,
		TranscriptionModel: cfg.OpenAI.TranscriptionModel,
		SpeechModel:        cfg.OpenAI.SpeechModel,
		Voice:              cfg.OpenAI.SpeechVoice,
	})
	if err != nil {
		slog.Error("Failed to initialize speech services", "error", err)
		os.Exit(1)
	}
	// Two passes: short clips fail a single transcription often enough.
	transcriber := speech.NewChain(speechSvc, speechSvc)
	narrator := audio.NewNarrator(speechSvc, files, "/uploads")

	scorer := judge.New(provider, judge.Thresholds{
		High:   cfg.Judge.HighThreshold,
		Medium: cfg.Judge.MediumThreshold,
		Low:    cfg.Judge.LowThreshold,
	})

	interactionLog, err := logbook.New(logbook.Config{
		Enabled:   cfg.InteractionLog.Enabled,
		Dir:       cfg.InteractionLog.Dir,
		QueueSize: cfg.InteractionLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize interaction logbook", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := interactionLog.Close(); closeErr != nil {
			slog.Error("Failed to close interaction logbook", "error", closeErr)
		}
	}()

	svc := tutor.NewService(tutor.Deps{
		Catalog:     cat,
		Judge:       scorer,
		Composer:    tutor.NewComposer(generator, cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature),
		Transcriber: transcriber,
		Narrator:    narrator,
		Repo:        repo,
		Log:         interactionLog,
	})

	// Initialize handlers.
	handler := api.NewHandler(repo, svc, cat, files, narrator)
	healthHandler := api.NewHealthHandler(repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(corsOrigins(cfg)))
	r.Use(identity.Middleware(repo, cfg.SessionTTL, cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	handler.RegisterRoutes(r)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func corsOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL != "" {
		return []string{cfg.FrontendURL}
	}
	return []string{"*"}
}
