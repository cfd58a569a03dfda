package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dosewise/dosewise/internal/config"
	"github.com/dosewise/dosewise/internal/database"
	"github.com/dosewise/dosewise/internal/logger"
	"github.com/dosewise/dosewise/internal/notify"
	"github.com/dosewise/dosewise/internal/repository"
	"github.com/dosewise/dosewise/internal/server"
	"github.com/dosewise/dosewise/internal/services"
	"github.com/dosewise/dosewise/internal/stream/state"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Starting dose advisory service")

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	recRepo := repository.NewRecommendationRepository(db)

	// In-flight guard: Redis when configured, in-process otherwise
	var guard state.Guard
	if cfg.Redis.Host != "" {
		redisGuard, err := state.NewRedisManager(cfg.Redis.Host, cfg.Redis.Port)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", "error", err)
		}
		defer redisGuard.Close()
		guard = redisGuard
		logger.Info("Using Redis in-flight guard", "host", cfg.Redis.Host)
	} else {
		guard = state.NewManager()
		logger.Info("Using in-memory in-flight guard")
	}

	// Optional Telegram completion notifier
	var notifier services.Notifier
	if cfg.Telegram.BotToken != "" {
		tn, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken)
		if err != nil {
			logger.Warn("Telegram notifier disabled", "error", err)
		} else {
			notifier = tn
			logger.Info("Telegram notifier enabled")
		}
	}

	aiService, err := services.NewAIService(cfg.AI)
	if err != nil {
		logger.Fatal("Failed to create AI service", "error", err)
	}
	builder := services.NewPromptBuilder(cfg.Glucose)
	recService := services.NewRecommendationService(
		patientRepo, entryRepo, recRepo, userRepo,
		builder, aiService, guard, notifier,
		cfg.Safety.DoseChangeThreshold,
	)

	srv := server.New(recService, patientRepo, entryRepo, recRepo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("HTTP server listening", "port", cfg.HTTP.Port)
		if err := srv.Start(":" + cfg.HTTP.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
}
