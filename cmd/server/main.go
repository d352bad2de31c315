package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/numerix/numerix-backend/internal/cache"
	"github.com/numerix/numerix-backend/internal/config"
	"github.com/numerix/numerix-backend/internal/database"
	"github.com/numerix/numerix-backend/internal/handler"
	"github.com/numerix/numerix-backend/internal/logger"
	"github.com/numerix/numerix-backend/internal/repository"
	"github.com/numerix/numerix-backend/internal/router"
	"github.com/numerix/numerix-backend/internal/service"
	"github.com/numerix/numerix-backend/internal/validator"
	"github.com/numerix/numerix-backend/internal/worker"
)

const certificateFontPath = "assets/fonts/DejaVuSans.ttf"

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Numerix Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewExamSessionRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)

	// ─── Initialize Caches ─────────────────────────────────────────────
	questionCache := cache.NewQuestionCache(rdb, questionRepo, log)
	deadlineIndex := cache.NewDeadlineIndex(rdb, log)

	// ─── Initialize Services ──────────────────────────────────────────
	settingService := service.NewSettingService(settingRepo, cfg, log)
	sessionService := service.NewExamSessionService(
		sessionRepo, questionRepo, questionCache, deadlineIndex, settingService, log)
	questionService := service.NewQuestionService(questionRepo, questionCache, questionCache, log)
	certificateService := service.NewCertificateService(sessionRepo, certificateFontPath, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:  handler.NewExamHandler(sessionService, questionService, certificateService, log),
		Admin: handler.NewAdminHandler(questionService, sessionService, settingService, log),
		Clock: handler.NewClockHandler(sessionService, cfg.AllowedOrigins, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	expiryWorker := worker.NewExpiryWorker(sessionService, deadlineIndex, cfg.SweepInterval, log)
	go expiryWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load question payloads and the answer key BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := questionCache.Warm(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the sweeper and let the current tick finish.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
