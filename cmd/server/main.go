package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/mavericks-edu/mavericks-backend/internal/config"
	"github.com/mavericks-edu/mavericks-backend/internal/database"
	"github.com/mavericks-edu/mavericks-backend/internal/executor"
	"github.com/mavericks-edu/mavericks-backend/internal/handler"
	"github.com/mavericks-edu/mavericks-backend/internal/logger"
	"github.com/mavericks-edu/mavericks-backend/internal/repository"
	"github.com/mavericks-edu/mavericks-backend/internal/router"
	"github.com/mavericks-edu/mavericks-backend/internal/service"
	"github.com/mavericks-edu/mavericks-backend/internal/store"
	"github.com/mavericks-edu/mavericks-backend/internal/validator"
	"github.com/mavericks-edu/mavericks-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Mavericks Backend")

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
	participantRepo := repository.NewParticipantRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	challengeRepo := repository.NewChallengeRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	problemRepo := repository.NewProblemRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	scoreRepo := repository.NewScoreRepository(pool)

	// ─── Initialize Live State + Session Gateway ──────────────────────
	live := store.NewLiveStore(rdb)
	gateway := store.NewSessionGateway(questionRepo, problemRepo, submissionRepo, scoreRepo, sessionRepo, live, rdb, log)
	evaluator := executor.NewClient(cfg.ExecutorURL, cfg.ExecutorTimeout, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	challengeService := service.NewChallengeService(challengeRepo, questionRepo, problemRepo, eventRepo, sessionRepo, live, log)
	sessionService := service.NewSessionService(cfg, sessionRepo, challengeRepo, eventRepo, gateway, evaluator, live, rdb, log)
	eventService := service.NewEventService(eventRepo, sessionService, log)
	leaderboardService := service.NewLeaderboardService(scoreRepo, live, log)
	participantService := service.NewParticipantService(participantRepo, authService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService, participantRepo, adminRepo),
		Portal:      handler.NewPortalHandler(sessionService, leaderboardService, evaluator),
		WS:          handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		Challenge:   handler.NewChallengeHandler(challengeService),
		Event:       handler.NewEventHandler(eventService),
		Participant: handler.NewParticipantHandler(participantService),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	violationWorker := worker.NewViolationWorker(pool, rdb, log)
	answerWorker := worker.NewAnswerWorker(pool, rdb, log)
	submissionWorker := worker.NewSubmissionWorker(pool, rdb, log)
	scoreWorker := worker.NewScoreWorker(pool, rdb, log)

	go violationWorker.Start(workerCtx)
	go answerWorker.Start(workerCtx)
	go submissionWorker.Start(workerCtx)
	go scoreWorker.Start(workerCtx)

	// ─── Sweep Expired Events ─────────────────────────────────────────
	// Hard event deadlines must fire even with no participant connected.
	go sessionService.RunDeadlineSweeper(workerCtx, 15*time.Second)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published challenges into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := challengeService.Prewarm(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

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

	// 2. Detach live session controllers; their state survives in Redis.
	sessionService.Shutdown()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
