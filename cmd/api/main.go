package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/JKGhartey/task-manager-sub001/internal/api/http"
	"github.com/JKGhartey/task-manager-sub001/internal/api/http/handlers"
	"github.com/JKGhartey/task-manager-sub001/internal/api/openapi"
	"github.com/JKGhartey/task-manager-sub001/internal/auth"
	"github.com/JKGhartey/task-manager-sub001/internal/config"
	"github.com/JKGhartey/task-manager-sub001/internal/events"
	"github.com/JKGhartey/task-manager-sub001/internal/observability"
	"github.com/JKGhartey/task-manager-sub001/internal/persistence"
	"github.com/JKGhartey/task-manager-sub001/internal/repository"
	"github.com/JKGhartey/task-manager-sub001/internal/service"
	"github.com/JKGhartey/task-manager-sub001/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("the auth API requires POSTGRES_DSN")
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics(cfg.App.Name)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := worker.NewNotificationWorker(dispatcher, logger, 0)
	notificationService := service.NewNotificationService(notifications, logger, cfg.Notification)
	worker.StartNotificationWorker(ctx, notificationService, notifications)
	defer notifications.Stop()

	userRepo := repository.NewUserRepository(pool)
	revoker := auth.NewRedisRevoker(redis.Handle())
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:              userRepo,
		PasswordResetRepo:     repository.NewPasswordResetRepository(pool),
		EmailVerificationRepo: repository.NewEmailVerificationRepository(pool),
		Revoker:               revoker,
		Dispatcher:            notifications,
		Metrics:               metrics,
		Logger:                logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, revoker, logger)

	docs, err := openapi.Load(ctx)
	if err != nil {
		logger.Fatal("invalid embedded openapi document", zap.Error(err))
	}

	app := httptransport.NewApp(httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
		Docs:           docs,
		RateLimit:      cfg.RateLimit,
		Logger:         logger,
	}, cfg.App.Name, cfg.App.RequestTimeout())

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
