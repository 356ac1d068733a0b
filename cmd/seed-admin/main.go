package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/config"
	"github.com/JKGhartey/task-manager-sub001/internal/observability"
	"github.com/JKGhartey/task-manager-sub001/internal/persistence"
	"github.com/JKGhartey/task-manager-sub001/internal/repository"
	"github.com/JKGhartey/task-manager-sub001/internal/service"
)

func main() {
	var in service.AdminInput
	cmd := &cobra.Command{
		Use:          "seed-admin",
		Short:        "Create or promote the administrator account",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), in)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Email, "email", os.Getenv("ADMIN_EMAIL"), "admin email (ADMIN_EMAIL)")
	f.StringVar(&in.Password, "password", os.Getenv("ADMIN_PASSWORD"), "admin password (ADMIN_PASSWORD)")
	f.StringVar(&in.FirstName, "first-name", os.Getenv("ADMIN_FIRST_NAME"), "first name")
	f.StringVar(&in.LastName, "last-name", os.Getenv("ADMIN_LAST_NAME"), "last name")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, in service.AdminInput) error {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("seed-admin requires POSTGRES_DSN")
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			return err
		}
	}

	svc := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: repository.NewUserRepository(pool),
		Logger:   logger,
	})
	user, created, err := svc.EnsureAdmin(ctx, in)
	if err != nil {
		logger.Error("seed admin failed", zap.Error(err))
		return err
	}
	logger.Info("admin ready", zap.String("email", user.Email), zap.Bool("created", created))
	return nil
}
