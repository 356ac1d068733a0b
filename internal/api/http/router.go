package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/api/http/handlers"
	"github.com/JKGhartey/task-manager-sub001/internal/api/openapi"
	"github.com/JKGhartey/task-manager-sub001/internal/auth"
	"github.com/JKGhartey/task-manager-sub001/internal/config"
	"github.com/JKGhartey/task-manager-sub001/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	Docs           *openapi.Document
	RateLimit      config.RateLimitConfig
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	if cfg.Docs != nil {
		app.Get("/docs/openapi.json", cfg.Docs.Handler)
	}

	authGroup := app.Group("/auth")
	limited := RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	authGroup.Post("/register", limited, cfg.Auth.Register)
	authGroup.Post("/login", limited, cfg.Auth.Login)
	authGroup.Post("/forgot-password", limited, cfg.Auth.ForgotPassword)
	authGroup.Post("/reset-password", limited, cfg.Auth.ResetPassword)
	authGroup.Post("/verify-email", cfg.Auth.VerifyEmail)

	authenticated := auth.RequireAuthenticated()
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, authenticated, cfg.Auth.Me)
	authGroup.Put("/profile", cfg.AuthMiddleware.Handle, authenticated, cfg.Auth.UpdateProfile)
	authGroup.Post("/resend-verification", cfg.AuthMiddleware.Handle, authenticated, cfg.Auth.ResendVerification)
	authGroup.Post("/change-password", cfg.AuthMiddleware.Handle, authenticated, cfg.Auth.ChangePassword)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, authenticated, cfg.Auth.Logout)
}
