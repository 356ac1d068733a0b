package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// NewApp builds the fiber application with middlewares and routes registered.
func NewApp(cfg RouteConfig, appName string, timeout time.Duration) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
	})
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	RegisterMiddlewares(app, cfg.Logger, cfg.Metrics, timeout)
	RegisterRoutes(app, cfg)
	return app
}
