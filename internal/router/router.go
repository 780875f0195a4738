package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/newsguardhq/newsguard/internal/config"
	"github.com/newsguardhq/newsguard/internal/handler"
	"github.com/newsguardhq/newsguard/internal/middleware"
	"github.com/newsguardhq/newsguard/internal/observability"
	"github.com/newsguardhq/newsguard/pkg/classifier"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AnalysisHandler *handler.AnalysisHandler
	Loader          *classifier.Loader
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Loader))

	if deps.AnalysisHandler != nil {
		scoring := api.Group("", middleware.RateLimit("analyze", cfg.RateLimitMax, cfg.RateLimitWindow))
		deps.AnalysisHandler.Register(scoring)
	}
}
