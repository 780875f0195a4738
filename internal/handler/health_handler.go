package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/newsguardhq/newsguard/internal/config"
	"github.com/newsguardhq/newsguard/internal/utils"
	"github.com/newsguardhq/newsguard/pkg/classifier"
)

// ModelHealth summarises classifier readiness inside the health payload.
type ModelHealth struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	Loaded   bool   `json:"loaded"`
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string      `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
	Service     string      `json:"service"`
	Environment string      `json:"environment"`
	Model       ModelHealth `json:"model"`
}

// HealthCheck returns a handler that reports application health information.
// The service stays "ok" while the model is cold: scoring loads it lazily.
func HealthCheck(cfg config.Config, loader *classifier.Loader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Model: ModelHealth{
				Provider: cfg.ModelProvider,
				ID:       cfg.ModelID,
			},
		}

		if loader != nil {
			payload.Model.Loaded = loader.Loaded()
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
