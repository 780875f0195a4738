package unit

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsguardhq/newsguard/internal/config"
	"github.com/newsguardhq/newsguard/internal/handler"
	"github.com/newsguardhq/newsguard/pkg/classifier"
)

type response struct {
	Success bool                   `json:"success"`
	Data    handler.HealthResponse `json:"data"`
}

type readyModel struct{}

func (readyModel) Classify(ctx context.Context, text string) (classifier.Logits, error) {
	return classifier.Logits{Real: 1, Fake: 0}, nil
}

func (readyModel) ModelID() string { return "acme/fake-news-base" }

func (readyModel) MaxTokens() int { return 512 }

type readySource struct{}

func (readySource) Resolve(ctx context.Context, modelID string) (classifier.Classifier, error) {
	return readyModel{}, nil
}

func healthConfig() config.Config {
	return config.Config{
		AppName:       "NewsGuard API",
		AppEnv:        "test",
		ModelProvider: "huggingface",
		ModelID:       "acme/fake-news-base",
	}
}

func getHealth(t *testing.T, app *fiber.App) response {
	t.Helper()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload response
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func TestHealthCheckColdModel(t *testing.T) {
	cfg := healthConfig()
	loader := classifier.NewLoader(readySource{}, classifier.LoaderConfig{
		ModelID: cfg.ModelID,
		Logger:  zerolog.New(io.Discard),
	})

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg, loader))

	payload := getHealth(t, app)

	assert.True(t, payload.Success)
	assert.Equal(t, "ok", payload.Data.Status)
	assert.Equal(t, cfg.AppName, payload.Data.Service)
	assert.Equal(t, cfg.AppEnv, payload.Data.Environment)
	assert.Equal(t, "huggingface", payload.Data.Model.Provider)
	assert.Equal(t, "acme/fake-news-base", payload.Data.Model.ID)
	assert.False(t, payload.Data.Model.Loaded)
	assert.WithinDuration(t, time.Now().UTC(), payload.Data.Timestamp, 2*time.Second)
}

func TestHealthCheckReportsLoadedModel(t *testing.T) {
	cfg := healthConfig()
	loader := classifier.NewLoader(readySource{}, classifier.LoaderConfig{
		ModelID: cfg.ModelID,
		Logger:  zerolog.New(io.Discard),
	})

	_, err := loader.Get(context.Background())
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg, loader))

	payload := getHealth(t, app)
	assert.True(t, payload.Data.Model.Loaded)
}

func TestHealthCheckWithoutLoader(t *testing.T) {
	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(healthConfig(), nil))

	payload := getHealth(t, app)
	assert.Equal(t, "ok", payload.Data.Status)
	assert.False(t, payload.Data.Model.Loaded)
}
