package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/newsguardhq/newsguard/internal/config"
	"github.com/newsguardhq/newsguard/internal/dto"
	"github.com/newsguardhq/newsguard/internal/handler"
	"github.com/newsguardhq/newsguard/internal/router"
	"github.com/newsguardhq/newsguard/internal/service"
	"github.com/newsguardhq/newsguard/pkg/classifier"
)

type fixedModel struct {
	logits classifier.Logits
}

func (f *fixedModel) Classify(ctx context.Context, text string) (classifier.Logits, error) {
	return f.logits, nil
}

func (f *fixedModel) ModelID() string { return "acme/fake-news-base" }

func (f *fixedModel) MaxTokens() int { return 512 }

type fixedSource struct {
	model classifier.Classifier
	err   error
}

func (f *fixedSource) Resolve(ctx context.Context, modelID string) (classifier.Classifier, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

func setupAnalysisApp(t *testing.T, source classifier.ModelSource) *fiber.App {
	t.Helper()

	cfg := config.Config{
		AppName:         "NewsGuard Test",
		ModelProvider:   "huggingface",
		ModelID:         "acme/fake-news-base",
		LongInputPolicy: config.LongInputTruncate,
	}

	logger := zerolog.New(io.Discard)
	loader := classifier.NewLoader(source, classifier.LoaderConfig{ModelID: cfg.ModelID, Logger: logger})
	svc := service.NewAnalysisService(loader, nil, validator.New(validator.WithRequiredStructEnabled()), cfg, logger)

	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		AnalysisHandler: handler.NewAnalysisHandler(svc, logger),
	})

	return app
}

func postAnalyze(t *testing.T, app *fiber.App, body interface{}) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeVerdict(t *testing.T, resp *http.Response) dto.VerdictResponse {
	t.Helper()
	defer resp.Body.Close()

	var payload struct {
		Success bool                `json:"success"`
		Data    dto.VerdictResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.True(t, payload.Success)
	return payload.Data
}

func TestAnalyzeEndpointReturnsVerdict(t *testing.T) {
	app := setupAnalysisApp(t, &fixedSource{model: &fixedModel{logits: classifier.Logits{Real: 2.0, Fake: -1.0}}})

	resp := postAnalyze(t, app, dto.AnalyzeRequest{Text: "Scientists confirm water is wet"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	verdict := decodeVerdict(t, resp)
	require.Equal(t, "Real", verdict.Label)
	require.Equal(t, "green", verdict.ColorHint)
	require.GreaterOrEqual(t, verdict.ConfidencePercent, 50)
	require.LessOrEqual(t, verdict.ConfidencePercent, 100)
}

func TestAnalyzeEndpointEmptyText(t *testing.T) {
	app := setupAnalysisApp(t, &fixedSource{model: &fixedModel{}})

	resp := postAnalyze(t, app, dto.AnalyzeRequest{Text: "   "})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeEndpointMalformedBody(t *testing.T) {
	app := setupAnalysisApp(t, &fixedSource{model: &fixedModel{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeEndpointModelUnavailable(t *testing.T) {
	app := setupAnalysisApp(t, &fixedSource{err: classifier.ErrModelUnavailable})

	resp := postAnalyze(t, app, dto.AnalyzeRequest{Text: "headline"})
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestModelStatusEndpoint(t *testing.T) {
	app := setupAnalysisApp(t, &fixedSource{model: &fixedModel{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/model", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.ModelStatusResponse `json:"data"`
	}
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.False(t, payload.Data.Loaded)
	require.Equal(t, "acme/fake-news-base", payload.Data.Model)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/model?warm=true", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.True(t, payload.Data.Loaded)
}
