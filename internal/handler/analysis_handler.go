package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/newsguardhq/newsguard/internal/dto"
	"github.com/newsguardhq/newsguard/internal/service"
	"github.com/newsguardhq/newsguard/internal/utils"
	"github.com/newsguardhq/newsguard/pkg/classifier"
)

// AnalysisHandler exposes the credibility scoring endpoints.
type AnalysisHandler struct {
	service service.AnalysisService
	logger  zerolog.Logger
}

// NewAnalysisHandler constructs the handler.
func NewAnalysisHandler(service service.AnalysisService, logger zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		logger:  logger.With().Str("component", "analysis_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AnalysisHandler) Register(router fiber.Router) {
	router.Post("/analyze", h.analyze)
	router.Get("/model", h.modelStatus)
}

func (h *AnalysisHandler) analyze(c *fiber.Ctx) error {
	var req dto.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	verdict, err := h.service.Analyze(c.UserContext(), req)
	if err != nil {
		return h.sendAnalysisError(c, err)
	}

	return utils.OK(c, verdict, "analysis complete", nil)
}

func (h *AnalysisHandler) modelStatus(c *fiber.Ctx) error {
	warm := c.QueryBool("warm")

	status, err := h.service.ModelStatus(c.UserContext(), warm)
	if err != nil {
		h.logger.Error().Err(err).Msg("model warm-up failed")
		return utils.Fail(c, fiber.StatusServiceUnavailable, "model unavailable", fiber.Map{
			"provider": status.Provider,
			"model":    status.Model,
		})
	}

	return utils.OK(c, status, "model status retrieved", nil)
}

func (h *AnalysisHandler) sendAnalysisError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyInput):
		return utils.Fail(c, fiber.StatusBadRequest, "please enter news text to analyze", nil)
	case errors.Is(err, service.ErrInputTooLong):
		return utils.Fail(c, fiber.StatusRequestEntityTooLarge, "news text exceeds the model's capacity", nil)
	case errors.Is(err, classifier.ErrModelUnavailable), errors.Is(err, classifier.ErrModelLoad):
		h.logger.Error().Err(err).Msg("classifier unavailable")
		return utils.Fail(c, fiber.StatusServiceUnavailable, "analysis model is unavailable, try again later", nil)
	case errors.Is(err, classifier.ErrInference):
		h.logger.Error().Err(err).Msg("inference failed")
		return utils.Fail(c, fiber.StatusBadGateway, "analysis failed, try again", nil)
	default:
		h.logger.Error().Err(err).Msg("analysis failed")
		return utils.Fail(c, fiber.StatusInternalServerError, "analysis failed, try again", nil)
	}
}
