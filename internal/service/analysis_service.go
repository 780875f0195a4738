package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/newsguardhq/newsguard/internal/config"
	"github.com/newsguardhq/newsguard/internal/dto"
	"github.com/newsguardhq/newsguard/internal/observability"
	"github.com/newsguardhq/newsguard/pkg/classifier"
)

var (
	// ErrEmptyInput indicates the submitted text is empty after trimming.
	ErrEmptyInput = errors.New("input text is empty")
	// ErrInputTooLong indicates the text exceeds the model's maximum sequence
	// length and the reject policy is active.
	ErrInputTooLong = errors.New("input text exceeds model capacity")
)

// AnalysisService exposes the credibility scoring workflow.
type AnalysisService interface {
	Analyze(ctx context.Context, req dto.AnalyzeRequest) (dto.VerdictResponse, error)
	ModelStatus(ctx context.Context, warm bool) (dto.ModelStatusResponse, error)
}

type analysisService struct {
	loader    *classifier.Loader
	cache     *redis.Client
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	cfg       config.Config
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAnalysisService constructs the scoring service. cache may be nil, in
// which case verdicts are recomputed on every call.
func NewAnalysisService(loader *classifier.Loader, cache *redis.Client, validate *validator.Validate, cfg config.Config, logger zerolog.Logger) AnalysisService {
	return &analysisService{
		loader:    loader,
		cache:     cache,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		cfg:       cfg,
		logger:    logger.With().Str("component", "analysis_service").Logger(),
		tracer:    otel.Tracer("github.com/newsguardhq/newsguard/internal/service/analysis"),
	}
}

func (s *analysisService) Analyze(ctx context.Context, req dto.AnalyzeRequest) (dto.VerdictResponse, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.analyze")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.VerdictResponse{}, ErrEmptyInput
	}

	text := html.UnescapeString(s.sanitizer.Sanitize(req.Text))
	text = strings.TrimSpace(text)
	if text == "" {
		span.SetStatus(codes.Error, "empty input")
		return dto.VerdictResponse{}, ErrEmptyInput
	}

	model, err := s.loader.Get(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model unavailable")
		return dto.VerdictResponse{}, err
	}

	text, truncated, err := s.applyLengthPolicy(text, model.MaxTokens())
	if err != nil {
		span.SetStatus(codes.Error, "input too long")
		return dto.VerdictResponse{}, err
	}
	span.SetAttributes(
		attribute.Bool("analysis.truncated", truncated),
		attribute.String("model", model.ModelID()),
	)

	cacheKey := verdictCacheKey(model.ModelID(), text)
	if cached, ok := s.cachedVerdict(ctx, cacheKey); ok {
		observability.VerdictCache().WithLabelValues("hit").Inc()
		return cached, nil
	}
	observability.VerdictCache().WithLabelValues("miss").Inc()

	logits, err := model.Classify(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference failed")
		return dto.VerdictResponse{}, err
	}

	realProb, fakeProb := softmax(logits)

	label := classifier.LabelReal
	if fakeProb > realProb {
		label = classifier.LabelFake
	}

	verdict := dto.NewVerdictResponse(label, realProb, fakeProb, truncated, model.ModelID())
	observability.Verdicts().WithLabelValues(strings.ToLower(verdict.Label)).Inc()

	s.storeVerdict(ctx, cacheKey, verdict)

	s.logger.Info().
		Str("label", verdict.Label).
		Int("confidence", verdict.ConfidencePercent).
		Bool("truncated", truncated).
		Msg("text scored")

	return verdict, nil
}

// ModelStatus reports classifier readiness. With warm set, a load is
// triggered when no classifier is resident yet.
func (s *analysisService) ModelStatus(ctx context.Context, warm bool) (dto.ModelStatusResponse, error) {
	status := dto.ModelStatusResponse{
		Provider: s.cfg.ModelProvider,
		Model:    s.cfg.ModelID,
		Loaded:   s.loader.Loaded(),
	}

	if warm && !status.Loaded {
		if _, err := s.loader.Get(ctx); err != nil {
			return status, err
		}
		status.Loaded = true
	}

	return status, nil
}

// applyLengthPolicy enforces the configured long-input policy against the
// model's maximum sequence length. Token counts are approximated by
// whitespace-delimited words; the serving side truncates on exact token
// boundaries as a backstop.
func (s *analysisService) applyLengthPolicy(text string, maxTokens int) (string, bool, error) {
	words := strings.Fields(text)
	if maxTokens <= 0 || len(words) <= maxTokens {
		return text, false, nil
	}

	if s.cfg.LongInputPolicy == config.LongInputReject {
		return "", false, fmt.Errorf("%w: %d tokens over a limit of %d", ErrInputTooLong, len(words), maxTokens)
	}

	return strings.Join(words[:maxTokens], " "), true, nil
}

// softmax converts the two raw logits into a probability pair, subtracting
// the max logit before exponentiation for numeric stability.
func softmax(l classifier.Logits) (realProb, fakeProb float64) {
	max := math.Max(l.Real, l.Fake)
	expReal := math.Exp(l.Real - max)
	expFake := math.Exp(l.Fake - max)
	sum := expReal + expFake

	return expReal / sum, expFake / sum
}

func verdictCacheKey(modelID, text string) string {
	sum := sha256.Sum256([]byte(modelID + "\x00" + text))
	return fmt.Sprintf("verdict:%s", hex.EncodeToString(sum[:]))
}

func (s *analysisService) cachedVerdict(ctx context.Context, key string) (dto.VerdictResponse, bool) {
	if s.cache == nil {
		return dto.VerdictResponse{}, false
	}

	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("verdict cache read failed")
		}
		return dto.VerdictResponse{}, false
	}

	var verdict dto.VerdictResponse
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		s.logger.Warn().Err(err).Msg("verdict cache entry corrupt")
		return dto.VerdictResponse{}, false
	}

	return verdict, true
}

func (s *analysisService) storeVerdict(ctx context.Context, key string, verdict dto.VerdictResponse) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(verdict)
	if err != nil {
		return
	}

	ttl := s.cfg.VerdictCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	if err := s.cache.Set(ctx, key, payload, ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("verdict cache write failed")
	}
}
