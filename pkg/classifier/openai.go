package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig defines configuration options for the zero-shot OpenAI backend.
type OpenAIConfig struct {
	APIKey    string
	MaxTokens int
	Logger    zerolog.Logger
}

// OpenAISource implements ModelSource against the OpenAI chat completion API.
// The "model identifier" is the chat model name; classification is zero-shot.
type OpenAISource struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAISource builds a source using the provided configuration.
func NewOpenAISource(cfg OpenAIConfig) (*OpenAISource, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key is required", ErrModelUnavailable)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultHFMaxTokens
	}

	return &OpenAISource{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/newsguardhq/newsguard/pkg/classifier/openai"),
		logger: cfg.Logger.With().Str("component", "openai_source").Logger(),
	}, nil
}

// Resolve returns a zero-shot classifier bound to the given chat model.
func (s *OpenAISource) Resolve(ctx context.Context, modelID string) (Classifier, error) {
	if strings.TrimSpace(modelID) == "" {
		modelID = openai.GPT4oMini
	}

	return &openaiModel{
		source:  s,
		modelID: modelID,
		logger:  s.logger.With().Str("model", modelID).Logger(),
	}, nil
}

type openaiModel struct {
	source  *OpenAISource
	modelID string
	logger  zerolog.Logger
}

func (m *openaiModel) ModelID() string { return m.modelID }

func (m *openaiModel) MaxTokens() int { return m.source.cfg.MaxTokens }

// Classify asks the chat model for the probability the text is genuine news
// and converts it into a logit pair, so downstream softmax recovers the same
// probability. Temperature is pinned to zero for deterministic output.
func (m *openaiModel) Classify(parent context.Context, text string) (Logits, error) {
	ctx, span := m.source.tracer.Start(parent, "openai.classify", trace.WithAttributes(
		attribute.String("model", m.modelID),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       m.modelID,
		MaxTokens:   64,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: zeroShotSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := m.source.client.CreateChatCompletion(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Logits{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("%w: no choices returned", ErrInference)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Logits{}, err
	}

	return parseZeroShotResponse(resp.Choices[0].Message.Content)
}

func zeroShotSystemPrompt() string {
	return "You are a news credibility classifier. Given a news headline or excerpt, respond with a JSON object " +
		"containing a single field real_probability: the probability between 0 and 1 that the text is genuine news " +
		"rather than misinformation. No other fields, no prose."
}

func parseZeroShotResponse(content string) (Logits, error) {
	var payload struct {
		RealProbability float64 `json:"real_probability"`
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &payload); err != nil {
		return Logits{}, fmt.Errorf("%w: parse classification json: %v", ErrInference, err)
	}

	p := payload.RealProbability
	if p < 1e-6 {
		p = 1e-6
	}
	if p > 1-1e-6 {
		p = 1 - 1e-6
	}

	// log-probabilities as logits: softmax(log p, log 1-p) == (p, 1-p).
	return Logits{Real: math.Log(p), Fake: math.Log(1 - p)}, nil
}
