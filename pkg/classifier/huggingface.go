package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultHFEndpoint  = "https://api-inference.huggingface.co"
	defaultHFMaxTokens = 512
)

var (
	hfDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "newsguard",
		Subsystem: "classifier",
		Name:      "inference_duration_seconds",
		Help:      "Duration of classifier inference requests",
	}, []string{"model"})

	hfFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsguard",
		Subsystem: "classifier",
		Name:      "inference_failures_total",
		Help:      "Number of classifier inference failures",
	}, []string{"model"})
)

// HuggingFaceConfig defines configuration options for the hosted inference
// API backend.
type HuggingFaceConfig struct {
	Endpoint      string
	APIKey        string
	MaxTokens     int
	RetryAttempts uint
	HTTPClient    *http.Client
	Logger        zerolog.Logger
}

// HuggingFaceSource resolves model identifiers against the HuggingFace
// hosted inference API.
type HuggingFaceSource struct {
	cfg    HuggingFaceConfig
	client *http.Client
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewHuggingFaceSource builds a source using the provided configuration.
func NewHuggingFaceSource(cfg HuggingFaceConfig) *HuggingFaceSource {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultHFEndpoint
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultHFMaxTokens
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &HuggingFaceSource{
		cfg:    cfg,
		client: client,
		tracer: otel.Tracer("github.com/newsguardhq/newsguard/pkg/classifier/huggingface"),
		logger: cfg.Logger.With().Str("component", "huggingface_source").Logger(),
	}
}

// Resolve probes the model endpoint with a short input. The probe forces the
// hub to load the weights and proves the artifact exposes a two-class
// Real/Fake head before the classifier is handed out.
func (s *HuggingFaceSource) Resolve(ctx context.Context, modelID string) (Classifier, error) {
	if strings.TrimSpace(modelID) == "" {
		return nil, fmt.Errorf("%w: empty model identifier", ErrModelUnavailable)
	}

	model := &hfModel{
		source:  s,
		modelID: modelID,
		logger:  s.logger.With().Str("model", modelID).Logger(),
	}

	if _, err := model.forward(ctx, "model warm-up probe"); err != nil {
		return nil, err
	}

	return model, nil
}

type hfModel struct {
	source  *HuggingFaceSource
	modelID string
	logger  zerolog.Logger
}

func (m *hfModel) ModelID() string { return m.modelID }

func (m *hfModel) MaxTokens() int { return m.source.cfg.MaxTokens }

// Classify runs one forward pass against the hosted model.
func (m *hfModel) Classify(ctx context.Context, text string) (Logits, error) {
	logits, err := m.forward(ctx, text)
	if err != nil {
		return Logits{}, err
	}
	return logits, nil
}

type hfRequest struct {
	Inputs     string                 `json:"inputs"`
	Parameters map[string]interface{} `json:"parameters"`
	Options    map[string]interface{} `json:"options"`
}

type hfScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (m *hfModel) forward(parent context.Context, text string) (Logits, error) {
	ctx, span := m.source.tracer.Start(parent, "huggingface.forward", trace.WithAttributes(
		attribute.String("model", m.modelID),
	))
	defer span.End()

	payload, err := json.Marshal(hfRequest{
		Inputs: text,
		// function_to_apply none keeps the scores as raw logits so the
		// probability normalization stays on our side.
		Parameters: map[string]interface{}{
			"function_to_apply": "none",
			"truncation":        true,
		},
		Options: map[string]interface{}{
			"wait_for_model": true,
		},
	})
	if err != nil {
		return Logits{}, fmt.Errorf("encode inference request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", strings.TrimRight(m.source.cfg.Endpoint, "/"), m.modelID)

	start := time.Now()
	var logits Logits
	err = retry.Do(
		func() error {
			var callErr error
			logits, callErr = m.call(ctx, url, payload)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(m.source.cfg.RetryAttempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
	)
	hfDuration.WithLabelValues(m.modelID).Observe(time.Since(start).Seconds())

	if err != nil {
		hfFailures.WithLabelValues(m.modelID).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Logits{}, err
	}

	return logits, nil
}

// retryableError marks transient endpoint conditions such as the hub still
// loading the model weights.
type retryableError struct{ err error }

func (r retryableError) Error() string { return r.err.Error() }
func (r retryableError) Unwrap() error { return r.err }

func isRetryable(err error) bool {
	_, ok := err.(retryableError)
	return ok
}

func (m *hfModel) call(ctx context.Context, url string, payload []byte) (Logits, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Logits{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.source.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.source.cfg.APIKey)
	}

	resp, err := m.source.client.Do(req)
	if err != nil {
		return Logits{}, retryableError{fmt.Errorf("%w: %v", ErrModelUnavailable, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Logits{}, fmt.Errorf("%w: read response: %v", ErrInference, err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return Logits{}, retryableError{fmt.Errorf("%w: model is loading", ErrModelUnavailable)}
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return Logits{}, fmt.Errorf("%w: endpoint returned %d", ErrModelUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Logits{}, fmt.Errorf("%w: endpoint returned %d: %s", ErrInference, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return parseScores(body)
}

// parseScores accepts both response shapes the inference API produces:
// a nested [[{label,score}...]] batch and a flat [{label,score}...] list.
func parseScores(body []byte) (Logits, error) {
	var nested [][]hfScore
	scores := []hfScore{}

	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		scores = nested[0]
	} else if err := json.Unmarshal(body, &scores); err != nil {
		return Logits{}, fmt.Errorf("%w: unexpected response shape: %v", ErrModelLoad, err)
	}

	var logits Logits
	var haveReal, haveFake bool
	for _, s := range scores {
		label := strings.ToUpper(s.Label)
		switch {
		case strings.Contains(label, "LABEL_1"), strings.Contains(label, "REAL"), strings.Contains(label, "TRUE"):
			logits.Real = s.Score
			haveReal = true
		case strings.Contains(label, "LABEL_0"), strings.Contains(label, "FAKE"), strings.Contains(label, "FALSE"):
			logits.Fake = s.Score
			haveFake = true
		}
	}

	if !haveReal || !haveFake {
		return Logits{}, fmt.Errorf("%w: model does not expose a two-class Real/Fake head", ErrModelLoad)
	}

	return logits, nil
}
