package classifier

import (
	"context"
	"errors"
)

// Label identifies one of the two credibility classes.
type Label string

const (
	LabelReal Label = "Real"
	LabelFake Label = "Fake"
)

// Logits carries the raw, unnormalized per-class scores produced by one
// forward pass. Probability normalization is the caller's concern.
type Logits struct {
	Real float64
	Fake float64
}

// Classifier is an immutable handle over a loaded tokenizer + model pairing.
// Implementations must be safe for concurrent use and must run in
// deterministic evaluation mode: identical text yields identical logits.
type Classifier interface {
	// Classify tokenizes text and runs a single forward pass.
	Classify(ctx context.Context, text string) (Logits, error)

	// ModelID reports the identifier of the underlying model artifact.
	ModelID() string

	// MaxTokens reports the longest token sequence the model accepts.
	MaxTokens() int
}

// ModelSource resolves a model identifier into a ready-to-use Classifier.
// Loading may perform network or disk I/O; implementations should honour
// ctx cancellation.
type ModelSource interface {
	Resolve(ctx context.Context, modelID string) (Classifier, error)
}

var (
	// ErrModelUnavailable indicates the configured model identifier could not
	// be resolved or the serving endpoint is unreachable.
	ErrModelUnavailable = errors.New("classifier model unavailable")

	// ErrModelLoad indicates the resolved artifact is corrupt or does not
	// expose the expected two-class output head.
	ErrModelLoad = errors.New("classifier model failed to load")

	// ErrInference indicates the forward pass itself failed at runtime.
	ErrInference = errors.New("classifier inference failed")
)
