package classifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var loaderLoads = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "newsguard",
	Subsystem: "classifier",
	Name:      "model_loads_total",
	Help:      "Number of model load attempts by outcome",
}, []string{"model", "outcome"})

// LoaderConfig defines configuration options for the model loader.
type LoaderConfig struct {
	ModelID     string
	LoadTimeout time.Duration
	Logger      zerolog.Logger
}

// loadAttempt carries the outcome of one in-flight load. instance and err are
// written before done is closed and only read after it is closed.
type loadAttempt struct {
	done     chan struct{}
	instance Classifier
	err      error
}

// Loader owns the process-wide Classifier instance. The first Get performs a
// one-time load through the injected ModelSource; later calls return the
// cached instance. Callers that arrive while a load is in flight wait for it
// and share its outcome, so simultaneous first callers trigger exactly one
// load and observe the same instance or the same failure. A failed attempt is
// discarded once its waiters are served, so a subsequent Get retries.
type Loader struct {
	mu         sync.Mutex
	source     ModelSource
	cfg        LoaderConfig
	classifier Classifier
	inflight   *loadAttempt
	logger     zerolog.Logger
}

// NewLoader constructs a loader around the given source.
func NewLoader(source ModelSource, cfg LoaderConfig) *Loader {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 60 * time.Second
	}

	return &Loader{
		source: source,
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "classifier_loader").Str("model", cfg.ModelID).Logger(),
	}
}

// Get returns the cached Classifier, loading it on first use.
func (l *Loader) Get(ctx context.Context) (Classifier, error) {
	l.mu.Lock()

	if l.classifier != nil {
		defer l.mu.Unlock()
		return l.classifier, nil
	}

	if attempt := l.inflight; attempt != nil {
		l.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.instance, attempt.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	attempt := &loadAttempt{done: make(chan struct{})}
	l.inflight = attempt
	l.mu.Unlock()

	instance, err := l.load(ctx)

	l.mu.Lock()
	if err == nil {
		l.classifier = instance
	}
	l.inflight = nil
	l.mu.Unlock()

	attempt.instance = instance
	attempt.err = err
	close(attempt.done)

	return instance, err
}

func (l *Loader) load(ctx context.Context) (Classifier, error) {
	loadCtx, cancel := context.WithTimeout(ctx, l.cfg.LoadTimeout)
	defer cancel()

	start := time.Now()
	instance, err := l.source.Resolve(loadCtx, l.cfg.ModelID)
	if err != nil {
		loaderLoads.WithLabelValues(l.cfg.ModelID, "failure").Inc()
		l.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("model load failed")

		if loadCtx.Err() != nil {
			return nil, fmt.Errorf("%w: load timed out after %s", ErrModelUnavailable, l.cfg.LoadTimeout)
		}
		return nil, err
	}

	loaderLoads.WithLabelValues(l.cfg.ModelID, "success").Inc()
	l.logger.Info().Dur("elapsed", time.Since(start)).Msg("model loaded")

	return instance, nil
}

// Loaded reports whether a classifier is resident without triggering a load.
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.classifier != nil
}
