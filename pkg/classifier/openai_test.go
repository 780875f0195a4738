package classifier

import (
	"io"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAISourceRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAISource(OpenAIConfig{Logger: zerolog.New(io.Discard)})
	require.ErrorIs(t, err, ErrModelUnavailable)
}

func TestParseZeroShotResponseRecoversProbability(t *testing.T) {
	logits, err := parseZeroShotResponse(`{"real_probability": 0.82}`)
	require.NoError(t, err)

	// softmax(log p, log 1-p) must give back p.
	expReal := math.Exp(logits.Real)
	expFake := math.Exp(logits.Fake)
	require.InDelta(t, 0.82, expReal/(expReal+expFake), 1e-9)
}

func TestParseZeroShotResponseClampsExtremes(t *testing.T) {
	for _, p := range []string{`{"real_probability": 0}`, `{"real_probability": 1}`} {
		logits, err := parseZeroShotResponse(p)
		require.NoError(t, err)
		require.False(t, math.IsInf(logits.Real, 0))
		require.False(t, math.IsInf(logits.Fake, 0))
	}
}

func TestParseZeroShotResponseRejectsProse(t *testing.T) {
	_, err := parseZeroShotResponse("the text looks credible to me")
	require.ErrorIs(t, err, ErrInference)
}
