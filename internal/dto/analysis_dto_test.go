package dto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newsguardhq/newsguard/pkg/classifier"
)

func TestNewVerdictResponseRealIsGreen(t *testing.T) {
	verdict := NewVerdictResponse(classifier.LabelReal, 0.873, 0.127, false, "acme/fake-news-base")

	require.Equal(t, "Real", verdict.Label)
	require.Equal(t, ColorGreen, verdict.ColorHint)
	require.Equal(t, 87, verdict.ConfidencePercent)
	require.InDelta(t, 87.3, verdict.Scores.RealPercent, 1e-9)
	require.InDelta(t, 12.7, verdict.Scores.FakePercent, 1e-9)
	require.Equal(t, "acme/fake-news-base", verdict.Model)
}

func TestNewVerdictResponseFakeIsRed(t *testing.T) {
	verdict := NewVerdictResponse(classifier.LabelFake, 0.08, 0.92, true, "acme/fake-news-base")

	require.Equal(t, "Fake", verdict.Label)
	require.Equal(t, ColorRed, verdict.ColorHint)
	require.Equal(t, 92, verdict.ConfidencePercent)
	require.True(t, verdict.Truncated)
}

func TestNewVerdictResponseRoundsToNearestInteger(t *testing.T) {
	verdict := NewVerdictResponse(classifier.LabelReal, 0.505, 0.495, false, "m")
	require.Equal(t, 51, verdict.ConfidencePercent)

	verdict = NewVerdictResponse(classifier.LabelReal, 0.5049, 0.4951, false, "m")
	require.Equal(t, 50, verdict.ConfidencePercent)
}
