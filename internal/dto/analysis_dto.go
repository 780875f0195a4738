package dto

import (
	"math"

	"github.com/newsguardhq/newsguard/pkg/classifier"
)

// Color hints consumed by the rendering collaborator.
const (
	ColorGreen = "green"
	ColorRed   = "red"
)

// AnalyzeRequest represents the payload submitted for credibility scoring.
type AnalyzeRequest struct {
	Text string `json:"text" validate:"required"`
}

// ScoreBreakdown carries the per-class probability mass as percentages with
// one decimal of precision, matching what the verdict card displays.
type ScoreBreakdown struct {
	RealPercent float64 `json:"real_percent"`
	FakePercent float64 `json:"fake_percent"`
}

// VerdictResponse is the display-ready result of one scoring call.
type VerdictResponse struct {
	Label             string         `json:"label"`
	ConfidencePercent int            `json:"confidence_percent"`
	ColorHint         string         `json:"color_hint"`
	Scores            ScoreBreakdown `json:"scores"`
	Truncated         bool           `json:"truncated"`
	Model             string         `json:"model"`
}

// ModelStatusResponse reports classifier readiness.
type ModelStatusResponse struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Loaded   bool   `json:"loaded"`
}

// NewVerdictResponse formats a scored probability pair into the structure the
// UI renders. Confidence is the winning probability rounded to the nearest
// integer percentage; the breakdown keeps one decimal per class.
func NewVerdictResponse(label classifier.Label, realProb, fakeProb float64, truncated bool, modelID string) VerdictResponse {
	winning := realProb
	color := ColorGreen
	if label == classifier.LabelFake {
		winning = fakeProb
		color = ColorRed
	}

	return VerdictResponse{
		Label:             string(label),
		ConfidencePercent: int(math.Round(winning * 100)),
		ColorHint:         color,
		Scores: ScoreBreakdown{
			RealPercent: roundPercent(realProb),
			FakePercent: roundPercent(fakeProb),
		},
		Truncated: truncated,
		Model:     modelID,
	}
}

func roundPercent(p float64) float64 {
	return math.Round(p*1000) / 10
}
