// Package sentiment scores market mood for a subject on a [-1, +1] scale.
// Scores feed the directional alert gate; a failed score never blocks an
// alert (the gate fails open).
package sentiment

import (
	"context"

	"stock-sentinel/internal/models"
)

// Sentiment is one scored read of a subject's mood.
type Sentiment struct {
	Subject models.Subject
	// Label is "bullish", "bearish" or "neutral".
	Label string
	// Score is in [-1, +1]; negative is bearish.
	Score float64
	// Confidence is in [0, 1].
	Confidence float64
}

// Scorer produces a sentiment read for a subject.
type Scorer interface {
	Score(ctx context.Context, subject models.Subject) (Sentiment, error)
}

// NewsSource supplies recent headlines for scoring.
type NewsSource interface {
	RecentHeadlines(ctx context.Context, subject models.Subject) ([]string, error)
}

// LabelForScore maps a numeric score to its label.
func LabelForScore(score float64) string {
	switch {
	case score >= 0.2:
		return "bullish"
	case score <= -0.2:
		return "bearish"
	default:
		return "neutral"
	}
}

func clampScore(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
