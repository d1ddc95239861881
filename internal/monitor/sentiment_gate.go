package monitor

import (
	"context"

	"github.com/rs/zerolog"

	"stock-sentinel/internal/models"
	"stock-sentinel/internal/sentiment"
)

// DefaultSentimentThreshold is the contradiction cutoff: a bullish alert is
// suppressed when sentiment is at or below its negation, a bearish alert
// when sentiment is at or above it.
const DefaultSentimentThreshold = 0.6

// SentimentGate suppresses directional alerts that the market mood flatly
// contradicts. Non-directional kinds pass through unscored. The gate fails
// open: a scorer outage never blocks an alert.
type SentimentGate struct {
	scorer    sentiment.Scorer
	threshold float64
	logger    zerolog.Logger
}

// NewSentimentGate creates a gate. A nil scorer disables gating.
func NewSentimentGate(scorer sentiment.Scorer, threshold float64, logger zerolog.Logger) *SentimentGate {
	if threshold <= 0 {
		threshold = DefaultSentimentThreshold
	}
	return &SentimentGate{
		scorer:    scorer,
		threshold: threshold,
		logger:    logger.With().Str("component", "sentiment_gate").Logger(),
	}
}

// Check returns whether the event may proceed to dispatch and, when the
// subject was scored, the score for the event record.
func (g *SentimentGate) Check(ctx context.Context, event models.AlertEvent) (bool, *float64) {
	if !event.Kind.Directional() || g.scorer == nil {
		return true, nil
	}

	s, err := g.scorer.Score(ctx, event.Subject)
	if err != nil {
		g.logger.Debug().
			Err(err).
			Str("subject", event.Subject.String()).
			Msg("Sentiment unavailable, passing alert through")
		return true, nil
	}

	score := s.Score
	if event.Kind.Bullish() && score <= -g.threshold {
		return false, &score
	}
	if event.Kind.Bearish() && score >= g.threshold {
		return false, &score
	}
	return true, &score
}
