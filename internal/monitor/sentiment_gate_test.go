package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stock-sentinel/internal/errors"
	"stock-sentinel/internal/models"
	"stock-sentinel/internal/sentiment"
)

func gateEvent(kind models.RuleKind) models.AlertEvent {
	return models.AlertEvent{
		OwnerID:       "user1",
		Subject:       "AAPL",
		Kind:          kind,
		MeasuredPrice: 100,
		Confidence:    0.7,
		Timestamp:     time.Now(),
	}
}

func TestGateSuppressesContradictedBullishAlert(t *testing.T) {
	scorer := &fixedScorer{result: sentiment.Sentiment{Subject: "AAPL", Label: "bearish", Score: -0.8}}
	gate := NewSentimentGate(scorer, 0.6, zerolog.Nop())

	for _, kind := range []models.RuleKind{models.KindBreakout, models.KindGapUp} {
		allowed, score := gate.Check(context.Background(), gateEvent(kind))
		if allowed {
			t.Errorf("%s with score -0.8 should be suppressed", kind)
		}
		if score == nil || *score != -0.8 {
			t.Errorf("%s suppressed event should carry the score", kind)
		}
	}
}

func TestGateSuppressesContradictedBearishAlert(t *testing.T) {
	scorer := &fixedScorer{result: sentiment.Sentiment{Subject: "AAPL", Label: "bullish", Score: 0.8}}
	gate := NewSentimentGate(scorer, 0.6, zerolog.Nop())

	for _, kind := range []models.RuleKind{models.KindDrop, models.KindGapDown} {
		if allowed, _ := gate.Check(context.Background(), gateEvent(kind)); allowed {
			t.Errorf("%s with score +0.8 should be suppressed", kind)
		}
	}
}

func TestGateAllowsAlignedSentiment(t *testing.T) {
	scorer := &fixedScorer{result: sentiment.Sentiment{Subject: "AAPL", Label: "bullish", Score: 0.8}}
	gate := NewSentimentGate(scorer, 0.6, zerolog.Nop())

	allowed, score := gate.Check(context.Background(), gateEvent(models.KindBreakout))
	if !allowed {
		t.Fatal("bullish alert with bullish sentiment should pass")
	}
	if score == nil || *score != 0.8 {
		t.Fatal("allowed event should still carry the score")
	}
}

func TestGateThresholdBoundary(t *testing.T) {
	// Exactly at the negated threshold still suppresses.
	scorer := &fixedScorer{result: sentiment.Sentiment{Score: -0.6}}
	gate := NewSentimentGate(scorer, 0.6, zerolog.Nop())

	if allowed, _ := gate.Check(context.Background(), gateEvent(models.KindBreakout)); allowed {
		t.Fatal("score exactly at -threshold should suppress a bullish alert")
	}

	scorer.result.Score = -0.59
	if allowed, _ := gate.Check(context.Background(), gateEvent(models.KindBreakout)); !allowed {
		t.Fatal("score just above -threshold should pass")
	}
}

func TestGateFailsOpenWhenScorerUnavailable(t *testing.T) {
	scorer := &fixedScorer{err: errors.ErrSentimentUnavailable}
	gate := NewSentimentGate(scorer, 0.6, zerolog.Nop())

	allowed, score := gate.Check(context.Background(), gateEvent(models.KindBreakout))
	if !allowed {
		t.Fatal("scorer outage must not block an alert")
	}
	if score != nil {
		t.Fatal("unscored event must not carry a score")
	}
}

func TestGateSkipsNonDirectionalKinds(t *testing.T) {
	scorer := &fixedScorer{result: sentiment.Sentiment{Score: -1.0}}
	gate := NewSentimentGate(scorer, 0.6, zerolog.Nop())

	for _, kind := range []models.RuleKind{
		models.KindPriceAbove, models.KindPriceBelow,
		models.KindPercentChange, models.KindVolumeSpike,
	} {
		allowed, score := gate.Check(context.Background(), gateEvent(kind))
		if !allowed {
			t.Errorf("non-directional kind %s must never be gated", kind)
		}
		if score != nil {
			t.Errorf("non-directional kind %s must not be scored", kind)
		}
	}
	if scorer.callCount() != 0 {
		t.Fatalf("scorer called %d times for non-directional kinds", scorer.callCount())
	}
}

func TestGateNilScorerDisablesGating(t *testing.T) {
	gate := NewSentimentGate(nil, 0.6, zerolog.Nop())

	if allowed, _ := gate.Check(context.Background(), gateEvent(models.KindBreakout)); !allowed {
		t.Fatal("nil scorer must pass everything through")
	}
}
