package sentiment

import (
	"context"
	"testing"

	"stock-sentinel/internal/errors"
	"stock-sentinel/internal/models"
)

type stubNews struct {
	headlines []string
	err       error
}

func (s *stubNews) RecentHeadlines(ctx context.Context, subject models.Subject) ([]string, error) {
	return s.headlines, s.err
}

func TestLexiconScoresBullishHeadlines(t *testing.T) {
	news := &stubNews{headlines: []string{
		"Shares surge after earnings beat",
		"Analysts upgrade on strong growth",
	}}
	scorer := NewLexiconScorer(news)

	s, err := scorer.Score(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if s.Score <= 0 {
		t.Fatalf("score = %v, want positive", s.Score)
	}
	if s.Label != "bullish" {
		t.Fatalf("label = %s, want bullish", s.Label)
	}
}

func TestLexiconScoresBearishHeadlines(t *testing.T) {
	news := &stubNews{headlines: []string{
		"Stock plunges after earnings miss",
		"Analysts downgrade citing weak guidance",
		"Shares fall on lawsuit news",
	}}
	scorer := NewLexiconScorer(news)

	s, err := scorer.Score(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if s.Score >= 0 {
		t.Fatalf("score = %v, want negative", s.Score)
	}
	if s.Label != "bearish" {
		t.Fatalf("label = %s, want bearish", s.Label)
	}
}

func TestLexiconNeutralWithoutKeywordHits(t *testing.T) {
	news := &stubNews{headlines: []string{"Company schedules annual meeting"}}
	scorer := NewLexiconScorer(news)

	s, err := scorer.Score(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if s.Score != 0 || s.Label != "neutral" {
		t.Fatalf("got %+v, want neutral zero score", s)
	}
}

func TestLexiconUnavailableWithoutHeadlines(t *testing.T) {
	scorer := NewLexiconScorer(&stubNews{})
	if _, err := scorer.Score(context.Background(), "AAPL"); !errors.Is(err, errors.ErrSentimentUnavailable) {
		t.Fatalf("err = %v, want ErrSentimentUnavailable", err)
	}

	scorer = NewLexiconScorer(&stubNews{err: errors.ErrTimeout})
	if _, err := scorer.Score(context.Background(), "AAPL"); !errors.Is(err, errors.ErrSentimentUnavailable) {
		t.Fatalf("err = %v, want ErrSentimentUnavailable", err)
	}
}

func TestLexiconScoreStaysInRange(t *testing.T) {
	news := &stubNews{headlines: []string{
		"surge rally gain beat upgrade record strong growth soar jump",
	}}
	s, err := NewLexiconScorer(news).Score(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if s.Score < -1 || s.Score > 1 {
		t.Fatalf("score %v out of [-1, 1]", s.Score)
	}
	if s.Confidence < 0 || s.Confidence >= 1 {
		t.Fatalf("confidence %v out of [0, 1)", s.Confidence)
	}
}

type scriptedScorer struct {
	result Sentiment
	err    error
}

func (s *scriptedScorer) Score(ctx context.Context, subject models.Subject) (Sentiment, error) {
	return s.result, s.err
}

func TestFallbackScorerPrefersPrimary(t *testing.T) {
	primary := &scriptedScorer{result: Sentiment{Score: 0.5, Label: "bullish"}}
	secondary := &scriptedScorer{result: Sentiment{Score: -0.5, Label: "bearish"}}

	s, err := NewFallbackScorer(primary, secondary).Score(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if s.Score != 0.5 {
		t.Fatalf("score = %v, want primary's 0.5", s.Score)
	}
}

func TestFallbackScorerFallsBack(t *testing.T) {
	primary := &scriptedScorer{err: errors.ErrSentimentUnavailable}
	secondary := &scriptedScorer{result: Sentiment{Score: -0.5, Label: "bearish"}}

	s, err := NewFallbackScorer(primary, secondary).Score(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if s.Score != -0.5 {
		t.Fatalf("score = %v, want secondary's -0.5", s.Score)
	}

	// No secondary: the primary's error surfaces.
	if _, err := NewFallbackScorer(primary, nil).Score(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error without a secondary")
	}
}

func TestLabelForScore(t *testing.T) {
	tests := []struct {
		score float64
		label string
	}{
		{0.8, "bullish"},
		{0.2, "bullish"},
		{0.19, "neutral"},
		{0, "neutral"},
		{-0.19, "neutral"},
		{-0.2, "bearish"},
		{-0.9, "bearish"},
	}
	for _, tt := range tests {
		if got := LabelForScore(tt.score); got != tt.label {
			t.Errorf("LabelForScore(%v) = %s, want %s", tt.score, got, tt.label)
		}
	}
}
