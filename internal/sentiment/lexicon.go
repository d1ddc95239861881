package sentiment

import (
	"context"
	"strings"

	"stock-sentinel/internal/errors"
	"stock-sentinel/internal/models"
)

var bullishWords = []string{
	"surge", "rally", "gain", "beat", "upgrade", "record", "strong",
	"growth", "soar", "jump", "outperform", "bullish", "buy", "profit",
}

var bearishWords = []string{
	"drop", "fall", "miss", "downgrade", "weak", "loss", "plunge",
	"decline", "slump", "cut", "underperform", "bearish", "sell", "lawsuit",
}

// LexiconScorer scores sentiment by counting keyword hits in headlines.
// It is the fallback when the LLM scorer is unavailable.
type LexiconScorer struct {
	news NewsSource
}

// NewLexiconScorer creates a keyword-based scorer.
func NewLexiconScorer(news NewsSource) *LexiconScorer {
	return &LexiconScorer{news: news}
}

// Score counts bullish and bearish keyword hits across recent headlines.
func (s *LexiconScorer) Score(ctx context.Context, subject models.Subject) (Sentiment, error) {
	headlines, err := s.news.RecentHeadlines(ctx, subject)
	if err != nil {
		return Sentiment{}, errors.Wrap(errors.ErrSentimentUnavailable, err.Error())
	}
	if len(headlines) == 0 {
		return Sentiment{}, errors.Wrapf(errors.ErrSentimentUnavailable, "no recent headlines for %s", subject)
	}

	var bull, bear int
	for _, h := range headlines {
		lower := strings.ToLower(h)
		for _, w := range bullishWords {
			if strings.Contains(lower, w) {
				bull++
			}
		}
		for _, w := range bearishWords {
			if strings.Contains(lower, w) {
				bear++
			}
		}
	}

	total := bull + bear
	if total == 0 {
		return Sentiment{Subject: subject, Label: "neutral"}, nil
	}

	score := clampScore(float64(bull-bear) / float64(total))

	// Keyword counts are a coarse signal; confidence grows with hit count
	// but never reaches LLM-level certainty.
	confidence := float64(total) / float64(total+5)

	return Sentiment{
		Subject:    subject,
		Label:      LabelForScore(score),
		Score:      score,
		Confidence: confidence,
	}, nil
}

// FallbackScorer tries a primary scorer and falls back to a secondary when
// the primary is unavailable.
type FallbackScorer struct {
	primary   Scorer
	secondary Scorer
}

// NewFallbackScorer chains two scorers.
func NewFallbackScorer(primary, secondary Scorer) *FallbackScorer {
	return &FallbackScorer{primary: primary, secondary: secondary}
}

// Score tries the primary scorer first.
func (s *FallbackScorer) Score(ctx context.Context, subject models.Subject) (Sentiment, error) {
	out, err := s.primary.Score(ctx, subject)
	if err == nil {
		return out, nil
	}
	if s.secondary == nil {
		return Sentiment{}, err
	}
	return s.secondary.Score(ctx, subject)
}
