package notify

import (
	"strings"
	"testing"
	"time"

	"stock-sentinel/internal/models"
)

func TestKindMappingIsTotal(t *testing.T) {
	for _, kind := range models.Kinds() {
		if KindEmoji(kind) == "⚠️" {
			t.Errorf("kind %s has no emoji mapping", kind)
		}
		if KindLabel(kind) == string(kind) {
			t.Errorf("kind %s has no label mapping", kind)
		}
	}
}

func TestKindColorFollowsDirection(t *testing.T) {
	bullish := []models.RuleKind{models.KindPriceAbove, models.KindBreakout, models.KindGapUp}
	for _, kind := range bullish {
		if KindColor(kind) != colorBullish {
			t.Errorf("kind %s color = %#x, want bullish green", kind, KindColor(kind))
		}
	}

	bearish := []models.RuleKind{models.KindPriceBelow, models.KindDrop, models.KindGapDown}
	for _, kind := range bearish {
		if KindColor(kind) != colorBearish {
			t.Errorf("kind %s color = %#x, want bearish red", kind, KindColor(kind))
		}
	}

	for _, kind := range []models.RuleKind{models.KindPercentChange, models.KindVolumeSpike} {
		if KindColor(kind) != colorNeutral {
			t.Errorf("kind %s color = %#x, want neutral", kind, KindColor(kind))
		}
	}
}

func TestFormatAlertIsPure(t *testing.T) {
	score := -0.3
	event := models.AlertEvent{
		OwnerID:        "user1",
		Subject:        "AAPL",
		Kind:           models.KindVolumeSpike,
		TriggerValue:   3.2,
		MeasuredPrice:  187.45,
		Confidence:     0.62,
		SentimentScore: &score,
		Timestamp:      time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	}

	first := FormatAlert(event)
	second := FormatAlert(event)

	if first.Title != second.Title || len(first.Fields) != len(second.Fields) {
		t.Fatal("formatting must be deterministic")
	}
	if !strings.Contains(first.Title, "AAPL") {
		t.Errorf("title %q missing subject", first.Title)
	}
	if first.Color != colorNeutral {
		t.Errorf("volume spike color = %#x, want neutral", first.Color)
	}
	if len(first.Fields) != 4 {
		t.Fatalf("fields = %d, want price, trigger, confidence and sentiment", len(first.Fields))
	}
	if !strings.Contains(first.Fields[1].Value, "3.2x") {
		t.Errorf("trigger field %q should show the volume ratio", first.Fields[1].Value)
	}
	if first.Fields[3].Name != "Sentiment" || !strings.Contains(first.Fields[3].Value, "-0.30") {
		t.Errorf("sentiment field = %+v", first.Fields[3])
	}
}

func TestFormatAlertWithoutSentimentScore(t *testing.T) {
	event := models.AlertEvent{
		Subject:       "MSFT",
		Kind:          models.KindPriceAbove,
		TriggerValue:  400,
		MeasuredPrice: 401.50,
		Confidence:    0.5,
		Timestamp:     time.Now(),
	}

	msg := FormatAlert(event)
	for _, f := range msg.Fields {
		if f.Name == "Sentiment" {
			t.Fatal("unscored event must not render a sentiment field")
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}

	long := strings.Repeat("a", 300)
	got := Truncate(long, maxTitleLen)
	if len([]rune(got)) != maxTitleLen {
		t.Errorf("truncated length = %d, want %d", len([]rune(got)), maxTitleLen)
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("truncated string should end with ellipsis")
	}

	// Multi-byte safety.
	if got := Truncate(strings.Repeat("é", 10), 5); len([]rune(got)) != 5 {
		t.Errorf("rune truncation failed: %q", got)
	}
}
