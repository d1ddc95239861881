package notify

import (
	"fmt"

	"stock-sentinel/internal/models"
)

// Surface embed limits. Content beyond these is truncated, never rejected.
const (
	maxTitleLen       = 256
	maxFieldValueLen  = 1024
	maxDescriptionLen = 4096
)

// Embed colors per alert direction.
const (
	colorBullish = 0x2ECC71
	colorBearish = 0xE74C3C
	colorNeutral = 0x3498DB
)

// KindEmoji maps a rule kind to its display emoji. Pure: same kind, same
// emoji, regardless of engine state.
func KindEmoji(kind models.RuleKind) string {
	switch kind {
	case models.KindPriceAbove, models.KindBreakout, models.KindGapUp:
		return "📈"
	case models.KindPriceBelow, models.KindDrop, models.KindGapDown:
		return "📉"
	case models.KindPercentChange:
		return "📊"
	case models.KindVolumeSpike:
		return "🔥"
	}
	return "⚠️"
}

// KindColor maps a rule kind to its embed color.
func KindColor(kind models.RuleKind) int {
	switch {
	case kind.Bullish() || kind == models.KindPriceAbove:
		return colorBullish
	case kind.Bearish() || kind == models.KindPriceBelow:
		return colorBearish
	}
	return colorNeutral
}

// KindLabel maps a rule kind to its human-readable name.
func KindLabel(kind models.RuleKind) string {
	switch kind {
	case models.KindPriceAbove:
		return "Price Above"
	case models.KindPriceBelow:
		return "Price Below"
	case models.KindPercentChange:
		return "Percent Change"
	case models.KindVolumeSpike:
		return "Volume Spike"
	case models.KindBreakout:
		return "Breakout"
	case models.KindDrop:
		return "Drop"
	case models.KindGapUp:
		return "Gap Up"
	case models.KindGapDown:
		return "Gap Down"
	}
	return string(kind)
}

// FormatAlert renders an alert event into a message. Pure mapping: output
// depends only on the event's fields.
func FormatAlert(event models.AlertEvent) Message {
	msg := Message{
		Title:     Truncate(fmt.Sprintf("%s %s Alert: %s", KindEmoji(event.Kind), KindLabel(event.Kind), event.Subject), maxTitleLen),
		Color:     KindColor(event.Kind),
		Timestamp: event.Timestamp,
		Fields: []Field{
			{Name: "Price", Value: fmt.Sprintf("$%.2f", event.MeasuredPrice), Inline: true},
			{Name: "Trigger", Value: formatTriggerValue(event), Inline: true},
			{Name: "Confidence", Value: fmt.Sprintf("%.0f%%", event.Confidence*100), Inline: true},
		},
	}

	if event.SentimentScore != nil {
		msg.Fields = append(msg.Fields, Field{
			Name:   "Sentiment",
			Value:  fmt.Sprintf("%+.2f", *event.SentimentScore),
			Inline: true,
		})
	}

	for i := range msg.Fields {
		msg.Fields[i].Value = Truncate(msg.Fields[i].Value, maxFieldValueLen)
	}
	return msg
}

func formatTriggerValue(event models.AlertEvent) string {
	switch event.Kind {
	case models.KindPriceAbove, models.KindPriceBelow:
		return fmt.Sprintf("$%.2f", event.TriggerValue)
	case models.KindVolumeSpike:
		return fmt.Sprintf("%.1fx avg volume", event.TriggerValue)
	default:
		return fmt.Sprintf("%+.2f%%", event.TriggerValue*100)
	}
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
