// Package models provides domain models for the monitoring engine.
package models

import (
	"strings"
	"time"
)

// Subject is a tracked instrument ticker. Identity is case-normalized.
type Subject string

// NewSubject normalizes a raw ticker string into a Subject.
func NewSubject(raw string) Subject {
	return Subject(strings.ToUpper(strings.TrimSpace(raw)))
}

func (s Subject) String() string {
	return string(s)
}

// Snapshot is a point-in-time read of a subject's market data.
// Snapshots are produced fresh every poll cycle and discarded after
// evaluation.
type Snapshot struct {
	Subject       Subject
	Price         float64
	PreviousClose float64
	Open          float64
	High          float64
	Low           float64
	Volume        int64
	AvgVolume     float64
	AsOf          time.Time
}

// RuleKind identifies the condition an alert rule checks.
type RuleKind string

const (
	// KindPriceAbove fires when price >= threshold.
	KindPriceAbove RuleKind = "price_above"
	// KindPriceBelow fires when price <= threshold.
	KindPriceBelow RuleKind = "price_below"
	// KindPercentChange fires when |price-prev_close|/prev_close >= threshold.
	KindPercentChange RuleKind = "percent_change"
	// KindVolumeSpike fires when volume/avg_volume >= threshold.
	KindVolumeSpike RuleKind = "volume_spike"
	// KindBreakout fires on an upward percent change >= threshold.
	KindBreakout RuleKind = "breakout"
	// KindDrop fires on a downward percent change >= threshold.
	KindDrop RuleKind = "drop"
	// KindGapUp fires when open gaps above previous close by >= threshold.
	KindGapUp RuleKind = "gap_up"
	// KindGapDown fires when open gaps below previous close by >= threshold.
	KindGapDown RuleKind = "gap_down"
)

// Kinds lists every rule kind.
func Kinds() []RuleKind {
	return []RuleKind{
		KindPriceAbove, KindPriceBelow, KindPercentChange, KindVolumeSpike,
		KindBreakout, KindDrop, KindGapUp, KindGapDown,
	}
}

// Valid reports whether k is a known rule kind.
func (k RuleKind) Valid() bool {
	switch k {
	case KindPriceAbove, KindPriceBelow, KindPercentChange, KindVolumeSpike,
		KindBreakout, KindDrop, KindGapUp, KindGapDown:
		return true
	}
	return false
}

// Bullish reports whether k is a direction-sensitive bullish kind.
func (k RuleKind) Bullish() bool {
	return k == KindBreakout || k == KindGapUp
}

// Bearish reports whether k is a direction-sensitive bearish kind.
func (k RuleKind) Bearish() bool {
	return k == KindDrop || k == KindGapDown
}

// Directional reports whether the sentiment gate applies to k.
func (k RuleKind) Directional() bool {
	return k.Bullish() || k.Bearish()
}

// AlertRule is a user-configured condition that can fire against a snapshot.
type AlertRule struct {
	ID        int64
	OwnerID   string
	Subject   Subject
	Kind      RuleKind
	Threshold float64
	Enabled   bool
	Notes     string
	CreatedAt time.Time
}

// Key returns the dedup key for cooldown tracking.
func (r AlertRule) Key() AlertKey {
	return AlertKey{OwnerID: r.OwnerID, Subject: r.Subject, Kind: r.Kind}
}

// AlertKey identifies a rule for cooldown purposes.
type AlertKey struct {
	OwnerID string
	Subject Subject
	Kind    RuleKind
}

// AlertEvent is a fired-or-candidate occurrence of a rule against a snapshot.
// SentimentScore stays nil until the sentiment gate has scored the subject.
type AlertEvent struct {
	OwnerID        string
	Subject        Subject
	Kind           RuleKind
	TriggerValue   float64
	MeasuredPrice  float64
	Confidence     float64
	SentimentScore *float64
	Timestamp      time.Time
}

// Key returns the dedup key for this event.
func (e AlertEvent) Key() AlertKey {
	return AlertKey{OwnerID: e.OwnerID, Subject: e.Subject, Kind: e.Kind}
}

// QuietHours is a recipient-local delivery window during which alerts are
// logged but not delivered. End < Start spans midnight (22 -> 7).
type QuietHours struct {
	OwnerID   string
	StartHour int
	EndHour   int
}

// NotificationSettings holds a user's delivery preferences.
type NotificationSettings struct {
	OwnerID         string
	DMEnabled       bool
	QuietHours      QuietHours
	MaxAlertsPerDay int
}

// DefaultNotificationSettings returns the defaults applied when a user has
// never saved settings.
func DefaultNotificationSettings(ownerID string) NotificationSettings {
	return NotificationSettings{
		OwnerID:         ownerID,
		DMEnabled:       true,
		QuietHours:      QuietHours{OwnerID: ownerID, StartHour: 22, EndHour: 7},
		MaxAlertsPerDay: 50,
	}
}
