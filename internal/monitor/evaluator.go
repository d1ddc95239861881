// Package monitor implements the alert engine: trigger evaluation, cooldown
// dedup, sentiment gating, dispatch and the poll scheduler.
package monitor

import (
	"math"

	"stock-sentinel/internal/models"
)

// Confidence bounds for fired events. Every fired event's confidence lands
// inside [ConfidenceFloor, ConfidenceCeil].
const (
	ConfidenceFloor = 0.5
	ConfidenceCeil  = 0.9
)

// Evaluator decides whether a rule fires against a snapshot. Evaluation is
// pure: no clock reads, no I/O, no stored state. The same snapshot and rule
// always produce the same outcome.
type Evaluator struct{}

// NewEvaluator creates an evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate returns the candidate event for rule against snap, or false when
// the rule does not fire. The event carries no sentiment score yet and its
// timestamp is the snapshot's.
func (e *Evaluator) Evaluate(snap models.Snapshot, rule models.AlertRule) (models.AlertEvent, bool) {
	if !rule.Enabled || snap.Subject != rule.Subject {
		return models.AlertEvent{}, false
	}

	trigger, fired := checkTrigger(snap, rule)
	if !fired {
		return models.AlertEvent{}, false
	}

	return models.AlertEvent{
		OwnerID:       rule.OwnerID,
		Subject:       snap.Subject,
		Kind:          rule.Kind,
		TriggerValue:  trigger,
		MeasuredPrice: snap.Price,
		Confidence:    confidence(snap, rule, trigger),
		Timestamp:     snap.AsOf,
	}, true
}

// checkTrigger returns the measured trigger value and whether the rule's
// condition holds. Rules that divide by previous close or average volume
// never fire when the divisor is zero.
func checkTrigger(snap models.Snapshot, rule models.AlertRule) (float64, bool) {
	switch rule.Kind {
	case models.KindPriceAbove:
		return rule.Threshold, snap.Price >= rule.Threshold

	case models.KindPriceBelow:
		return rule.Threshold, snap.Price <= rule.Threshold

	case models.KindPercentChange:
		change, ok := fractionalChange(snap.Price, snap.PreviousClose)
		return change, ok && math.Abs(change) >= rule.Threshold

	case models.KindVolumeSpike:
		if snap.AvgVolume <= 0 {
			return 0, false
		}
		ratio := float64(snap.Volume) / snap.AvgVolume
		return ratio, ratio >= rule.Threshold

	case models.KindBreakout:
		change, ok := fractionalChange(snap.Price, snap.PreviousClose)
		return change, ok && change >= rule.Threshold

	case models.KindDrop:
		change, ok := fractionalChange(snap.Price, snap.PreviousClose)
		return change, ok && -change >= rule.Threshold

	case models.KindGapUp:
		gap, ok := fractionalChange(snap.Open, snap.PreviousClose)
		return gap, ok && gap >= rule.Threshold

	case models.KindGapDown:
		gap, ok := fractionalChange(snap.Open, snap.PreviousClose)
		return gap, ok && -gap >= rule.Threshold
	}

	return 0, false
}

func fractionalChange(value, base float64) (float64, bool) {
	if base <= 0 {
		return 0, false
	}
	return (value - base) / base, true
}

// confidence grades how decisively the condition was exceeded. Volume spikes
// scale with the ratio's excess over the threshold; change-based kinds scale
// with the magnitude of the move; price thresholds scale with the overshoot
// relative to the threshold.
func confidence(snap models.Snapshot, rule models.AlertRule, trigger float64) float64 {
	var raw float64
	switch rule.Kind {
	case models.KindVolumeSpike:
		raw = ConfidenceFloor + (trigger-rule.Threshold)*0.1
	case models.KindPriceAbove, models.KindPriceBelow:
		if rule.Threshold > 0 {
			raw = ConfidenceFloor + math.Abs(snap.Price-rule.Threshold)/rule.Threshold*10
		} else {
			raw = ConfidenceFloor
		}
	default:
		raw = ConfidenceFloor + math.Abs(trigger)*10
	}
	return clampConfidence(raw)
}

func clampConfidence(c float64) float64 {
	if c < ConfidenceFloor {
		return ConfidenceFloor
	}
	if c > ConfidenceCeil {
		return ConfidenceCeil
	}
	return c
}
