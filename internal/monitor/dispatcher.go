package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stock-sentinel/internal/clock"
	"stock-sentinel/internal/logging"
	"stock-sentinel/internal/models"
	"stock-sentinel/internal/notify"
	"stock-sentinel/internal/store"
	"stock-sentinel/internal/throttle"
)

// Suppression reasons recorded in the event log.
const (
	ReasonCooldown       = "cooldown"
	ReasonSentiment      = "sentiment"
	ReasonQuietHours     = "quiet_hours"
	ReasonRateLimited    = "rate_limited"
	ReasonDMDisabled     = "dm_disabled"
	ReasonDailyCap       = "daily_cap"
	ReasonDeliveryFailed = "delivery_failed"
)

// DefaultDispatchTimeout bounds a single delivery attempt.
const DefaultDispatchTimeout = 10 * time.Second

// Dispatcher pushes gated events out to the delivery surface, applying the
// per-user delivery filters (quiet hours, DM opt-out, daily cap) and the
// surface-wide rate limit. Every event lands in the event log whether it was
// delivered or not.
type Dispatcher struct {
	notifier    notify.Notifier
	store       store.Store
	rate        *throttle.RateLimitState
	clk         clock.Clock
	sendTimeout time.Duration
	logger      zerolog.Logger
}

// NewDispatcher creates a dispatcher. A non-positive sendTimeout falls back
// to DefaultDispatchTimeout.
func NewDispatcher(notifier notify.Notifier, st store.Store, rate *throttle.RateLimitState, clk clock.Clock, sendTimeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = DefaultDispatchTimeout
	}
	return &Dispatcher{
		notifier:    notifier,
		store:       st,
		rate:        rate,
		clk:         clk,
		sendTimeout: sendTimeout,
		logger:      logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch attempts delivery of event. Returns true when the surface
// accepted it; otherwise the suppression reason is logged and recorded.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.AlertEvent) (bool, string) {
	now := d.clk.Now()

	if d.rate.Limited(now) {
		return d.suppress(ctx, event, ReasonRateLimited)
	}

	settings, err := d.store.GetNotificationSettings(ctx, event.OwnerID)
	if err != nil {
		// Filters need settings; fall back to defaults rather than drop.
		d.logger.Warn().Err(err).Str("owner_id", event.OwnerID).Msg("Settings unavailable, using defaults")
		settings = models.DefaultNotificationSettings(event.OwnerID)
	}

	if !settings.DMEnabled {
		return d.suppress(ctx, event, ReasonDMDisabled)
	}

	if InQuietHours(settings.QuietHours, now) {
		return d.suppress(ctx, event, ReasonQuietHours)
	}

	if settings.MaxAlertsPerDay > 0 {
		count, err := d.store.CountDeliveredSince(ctx, event.OwnerID, startOfDay(now))
		if err == nil && count >= settings.MaxAlertsPerDay {
			return d.suppress(ctx, event, ReasonDailyCap)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	result := d.notifier.Send(sendCtx, notify.FormatAlert(event))
	cancel()
	switch result.Status {
	case notify.Delivered:
		if err := d.store.AppendEvent(ctx, event, true, ""); err != nil {
			d.logger.Error().Err(err).Msg("Failed to log delivered event")
		}
		logging.LogAlert(d.logger, event.OwnerID, event.Subject.String(),
			string(event.Kind), event.MeasuredPrice, event.Confidence)
		return true, ""

	case notify.RateLimited:
		d.rate.Trip(result.RetryAfter, now)
		logging.LogRateLimit(d.logger, d.notifier.Name(), result.RetryAfter)
		return d.suppress(ctx, event, ReasonRateLimited)

	default:
		d.logger.Error().Err(result.Err).
			Str("subject", event.Subject.String()).
			Msg("Delivery failed, dropping alert")
		return d.suppress(ctx, event, ReasonDeliveryFailed)
	}
}

func (d *Dispatcher) suppress(ctx context.Context, event models.AlertEvent, reason string) (bool, string) {
	logging.LogSuppressed(d.logger, event.Subject.String(), string(event.Kind), reason)
	if err := d.store.AppendEvent(ctx, event, false, reason); err != nil {
		d.logger.Error().Err(err).Msg("Failed to log suppressed event")
	}
	return false, reason
}

func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
