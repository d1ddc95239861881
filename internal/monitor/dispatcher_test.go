package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stock-sentinel/internal/clock"
	"stock-sentinel/internal/models"
	"stock-sentinel/internal/notify"
	"stock-sentinel/internal/throttle"
)

func dispatchEvent() models.AlertEvent {
	return models.AlertEvent{
		OwnerID:       "user1",
		Subject:       "AAPL",
		Kind:          models.KindPriceAbove,
		TriggerValue:  100,
		MeasuredPrice: 105,
		Confidence:    0.7,
		Timestamp:     time.Date(2025, 6, 2, 14, 30, 0, 0, time.Local),
	}
}

func newTestDispatcher(st *fakeStore, notifier *fakeNotifier, clk clock.Clock) (*Dispatcher, *throttle.RateLimitState) {
	rate := throttle.NewRateLimitState()
	return NewDispatcher(notifier, st, rate, clk, 0, zerolog.Nop()), rate
}

func TestDispatchDeliversAndLogs(t *testing.T) {
	st := newFakeStore()
	notifier := newFakeNotifier()
	clk := clock.NewMock(time.Date(2025, 6, 2, 14, 30, 0, 0, time.Local))
	d, _ := newTestDispatcher(st, notifier, clk)

	ok, reason := d.Dispatch(context.Background(), dispatchEvent())
	if !ok || reason != "" {
		t.Fatalf("Dispatch = (%v, %q), want delivered", ok, reason)
	}
	if notifier.sendCount() != 1 {
		t.Fatalf("send count = %d, want 1", notifier.sendCount())
	}

	records, _ := st.RecentEvents(context.Background(), 10)
	if len(records) != 1 || !records[0].Delivered {
		t.Fatalf("expected one delivered event record, got %+v", records)
	}
}

func TestDispatchRateLimitPausesSurfaceUntilMarginElapses(t *testing.T) {
	st := newFakeStore()
	notifier := newFakeNotifier()
	start := time.Date(2025, 6, 2, 14, 30, 0, 0, time.Local)
	clk := clock.NewMock(start)
	d, rate := newTestDispatcher(st, notifier, clk)

	notifier.queue(notify.SendResult{Status: notify.RateLimited, RetryAfter: 30 * time.Second})

	if ok, reason := d.Dispatch(context.Background(), dispatchEvent()); ok || reason != ReasonRateLimited {
		t.Fatalf("Dispatch = (%v, %q), want rate_limited", ok, reason)
	}

	// Inside retry-after + margin: suppressed without touching the surface.
	clk.Set(start.Add(35 * time.Second))
	if ok, reason := d.Dispatch(context.Background(), dispatchEvent()); ok || reason != ReasonRateLimited {
		t.Fatalf("Dispatch = (%v, %q), want rate_limited inside window", ok, reason)
	}
	if notifier.sendCount() != 1 {
		t.Fatalf("surface touched while paused, sends = %d", notifier.sendCount())
	}

	// Past retry-after + 10s margin: dispatch resumes.
	clk.Set(start.Add(40 * time.Second))
	if ok, _ := d.Dispatch(context.Background(), dispatchEvent()); !ok {
		t.Fatal("dispatch should resume after retry-after plus margin")
	}
	if rate.Limited(clk.Now()) {
		t.Fatal("rate state should have cleared")
	}
}

func TestDispatchQuietHoursSuppressesButLogs(t *testing.T) {
	st := newFakeStore()
	notifier := newFakeNotifier()
	// 23:00 local, inside the default 22-7 window.
	clk := clock.NewMock(time.Date(2025, 6, 2, 23, 0, 0, 0, time.Local))
	d, _ := newTestDispatcher(st, notifier, clk)

	ok, reason := d.Dispatch(context.Background(), dispatchEvent())
	if ok || reason != ReasonQuietHours {
		t.Fatalf("Dispatch = (%v, %q), want quiet_hours", ok, reason)
	}
	if notifier.sendCount() != 0 {
		t.Fatal("quiet hours must not reach the surface")
	}

	records, _ := st.RecentEvents(context.Background(), 10)
	if len(records) != 1 || records[0].Delivered || records[0].SuppressReason != ReasonQuietHours {
		t.Fatalf("suppressed event must still be logged, got %+v", records)
	}
}

func TestDispatchDMDisabledSuppresses(t *testing.T) {
	st := newFakeStore()
	settings := models.DefaultNotificationSettings("user1")
	settings.DMEnabled = false
	st.SaveNotificationSettings(context.Background(), settings)

	notifier := newFakeNotifier()
	clk := clock.NewMock(time.Date(2025, 6, 2, 14, 30, 0, 0, time.Local))
	d, _ := newTestDispatcher(st, notifier, clk)

	if ok, reason := d.Dispatch(context.Background(), dispatchEvent()); ok || reason != ReasonDMDisabled {
		t.Fatalf("Dispatch = (%v, %q), want dm_disabled", ok, reason)
	}
}

func TestDispatchDailyCapSuppresses(t *testing.T) {
	st := newFakeStore()
	settings := models.DefaultNotificationSettings("user1")
	settings.MaxAlertsPerDay = 2
	st.SaveNotificationSettings(context.Background(), settings)

	notifier := newFakeNotifier()
	now := time.Date(2025, 6, 2, 14, 30, 0, 0, time.Local)
	clk := clock.NewMock(now)
	d, _ := newTestDispatcher(st, notifier, clk)

	for i := 0; i < 2; i++ {
		ev := dispatchEvent()
		ev.Timestamp = now
		if ok, _ := d.Dispatch(context.Background(), ev); !ok {
			t.Fatalf("dispatch %d should deliver", i+1)
		}
	}

	ev := dispatchEvent()
	ev.Timestamp = now
	if ok, reason := d.Dispatch(context.Background(), ev); ok || reason != ReasonDailyCap {
		t.Fatalf("third dispatch = (%v, %q), want daily_cap", ok, reason)
	}
	if notifier.sendCount() != 2 {
		t.Fatalf("sends = %d, want 2", notifier.sendCount())
	}
}

// hangingNotifier never returns until its context expires.
type hangingNotifier struct{}

func (hangingNotifier) Name() string { return "hanging" }

func (hangingNotifier) Send(ctx context.Context, _ notify.Message) notify.SendResult {
	<-ctx.Done()
	return notify.SendResult{Status: notify.Failed, Err: ctx.Err()}
}

func TestDispatchBoundsSendByTimeout(t *testing.T) {
	st := newFakeStore()
	clk := clock.NewMock(time.Date(2025, 6, 2, 14, 30, 0, 0, time.Local))
	rate := throttle.NewRateLimitState()
	d := NewDispatcher(hangingNotifier{}, st, rate, clk, 20*time.Millisecond, zerolog.Nop())

	start := time.Now()
	ok, reason := d.Dispatch(context.Background(), dispatchEvent())
	if ok || reason != ReasonDeliveryFailed {
		t.Fatalf("Dispatch = (%v, %q), want delivery_failed", ok, reason)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("dispatch hung for %s, timeout not applied", elapsed)
	}
}

func TestDispatchPermanentFailureDropsAlert(t *testing.T) {
	st := newFakeStore()
	notifier := newFakeNotifier()
	clk := clock.NewMock(time.Date(2025, 6, 2, 14, 30, 0, 0, time.Local))
	d, rate := newTestDispatcher(st, notifier, clk)

	notifier.queue(notify.SendResult{Status: notify.Failed, Err: context.DeadlineExceeded})

	if ok, reason := d.Dispatch(context.Background(), dispatchEvent()); ok || reason != ReasonDeliveryFailed {
		t.Fatalf("want delivery_failed suppression")
	}
	if rate.Limited(clk.Now()) {
		t.Fatal("permanent failure must not trip the rate limit")
	}

	// Next dispatch goes straight back to the surface.
	if ok, _ := d.Dispatch(context.Background(), dispatchEvent()); !ok {
		t.Fatal("dispatch after a permanent failure should proceed")
	}
}
