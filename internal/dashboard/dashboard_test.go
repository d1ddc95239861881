package dashboard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stock-sentinel/internal/clock"
	"stock-sentinel/internal/models"
	"stock-sentinel/internal/notify"
	"stock-sentinel/internal/store"
)

type stubStore struct {
	store.Store
	subjects []models.Subject
	events   []store.EventRecord
}

func (s *stubStore) ListTrackedSubjects(ctx context.Context) ([]models.Subject, error) {
	return s.subjects, nil
}

func (s *stubStore) RecentEvents(ctx context.Context, limit int) ([]store.EventRecord, error) {
	if len(s.events) > limit {
		return s.events[:limit], nil
	}
	return s.events, nil
}

type stubProvider struct {
	snaps map[models.Subject]models.Snapshot
}

func (p *stubProvider) Fetch(ctx context.Context, subject models.Subject) (models.Snapshot, error) {
	return p.snaps[subject], nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	sent    []notify.Message
	results []notify.SendResult
}

func (n *recordingNotifier) Name() string { return "stub" }

func (n *recordingNotifier) Send(ctx context.Context, msg notify.Message) notify.SendResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	if len(n.results) > 0 {
		r := n.results[0]
		n.results = n.results[1:]
		return r
	}
	return notify.SendResult{Status: notify.Delivered}
}

func (n *recordingNotifier) sendCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func newTestCoordinator(st *stubStore, notifier *recordingNotifier, clk clock.Clock) *Coordinator {
	provider := &stubProvider{snaps: map[models.Subject]models.Snapshot{
		"AAPL": {Subject: "AAPL", Price: 105, PreviousClose: 100},
		"MSFT": {Subject: "MSFT", Price: 380, PreviousClose: 400},
	}}
	return NewCoordinator(
		Config{RefreshInterval: time.Minute, InteractionGrace: 3 * time.Second},
		st, provider, notifier, clk, zerolog.Nop(),
	)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestRefreshRendersOverview(t *testing.T) {
	st := &stubStore{
		subjects: []models.Subject{"AAPL", "MSFT"},
		events: []store.EventRecord{
			{Event: models.AlertEvent{
				Subject: "AAPL", Kind: models.KindBreakout,
				MeasuredPrice: 105, Timestamp: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
			}, Delivered: true},
		},
	}
	notifier := &recordingNotifier{}
	clk := clock.NewMock(time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC))
	c := newTestCoordinator(st, notifier, clk)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if notifier.sendCount() != 1 {
		t.Fatalf("sends = %d, want 1", notifier.sendCount())
	}

	msg := notifier.sent[0]
	var movers, alerts string
	for _, f := range msg.Fields {
		switch f.Name {
		case "Top Movers":
			movers = f.Value
		case "Recent Alerts":
			alerts = f.Value
		}
	}
	// MSFT moved -5%, AAPL +5%; both listed.
	if !strings.Contains(movers, "AAPL") || !strings.Contains(movers, "MSFT") {
		t.Errorf("movers = %q", movers)
	}
	if !strings.Contains(alerts, "AAPL") {
		t.Errorf("alerts = %q", alerts)
	}
}

func TestBackgroundRefreshDeferredDuringInteraction(t *testing.T) {
	st := &stubStore{subjects: []models.Subject{"AAPL"}}
	notifier := &recordingNotifier{}
	clk := clock.NewMock(time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC))
	provider := &stubProvider{snaps: map[models.Subject]models.Snapshot{
		"AAPL": {Subject: "AAPL", Price: 105, PreviousClose: 100},
	}}
	// Grace longer than one tick so a tick can land inside it.
	c := NewCoordinator(
		Config{RefreshInterval: time.Minute, InteractionGrace: 90 * time.Second},
		st, provider, notifier, clk, zerolog.Nop(),
	)

	c.Start(context.Background())
	defer c.Stop()

	c.BeginInteraction()
	clk.Advance(time.Minute)
	time.Sleep(50 * time.Millisecond)
	if notifier.sendCount() != 0 {
		t.Fatal("refresh ran while an interaction was in flight")
	}

	// Released, but the next tick lands 60s later, inside the 90s grace.
	c.EndInteraction()
	clk.Advance(time.Minute)
	time.Sleep(50 * time.Millisecond)
	if notifier.sendCount() != 0 {
		t.Fatal("refresh ran inside the grace window")
	}

	// The tick after that is past the grace window.
	clk.Advance(time.Minute)
	if !waitFor(t, 2*time.Second, func() bool { return notifier.sendCount() == 1 }) {
		t.Fatalf("refresh did not resume, sends = %d", notifier.sendCount())
	}
}

func TestBackgroundRefreshSkippedWhileRateLimited(t *testing.T) {
	st := &stubStore{subjects: []models.Subject{"AAPL"}}
	notifier := &recordingNotifier{}
	start := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	clk := clock.NewMock(start)
	c := newTestCoordinator(st, notifier, clk)

	notifier.results = []notify.SendResult{
		{Status: notify.RateLimited, RetryAfter: 30 * time.Second},
	}

	c.Start(context.Background())
	defer c.Stop()

	clk.Advance(time.Minute)
	if !waitFor(t, 2*time.Second, func() bool { return notifier.sendCount() == 1 }) {
		t.Fatal("first refresh did not run")
	}

	// Surface tripped; an immediate Refresh is refused without a send.
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh should refuse while rate limited")
	}
	if notifier.sendCount() != 1 {
		t.Fatalf("rate-limited surface was touched, sends = %d", notifier.sendCount())
	}

	// After retry-after plus margin the loop resumes.
	clk.Advance(time.Minute)
	if !waitFor(t, 2*time.Second, func() bool { return notifier.sendCount() == 2 }) {
		t.Fatalf("refresh did not resume, sends = %d", notifier.sendCount())
	}
}

func TestStartStopIdempotent(t *testing.T) {
	st := &stubStore{}
	notifier := &recordingNotifier{}
	clk := clock.NewMock(time.Now())
	c := newTestCoordinator(st, notifier, clk)

	c.Start(context.Background())
	c.Start(context.Background())
	c.Stop()
	c.Stop()
}
