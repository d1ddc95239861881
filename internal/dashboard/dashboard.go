// Package dashboard keeps a live overview surface refreshed in the
// background. The dashboard posts to its own delivery surface with its own
// rate-limit state; alert dispatch and dashboard refreshes never throttle
// each other.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stock-sentinel/internal/clock"
	"stock-sentinel/internal/models"
	"stock-sentinel/internal/notify"
	"stock-sentinel/internal/quote"
	"stock-sentinel/internal/store"
	"stock-sentinel/internal/throttle"
)

const (
	// DefaultRefreshInterval is how often the overview is re-rendered.
	DefaultRefreshInterval = 60 * time.Second

	recentEventLimit = 5
	topMoverLimit    = 5
	overviewColor    = 0x5865F2
)

// Config holds refresh tunables.
type Config struct {
	RefreshInterval  time.Duration
	InteractionGrace time.Duration
}

// Coordinator owns the dashboard refresh loop. A refresh is skipped, not
// queued, whenever the surface is rate limited or a user interaction is in
// flight or too recent.
type Coordinator struct {
	cfg      Config
	store    store.Store
	provider quote.Provider
	notifier notify.Notifier
	rate     *throttle.RateLimitState
	lock     *throttle.InteractionLock
	clk      clock.Clock
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewCoordinator wires the refresh loop.
func NewCoordinator(
	cfg Config,
	st store.Store,
	provider quote.Provider,
	notifier notify.Notifier,
	clk clock.Clock,
	logger zerolog.Logger,
) *Coordinator {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.InteractionGrace <= 0 {
		cfg.InteractionGrace = throttle.DefaultRecencyWindow
	}
	return &Coordinator{
		cfg:      cfg,
		store:    st,
		provider: provider,
		notifier: notifier,
		rate:     throttle.NewRateLimitState(),
		lock:     throttle.NewInteractionLockWithWindow(cfg.InteractionGrace),
		clk:      clk,
		logger:   logger.With().Str("component", "dashboard").Logger(),
	}
}

// Start launches the refresh loop. Idempotent: a running coordinator stays
// untouched.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	// The ticker must exist before Start returns so a test clock advanced
	// right after Start produces a tick the loop will see.
	ticker := c.clk.NewTicker(c.cfg.RefreshInterval)
	go c.run(loopCtx, c.done, ticker)
	c.logger.Info().Dur("interval", c.cfg.RefreshInterval).Msg("Dashboard refresh started")
}

// Stop halts the loop. Idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done
}

// BeginInteraction marks a user action as in flight; refreshes defer until
// EndInteraction plus the grace window.
func (c *Coordinator) BeginInteraction() {
	c.lock.Acquire(c.clk.Now())
}

// EndInteraction marks the in-flight action finished.
func (c *Coordinator) EndInteraction() {
	c.lock.Record(c.clk.Now())
}

// Refresh renders and posts the overview immediately, bypassing the
// interaction lock but still honoring the surface rate limit.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if c.rate.Limited(c.clk.Now()) {
		return fmt.Errorf("dashboard surface rate limited until %s", c.rate.ResumeAt().Format(time.RFC3339))
	}
	return c.post(ctx)
}

func (c *Coordinator) run(ctx context.Context, done chan struct{}, ticker clock.Ticker) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.maybeRefresh(ctx)
		}
	}
}

func (c *Coordinator) maybeRefresh(ctx context.Context) {
	now := c.clk.Now()

	if c.lock.ShouldDefer(now) {
		c.logger.Debug().Msg("Refresh deferred, user interaction in progress")
		return
	}
	if c.rate.Limited(now) {
		c.logger.Debug().Time("resume_at", c.rate.ResumeAt()).Msg("Refresh skipped, surface rate limited")
		return
	}

	if err := c.post(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Dashboard refresh failed")
	}
}

func (c *Coordinator) post(ctx context.Context) error {
	msg, err := c.render(ctx)
	if err != nil {
		return err
	}

	result := c.notifier.Send(ctx, msg)
	switch result.Status {
	case notify.Delivered:
		return nil
	case notify.RateLimited:
		c.rate.Trip(result.RetryAfter, c.clk.Now())
		return fmt.Errorf("dashboard surface rate limited, retry after %s", result.RetryAfter)
	default:
		return result.Err
	}
}

// mover pairs a subject with its fractional change for ranking.
type mover struct {
	subject models.Subject
	price   float64
	change  float64
}

func (c *Coordinator) render(ctx context.Context) (notify.Message, error) {
	now := c.clk.Now()
	msg := notify.Message{
		Title:     "📊 Market Overview",
		Color:     overviewColor,
		Timestamp: now,
	}

	subjects, err := c.store.ListTrackedSubjects(ctx)
	if err != nil {
		return msg, fmt.Errorf("listing tracked subjects: %w", err)
	}

	movers := c.fetchMovers(ctx, subjects)
	if len(movers) > 0 {
		msg.Fields = append(msg.Fields, notify.Field{
			Name:  "Top Movers",
			Value: formatMovers(movers),
		})
	}

	events, err := c.store.RecentEvents(ctx, recentEventLimit)
	if err == nil && len(events) > 0 {
		msg.Fields = append(msg.Fields, notify.Field{
			Name:  "Recent Alerts",
			Value: formatEvents(events),
		})
	}

	if len(msg.Fields) == 0 {
		msg.Description = "No tracked subjects yet. Add tickers to a watchlist to populate the dashboard."
	}
	return msg, nil
}

func (c *Coordinator) fetchMovers(ctx context.Context, subjects []models.Subject) []mover {
	var movers []mover
	for _, subject := range subjects {
		snap, err := c.provider.Fetch(ctx, subject)
		if err != nil || snap.PreviousClose <= 0 {
			continue
		}
		movers = append(movers, mover{
			subject: subject,
			price:   snap.Price,
			change:  (snap.Price - snap.PreviousClose) / snap.PreviousClose,
		})
	}

	sort.Slice(movers, func(i, j int) bool {
		return abs(movers[i].change) > abs(movers[j].change)
	})
	if len(movers) > topMoverLimit {
		movers = movers[:topMoverLimit]
	}
	return movers
}

func formatMovers(movers []mover) string {
	var sb strings.Builder
	for _, m := range movers {
		arrow := "▲"
		if m.change < 0 {
			arrow = "▼"
		}
		fmt.Fprintf(&sb, "%s %s $%.2f (%+.2f%%)\n", arrow, m.subject, m.price, m.change*100)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatEvents(events []store.EventRecord) string {
	var sb strings.Builder
	for _, rec := range events {
		status := "✅"
		if !rec.Delivered {
			status = "🔕"
		}
		fmt.Fprintf(&sb, "%s %s %s %s @ $%.2f\n",
			status,
			rec.Event.Timestamp.Format("15:04"),
			notify.KindEmoji(rec.Event.Kind),
			rec.Event.Subject,
			rec.Event.MeasuredPrice)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
