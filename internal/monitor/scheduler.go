package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stock-sentinel/internal/clock"
	"stock-sentinel/internal/errors"
	"stock-sentinel/internal/logging"
	"stock-sentinel/internal/models"
	"stock-sentinel/internal/quote"
	"stock-sentinel/internal/store"
	"stock-sentinel/internal/throttle"
)

// State is the scheduler lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	// StatePaused means the loop is alive but dispatch is rate limited.
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// SchedulerConfig holds the poll loop's tunables.
type SchedulerConfig struct {
	PollInterval      time.Duration
	InterSubjectDelay time.Duration
	FetchTimeout      time.Duration
}

// DefaultSchedulerConfig returns the default loop tunables.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PollInterval:      60 * time.Second,
		InterSubjectDelay: time.Second,
		FetchTimeout:      10 * time.Second,
	}
}

// Scheduler drives the poll loop: every interval it walks the tracked
// subjects, fetches a fresh snapshot per subject, evaluates enabled rules
// and pushes surviving events through the gate chain to the dispatcher.
type Scheduler struct {
	cfg        SchedulerConfig
	store      store.Store
	provider   quote.Provider
	evaluator  *Evaluator
	cooldown   *CooldownRegistry
	gate       *SentimentGate
	dispatcher *Dispatcher
	rate       *throttle.RateLimitState
	clk        clock.Clock
	logger     zerolog.Logger

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	ticking bool

	// lastRules is the degraded-mode fallback when the store goes away
	// mid-flight: the loop keeps evaluating the last known rule set.
	lastRules []models.AlertRule
}

// NewScheduler wires the poll loop.
func NewScheduler(
	cfg SchedulerConfig,
	st store.Store,
	provider quote.Provider,
	evaluator *Evaluator,
	cooldown *CooldownRegistry,
	gate *SentimentGate,
	dispatcher *Dispatcher,
	rate *throttle.RateLimitState,
	clk clock.Clock,
	logger zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		store:      st,
		provider:   provider,
		evaluator:  evaluator,
		cooldown:   cooldown,
		gate:       gate,
		dispatcher: dispatcher,
		rate:       rate,
		clk:        clk,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		state:      StateIdle,
	}
}

// State returns the current lifecycle state. A running loop whose dispatch
// surface is rate limited reports Paused.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning && s.rate.Limited(s.clk.Now()) {
		return StatePaused
	}
	return s.state
}

// Start launches the poll loop. Starting a running scheduler is an error;
// the existing loop is untouched.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return errors.ErrSchedulerRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRunning

	// The ticker must exist before Start returns so a test clock advanced
	// right after Start produces a tick the loop will see.
	ticker := s.clk.NewTicker(s.cfg.PollInterval)
	go s.run(loopCtx, s.done, ticker)

	s.logger.Info().
		Dur("poll_interval", s.cfg.PollInterval).
		Msg("Scheduler started")
	return nil
}

// Stop halts the loop and waits for an in-flight cycle to finish. Stopping
// an already stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}, ticker clock.Ticker) {
	defer close(done)
	defer ticker.Stop()

	// First cycle runs immediately; the ticker drives the rest.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.tick(ctx)
		}
	}
}

// tick runs one cycle, skipping entirely if the previous cycle is still in
// flight. Cycles never overlap.
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.ticking {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous cycle still running, skipping tick")
		return
	}
	s.ticking = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.ticking = false
		s.mu.Unlock()
	}()

	s.runCycle(ctx)
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := s.clk.Now()

	// Expired cooldowns are dropped each cycle so the registry tracks only
	// keys still inside their window.
	s.cooldown.Prune(start)

	rules := s.loadRules(ctx)
	if len(rules) == 0 {
		return
	}

	bySubject := make(map[models.Subject][]models.AlertRule)
	var subjects []models.Subject
	for _, rule := range rules {
		if _, seen := bySubject[rule.Subject]; !seen {
			subjects = append(subjects, rule.Subject)
		}
		bySubject[rule.Subject] = append(bySubject[rule.Subject], rule)
	}

	var candidates, dispatched int
	for i, subject := range subjects {
		if ctx.Err() != nil {
			return
		}
		if i > 0 && s.cfg.InterSubjectDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-s.clk.After(s.cfg.InterSubjectDelay):
			}
		}

		c, d := s.pollSubject(ctx, subject, bySubject[subject])
		candidates += c
		dispatched += d
	}

	logging.LogCycle(s.logger, len(subjects), candidates, dispatched, s.clk.Now().Sub(start))
}

// loadRules fetches the enabled rule set, falling back to the last known set
// when the store is unavailable.
func (s *Scheduler) loadRules(ctx context.Context) []models.AlertRule {
	rules, err := s.store.ListEnabledRules(ctx)
	if err != nil {
		s.mu.Lock()
		cached := s.lastRules
		s.mu.Unlock()

		s.logger.Warn().Err(err).
			Int("cached_rules", len(cached)).
			Msg("Store unavailable, running on last known rules")
		return cached
	}

	s.mu.Lock()
	s.lastRules = rules
	s.mu.Unlock()
	return rules
}

// pollSubject fetches one snapshot and runs every rule for the subject
// against it. A fetch failure skips the subject for this cycle only.
func (s *Scheduler) pollSubject(ctx context.Context, subject models.Subject, rules []models.AlertRule) (candidates, dispatched int) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	snap, err := s.provider.Fetch(fetchCtx, subject)
	cancel()
	if err != nil {
		s.logger.Warn().Err(err).
			Str("subject", subject.String()).
			Msg("Snapshot fetch failed, skipping subject")
		return 0, 0
	}

	for _, rule := range rules {
		event, fired := s.evaluator.Evaluate(snap, rule)
		if !fired {
			continue
		}
		candidates++

		if !s.cooldown.TryAcquire(event.Key(), s.clk.Now()) {
			logging.LogSuppressed(s.logger, event.Subject.String(), string(event.Kind), ReasonCooldown)
			continue
		}

		allowed, score := s.gate.Check(ctx, event)
		event.SentimentScore = score
		if !allowed {
			logging.LogSuppressed(s.logger, event.Subject.String(), string(event.Kind), ReasonSentiment)
			if err := s.store.AppendEvent(ctx, event, false, ReasonSentiment); err != nil {
				s.logger.Error().Err(err).Msg("Failed to log suppressed event")
			}
			continue
		}

		if ok, _ := s.dispatcher.Dispatch(ctx, event); ok {
			dispatched++
		}
	}
	return candidates, dispatched
}
