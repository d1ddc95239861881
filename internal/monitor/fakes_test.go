package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stock-sentinel/internal/models"
	"stock-sentinel/internal/notify"
	"stock-sentinel/internal/sentiment"
	"stock-sentinel/internal/store"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	mu       sync.Mutex
	rules    []models.AlertRule
	events   []store.EventRecord
	settings map[string]models.NotificationSettings
	listErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{settings: make(map[string]models.NotificationSettings)}
}

func (f *fakeStore) AddToWatchlist(ctx context.Context, ownerID string, subject models.Subject) error {
	return nil
}

func (f *fakeStore) RemoveFromWatchlist(ctx context.Context, ownerID string, subject models.Subject) error {
	return nil
}

func (f *fakeStore) ListWatchlist(ctx context.Context, ownerID string) ([]models.Subject, error) {
	return nil, nil
}

func (f *fakeStore) ListTrackedSubjects(ctx context.Context) ([]models.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[models.Subject]bool)
	var subjects []models.Subject
	for _, r := range f.rules {
		if !seen[r.Subject] {
			seen[r.Subject] = true
			subjects = append(subjects, r.Subject)
		}
	}
	return subjects, nil
}

func (f *fakeStore) CreateRule(ctx context.Context, rule *models.AlertRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule.ID = int64(len(f.rules) + 1)
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeStore) SetRuleEnabled(ctx context.Context, id int64, enabled bool) error { return nil }
func (f *fakeStore) DeleteRule(ctx context.Context, id int64) error                   { return nil }

func (f *fakeStore) ListRules(ctx context.Context, ownerID string) ([]models.AlertRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AlertRule(nil), f.rules...), nil
}

func (f *fakeStore) ListEnabledRules(ctx context.Context) ([]models.AlertRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var enabled []models.AlertRule
	for _, r := range f.rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	return enabled, nil
}

func (f *fakeStore) AppendEvent(ctx context.Context, event models.AlertEvent, delivered bool, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, store.EventRecord{
		ID:             int64(len(f.events) + 1),
		Event:          event,
		Delivered:      delivered,
		SuppressReason: reason,
	})
	return nil
}

func (f *fakeStore) RecentEvents(ctx context.Context, limit int) ([]store.EventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.EventRecord(nil), f.events...), nil
}

func (f *fakeStore) CountDeliveredSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, rec := range f.events {
		if rec.Delivered && rec.Event.OwnerID == ownerID && !rec.Event.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) GetNotificationSettings(ctx context.Context, ownerID string) (models.NotificationSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.settings[ownerID]; ok {
		return s, nil
	}
	return models.DefaultNotificationSettings(ownerID), nil
}

func (f *fakeStore) SaveNotificationSettings(ctx context.Context, settings models.NotificationSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[settings.OwnerID] = settings
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) suppressedReasons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reasons []string
	for _, rec := range f.events {
		if !rec.Delivered {
			reasons = append(reasons, rec.SuppressReason)
		}
	}
	return reasons
}

// fakeNotifier records sends and returns a scripted result.
type fakeNotifier struct {
	mu      sync.Mutex
	sent    []notify.Message
	results []notify.SendResult
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (f *fakeNotifier) Name() string { return "fake" }

func (f *fakeNotifier) Send(ctx context.Context, msg notify.Message) notify.SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if len(f.results) > 0 {
		r := f.results[0]
		f.results = f.results[1:]
		return r
	}
	return notify.SendResult{Status: notify.Delivered}
}

func (f *fakeNotifier) queue(results ...notify.SendResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, results...)
}

func (f *fakeNotifier) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeProvider serves canned snapshots per subject.
type fakeProvider struct {
	mu    sync.Mutex
	snaps map[models.Subject]models.Snapshot
	errs  map[models.Subject]error
	block chan struct{}
	calls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		snaps: make(map[models.Subject]models.Snapshot),
		errs:  make(map[models.Subject]error),
	}
}

func (f *fakeProvider) Fetch(ctx context.Context, subject models.Subject) (models.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	err, isErr := f.errs[subject]
	snap, ok := f.snaps[subject]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return models.Snapshot{}, ctx.Err()
		}
	}
	if isErr {
		return models.Snapshot{}, err
	}
	if !ok {
		return models.Snapshot{}, fmt.Errorf("no snapshot for %s", subject)
	}
	return snap, nil
}

func (f *fakeProvider) set(snap models.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[snap.Subject] = snap
}

// blockFetches makes every Fetch wait on ch until it is closed.
func (f *fakeProvider) blockFetches(ch chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = ch
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fixedScorer returns one scripted sentiment for every subject.
type fixedScorer struct {
	mu     sync.Mutex
	result sentiment.Sentiment
	err    error
	calls  int
}

func (f *fixedScorer) Score(ctx context.Context, subject models.Subject) (sentiment.Sentiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return sentiment.Sentiment{}, f.err
	}
	return f.result, nil
}

func (f *fixedScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
