// Package store provides data persistence for watchlists, alert rules,
// notification settings and the alert event log.
package store

import (
	"context"
	"time"

	"stock-sentinel/internal/models"
)

// EventRecord is a logged alert occurrence. Suppressed candidates are logged
// with Delivered false and the suppressing filter's name.
type EventRecord struct {
	ID             int64
	Event          models.AlertEvent
	Delivered      bool
	SuppressReason string
}

// Store defines the persistence interface for the engine.
type Store interface {
	// Watchlist
	AddToWatchlist(ctx context.Context, ownerID string, subject models.Subject) error
	RemoveFromWatchlist(ctx context.Context, ownerID string, subject models.Subject) error
	ListWatchlist(ctx context.Context, ownerID string) ([]models.Subject, error)
	// ListTrackedSubjects returns the distinct subjects across all
	// watchlists and enabled rules. This is the scheduler's poll set.
	ListTrackedSubjects(ctx context.Context) ([]models.Subject, error)

	// Alert rules
	CreateRule(ctx context.Context, rule *models.AlertRule) error
	SetRuleEnabled(ctx context.Context, id int64, enabled bool) error
	DeleteRule(ctx context.Context, id int64) error
	ListRules(ctx context.Context, ownerID string) ([]models.AlertRule, error)
	ListEnabledRules(ctx context.Context) ([]models.AlertRule, error)

	// Event log
	AppendEvent(ctx context.Context, event models.AlertEvent, delivered bool, suppressReason string) error
	RecentEvents(ctx context.Context, limit int) ([]EventRecord, error)
	CountDeliveredSince(ctx context.Context, ownerID string, since time.Time) (int, error)

	// Notification settings
	GetNotificationSettings(ctx context.Context, ownerID string) (models.NotificationSettings, error)
	SaveNotificationSettings(ctx context.Context, settings models.NotificationSettings) error

	Close() error
}
