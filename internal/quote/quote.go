// Package quote fetches point-in-time market snapshots for tracked subjects.
package quote

import (
	"context"

	"stock-sentinel/internal/models"
)

// Provider fetches a fresh snapshot for one subject. Implementations must
// honor ctx cancellation; the scheduler bounds every fetch with a per-subject
// timeout.
type Provider interface {
	Fetch(ctx context.Context, subject models.Subject) (models.Snapshot, error)
}
