package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"stock-sentinel/internal/errors"
	"stock-sentinel/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db             *sql.DB
	watchlistLimit int
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string, watchlistLimit int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:             db,
		watchlistLimit: watchlistLimit,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Per-user tracked subjects
	CREATE TABLE IF NOT EXISTS watchlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(owner_id, subject)
	);

	-- User-configured alert rules
	CREATE TABLE IF NOT EXISTS alert_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		kind TEXT NOT NULL,
		threshold REAL NOT NULL,
		enabled INTEGER DEFAULT 1,
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Alert event log: delivered alerts and suppressed candidates both land here
	CREATE TABLE IF NOT EXISTS alert_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		kind TEXT NOT NULL,
		trigger_value REAL NOT NULL,
		measured_price REAL NOT NULL,
		confidence REAL NOT NULL,
		sentiment_score REAL,
		delivered INTEGER NOT NULL,
		suppress_reason TEXT,
		timestamp DATETIME NOT NULL
	);

	-- Per-user delivery preferences
	CREATE TABLE IF NOT EXISTS notification_settings (
		owner_id TEXT PRIMARY KEY,
		dm_enabled INTEGER DEFAULT 1,
		quiet_hours_start INTEGER DEFAULT 22,
		quiet_hours_end INTEGER DEFAULT 7,
		max_alerts_per_day INTEGER DEFAULT 50,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_rules_enabled ON alert_rules(enabled, subject);
	CREATE INDEX IF NOT EXISTS idx_events_owner_time ON alert_events(owner_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_time ON alert_events(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// AddToWatchlist adds a subject for a user, enforcing the per-user cap.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, ownerID string, subject models.Subject) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM watchlist WHERE owner_id = ?`, ownerID).Scan(&count); err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	if count >= s.watchlistLimit {
		return errors.ErrWatchlistFull
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO watchlist (owner_id, subject) VALUES (?, ?)`,
		ownerID, subject.String()); err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// RemoveFromWatchlist removes a subject from a user's watchlist.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, ownerID string, subject models.Subject) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE owner_id = ? AND subject = ?`,
		ownerID, subject.String())
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// ListWatchlist returns a user's watchlist in insertion order.
func (s *SQLiteStore) ListWatchlist(ctx context.Context, ownerID string) ([]models.Subject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject FROM watchlist WHERE owner_id = ? ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	return scanSubjects(rows)
}

// ListTrackedSubjects returns every distinct subject that appears on any
// watchlist or enabled rule.
func (s *SQLiteStore) ListTrackedSubjects(ctx context.Context) ([]models.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject FROM watchlist
		UNION
		SELECT subject FROM alert_rules WHERE enabled = 1
		ORDER BY subject`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	return scanSubjects(rows)
}

func scanSubjects(rows *sql.Rows) ([]models.Subject, error) {
	var subjects []models.Subject
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
		}
		subjects = append(subjects, models.NewSubject(raw))
	}
	return subjects, rows.Err()
}

// CreateRule inserts a rule and fills its ID.
func (s *SQLiteStore) CreateRule(ctx context.Context, rule *models.AlertRule) error {
	if !rule.Kind.Valid() {
		return errors.NewValidationError("kind", string(rule.Kind), "unknown rule kind")
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_rules (owner_id, subject, kind, threshold, enabled, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.OwnerID, rule.Subject.String(), string(rule.Kind), rule.Threshold,
		rule.Enabled, rule.Notes, rule.CreatedAt)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}

	rule.ID, err = res.LastInsertId()
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// SetRuleEnabled toggles a rule.
func (s *SQLiteStore) SetRuleEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alert_rules SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// DeleteRule removes a rule.
func (s *SQLiteStore) DeleteRule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// ListRules returns all of a user's rules, newest first.
func (s *SQLiteStore) ListRules(ctx context.Context, ownerID string) ([]models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, subject, kind, threshold, enabled, notes, created_at
		FROM alert_rules WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	return scanRules(rows)
}

// ListEnabledRules returns every enabled rule across all users.
func (s *SQLiteStore) ListEnabledRules(ctx context.Context) ([]models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, subject, kind, threshold, enabled, notes, created_at
		FROM alert_rules WHERE enabled = 1 ORDER BY subject`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	for rows.Next() {
		var r models.AlertRule
		var subject, kind string
		var notes sql.NullString
		if err := rows.Scan(&r.ID, &r.OwnerID, &subject, &kind, &r.Threshold,
			&r.Enabled, &notes, &r.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
		}
		r.Subject = models.NewSubject(subject)
		r.Kind = models.RuleKind(kind)
		r.Notes = notes.String
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// AppendEvent logs an alert occurrence, delivered or suppressed.
func (s *SQLiteStore) AppendEvent(ctx context.Context, event models.AlertEvent, delivered bool, suppressReason string) error {
	var score sql.NullFloat64
	if event.SentimentScore != nil {
		score = sql.NullFloat64{Float64: *event.SentimentScore, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_events
			(owner_id, subject, kind, trigger_value, measured_price, confidence,
			 sentiment_score, delivered, suppress_reason, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.OwnerID, event.Subject.String(), string(event.Kind),
		event.TriggerValue, event.MeasuredPrice, event.Confidence,
		score, delivered, suppressReason, event.Timestamp)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// RecentEvents returns the newest events first.
func (s *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, subject, kind, trigger_value, measured_price,
		       confidence, sentiment_score, delivered, suppress_reason, timestamp
		FROM alert_events ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var rec EventRecord
		var subject, kind string
		var score sql.NullFloat64
		var reason sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Event.OwnerID, &subject, &kind,
			&rec.Event.TriggerValue, &rec.Event.MeasuredPrice, &rec.Event.Confidence,
			&score, &rec.Delivered, &reason, &rec.Event.Timestamp); err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, err.Error())
		}
		rec.Event.Subject = models.NewSubject(subject)
		rec.Event.Kind = models.RuleKind(kind)
		if score.Valid {
			v := score.Float64
			rec.Event.SentimentScore = &v
		}
		rec.SuppressReason = reason.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountDeliveredSince counts delivered alerts for a user since the given
// instant. Feeds the daily alert cap.
func (s *SQLiteStore) CountDeliveredSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alert_events
		WHERE owner_id = ? AND delivered = 1 AND timestamp >= ?`,
		ownerID, since).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return count, nil
}

// GetNotificationSettings returns a user's settings, or the defaults when
// the user has never saved any.
func (s *SQLiteStore) GetNotificationSettings(ctx context.Context, ownerID string) (models.NotificationSettings, error) {
	var ns models.NotificationSettings
	ns.OwnerID = ownerID
	ns.QuietHours.OwnerID = ownerID

	err := s.db.QueryRowContext(ctx, `
		SELECT dm_enabled, quiet_hours_start, quiet_hours_end, max_alerts_per_day
		FROM notification_settings WHERE owner_id = ?`, ownerID).
		Scan(&ns.DMEnabled, &ns.QuietHours.StartHour, &ns.QuietHours.EndHour, &ns.MaxAlertsPerDay)
	if err == sql.ErrNoRows {
		return models.DefaultNotificationSettings(ownerID), nil
	}
	if err != nil {
		return ns, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return ns, nil
}

// SaveNotificationSettings upserts a user's settings.
func (s *SQLiteStore) SaveNotificationSettings(ctx context.Context, settings models.NotificationSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_settings
			(owner_id, dm_enabled, quiet_hours_start, quiet_hours_end, max_alerts_per_day, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner_id) DO UPDATE SET
			dm_enabled = excluded.dm_enabled,
			quiet_hours_start = excluded.quiet_hours_start,
			quiet_hours_end = excluded.quiet_hours_end,
			max_alerts_per_day = excluded.max_alerts_per_day,
			updated_at = CURRENT_TIMESTAMP`,
		settings.OwnerID, settings.DMEnabled,
		settings.QuietHours.StartHour, settings.QuietHours.EndHour,
		settings.MaxAlertsPerDay)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
