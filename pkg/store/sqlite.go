package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"zsembells/pkg/db"
	"zsembells/pkg/model"
)

// timeLayout sorts lexicographically, so range queries work on the TEXT columns.
const timeLayout = "2006-01-02 15:04:05.000"

// Store defines the repository interface.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	ScheduleStore
	RingStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.ParseInLocation(timeLayout, v, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- Schedule ---

func (s *SQLiteStore) SaveSchedule(ctx context.Context, sch *model.Schedule) error {
	if sch.FetchedAt.IsZero() {
		sch.FetchedAt = time.Now()
	}
	payload, err := json.Marshal(sch)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO schedules (branch, payload, fetched_at) VALUES (?, ?, ?)",
		sch.ScheduleBranch, string(payload), formatTime(sch.FetchedAt))
	return err
}

func (s *SQLiteStore) LatestSchedule(ctx context.Context) (*model.Schedule, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM schedules ORDER BY id DESC LIMIT 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sch model.Schedule
	if err := json.Unmarshal([]byte(payload), &sch); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}
	return &sch, nil
}

// --- Rings ---

func (s *SQLiteStore) RecordRing(ctx context.Context, e *model.RingEvent) error {
	query := `INSERT OR REPLACE INTO ring_events (id, kind, source, rang_at, duration_ms, relays, sound, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, string(e.Kind), string(e.Source), formatTime(e.At),
		e.Duration.Milliseconds(), e.Relays, e.Sound, e.Error)
	return err
}

func (s *SQLiteStore) RecentRings(ctx context.Context, limit int) ([]*model.RingEvent, error) {
	if limit <= 0 {
		return []*model.RingEvent{}, nil
	}
	return s.queryRings(ctx, `SELECT id, kind, source, rang_at, duration_ms, relays, sound, error
		FROM ring_events ORDER BY rang_at DESC LIMIT ?`, limit)
}

func (s *SQLiteStore) RingsSince(ctx context.Context, since time.Time) ([]*model.RingEvent, error) {
	return s.queryRings(ctx, `SELECT id, kind, source, rang_at, duration_ms, relays, sound, error
		FROM ring_events WHERE rang_at >= ? ORDER BY rang_at ASC`, formatTime(since))
}

func (s *SQLiteStore) queryRings(ctx context.Context, query string, args ...any) ([]*model.RingEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*model.RingEvent{}
	for rows.Next() {
		var (
			e            model.RingEvent
			kind, source string
			at           string
			durationMS   int64
			sound, msg   sql.NullString
		)
		if err := rows.Scan(&e.ID, &kind, &source, &at, &durationMS, &e.Relays, &sound, &msg); err != nil {
			return nil, err
		}
		e.Kind = model.BellKind(kind)
		e.Source = model.RingSource(source)
		e.At = parseTime(at)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.Sound = sound.String
		e.Error = msg.String
		events = append(events, &e)
	}
	return events, rows.Err()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, formatTime(time.Now()))
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
