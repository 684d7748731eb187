package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/internal/event"

	_ "github.com/glebarez/go-sqlite"
)

// EventStore is the SQLite journal of inbox events plus the per-session reports.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates a new SQLite event store with WAL mode enabled.
func NewEventStore(dbPath string) (*EventStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// Single writer; keeps the pragmas below bound to the one connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY,
			session TEXT NOT NULL,
			type INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL,
			version INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_session ON events(session, id);`,
		`CREATE TABLE IF NOT EXISTS reports (
			session TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			payload BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &EventStore{db: db}, nil
}

// SaveEvent journals an event under its session date.
func (s *EventStore) SaveEvent(ctx context.Context, session string, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO events (id, session, type, ts, payload) VALUES (?, ?, ?, ?, ?)",
		ev.GetSeq(), session, ev.GetType(), ev.GetTs(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// GetLastSeq returns the highest event sequence number stored.
// Returns 0 if no events exist.
func (s *EventStore) GetLastSeq(ctx context.Context) (uint64, error) {
	var lastSeq sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(id) FROM events").Scan(&lastSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}
	if !lastSeq.Valid {
		return 0, nil
	}
	return uint64(lastSeq.Int64), nil
}

// LoadSessionEvents loads one session's events in sequence order.
func (s *EventStore) LoadSessionEvents(ctx context.Context, session string) ([]event.Event, error) {
	return s.queryEvents(ctx,
		"SELECT id, type, payload FROM events WHERE session = ? ORDER BY id ASC", session)
}

func (s *EventStore) queryEvents(ctx context.Context, query string, arg any) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var id int64
		var evType int
		var payload []byte

		if err := rows.Scan(&id, &evType, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		ev, err := event.Decode(event.Type(evType), payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode event %d: %w", id, err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return events, nil
}

// SaveReport stores the session report once. The first write wins;
// it returns false when a report for the session already existed.
func (s *EventStore) SaveReport(ctx context.Context, r domain.SessionReport) (bool, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return false, fmt.Errorf("failed to marshal report: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO reports (session, status, reason, payload, created_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT(session) DO NOTHING",
		r.Date, string(r.Status), r.Reason, payload, time.Now().UnixMicro(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// GetReport returns the report of a session, or nil if none was stored.
func (s *EventStore) GetReport(ctx context.Context, session string) (*domain.SessionReport, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM reports WHERE session = ?", session).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var r domain.SessionReport
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", session, err)
	}
	return &r, nil
}

// ListReports returns every stored report ordered by session date.
func (s *EventStore) ListReports(ctx context.Context) ([]domain.SessionReport, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT session, payload FROM reports ORDER BY session ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var out []domain.SessionReport
	for rows.Next() {
		var session string
		var payload []byte
		if err := rows.Scan(&session, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		var r domain.SessionReport
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report %s: %w", session, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// AuditKey is the metadata key holding the audit verdict of a session.
func AuditKey(session string) string {
	return "audit/" + session
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (s *EventStore) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table.
func (s *EventStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (s *EventStore) Close() error {
	return s.db.Close()
}
