package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/selfexplain/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		trial_type TEXT NOT NULL DEFAULT 'Trial_1',
		attempt_counts_json TEXT NOT NULL,
		true_attempts_json TEXT NOT NULL,
		history_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);

	CREATE TABLE IF NOT EXISTS interactions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		trial TEXT NOT NULL DEFAULT '',
		speaker TEXT NOT NULL,
		concept TEXT NOT NULL,
		message TEXT NOT NULL,
		attempt INTEGER NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id, timestamp);

	CREATE TABLE IF NOT EXISTS recordings (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recordings_session ON recordings(session_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves a session by its session ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `
		SELECT session_id, trial_type, attempt_counts_json, true_attempts_json, history_json,
		       created_at, updated_at
		FROM sessions WHERE session_id = ?`

	row := s.db.QueryRowContext(ctx, query, sessionID)

	var session domain.Session
	var attemptsJSON, trueAttemptsJSON, historyJSON string
	var createdAt, updatedAt int64

	err := row.Scan(
		&session.SessionID, &session.TrialType, &attemptsJSON, &trueAttemptsJSON, &historyJSON,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	if err := json.Unmarshal([]byte(attemptsJSON), &session.AttemptCounts); err != nil {
		return nil, fmt.Errorf("decode attempt counts: %w", err)
	}
	if err := json.Unmarshal([]byte(trueAttemptsJSON), &session.TrueAttempts); err != nil {
		return nil, fmt.Errorf("decode true attempts: %w", err)
	}
	if err := json.Unmarshal([]byte(historyJSON), &session.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)

	return &session, nil
}

// UpsertSession creates or updates a session snapshot.
func (s *SQLiteStore) UpsertSession(ctx context.Context, session *domain.Session) error {
	attemptsJSON, err := json.Marshal(session.AttemptCounts)
	if err != nil {
		return fmt.Errorf("encode attempt counts: %w", err)
	}
	trueAttemptsJSON, err := json.Marshal(session.TrueAttempts)
	if err != nil {
		return fmt.Errorf("encode true attempts: %w", err)
	}
	historyJSON, err := json.Marshal(session.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	trialType := session.TrialType
	if trialType == "" {
		trialType = domain.TrialOne
	}

	query := `
	INSERT INTO sessions (session_id, trial_type, attempt_counts_json, true_attempts_json, history_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		trial_type = excluded.trial_type,
		attempt_counts_json = excluded.attempt_counts_json,
		true_attempts_json = excluded.true_attempts_json,
		history_json = excluded.history_json,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		session.SessionID, trialType, string(attemptsJSON), string(trueAttemptsJSON),
		string(historyJSON), session.CreatedAt.Unix(), session.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// AppendInteraction appends one turn to the interaction log.
func (s *SQLiteStore) AppendInteraction(ctx context.Context, rec *domain.InteractionRecord) error {
	query := `
	INSERT INTO interactions (id, session_id, trial, speaker, concept, message, attempt, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.SessionID, rec.Trial, rec.Speaker, rec.Concept,
		rec.Message, rec.Attempt, rec.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// ListInteractions retrieves all interactions for a session in chronological order.
func (s *SQLiteStore) ListInteractions(ctx context.Context, sessionID string) ([]*domain.InteractionRecord, error) {
	query := `
		SELECT id, session_id, trial, speaker, concept, message, attempt, timestamp
		FROM interactions WHERE session_id = ? ORDER BY timestamp, id`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	return scanInteractions(rows)
}

// ExportInteractions retrieves the full interaction log across all sessions.
func (s *SQLiteStore) ExportInteractions(ctx context.Context) ([]*domain.InteractionRecord, error) {
	query := `
		SELECT id, session_id, trial, speaker, concept, message, attempt, timestamp
		FROM interactions ORDER BY timestamp, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	return scanInteractions(rows)
}

func scanInteractions(rows *sql.Rows) ([]*domain.InteractionRecord, error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close interaction rows", "error", closeErr)
		}
	}()

	var recs []*domain.InteractionRecord
	for rows.Next() {
		var rec domain.InteractionRecord
		var ts int64

		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.Trial, &rec.Speaker, &rec.Concept,
			&rec.Message, &rec.Attempt, &ts,
		); err != nil {
			return nil, fmt.Errorf("scan interaction row: %w", err)
		}

		rec.Timestamp = time.Unix(ts, 0)
		recs = append(recs, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}

	return recs, nil
}

// SaveRecording stores metadata for an uploaded audio recording.
func (s *SQLiteStore) SaveRecording(ctx context.Context, rec *domain.Recording) error {
	query := `
	INSERT INTO recordings (id, session_id, filename, size_bytes, created_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.SessionID, rec.Filename, rec.SizeBytes, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save recording: %w", err)
	}
	return nil
}

// ListRecordings retrieves recording metadata for a session.
func (s *SQLiteStore) ListRecordings(ctx context.Context, sessionID string) ([]*domain.Recording, error) {
	query := `
		SELECT id, session_id, filename, size_bytes, created_at
		FROM recordings WHERE session_id = ? ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close recording rows", "error", closeErr)
		}
	}()

	var recs []*domain.Recording
	for rows.Next() {
		var rec domain.Recording
		var createdAt int64

		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Filename, &rec.SizeBytes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan recording row: %w", err)
		}

		rec.CreatedAt = time.Unix(createdAt, 0)
		recs = append(recs, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recordings: %w", err)
	}

	return recs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
