// Package store provides storage backends for dialogue sessions.
//
// This file implements an SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/elashya/multi-agent/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveSession(sess models.Session) error {
	_, err := s.db.Exec(`INSERT INTO sessions (id, mode, outcome, consultant_model, customer_model, turn_pairs, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET outcome=excluded.outcome, turn_pairs=excluded.turn_pairs, updated_at=excluded.updated_at`,
		sess.ID, sess.Mode, sess.Outcome, sess.ConsultantModel, sess.CustomerModel, sess.TurnPairs, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "session_id", sess.ID)
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "session_id", sess.ID, "outcome", sess.Outcome)
	return nil
}

func (s *SQLiteStore) GetSession(id string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT id, mode, outcome, consultant_model, customer_model, turn_pairs, created_at, updated_at FROM sessions WHERE id = ?`, id)
	sess, err := scanSessionRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSession not found", "session_id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "session_id", id)
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *SQLiteStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`SELECT id, mode, outcome, consultant_model, customer_model, turn_pairs, created_at, updated_at FROM sessions ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			slog.Error("SQLiteStore ListSessions scan failed", "error", err)
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListSessions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("SQLiteStore ListSessions succeeded", "count", len(sessions))
	return sessions, nil
}

func (s *SQLiteStore) AddTurn(sessionID string, turn models.Turn) error {
	_, err := s.db.Exec(`INSERT INTO turns (session_id, ordinal, role, content) VALUES (?, ?, ?, ?)`,
		sessionID, turn.Ordinal, turn.Role, turn.Content)
	if err != nil {
		slog.Error("SQLiteStore AddTurn failed", "error", err, "session_id", sessionID, "ordinal", turn.Ordinal)
		return fmt.Errorf("failed to insert turn %d for session %s: %w", turn.Ordinal, sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetTurns(sessionID string) ([]models.Turn, error) {
	rows, err := s.db.Query(`SELECT ordinal, role, content FROM turns WHERE session_id = ? ORDER BY ordinal`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore GetTurns query failed", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to query turns for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.Ordinal, &t.Role, &t.Content); err != nil {
			slog.Error("SQLiteStore GetTurns scan failed", "error", err, "session_id", sessionID)
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetTurns rows iteration failed", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to iterate turn rows: %w", err)
	}
	slog.Debug("SQLiteStore GetTurns succeeded", "session_id", sessionID, "count", len(turns))
	return turns, nil
}

func (s *SQLiteStore) SaveDialogueState(sessionID string, state models.DialogueState) error {
	encoded, err := encodeState(state)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO dialogue_states (session_id, state_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET state_json=excluded.state_json, updated_at=excluded.updated_at`,
		sessionID, encoded, time.Now())
	if err != nil {
		slog.Error("SQLiteStore SaveDialogueState failed", "error", err, "session_id", sessionID)
		return fmt.Errorf("failed to save dialogue state for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetDialogueState(sessionID string) (*models.DialogueState, error) {
	var encoded string
	err := s.db.QueryRow(`SELECT state_json FROM dialogue_states WHERE session_id = ?`, sessionID).Scan(&encoded)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetDialogueState not found", "session_id", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetDialogueState failed", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to get dialogue state for session %s: %w", sessionID, err)
	}
	return decodeState(encoded)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
