// Package store provides storage backends for dialogue sessions.
//
// This file implements a PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/elashya/multi-agent/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveSession(sess models.Session) error {
	_, err := s.db.Exec(`INSERT INTO sessions (id, mode, outcome, consultant_model, customer_model, turn_pairs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET outcome=EXCLUDED.outcome, turn_pairs=EXCLUDED.turn_pairs, updated_at=EXCLUDED.updated_at`,
		sess.ID, sess.Mode, sess.Outcome, sess.ConsultantModel, sess.CustomerModel, sess.TurnPairs, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "session_id", sess.ID)
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "session_id", sess.ID, "outcome", sess.Outcome)
	return nil
}

func (s *PostgresStore) GetSession(id string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT id, mode, outcome, consultant_model, customer_model, turn_pairs, created_at, updated_at FROM sessions WHERE id = $1`, id)
	sess, err := scanSessionRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSession not found", "session_id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "session_id", id)
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *PostgresStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`SELECT id, mode, outcome, consultant_model, customer_model, turn_pairs, created_at, updated_at FROM sessions ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			slog.Error("PostgresStore ListSessions scan failed", "error", err)
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListSessions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("PostgresStore ListSessions succeeded", "count", len(sessions))
	return sessions, nil
}

func (s *PostgresStore) AddTurn(sessionID string, turn models.Turn) error {
	_, err := s.db.Exec(`INSERT INTO turns (session_id, ordinal, role, content) VALUES ($1, $2, $3, $4)`,
		sessionID, turn.Ordinal, turn.Role, turn.Content)
	if err != nil {
		slog.Error("PostgresStore AddTurn failed", "error", err, "session_id", sessionID, "ordinal", turn.Ordinal)
		return fmt.Errorf("failed to insert turn %d for session %s: %w", turn.Ordinal, sessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetTurns(sessionID string) ([]models.Turn, error) {
	rows, err := s.db.Query(`SELECT ordinal, role, content FROM turns WHERE session_id = $1 ORDER BY ordinal`, sessionID)
	if err != nil {
		slog.Error("PostgresStore GetTurns query failed", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to query turns for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.Ordinal, &t.Role, &t.Content); err != nil {
			slog.Error("PostgresStore GetTurns scan failed", "error", err, "session_id", sessionID)
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetTurns rows iteration failed", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to iterate turn rows: %w", err)
	}
	return turns, nil
}

func (s *PostgresStore) SaveDialogueState(sessionID string, state models.DialogueState) error {
	encoded, err := encodeState(state)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO dialogue_states (session_id, state_json, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET state_json=EXCLUDED.state_json, updated_at=EXCLUDED.updated_at`,
		sessionID, encoded, time.Now())
	if err != nil {
		slog.Error("PostgresStore SaveDialogueState failed", "error", err, "session_id", sessionID)
		return fmt.Errorf("failed to save dialogue state for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetDialogueState(sessionID string) (*models.DialogueState, error) {
	var encoded string
	err := s.db.QueryRow(`SELECT state_json FROM dialogue_states WHERE session_id = $1`, sessionID).Scan(&encoded)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetDialogueState not found", "session_id", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetDialogueState failed", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to get dialogue state for session %s: %w", sessionID, err)
	}
	return decodeState(encoded)
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
