package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elashya/multi-agent/internal/models"
)

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use a postgres:// URL or libpq key=value form; everything else is treated
// as an SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// scanSession scans a Session from sql.Rows.
func scanSession(rows *sql.Rows) (models.Session, error) {
	var s models.Session
	err := rows.Scan(&s.ID, &s.Mode, &s.Outcome, &s.ConsultantModel, &s.CustomerModel, &s.TurnPairs, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, fmt.Errorf("scan session failed: %w", err)
	}
	return s, nil
}

// scanSessionRow scans a Session from a single sql.Row.
func scanSessionRow(row *sql.Row) (models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Mode, &s.Outcome, &s.ConsultantModel, &s.CustomerModel, &s.TurnPairs, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	return s, nil
}

// encodeState serializes a DialogueState for the dialogue_states table.
func encodeState(state models.DialogueState) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to encode dialogue state: %w", err)
	}
	return string(data), nil
}

// decodeState parses a DialogueState from its stored JSON form.
func decodeState(data string) (*models.DialogueState, error) {
	var state models.DialogueState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to decode dialogue state: %w", err)
	}
	return &state, nil
}
