// Package store provides storage backends for dialogue sessions.
//
// It includes an in-memory store and persistent SQLite and PostgreSQL
// backends behind the same interface.
package store

import (
	"sort"
	"sync"

	"github.com/elashya/multi-agent/internal/models"
)

// Store persists sessions, their turns, and in-flight dialogue state.
// Lookups for missing records return nil without an error.
type Store interface {
	SaveSession(s models.Session) error
	GetSession(id string) (*models.Session, error)
	ListSessions() ([]models.Session, error)
	AddTurn(sessionID string, turn models.Turn) error
	GetTurns(sessionID string) ([]models.Turn, error)
	SaveDialogueState(sessionID string, state models.DialogueState) error
	GetDialogueState(sessionID string) (*models.DialogueState, error)
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the database connection string: a file path for SQLite or a
	// postgres:// / key=value DSN for PostgreSQL.
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore is a simple in-memory store for sessions. It backs tests and
// DSN-less runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	turns    map[string][]models.Turn
	states   map[string]models.DialogueState
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]models.Session),
		turns:    make(map[string][]models.Turn),
		states:   make(map[string]models.DialogueState),
	}
}

func (s *InMemoryStore) SaveSession(sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *InMemoryStore) GetSession(id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *InMemoryStore) ListSessions() ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) AddTurn(sessionID string, turn models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[sessionID] = append(s.turns[sessionID], turn)
	return nil
}

func (s *InMemoryStore) GetTurns(sessionID string) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[sessionID]
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *InMemoryStore) SaveDialogueState(sessionID string, state models.DialogueState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = state
	return nil
}

func (s *InMemoryStore) GetDialogueState(sessionID string) (*models.DialogueState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sessionID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
