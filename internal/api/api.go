// Package api provides HTTP handlers and the main API server logic for the
// two-assistant mediator.
//
// It exposes RESTful endpoints for running dialogue sessions, stepping them
// one pair at a time, and exporting transcripts. The API integrates with the
// genai, dialogue, and store modules.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/elashya/multi-agent/internal/dialogue"
	"github.com/elashya/multi-agent/internal/genai"
	"github.com/elashya/multi-agent/internal/models"
	"github.com/elashya/multi-agent/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// ExportDir is where completed session transcripts are written. Empty
	// disables file export.
	ExportDir string
	// Defaults fills in unset fields of incoming run requests.
	Defaults models.RunRequest
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithExportDir enables transcript file export into the given directory.
func WithExportDir(dir string) Option {
	return func(o *Opts) { o.ExportDir = dir }
}

// WithDefaults sets the default run request applied to incoming sessions.
func WithDefaults(defaults models.RunRequest) Option {
	return func(o *Opts) { o.Defaults = defaults }
}

// Server wires the dialogue controller, generator, and store behind HTTP.
type Server struct {
	generator dialogue.Generator
	st        store.Store
	opts      Opts
}

// NewServer builds a server from its collaborators.
func NewServer(generator dialogue.Generator, st store.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{generator: generator, st: st, opts: cfg}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", s.sessionsHandler)
	mux.HandleFunc("/sessions/", s.sessionHandler)
	return mux
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	slog.Info("Mediator API running", "addr", s.opts.Addr)
	return http.ListenAndServe(s.opts.Addr, s.Handler())
}

// Run assembles the modules from their options and starts the API server.
// A missing API credential fails fast before any endpoint is served.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize GenAI client: %w", err)
	}

	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	return NewServer(client, st, apiOpts...).Start()
}

// buildStore selects a backend from the configured DSN, falling back to the
// in-memory store when no DSN is provided.
func buildStore(opts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(opts...)
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", cfg.DSN)
	return store.NewSQLiteStore(opts...)
}
