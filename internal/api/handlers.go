package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elashya/multi-agent/internal/dialogue"
	"github.com/elashya/multi-agent/internal/models"
)

// stepRequest drives one pair of an existing or new session. An empty
// session_id starts a fresh session.
type stepRequest struct {
	SessionID string `json:"session_id,omitempty"`
	models.RunRequest
}

// sessionResult is the response payload for session endpoints.
type sessionResult struct {
	Session models.Session       `json:"session"`
	State   models.DialogueState `json:"state"`
	Turns   []models.Turn        `json:"turns,omitempty"`
}

// sessionsHandler routes /sessions requests.
func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createSessionHandler(w, r)
	case http.MethodGet:
		s.listSessionsHandler(w, r)
	default:
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
	}
}

// sessionHandler routes /sessions/... requests: the step endpoint, single
// session lookup, and transcript export.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	if rest == "step" {
		if r.Method != http.MethodPost {
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
			return
		}
		s.stepSessionHandler(w, r)
		return
	}

	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
			return
		}
		s.getSessionHandler(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "transcript":
		if r.Method != http.MethodGet {
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
			return
		}
		s.transcriptHandler(w, r, parts[0])
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
	}
}

// createSessionHandler runs a full dialogue to a terminal outcome and
// persists the session, its turns, and the final state.
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.createSessionHandler: processing request", "method", r.Method)

	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Server.createSessionHandler: failed to decode request body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON body"))
		return
	}
	s.applyDefaults(&req)
	if err := req.Validate(); err != nil {
		slog.Error("Server.createSessionHandler: invalid run request", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	ctrl, err := dialogue.NewController(s.generator, req)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	sessionID := uuid.New().String()
	createdAt := time.Now()
	state, runErr := ctrl.Run(r.Context())
	if runErr != nil {
		// A failed run is still persisted; the outcome carries the signal.
		slog.Error("Server.createSessionHandler: dialogue run failed", "session_id", sessionID, "error", runErr)
	}

	turns := ctrl.Transcript().All()
	result, err := s.persistSession(sessionID, req, state, turns, createdAt)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to persist session"))
		return
	}

	if s.opts.ExportDir != "" && state.Outcome != models.OutcomeFailed {
		if _, _, err := ctrl.Transcript().ExportFiles(s.opts.ExportDir); err != nil {
			slog.Error("Server.createSessionHandler: transcript export failed", "session_id", sessionID, "error", err)
		}
	}

	slog.Info("Server.createSessionHandler: session completed", "session_id", sessionID,
		"outcome", state.Outcome, "turn_pairs", state.TurnPairs)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Session completed", result))
}

// stepSessionHandler executes exactly one consultant/customer pair. With no
// session_id it starts a new session; otherwise it resumes the stored state.
func (s *Server) stepSessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.stepSessionHandler: processing request", "method", r.Method)

	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Server.stepSessionHandler: failed to decode request body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON body"))
		return
	}
	s.applyDefaults(&req.RunRequest)
	if err := req.RunRequest.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	sessionID := req.SessionID
	createdAt := time.Now()
	state := models.NewDialogueState(req.Mode)
	var priorTurns []models.Turn

	if sessionID == "" {
		sessionID = uuid.New().String()
		slog.Debug("Server.stepSessionHandler: starting new session", "session_id", sessionID, "mode", req.Mode)
	} else {
		sess, err := s.st.GetSession(sessionID)
		if err != nil {
			slog.Error("Server.stepSessionHandler: failed to load session", "session_id", sessionID, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
			return
		}
		if sess == nil {
			writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrSessionNotFound.Error()))
			return
		}
		createdAt = sess.CreatedAt

		stored, err := s.st.GetDialogueState(sessionID)
		if err != nil {
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load dialogue state"))
			return
		}
		if stored != nil {
			state = *stored
		}
		priorTurns, err = s.st.GetTurns(sessionID)
		if err != nil {
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load turns"))
			return
		}
	}

	transcript := dialogue.FromTurns(priorTurns)
	ctrl, err := dialogue.NewController(s.generator, req.RunRequest, dialogue.WithTranscript(transcript))
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	state, stepErr := ctrl.Step(r.Context(), state)
	if stepErr != nil {
		slog.Error("Server.stepSessionHandler: dialogue step failed", "session_id", sessionID, "error", stepErr)
	}

	all := transcript.All()
	if err := s.persistStep(sessionID, req.RunRequest, state, all[len(priorTurns):], createdAt); err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to persist session"))
		return
	}

	slog.Debug("Server.stepSessionHandler: pair completed", "session_id", sessionID,
		"outcome", state.Outcome, "turn_pairs", state.TurnPairs, "verdict", state.LastVerdict)
	writeJSONResponse(w, http.StatusOK, models.Success(sessionResult{
		Session: s.sessionRecord(sessionID, req.RunRequest, state, createdAt),
		State:   state,
		Turns:   all,
	}))
}

// listSessionsHandler returns all persisted session summaries.
func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.st.ListSessions()
	if err != nil {
		slog.Error("Server.listSessionsHandler: failed to list sessions", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list sessions"))
		return
	}
	slog.Debug("Server.listSessionsHandler: sessions listed", "count", len(sessions))
	writeJSONResponse(w, http.StatusOK, models.Success(sessions))
}

// getSessionHandler returns one session with its state and turns.
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.st.GetSession(id)
	if err != nil {
		slog.Error("Server.getSessionHandler: failed to load session", "session_id", id, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}
	if sess == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrSessionNotFound.Error()))
		return
	}

	turns, err := s.st.GetTurns(id)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load turns"))
		return
	}
	result := sessionResult{Session: *sess, Turns: turns}
	if state, err := s.st.GetDialogueState(id); err == nil && state != nil {
		result.State = *state
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// transcriptHandler exports a stored session's transcript without mutating it.
// The format query parameter selects markdown (default) or json.
func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.st.GetSession(id)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}
	if sess == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrSessionNotFound.Error()))
		return
	}
	turns, err := s.st.GetTurns(id)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load turns"))
		return
	}
	transcript := dialogue.FromTurns(turns)

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		if _, err := fmt.Fprint(w, transcript.ExportMarkdown()); err != nil {
			slog.Error("Server.transcriptHandler: failed to write markdown transcript", "session_id", id, "error", err)
		}
	case "json":
		text, err := transcript.ExportJSON()
		if err != nil {
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to encode transcript"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := fmt.Fprint(w, text); err != nil {
			slog.Error("Server.transcriptHandler: failed to write JSON transcript", "session_id", id, "error", err)
		}
	default:
		writeJSONResponse(w, http.StatusBadRequest, models.Error(fmt.Sprintf("Unsupported transcript format: %s", format)))
	}
}

// applyDefaults fills unset request fields from the server's configured
// defaults.
func (s *Server) applyDefaults(req *models.RunRequest) {
	d := s.opts.Defaults
	if req.Mode == "" {
		req.Mode = d.Mode
	}
	if req.Consultant.Model == "" {
		req.Consultant = d.Consultant
	}
	if req.Customer.Model == "" {
		req.Customer = d.Customer
	}
	if req.MaxTurns == 0 {
		req.MaxTurns = d.MaxTurns
	}
}

// sessionRecord builds the persisted summary for a session.
func (s *Server) sessionRecord(id string, req models.RunRequest, state models.DialogueState, createdAt time.Time) models.Session {
	return models.Session{
		ID:              id,
		Mode:            req.Mode,
		Outcome:         state.Outcome,
		ConsultantModel: req.Consultant.Model,
		CustomerModel:   req.Customer.Model,
		TurnPairs:       state.TurnPairs,
		CreatedAt:       createdAt,
		UpdatedAt:       time.Now(),
	}
}

// persistSession saves a completed session with all of its turns and state.
func (s *Server) persistSession(id string, req models.RunRequest, state models.DialogueState, turns []models.Turn, createdAt time.Time) (sessionResult, error) {
	sess := s.sessionRecord(id, req, state, createdAt)
	if err := s.st.SaveSession(sess); err != nil {
		slog.Error("Server.persistSession: failed to save session", "session_id", id, "error", err)
		return sessionResult{}, err
	}
	for _, turn := range turns {
		if err := s.st.AddTurn(id, turn); err != nil {
			slog.Error("Server.persistSession: failed to save turn", "session_id", id, "ordinal", turn.Ordinal, "error", err)
			return sessionResult{}, err
		}
	}
	if err := s.st.SaveDialogueState(id, state); err != nil {
		slog.Error("Server.persistSession: failed to save dialogue state", "session_id", id, "error", err)
		return sessionResult{}, err
	}
	return sessionResult{Session: sess, State: state, Turns: turns}, nil
}

// persistStep saves the session summary, the turns appended by one step, and
// the updated state.
func (s *Server) persistStep(id string, req models.RunRequest, state models.DialogueState, newTurns []models.Turn, createdAt time.Time) error {
	if err := s.st.SaveSession(s.sessionRecord(id, req, state, createdAt)); err != nil {
		slog.Error("Server.persistStep: failed to save session", "session_id", id, "error", err)
		return err
	}
	for _, turn := range newTurns {
		if err := s.st.AddTurn(id, turn); err != nil {
			slog.Error("Server.persistStep: failed to save turn", "session_id", id, "ordinal", turn.Ordinal, "error", err)
			return err
		}
	}
	if err := s.st.SaveDialogueState(id, state); err != nil {
		slog.Error("Server.persistStep: failed to save dialogue state", "session_id", id, "error", err)
		return err
	}
	return nil
}
