package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/p-n-ai/pai-reader/internal/agent"
	"github.com/p-n-ai/pai-reader/internal/content"
	"github.com/p-n-ai/pai-reader/internal/export"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

// ChannelName is the channel recorded on events from HTTP sessions.
const ChannelName = "http"

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 4 << 10

// Response helpers

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// SessionView is the JSON representation of a session.
type SessionView struct {
	ID        string                `json:"id"`
	CreatedAt time.Time             `json:"created_at"`
	Snapshot  quiz.Snapshot         `json:"snapshot"`
	Review    []quiz.QuestionReview `json:"review,omitempty"`
	Applied   *bool                 `json:"applied,omitempty"`
}

func viewOf(e *agent.Entry, snap quiz.Snapshot) SessionView {
	return SessionView{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
		Snapshot:  snap,
		Review:    quiz.Review(e.Session.Catalog(), snap),
	}
}

// CatalogView is the reference data clients need. The answer key is
// omitted by the Question JSON encoding.
type CatalogView struct {
	Levels   []content.LevelInfo `json:"levels"`
	Topics   []content.TopicInfo `json:"topics"`
	Material content.Material    `json:"material"`
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	for name, c := range s.checks {
		if err := c.HealthCheck(r.Context()); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			respondError(w, http.StatusServiceUnavailable, "not_ready", name+" not ready")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"sessions": s.store.Len(),
	})
}

// Catalog and stats handlers

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	c := s.store.Catalog()
	respondJSON(w, http.StatusOK, CatalogView{
		Levels:   c.Levels(),
		Topics:   c.Topics(),
		Material: c.Material(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		respondError(w, http.StatusNotFound, "stats_disabled", "statistics are not configured")
		return
	}
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		slog.Error("failed to read stats", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to read statistics")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Session handlers

type createSessionRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req createSessionRequest
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	id := uuid.NewString()
	entry, _ := s.store.GetOrCreate(id, agent.Owner{UserID: req.UserID, Channel: ChannelName})

	slog.Info("session created", "session_id", id, "user_id", req.UserID)
	respondJSON(w, http.StatusCreated, viewOf(entry, entry.Session.Snapshot()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, viewOf(entry, entry.Session.Snapshot()))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(id); err != nil {
		respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// ActionRequest is the body of POST /sessions/{id}/actions.
type ActionRequest struct {
	Type       quiz.ActionKind `json:"type"`
	Level      content.Level   `json:"level,omitempty"`
	Topic      content.Topic   `json:"topic,omitempty"`
	QuestionID *int            `json:"question_id,omitempty"`
	Option     *int            `json:"option,omitempty"`
}

// Action validates the request shape and converts it. Values outside the
// catalog pass through; the session ignores them.
func (req ActionRequest) Action() (quiz.Action, error) {
	if !req.Type.Known() {
		return quiz.Action{}, fmt.Errorf("unknown action type %q", req.Type)
	}
	switch req.Type {
	case quiz.ActionSelectLevel:
		if req.Level == "" {
			return quiz.Action{}, errors.New("level is required")
		}
		return quiz.SelectLevel(req.Level), nil
	case quiz.ActionToggleTopic:
		if req.Topic == "" {
			return quiz.Action{}, errors.New("topic is required")
		}
		return quiz.ToggleTopic(req.Topic), nil
	case quiz.ActionSelectAnswer:
		if req.QuestionID == nil || req.Option == nil {
			return quiz.Action{}, errors.New("question_id and option are required")
		}
		return quiz.SelectAnswer(*req.QuestionID, *req.Option), nil
	}
	return quiz.Action{Kind: req.Type}, nil
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	action, err := req.Action()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_action", err.Error())
		return
	}

	snap, applied := entry.Session.TryApply(action)

	view := viewOf(entry, snap)
	view.Applied = &applied
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	snap := entry.Session.Snapshot()
	if !snap.Submitted {
		respondError(w, http.StatusConflict, "not_submitted", "submit the quiz before exporting results")
		return
	}

	f, err := export.Workbook(entry.Session.Catalog(), snap, export.Meta{SessionID: entry.ID, GeneratedAt: s.now()})
	if err != nil {
		slog.Error("failed to build workbook", "error", err, "session_id", entry.ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to build workbook")
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="results-%s.xlsx"`, entry.ID))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		slog.Error("failed to write workbook", "error", err, "session_id", entry.ID)
	}
}

// lookup resolves the {id} URL parameter, responding on failure.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*agent.Entry, bool) {
	id, ok := sessionID(w, r)
	if !ok {
		return nil, false
	}
	entry, err := s.store.Get(id)
	if err != nil {
		respondLookupError(w, err)
		return nil, false
	}
	return entry, true
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "session id must be a UUID")
		return "", false
	}
	return id, true
}

func respondLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, agent.ErrSessionNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	respondError(w, http.StatusInternalServerError, "internal_error", "failed to load session")
}

// decodeOptional decodes a JSON body, treating an empty body as absent.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
