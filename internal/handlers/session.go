package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/maduarte95/arena-test/internal/engine"
	"github.com/maduarte95/arena-test/internal/storage"
)

type createSessionRequest struct {
	Username string            `json:"username,omitempty"`
	Prompts  map[string]string `json:"prompts,omitempty"`
}

// SessionHandler handles session lifecycle and history.
// POST /v1/sessions
// GET  /v1/sessions
// GET  /v1/sessions/{id}
// GET  /v1/sessions/{id}/history
// Turn posting under /v1/sessions/{id}/turns is delegated to TurnHandler.
type SessionHandler struct {
	engine  *engine.Engine
	storage storage.Storage
	turns   *TurnHandler
	logger  *slog.Logger
}

func NewSessionHandler(e *engine.Engine, s storage.Storage, turns *TurnHandler, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		engine:  e,
		storage: s,
		turns:   turns,
		logger:  logger,
	}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "v1" || parts[1] != "sessions" {
		writeError(w, h.logger, http.StatusNotFound, "Not found.")
		return
	}

	switch {
	case len(parts) == 2:
		switch r.Method {
		case http.MethodPost:
			h.create(w, r)
		case http.MethodGet:
			h.list(w, r)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed.")
		}
		return

	case len(parts) == 3:
		if r.Method != http.MethodGet {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
			return
		}
		h.get(w, r, parts[2])
		return

	case len(parts) == 4 && parts[3] == "turns":
		h.turns.ServeHTTP(w, r)
		return

	case len(parts) == 4 && parts[3] == "history":
		if r.Method != http.MethodGet {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
			return
		}
		h.history(w, r, parts[2])
		return
	}

	writeError(w, h.logger, http.StatusNotFound, "Not found.")
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil {
		// An empty body starts an anonymous session.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body.")
			return
		}
	}

	gs, err := h.engine.CreateSession(r.Context(), req.Username, req.Prompts)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownTemplate) {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to create session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create session.")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, gs)
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid limit parameter.")
			return
		}
		limit = parsed
	}

	sessions, err := h.storage.ListRecentSessions(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list sessions", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list sessions.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sessions)
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID.")
		return
	}

	rec, err := h.storage.GetSession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session.")
		return
	}
	if rec == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rec)
}

func (h *SessionHandler) history(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID.")
		return
	}

	hist, err := h.storage.GetHistory(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load history", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load history.")
		return
	}
	if hist == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, hist)
}
