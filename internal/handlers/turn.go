package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maduarte95/arena-test/internal/engine"
	"github.com/maduarte95/arena-test/pkg/chat"
)

const (
	turnTimeout   = 60 * time.Second
	streamTimeout = 120 * time.Second
)

// TurnHandler processes human turns.
// POST /v1/sessions/{id}/turns
// With ?stream=true the Game Master narrative is delivered as SSE
// "chunk" events followed by a single "result" event.
type TurnHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewTurnHandler(e *engine.Engine, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		engine: e,
		logger: logger,
	}
}

func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[0] != "v1" || parts[1] != "sessions" || parts[3] != "turns" {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/sessions/{id}/turns")
		return
	}
	sessionID, err := uuid.Parse(parts[2])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID.")
		return
	}

	var req chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'message' field.")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("stream") == "true" {
		h.streamTurn(w, r, sessionID, req.Message)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), turnTimeout)
	defer cancel()

	result, err := h.engine.HumanTurn(ctx, sessionID, req.Message, nil)
	if err != nil {
		h.writeTurnError(w, sessionID, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *TurnHandler) streamTurn(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID, message string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, http.StatusInternalServerError, "Streaming not supported.")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ctx, cancel := context.WithTimeout(r.Context(), streamTimeout)
	defer cancel()

	result, err := h.engine.HumanTurn(ctx, sessionID, message, func(text string) {
		h.sendSSE(w, flusher, "chunk", map[string]string{"text": text})
	})
	if err != nil {
		h.logger.Warn("Streaming turn failed", "session_id", sessionID, "error", err)
		h.sendSSE(w, flusher, "error", map[string]string{"error": err.Error()})
		return
	}

	h.sendSSE(w, flusher, "result", result)
}

// sendSSE writes a Server-Sent Event to the client.
func (h *TurnHandler) sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write SSE event", "error", err)
		return
	}
	flusher.Flush()
}

func (h *TurnHandler) writeTurnError(w http.ResponseWriter, sessionID uuid.UUID, err error) {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound):
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
	case errors.Is(err, engine.ErrGameOver):
		writeError(w, h.logger, http.StatusConflict, "Game is already over.")
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("Turn timed out", "session_id", sessionID)
		writeError(w, h.logger, http.StatusGatewayTimeout, "Turn timed out.")
	default:
		h.logger.Error("Turn failed", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to process turn.")
	}
}
