package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maduarte95/arena-test/internal/engine"
	"github.com/maduarte95/arena-test/internal/storage"
	"github.com/maduarte95/arena-test/pkg/arena"
)

func decodeBody(w *httptest.ResponseRecorder, v any) error {
	return json.NewDecoder(w.Body).Decode(v)
}

func newSessionHandler(e *engine.Engine, store *storage.Mock) *SessionHandler {
	logger := testLogger()
	return NewSessionHandler(e, store, NewTurnHandler(e, logger), logger)
}

func TestSessionHandler_Create(t *testing.T) {
	e, _, _ := newTestEngine(t)
	handler := newSessionHandler(e, storage.NewMock())

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions",
		strings.NewReader(`{"username": "alice"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var gs arena.GameState
	require.NoError(t, decodeBody(w, &gs))
	assert.NotEqual(t, uuid.Nil, gs.ID)
	assert.Equal(t, arena.StartingHP, gs.PlayerA.HP)
	assert.Equal(t, arena.StartingHP, gs.PlayerB.HP)
	assert.Equal(t, arena.Position{3, 4}, gs.PlayerA.Position)
	assert.Equal(t, arena.Position{7, 4}, gs.PlayerB.Position)
}

func TestSessionHandler_CreateAnonymous(t *testing.T) {
	e, _, _ := newTestEngine(t)
	handler := newSessionHandler(e, storage.NewMock())

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSessionHandler_CreateWithPromptSelection(t *testing.T) {
	e, _, _ := newTestEngine(t)
	handler := newSessionHandler(e, storage.NewMock())

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions",
		strings.NewReader(`{"username": "alice", "prompts": {"game_master": "Default Game Master"}}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var gs arena.GameState
	require.NoError(t, decodeBody(w, &gs))
	assert.Equal(t, "Default Game Master", gs.PromptNames["game_master"])
}

func TestSessionHandler_CreateUnknownPromptTemplate(t *testing.T) {
	e, _, _ := newTestEngine(t)
	handler := newSessionHandler(e, storage.NewMock())

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions",
		strings.NewReader(`{"prompts": {"game_master": "No Such Template"}}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Get(t *testing.T) {
	e, store, _ := newTestEngine(t)
	gs := createSession(t, e)
	handler := newSessionHandler(e, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+gs.ID.String(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var rec storage.SessionRecord
	require.NoError(t, decodeBody(w, &rec))
	assert.Equal(t, gs.ID, rec.ID)
	assert.Equal(t, "alice", rec.Owner)
	assert.Equal(t, storage.StatusInProgress, rec.Status)
}

func TestSessionHandler_GetNotFound(t *testing.T) {
	e, store, _ := newTestEngine(t)
	handler := newSessionHandler(e, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_GetInvalidID(t *testing.T) {
	e, store, _ := newTestEngine(t)
	handler := newSessionHandler(e, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/not-a-uuid", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_List(t *testing.T) {
	e, store, _ := newTestEngine(t)
	createSession(t, e)
	createSession(t, e)
	handler := newSessionHandler(e, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var sessions []storage.SessionRecord
	require.NoError(t, decodeBody(w, &sessions))
	assert.Len(t, sessions, 2)
}

func TestSessionHandler_ListInvalidLimit(t *testing.T) {
	e, store, _ := newTestEngine(t)
	handler := newSessionHandler(e, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions?limit=zero", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_History(t *testing.T) {
	e, store, _ := newTestEngine(t)
	gs := createSession(t, e)
	handler := newSessionHandler(e, store)

	// Route a turn through the nested turns resource first.
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+gs.ID.String()+"/turns",
		strings.NewReader(`{"message": "I strike"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+gs.ID.String()+"/history", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var hist storage.History
	require.NoError(t, decodeBody(w, &hist))
	require.Len(t, hist.Turns, 1)
	assert.Equal(t, -10, hist.Turns[0].Actions.HPChanges[arena.PlayerB])
	require.NotEmpty(t, hist.Conversations)
	assert.Equal(t, "mock-model", hist.Conversations[0].Params.Model)
}

func TestSessionHandler_HistoryNotFound(t *testing.T) {
	e, store, _ := newTestEngine(t)
	handler := newSessionHandler(e, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+uuid.NewString()+"/history", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	e, store, _ := newTestEngine(t)
	handler := newSessionHandler(e, store)

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
