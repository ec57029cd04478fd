package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/maduarte95/arena-test/internal/auth"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	Username    string `json:"username"`
	GamesPlayed int    `json:"games_played"`
	GamesWon    int    `json:"games_won"`
}

// AuthHandler handles user registration and login.
// POST /v1/auth/register
// POST /v1/auth/login
type AuthHandler struct {
	auth   *auth.Service
	logger *slog.Logger
}

func NewAuthHandler(service *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   service,
		logger: logger,
	}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'username' and 'password' fields.")
		return
	}

	action := strings.TrimPrefix(r.URL.Path, "/v1/auth/")
	switch action {
	case "register":
		h.register(w, r, req)
	case "login":
		h.login(w, r, req)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown auth endpoint.")
	}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, req credentialsRequest) {
	if err := h.auth.Register(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			writeError(w, h.logger, http.StatusConflict, err.Error())
			return
		}
		h.logger.Warn("Registration failed", "username", req.Username, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, userResponse{Username: req.Username})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, req credentialsRequest) {
	user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, h.logger, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Error("Login failed", "username", req.Username, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Login failed.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, userResponse{
		Username:    user.Username,
		GamesPlayed: user.GamesPlayed,
		GamesWon:    user.GamesWon,
	})
}
