package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tavere/legendgame-go/internal/api/apierr"
	"github.com/tavere/legendgame-go/internal/services/auth"
	"github.com/tavere/legendgame-go/internal/services/rankings"
)

// AuthHandler handles account registration and login
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("password is required"))
		return
	}

	record, err := h.authService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	token, err := h.authService.IssueToken(record.PlayerID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Token: token,
		Player: PlayerSummary{
			ID:       string(record.PlayerID),
			Username: record.Username,
		},
	})
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" || req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username and password are required"))
		return
	}

	record, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	token, err := h.authService.IssueToken(record.PlayerID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		Player: PlayerSummary{
			ID:       string(record.PlayerID),
			Username: record.Username,
		},
		GameState: record.GameState,
	})
}

// RankingsHandler handles leaderboard queries
type RankingsHandler struct {
	rankingsService *rankings.Service
}

// NewRankingsHandler creates a new rankings handler
func NewRankingsHandler(rankingsService *rankings.Service) *RankingsHandler {
	return &RankingsHandler{
		rankingsService: rankingsService,
	}
}

// Get handles GET /api/rankings
func (h *RankingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("type")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			apierr.WriteError(w, apierr.NewInvalidRequestError("limit must be an integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.rankingsService.GetRankings(r.Context(), metric, limit)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RankingsResponse{
		Success:  true,
		Rankings: entries,
		Total:    len(entries),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
