package api

import "github.com/tavere/legendgame-go/internal/model"

// RegisterRequest is the body for POST /api/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PlayerSummary identifies a player in auth responses.
type PlayerSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RegisterResponse is returned by POST /api/register.
type RegisterResponse struct {
	Token  string        `json:"token"`
	Player PlayerSummary `json:"player"`
}

// LoginResponse is returned by POST /api/login.
type LoginResponse struct {
	Token     string          `json:"token"`
	Player    PlayerSummary   `json:"player"`
	GameState model.GameState `json:"gameState"`
}

// RankingsResponse is returned by GET /api/rankings.
type RankingsResponse struct {
	Success  bool              `json:"success"`
	Rankings []model.RankEntry `json:"rankings"`
	Total    int               `json:"total"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}
