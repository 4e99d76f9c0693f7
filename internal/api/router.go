package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tavere/legendgame-go/internal/api/apierr"
	"github.com/tavere/legendgame-go/internal/middleware"
	"github.com/tavere/legendgame-go/internal/services/auth"
	"github.com/tavere/legendgame-go/internal/services/rankings"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	RankingsService *rankings.Service
	// StorageMode identifies the active backend for the health endpoint
	StorageMode string
	// WSHandler serves the gameplay socket endpoint when set
	WSHandler http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	authHandler := NewAuthHandler(cfg.AuthService)
	rankingsHandler := NewRankingsHandler(cfg.RankingsService)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, apiPanicHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/rankings", rankingsHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler(cfg.StorageMode)).Methods(http.MethodGet)

	// The socket endpoint skips the logging middleware so long-lived
	// connections do not emit a request log only at teardown.
	if cfg.WSHandler != nil {
		r.Handle("/ws", cfg.WSHandler)
	}

	return r
}

func healthHandler(storageMode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Storage: storageMode,
		})
	}
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
