package storage

import (
	"context"
	"time"

	"github.com/tavere/legendgame-go/internal/model"
)

// Store defines the interface for player persistence.
// Two implementations exist (redis-backed and in-memory); one is selected at
// process start and the rest of the system only ever holds this interface.
type Store interface {
	// CreatePlayer saves a new account and its initial record.
	// Returns model.ErrUsernameTaken if the username is already registered.
	CreatePlayer(ctx context.Context, creds *model.Credentials, record *model.PlayerRecord) error

	// GetCredentials looks up login credentials by username
	GetCredentials(ctx context.Context, username string) (*model.Credentials, error)

	// GetPlayer fetches a player record by id
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error)

	// GetPlayerByUsername fetches a player record by username
	GetPlayerByUsername(ctx context.Context, username string) (*model.PlayerRecord, error)

	// UpdateGameState overwrites the opaque game-state blob and stamps the
	// save time. Last write wins.
	UpdateGameState(ctx context.Context, id model.PlayerID, state model.GameState, savedAt time.Time) error

	// UpdateStats applies a monotonic stats delta as a single
	// read-modify-write under the backend's exclusion
	UpdateStats(ctx context.Context, id model.PlayerID, delta model.StatsDelta) error

	// SetOnline toggles the online flag, stamping last-login when going
	// online and last-logout when going offline
	SetOnline(ctx context.Context, id model.PlayerID, online bool, at time.Time) error

	// ListOnline returns up to limit online players, read-consistent at the
	// instant of the call
	ListOnline(ctx context.Context, limit int) ([]model.OnlinePlayer, error)

	// RankBy returns up to limit players ordered by the metric, descending.
	// Level ranking breaks ties by experience descending; other metrics
	// promise a stable order only.
	RankBy(ctx context.Context, metric model.RankMetric, limit int) ([]model.RankEntry, error)
}
