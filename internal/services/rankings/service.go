package rankings

import (
	"context"
	"log/slog"

	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/storage"
)

// Limit bounds for ranking queries
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Service projects read-only leaderboard views over the storage backend.
// It never mutates and needs no authenticated session.
type Service struct {
	store  storage.Store
	logger *slog.Logger
}

// New creates a new rankings Service
func New(store storage.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With(slog.String("component", "rankings")),
	}
}

// GetRankings returns up to limit entries ordered by the metric.
// Unknown metrics rank by level; a non-positive limit takes the default.
func (s *Service) GetRankings(ctx context.Context, metric string, limit int) ([]model.RankEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.store.RankBy(ctx, model.ParseRankMetric(metric), limit)
}
