package sync

import (
	"context"
	"log/slog"

	"github.com/tavere/legendgame-go/internal/dependencies/clock"
	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/storage"
)

// Service is the write side of the state sync channel: full-snapshot
// overwrites for game state and monotonic increments for the stats summary.
// The two never touch the same fields, so a stat event cannot corrupt a
// snapshot write in flight.
type Service struct {
	store  storage.Store
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a new sync Service
func New(store storage.Store, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		clock:  clk,
		logger: logger.With(slog.String("component", "sync")),
	}
}

// SubmitSnapshot writes a game-state snapshot through verbatim and stamps
// the save time. Overwrite semantics: submitting the same snapshot twice is
// a no-op difference.
func (s *Service) SubmitSnapshot(ctx context.Context, id model.PlayerID, state model.GameState) error {
	if err := model.ValidateSnapshot(state); err != nil {
		return err
	}
	return s.store.UpdateGameState(ctx, id, state, s.clock.Now())
}

// ApplyBattleResult records a battle outcome: the kill counter moves only on
// victory, the damage high-water mark on any result
func (s *Service) ApplyBattleResult(ctx context.Context, id model.PlayerID, victory bool, damage int) error {
	delta := model.StatsDelta{Damage: damage}
	if victory {
		delta.MonstersKilled = 1
	}
	return s.store.UpdateStats(ctx, id, delta)
}

// ApplyQuestCompleted increments the completed-quest counter
func (s *Service) ApplyQuestCompleted(ctx context.Context, id model.PlayerID) error {
	return s.store.UpdateStats(ctx, id, model.StatsDelta{QuestsCompleted: 1})
}

// ApplyItemCrafted increments the crafted-item counter
func (s *Service) ApplyItemCrafted(ctx context.Context, id model.PlayerID) error {
	return s.store.UpdateStats(ctx, id, model.StatsDelta{ItemsCrafted: 1})
}
