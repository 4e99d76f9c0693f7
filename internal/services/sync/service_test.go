package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tavere/legendgame-go/internal/dependencies/mocks"
	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/storage/memory"
	"github.com/tavere/legendgame-go/internal/testutil"
)

type SyncSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestSyncSuite(t *testing.T) {
	suite.Run(t, new(SyncSuite))
}

func (s *SyncSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, testutil.NopLogger())
	s.ctx = context.Background()

	creds := &model.Credentials{PlayerID: "p1", Username: "alice"}
	record := &model.PlayerRecord{PlayerID: "p1", Username: "alice", GameState: model.InitialGameState()}
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, creds, record))
}

func (s *SyncSuite) TestSubmitSnapshot() {
	state := model.GameState(`{"player":{"level":4,"gold":250}}`)
	s.Require().NoError(s.service.SubmitSnapshot(s.ctx, "p1", state))

	record, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.JSONEq(string(state), string(record.GameState))
	s.Equal(s.clock.Now(), record.LastSaveAt)
}

func (s *SyncSuite) TestSubmitSnapshotIsIdempotent() {
	state := model.GameState(`{"player":{"level":4}}`)
	s.Require().NoError(s.service.SubmitSnapshot(s.ctx, "p1", state))
	s.Require().NoError(s.service.SubmitSnapshot(s.ctx, "p1", state))

	record, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.JSONEq(string(state), string(record.GameState))
}

func (s *SyncSuite) TestSubmitSnapshotRejectsMalformed() {
	for _, state := range []model.GameState{
		nil,
		model.GameState(``),
		model.GameState(`[]`),
		model.GameState(`"text"`),
		model.GameState(`{"broken":`),
	} {
		err := s.service.SubmitSnapshot(s.ctx, "p1", state)
		s.ErrorIs(err, model.ErrInvalidSnapshot)
	}

	// The stored state is untouched by the rejected writes
	record, _ := s.storage.GetPlayer(s.ctx, "p1")
	s.JSONEq(string(model.InitialGameState()), string(record.GameState))
}

func (s *SyncSuite) TestSubmitSnapshotUnknownPlayer() {
	err := s.service.SubmitSnapshot(s.ctx, "ghost", model.GameState(`{}`))
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *SyncSuite) TestBattleVictoryCountsKill() {
	s.Require().NoError(s.service.ApplyBattleResult(s.ctx, "p1", true, 30))

	record, _ := s.storage.GetPlayer(s.ctx, "p1")
	s.Equal(1, record.Stats.MonstersKilled)
	s.Equal(30, record.Stats.HighestDamage)
}

func (s *SyncSuite) TestBattleDefeatStillTracksDamage() {
	s.Require().NoError(s.service.ApplyBattleResult(s.ctx, "p1", false, 55))

	record, _ := s.storage.GetPlayer(s.ctx, "p1")
	s.Zero(record.Stats.MonstersKilled)
	s.Equal(55, record.Stats.HighestDamage)
}

func (s *SyncSuite) TestDamageIsHighWaterMark() {
	s.Require().NoError(s.service.ApplyBattleResult(s.ctx, "p1", true, 55))
	s.Require().NoError(s.service.ApplyBattleResult(s.ctx, "p1", true, 20))

	record, _ := s.storage.GetPlayer(s.ctx, "p1")
	s.Equal(2, record.Stats.MonstersKilled)
	s.Equal(55, record.Stats.HighestDamage)
}

func (s *SyncSuite) TestQuestAndCraftCounters() {
	s.Require().NoError(s.service.ApplyQuestCompleted(s.ctx, "p1"))
	s.Require().NoError(s.service.ApplyQuestCompleted(s.ctx, "p1"))
	s.Require().NoError(s.service.ApplyItemCrafted(s.ctx, "p1"))

	record, _ := s.storage.GetPlayer(s.ctx, "p1")
	s.Equal(2, record.Stats.QuestsCompleted)
	s.Equal(1, record.Stats.ItemsCrafted)
}

func (s *SyncSuite) TestConcurrentResultEvents() {
	const perWorker = 100

	var wg stdsync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				damage := worker*perWorker + i
				s.NoError(s.service.ApplyBattleResult(s.ctx, "p1", true, damage))
				s.NoError(s.service.ApplyQuestCompleted(s.ctx, "p1"))
				s.NoError(s.service.ApplyItemCrafted(s.ctx, "p1"))
			}
		}(w)
	}
	wg.Wait()

	record, _ := s.storage.GetPlayer(s.ctx, "p1")
	s.Equal(4*perWorker, record.Stats.MonstersKilled)
	s.Equal(4*perWorker, record.Stats.QuestsCompleted)
	s.Equal(4*perWorker, record.Stats.ItemsCrafted)
	s.Equal(4*perWorker-1, record.Stats.HighestDamage)
}
