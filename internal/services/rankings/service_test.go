package rankings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/storage/memory"
	"github.com/tavere/legendgame-go/internal/testutil"
)

type RankingsSuite struct {
	suite.Suite
	storage *memory.Storage
	service *Service
	ctx     context.Context
}

func TestRankingsSuite(t *testing.T) {
	suite.Run(t, new(RankingsSuite))
}

func (s *RankingsSuite) SetupTest() {
	s.storage = memory.New()
	s.service = New(s.storage, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *RankingsSuite) addPlayer(i, level, gold int) {
	id := model.PlayerID(fmt.Sprintf("p%d", i))
	username := fmt.Sprintf("player%d", i)
	state := model.GameState(fmt.Sprintf(`{"player":{"level":%d,"gold":%d}}`, level, gold))
	creds := &model.Credentials{PlayerID: id, Username: username, CreatedAt: time.Now()}
	record := &model.PlayerRecord{PlayerID: id, Username: username, GameState: state}
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, creds, record))
}

func (s *RankingsSuite) TestGetRankingsByLevel() {
	s.addPlayer(1, 3, 0)
	s.addPlayer(2, 9, 0)
	s.addPlayer(3, 6, 0)

	entries, err := s.service.GetRankings(s.ctx, "level", 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal("player2", entries[0].Username)
	s.Equal("player3", entries[1].Username)
	s.Equal("player1", entries[2].Username)
}

func (s *RankingsSuite) TestGetRankingsByGold() {
	s.addPlayer(1, 1, 500)
	s.addPlayer(2, 1, 100)

	entries, err := s.service.GetRankings(s.ctx, "gold", 10)
	s.Require().NoError(err)
	s.Equal("player1", entries[0].Username)
}

func (s *RankingsSuite) TestUnknownMetricFallsBackToLevel() {
	s.addPlayer(1, 2, 900)
	s.addPlayer(2, 8, 10)

	entries, err := s.service.GetRankings(s.ctx, "nonsense", 10)
	s.Require().NoError(err)
	s.Equal("player2", entries[0].Username)
}

func (s *RankingsSuite) TestZeroLimitUsesDefault() {
	for i := 0; i < DefaultLimit+10; i++ {
		s.addPlayer(i, i, 0)
	}

	entries, err := s.service.GetRankings(s.ctx, "level", 0)
	s.Require().NoError(err)
	s.Len(entries, DefaultLimit)
}

func (s *RankingsSuite) TestLimitIsClamped() {
	for i := 0; i < MaxLimit+10; i++ {
		s.addPlayer(i, i, 0)
	}

	entries, err := s.service.GetRankings(s.ctx, "level", MaxLimit+500)
	s.Require().NoError(err)
	s.Len(entries, MaxLimit)
}
