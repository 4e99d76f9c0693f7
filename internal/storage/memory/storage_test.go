package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tavere/legendgame-go/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) createPlayer(id, username string, state model.GameState) *model.PlayerRecord {
	if state == nil {
		state = model.InitialGameState()
	}
	creds := &model.Credentials{
		PlayerID:     model.PlayerID(id),
		Username:     username,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
	record := &model.PlayerRecord{
		PlayerID:  model.PlayerID(id),
		Username:  username,
		GameState: state,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, creds, record))
	return record
}

func stateWith(level, exp, gold int) model.GameState {
	return model.GameState(fmt.Sprintf(
		`{"player":{"class":"mage","level":%d,"exp":%d,"gold":%d}}`, level, exp, gold))
}

func (s *StorageSuite) TestCreateAndGetPlayer() {
	s.createPlayer("p1", "alice", nil)

	record, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal("alice", record.Username)
	s.JSONEq(string(model.InitialGameState()), string(record.GameState))

	creds, err := s.storage.GetCredentials(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), creds.PlayerID)
	s.Equal("hash", creds.PasswordHash)
}

func (s *StorageSuite) TestCreateDuplicateUsername() {
	s.createPlayer("p1", "alice", nil)

	creds := &model.Credentials{PlayerID: "p2", Username: "alice"}
	record := &model.PlayerRecord{PlayerID: "p2", Username: "alice", GameState: model.InitialGameState()}
	err := s.storage.CreatePlayer(s.ctx, creds, record)
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.storage.GetCredentials(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestGetPlayerByUsername() {
	s.createPlayer("p1", "alice", nil)

	record, err := s.storage.GetPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), record.PlayerID)
}

func (s *StorageSuite) TestUpdateGameState() {
	s.createPlayer("p1", "alice", nil)

	newState := stateWith(5, 20, 500)
	savedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.storage.UpdateGameState(s.ctx, "p1", newState, savedAt))

	record, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.JSONEq(string(newState), string(record.GameState))
	s.Equal(savedAt, record.LastSaveAt)
}

func (s *StorageSuite) TestUpdateGameStateNotFound() {
	err := s.storage.UpdateGameState(s.ctx, "ghost", stateWith(1, 0, 0), time.Now())
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestUpdateStats() {
	s.createPlayer("p1", "alice", nil)

	s.Require().NoError(s.storage.UpdateStats(s.ctx, "p1", model.StatsDelta{MonstersKilled: 1, Damage: 40}))
	s.Require().NoError(s.storage.UpdateStats(s.ctx, "p1", model.StatsDelta{MonstersKilled: 1, Damage: 25}))
	s.Require().NoError(s.storage.UpdateStats(s.ctx, "p1", model.StatsDelta{QuestsCompleted: 1}))
	s.Require().NoError(s.storage.UpdateStats(s.ctx, "p1", model.StatsDelta{ItemsCrafted: 1}))

	record, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(2, record.Stats.MonstersKilled)
	s.Equal(1, record.Stats.QuestsCompleted)
	s.Equal(1, record.Stats.ItemsCrafted)
	// Highest damage is a high-water mark, not a sum
	s.Equal(40, record.Stats.HighestDamage)
}

func (s *StorageSuite) TestSetOnlineStampsTimes() {
	s.createPlayer("p1", "alice", nil)

	loginAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s.Require().NoError(s.storage.SetOnline(s.ctx, "p1", true, loginAt))

	record, _ := s.storage.GetPlayer(s.ctx, "p1")
	s.True(record.IsOnline)
	s.Equal(loginAt, record.LastLoginAt)
	s.True(record.LastLogoutAt.IsZero())

	logoutAt := loginAt.Add(time.Hour)
	s.Require().NoError(s.storage.SetOnline(s.ctx, "p1", false, logoutAt))

	record, _ = s.storage.GetPlayer(s.ctx, "p1")
	s.False(record.IsOnline)
	s.Equal(loginAt, record.LastLoginAt)
	s.Equal(logoutAt, record.LastLogoutAt)
}

func (s *StorageSuite) TestListOnline() {
	s.createPlayer("p1", "alice", stateWith(3, 0, 0))
	s.createPlayer("p2", "bob", nil)
	s.createPlayer("p3", "carol", nil)

	now := time.Now()
	s.Require().NoError(s.storage.SetOnline(s.ctx, "p1", true, now))
	s.Require().NoError(s.storage.SetOnline(s.ctx, "p3", true, now))

	players, err := s.storage.ListOnline(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(players, 2)
	s.Equal("alice", players[0].Username)
	s.Equal(3, players[0].Level)
	s.Equal("mage", players[0].Class)
	s.Equal("carol", players[1].Username)
}

func (s *StorageSuite) TestListOnlineRespectsLimit() {
	now := time.Now()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("p%d", i)
		s.createPlayer(id, fmt.Sprintf("player%d", i), nil)
		s.Require().NoError(s.storage.SetOnline(s.ctx, model.PlayerID(id), true, now))
	}

	players, err := s.storage.ListOnline(s.ctx, 3)
	s.Require().NoError(err)
	s.Len(players, 3)
}

func (s *StorageSuite) TestRankByLevelBreaksTiesByExp() {
	s.createPlayer("p1", "alice", stateWith(5, 10, 0))
	s.createPlayer("p2", "bob", stateWith(7, 0, 0))
	s.createPlayer("p3", "carol", stateWith(5, 90, 0))

	entries, err := s.storage.RankBy(s.ctx, model.RankByLevel, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal("bob", entries[0].Username)
	s.Equal("carol", entries[1].Username)
	s.Equal("alice", entries[2].Username)
}

func (s *StorageSuite) TestRankByGold() {
	s.createPlayer("p1", "alice", stateWith(1, 0, 100))
	s.createPlayer("p2", "bob", stateWith(1, 0, 900))

	entries, err := s.storage.RankBy(s.ctx, model.RankByGold, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("bob", entries[0].Username)
	s.Equal(900, entries[0].Gold)
}

func (s *StorageSuite) TestRankByStats() {
	s.createPlayer("p1", "alice", nil)
	s.createPlayer("p2", "bob", nil)
	s.Require().NoError(s.storage.UpdateStats(s.ctx, "p1", model.StatsDelta{MonstersKilled: 3, Damage: 50}))
	s.Require().NoError(s.storage.UpdateStats(s.ctx, "p2", model.StatsDelta{MonstersKilled: 8, Damage: 20}))

	entries, err := s.storage.RankBy(s.ctx, model.RankByMonsters, 10)
	s.Require().NoError(err)
	s.Equal("bob", entries[0].Username)

	entries, err = s.storage.RankBy(s.ctx, model.RankByDamage, 10)
	s.Require().NoError(err)
	s.Equal("alice", entries[0].Username)
}

func (s *StorageSuite) TestRankByRespectsLimit() {
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("p%d", i)
		s.createPlayer(id, fmt.Sprintf("player%d", i), stateWith(i+1, 0, 0))
	}

	entries, err := s.storage.RankBy(s.ctx, model.RankByLevel, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("player4", entries[0].Username)
}

func (s *StorageSuite) TestGetPlayerReturnsCopy() {
	s.createPlayer("p1", "alice", nil)

	record, _ := s.storage.GetPlayer(s.ctx, "p1")
	record.GameState[2] = 'X'
	record.Stats.MonstersKilled = 999

	fresh, _ := s.storage.GetPlayer(s.ctx, "p1")
	s.JSONEq(string(model.InitialGameState()), string(fresh.GameState))
	s.Zero(fresh.Stats.MonstersKilled)
}

func (s *StorageSuite) TestRankByNonPositiveLimit() {
	s.createPlayer("p1", "alice", nil)

	entries, err := s.storage.RankBy(s.ctx, model.RankByLevel, 0)
	s.Require().NoError(err)
	s.Empty(entries)

	entries, err = s.storage.RankBy(s.ctx, model.RankByLevel, -1)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *StorageSuite) TestConcurrentStatWritesAndRankReads() {
	s.createPlayer("p1", "alice", nil)
	s.createPlayer("p2", "bob", nil)

	const writes = 500

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			s.NoError(s.storage.UpdateStats(s.ctx, "p1",
				model.StatsDelta{MonstersKilled: 1, Damage: i}))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			s.NoError(s.storage.SetOnline(s.ctx, "p2", i%2 == 0, time.Now()))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			_, err := s.storage.RankBy(s.ctx, model.RankByMonsters, 10)
			s.NoError(err)
		}
	}()
	wg.Wait()

	record, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(writes, record.Stats.MonstersKilled)
	s.Equal(writes-1, record.Stats.HighestDamage)
}
