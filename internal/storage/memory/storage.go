package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/storage"
)

// Storage is the in-memory fallback implementation of the storage interface.
// It is used when the durable backend is unreachable at startup; data does
// not survive a process restart.
type Storage struct {
	mu sync.RWMutex

	credentials   map[string]*model.Credentials // keyed by username
	players       map[model.PlayerID]*model.PlayerRecord
	usernameIndex map[string]model.PlayerID
	order         []model.PlayerID // insertion order, keeps ranking stable
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		credentials:   make(map[string]*model.Credentials),
		players:       make(map[model.PlayerID]*model.PlayerRecord),
		usernameIndex: make(map[string]model.PlayerID),
	}
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) CreatePlayer(ctx context.Context, creds *model.Credentials, record *model.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[creds.Username]; ok {
		return model.ErrUsernameTaken
	}

	credsCopy := *creds
	recordCopy := cloneRecord(record)

	s.credentials[creds.Username] = &credsCopy
	s.players[record.PlayerID] = recordCopy
	s.usernameIndex[record.Username] = record.PlayerID
	s.order = append(s.order, record.PlayerID)
	return nil
}

func (s *Storage) GetCredentials(ctx context.Context, username string) (*model.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.credentials[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	credsCopy := *creds
	return &credsCopy, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return cloneRecord(record), nil
}

func (s *Storage) GetPlayerByUsername(ctx context.Context, username string) (*model.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	record, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return cloneRecord(record), nil
}

func (s *Storage) UpdateGameState(ctx context.Context, id model.PlayerID, state model.GameState, savedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	record.GameState = append(model.GameState(nil), state...)
	record.LastSaveAt = savedAt
	return nil
}

func (s *Storage) UpdateStats(ctx context.Context, id model.PlayerID, delta model.StatsDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	record.Stats.Apply(delta)
	return nil
}

func (s *Storage) SetOnline(ctx context.Context, id model.PlayerID, online bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	record.IsOnline = online
	if online {
		record.LastLoginAt = at
	} else {
		record.LastLogoutAt = at
	}
	return nil
}

func (s *Storage) ListOnline(ctx context.Context, limit int) ([]model.OnlinePlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]model.OnlinePlayer, 0)
	for _, id := range s.order {
		if len(players) >= limit {
			break
		}
		record := s.players[id]
		if record == nil || !record.IsOnline {
			continue
		}
		summary := model.SummarizeState(record.GameState)
		players = append(players, model.OnlinePlayer{
			Username: record.Username,
			Level:    summary.Level,
			Class:    summary.Class,
		})
	}
	return players, nil
}

func (s *Storage) RankBy(ctx context.Context, metric model.RankMetric, limit int) ([]model.RankEntry, error) {
	// Everything the projection needs is copied while the lock is held;
	// the records themselves mutate in place under writes.
	s.mu.RLock()
	entries := make([]rankedRecord, 0, len(s.order))
	for _, id := range s.order {
		record, ok := s.players[id]
		if !ok {
			continue
		}
		entries = append(entries, rankedRecord{
			stats:       record.Stats,
			summary:     model.SummarizeState(record.GameState),
			username:    record.Username,
			isOnline:    record.IsOnline,
			lastLoginAt: record.LastLoginAt,
		})
	}
	s.mu.RUnlock()

	// Stable sort preserves insertion order for ties on non-level metrics
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch metric {
		case model.RankByGold:
			return a.summary.Gold > b.summary.Gold
		case model.RankByMonsters:
			return a.stats.MonstersKilled > b.stats.MonstersKilled
		case model.RankByQuests:
			return a.stats.QuestsCompleted > b.stats.QuestsCompleted
		case model.RankByDamage:
			return a.stats.HighestDamage > b.stats.HighestDamage
		default: // level, with experience as tie-break
			if a.summary.Level != b.summary.Level {
				return a.summary.Level > b.summary.Level
			}
			return a.summary.Exp > b.summary.Exp
		}
	})

	if limit <= 0 {
		return []model.RankEntry{}, nil
	}
	if limit < len(entries) {
		entries = entries[:limit]
	}

	result := make([]model.RankEntry, len(entries))
	for i, e := range entries {
		result[i] = model.RankEntry{
			Username:        e.username,
			Level:           e.summary.Level,
			Gold:            e.summary.Gold,
			Class:           e.summary.Class,
			MonstersKilled:  e.stats.MonstersKilled,
			QuestsCompleted: e.stats.QuestsCompleted,
			HighestDamage:   e.stats.HighestDamage,
			IsOnline:        e.isOnline,
			LastLoginAt:     e.lastLoginAt,
		}
	}
	return result, nil
}

type rankedRecord struct {
	stats       model.PlayerStats
	summary     model.StateSummary
	username    string
	isOnline    bool
	lastLoginAt time.Time
}

func cloneRecord(record *model.PlayerRecord) *model.PlayerRecord {
	recordCopy := *record
	recordCopy.GameState = append(model.GameState(nil), record.GameState...)
	return &recordCopy
}
