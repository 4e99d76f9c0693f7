package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/storage"
)

// Storage is the Redis-backed durable implementation of the storage
// interface. Records are JSON documents; ranking metrics are maintained as
// ZSET indexes alongside every write.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance, probing connectivity before
// returning. A probe failure surfaces as model.ErrStoreUnavailable so the
// caller can fall back to the in-memory backend.
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ProbeTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, storeErr(err)
	}

	return &Storage{client: client, cfg: cfg}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{client: client, cfg: cfg}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) CreatePlayer(ctx context.Context, creds *model.Credentials, record *model.PlayerRecord) error {
	credsData, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	recordData, err := json.Marshal(record)
	if err != nil {
		return err
	}

	// The account document doubles as the uniqueness guard
	created, err := s.client.SetNX(ctx, accountKey(creds.Username), credsData, 0).Result()
	if err != nil {
		return storeErr(err)
	}
	if !created {
		return model.ErrUsernameTaken
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, playerKey(record.PlayerID), recordData, 0)
	addRankIndexes(ctx, pipe, record)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Storage) GetCredentials(ctx context.Context, username string) (*model.Credentials, error) {
	data, err := s.client.Get(ctx, accountKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, storeErr(err)
	}

	var creds model.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, storeErr(err)
	}

	var record model.PlayerRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Storage) GetPlayerByUsername(ctx context.Context, username string) (*model.PlayerRecord, error) {
	creds, err := s.GetCredentials(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.GetPlayer(ctx, creds.PlayerID)
}

func (s *Storage) UpdateGameState(ctx context.Context, id model.PlayerID, state model.GameState, savedAt time.Time) error {
	return s.updateRecord(ctx, id, func(record *model.PlayerRecord) {
		record.GameState = append(model.GameState(nil), state...)
		record.LastSaveAt = savedAt
	})
}

func (s *Storage) UpdateStats(ctx context.Context, id model.PlayerID, delta model.StatsDelta) error {
	return s.updateRecord(ctx, id, func(record *model.PlayerRecord) {
		record.Stats.Apply(delta)
	})
}

func (s *Storage) SetOnline(ctx context.Context, id model.PlayerID, online bool, at time.Time) error {
	err := s.updateRecord(ctx, id, func(record *model.PlayerRecord) {
		record.IsOnline = online
		if online {
			record.LastLoginAt = at
		} else {
			record.LastLogoutAt = at
		}
	})
	if err != nil {
		return err
	}

	if online {
		err = s.client.SAdd(ctx, onlineSetKey(), string(id)).Err()
	} else {
		err = s.client.SRem(ctx, onlineSetKey(), string(id)).Err()
	}
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Storage) ListOnline(ctx context.Context, limit int) ([]model.OnlinePlayer, error) {
	ids, err := s.client.SMembers(ctx, onlineSetKey()).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	if len(ids) == 0 {
		return []model.OnlinePlayer{}, nil
	}

	records, err := s.fetchRecords(ctx, ids)
	if err != nil {
		return nil, err
	}

	players := make([]model.OnlinePlayer, 0, len(records))
	for _, record := range records {
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
	if limit <= 0 {
		return []model.RankEntry{}, nil
	}

	ids, err := s.client.ZRevRange(ctx, rankIndexKey(metric), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	if len(ids) == 0 {
		return []model.RankEntry{}, nil
	}

	records, err := s.fetchRecords(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]model.RankEntry, 0, len(records))
	for _, record := range records {
		summary := model.SummarizeState(record.GameState)
		entries = append(entries, model.RankEntry{
			Username:        record.Username,
			Level:           summary.Level,
			Gold:            summary.Gold,
			Class:           summary.Class,
			MonstersKilled:  record.Stats.MonstersKilled,
			QuestsCompleted: record.Stats.QuestsCompleted,
			HighestDamage:   record.Stats.HighestDamage,
			IsOnline:        record.IsOnline,
			LastLoginAt:     record.LastLoginAt,
		})
	}
	return entries, nil
}

// updateRecord performs a read-modify-write on one player document and
// refreshes the ranking indexes in the same pipeline. Concurrency control is
// single-document: last writer wins, matching the sync channel's semantics.
func (s *Storage) updateRecord(ctx context.Context, id model.PlayerID, mutate func(*model.PlayerRecord)) error {
	record, err := s.GetPlayer(ctx, id)
	if err != nil {
		return err
	}

	mutate(record)

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, playerKey(id), data, 0)
	addRankIndexes(ctx, pipe, record)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr(err)
	}
	return nil
}

// fetchRecords MGETs player documents, preserving input order and skipping
// ids whose document has gone missing
func (s *Storage) fetchRecords(ctx context.Context, ids []string) ([]*model.PlayerRecord, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(model.PlayerID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storeErr(err)
	}

	records := make([]*model.PlayerRecord, 0, len(values))
	for _, val := range values {
		raw, ok := val.(string)
		if !ok {
			continue
		}
		var record model.PlayerRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

// levelExpSpan packs experience under level into one ZSET score so level
// ranking breaks ties by experience. Assumes exp stays below the span, which
// the progression tables guarantee by orders of magnitude.
const levelExpSpan = 1e9

// addRankIndexes queues ZADDs keeping every metric's index in step with the
// document being written
func addRankIndexes(ctx context.Context, pipe redis.Pipeliner, record *model.PlayerRecord) {
	summary := model.SummarizeState(record.GameState)
	member := string(record.PlayerID)

	pipe.ZAdd(ctx, rankIndexKey(model.RankByLevel), redis.Z{
		Score:  float64(summary.Level)*levelExpSpan + float64(summary.Exp),
		Member: member,
	})
	pipe.ZAdd(ctx, rankIndexKey(model.RankByGold), redis.Z{Score: float64(summary.Gold), Member: member})
	pipe.ZAdd(ctx, rankIndexKey(model.RankByMonsters), redis.Z{Score: float64(record.Stats.MonstersKilled), Member: member})
	pipe.ZAdd(ctx, rankIndexKey(model.RankByQuests), redis.Z{Score: float64(record.Stats.QuestsCompleted), Member: member})
	pipe.ZAdd(ctx, rankIndexKey(model.RankByDamage), redis.Z{Score: float64(record.Stats.HighestDamage), Member: member})
}

// storeErr classifies backend failures as ErrStoreUnavailable, keeping them
// distinct from not-found
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
}
