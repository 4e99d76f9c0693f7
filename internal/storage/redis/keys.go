package redis

import (
	"fmt"

	"github.com/tavere/legendgame-go/internal/model"
)

// Key prefix for all persisted game data
const keyPrefix = "legend"

// accountKey returns the Redis key for a player's credentials document.
// Keyed by username; its existence is the uniqueness guard for registration.
func accountKey(username string) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, username)
}

// playerKey returns the Redis key for a PlayerRecord document
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// onlineSetKey returns the Redis key for the SET of online player ids
func onlineSetKey() string {
	return fmt.Sprintf("%s:online", keyPrefix)
}

// rankIndexKey returns the Redis key for a metric's ranking ZSET
func rankIndexKey(metric model.RankMetric) string {
	return fmt.Sprintf("%s:rank:%s", keyPrefix, metric)
}
