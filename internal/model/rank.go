package model

import "time"

// RankMetric selects the ordering for leaderboard queries
type RankMetric string

const (
	RankByLevel    RankMetric = "level"
	RankByGold     RankMetric = "gold"
	RankByMonsters RankMetric = "monsters"
	RankByQuests   RankMetric = "quests"
	RankByDamage   RankMetric = "damage"
)

// ParseRankMetric maps a query string to a metric.
// Unknown values fall back to level ranking so the public endpoint
// always answers.
func ParseRankMetric(s string) RankMetric {
	switch RankMetric(s) {
	case RankByLevel, RankByGold, RankByMonsters, RankByQuests, RankByDamage:
		return RankMetric(s)
	default:
		return RankByLevel
	}
}

// RankEntry is one row of a leaderboard projection
type RankEntry struct {
	Username        string    `json:"username"`
	Level           int       `json:"level"`
	Gold            int       `json:"gold"`
	Class           string    `json:"class"`
	MonstersKilled  int       `json:"monsters_killed"`
	QuestsCompleted int       `json:"quests_completed"`
	HighestDamage   int       `json:"highest_damage"`
	IsOnline        bool      `json:"is_online"`
	LastLoginAt     time.Time `json:"last_login_at"`
}
