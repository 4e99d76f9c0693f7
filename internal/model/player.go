package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Credentials holds a player's login identity.
// Stored separately from the record so the password hash never travels
// with gameplay state.
type Credentials struct {
	PlayerID     PlayerID  `json:"player_id"`
	Username     string    `json:"username"` // immutable
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// PlayerStats is the summary of result events for a player.
// Every field is monotonically non-decreasing.
type PlayerStats struct {
	MonstersKilled  int `json:"monsters_killed"`
	QuestsCompleted int `json:"quests_completed"`
	ItemsCrafted    int `json:"items_crafted"`
	HighestDamage   int `json:"highest_damage"`
}

// StatsDelta describes a single result event's effect on PlayerStats.
// Counters are increments; Damage participates in a max, not a sum.
type StatsDelta struct {
	MonstersKilled  int
	QuestsCompleted int
	ItemsCrafted    int
	Damage          int
}

// Apply merges a delta into the stats.
func (s *PlayerStats) Apply(d StatsDelta) {
	s.MonstersKilled += d.MonstersKilled
	s.QuestsCompleted += d.QuestsCompleted
	s.ItemsCrafted += d.ItemsCrafted
	if d.Damage > s.HighestDamage {
		s.HighestDamage = d.Damage
	}
}

// PlayerRecord is the persisted gameplay state tied to one account
type PlayerRecord struct {
	PlayerID     PlayerID    `json:"player_id"`
	Username     string      `json:"username"`
	GameState    GameState   `json:"game_state"`
	Stats        PlayerStats `json:"stats"`
	IsOnline     bool        `json:"is_online"`
	LastLoginAt  time.Time   `json:"last_login_at"`
	LastLogoutAt time.Time   `json:"last_logout_at"`
	LastSaveAt   time.Time   `json:"last_save_at"`
	CreatedAt    time.Time   `json:"created_at"`
}

// OnlinePlayer is the projection served for online-player queries
type OnlinePlayer struct {
	Username string `json:"username"`
	Level    int    `json:"level"`
	Class    string `json:"class"`
}
