package model

import (
	"bytes"
	"encoding/json"
)

// GameState is the opaque game-state blob owned by the game-rule engines.
// This subsystem transports and stores it verbatim; it never edits it.
type GameState = json.RawMessage

// initialGameState is the canonical blob every new player starts with.
const initialGameState = `{
  "player": {
    "class": "warrior",
    "level": 1,
    "hp": 100, "maxHp": 100,
    "mp": 50, "maxMp": 50,
    "exp": 0, "maxExp": 100,
    "gold": 100,
    "attack": [10, 15],
    "defense": 5,
    "equipment": {
      "weapon": null, "helmet": null, "armor": null, "boots": null,
      "ring": null, "necklace": null,
      "special1": null, "special2": null, "special3": null, "special4": null
    },
    "inventory": [
      {"id": "health_potion_small", "quantity": 5},
      {"id": "mana_potion_small", "quantity": 3}
    ],
    "materials": [
      {"id": "iron_ore", "quantity": 10},
      {"id": "wood", "quantity": 15},
      {"id": "leather", "quantity": 8}
    ],
    "cultivation": {
      "dropRate": {"level": 0, "exp": 0},
      "damage": {"level": 0, "exp": 0},
      "whipCorpse": {"level": 0, "exp": 0}
    },
    "quests": {"available": [], "active": [], "completed": []},
    "titles": {"owned": [], "current": null, "scrolls": []}
  },
  "currentLocation": 1,
  "inBattle": false,
  "currentMonster": null,
  "shopMode": "buy",
  "autoBattle": false,
  "showWhipCorpse": false,
  "autoRecycle": {"enabled": false, "maxQuality": "common"},
  "craftingTree": {"selectedNode": null, "viewOffset": {"x": 0, "y": 0}, "zoomLevel": 1}
}`

// InitialGameState returns a fresh copy of the canonical new-player state
func InitialGameState() GameState {
	return GameState(initialGameState)
}

// ValidateSnapshot checks presence and shape of an incoming snapshot without
// interpreting its contents: it must be a JSON object.
func ValidateSnapshot(state GameState) error {
	trimmed := bytes.TrimSpace(state)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrInvalidSnapshot
	}
	return nil
}

// StateSummary is the small slice of the blob the ranking and online-player
// projections need. Extraction is lenient: missing fields take the same
// defaults new players start with.
type StateSummary struct {
	Level int
	Exp   int
	Gold  int
	Class string
}

// SummarizeState extracts a StateSummary from an opaque blob.
// A malformed blob yields the defaults rather than an error; projections
// always answer.
func SummarizeState(state GameState) StateSummary {
	summary := StateSummary{Level: 1, Class: "warrior"}

	var probe struct {
		Player struct {
			Level *int    `json:"level"`
			Exp   *int    `json:"exp"`
			Gold  *int    `json:"gold"`
			Class *string `json:"class"`
		} `json:"player"`
	}
	if err := json.Unmarshal(state, &probe); err != nil {
		return summary
	}

	if probe.Player.Level != nil {
		summary.Level = *probe.Player.Level
	}
	if probe.Player.Exp != nil {
		summary.Exp = *probe.Player.Exp
	}
	if probe.Player.Gold != nil {
		summary.Gold = *probe.Player.Gold
	}
	if probe.Player.Class != nil {
		summary.Class = *probe.Player.Class
	}
	return summary
}
