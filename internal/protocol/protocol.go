// Package protocol defines the event envelope and payloads shared by the
// websocket gateway and the client connection session.
package protocol

import (
	"encoding/json"

	"github.com/tavere/legendgame-go/internal/model"
)

// Event names, client to server
const (
	EventAuthenticate     = "authenticate"
	EventSyncGameState    = "sync_game_state"
	EventBattleResult     = "battle_result"
	EventQuestCompleted   = "quest_completed"
	EventItemCrafted      = "item_crafted"
	EventGetOnlinePlayers = "get_online_players"
)

// Event names, server to client
const (
	EventAuthenticated           = "authenticated"
	EventForceDisconnect         = "force_disconnect"
	EventSyncComplete            = "sync_complete"
	EventBattleResultProcessed   = "battle_result_processed"
	EventQuestCompletedProcessed = "quest_completed_processed"
	EventItemCraftedProcessed    = "item_crafted_processed"
	EventOnlinePlayers           = "online_players"
	EventError                   = "error"
)

// Synthetic event names the client session emits to local subscribers only;
// they never cross the wire.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventAuthError    = "auth_error"
	EventGiveUp       = "max_reconnect_attempts"
)

// Event is the envelope for all websocket traffic: a type for routing and a
// raw payload decoded by the handler that knows its shape.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event, marshaling the payload
func NewEvent(eventType string, payload any) (Event, error) {
	if payload == nil {
		return Event{Type: eventType}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: data}, nil
}

// Decode unmarshals the payload into v
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// AuthenticateRequest is the session handshake
type AuthenticateRequest struct {
	Token string `json:"token"`
}

// PlayerView is the record shape sent to a freshly authenticated client
type PlayerView struct {
	Username  string            `json:"username"`
	GameState model.GameState   `json:"gameState"`
	Stats     model.PlayerStats `json:"stats"`
}

// AuthenticatedReply is the handshake result
type AuthenticatedReply struct {
	Success bool        `json:"success"`
	Player  *PlayerView `json:"player,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ForceDisconnectNotice precedes eviction of a superseded connection
type ForceDisconnectNotice struct {
	Message string `json:"message"`
}

// SyncRequest carries an opaque game-state snapshot
type SyncRequest struct {
	GameState model.GameState `json:"gameState"`
}

// AckReply acknowledges sync and result events
type AckReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BattleResult reports a battle outcome for the stats summary
type BattleResult struct {
	Victory bool `json:"victory"`
	Damage  int  `json:"damage"`
}

// OnlinePlayersReply is the registry snapshot
type OnlinePlayersReply struct {
	Players []model.OnlinePlayer `json:"players"`
}
