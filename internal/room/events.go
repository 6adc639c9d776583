package room

import (
	"time"

	"github.com/playdicee/dicee/internal/dicee"
	"github.com/playdicee/dicee/internal/game"
)

// EventType names an outbound room event.
type EventType string

const (
	EventSeatAssigned       EventType = "seat_assigned"
	EventRoomState          EventType = "room_state"
	EventGameStarted        EventType = "game_started"
	EventDiceRolled         EventType = "dice_rolled"
	EventDiceKept           EventType = "dice_kept"
	EventCategoryScored     EventType = "category_scored"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
	EventPlayerForfeited    EventType = "player_forfeited"
	EventGameOver           EventType = "game_over"
	EventChat               EventType = "chat"
	EventError              EventType = "error"
)

// Event is a single outbound notification. Data is one of the payload
// structs below; the transport layer owns serialization.
type Event struct {
	Type EventType
	Data any
}

// Sender delivers events to the connections attached to a room.
// Broadcast fans out to every attached connection; Unicast targets one.
// Both must preserve per-connection ordering.
type Sender interface {
	Broadcast(ev Event)
	Unicast(connID string, ev Event)
	// Close drops a connection from the transport, used when a newer
	// socket supersedes it for the same identity.
	Close(connID string)
}

// SeatAssignedData confirms a seat to the joining connection and
// announces the occupant to the room.
type SeatAssignedData struct {
	SeatIndex   int    `json:"seat_index"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Reclaimed   bool   `json:"reclaimed,omitempty"`
}

// SeatView is one seat in a room state snapshot.
type SeatView struct {
	Index       int    `json:"index"`
	PlayerID    string `json:"player_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Status      string `json:"status"`
	Bot         bool   `json:"bot,omitempty"`
}

// TurnView is the observable turn state. Dice is nil before the
// opening roll of a turn.
type TurnView struct {
	PlayerID       string  `json:"player_id"`
	Dice           *[5]int `json:"dice"`
	Kept           [5]bool `json:"kept"`
	RollsRemaining int     `json:"rolls_remaining"`
}

// ScorecardView is one player's scorecard plus derived totals.
type ScorecardView struct {
	PlayerID string                   `json:"player_id"`
	Cells    map[dicee.Category]int   `json:"cells"`
	Totals   game.Totals              `json:"totals"`
	Dropped  bool                     `json:"dropped,omitempty"`
}

// RoomStateData is the full observable room state, sent on join,
// reconnect, and game start so a client can render from scratch.
type RoomStateData struct {
	Code       string          `json:"code"`
	Phase      Phase           `json:"phase"`
	Round      int             `json:"round,omitempty"`
	Seats      []SeatView      `json:"seats"`
	Turn       *TurnView       `json:"turn,omitempty"`
	Scorecards []ScorecardView `json:"scorecards,omitempty"`
}

// DiceRolledData reports the outcome of a roll.
type DiceRolledData struct {
	PlayerID       string `json:"player_id"`
	Dice           [5]int `json:"dice"`
	RollsRemaining int    `json:"rolls_remaining"`
}

// DiceKeptData reports the keep mask after a toggle.
type DiceKeptData struct {
	PlayerID string  `json:"player_id"`
	Kept     [5]bool `json:"kept"`
}

// CategoryScoredData reports a scored category. Auto is set when the
// room forced the score on the player's behalf after a decision
// timeout or a forfeit.
type CategoryScoredData struct {
	PlayerID     string         `json:"player_id"`
	Category     dicee.Category `json:"category"`
	Score        int            `json:"score"`
	Auto         bool           `json:"auto,omitempty"`
	NextPlayerID string         `json:"next_player_id,omitempty"`
	Round        int            `json:"round"`
}

// PlayerPresenceData announces a disconnect or reconnect.
type PlayerPresenceData struct {
	SeatIndex int    `json:"seat_index"`
	PlayerID  string `json:"player_id"`
	// Deadline is when the reclaim window closes; only set on disconnect.
	Deadline *time.Time `json:"deadline,omitempty"`
}

// PlayerForfeitedData announces a seat release during play.
type PlayerForfeitedData struct {
	SeatIndex int           `json:"seat_index"`
	PlayerID  string        `json:"player_id"`
	Reason    ReleaseReason `json:"reason"`
}

// FinalScore is one line of the game-over summary, ordered best first.
type FinalScore struct {
	PlayerID string      `json:"player_id"`
	Totals   game.Totals `json:"totals"`
	Dropped  bool        `json:"dropped,omitempty"`
}

// GameOverData closes out a match.
type GameOverData struct {
	Winner string       `json:"winner,omitempty"`
	Scores []FinalScore `json:"scores"`
}

// ChatData relays a table chat line.
type ChatData struct {
	PlayerID    string `json:"player_id,omitempty"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}
