package room

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/playdicee/dicee/internal/game"
)

// SeatSnapshot is the durable form of a Seat. Bot strategy is stored
// by name and rebuilt on resume.
type SeatSnapshot struct {
	Index         int        `json:"index"`
	PlayerID      string     `json:"player_id,omitempty"`
	DisplayName   string     `json:"display_name,omitempty"`
	Status        SeatStatus `json:"status"`
	Bot           bool       `json:"bot,omitempty"`
	BotStrategy   string     `json:"bot_strategy,omitempty"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty"`
	ReclaimUntil  *time.Time `json:"reclaim_until,omitempty"`
}

// Snapshot is the durable form of a Room: everything needed to evict
// the room from memory and rebuild an identical coordinator later.
// Pending deadlines are not stored per alarm; each one is re-derived
// from the seat and game state on resume.
type Snapshot struct {
	Code           string         `json:"code"`
	Phase          Phase          `json:"phase"`
	Seed           int64          `json:"seed"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	Seats          []SeatSnapshot `json:"seats"`
	Game           *game.Snapshot `json:"game,omitempty"`
}

func (r *Room) snapshot() Snapshot {
	snap := Snapshot{
		Code:           r.code,
		Phase:          r.phase,
		Seed:           r.seed,
		CreatedAt:      r.createdAt,
		LastActivityAt: r.lastActivity,
		Seats:          make([]SeatSnapshot, len(r.seats.seats)),
	}
	for i, s := range r.seats.seats {
		ss := SeatSnapshot{
			Index:       s.Index,
			PlayerID:    s.PlayerID,
			DisplayName: s.DisplayName,
			Status:      s.Status,
			Bot:         s.Bot,
		}
		if s.Profile != nil {
			ss.BotStrategy = s.Profile.Name
		}
		if !s.ReservedUntil.IsZero() {
			t := s.ReservedUntil
			ss.ReservedUntil = &t
		}
		if !s.ReclaimUntil.IsZero() {
			t := s.ReclaimUntil
			ss.ReclaimUntil = &t
		}
		snap.Seats[i] = ss
	}
	if r.game != nil {
		gs := r.game.Snapshot()
		snap.Game = &gs
	}
	return snap
}

func (r *Room) encodeSnapshot() (json.RawMessage, error) {
	return json.Marshal(r.snapshot())
}

func decodeSnapshot(raw json.RawMessage) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode room snapshot: %w", err)
	}
	if snap.Code == "" {
		return Snapshot{}, fmt.Errorf("room snapshot has no code")
	}
	if len(snap.Seats) == 0 {
		return Snapshot{}, fmt.Errorf("room snapshot has no seats")
	}
	return snap, nil
}
