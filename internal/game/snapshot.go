package game

import (
	"fmt"
	rand "math/rand/v2"
)

// Snapshot is the serializable form of a Game. Together with the RNG
// seed held by the room it reconstructs an identical match, so a room
// can be evicted from memory and resumed from durable storage alone.
type Snapshot struct {
	Players    []PlayerID               `json:"players"`
	Forfeited  []PlayerID               `json:"forfeited,omitempty"`
	Scorecards map[PlayerID]*Scorecard  `json:"scorecards"`
	Round      int                      `json:"round"`
	CurrentIdx int                      `json:"currentIdx"`
	Turn       Turn                     `json:"turn"`
	Over       bool                     `json:"over"`
	Draws      int                      `json:"draws"`
}

// Snapshot captures the full game state.
func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		Players:    append([]PlayerID(nil), g.players...),
		Scorecards: make(map[PlayerID]*Scorecard, len(g.scorecards)),
		Round:      g.round,
		CurrentIdx: g.currentIdx,
		Turn:       g.Turn(),
		Over:       g.over,
		Draws:      g.draws,
	}
	for p, sc := range g.scorecards {
		snap.Scorecards[p] = sc.clone()
	}
	for _, p := range g.players {
		if g.forfeited[p] {
			snap.Forfeited = append(snap.Forfeited, p)
		}
	}
	return snap
}

// Restore rebuilds a Game from a snapshot. The RNG is supplied by the
// caller, re-derived from the room's persisted seed; Restore replays
// the recorded number of draws so future rolls continue the original
// stream.
func Restore(snap Snapshot, rng *rand.Rand) (*Game, error) {
	if len(snap.Players) == 0 {
		return nil, fmt.Errorf("snapshot has no players")
	}
	if snap.CurrentIdx < 0 || snap.CurrentIdx >= len(snap.Players) {
		return nil, fmt.Errorf("snapshot current index %d out of range", snap.CurrentIdx)
	}
	g := &Game{
		rng:        rng,
		players:    append([]PlayerID(nil), snap.Players...),
		forfeited:  make(map[PlayerID]bool),
		scorecards: make(map[PlayerID]*Scorecard, len(snap.Players)),
		round:      snap.Round,
		currentIdx: snap.CurrentIdx,
		turn:       snap.Turn,
		over:       snap.Over,
		draws:      snap.Draws,
	}
	for i := 0; i < snap.Draws; i++ {
		rng.IntN(6)
	}
	if snap.Turn.Dice != nil {
		dice := *snap.Turn.Dice
		g.turn.Dice = &dice
	}
	for _, p := range snap.Players {
		sc := snap.Scorecards[p]
		if sc == nil {
			return nil, fmt.Errorf("snapshot missing scorecard for %q", p)
		}
		g.scorecards[p] = sc.clone()
	}
	for _, p := range snap.Forfeited {
		g.forfeited[p] = true
	}
	return g, nil
}
