// Package game implements the authoritative turn state machine for one
// dice match: whose turn it is, the current dice and keep mask, rolls
// remaining, scorecards, and round advancement. It knows nothing about
// connections or timers; the room coordinator drives it and both human
// and AI commands arrive through the same transition functions.
package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/playdicee/dicee/internal/dicee"
)

// PlayerID identifies a match participant. It is the verified identity
// of a seat occupant, not a connection.
type PlayerID string

// NumRounds is the number of rounds in a complete match, one per category.
const NumRounds = 13

// MaxRerolls is the reroll budget per turn, after the opening roll.
const MaxRerolls = 2

var (
	ErrNotYourTurn   = errors.New("not your turn")
	ErrUnknownPlayer = errors.New("player is not in this game")
	ErrNoRollYet     = errors.New("no roll yet this turn")
	ErrNoRollsLeft   = errors.New("no rolls remaining, a category must be scored")
	ErrCategoryTaken = errors.New("category already scored")
	ErrGameOver      = errors.New("the game is over")
	ErrBadDie        = errors.New("die index out of range")
)

// Turn is the state within the current player's turn. Dice is nil until
// the opening roll: consumers must treat "no roll yet" as a distinct
// state, never substitute a default.
type Turn struct {
	Dice           *[5]int `json:"dice,omitempty"`
	Kept           [5]bool `json:"kept"`
	RollsRemaining int     `json:"rollsRemaining"`
}

// Game is one match in progress. All mutation happens through Roll,
// ToggleKeep, Score and Forfeit; the room coordinator serializes calls.
type Game struct {
	rng *rand.Rand

	players    []PlayerID
	forfeited  map[PlayerID]bool
	scorecards map[PlayerID]*Scorecard

	round      int
	currentIdx int
	turn       Turn
	over       bool

	// draws counts die rolls taken from the RNG, so a restored game can
	// fast-forward a freshly seeded stream to the same position.
	draws int
}

// New creates a game for the given seat-ordered players. The RNG is
// owned by the caller and must be seeded per room.
func New(players []PlayerID, rng *rand.Rand) (*Game, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("a game needs at least one player")
	}
	g := &Game{
		rng:        rng,
		players:    append([]PlayerID(nil), players...),
		forfeited:  make(map[PlayerID]bool),
		scorecards: make(map[PlayerID]*Scorecard),
		round:      1,
		turn:       Turn{RollsRemaining: MaxRerolls},
	}
	for _, p := range players {
		if _, dup := g.scorecards[p]; dup {
			return nil, fmt.Errorf("duplicate player %q", p)
		}
		g.scorecards[p] = NewScorecard()
	}
	return g, nil
}

// CurrentPlayer returns whose turn it is.
func (g *Game) CurrentPlayer() PlayerID {
	return g.players[g.currentIdx]
}

// Round returns the current round, 1..13.
func (g *Game) Round() int { return g.round }

// Over reports whether the match has ended.
func (g *Game) Over() bool { return g.over }

// Turn returns a copy of the current turn state.
func (g *Game) Turn() Turn {
	t := g.turn
	if g.turn.Dice != nil {
		dice := *g.turn.Dice
		t.Dice = &dice
	}
	return t
}

// Players returns the seat-ordered player IDs.
func (g *Game) Players() []PlayerID {
	return append([]PlayerID(nil), g.players...)
}

// Scorecard returns the scorecard for a player, or nil if unknown.
func (g *Game) Scorecard(p PlayerID) *Scorecard {
	return g.scorecards[p]
}

// Forfeited reports whether a player has been removed from rotation.
func (g *Game) Forfeited(p PlayerID) bool {
	return g.forfeited[p]
}

// FinalRound reports whether this is the last round of the match.
func (g *Game) FinalRound() bool {
	return g.round == NumRounds
}

// Roll rolls every non-kept die for the current player. The opening
// roll of a turn rolls all five dice and leaves the reroll budget
// untouched; subsequent rolls consume it.
func (g *Game) Roll(p PlayerID) (Turn, error) {
	if err := g.checkActing(p); err != nil {
		return Turn{}, err
	}

	if g.turn.Dice == nil {
		var dice [5]int
		for i := range dice {
			dice[i] = g.rollDie()
		}
		g.turn.Dice = &dice
		return g.Turn(), nil
	}

	if g.turn.RollsRemaining <= 0 {
		return Turn{}, ErrNoRollsLeft
	}
	for i := range g.turn.Dice {
		if !g.turn.Kept[i] {
			g.turn.Dice[i] = g.rollDie()
		}
	}
	g.turn.RollsRemaining--
	return g.Turn(), nil
}

// ToggleKeep flips the keep flag on one die. Legal once a roll has
// occurred this turn and rerolls remain.
func (g *Game) ToggleKeep(p PlayerID, die int) (Turn, error) {
	if err := g.checkActing(p); err != nil {
		return Turn{}, err
	}
	if die < 0 || die > 4 {
		return Turn{}, ErrBadDie
	}
	if g.turn.Dice == nil {
		return Turn{}, ErrNoRollYet
	}
	if g.turn.RollsRemaining <= 0 {
		return Turn{}, ErrNoRollsLeft
	}
	g.turn.Kept[die] = !g.turn.Kept[die]
	return g.Turn(), nil
}

// ScoreOutcome reports what a Score transition did.
type ScoreOutcome struct {
	Player     PlayerID
	Category   dicee.Category
	Score      int
	NextPlayer PlayerID
	NextRound  int
	GameOver   bool
}

// Score commits the current dice to a category, then advances the turn
// to the next seat still in rotation, wrapping the round as needed.
func (g *Game) Score(p PlayerID, c dicee.Category) (ScoreOutcome, error) {
	if err := g.checkActing(p); err != nil {
		return ScoreOutcome{}, err
	}
	if g.turn.Dice == nil {
		return ScoreOutcome{}, ErrNoRollYet
	}
	sc := g.scorecards[p]
	if sc.Has(c) {
		return ScoreOutcome{}, ErrCategoryTaken
	}

	result := dicee.Score(*g.turn.Dice, c)
	sc.Set(c, result.Score)

	out := ScoreOutcome{Player: p, Category: c, Score: result.Score}
	g.advanceTurn()
	out.GameOver = g.over
	out.NextRound = g.round
	if !g.over {
		out.NextPlayer = g.CurrentPlayer()
	}
	return out, nil
}

// AutoCategory picks the category a forced score should use: the first
// unset category in canonical order that the dice make valid, falling
// back to the first unset category (scored as zero). The second return
// is false when the scorecard is already complete.
func (g *Game) AutoCategory() (dicee.Category, bool) {
	if g.over || g.turn.Dice == nil {
		return 0, false
	}
	sc := g.scorecards[g.CurrentPlayer()]
	available := sc.Available()
	if available.IsEmpty() {
		return 0, false
	}
	for _, c := range dicee.Categories {
		if available.Contains(c) && dicee.Score(*g.turn.Dice, c).Valid {
			return c, true
		}
	}
	for _, c := range dicee.Categories {
		if available.Contains(c) {
			return c, true
		}
	}
	return 0, false
}

// MustScore reports whether the current player has exhausted their
// rolls and owes a score before any other action.
func (g *Game) MustScore() bool {
	return !g.over && g.turn.Dice != nil && g.turn.RollsRemaining == 0
}

// Forfeit removes a player from rotation. Their scorecard is kept for
// final standings. If it was their turn, the turn advances; the game
// ends when nobody is left in rotation.
func (g *Game) Forfeit(p PlayerID) error {
	if g.over {
		return ErrGameOver
	}
	if _, ok := g.scorecards[p]; !ok {
		return ErrUnknownPlayer
	}
	if g.forfeited[p] {
		return nil
	}
	g.forfeited[p] = true

	if g.activeCount() == 0 {
		g.over = true
		return nil
	}
	if g.CurrentPlayer() == p {
		g.advanceTurn()
	}
	return nil
}

// FinalTotals returns the derived totals per player, including
// forfeited seats.
func (g *Game) FinalTotals() map[PlayerID]Totals {
	out := make(map[PlayerID]Totals, len(g.scorecards))
	for p, sc := range g.scorecards {
		out[p] = sc.Totals()
	}
	return out
}

func (g *Game) checkActing(p PlayerID) error {
	if g.over {
		return ErrGameOver
	}
	if _, ok := g.scorecards[p]; !ok {
		return ErrUnknownPlayer
	}
	if g.CurrentPlayer() != p {
		return ErrNotYourTurn
	}
	return nil
}

func (g *Game) rollDie() int {
	g.draws++
	return g.rng.IntN(6) + 1
}

func (g *Game) activeCount() int {
	n := 0
	for _, p := range g.players {
		if !g.forfeited[p] && !g.scorecards[p].Complete() {
			n++
		}
	}
	return n
}

// advanceTurn resets the turn state and moves to the next seat still in
// rotation, incrementing the round when play wraps.
func (g *Game) advanceTurn() {
	g.turn = Turn{RollsRemaining: MaxRerolls}

	if g.activeCount() == 0 {
		g.over = true
		return
	}

	idx := g.currentIdx
	for i := 0; i < len(g.players); i++ {
		idx++
		if idx >= len(g.players) {
			idx = 0
			g.round++
		}
		p := g.players[idx]
		if !g.forfeited[p] && !g.scorecards[p].Complete() {
			g.currentIdx = idx
			return
		}
	}
	// No seat can act; should be unreachable given the activeCount guard.
	g.over = true
}
