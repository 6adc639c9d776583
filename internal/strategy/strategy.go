// Package strategy defines the pluggable decision capability used for
// AI-occupied seats. The coordinator builds a GameContext, asks the
// strategy to decide, and applies the decision through the same game
// transitions human commands use. Strategies are pure decision logic;
// personality (name, think-time bounds) lives in a data-only Profile.
package strategy

import (
	"time"

	"github.com/playdicee/dicee/internal/dicee"
)

// ActionKind is what the strategy wants to do with its turn.
type ActionKind string

const (
	// ActionRoll rolls every non-kept die.
	ActionRoll ActionKind = "roll"
	// ActionKeep sets the keep mask, then rolls.
	ActionKeep ActionKind = "keep"
	// ActionScore commits the dice to a category.
	ActionScore ActionKind = "score"
)

// Decision is one turn step chosen by a strategy.
type Decision struct {
	Action   ActionKind
	Keep     [5]bool        // used when Action == ActionKeep
	Category dicee.Category // used when Action == ActionScore
}

// GameContext is everything a strategy may consider. It is a snapshot;
// strategies must not retain it across calls.
type GameContext struct {
	Dice           *[5]int // nil before the opening roll
	Kept           [5]bool
	RollsRemaining int

	Available     dicee.CategorySet
	UpperSubtotal int
	OwnTotal      int

	Round          int
	FinalRound     bool
	OpponentTotals []int
	ScoreDiff      int // own total minus best opponent total
}

// MustScore reports whether scoring is the only legal move.
func (ctx GameContext) MustScore() bool {
	return ctx.Dice != nil && ctx.RollsRemaining == 0
}

// Strategy produces a decision for the current turn state.
type Strategy interface {
	// Decide returns the next step. Implementations must return a legal
	// decision whenever at least one category is available.
	Decide(ctx GameContext) Decision

	// Name identifies the strategy on the wire and in logs.
	Name() string
}

// Profile is the data-only personality attached to an AI seat.
type Profile struct {
	Name     string        `json:"name"`
	Strategy string        `json:"strategy"`
	ThinkMin time.Duration `json:"thinkMin"`
	ThinkMax time.Duration `json:"thinkMax"`
}

// bestImmediate returns the available category with the highest score
// for the given dice, preferring canonical order on ties.
func bestImmediate(dice [5]int, available dicee.CategorySet) (dicee.Category, int) {
	best := dicee.Category(-1)
	bestScore := -1
	available.Each(func(c dicee.Category) {
		if s := dicee.Score(dice, c).Score; s > bestScore {
			best, bestScore = c, s
		}
	})
	return best, bestScore
}

// keepMatchingBest keeps the dice showing the face that appears most
// often, the standard shape-chasing hold.
func keepMatchingBest(dice [5]int) [5]bool {
	var counts [7]int
	for _, d := range dice {
		counts[d]++
	}
	bestFace, bestCount := 0, 0
	for face := 6; face >= 1; face-- {
		if counts[face] > bestCount {
			bestFace, bestCount = face, counts[face]
		}
	}
	var keep [5]bool
	for i, d := range dice {
		keep[i] = d == bestFace
	}
	return keep
}
