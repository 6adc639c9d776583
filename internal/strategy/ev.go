package strategy

import (
	"github.com/playdicee/dicee/internal/dicee"
)

// ExpectedValue weighs banking the best immediate score against the
// expected value of holding the most common face and rerolling, using
// the oracle's outlook math. It chases the upper bonus when behind on
// the subtotal and takes more risk in the final round when trailing.
type ExpectedValue struct{}

// NewExpectedValue creates an expected-value strategy.
func NewExpectedValue() *ExpectedValue { return &ExpectedValue{} }

func (e *ExpectedValue) Name() string { return "expected-value" }

func (e *ExpectedValue) Decide(ctx GameContext) Decision {
	if ctx.Dice == nil {
		return Decision{Action: ActionRoll}
	}

	best, bestScore := bestImmediate(*ctx.Dice, ctx.Available)
	if ctx.MustScore() {
		return Decision{Action: ActionScore, Category: e.pickCategory(ctx)}
	}

	keep := keepMatchingBest(*ctx.Dice)
	outlook := dicee.Probabilities(*ctx.Dice, keep, ctx.RollsRemaining)

	continueEV := 0.0
	ctx.Available.Each(func(c dicee.Category) {
		if ev := outlook[c].ExpectedValue; ev > continueEV {
			continueEV = ev
		}
	})

	// Trailing in the final round: gamble unless the bird in hand is
	// clearly better.
	margin := 0.0
	if ctx.FinalRound && ctx.ScoreDiff < 0 {
		margin = 5.0
	}

	if float64(bestScore) >= continueEV-margin {
		return Decision{Action: ActionScore, Category: best}
	}
	return Decision{Action: ActionKeep, Keep: keep}
}

// pickCategory chooses what to bank on a forced score. It prefers the
// highest immediate score but tips toward an upper category when that
// keeps the bonus in reach.
func (e *ExpectedValue) pickCategory(ctx GameContext) dicee.Category {
	best, bestScore := bestImmediate(*ctx.Dice, ctx.Available)

	if ctx.UpperSubtotal < dicee.UpperBonusThreshold {
		ctx.Available.Each(func(c dicee.Category) {
			if !c.IsUpper() {
				return
			}
			r := dicee.Score(*ctx.Dice, c)
			// Three-of-face pace keeps the bonus on track.
			if r.Score >= 3*c.UpperFace() && r.Score+10 >= bestScore {
				best, bestScore = c, r.Score
			}
		})
	}
	return best
}
