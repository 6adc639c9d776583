package strategy

// Greedy is a rule-based strategy: bank a made pattern category
// immediately, otherwise chase the most common face and score the best
// immediate option when the rolls run out.
type Greedy struct{}

// NewGreedy creates a greedy strategy.
func NewGreedy() *Greedy { return &Greedy{} }

func (g *Greedy) Name() string { return "greedy" }

// goodEnough is the immediate score at which Greedy stops rerolling.
const goodEnough = 25

func (g *Greedy) Decide(ctx GameContext) Decision {
	if ctx.Dice == nil {
		return Decision{Action: ActionRoll}
	}

	best, bestScore := bestImmediate(*ctx.Dice, ctx.Available)
	if ctx.MustScore() {
		return Decision{Action: ActionScore, Category: best}
	}
	if bestScore >= goodEnough {
		return Decision{Action: ActionScore, Category: best}
	}
	return Decision{Action: ActionKeep, Keep: keepMatchingBest(*ctx.Dice)}
}
