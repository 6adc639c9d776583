package strategy

import (
	rand "math/rand/v2"

	"github.com/playdicee/dicee/internal/dicee"
)

// Random plays uniformly at random: a coin flip between rolling and
// scoring, random keep masks, random available category. Useful as a
// baseline opponent and for fuzzing the coordinator.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a random strategy with its own RNG.
func NewRandom(rng *rand.Rand) *Random {
	return &Random{rng: rng}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Decide(ctx GameContext) Decision {
	if ctx.Dice == nil {
		return Decision{Action: ActionRoll}
	}
	if ctx.MustScore() || r.rng.IntN(2) == 0 {
		return Decision{Action: ActionScore, Category: r.randomCategory(ctx.Available)}
	}
	var keep [5]bool
	for i := range keep {
		keep[i] = r.rng.IntN(2) == 0
	}
	return Decision{Action: ActionKeep, Keep: keep}
}

func (r *Random) randomCategory(available dicee.CategorySet) dicee.Category {
	var choices []dicee.Category
	available.Each(func(c dicee.Category) {
		choices = append(choices, c)
	})
	if len(choices) == 0 {
		return dicee.Chance
	}
	return choices[r.rng.IntN(len(choices))]
}
