package strategy

import (
	"fmt"
	rand "math/rand/v2"
	"time"
)

// New builds a strategy by wire name. The RNG is only used by
// strategies that need randomness.
func New(name string, rng *rand.Rand) (Strategy, error) {
	switch name {
	case "random":
		return NewRandom(rng), nil
	case "greedy":
		return NewGreedy(), nil
	case "expected-value", "ev":
		return NewExpectedValue(), nil
	default:
		return nil, fmt.Errorf("unknown strategy: %q", name)
	}
}

// Names lists the registered strategy names.
func Names() []string {
	return []string{"random", "greedy", "expected-value"}
}

// DefaultProfile returns the stock personality for a strategy name.
func DefaultProfile(strategyName string) Profile {
	return Profile{
		Name:     strategyName,
		Strategy: strategyName,
		ThinkMin: 500 * time.Millisecond,
		ThinkMax: 2 * time.Second,
	}
}

// ThinkDelay picks a simulated thinking duration within the profile's
// bounds.
func (p Profile) ThinkDelay(rng *rand.Rand) time.Duration {
	if p.ThinkMax <= p.ThinkMin {
		return p.ThinkMin
	}
	return p.ThinkMin + time.Duration(rng.Int64N(int64(p.ThinkMax-p.ThinkMin)))
}
