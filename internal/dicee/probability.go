package dicee

// CategoryOutlook describes one category's prospects if the player
// holds the current keep mask and rerolls the free dice.
type CategoryOutlook struct {
	Category      Category `json:"category"`
	Probability   float64  `json:"probability"`
	ExpectedValue float64  `json:"expectedValue"`
}

// Probabilities computes, for every category, the probability that the
// category comes up valid and the expected score, assuming the kept
// dice are held and every free die is rerolled.
//
// With a fixed keep mask only the final roll of a free die matters, so
// one exact enumeration of the free dice covers any rollsRemaining > 0.
// At rollsRemaining == 0 the current dice are final and the outlook is
// just the deterministic score.
func Probabilities(dice [5]int, kept [5]bool, rollsRemaining int) [NumCategories]CategoryOutlook {
	var out [NumCategories]CategoryOutlook

	if rollsRemaining <= 0 {
		for i, c := range Categories {
			r := Score(dice, c)
			p := 0.0
			if r.Valid {
				p = 1.0
			}
			out[i] = CategoryOutlook{Category: c, Probability: p, ExpectedValue: float64(r.Score)}
		}
		return out
	}

	var free []int
	for i, k := range kept {
		if !k {
			free = append(free, i)
		}
	}

	var validCount [NumCategories]int
	var scoreSum [NumCategories]int
	outcomes := 0

	trial := dice
	var enumerate func(idx int)
	enumerate = func(idx int) {
		if idx == len(free) {
			outcomes++
			for i, c := range Categories {
				r := Score(trial, c)
				if r.Valid {
					validCount[i]++
				}
				scoreSum[i] += r.Score
			}
			return
		}
		for face := 1; face <= 6; face++ {
			trial[free[idx]] = face
			enumerate(idx + 1)
		}
	}
	enumerate(0)

	for i, c := range Categories {
		out[i] = CategoryOutlook{
			Category:      c,
			Probability:   float64(validCount[i]) / float64(outcomes),
			ExpectedValue: float64(scoreSum[i]) / float64(outcomes),
		}
	}
	return out
}
