package dicee

// ScoreResult is the outcome of scoring five dice in a category.
// A category is valid when the dice satisfy its pattern; invalid
// categories score zero but may still be taken (zeroing out).
type ScoreResult struct {
	Score int  `json:"score"`
	Valid bool `json:"valid"`
}

// UpperBonusThreshold is the upper-section subtotal required for the bonus.
const UpperBonusThreshold = 63

// UpperBonusValue is the bonus awarded at or above the threshold.
const UpperBonusValue = 35

// faceCounts tallies how many dice show each face. Index 0 is unused.
func faceCounts(dice [5]int) [7]int {
	var counts [7]int
	for _, d := range dice {
		if d >= 1 && d <= 6 {
			counts[d]++
		}
	}
	return counts
}

func diceSum(dice [5]int) int {
	sum := 0
	for _, d := range dice {
		sum += d
	}
	return sum
}

// Score computes the score for five dice in the given category.
func Score(dice [5]int, c Category) ScoreResult {
	counts := faceCounts(dice)

	if c.IsUpper() {
		face := c.UpperFace()
		// The upper section always accepts the dice, even at zero.
		return ScoreResult{Score: face * counts[face], Valid: true}
	}

	switch c {
	case ThreeOfAKind:
		return scoreOfAKind(counts, dice, 3)
	case FourOfAKind:
		return scoreOfAKind(counts, dice, 4)
	case FullHouse:
		if isFullHouse(counts) {
			return ScoreResult{Score: 25, Valid: true}
		}
	case SmallStraight:
		if hasRun(counts, 4) {
			return ScoreResult{Score: 30, Valid: true}
		}
	case LargeStraight:
		if hasRun(counts, 5) {
			return ScoreResult{Score: 40, Valid: true}
		}
	case Dicee:
		if maxCount(counts) == 5 {
			return ScoreResult{Score: 50, Valid: true}
		}
	case Chance:
		return ScoreResult{Score: diceSum(dice), Valid: true}
	}
	return ScoreResult{}
}

// ScoreAll scores every category for the given dice, in canonical order.
func ScoreAll(dice [5]int) [NumCategories]ScoreResult {
	var out [NumCategories]ScoreResult
	for i, c := range Categories {
		out[i] = Score(dice, c)
	}
	return out
}

// UpperBonus returns the bonus earned for an upper-section subtotal.
func UpperBonus(subtotal int) int {
	if subtotal >= UpperBonusThreshold {
		return UpperBonusValue
	}
	return 0
}

// MaxScore returns the highest score obtainable in a category.
func MaxScore(c Category) int {
	if c.IsUpper() {
		return 5 * c.UpperFace()
	}
	if fixed := c.FixedScore(); fixed > 0 {
		return fixed
	}
	// ThreeOfAKind, FourOfAKind, Chance: all sixes.
	return 30
}

func scoreOfAKind(counts [7]int, dice [5]int, n int) ScoreResult {
	if maxCount(counts) >= n {
		return ScoreResult{Score: diceSum(dice), Valid: true}
	}
	return ScoreResult{}
}

func maxCount(counts [7]int) int {
	best := 0
	for face := 1; face <= 6; face++ {
		if counts[face] > best {
			best = counts[face]
		}
	}
	return best
}

func isFullHouse(counts [7]int) bool {
	hasThree, hasTwo := false, false
	for face := 1; face <= 6; face++ {
		switch counts[face] {
		case 3:
			hasThree = true
		case 2:
			hasTwo = true
		}
	}
	return hasThree && hasTwo
}

// hasRun reports whether the dice contain n consecutive faces.
func hasRun(counts [7]int, n int) bool {
	run := 0
	for face := 1; face <= 6; face++ {
		if counts[face] > 0 {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}
