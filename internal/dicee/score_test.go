package dicee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreUpperSection(t *testing.T) {
	dice := [5]int{1, 1, 2, 3, 4}

	assert.Equal(t, ScoreResult{Score: 2, Valid: true}, Score(dice, Ones))
	assert.Equal(t, ScoreResult{Score: 2, Valid: true}, Score(dice, Twos))
	assert.Equal(t, ScoreResult{Score: 3, Valid: true}, Score(dice, Threes))
	assert.Equal(t, ScoreResult{Score: 4, Valid: true}, Score(dice, Fours))
	// Upper categories stay valid at zero so players can zero them out.
	assert.Equal(t, ScoreResult{Score: 0, Valid: true}, Score(dice, Fives))
	assert.Equal(t, ScoreResult{Score: 0, Valid: true}, Score(dice, Sixes))
}

func TestScoreLowerSection(t *testing.T) {
	tests := []struct {
		name     string
		dice     [5]int
		category Category
		want     ScoreResult
	}{
		{"three of a kind sums all dice", [5]int{3, 3, 3, 4, 5}, ThreeOfAKind, ScoreResult{Score: 18, Valid: true}},
		{"three of a kind not met", [5]int{1, 2, 3, 4, 5}, ThreeOfAKind, ScoreResult{}},
		{"four of a kind sums all dice", [5]int{4, 4, 4, 4, 2}, FourOfAKind, ScoreResult{Score: 18, Valid: true}},
		{"four of a kind not met", [5]int{4, 4, 4, 2, 2}, FourOfAKind, ScoreResult{}},
		{"full house", [5]int{2, 2, 5, 5, 5}, FullHouse, ScoreResult{Score: 25, Valid: true}},
		{"full house not met", [5]int{2, 2, 5, 5, 6}, FullHouse, ScoreResult{}},
		{"five of a kind is not a full house", [5]int{5, 5, 5, 5, 5}, FullHouse, ScoreResult{}},
		{"small straight low", [5]int{1, 2, 3, 4, 4}, SmallStraight, ScoreResult{Score: 30, Valid: true}},
		{"small straight mid", [5]int{2, 3, 4, 5, 5}, SmallStraight, ScoreResult{Score: 30, Valid: true}},
		{"small straight high", [5]int{3, 3, 4, 5, 6}, SmallStraight, ScoreResult{Score: 30, Valid: true}},
		{"small straight not met", [5]int{1, 2, 3, 5, 6}, SmallStraight, ScoreResult{}},
		{"large straight low", [5]int{1, 2, 3, 4, 5}, LargeStraight, ScoreResult{Score: 40, Valid: true}},
		{"large straight high", [5]int{2, 3, 4, 5, 6}, LargeStraight, ScoreResult{Score: 40, Valid: true}},
		{"large straight not met", [5]int{1, 2, 3, 4, 6}, LargeStraight, ScoreResult{}},
		{"dicee", [5]int{4, 4, 4, 4, 4}, Dicee, ScoreResult{Score: 50, Valid: true}},
		{"dicee not met", [5]int{4, 4, 4, 4, 5}, Dicee, ScoreResult{}},
		{"chance sums everything", [5]int{1, 2, 3, 4, 5}, Chance, ScoreResult{Score: 15, Valid: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.dice, tt.category))
		})
	}
}

func TestScoreAll(t *testing.T) {
	results := ScoreAll([5]int{3, 3, 3, 5, 5})

	assert.Equal(t, 25, results[FullHouse].Score)
	assert.Equal(t, 19, results[ThreeOfAKind].Score)
	assert.False(t, results[Dicee].Valid)
	assert.Equal(t, 19, results[Chance].Score)
}

func TestUpperBonus(t *testing.T) {
	assert.Equal(t, 0, UpperBonus(62))
	assert.Equal(t, 35, UpperBonus(63))
	assert.Equal(t, 35, UpperBonus(105))
}

func TestMaxScore(t *testing.T) {
	assert.Equal(t, 5, MaxScore(Ones))
	assert.Equal(t, 30, MaxScore(Sixes))
	assert.Equal(t, 30, MaxScore(ThreeOfAKind))
	assert.Equal(t, 50, MaxScore(Dicee))
	assert.Equal(t, 40, MaxScore(LargeStraight))
	assert.Equal(t, 30, MaxScore(Chance))
}

func TestCategoryRoundTrip(t *testing.T) {
	for _, c := range Categories {
		parsed, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseCategory("yahtzee")
	assert.Error(t, err)
}

func TestCategorySet(t *testing.T) {
	s := AllCategories()
	require.True(t, s.IsFull())
	require.Equal(t, 13, s.Len())

	s = s.Remove(Dicee)
	assert.False(t, s.Contains(Dicee))
	assert.Equal(t, 12, s.Len())
	assert.False(t, s.IsFull())

	s = s.Add(Dicee)
	assert.True(t, s.IsFull())

	var empty CategorySet
	assert.True(t, empty.IsEmpty())

	var seen []Category
	CategorySet(0).Add(Chance).Add(Ones).Each(func(c Category) {
		seen = append(seen, c)
	})
	assert.Equal(t, []Category{Ones, Chance}, seen)
}
