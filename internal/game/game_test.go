package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdicee/dicee/internal/dicee"
	"github.com/playdicee/dicee/internal/randutil"
)

func newTestGame(t *testing.T, players ...PlayerID) *Game {
	t.Helper()
	if len(players) == 0 {
		players = []PlayerID{"alice", "bob"}
	}
	g, err := New(players, randutil.New(42))
	require.NoError(t, err)
	return g
}

func TestNewGame(t *testing.T) {
	g := newTestGame(t)

	assert.Equal(t, PlayerID("alice"), g.CurrentPlayer())
	assert.Equal(t, 1, g.Round())
	assert.False(t, g.Over())
	assert.Nil(t, g.Turn().Dice)
	assert.Equal(t, MaxRerolls, g.Turn().RollsRemaining)
}

func TestNewGameRejectsDuplicates(t *testing.T) {
	_, err := New([]PlayerID{"alice", "alice"}, randutil.New(1))
	assert.Error(t, err)
}

func TestOpeningRollKeepsRerollBudget(t *testing.T) {
	g := newTestGame(t)

	turn, err := g.Roll("alice")
	require.NoError(t, err)
	require.NotNil(t, turn.Dice)
	assert.Equal(t, MaxRerolls, turn.RollsRemaining)
	for _, d := range turn.Dice {
		assert.GreaterOrEqual(t, d, 1)
		assert.LessOrEqual(t, d, 6)
	}
}

func TestRerollsDecrementAndStop(t *testing.T) {
	g := newTestGame(t)

	_, err := g.Roll("alice")
	require.NoError(t, err)

	turn, err := g.Roll("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, turn.RollsRemaining)

	turn, err = g.Roll("alice")
	require.NoError(t, err)
	assert.Equal(t, 0, turn.RollsRemaining)
	assert.True(t, g.MustScore())

	_, err = g.Roll("alice")
	assert.ErrorIs(t, err, ErrNoRollsLeft)
}

func TestRollsRemainingNeverNegativeOrAboveMax(t *testing.T) {
	g := newTestGame(t)

	for i := 0; i < 10; i++ {
		turn, err := g.Roll("alice")
		if err != nil {
			assert.ErrorIs(t, err, ErrNoRollsLeft)
			turn = g.Turn()
		}
		assert.GreaterOrEqual(t, turn.RollsRemaining, 0)
		assert.LessOrEqual(t, turn.RollsRemaining, MaxRerolls)
	}
}

func TestRollOutOfTurn(t *testing.T) {
	g := newTestGame(t)

	_, err := g.Roll("bob")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = g.Roll("mallory")
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestToggleKeepGuards(t *testing.T) {
	g := newTestGame(t)

	// No roll yet.
	_, err := g.ToggleKeep("alice", 0)
	assert.ErrorIs(t, err, ErrNoRollYet)

	_, err = g.Roll("alice")
	require.NoError(t, err)

	turn, err := g.ToggleKeep("alice", 2)
	require.NoError(t, err)
	assert.True(t, turn.Kept[2])

	turn, err = g.ToggleKeep("alice", 2)
	require.NoError(t, err)
	assert.False(t, turn.Kept[2])

	_, err = g.ToggleKeep("alice", 5)
	assert.ErrorIs(t, err, ErrBadDie)

	// Exhaust rolls; keeping becomes pointless and illegal.
	_, err = g.Roll("alice")
	require.NoError(t, err)
	_, err = g.Roll("alice")
	require.NoError(t, err)
	_, err = g.ToggleKeep("alice", 0)
	assert.ErrorIs(t, err, ErrNoRollsLeft)
}

func TestKeptDiceSurviveReroll(t *testing.T) {
	g := newTestGame(t)

	turn, err := g.Roll("alice")
	require.NoError(t, err)
	held := turn.Dice[3]

	_, err = g.ToggleKeep("alice", 3)
	require.NoError(t, err)

	turn, err = g.Roll("alice")
	require.NoError(t, err)
	assert.Equal(t, held, turn.Dice[3])
}

func TestScoreAdvancesTurnAndRound(t *testing.T) {
	g := newTestGame(t)

	_, err := g.Roll("alice")
	require.NoError(t, err)
	out, err := g.Score("alice", dicee.Chance)
	require.NoError(t, err)
	assert.Equal(t, PlayerID("bob"), out.NextPlayer)
	assert.Equal(t, 1, out.NextRound)
	assert.False(t, out.GameOver)

	// Fresh turn state for bob.
	assert.Nil(t, g.Turn().Dice)
	assert.Equal(t, MaxRerolls, g.Turn().RollsRemaining)

	_, err = g.Roll("bob")
	require.NoError(t, err)
	out, err = g.Score("bob", dicee.Chance)
	require.NoError(t, err)
	assert.Equal(t, PlayerID("alice"), out.NextPlayer)
	assert.Equal(t, 2, out.NextRound)
	assert.Equal(t, 2, g.Round())
}

func TestScoreGuards(t *testing.T) {
	g := newTestGame(t)

	_, err := g.Score("alice", dicee.Chance)
	assert.ErrorIs(t, err, ErrNoRollYet)

	_, err = g.Roll("alice")
	require.NoError(t, err)
	_, err = g.Score("bob", dicee.Chance)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = g.Score("alice", dicee.Chance)
	require.NoError(t, err)

	// Next round: the category is now taken.
	_, err = g.Roll("bob")
	require.NoError(t, err)
	_, err = g.Score("bob", dicee.Chance)
	require.NoError(t, err)
	_, err = g.Roll("alice")
	require.NoError(t, err)
	_, err = g.Score("alice", dicee.Chance)
	assert.ErrorIs(t, err, ErrCategoryTaken)
}

func TestDiceeScoresFifty(t *testing.T) {
	g := newTestGame(t)

	// Force a known final position.
	_, err := g.Roll("alice")
	require.NoError(t, err)
	dice := [5]int{5, 5, 5, 5, 5}
	g.turn.Dice = &dice
	g.turn.RollsRemaining = 0

	require.True(t, g.MustScore())
	out, err := g.Score("alice", dicee.Dicee)
	require.NoError(t, err)
	assert.Equal(t, 50, out.Score)
	assert.Equal(t, MaxRerolls, g.Turn().RollsRemaining)
}

func TestAutoCategoryPrefersValid(t *testing.T) {
	g := newTestGame(t)

	_, err := g.Roll("alice")
	require.NoError(t, err)
	dice := [5]int{5, 5, 5, 5, 5}
	g.turn.Dice = &dice

	c, ok := g.AutoCategory()
	require.True(t, ok)
	// Fives is the first canonical category these dice make valid with
	// a non-trivial pattern check; Ones..Fours are valid uppers too, so
	// canonical order picks Ones first.
	assert.Equal(t, dicee.Ones, c)

	// Fill the upper section; the first valid lower category wins next.
	sc := g.Scorecard("alice")
	for _, upper := range []dicee.Category{dicee.Ones, dicee.Twos, dicee.Threes, dicee.Fours, dicee.Fives, dicee.Sixes} {
		sc.Set(upper, 0)
	}
	c, ok = g.AutoCategory()
	require.True(t, ok)
	assert.Equal(t, dicee.ThreeOfAKind, c)
}

func TestAutoCategoryFallsBackToZero(t *testing.T) {
	g := newTestGame(t)

	_, err := g.Roll("alice")
	require.NoError(t, err)
	dice := [5]int{1, 2, 3, 5, 6}
	g.turn.Dice = &dice

	// Leave only categories these dice cannot make valid.
	sc := g.Scorecard("alice")
	for _, c := range dicee.Categories {
		if c != dicee.Dicee && c != dicee.LargeStraight {
			sc.Set(c, 0)
		}
	}

	c, ok := g.AutoCategory()
	require.True(t, ok)
	assert.Equal(t, dicee.LargeStraight, c, "falls back to first unset category")
}
