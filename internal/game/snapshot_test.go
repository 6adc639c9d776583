package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdicee/dicee/internal/dicee"
	"github.com/playdicee/dicee/internal/randutil"
)

func TestSnapshotRoundTrip(t *testing.T) {
	g := newTestGame(t)

	_, err := g.Roll("alice")
	require.NoError(t, err)
	_, err = g.ToggleKeep("alice", 1)
	require.NoError(t, err)
	_, err = g.Roll("alice")
	require.NoError(t, err)
	_, err = g.Score("alice", dicee.Chance)
	require.NoError(t, err)
	_, err = g.Roll("bob")
	require.NoError(t, err)

	snap := g.Snapshot()
	blob, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(blob, &decoded))

	restored, err := Restore(decoded, randutil.New(42))
	require.NoError(t, err)

	assert.Equal(t, g.CurrentPlayer(), restored.CurrentPlayer())
	assert.Equal(t, g.Round(), restored.Round())
	assert.Equal(t, g.Turn(), restored.Turn())
	assert.Equal(t, g.Scorecard("alice").Cells, restored.Scorecard("alice").Cells)
	assert.Equal(t, g.Scorecard("bob").Cells, restored.Scorecard("bob").Cells)
	assert.Equal(t, g.Over(), restored.Over())
}

func TestRestoreContinuesDiceStream(t *testing.T) {
	g := newTestGame(t)

	_, err := g.Roll("alice")
	require.NoError(t, err)
	_, err = g.Score("alice", dicee.Chance)
	require.NoError(t, err)

	restored, err := Restore(g.Snapshot(), randutil.New(42))
	require.NoError(t, err)

	// A restored game seeded identically replays the consumed draws, so the
	// next roll on both games produces the same dice.
	want, err := g.Roll("bob")
	require.NoError(t, err)
	got, err := restored.Roll("bob")
	require.NoError(t, err)
	assert.Equal(t, want.Dice, got.Dice)
}

func TestSnapshotIsolation(t *testing.T) {
	g := newTestGame(t)
	_, err := g.Roll("alice")
	require.NoError(t, err)

	snap := g.Snapshot()
	snap.Scorecards["alice"].Set(dicee.Chance, 99)
	snap.Turn.Dice[0] = 9

	assert.False(t, g.Scorecard("alice").Has(dicee.Chance))
	assert.NotEqual(t, 9, g.Turn().Dice[0])
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	_, err := Restore(Snapshot{}, randutil.New(1))
	assert.Error(t, err)

	snap := Snapshot{
		Players:    []PlayerID{"a"},
		Scorecards: map[PlayerID]*Scorecard{},
		CurrentIdx: 0,
		Round:      1,
	}
	_, err = Restore(snap, randutil.New(1))
	assert.Error(t, err, "missing scorecard")

	snap.Scorecards["a"] = NewScorecard()
	snap.CurrentIdx = 5
	_, err = Restore(snap, randutil.New(1))
	assert.Error(t, err, "current index out of range")
}

func TestForfeitSkipsSeat(t *testing.T) {
	g, err := New([]PlayerID{"a", "b", "c"}, randutil.New(7))
	require.NoError(t, err)

	require.NoError(t, g.Forfeit("b"))
	_, err = g.Roll("a")
	require.NoError(t, err)
	out, err := g.Score("a", dicee.Chance)
	require.NoError(t, err)
	assert.Equal(t, PlayerID("c"), out.NextPlayer)

	// Forfeiting the acting player hands the turn on immediately.
	require.NoError(t, g.Forfeit("c"))
	assert.Equal(t, PlayerID("a"), g.CurrentPlayer())
	assert.Equal(t, 2, g.Round())

	// Forfeit is idempotent.
	require.NoError(t, g.Forfeit("c"))

	// Last player out ends the game.
	require.NoError(t, g.Forfeit("a"))
	assert.True(t, g.Over())
}

func TestFullSoloGameEndsAfterThirteenRounds(t *testing.T) {
	g, err := New([]PlayerID{"solo"}, randutil.New(11))
	require.NoError(t, err)

	var lastOut ScoreOutcome
	for i := 0; i < dicee.NumCategories; i++ {
		_, err := g.Roll("solo")
		require.NoError(t, err)
		c, ok := g.AutoCategory()
		require.True(t, ok)
		lastOut, err = g.Score("solo", c)
		require.NoError(t, err)
	}

	assert.True(t, lastOut.GameOver)
	assert.True(t, g.Over())
	require.True(t, g.Scorecard("solo").Complete())

	totals := g.FinalTotals()["solo"]
	assert.Equal(t, totals.Upper+totals.Bonus+totals.Lower, totals.Grand)

	_, err = g.Roll("solo")
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestTotalsDerivation(t *testing.T) {
	sc := NewScorecard()
	for _, c := range []dicee.Category{dicee.Ones, dicee.Twos, dicee.Threes, dicee.Fours, dicee.Fives, dicee.Sixes} {
		sc.Set(c, 3*c.UpperFace()) // three of each face: subtotal 63
	}
	sc.Set(dicee.Dicee, 50)

	totals := sc.Totals()
	assert.Equal(t, 63, totals.Upper)
	assert.Equal(t, 35, totals.Bonus)
	assert.Equal(t, 50, totals.Lower)
	assert.Equal(t, 148, totals.Grand)
}
