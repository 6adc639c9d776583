package game

import (
	"github.com/playdicee/dicee/internal/dicee"
)

// Scorecard tracks which categories a player has filled and with what
// score. Unfilled categories are simply absent; the upper bonus and all
// totals are derived, never stored.
type Scorecard struct {
	Cells map[dicee.Category]int `json:"cells"`
}

// NewScorecard returns an empty scorecard.
func NewScorecard() *Scorecard {
	return &Scorecard{Cells: make(map[dicee.Category]int)}
}

// Has reports whether the category has been scored.
func (sc *Scorecard) Has(c dicee.Category) bool {
	_, ok := sc.Cells[c]
	return ok
}

// Set records a score for a category. The caller must check Has first.
func (sc *Scorecard) Set(c dicee.Category, score int) {
	sc.Cells[c] = score
}

// Available returns the set of unfilled categories.
func (sc *Scorecard) Available() dicee.CategorySet {
	set := dicee.AllCategories()
	for c := range sc.Cells {
		set = set.Remove(c)
	}
	return set
}

// Complete reports whether all 13 categories are filled.
func (sc *Scorecard) Complete() bool {
	return len(sc.Cells) == dicee.NumCategories
}

// Totals holds the derived scorecard totals.
type Totals struct {
	Upper int `json:"upper"`
	Bonus int `json:"bonus"`
	Lower int `json:"lower"`
	Grand int `json:"grand"`
}

// Totals derives the section totals, bonus and grand total.
func (sc *Scorecard) Totals() Totals {
	var t Totals
	for c, score := range sc.Cells {
		if c.IsUpper() {
			t.Upper += score
		} else {
			t.Lower += score
		}
	}
	t.Bonus = dicee.UpperBonus(t.Upper)
	t.Grand = t.Upper + t.Bonus + t.Lower
	return t
}

func (sc *Scorecard) clone() *Scorecard {
	out := NewScorecard()
	for c, score := range sc.Cells {
		out.Cells[c] = score
	}
	return out
}
