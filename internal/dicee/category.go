// Package dicee implements the scoring rules and probability math for a
// 5-die, 13-category dice game. It is pure: no clocks, no randomness,
// no I/O. The session layer consumes it through Score and Probabilities.
package dicee

import "fmt"

// Category identifies one of the 13 scoring categories.
type Category int

const (
	// Upper section: sum of matching dice.
	Ones Category = iota
	Twos
	Threes
	Fours
	Fives
	Sixes

	// Lower section.
	ThreeOfAKind
	FourOfAKind
	FullHouse
	SmallStraight
	LargeStraight
	Dicee
	Chance
)

// NumCategories is the total number of scoring categories.
const NumCategories = 13

// Categories lists all categories in canonical order. Forced scoring
// walks this order when picking a category on behalf of a player.
var Categories = [NumCategories]Category{
	Ones, Twos, Threes, Fours, Fives, Sixes,
	ThreeOfAKind, FourOfAKind, FullHouse,
	SmallStraight, LargeStraight, Dicee, Chance,
}

var categoryNames = [NumCategories]string{
	"ones", "twos", "threes", "fours", "fives", "sixes",
	"three_of_a_kind", "four_of_a_kind", "full_house",
	"small_straight", "large_straight", "dicee", "chance",
}

// String returns the wire name of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= NumCategories {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory converts a wire name back to a Category.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category: %q", s)
}

// IsUpper reports whether c belongs to the upper section.
func (c Category) IsUpper() bool {
	return c >= Ones && c <= Sixes
}

// UpperFace returns the die face an upper-section category counts.
// Returns 0 for lower-section categories.
func (c Category) UpperFace() int {
	if !c.IsUpper() {
		return 0
	}
	return int(c) + 1
}

// FixedScore returns the fixed score for pattern categories
// (FullHouse 25, SmallStraight 30, LargeStraight 40, Dicee 50)
// and 0 for categories whose score depends on the dice.
func (c Category) FixedScore() int {
	switch c {
	case FullHouse:
		return 25
	case SmallStraight:
		return 30
	case LargeStraight:
		return 40
	case Dicee:
		return 50
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler so categories serialize
// as their wire names inside snapshots and events.
func (c Category) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= NumCategories {
		return nil, fmt.Errorf("invalid category: %d", int(c))
	}
	return []byte(categoryNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// CategorySet is a bitmask over the 13 categories. The zero value is
// the empty set.
type CategorySet uint16

const allCategoriesMask CategorySet = (1 << NumCategories) - 1

// AllCategories returns a set containing every category.
func AllCategories() CategorySet {
	return allCategoriesMask
}

// Contains reports whether the set includes c.
func (s CategorySet) Contains(c Category) bool {
	return s&(1<<uint(c)) != 0
}

// Add returns the set with c included.
func (s CategorySet) Add(c Category) CategorySet {
	return s | (1 << uint(c))
}

// Remove returns the set with c excluded.
func (s CategorySet) Remove(c Category) CategorySet {
	return s &^ (1 << uint(c))
}

// Len returns the number of categories in the set.
func (s CategorySet) Len() int {
	n := 0
	for v := s & allCategoriesMask; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// IsEmpty reports whether the set has no categories.
func (s CategorySet) IsEmpty() bool {
	return s&allCategoriesMask == 0
}

// IsFull reports whether every category is present.
func (s CategorySet) IsFull() bool {
	return s&allCategoriesMask == allCategoriesMask
}

// Each iterates the set in canonical order.
func (s CategorySet) Each(fn func(Category)) {
	for _, c := range Categories {
		if s.Contains(c) {
			fn(c)
		}
	}
}
