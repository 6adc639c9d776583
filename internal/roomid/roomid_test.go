package roomid

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	if len(id) != Length {
		t.Errorf("expected %d characters, got %d", Length, len(id))
	}
	if err := Validate(id); err != nil {
		t.Errorf("generated code failed validation: %v", err)
	}
}

func TestGenerateUnique(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := Generate()
		if ids[id] {
			t.Errorf("duplicate code generated: %s", id)
		}
		ids[id] = true
	}
}

type mockRandSource struct {
	values []int
	index  int
}

func (m *mockRandSource) Intn(n int) int {
	if m.index >= len(m.values) {
		return 0
	}
	val := m.values[m.index] % n
	m.index++
	return val
}

func TestGenerateDeterministic(t *testing.T) {
	gen1 := NewGenerator(&mockRandSource{values: []int{1, 2, 3, 4, 5, 6}})
	gen2 := NewGenerator(&mockRandSource{values: []int{1, 2, 3, 4, 5, 6}})

	id1, id2 := gen1.Generate(), gen2.Generate()
	if id1 != id2 {
		t.Errorf("same rand source produced different codes: %s vs %s", id1, id2)
	}
	if err := Validate(id1); err != nil {
		t.Errorf("deterministic code failed validation: %v", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ABCDEF", "abcdef"},
		{" abcdef ", "abcdef"},
		{"O1abcd", "01abcd"},
		{"liored", "110red"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"valid code", "abc123", false},
		{"too short", "abc12", true},
		{"too long", "abc1234", true},
		{"forbidden letter", "abcdei", true},
		{"uppercase rejected", "ABC123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}

func TestAlphabet(t *testing.T) {
	if len(alphabet) != 32 {
		t.Errorf("alphabet should have 32 characters, got %d", len(alphabet))
	}
	for _, forbidden := range "ilou" {
		if strings.ContainsRune(alphabet, forbidden) {
			t.Errorf("alphabet should not contain %c", forbidden)
		}
	}
}
