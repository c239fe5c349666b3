package markov

import (
	"reflect"
	"testing"
)

func TestStats(t *testing.T) {
	testCases := []struct {
		name     string
		maxOrder int
		input    string
		expected Stats
	}{
		{
			name:     "Small input",
			maxOrder: 2,
			input:    "aab",
			expected: Stats{MaxOrder: 2, Keys: 2, Transitions: 5, KeysByOrder: []int{1, 1}, States: 2},
		},
		{
			name:     "Three orders",
			maxOrder: 3,
			input:    "abcab",
			expected: Stats{MaxOrder: 3, Keys: 7, Transitions: 12, KeysByOrder: []int{1, 3, 3}, States: 3},
		},
		{
			name:     "Empty input",
			maxOrder: 2,
			input:    "",
			expected: Stats{MaxOrder: 2, KeysByOrder: []int{0, 0}},
		},
		{
			name:     "Zero order",
			maxOrder: 0,
			input:    "abc",
			expected: Stats{KeysByOrder: []int{}, States: 3},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := New(tc.maxOrder, runes(tc.input)).Stats()
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("Stats() = %+v, want %+v", got, tc.expected)
			}
		})
	}
}

func TestStatsIsASnapshot(t *testing.T) {
	c := New(2, runes("abab"))
	s := c.Stats()
	s.KeysByOrder[0] = 100
	if c.Stats().KeysByOrder[0] != 1 {
		t.Error("mutating a Stats snapshot changed the chain's stats")
	}
}
