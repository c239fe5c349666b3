package markov

import (
	"slices"
	"strings"
	"sync"
	"testing"
)

// firstSource always picks the first candidate.
type firstSource struct{}

func (firstSource) IntN(int) int { return 0 }

// scriptedSource returns preset values in order and records the n it was asked for.
type scriptedSource struct {
	t      testing.TB
	values []int
	asked  []int
}

func (s *scriptedSource) IntN(n int) int {
	s.asked = append(s.asked, n)
	if len(s.values) == 0 {
		s.t.Fatalf("scriptedSource exhausted, needed value for n=%d", n)
	}
	v := s.values[0]
	s.values = s.values[1:]
	if v < 0 || v >= n {
		s.t.Fatalf("scriptedSource value %d out of range for n=%d", v, n)
	}
	return v
}

// runes is a shorthand for building rune sequences in tests.
func runes(s string) []rune {
	return []rune(s)
}

// table collects a chain's contents keyed by the string form of each window.
func table(c *Chain[rune]) map[string]string {
	out := make(map[string]string)
	c.Walk(func(key, successors []rune) bool {
		out[string(key)] = string(successors)
		return true
	})
	return out
}

// bruteForceTable builds the expected window table directly from the
// definition of training.
func bruteForceTable(maxOrder int, input []rune) map[string]string {
	out := make(map[string]string)
	for order := 0; order < maxOrder; order++ {
		if len(input) < order+1 {
			continue
		}
		for i := 0; i+order+1 <= len(input); i++ {
			window := input[i : i+order+1]
			out[string(window[:order])] += string(window[order])
		}
	}
	return out
}

var (
	benchmarkCorpus []string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus builds a repetitive word corpus for benchmarking.
func createBenchmarkCorpus() []string {
	corpusOnce.Do(func() {
		text := strings.Repeat("one fish two fish red fish blue fish . "+
			"this one has a little star . this one has a little car . "+
			"say what a lot of fish there are . ", 200)
		benchmarkCorpus = slices.Collect(strings.FieldsSeq(text))
	})
	return benchmarkCorpus
}
