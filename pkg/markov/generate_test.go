package markov

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"
)

func TestGenerateWithOrderScenarios(t *testing.T) {
	testCases := []struct {
		name      string
		maxOrder  int
		input     string
		order     int
		history   string
		script    []int
		wantState rune
		wantOK    bool
		wantAsked []int
	}{
		{
			name:      "Short history matched against whole history",
			maxOrder:  2,
			input:     "aab",
			order:     2,
			history:   "a",
			script:    []int{1},
			wantState: 'b',
			wantOK:    true,
			wantAsked: []int{2},
		},
		{
			name:      "Unknown state falls back to empty window",
			maxOrder:  2,
			input:     "aab",
			order:     1,
			history:   "z",
			script:    []int{2},
			wantState: 'b',
			wantOK:    true,
			wantAsked: []int{3},
		},
		{
			name:      "Order zero is an unconditional guess",
			maxOrder:  2,
			input:     "aab",
			order:     0,
			history:   "a",
			script:    []int{0},
			wantState: 'a',
			wantOK:    true,
			wantAsked: []int{3},
		},
		{
			name:      "Order above max order is clamped",
			maxOrder:  2,
			input:     "abcxbd",
			order:     10,
			history:   "xb",
			script:    []int{1},
			wantState: 'd',
			wantOK:    true,
			wantAsked: []int{2},
		},
		{
			name:      "Longest matching window wins",
			maxOrder:  3,
			input:     "abcxbd",
			order:     3,
			history:   "zab",
			script:    []int{0},
			wantState: 'c',
			wantOK:    true,
			wantAsked: []int{1},
		},
		{
			name:      "Empty history uses empty window",
			maxOrder:  3,
			input:     "ab",
			order:     3,
			history:   "",
			script:    []int{1},
			wantState: 'b',
			wantOK:    true,
			wantAsked: []int{2},
		},
		{
			name:     "Empty training input",
			maxOrder: 3,
			input:    "",
			order:    3,
			history:  "",
		},
		{
			name:     "Negative order",
			maxOrder: 2,
			input:    "aab",
			order:    -1,
			history:  "a",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := &scriptedSource{t: t, values: tc.script}
			c := New(tc.maxOrder, runes(tc.input), WithSource(src))

			got, ok := c.GenerateWithOrder(tc.order, runes(tc.history))
			if ok != tc.wantOK {
				t.Fatalf("GenerateWithOrder() ok = %v, want %v", ok, tc.wantOK)
			}
			if got != tc.wantState {
				t.Errorf("GenerateWithOrder() = %q, want %q", got, tc.wantState)
			}
			if !slices.Equal(src.asked, tc.wantAsked) {
				t.Errorf("source asked for %v, want %v", src.asked, tc.wantAsked)
			}
		})
	}
}

func TestGenerateUsesMaxOrder(t *testing.T) {
	c := New(3, runes("abcxbd"), WithSource(firstSource{}))

	got, ok := c.Generate(runes("ab"))
	if !ok || got != 'c' {
		t.Errorf("Generate(\"ab\") = %q, %v; want 'c', true", got, ok)
	}

	got, ok = c.GenerateWithOrder(1, runes("ab"))
	if !ok || got != 'c' {
		t.Errorf("GenerateWithOrder(1, \"ab\") = %q, %v; want 'c', true", got, ok)
	}
}

func TestGenerateNoPrediction(t *testing.T) {
	c := New(3, []string{}, WithSource(firstSource{}))
	got, ok := c.Generate(nil)
	if ok {
		t.Errorf("Generate() on an empty chain = %q, true; want no prediction", got)
	}
	if got != "" {
		t.Errorf("expected the zero state, got %q", got)
	}
}

func TestGenerateSupportSet(t *testing.T) {
	c := New(2, runes("aab"), WithSource(NewSeededSource(7)))

	const draws = 3000
	counts := make(map[rune]int)
	for i := 0; i < draws; i++ {
		got, ok := c.GenerateWithOrder(1, runes("z"))
		if !ok {
			t.Fatal("expected a prediction")
		}
		counts[got]++
	}

	if len(counts) != 2 || counts['a'] == 0 || counts['b'] == 0 {
		t.Fatalf("expected exactly {a, b} to be generated, got %v", counts)
	}
	// 'a' occurs twice in the empty-window multiset, 'b' once.
	share := float64(counts['a']) / draws
	if share < 0.6 || share > 0.73 {
		t.Errorf("expected 'a' about 2/3 of the time, got %.3f", share)
	}
}

func TestGenerateReturnsTrainedValuesOnly(t *testing.T) {
	input := runes("she sells sea shells by the sea shore")
	trained := make(map[rune]bool)
	for _, r := range input {
		trained[r] = true
	}

	rng := rand.New(rand.NewPCG(1, 2))
	alphabet := runes("abcdefghijklmnopqrstuvwxyz ")
	c := New(4, input, WithSource(NewSeededSource(3)))

	for i := 0; i < 500; i++ {
		history := make([]rune, rng.IntN(8))
		for j := range history {
			history[j] = alphabet[rng.IntN(len(alphabet))]
		}
		got, ok := c.GenerateWithOrder(rng.IntN(6), history)
		if !ok {
			t.Fatalf("expected a prediction for history %q", string(history))
		}
		if !trained[got] {
			t.Fatalf("generated %q which never appeared in the training input", got)
		}
	}
}

func TestGenerateFeedbackLoop(t *testing.T) {
	input := strings.Fields("one fish two fish red fish blue fish")
	c := New(3, input, WithSource(firstSource{}))

	history := []string{"one"}
	for i := 0; i < 6; i++ {
		next, ok := c.Generate(history)
		if !ok {
			t.Fatalf("unexpected dead end after %v", history)
		}
		history = append(history, next)
	}

	want := "one fish two fish red fish blue"
	if got := strings.Join(history, " "); got != want {
		t.Errorf("feedback loop produced %q, want %q", got, want)
	}
}

func TestSeededSourceDeterministic(t *testing.T) {
	input := runes("abracadabra alakazam")
	c1 := New(3, input, WithSource(NewSeededSource(42)))
	c2 := New(3, input, WithSource(NewSeededSource(42)))

	for i := 0; i < 50; i++ {
		h := input[:i%len(input)]
		g1, _ := c1.Generate(h)
		g2, _ := c2.Generate(h)
		if g1 != g2 {
			t.Fatalf("draw %d differs between equally seeded chains: %q vs %q", i, g1, g2)
		}
	}
}

func TestGenerateConcurrent(t *testing.T) {
	input := runes("the rain in spain stays mainly in the plain")
	trained := make(map[rune]bool)
	for _, r := range input {
		trained[r] = true
	}

	sources := map[string]Source{
		"Default": nil,
		"Seeded":  NewSeededSource(99),
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			c := New(3, input, WithSource(src))

			var wg sync.WaitGroup
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(offset int) {
					defer wg.Done()
					for i := 0; i < 500; i++ {
						h := input[:(i+offset)%len(input)]
						got, ok := c.Generate(h)
						if !ok || !trained[got] {
							t.Errorf("Generate(%q) = %q, %v", string(h), got, ok)
							return
						}
					}
				}(g)
			}
			wg.Wait()
		})
	}
}

func BenchmarkGenerate(b *testing.B) {
	corpus := createBenchmarkCorpus()
	c := New(3, corpus)

	histories := map[string][]string{
		"Match":    {"two", "fish", "red"},
		"Fallback": {"green", "eggs", "fish"},
		"Unknown":  {"green", "eggs", "ham"},
	}

	for name, history := range histories {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = c.Generate(history)
			}
		})
	}
}
