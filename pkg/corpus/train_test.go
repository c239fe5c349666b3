package corpus

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/CTAG07/vomarkov/pkg/markov"
	"github.com/CTAG07/vomarkov/pkg/text"
)

// firstSource always picks the first candidate.
type firstSource struct{}

func (firstSource) IntN(int) int { return 0 }

func TestAppendAndTokens(t *testing.T) {
	ctx, s, info := setupTestDBWithCorpus(t)

	tokens, err := s.Tokens(ctx, info)
	if err != nil {
		t.Fatalf("Tokens() failed: %v", err)
	}
	if got, want := tokenTexts(tokens), "one fish two fish . red fish blue fish ."; got != want {
		t.Errorf("Tokens() = %q, want %q", got, want)
	}
	for _, tok := range tokens {
		if tok.EOC != (tok.Text == ".") {
			t.Errorf("token %q has EOC = %v", tok.Text, tok.EOC)
		}
	}

	// Appending continues after the existing tokens.
	if err = s.Append(ctx, info, strings.NewReader("old fish new fish.")); err != nil {
		t.Fatalf("second Append() failed: %v", err)
	}
	tokens, _ = s.Tokens(ctx, info)
	if got, want := tokenTexts(tokens), "one fish two fish . red fish blue fish . old fish new fish ."; got != want {
		t.Errorf("Tokens() after append = %q, want %q", got, want)
	}

	// Shared vocabulary: "fish" keeps a single ID.
	if _, err := s.TokenID(ctx, "fish"); err != nil {
		t.Errorf("TokenID('fish') failed: %v", err)
	}
}

func TestAppendLargeInput(t *testing.T) {
	ctx, s, info := setupTestDBWithCorpus(t)

	// Exceed the insert batch size to cover the mid-stream flush.
	var sb strings.Builder
	for i := 0; i < 2500; i++ {
		fmt.Fprintf(&sb, "word%d ", i%37)
	}
	if err := s.Append(ctx, info, strings.NewReader(sb.String())); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	stats, err := s.GetCorpusStats(ctx, info)
	if err != nil {
		t.Fatalf("GetCorpusStats() failed: %v", err)
	}
	if stats.Tokens != 10+2500 {
		t.Errorf("expected %d tokens, got %d", 10+2500, stats.Tokens)
	}
}

func TestBuild(t *testing.T) {
	ctx, s, info := setupTestDBWithCorpus(t)

	chain, err := s.Build(ctx, info, markov.WithSource(firstSource{}))
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if chain.MaxOrder() != info.MaxOrder {
		t.Errorf("chain max order = %d, want %d", chain.MaxOrder(), info.MaxOrder)
	}

	w := text.NewWriter(chain, s.Tokenizer())
	output, err := w.GenerateFromString(ctx, "red fish")
	if err != nil {
		t.Fatalf("GenerateFromString() failed: %v", err)
	}
	if expected := "red fish blue fish."; output != expected {
		t.Errorf("expected %q, got %q", expected, output)
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()
	_ = s.InsertCorpus(ctx, Info{Name: "empty", MaxOrder: 2})
	info, _ := s.GetCorpusInfo(ctx, "empty")

	chain, err := s.Build(ctx, info)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if _, ok := chain.Generate(nil); ok {
		t.Error("expected no prediction from a chain built on an empty corpus")
	}
}

func BenchmarkAppend(b *testing.B) {
	ctx := context.Background()
	corpus := strings.Repeat("one fish two fish red fish blue fish. ", 200)

	_, s := setupTestDBBench(b)
	info := Info{Name: "bench_append", MaxOrder: 2}
	if err := s.InsertCorpus(ctx, info); err != nil {
		b.Fatalf("InsertCorpus failed: %v", err)
	}
	info, _ = s.GetCorpusInfo(ctx, info.Name)

	b.SetBytes(int64(len(corpus)))
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := s.Append(ctx, info, strings.NewReader(corpus)); err != nil {
			b.Fatalf("Append() failed: %v", err)
		}
	}
}
