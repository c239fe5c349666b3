package text

import (
	"strings"
	"testing"

	"github.com/CTAG07/vomarkov/pkg/markov"
)

const trainingData = "one fish two fish. red fish blue fish."

// firstSource always picks the first candidate, making generation deterministic.
type firstSource struct{}

func (firstSource) IntN(int) int { return 0 }

// setupTestWriter trains an order-3 chain on trainingData and wraps it in a Writer.
func setupTestWriter(t *testing.T) *Writer {
	t.Helper()
	tokenizer := NewDefaultTokenizer()
	tokens, err := Tokenize(tokenizer, strings.NewReader(trainingData))
	if err != nil {
		t.Fatalf("setup: Tokenize() failed: %v", err)
	}
	chain := markov.New(3, tokens, markov.WithSource(firstSource{}))
	return NewWriter(chain, tokenizer)
}
