package text

import (
	"errors"
	"fmt"
	"io"
)

// Token represents a single tokenized unit of text. It contains the text itself
// and a boolean flag indicating if it marks the end of a chain (e.g., a sentence).
// Token is comparable and is used directly as the state of a markov.Chain.
type Token struct {
	Text string
	EOC  bool
}

// Tokenizer defines how input text is split into tokens and how generated
// tokens are joined back together.
type Tokenizer interface {
	// NewStream returns a stateful StreamTokenizer for processing an io.Reader.
	NewStream(io.Reader) StreamTokenizer
	// Separator returns the string placed between the previous and next token
	// when building generated output.
	Separator(prev, next string) string
	// EOC returns the string appended after the last token when a generated
	// run ends without an End-Of-Chain token of its own.
	EOC(last string) string
}

// StreamTokenizer is an interface for a stateful tokenizer that processes a
// stream of data, returning one token at a time.
type StreamTokenizer interface {
	// Next returns the next token from the stream. It returns io.EOF as the
	// error when the stream is fully consumed.
	Next() (*Token, error)
}

// Tokenize reads r to the end and returns every token in order. End-Of-Chain
// tokens are kept, so sentence boundaries become ordinary states of a chain
// trained on the result.
func Tokenize(t Tokenizer, r io.Reader) ([]Token, error) {
	stream := t.NewStream(r)
	var tokens []Token
	for {
		token, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return tokens, nil
		}
		if err != nil {
			return nil, fmt.Errorf("tokenizer error: %w", err)
		}
		tokens = append(tokens, *token)
	}
}
