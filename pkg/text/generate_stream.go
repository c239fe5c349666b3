package text

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// GenerateStream starts generation from an empty history and returns a
// read-only channel of Tokens. Each token's Text carries its leading separator,
// so concatenating the stream yields the same string Generate would build.
// The channel is closed once generation is complete or ctx is cancelled.
func (w *Writer) GenerateStream(ctx context.Context, opts ...GenerateOption) (<-chan Token, error) {
	return w.stream(ctx, nil, w.options(opts)), nil
}

// GenerateStreamFromString is a convenience wrapper around GenerateStreamFromStream that uses a
// string as the seed. If the string is empty, it behaves identically to GenerateStream.
func (w *Writer) GenerateStreamFromString(ctx context.Context, startText string, opts ...GenerateOption) (<-chan Token, error) {
	if startText == "" {
		return w.GenerateStream(ctx, opts...)
	}
	return w.GenerateStreamFromStream(ctx, strings.NewReader(startText), opts...)
}

// GenerateStreamFromStream tokenizes r and streams generation seeded with it.
func (w *Writer) GenerateStreamFromStream(ctx context.Context, r io.Reader, opts ...GenerateOption) (<-chan Token, error) {
	seed, err := Tokenize(w.tokenizer, r)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	return w.stream(ctx, seed, w.options(opts)), nil
}

func (w *Writer) stream(ctx context.Context, seed []Token, options *generateOptions) <-chan Token {
	tokenChan := make(chan Token)

	go func() {
		defer close(tokenChan)

		err := w.run(ctx, seed, options, func(tok Token) bool {
			select {
			case <-ctx.Done():
				return false
			case tokenChan <- tok:
				return true
			}
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				w.logger.DebugContext(ctx, "Generation stream cancelled by context")
				return
			}
			w.logger.ErrorContext(ctx, "Generation stream failed", slog.Any("error", err))
		}
	}()

	return tokenChan
}
