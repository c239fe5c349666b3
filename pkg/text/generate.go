package text

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/CTAG07/vomarkov/pkg/markov"
)

// defaultMaxLength is the number of tokens, seed included, a run produces
// unless WithMaxLength says otherwise.
const defaultMaxLength = 100

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	maxLength   int
	canEndEarly bool
	order       int
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in generation functions like Generate and GenerateStream.
type GenerateOption func(*generateOptions)

// WithMaxLength sets the maximum number of tokens to produce, seed tokens
// included. The generation may stop earlier if an EOC token is chosen and
// WithEarlyTermination is enabled.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// WithEarlyTermination specifies whether the generation process can stop before
// reaching maxLength if an End-Of-Chain (EOC) token is generated.
func WithEarlyTermination(canEnd bool) GenerateOption {
	return func(o *generateOptions) { o.canEndEarly = canEnd }
}

// WithOrder caps the history window used for each prediction. It defaults to
// the chain's maximum order; lower values make the output less constrained by
// the training text.
func WithOrder(order int) GenerateOption {
	return func(o *generateOptions) { o.order = order }
}

// Writer generates text from a chain trained on Tokens.
type Writer struct {
	chain     *markov.Chain[Token]
	tokenizer Tokenizer
	logger    *slog.Logger
}

// NewWriter returns a Writer that predicts with chain and formats output with
// tokenizer. The tokenizer is also used to split seed text.
func NewWriter(chain *markov.Chain[Token], tokenizer Tokenizer) *Writer {
	return &Writer{
		chain:     chain,
		tokenizer: tokenizer,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Writer. By default, all logs are discarded.
func (w *Writer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// Chain returns the chain the Writer predicts with.
func (w *Writer) Chain() *markov.Chain[Token] {
	return w.chain
}

// Generate produces text starting from an empty history.
func (w *Writer) Generate(ctx context.Context, opts ...GenerateOption) (string, error) {
	return w.generate(ctx, nil, w.options(opts))
}

// GenerateFromStream tokenizes r and uses the tokens as the starting history.
// Seed tokens that never appeared in training are kept in the output; the
// chain falls back to shorter windows until it finds one it knows.
func (w *Writer) GenerateFromStream(ctx context.Context, r io.Reader, opts ...GenerateOption) (string, error) {
	seed, err := Tokenize(w.tokenizer, r)
	if err != nil {
		return "", fmt.Errorf("failed to read seed: %w", err)
	}
	return w.generate(ctx, seed, w.options(opts))
}

// GenerateFromString is a convenience wrapper around GenerateFromStream that uses a
// string as the seed. If the string is empty, it behaves identically to Generate.
func (w *Writer) GenerateFromString(ctx context.Context, startText string, opts ...GenerateOption) (string, error) {
	if startText == "" {
		return w.Generate(ctx, opts...)
	}
	return w.GenerateFromStream(ctx, strings.NewReader(startText), opts...)
}

func (w *Writer) options(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		maxLength:   defaultMaxLength,
		canEndEarly: true,
		order:       w.chain.MaxOrder(),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func (w *Writer) generate(ctx context.Context, seed []Token, options *generateOptions) (string, error) {
	var builder strings.Builder
	err := w.run(ctx, seed, options, func(tok Token) bool {
		builder.WriteString(tok.Text)
		return true
	})
	if err != nil {
		return "", err
	}
	return builder.String(), nil
}

// run contains the main generation loop. Each produced token is handed to emit
// with its leading separator already attached; emit returns false to abort.
// A run that does not finish on an EOC token gets the tokenizer's EOC string
// emitted as a final token.
func (w *Writer) run(ctx context.Context, seed []Token, options *generateOptions, emit func(Token) bool) error {
	maxOrder := w.chain.MaxOrder()
	if len(seed) > options.maxLength {
		seed = seed[:max(options.maxLength, 0)]
	}

	tokens := make([]Token, 0, len(seed))
	var lastWord string

	write := func(tok Token) bool {
		out := tok
		if len(tokens) > 0 {
			out.Text = w.tokenizer.Separator(lastWord, tok.Text) + tok.Text
		}
		tokens = append(tokens, tok)
		lastWord = tok.Text
		return emit(out)
	}

	for _, tok := range seed {
		if !write(tok) {
			return ctx.Err()
		}
	}

	for len(tokens) < options.maxLength {
		if err := ctx.Err(); err != nil {
			return err
		}

		history := tokens[max(len(tokens)-maxOrder, 0):]
		next, ok := w.chain.GenerateWithOrder(options.order, history)
		if !ok {
			w.logger.DebugContext(ctx, "Generation terminated due to dead-end",
				slog.Int("order", options.order),
				slog.Int("generated_length", len(tokens)),
			)
			break
		}

		if !write(next) {
			return ctx.Err()
		}

		if next.EOC && options.canEndEarly {
			w.logger.DebugContext(ctx, "Generation terminated by EOC token",
				slog.Int("generated_length", len(tokens)),
			)
			return nil
		}
	}

	if len(tokens) > 0 && !tokens[len(tokens)-1].EOC {
		if eoc := w.tokenizer.EOC(lastWord); eoc != "" {
			emit(Token{Text: eoc, EOC: true})
		}
		w.logger.DebugContext(ctx, "Generation terminated by reaching maxLength",
			slog.Int("max_length", options.maxLength),
			slog.Int("generated_length", len(tokens)),
		)
	}

	return nil
}
