package text

import (
	"bufio"
	"io"
	"regexp"
)

// DefaultTokenizer splits text into words and punctuation with regular
// expressions and treats sentence-ending punctuation as End-Of-Chain tokens.
type DefaultTokenizer struct {
	separator         string
	eoc               string
	splitRegex        *regexp.Regexp
	eocRegex          *regexp.Regexp
	separatorExcRegex *regexp.Regexp
	eocExcRegex       *regexp.Regexp
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator Sets the string used for joining tokens during generation.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) {
		t.separator = sep
	}
}

// WithEOC Sets the string appended to output that ends without an EOC token.
// Default: "."
func WithEOC(eoc string) Option {
	return func(t *DefaultTokenizer) {
		t.eoc = eoc
	}
}

// WithSeparatorRegex sets the regex used to find tokens in input text.
// Default: `[\w']+|[.,!?;]`
func WithSeparatorRegex(splitRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.splitRegex = regexp.MustCompile(splitRegex)
	}
}

// WithEOCRegex sets the regex deciding whether a token is an EOC token.
// Default: `^[.!?]$`
func WithEOCRegex(eocRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.eocRegex = regexp.MustCompile(eocRegex)
	}
}

// WithSeparatorExcRegex sets the regex for tokens that get no separator in front of them.
func WithSeparatorExcRegex(separatorExcRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.separatorExcRegex = regexp.MustCompile(separatorExcRegex)
	}
}

// WithEOCExcRegex sets the regex for last tokens that get no EOC appended after them.
func WithEOCExcRegex(eocExcRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.eocExcRegex = regexp.MustCompile(eocExcRegex)
	}
}

// NewDefaultTokenizer creates a tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator: " ",
		eoc:       ".",
		// Runs of letters, digits and apostrophes, or single common punctuation marks.
		splitRegex:        regexp.MustCompile(`[\p{L}\p{N}_']+|[.,!?;]`),
		eocRegex:          regexp.MustCompile(`^[.!?]$`),
		separatorExcRegex: regexp.MustCompile(`^[.,!?;]`),
		eocExcRegex:       regexp.MustCompile(`^[.,!?;]`),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Separator returns "" before punctuation and the configured separator otherwise.
func (t *DefaultTokenizer) Separator(_, next string) string {
	if t.separatorExcRegex.MatchString(next) {
		return ""
	}
	return t.separator
}

// EOC returns the configured end-of-chain string unless last is already punctuation.
func (t *DefaultTokenizer) EOC(last string) string {
	if t.eocExcRegex.MatchString(last) {
		return ""
	}
	return t.eoc
}

// maxChunkSize bounds a single whitespace-free run of input.
const maxChunkSize = 1024 * 1024

// NewStream returns a stream processor over r. Input is read in
// whitespace-separated chunks, so line length is unbounded.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxChunkSize)
	scanner.Split(bufio.ScanWords)
	return &defaultStream{
		scanner:    scanner,
		splitRegex: t.splitRegex,
		eocRegex:   t.eocRegex,
	}
}

// defaultStream reads r chunk by chunk and hands out the tokens of each chunk.
type defaultStream struct {
	scanner    *bufio.Scanner
	buffer     []string
	splitRegex *regexp.Regexp
	eocRegex   *regexp.Regexp
}

// Next returns the next token, or io.EOF once the stream is exhausted.
func (s *defaultStream) Next() (*Token, error) {
	for len(s.buffer) == 0 {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		s.buffer = s.splitRegex.FindAllString(s.scanner.Text(), -1)
	}

	word := s.buffer[0]
	s.buffer = s.buffer[1:]

	return &Token{Text: word, EOC: s.eocRegex.MatchString(word)}, nil
}
