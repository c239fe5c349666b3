package markov

import (
	"io"
	"log/slog"
	"slices"
)

// node is one level of the window trie. The path from the root to a node
// spells out a history window; successors holds every state observed to
// follow that window, in order of appearance and with duplicates kept.
type node[S comparable] struct {
	children   map[S]*node[S]
	successors []S
}

func (n *node[S]) childOrCreate(s S) *node[S] {
	if n.children == nil {
		n.children = make(map[S]*node[S])
	}
	c, ok := n.children[s]
	if !ok {
		c = &node[S]{}
		n.children[s] = c
	}
	return c
}

// Chain is a trained variable-order Markov chain. It is created by New and is
// read-only afterwards.
type Chain[S comparable] struct {
	maxOrder int
	root     *node[S]
	source   Source
	logger   *slog.Logger
	stats    Stats
}

// chainOptions Is used by New to collect optional settings.
type chainOptions struct {
	source Source
	logger *slog.Logger
}

// Option is a function that configures a Chain at construction time.
type Option func(*chainOptions)

// WithSource sets the random source used to pick among successors.
// A nil source is ignored and the default, concurrency-safe source is kept.
func WithSource(src Source) Option {
	return func(o *chainOptions) {
		if src != nil {
			o.source = src
		}
	}
}

// WithLogger sets the logger for the Chain. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *chainOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// MaxOrder returns the maximum history window length the chain was built with.
func (c *Chain[S]) MaxOrder() int {
	return c.maxOrder
}

// Successors returns a copy of the successors recorded for exactly the given
// window, or nil if the window was never seen during training.
func (c *Chain[S]) Successors(key []S) []S {
	return slices.Clone(c.lookup(key))
}

// Walk calls fn for every window that has recorded successors. The slices
// handed to fn are copies and may be retained. Walk stops early when fn
// returns false. The visiting order is unspecified.
func (c *Chain[S]) Walk(fn func(key, successors []S) bool) {
	var key []S
	var visit func(n *node[S]) bool
	visit = func(n *node[S]) bool {
		if len(n.successors) > 0 {
			if !fn(slices.Clone(key), slices.Clone(n.successors)) {
				return false
			}
		}
		for s, child := range n.children {
			key = append(key, s)
			if !visit(child) {
				return false
			}
			key = key[:len(key)-1]
		}
		return true
	}
	visit(c.root)
}

// lookup returns the stored successors for an exact window without copying.
func (c *Chain[S]) lookup(key []S) []S {
	n := c.root
	for _, s := range key {
		n = n.children[s]
		if n == nil {
			return nil
		}
	}
	return n.successors
}

func defaultChainOptions() *chainOptions {
	return &chainOptions{
		source: globalSource{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
