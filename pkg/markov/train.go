package markov

import (
	"log/slog"
)

// New trains a Chain from input. For every order in [0, maxOrder) it slides a
// window of order+1 states across input and records the last state of the
// window as a successor of the first order states. Orders longer than the
// input simply contribute nothing.
//
// New never fails. An empty input yields an empty chain, and a maxOrder of zero
// or less yields a chain that never makes a prediction.
func New[S comparable](maxOrder int, input []S, opts ...Option) *Chain[S] {
	options := defaultChainOptions()
	for _, opt := range opts {
		opt(options)
	}
	if maxOrder < 0 {
		maxOrder = 0
	}

	c := &Chain[S]{
		maxOrder: maxOrder,
		root:     &node[S]{},
		source:   options.source,
		logger:   options.logger,
	}

	for order := 0; order < maxOrder; order++ {
		for i := 0; i+order < len(input); i++ {
			c.insert(input[i:i+order], input[i+order])
		}
	}

	c.stats = c.collectStats(input)

	c.logger.Debug("Chain trained",
		slog.Int("max_order", maxOrder),
		slog.Int("input_length", len(input)),
		slog.Int("keys", c.stats.Keys),
		slog.Int("transitions", c.stats.Transitions),
	)

	return c
}

// insert appends next to the successors of key, creating the path if needed.
func (c *Chain[S]) insert(key []S, next S) {
	n := c.root
	for _, s := range key {
		n = n.childOrCreate(s)
	}
	n.successors = append(n.successors, next)
}
