package markov

import (
	"log/slog"
)

// Generate predicts the next state after history using the chain's maximum
// order. It is equivalent to GenerateWithOrder(c.MaxOrder(), history).
func (c *Chain[S]) Generate(history []S) (S, bool) {
	return c.GenerateWithOrder(c.maxOrder, history)
}

// GenerateWithOrder predicts the next state after history, considering windows
// of at most order states (capped at the chain's maximum order).
//
// The search starts with the last order states of history, or the whole history
// if it is shorter, and drops one state at a time until a window with recorded
// successors is found. The final attempt is the empty window, which matches
// whenever the chain was trained on a non-empty input. One of the matched
// window's successors is returned, chosen uniformly by occurrence so that
// repeated successors are proportionally more likely.
//
// The boolean is false when no window matched, in which case the zero state is
// returned.
func (c *Chain[S]) GenerateWithOrder(order int, history []S) (S, bool) {
	remaining := min(order, c.maxOrder)
	// Every level above len(history) looks up the whole history.
	if remaining > len(history) {
		remaining = len(history)
	}

	for ; remaining >= 0; remaining-- {
		successors := c.lookup(history[len(history)-remaining:])
		if len(successors) > 0 {
			return successors[c.source.IntN(len(successors))], true
		}
	}

	c.logger.Debug("Generation found no prediction",
		slog.Int("order", order),
		slog.Int("max_order", c.maxOrder),
		slog.Int("history_length", len(history)),
	)

	var zero S
	return zero, false
}
