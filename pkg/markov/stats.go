package markov

import (
	"slices"
)

// Stats holds aggregated statistics for a trained Chain.
type Stats struct {
	MaxOrder    int   // The maximum window length the chain was built with
	Keys        int   // The number of distinct windows with recorded successors
	Transitions int   // The number of recorded window->successor occurrences
	KeysByOrder []int // Distinct windows per window length, indexed by length
	States      int   // The number of distinct states in the training input
}

// Stats returns a snapshot of the chain's statistics.
func (c *Chain[S]) Stats() Stats {
	stats := c.stats
	stats.KeysByOrder = slices.Clone(c.stats.KeysByOrder)
	return stats
}

func (c *Chain[S]) collectStats(input []S) Stats {
	stats := Stats{
		MaxOrder:    c.maxOrder,
		KeysByOrder: make([]int, c.maxOrder),
	}

	var visit func(n *node[S], depth int)
	visit = func(n *node[S], depth int) {
		if len(n.successors) > 0 {
			stats.Keys++
			stats.Transitions += len(n.successors)
			stats.KeysByOrder[depth]++
		}
		for _, child := range n.children {
			visit(child, depth+1)
		}
	}
	visit(c.root, 0)

	distinct := make(map[S]struct{})
	for _, s := range input {
		distinct[s] = struct{}{}
	}
	stats.States = len(distinct)

	return stats
}
