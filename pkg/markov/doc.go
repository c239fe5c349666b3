/*
Package markov implements a variable-order Markov chain over any comparable
state type.

A Chain is trained once from a complete sequence and a maximum order. For every
window length from 1 up to the maximum order it records which states followed
each history window in the input. Generation looks for the longest suffix of a
caller supplied history that has training data and samples uniformly among the
successors observed for it, falling back to shorter windows and finally to an
unconditional guess when nothing longer matches.

A trained Chain is immutable. It may be shared between goroutines as long as
its Source is safe for concurrent use, which the default Source and
NewSeededSource both are.
*/
package markov
