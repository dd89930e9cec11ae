package probabilities

import "github.com/bungogood/td-gammon/pkg/gammon"

// ResultCounter tallies finished games by result.
type ResultCounter struct {
	counts [gammon.NumResults]uint32
}

// NewResultCounter starts from existing tallies.
func NewResultCounter(counts [gammon.NumResults]uint32) ResultCounter {
	return ResultCounter{counts: counts}
}

// Add records one result.
func (c *ResultCounter) Add(r gammon.Result) {
	c.counts[r]++
}

// AddResults records n copies of r.
func (c *ResultCounter) AddResults(r gammon.Result, n uint32) {
	c.counts[r] += n
}

// Sum returns the number of recorded games.
func (c ResultCounter) Sum() uint32 {
	var sum uint32
	for _, n := range c.counts {
		sum += n
	}
	return sum
}

// NumOf returns the tally for r.
func (c ResultCounter) NumOf(r gammon.Result) uint32 {
	return c.counts[r]
}

// Counts returns a copy of the tallies in gammon.Result order.
func (c ResultCounter) Counts() [gammon.NumResults]uint32 {
	return c.counts
}

// Combine returns the pointwise sum of c and other.
func (c ResultCounter) Combine(other ResultCounter) ResultCounter {
	for i, n := range other.counts {
		c.counts[i] += n
	}
	return c
}

// Probabilities normalizes the tallies.
func (c ResultCounter) Probabilities() Probabilities {
	return FromCounts(c.counts)
}
