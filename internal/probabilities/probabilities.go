// Package probabilities holds six-way game outcome distributions and the
// counters they are estimated from.
package probabilities

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/bungogood/td-gammon/pkg/gammon"
)

// Tolerance is the slack allowed when checking that a distribution sums to one.
const Tolerance = 1e-4

// ErrInvalidProbabilities is returned when external data does not describe a
// valid outcome distribution.
var ErrInvalidProbabilities = errors.New("invalid probabilities")

// Probabilities is a distribution over the six results, from one player's view.
type Probabilities struct {
	WinN  float64
	WinG  float64
	WinB  float64
	LoseN float64
	LoseG float64
	LoseB float64
}

// FromCounts normalizes raw result tallies indexed by gammon.Result.
// All-zero counts give the empty distribution.
func FromCounts(counts [gammon.NumResults]uint32) Probabilities {
	var sum float64
	for _, c := range counts {
		sum += float64(c)
	}
	if sum == 0 {
		return Probabilities{}
	}
	return Probabilities{
		WinN:  float64(counts[gammon.WinNormal]) / sum,
		WinG:  float64(counts[gammon.WinGammon]) / sum,
		WinB:  float64(counts[gammon.WinBackgammon]) / sum,
		LoseN: float64(counts[gammon.LoseNormal]) / sum,
		LoseG: float64(counts[gammon.LoseGammon]) / sum,
		LoseB: float64(counts[gammon.LoseBackgammon]) / sum,
	}
}

// FromResult returns the distribution that puts all mass on r.
func FromResult(r gammon.Result) Probabilities {
	var s [gammon.NumResults]float64
	s[r] = 1
	return FromSlice(s)
}

// FromSlice builds a distribution from values in gammon.Result order.
func FromSlice(s [gammon.NumResults]float64) Probabilities {
	return Probabilities{WinN: s[0], WinG: s[1], WinB: s[2], LoseN: s[3], LoseG: s[4], LoseB: s[5]}
}

// Slice returns the six values in gammon.Result order.
func (p Probabilities) Slice() [gammon.NumResults]float64 {
	return [gammon.NumResults]float64{p.WinN, p.WinG, p.WinB, p.LoseN, p.LoseG, p.LoseB}
}

// Sum returns the total mass.
func (p Probabilities) Sum() float64 {
	var sum float64
	for _, v := range p.Slice() {
		sum += v
	}
	return sum
}

// Normalized scales the distribution to sum to one.
func (p Probabilities) Normalized() Probabilities {
	sum := p.Sum()
	if sum == 0 {
		return p
	}
	s := p.Slice()
	for i := range s {
		s[i] /= sum
	}
	return FromSlice(s)
}

// Flip returns the distribution seen by the opponent.
func (p Probabilities) Flip() Probabilities {
	return Probabilities{
		WinN:  p.LoseN,
		WinG:  p.LoseG,
		WinB:  p.LoseB,
		LoseN: p.WinN,
		LoseG: p.WinG,
		LoseB: p.WinB,
	}
}

// WinProb returns the probability of any win.
func (p Probabilities) WinProb() float64 {
	return p.WinN + p.WinG + p.WinB
}

// Equity returns the cubeless equity in points.
func (p Probabilities) Equity() float64 {
	return p.WinN - p.LoseN + 2*(p.WinG-p.LoseG) + 3*(p.WinB-p.LoseB)
}

// Compact returns the cumulative five-value form used by gnubg:
// win, win gammon or better, win backgammon, lose gammon or better, lose backgammon.
func (p Probabilities) Compact() [5]float64 {
	winG := p.WinG + p.WinB
	loseG := p.LoseG + p.LoseB
	return [5]float64{p.WinN + winG, winG, p.WinB, loseG, p.LoseB}
}

// FromCompact inverts Compact. The normal loss takes whatever mass is left.
func FromCompact(c [5]float64) Probabilities {
	return Probabilities{
		WinN:  c[0] - c[1],
		WinG:  c[1] - c[2],
		WinB:  c[2],
		LoseN: 1 - c[0] - c[3],
		LoseG: c[3] - c[4],
		LoseB: c[4],
	}
}

// ParseCompact validates untrusted cumulative values before converting them.
func ParseCompact(c [5]float64) (Probabilities, error) {
	for i, v := range c {
		if math.IsNaN(v) || v < 0 {
			return Probabilities{}, fmt.Errorf("%w: field %d is %v", ErrInvalidProbabilities, i, v)
		}
	}
	switch {
	case c[0] < c[1]:
		return Probabilities{}, fmt.Errorf("%w: win %v below win gammon %v", ErrInvalidProbabilities, c[0], c[1])
	case c[1] < c[2]:
		return Probabilities{}, fmt.Errorf("%w: win gammon %v below win backgammon %v", ErrInvalidProbabilities, c[1], c[2])
	case c[3] < c[4]:
		return Probabilities{}, fmt.Errorf("%w: lose gammon %v below lose backgammon %v", ErrInvalidProbabilities, c[3], c[4])
	case c[0]+c[3] > 1+Tolerance:
		return Probabilities{}, fmt.Errorf("%w: win %v and lose gammon %v exceed one", ErrInvalidProbabilities, c[0], c[3])
	}
	return FromCompact(c), nil
}

// Validate checks that no value is negative and the values sum to one.
func (p Probabilities) Validate() error {
	for i, v := range p.Slice() {
		if math.IsNaN(v) || v < -Tolerance {
			return fmt.Errorf("%w: %s has probability %v", ErrInvalidProbabilities, gammon.Result(i), v)
		}
	}
	if sum := p.Sum(); math.Abs(sum-1) > Tolerance {
		return fmt.Errorf("%w: sum is %v", ErrInvalidProbabilities, sum)
	}
	return nil
}

func (p Probabilities) String() string {
	return fmt.Sprintf("wn %.2f%%; wg %.2f%%; wb %.2f%%; ln %.2f%%; lg %.2f%%; lb %.2f%%",
		100*p.WinN, 100*p.WinG, 100*p.WinB, 100*p.LoseN, 100*p.LoseG, 100*p.LoseB)
}

type compactJSON struct {
	Win   float64 `json:"win"`
	WinG  float64 `json:"win_g"`
	WinB  float64 `json:"win_b"`
	LoseG float64 `json:"lose_g"`
	LoseB float64 `json:"lose_b"`
}

// MarshalJSON writes the compact cumulative form. The compact form cannot
// represent a distribution with no mass, so an empty one is written as null.
func (p Probabilities) MarshalJSON() ([]byte, error) {
	if p == (Probabilities{}) {
		return []byte("null"), nil
	}
	c := p.Compact()
	return json.Marshal(compactJSON{Win: c[0], WinG: c[1], WinB: c[2], LoseG: c[3], LoseB: c[4]})
}

// UnmarshalJSON reads the compact cumulative form, rejecting invalid values.
// null leaves p unchanged.
func (p *Probabilities) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var c compactJSON
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	parsed, err := ParseCompact([5]float64{c.Win, c.WinG, c.WinB, c.LoseG, c.LoseB})
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
