package gammon

import (
	"fmt"
	"math/rand"
)

// Dice is an unordered roll of two dice. High >= Low.
type Dice struct {
	High int
	Low  int
}

// NewDice returns the roll a, b with the larger die first.
func NewDice(a, b int) Dice {
	if a < 1 || a > 6 || b < 1 || b > 6 {
		panic(fmt.Sprintf("gammon: invalid dice %d-%d", a, b))
	}
	if a < b {
		a, b = b, a
	}
	return Dice{High: a, Low: b}
}

// IsDouble reports whether both dice show the same value.
func (d Dice) IsDouble() bool {
	return d.High == d.Low
}

// Moves returns the pips available to play: two values for a mixed roll,
// four copies of the value for a double.
func (d Dice) Moves() []int {
	if d.IsDouble() {
		return []int{d.High, d.High, d.High, d.High}
	}
	return []int{d.High, d.Low}
}

func (d Dice) String() string {
	return fmt.Sprintf("%d-%d", d.High, d.Low)
}

// WeightedDice pairs an unordered roll with the number of ordered rolls it stands for.
type WeightedDice struct {
	Dice   Dice
	Weight float64
}

// All21 lists the 21 distinct rolls: 15 mixed rolls of weight 2 and 6 doubles of weight 1.
var All21 = allRolls()

func allRolls() []WeightedDice {
	rolls := make([]WeightedDice, 0, 21)
	for high := 1; high <= 6; high++ {
		for low := 1; low <= high; low++ {
			w := 2.0
			if high == low {
				w = 1.0
			}
			rolls = append(rolls, WeightedDice{Dice: NewDice(high, low), Weight: w})
		}
	}
	return rolls
}

// Roller produces dice rolls.
type Roller interface {
	Roll() Dice
}

// DiceSource rolls dice from an explicitly owned random source. It is not
// safe for concurrent use; give each goroutine its own source.
type DiceSource struct {
	rng *rand.Rand
}

// NewDiceSource wraps rng.
func NewDiceSource(rng *rand.Rand) *DiceSource {
	return &DiceSource{rng: rng}
}

// SeededDiceSource returns a DiceSource over a fresh generator seeded with seed.
func SeededDiceSource(seed int64) *DiceSource {
	return NewDiceSource(rand.New(rand.NewSource(seed)))
}

// Roll returns a uniformly random roll.
func (s *DiceSource) Roll() Dice {
	return NewDice(s.rng.Intn(6)+1, s.rng.Intn(6)+1)
}

// FirstRoll returns a roll for the opening move. Doubles are re-rolled.
func (s *DiceSource) FirstRoll() Dice {
	for {
		a, b := s.rng.Intn(6)+1, s.rng.Intn(6)+1
		if a != b {
			return NewDice(a, b)
		}
	}
}

// Rand exposes the underlying generator so evaluators can share the seed.
func (s *DiceSource) Rand() *rand.Rand {
	return s.rng
}

// ScriptedDice replays a fixed sequence of rolls, wrapping around at the end.
type ScriptedDice struct {
	rolls []Dice
	next  int
}

// NewScriptedDice returns a Roller that yields rolls in order.
func NewScriptedDice(rolls ...Dice) *ScriptedDice {
	if len(rolls) == 0 {
		panic("gammon: scripted dice need at least one roll")
	}
	return &ScriptedDice{rolls: rolls}
}

// Roll returns the next scripted roll.
func (s *ScriptedDice) Roll() Dice {
	d := s.rolls[s.next%len(s.rolls)]
	s.next++
	return d
}
