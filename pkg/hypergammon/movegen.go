package hypergammon

import "github.com/bungogood/td-gammon/pkg/gammon"

// moveList collects the end positions of complete moves. Only moves that use
// the most dice, and among those the most pips, are kept; this enforces both
// the "play as many dice as possible" and the "play the larger die" rules.
type moveList struct {
	maxMoves int
	maxPips  int
	order    []gammon.Position
	seen     map[gammon.Position]struct{}
}

func (ml *moveList) save(p gammon.Position, moves, pips int) {
	if moves < ml.maxMoves || (moves == ml.maxMoves && pips < ml.maxPips) {
		return
	}
	if moves > ml.maxMoves || pips > ml.maxPips {
		ml.maxMoves, ml.maxPips = moves, pips
		ml.order = ml.order[:0]
		ml.seen = make(map[gammon.Position]struct{})
	}
	if _, ok := ml.seen[p]; ok {
		return
	}
	ml.seen[p] = struct{}{}
	ml.order = append(ml.order, p)
}

// successors returns the distinct end positions reachable with d, still seen
// from the mover. If no checker can move the unchanged position is returned.
func successors(p gammon.Position, d gammon.Dice) []gammon.Position {
	ml := &moveList{seen: make(map[gammon.Position]struct{})}
	rolls := d.Moves()
	generate(ml, p, rolls, 0, 23, 0)
	if !d.IsDouble() {
		rolls[0], rolls[1] = rolls[1], rolls[0]
		generate(ml, p, rolls, 0, 23, 0)
	}
	if len(ml.order) == 0 {
		return []gammon.Position{p}
	}
	return ml.order
}

// generate plays rolls[depth:] recursively. For doubles the source index only
// moves downwards so permutations of the same checker moves are not revisited.
func generate(ml *moveList, p gammon.Position, rolls []int, depth, from, pips int) {
	if depth == len(rolls) {
		ml.save(p, depth, pips)
		return
	}
	die := rolls[depth]
	moved := false

	if p.XBar > 0 {
		dest := 24 - die
		if p.Board[dest] >= -1 {
			next := p
			next.XBar--
			land(&next, dest)
			generate(ml, next, rolls, depth+1, 23, pips+die)
			moved = true
		}
	} else {
		for i := from; i >= 0; i-- {
			if p.Board[i] <= 0 || !legal(p, i, die) {
				continue
			}
			next := p
			next.Board[i]--
			if dest := i - die; dest >= 0 {
				land(&next, dest)
			} else {
				next.XOff++
			}
			nextFrom := 23
			if len(rolls) == 4 {
				nextFrom = i
			}
			generate(ml, next, rolls, depth+1, nextFrom, pips+die)
			moved = true
		}
	}

	if !moved && depth > 0 {
		ml.save(p, depth, pips)
	}
}

// legal reports whether the mover's checker on index i may move die pips.
func legal(p gammon.Position, i, die int) bool {
	dest := i - die
	if dest >= 0 {
		return p.Board[dest] >= -1
	}
	back := 23
	for back >= 0 && p.Board[back] <= 0 {
		back--
	}
	if back > 5 {
		return false
	}
	return i == back || dest == -1
}

// land places a mover checker on index dest, hitting a lone opponent checker.
func land(p *gammon.Position, dest int) {
	if p.Board[dest] == -1 {
		p.Board[dest] = 0
		p.OBar++
	}
	p.Board[dest]++
}
