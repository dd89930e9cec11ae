package gammon

import "gonum.org/v1/gonum/stat/combin"

// Combination returns the binomial coefficient C(n, k), or 0 when k is out of range.
func Combination(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	return combin.Binomial(n, k)
}

// MultisetCombinations returns the number of multisets of size k drawn from n
// kinds, C(n+k-1, k). With n = 26 locations (24 points, bar, off) it counts the
// ways to place k checkers of one side.
func MultisetCombinations(n, k int) int {
	return Combination(n+k-1, k)
}

// PositionIndex ranks a distribution of at most checkers checkers over
// len(counts) slots (checkers not on a slot are off). Distinct distributions
// map onto [0, Combination(len(counts)+checkers, len(counts))).
func PositionIndex(counts []uint8, checkers int) int {
	slots := len(counts)
	j := slots - 1
	for _, c := range counts {
		j += int(c)
	}
	bits := uint64(1) << uint(j)
	for i := 0; i < slots-1; i++ {
		j -= int(counts[i]) + 1
		bits |= uint64(1) << uint(j)
	}
	return positionF(bits, checkers+slots, slots)
}

// positionF ranks the r-element bit set inside the low n bits of bits.
func positionF(bits uint64, n, r int) int {
	index := 0
	for n > r {
		if bits&(uint64(1)<<uint(n-1)) != 0 {
			index += Combination(n-1, r)
			r--
		}
		n--
	}
	return index
}
