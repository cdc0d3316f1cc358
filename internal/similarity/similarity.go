// Package similarity implements the gestalt pattern-matching ratio used to
// score candidate name pairs. The metric recursively locates the longest
// common contiguous block of two strings, credits its length, then repeats
// on the unmatched text to either side; the final score is twice the
// matched length over the combined length of both inputs.
package similarity

import "math"

// Ratio returns the similarity of a and b as a value in [0, 1], rounded to
// two decimals. It is symmetric and returns 0 when both inputs are empty.
func Ratio(a, b string) float64 {
	// The block decomposition depends on which argument the tie-break
	// scans first, so both orders are scored over the same canonical pair.
	if b < a {
		a, b = b, a
	}
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}
	matched := matchedLength(ra, rb)
	return round2(2 * float64(matched) / float64(total))
}

// RatioOrZero is the null-tolerant variant used when comparing optional
// attribute fields: an absent value on either side scores 0.
func RatioOrZero(a, b *string) float64 {
	if a == nil || b == nil {
		return 0
	}
	return Ratio(*a, *b)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// matchedLength sums the lengths of all matching blocks found by the
// recursive longest-common-substring decomposition.
func matchedLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bj, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchedLength(a[:ai], b[:bj]) +
		matchedLength(a[ai+size:], b[bj+size:])
}

// longestMatch finds the longest contiguous block common to a and b,
// preferring the earliest start in a, then in b, so decomposition is
// deterministic.
func longestMatch(a, b []rune) (bestA, bestB, bestSize int) {
	// Positions of each rune in b, in ascending order.
	positions := make(map[rune][]int, len(b))
	for j, r := range b {
		positions[r] = append(positions[r], j)
	}

	// lengths[j] is the length of the match ending at a[i-1], b[j-1]
	// from the previous row of the implicit DP table.
	lengths := make(map[int]int)
	for i, r := range a {
		next := make(map[int]int, len(lengths))
		for _, j := range positions[r] {
			k := lengths[j-1] + 1
			next[j] = k
			if k > bestSize {
				bestA = i - k + 1
				bestB = j - k + 1
				bestSize = k
			}
		}
		lengths = next
	}
	return bestA, bestB, bestSize
}
