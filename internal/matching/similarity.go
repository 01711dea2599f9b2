package matching

import "unicode/utf8"

// Similarity returns the share of characters a and b have in common, counted as
// the longest common run plus the common runs recursively found on either side
// of it, divided by the longer rune length. The count is taken in both argument
// orders and the larger is used, so Similarity(a, b) == Similarity(b, a).
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}

	ra, rb := []rune(a), []rune(b)
	common := max(commonChars(ra, rb), commonChars(rb, ra))
	return float64(common) / float64(longest)
}

func commonChars(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	pa, pb, n := longestRun(a, b)
	if n == 0 {
		return 0
	}

	return n +
		commonChars(a[:pa], b[:pb]) +
		commonChars(a[pa+n:], b[pb+n:])
}

// longestRun finds the first longest common substring of a and b and returns
// its start offsets and length.
func longestRun(a, b []rune) (int, int, int) {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	var pa, pb, best int

	for i := range a {
		for j := range b {
			if a[i] == b[j] {
				cur[j+1] = prev[j] + 1
				if cur[j+1] > best {
					best = cur[j+1]
					pa = i - best + 1
					pb = j - best + 1
				}
			} else {
				cur[j+1] = 0
			}
		}
		prev, cur = cur, prev
	}

	return pa, pb, best
}
