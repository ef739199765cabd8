package linker

// Similarity scores two strings in [0,1]. Implementations must be
// deterministic and symmetric, with sim(x,x) == 1.
type Similarity func(a, b string) float64

// Ratio is the default similarity: the classic sequence-matcher measure,
// 2*M / (len(a)+len(b)) where M is the total length of all matching blocks.
// It operates on runes so multi-byte values score sensibly.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	b2j := make(map[rune][]int, len(rb))
	for j, r := range rb {
		b2j[r] = append(b2j[r], j)
	}
	matched := matchingTotal(ra, rb, 0, len(ra), 0, len(rb), b2j)
	return 2.0 * float64(matched) / float64(len(ra)+len(rb))
}

// matchingTotal sums the sizes of all matching blocks by recursing around
// the longest match, mirroring how difflib accumulates its ratio.
func matchingTotal(a, b []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) int {
	if alo >= ahi || blo >= bhi {
		return 0
	}
	besti, bestj, size := longestMatch(a, alo, ahi, blo, bhi, b2j)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingTotal(a, b, alo, besti, blo, bestj, b2j)
	total += matchingTotal(a, b, besti+size, ahi, bestj+size, bhi, b2j)
	return total
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] within the given
// windows, preferring the earliest match on ties.
func longestMatch(a []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) (besti, bestj, bestSize int) {
	besti, bestj = alo, blo
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newJ2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestSize {
				besti, bestj, bestSize = i-k+1, j-k+1, k
			}
		}
		j2len = newJ2len
	}
	return besti, bestj, bestSize
}
