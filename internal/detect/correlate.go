package detect

import "math/bits"

// chromaprint emits roughly eight sub-fingerprints per second of audio.
const fingerprintRate = 8

// minOverlap is the smallest number of overlapping sub-fingerprints a
// candidate alignment needs before its score counts. Shorter overlaps
// score high by chance.
const minOverlap = 64

// correlate slides needle across haystack and returns the alignment with
// the highest bit-similarity. The score is 1 minus the mean hamming
// distance over the overlap, so 1.0 is a perfect match and random audio
// lands near 0.5.
func correlate(haystack, needle []int32) (offset int, score float64) {
	if len(haystack) == 0 || len(needle) == 0 {
		return 0, 0
	}

	bestOffset, bestScore := 0, 0.0
	for off := -len(needle) + minOverlap; off <= len(haystack)-minOverlap; off++ {
		var errBits, n int
		for i := range needle {
			j := off + i
			if j < 0 || j >= len(haystack) {
				continue
			}
			errBits += bits.OnesCount32(uint32(haystack[j] ^ needle[i]))
			n++
		}
		if n < minOverlap {
			continue
		}
		s := 1 - float64(errBits)/float64(n*32)
		if s > bestScore {
			bestScore, bestOffset = s, off
		}
	}
	if bestOffset < 0 {
		bestOffset = 0
	}
	return bestOffset, bestScore
}
