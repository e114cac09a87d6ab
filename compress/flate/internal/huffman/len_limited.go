// Copyright (c) 2023, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package huffman

// maxBitsLimit is the longest code any deflate alphabet may use.
const maxBitsLimit = 15

// enforceMaxLen rebalances the number of codes per length so that no code is
// longer than maxLen while the code stays complete. lenCounts[maxLen] already
// holds every clamped leaf.
func enforceMaxLen(lenCounts []int, maxLen int) {
	// Kraft-McMillan inequality
	// https://en.wikipedia.org/wiki/Kraft%E2%80%93McMillan_inequality
	// -> sum(2^-length[...]) == 1
	// -> sum(2 ^ - length[... ]) * (2 ^ maxLength) == 1 * 2^maxLength
	// -> sum(lengthAnum * 2 ^ (maxLength - lengthA),... ) + maxLengthNum == 2 ^ maxLength
	total := 0
	for i := 1; i <= maxLen; i++ {
		total += lenCounts[i] << (maxLen - i)
	}
	for total > 1<<maxLen {
		// move a leaf from maxLen under a shorter leaf that is split in two
		lenCounts[maxLen]--
		for i := maxLen - 1; i > 0; i-- {
			if lenCounts[i] != 0 {
				lenCounts[i]--
				lenCounts[i+1] += 2
				break
			}
		}
		total--
	}
}

// KraftSum returns sum(2^(maxLen-len)) over all non zero lengths. A complete
// code gives exactly 1<<maxLen.
func KraftSum(lens []uint32, maxLen int) int {
	total := 0
	for _, l := range lens {
		if l != 0 {
			total += 1 << (maxLen - int(l))
		}
	}
	return total
}
