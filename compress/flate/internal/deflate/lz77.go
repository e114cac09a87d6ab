// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

import (
	"encoding/binary"
	"math/bits"
)

const (
	// minLookahead is the lookahead kept available to the matcher outside
	// of flushes: one full match plus the next string to hash.
	minLookahead = maxMatchLength + minMatchLength + 1

	// matches of length 3 further away than tooFar are not worth it
	tooFar = 4096
)

// maxDist is the largest distance a match may reach back; a full
// minLookahead stays reserved at the end of the window.
func (c *Compressor) maxDist() int {
	return c.wSize - minLookahead
}

func (c *Compressor) updateHash(h uint32, b byte) uint32 {
	return ((h << c.hashShift) ^ uint32(b)) & c.hashMask
}

// insertString adds the string at str to the hash chains and returns the
// previous head of its chain.
func (c *Compressor) insertString(str int) int {
	c.insH = c.updateHash(c.insH, c.window[str+minMatchLength-1])
	head := c.head[c.insH]
	c.prev[str&c.wMask] = head
	c.head[c.insH] = uint16(str)
	return int(head)
}

func (c *Compressor) clearHash() {
	for i := range c.head {
		c.head[i] = 0
	}
}

// slideHash rebases every chain entry by wSize. Entries that would become
// negative are too old to be referenced and are dropped.
func (c *Compressor) slideHash() {
	wSize := uint16(c.wSize)
	for i, m := range c.head {
		if m >= wSize {
			c.head[i] = m - wSize
		} else {
			c.head[i] = 0
		}
	}
	for i, m := range c.prev {
		if m >= wSize {
			c.prev[i] = m - wSize
		} else {
			c.prev[i] = 0
		}
	}
}

// readBuf moves input into dst, updating the running check value.
func (c *Compressor) readBuf(dst []byte) int {
	n := copy(dst, c.in)
	if n == 0 {
		return 0
	}
	c.in = c.in[n:]
	if !c.noCheck {
		c.updateCheck(dst[:n])
		c.totalIn += int64(n)
	}
	return n
}

// fillWindow reads new input when the lookahead runs short. The upper half
// of the window moves down once the current position nears the end, so
// that window[strStart-maxDist:] always stays addressable.
func (c *Compressor) fillWindow() {
	for {
		more := c.windowSize - c.lookahead - c.strStart
		if c.strStart >= c.wSize+c.maxDist() {
			copy(c.window, c.window[c.wSize:c.wSize+c.wSize-more])
			c.matchStart -= c.wSize
			c.strStart -= c.wSize
			c.blockStart -= c.wSize
			if c.insert > c.strStart {
				c.insert = c.strStart
			}
			c.slideHash()
			more += c.wSize
		}
		if len(c.in) == 0 {
			return
		}

		start := c.strStart + c.lookahead
		c.lookahead += c.readBuf(c.window[start : start+more])

		// hash the strings left over from the previous call
		if c.lookahead+c.insert >= minMatchLength {
			str := c.strStart - c.insert
			c.insH = uint32(c.window[str])
			c.insH = c.updateHash(c.insH, c.window[str+1])
			for c.insert > 0 {
				c.insH = c.updateHash(c.insH, c.window[str+minMatchLength-1])
				c.prev[str&c.wMask] = c.head[c.insH]
				c.head[c.insH] = uint16(str)
				str++
				c.insert--
				if c.lookahead+c.insert < minMatchLength {
					break
				}
			}
		}
		if c.lookahead >= minLookahead || len(c.in) == 0 {
			return
		}
	}
}

// longestMatch follows the hash chain from curMatch and returns the length
// of the longest match found, setting matchStart. Matches shorter than
// prevLength are not reported.
func (c *Compressor) longestMatch(curMatch int) int {
	chainLength := c.cfg.maxChain
	win := c.window
	scan := c.strStart
	bestLen := c.prevLength
	niceMatch := c.cfg.niceLength
	limit := 0
	if c.strStart > c.maxDist() {
		limit = c.strStart - c.maxDist()
	}

	if c.prevLength >= c.cfg.goodLength {
		chainLength >>= 2
	}
	if niceMatch > c.lookahead {
		niceMatch = c.lookahead
	}
	scanEnd1 := win[scan+bestLen-1]
	scanEnd := win[scan+bestLen]

	for {
		match := curMatch
		// the two bytes at the end of the best match decide most candidates
		if win[match+bestLen] == scanEnd && win[match+bestLen-1] == scanEnd1 &&
			win[match] == win[scan] && win[match+1] == win[scan+1] {
			length := 2 + compare(win, match+2, scan+2, maxMatchLength-2)
			if length > bestLen {
				c.matchStart = curMatch
				bestLen = length
				if length >= niceMatch {
					break
				}
				scanEnd1 = win[scan+bestLen-1]
				scanEnd = win[scan+bestLen]
			}
		}
		curMatch = int(c.prev[curMatch&c.wMask])
		chainLength--
		if curMatch <= limit || chainLength == 0 {
			break
		}
	}
	if bestLen <= c.lookahead {
		return bestLen
	}
	return c.lookahead
}

// compare returns the length of the common prefix of input[prev:] and
// input[curr:], up to maxLength.
func compare(input []byte, prev, curr int, maxLength int) (match int) {
	max := maxLength &^ 0x7
	i := 0
	for ; i < max; i += 8 {
		test := loadU64(input, prev+i) ^ loadU64(input, curr+i)
		if test != 0 {
			return i + bits.TrailingZeros64(test)/8
		}
	}
	for ; i < maxLength; i++ {
		if input[prev+i] != input[curr+i] {
			return i
		}
	}
	return maxLength
}

func loadU64(input []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(input[offset:])
}
