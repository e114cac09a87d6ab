// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

import (
	"fmt"
	"math/bits"
)

const (
	minMatchLength = 3
	maxMatchLength = 258

	literals    = 256
	endBlock    = 256
	lengthCodes = 29
	lCodes      = literals + 1 + lengthCodes // 286
	dCodes      = 30
	blCodes     = 19
	maxBits     = 15
	maxBLBits   = 7
)

// token is one tallied symbol.
//
//	literal: |0|      0      | lit (8) |
//	match:   |1| dist-1 (16) | len-3 (8) |
type token uint32

const matchFlag = 1 << 31

func literalToken(lit byte) token {
	return token(lit)
}

func matchToken(dist, length int) token {
	return token(matchFlag | uint32(dist-1)<<8 | uint32(length-minMatchLength))
}

func (t token) isMatch() bool { return t&matchFlag != 0 }

// lit returns the literal byte or length-3 of a match.
func (t token) lit() uint32 { return uint32(t) & 0xff }

// dist returns the match distance minus one.
func (t token) dist() uint32 { return (uint32(t) >> 8) & 0xffff }

func (t token) String() string {
	if t.isMatch() {
		return fmt.Sprintf("<LEN/DIST %d / %d >", t.lit()+minMatchLength, t.dist()+1)
	}
	return string(rune(t.lit()))
}

var (
	extraLBits  = [lengthCodes]uint32{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0}
	extraDBits  = [dCodes]uint32{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}
	extraBLBits = [blCodes]uint32{16: 2, 17: 3, 18: 7}

	// lengthCode maps length-3 onto a length code 0..28.
	lengthCode [maxMatchLength - minMatchLength + 1]uint8
	baseLength [lengthCodes]uint32
)

func init() {
	length := 0
	code := 0
	for ; code < lengthCodes-1; code++ {
		baseLength[code] = uint32(length)
		for n := 0; n < 1<<extraLBits[code]; n++ {
			lengthCode[length] = uint8(code)
			length++
		}
	}
	// length 258 uses code 285 rather than 284 with all extra bits set
	lengthCode[length-1] = uint8(code)
	baseLength[code] = uint32(maxMatchLength - minMatchLength)
}

// getDistSymbol returns the distance code of dist (1..32768) and the value of
// its extra bits.
func getDistSymbol(dist uint32) (sym uint32, extraBits uint32) {
	if dist <= 2 {
		return dist - 1, 0
	}
	dist--
	msb := 32 - bits.LeadingZeros32(dist)
	numExtraBits := uint32(msb - 2)
	extraBits = dist & ((1 << numExtraBits) - 1)
	dist >>= numExtraBits
	sym = dist + 2*numExtraBits
	return sym, extraBits
}

// tally accumulates the symbols of the current block and their frequencies.
type tally struct {
	tokens  []token
	maxSyms int
	litFreq [lCodes + 2]uint32
	disFreq [dCodes]uint32
	matches int
}

func (t *tally) init(litBufsize int) {
	t.maxSyms = litBufsize - 1
	t.tokens = make([]token, 0, t.maxSyms)
	t.reset()
}

func (t *tally) reset() {
	t.tokens = t.tokens[:0]
	for i := range t.litFreq {
		t.litFreq[i] = 0
	}
	for i := range t.disFreq {
		t.disFreq[i] = 0
	}
	t.litFreq[endBlock] = 1
	t.matches = 0
}

// lit records a literal and reports whether the block is full.
func (t *tally) lit(c byte) bool {
	t.tokens = append(t.tokens, literalToken(c))
	t.litFreq[c]++
	return len(t.tokens) == t.maxSyms
}

// match records a match and reports whether the block is full.
func (t *tally) match(dist, length int) bool {
	t.tokens = append(t.tokens, matchToken(dist, length))
	t.litFreq[int(lengthCode[length-minMatchLength])+literals+1]++
	sym, _ := getDistSymbol(uint32(dist))
	t.disFreq[sym]++
	t.matches++
	return len(t.tokens) == t.maxSyms
}
