// Copyright (c) 2023, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package huffman

import "math/bits"

// GenerateCode assigns canonical codes to lens and stores them bit-reversed
// in rcodes, ready to be written LSB first. Symbols of equal length receive
// consecutive codes in symbol order.
func GenerateCode(lens []uint32, rcodes []uint16) {
	var blCount, nextCodes [maxBitsLimit + 1]uint32
	maxBits := uint32(0)
	for _, v := range lens {
		blCount[v]++
		if v > maxBits {
			maxBits = v
		}
	}

	blCount[0] = 0
	code := uint32(0)
	for b := uint32(1); b <= maxBits; b++ {
		code = (code + blCount[b-1]) << 1
		nextCodes[b] = code
	}
	for i, l := range lens {
		if l != 0 {
			rcodes[i] = bits.Reverse16(uint16(nextCodes[l])) >> (16 - l)
			nextCodes[l]++
		} else {
			rcodes[i] = 0
		}
	}
}

// Reverse returns the low n bits of code in reverse order.
func Reverse(code uint16, n uint32) uint16 {
	return bits.Reverse16(code) >> (16 - n)
}
