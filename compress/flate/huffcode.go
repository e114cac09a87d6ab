// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import "errors"

// code is one entry of a decoding table. The low bits of the input index the
// root table; entries longer than the root point at a second level table.
//
// | op        | meaning                                         |
// | --------- | ----------------------------------------------- |
// | 0         | literal, val is the byte                        |
// | 1..15     | link, val is the sub-table offset, op its bits  |
// | 16 + n    | length or distance base val with n extra bits   |
// | 32 + 64   | end of block                                    |
// | 64        | invalid code                                    |
type code struct {
	op   uint8
	bits uint8
	val  uint16
}

const (
	opLiteral  = 0
	opBase     = 16
	opEndBlock = 32
	opInvalid  = 64
)

type tableKind int

const (
	codesTable tableKind = iota
	lensTable
	distsTable
)

const (
	maxCodeBits = 15

	lenRootBits  = 9
	distRootBits = 6
	codeRootBits = 7

	// Largest tables for the root sizes above, as computed by zlib's enough
	// program for 286 and 30 symbols.
	enoughLens  = 852
	enoughDists = 592
	enough      = enoughLens + enoughDists
)

var (
	lengthBase = [31]uint16{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
		35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258, 0, 0}
	// 16 + extra bits, or an invalid marker for symbols 286 and 287
	lengthExtra = [31]uint8{
		16, 16, 16, 16, 16, 16, 16, 16, 17, 17, 17, 17, 18, 18, 18, 18,
		19, 19, 19, 19, 20, 20, 20, 20, 21, 21, 21, 21, 16, 77, 202}
	distBase = [32]uint16{
		1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
		257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
		8193, 12289, 16385, 24577, 0, 0}
	distExtra = [32]uint8{
		16, 16, 16, 16, 17, 17, 18, 18, 19, 19, 20, 20, 21, 21, 22, 22,
		23, 23, 24, 24, 25, 25, 26, 26, 27, 27, 28, 28, 29, 29, 64, 64}
)

var (
	errBadCode    = errors.New("over-subscribed or incomplete code")
	errTableSpace = errors.New("decoding table too large")
)

// buildTable writes the decoding table for the code lengths in lens to
// table. root is the requested index size of the first level. It returns
// the number of entries used and the root size actually chosen.
//
// A code with a single symbol of length one is accepted for distances,
// every other incomplete code is rejected.
func buildTable(kind tableKind, lens []uint16, table []code, root uint, work []uint16) (used int, rootBits uint, err error) {
	var count, offs [maxCodeBits + 1]uint16
	for _, l := range lens {
		count[l]++
	}

	max := uint(maxCodeBits)
	for ; max >= 1; max-- {
		if count[max] != 0 {
			break
		}
	}
	if root > max {
		root = max
	}
	if max == 0 {
		// no symbols at all, every lookup fails
		here := code{op: opInvalid, bits: 1}
		table[0] = here
		table[1] = here
		return 2, 1, nil
	}
	min := uint(1)
	for ; min < max; min++ {
		if count[min] != 0 {
			break
		}
	}
	if root < min {
		root = min
	}

	left := 1
	for l := 1; l <= maxCodeBits; l++ {
		left <<= 1
		left -= int(count[l])
		if left < 0 {
			return 0, 0, errBadCode
		}
	}
	if left > 0 && (kind == codesTable || max != 1) {
		return 0, 0, errBadCode
	}

	for l := 1; l < maxCodeBits; l++ {
		offs[l+1] = offs[l] + count[l]
	}
	for sym, l := range lens {
		if l != 0 {
			work[offs[l]] = uint16(sym)
			offs[l]++
		}
	}

	var (
		base  []uint16
		extra []uint8
		match uint
	)
	switch kind {
	case codesTable:
		match = 20
	case lensTable:
		base, extra, match = lengthBase[:], lengthExtra[:], 257
	default:
		base, extra = distBase[:], distExtra[:]
	}

	var (
		huff  uint
		sym   int
		l     = min
		next  int
		curr  = root
		drop  uint
		low   = ^uint(0)
		mask  = uint(1)<<root - 1
		block int
	)
	used = 1 << root
	if tooBig(kind, used) {
		return 0, 0, errTableSpace
	}

	for {
		here := code{bits: uint8(l - drop)}
		w := uint(work[sym])
		switch {
		case w+1 < match:
			here.op = opLiteral
			here.val = uint16(w)
		case w >= match:
			here.op = extra[w-match]
			here.val = base[w-match]
		default:
			here.op = opEndBlock + opInvalid
		}

		// replicate for every index whose low bits are this code
		incr := 1 << (l - drop)
		fill := 1 << curr
		block = fill
		for {
			fill -= incr
			table[next+int(huff>>drop)+fill] = here
			if fill == 0 {
				break
			}
		}

		// next code in bit-reversed order
		step := uint(1) << (l - 1)
		for huff&step != 0 {
			step >>= 1
		}
		if step != 0 {
			huff &= step - 1
			huff += step
		} else {
			huff = 0
		}

		sym++
		count[l]--
		if count[l] == 0 {
			if l == max {
				break
			}
			l = uint(lens[work[sym]])
		}

		if l > root && huff&mask != low {
			if drop == 0 {
				drop = root
			}
			next += block

			// size the sub-table for the remaining codes with this prefix
			curr = l - drop
			left = 1 << curr
			for curr+drop < max {
				left -= int(count[curr+drop])
				if left <= 0 {
					break
				}
				curr++
				left <<= 1
			}

			used += 1 << curr
			if tooBig(kind, used) {
				return 0, 0, errTableSpace
			}
			low = huff & mask
			table[low] = code{op: uint8(curr), bits: uint8(root), val: uint16(next)}
		}
	}

	if huff != 0 {
		table[next+int(huff)] = code{op: opInvalid, bits: uint8(l - drop)}
	}
	return used, root, nil
}

func tooBig(kind tableKind, used int) bool {
	return (kind == lensTable && used > enoughLens) || (kind == distsTable && used > enoughDists)
}

var fixedLen, fixedDist []code

func init() {
	var lens [288]uint16
	var work [288]uint16
	for i := range lens {
		switch {
		case i < 144:
			lens[i] = 8
		case i < 256:
			lens[i] = 9
		case i < 280:
			lens[i] = 7
		default:
			lens[i] = 8
		}
	}
	table := make([]code, 1<<9)
	n, _, err := buildTable(lensTable, lens[:], table, 9, work[:])
	if err != nil {
		panic(err)
	}
	fixedLen = table[:n]

	for i := 0; i < 32; i++ {
		lens[i] = 5
	}
	table = make([]code, 1<<5)
	n, _, err = buildTable(distsTable, lens[:32], table, 5, work[:])
	if err != nil {
		panic(err)
	}
	fixedDist = table[:n]
}

const (
	fixedLenBits  = 9
	fixedDistBits = 5
)
