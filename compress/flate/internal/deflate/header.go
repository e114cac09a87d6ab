// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

import (
	"github.com/intel/fastzlib/compress/flate/internal/huffman"
)

const (
	numRepeat3_6     = 16
	zeroRepeat3_10   = 17
	zeroRepeat11_138 = 18
)

var hclenOrder = [blCodes]uint32{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// dynamicHeader describes the two code tables of a dynamic block with the
// code length alphabet.
type dynamicHeader struct {
	generator   huffman.TreeGenerator
	litNum      int
	distanceNum int
	data        []uint8  // code length symbols, each repeat code followed by its extra bits
	histogram   []uint32 // code length symbol frequencies
	lens        []uint32
	rcodes      []uint16
	codeSize    int // HCLEN + 4
}

func newDynamicHeader(gen huffman.TreeGenerator) *dynamicHeader {
	return &dynamicHeader{
		generator: gen,
		data:      make([]uint8, 0, 2*(lCodes+dCodes)),
		histogram: make([]uint32, blCodes),
		lens:      make([]uint32, blCodes),
		rcodes:    make([]uint16, blCodes),
	}
}

// prepare run-length encodes both length tables and builds the code length
// code. It returns the size of the header in bits, block type excluded.
func (c *dynamicHeader) prepare(litLens, distLens []uint32) (size int) {
	c.litNum = len(litLens)
	c.distanceNum = len(distLens)
	c.data = c.data[:0]
	for i := range c.histogram {
		c.histogram[i] = 0
	}
	c.alphabet(litLens)
	c.alphabet(distLens)

	c.generator.Generate(maxBLBits, c.histogram, c.lens)
	huffman.GenerateCode(c.lens, c.rcodes)

	c.codeSize = blCodes
	for c.codeSize > 4 && c.lens[hclenOrder[c.codeSize-1]] == 0 {
		c.codeSize--
	}

	size = 5 + 5 + 4 + 3*c.codeSize
	for sym, f := range c.histogram {
		size += int(f) * int(c.lens[sym]+extraBLBits[sym])
	}
	return size
}

func (c *dynamicHeader) writeTo(last bool, b *BitBuf) {
	if last {
		b.WriteBit(dynTrees<<1|1, 3)
	} else {
		b.WriteBit(dynTrees<<1, 3)
	}
	// HLIT
	b.WriteBit(uint32(c.litNum)-257, 5)
	// HDIST
	b.WriteBit(uint32(c.distanceNum)-1, 5)
	// HCLEN
	b.WriteBit(uint32(c.codeSize)-4, 4)
	//  (HCLEN + 4) x 3 bits: code lengths for the code length
	// alphabet given just above, in the order: 16, 17, 18,
	// 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15
	for i := 0; i < c.codeSize; i++ {
		b.WriteBit(c.lens[hclenOrder[i]], 3)
	}

	for i := 0; i < len(c.data); i++ {
		value := c.data[i]
		b.WriteBit(uint32(c.rcodes[value]), uint(c.lens[value]))
		switch value {
		case numRepeat3_6:
			i++
			b.WriteBit(uint32(c.data[i]), 2)
		case zeroRepeat3_10:
			i++
			b.WriteBit(uint32(c.data[i]), 3)
		case zeroRepeat11_138:
			i++
			b.WriteBit(uint32(c.data[i]), 7)
		}
	}
}

// alphabet appends the code length symbols describing lens. Runs do not
// cross from the literal/length table into the distance table.
func (c *dynamicHeader) alphabet(lens []uint32) {
	for i := 0; i < len(lens); {
		cur := lens[i]
		run := 1
		for i+run < len(lens) && lens[i+run] == cur {
			run++
		}
		if cur == 0 {
			c.zeroRepeat(run)
		} else {
			c.numRepeat(uint8(cur), run)
		}
		i += run
	}
}

func (c *dynamicHeader) numRepeat(num byte, repeated int) {
	c.data = append(c.data, num)
	c.histogram[num]++
	repeated--
	for repeated >= 3 {
		n := repeated
		if n > 6 {
			n = 6
		}
		c.histogram[numRepeat3_6]++
		c.data = append(c.data, numRepeat3_6, uint8(n-3))
		repeated -= n
	}
	for ; repeated > 0; repeated-- {
		c.data = append(c.data, num)
		c.histogram[num]++
	}
}

func (c *dynamicHeader) zeroRepeat(repeated int) {
	for repeated != 0 {
		switch {
		case repeated < 3:
			if repeated == 1 {
				c.data = append(c.data, 0)
			} else {
				c.data = append(c.data, 0, 0)
			}
			c.histogram[0] += uint32(repeated)
			// consume all repeated 0
			repeated = 0
		case repeated < 11:
			c.histogram[zeroRepeat3_10]++
			c.data = append(c.data, zeroRepeat3_10, byte(repeated-3))
			repeated = 0
		case repeated < 139:
			c.histogram[zeroRepeat11_138]++
			c.data = append(c.data, zeroRepeat11_138, byte(repeated-11))
			repeated = 0
		default:
			c.histogram[zeroRepeat11_138]++
			c.data = append(c.data, zeroRepeat11_138, byte(138-11))
			// consume max 138 repeated 0
			repeated -= 138
		}
	}
}
