// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

import (
	"github.com/intel/fastzlib/compress/flate/internal/huffman"
)

// block types
const (
	storedBlock = 0
	staticTrees = 1
	dynTrees    = 2
)

var (
	staticLLens  [lCodes + 2]uint32
	staticLCodes [lCodes + 2]uint16
	staticDLens  [dCodes]uint32
	staticDCodes [dCodes]uint16
)

func init() {
	for i := range staticLLens {
		switch {
		case i < 144:
			staticLLens[i] = 8
		case i < 256:
			staticLLens[i] = 9
		case i < 280:
			staticLLens[i] = 7
		default:
			staticLLens[i] = 8
		}
	}
	huffman.GenerateCode(staticLLens[:], staticLCodes[:])
	for i := range staticDLens {
		staticDLens[i] = 5
		staticDCodes[i] = huffman.Reverse(uint16(i), 5)
	}
}

// blockWriter turns a tally into a compressed block.
type blockWriter struct {
	gen      *huffman.HeapBuilder
	hdr      *dynamicHeader
	litLens  [lCodes]uint32
	litCodes [lCodes]uint16
	disLens  [dCodes]uint32
	disCodes [dCodes]uint16
}

func newBlockWriter() *blockWriter {
	gen := huffman.NewHeapBuilder(lCodes)
	return &blockWriter{gen: gen, hdr: newDynamicHeader(gen)}
}

// blockStats are the estimated sizes of one block, in bytes.
type blockStats struct {
	stored, static, dynamic int
	kind                    int
}

// flushBlock writes the symbols of t as one block. buf holds the input the
// block covers, or is nil when that input already left the window, in which
// case a stored block is not an option.
func (w *blockWriter) flushBlock(c *Compressor, buf []byte, storedLen int, last bool) blockStats {
	t := &c.tally
	var optLenb, staticLenb int
	var st blockStats
	if c.level > 0 {
		litMax := w.gen.Generate(maxBits, t.litFreq[:lCodes], w.litLens[:])
		disMax := w.gen.Generate(maxBits, t.disFreq[:], w.disLens[:])
		huffman.GenerateCode(w.litLens[:], w.litCodes[:])
		huffman.GenerateCode(w.disLens[:], w.disCodes[:])
		optLen := w.hdr.prepare(w.litLens[:litMax+1], w.disLens[:disMax+1])
		optLen += symbolBits(t, w.litLens[:], w.disLens[:])
		staticLen := symbolBits(t, staticLLens[:], staticDLens[:])

		optLenb = (optLen + 3 + 7) >> 3
		staticLenb = (staticLen + 3 + 7) >> 3
		st.dynamic = optLenb
		if staticLenb <= optLenb || c.strategy == Fixed {
			optLenb = staticLenb
		}
	} else {
		optLenb = storedLen + 5
		staticLenb = optLenb
	}
	st.static = staticLenb
	st.stored = storedLen + 5

	switch {
	case storedLen+4 <= optLenb && buf != nil:
		st.kind = storedBlock
		c.bw.writeStoredHeader(storedLen, last)
		c.bw.writeBytes(buf[:storedLen])
	case staticLenb == optLenb:
		st.kind = staticTrees
		if last {
			c.bw.WriteBit(staticTrees<<1|1, 3)
		} else {
			c.bw.WriteBit(staticTrees<<1, 3)
		}
		compressBlock(&c.bw, t.tokens, staticLLens[:], staticLCodes[:], staticDLens[:], staticDCodes[:])
	default:
		st.kind = dynTrees
		w.hdr.writeTo(last, &c.bw)
		compressBlock(&c.bw, t.tokens, w.litLens[:], w.litCodes[:], w.disLens[:], w.disCodes[:])
	}
	t.reset()
	if last {
		c.bw.flushLastByte()
	}
	return st
}

// symbolBits is the size in bits of the tallied symbols under the given
// code lengths, extra bits included.
func symbolBits(t *tally, litLens, disLens []uint32) int {
	size := 0
	for i, f := range t.litFreq[:lCodes] {
		if f == 0 {
			continue
		}
		l := litLens[i]
		if i > endBlock {
			l += extraLBits[i-endBlock-1]
		}
		size += int(f) * int(l)
	}
	for i, f := range t.disFreq {
		size += int(f) * int(disLens[i]+extraDBits[i])
	}
	return size
}

func compressBlock(b *BitBuf, tokens []token, litLens []uint32, litCodes []uint16, disLens []uint32, disCodes []uint16) {
	for _, t := range tokens {
		lc := t.lit()
		if !t.isMatch() {
			b.WriteBit(uint32(litCodes[lc]), uint(litLens[lc]))
			continue
		}
		code := uint32(lengthCode[lc])
		sym := code + literals + 1
		b.WriteBit(uint32(litCodes[sym]), uint(litLens[sym]))
		if extra := extraLBits[code]; extra != 0 {
			b.WriteBit(lc-baseLength[code], uint(extra))
		}
		dsym, dextra := getDistSymbol(t.dist() + 1)
		b.WriteBit(uint32(disCodes[dsym]), uint(disLens[dsym]))
		if extra := extraDBits[dsym]; extra != 0 {
			b.WriteBit(dextra, uint(extra))
		}
	}
	b.WriteBit(uint32(litCodes[endBlock]), uint(litLens[endBlock]))
}
