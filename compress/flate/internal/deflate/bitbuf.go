// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

// BitBuf collects the compressed stream. Bits are packed LSB first into
// bits and moved to pending in whole bytes; pending[head:] has not been
// handed to the caller yet.
type BitBuf struct {
	pending []byte
	head    int
	bits    uint64
	bitLen  uint
}

func (b *BitBuf) reset() {
	b.pending = b.pending[:0]
	b.head = 0
	b.bits = 0
	b.bitLen = 0
}

// WriteBit appends the count low bits of code.
func (b *BitBuf) WriteBit(code uint32, count uint) {
	b.bits |= uint64(code) << b.bitLen
	b.bitLen += count
	if b.bitLen >= 48 {
		b.pending = append(b.pending,
			byte(b.bits), byte(b.bits>>8), byte(b.bits>>16),
			byte(b.bits>>24), byte(b.bits>>32), byte(b.bits>>40))
		b.bits >>= 48
		b.bitLen -= 48
	}
}

// Sync moves every complete byte to pending, keeping at most 7 bits.
func (b *BitBuf) Sync() {
	for b.bitLen >= 8 {
		b.pending = append(b.pending, byte(b.bits))
		b.bits >>= 8
		b.bitLen -= 8
	}
}

// flushLastByte pads the bit buffer with zeros to a byte boundary.
func (b *BitBuf) flushLastByte() {
	for b.bitLen > 0 {
		b.pending = append(b.pending, byte(b.bits))
		b.bits >>= 8
		if b.bitLen < 8 {
			b.bitLen = 0
		} else {
			b.bitLen -= 8
		}
	}
	b.bits = 0
}

// writeBytes appends raw bytes; the buffer must be byte aligned.
func (b *BitBuf) writeBytes(p []byte) {
	b.pending = append(b.pending, p...)
}

func (b *BitBuf) writeShortLSB(v uint16) {
	b.pending = append(b.pending, byte(v), byte(v>>8))
}

// writeStoredHeader starts a stored block of n bytes.
func (b *BitBuf) writeStoredHeader(n int, last bool) {
	var final uint32
	if last {
		final = 1
	}
	b.WriteBit(storedBlock<<1|final, 3)
	b.flushLastByte()
	b.writeShortLSB(uint16(n))
	b.writeShortLSB(^uint16(n))
}

// writeEmptyBlock writes an empty stored block, the sync flush marker
// 00 00 ff ff once aligned.
func (b *BitBuf) writeEmptyBlock() {
	b.writeStoredHeader(0, false)
}

// alignWithStaticBlock writes an empty static block, used by PartialFlush.
func (b *BitBuf) alignWithStaticBlock() {
	b.WriteBit(staticTrees<<1, 3)
	b.WriteBit(uint32(staticLCodes[endBlock]), uint(staticLLens[endBlock]))
	b.Sync()
}

// pendingLen is the number of bytes not yet delivered.
func (b *BitBuf) pendingLen() int {
	return len(b.pending) - b.head
}

// drain copies pending bytes into out and returns how many were copied.
func (b *BitBuf) drain(out []byte) int {
	n := copy(out, b.pending[b.head:])
	b.head += n
	if b.head == len(b.pending) {
		b.pending = b.pending[:0]
		b.head = 0
	}
	return n
}
