// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

// inflateFast decodes literal/length and distance codes until the end of
// the block, fewer than 6 input bytes or fewer than 258 output bytes are
// left. Each iteration needs at most 48 bits of input and writes at most
// 258 bytes, so the loop checks no bounds inside a symbol.
//
// On return the bit buffer holds less than one byte; whole bytes that were
// loaded but not used are given back to the input.
func (f *Inflater) inflateFast() {
	in := f.in
	inPos := f.inPos
	last := len(in) - 5
	out := f.out
	outPos := f.outPos
	end := len(out) - 257

	hold, bits := f.hold, f.bits
	lcode, dcode := f.lenCode, f.distCode
	lmask := uint64(1)<<f.lenBits - 1
	dmask := uint64(1)<<f.distBits - 1

loop:
	for {
		if bits < 15 {
			hold |= uint64(in[inPos]) << bits
			hold |= uint64(in[inPos+1]) << (bits + 8)
			inPos += 2
			bits += 16
		}
		here := lcode[hold&lmask]
	dolen:
		for {
			op := uint(here.bits)
			hold >>= op
			bits -= op
			op = uint(here.op)
			switch {
			case op == opLiteral:
				out[outPos] = byte(here.val)
				outPos++
			case op&opBase != 0:
				length := int(here.val)
				op &= 15
				if op != 0 {
					if bits < op {
						hold |= uint64(in[inPos]) << bits
						inPos++
						bits += 8
					}
					length += int(hold & (1<<op - 1))
					hold >>= op
					bits -= op
				}
				if bits < 15 {
					hold |= uint64(in[inPos]) << bits
					hold |= uint64(in[inPos+1]) << (bits + 8)
					inPos += 2
					bits += 16
				}
				here = dcode[hold&dmask]
				for {
					op = uint(here.bits)
					hold >>= op
					bits -= op
					op = uint(here.op)
					if op&opBase != 0 {
						break
					}
					if op&opInvalid != 0 {
						f.inPos = inPos
						f.bad(ErrInvalidDistCode)
						break loop
					}
					here = dcode[uint64(here.val)+hold&(1<<op-1)]
				}
				dist := int(here.val)
				op &= 15
				if bits < op {
					hold |= uint64(in[inPos]) << bits
					inPos++
					bits += 8
					if bits < op {
						hold |= uint64(in[inPos]) << bits
						inPos++
						bits += 8
					}
				}
				dist += int(hold & (1<<op - 1))
				hold >>= op
				bits -= op

				if dist > outPos {
					// starts in the window
					back := dist - outPos
					if back > f.whave {
						f.inPos = inPos
						f.bad(ErrInvalidDistance)
						break loop
					}
					n := length
					if n > back {
						n = back
					}
					f.windowCopy(out[outPos:outPos+n], back)
					outPos += n
					length -= n
				}
				if length > 0 {
					byteCopy(out, outPos, dist, length)
					outPos += length
				}
			case op&opInvalid == 0:
				// second level table
				here = lcode[uint64(here.val)+hold&(1<<op-1)]
				continue dolen
			case op&opEndBlock != 0:
				f.mode = modeType
				break loop
			default:
				f.inPos = inPos
				f.bad(ErrInvalidLitLenCode)
				break loop
			}
			break
		}
		if inPos >= last || outPos >= end {
			break
		}
	}

	n := bits >> 3
	inPos -= int(n)
	bits -= n << 3
	hold &= 1<<bits - 1

	f.inPos = inPos
	f.outPos = outPos
	f.hold, f.bits = hold, bits
}

// byteCopy copies a match of length bytes starting dist bytes back. The
// source may overlap the destination; every copy doubles the repeated part.
func byteCopy(hist []byte, curr int, dist, length int) {
	end := curr + length
	start := curr - dist
	for curr < end {
		to := hist[curr:end]
		from := hist[start:curr]
		size := copy(to, from)
		curr += size
	}
}
