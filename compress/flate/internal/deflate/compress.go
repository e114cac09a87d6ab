// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

type blockState int

const (
	needMore      blockState = iota // block not completed, need more input or more output
	blockDone                       // block flush performed
	finishStarted                   // finish started, need only more output at next call
	finishDone                      // finish done, accept no more input or output
)

// maxStored is the largest payload of a stored block.
const maxStored = 1<<16 - 1

func (c *Compressor) compress(flush Flush) blockState {
	switch {
	case c.level == 0:
		return c.deflateStored(flush)
	case c.strategy == HuffmanOnly:
		return c.deflateHuff(flush)
	case c.strategy == RLE:
		return c.deflateRLE(flush)
	case c.cfg.fn == funcFast:
		return c.deflateFast(flush)
	}
	return c.deflateSlow(flush)
}

// flushBlockOnly closes the current block and reports whether the output
// buffer is full.
func (c *Compressor) flushBlockOnly(last bool) (full bool) {
	var buf []byte
	if c.blockStart >= 0 {
		buf = c.window[c.blockStart:c.strStart]
	}
	symbols := len(c.tally.tokens)
	st := c.blocks.flushBlock(c, buf, c.strStart-c.blockStart, last)
	c.blockStart = c.strStart
	c.nBlocks++
	if c.debug {
		c.log.Debugf("block %d: %s, %d symbols, stored=%d static=%d dynamic=%d bytes, last=%v",
			c.nBlocks, blockKind(st.kind), symbols, st.stored, st.static, st.dynamic, last)
	}
	c.flushPending()
	return c.outFull()
}

func blockKind(kind int) string {
	switch kind {
	case storedBlock:
		return "stored"
	case staticTrees:
		return "static"
	}
	return "dynamic"
}

// finishBlocks runs the common tail of the compress functions.
func (c *Compressor) finishBlocks(flush Flush) blockState {
	if flush == Finish {
		if c.flushBlockOnly(true) {
			return finishStarted
		}
		return finishDone
	}
	if len(c.tally.tokens) != 0 {
		if c.flushBlockOnly(false) {
			return needMore
		}
	}
	return blockDone
}

// deflateStored copies input into stored blocks of maxStored bytes. A
// shorter block is only written when the caller flushes.
func (c *Compressor) deflateStored(flush Flush) blockState {
	for {
		if len(c.stored) == maxStored {
			c.emitStored(false)
			if c.flushPending(); c.outFull() {
				return needMore
			}
			continue
		}
		if len(c.in) == 0 {
			break
		}
		start := len(c.stored)
		n := maxStored - start
		if n > len(c.in) {
			n = len(c.in)
		}
		c.stored = c.stored[:start+n]
		c.readBuf(c.stored[start:])
	}
	switch flush {
	case NoFlush:
		return needMore
	case Finish:
		c.emitStored(true)
		if c.flushPending(); c.outFull() {
			return finishStarted
		}
		return finishDone
	}
	if len(c.stored) != 0 {
		c.emitStored(false)
		if c.flushPending(); c.outFull() {
			return needMore
		}
	}
	return blockDone
}

func (c *Compressor) emitStored(last bool) {
	c.bw.writeStoredHeader(len(c.stored), last)
	c.bw.writeBytes(c.stored)
	c.nBlocks++
	if c.debug {
		c.log.Debugf("block %d: stored, %d bytes, last=%v", c.nBlocks, len(c.stored), last)
	}
	c.appendHistory(c.stored)
	c.stored = c.stored[:0]
}

// appendHistory keeps the window current while storing, so that a later
// switch to a compressing level can still reference the data.
func (c *Compressor) appendHistory(p []byte) {
	if len(p) >= c.wSize {
		copy(c.window, p[len(p)-c.wSize:])
		c.strStart = c.wSize
	} else {
		if c.strStart+len(p) > c.windowSize {
			keep := c.wSize - len(p)
			copy(c.window, c.window[c.strStart-keep:c.strStart])
			c.strStart = keep
		}
		copy(c.window[c.strStart:], p)
		c.strStart += len(p)
	}
	c.blockStart = c.strStart
	c.insert = 0
	c.hashStale = true
}

// deflateFast inserts new strings in the hash table only when no match was
// found or the match is short, and never looks for a better match at the
// next position.
func (c *Compressor) deflateFast(flush Flush) blockState {
	for {
		if c.lookahead < minLookahead {
			c.fillWindow()
			if c.lookahead < minLookahead && flush == NoFlush {
				return needMore
			}
			if c.lookahead == 0 {
				break
			}
		}

		hashHead := 0
		if c.lookahead >= minMatchLength {
			hashHead = c.insertString(c.strStart)
		}
		if hashHead != 0 && c.strStart-hashHead <= c.maxDist() {
			c.matchLength = c.longestMatch(hashHead)
		}

		var full bool
		if c.matchLength >= minMatchLength {
			full = c.tally.match(c.strStart-c.matchStart, c.matchLength)
			c.lookahead -= c.matchLength

			if c.matchLength <= c.cfg.maxLazy && c.lookahead >= minMatchLength {
				// insert the strings covered by the match
				c.matchLength--
				for ; c.matchLength != 0; c.matchLength-- {
					c.strStart++
					c.insertString(c.strStart)
				}
				c.strStart++
			} else {
				c.strStart += c.matchLength
				c.matchLength = 0
				c.insH = uint32(c.window[c.strStart])
				c.insH = c.updateHash(c.insH, c.window[c.strStart+1])
			}
		} else {
			full = c.tally.lit(c.window[c.strStart])
			c.lookahead--
			c.strStart++
		}
		if full && c.flushBlockOnly(false) {
			return needMore
		}
	}
	c.insert = c.strStart
	if c.insert > minMatchLength-1 {
		c.insert = minMatchLength - 1
	}
	return c.finishBlocks(flush)
}

// deflateSlow defers the choice of a match by one byte: a match is only
// emitted if the next position does not start a longer one.
func (c *Compressor) deflateSlow(flush Flush) blockState {
	for {
		if c.lookahead < minLookahead {
			c.fillWindow()
			if c.lookahead < minLookahead && flush == NoFlush {
				return needMore
			}
			if c.lookahead == 0 {
				break
			}
		}

		hashHead := 0
		if c.lookahead >= minMatchLength {
			hashHead = c.insertString(c.strStart)
		}

		c.prevLength = c.matchLength
		c.prevMatch = c.matchStart
		c.matchLength = minMatchLength - 1

		if hashHead != 0 && c.prevLength < c.cfg.maxLazy && c.strStart-hashHead <= c.maxDist() {
			c.matchLength = c.longestMatch(hashHead)
			if c.matchLength <= 5 && (c.strategy == Filtered ||
				(c.matchLength == minMatchLength && c.strStart-c.matchStart > tooFar)) {
				c.matchLength = minMatchLength - 1
			}
		}

		switch {
		case c.prevLength >= minMatchLength && c.matchLength <= c.prevLength:
			maxInsert := c.strStart + c.lookahead - minMatchLength
			full := c.tally.match(c.strStart-1-c.prevMatch, c.prevLength)

			// insert the strings of the match, the first two were already
			// inserted
			c.lookahead -= c.prevLength - 1
			c.prevLength -= 2
			for ; c.prevLength != 0; c.prevLength-- {
				c.strStart++
				if c.strStart <= maxInsert {
					c.insertString(c.strStart)
				}
			}
			c.matchAvailable = false
			c.matchLength = minMatchLength - 1
			c.strStart++
			if full && c.flushBlockOnly(false) {
				return needMore
			}
		case c.matchAvailable:
			// the previous match was not better, emit its first byte as a
			// literal
			full := c.tally.lit(c.window[c.strStart-1])
			if full {
				c.flushBlockOnly(false)
			}
			c.strStart++
			c.lookahead--
			if c.outFull() {
				return needMore
			}
		default:
			c.matchAvailable = true
			c.strStart++
			c.lookahead--
		}
	}
	if c.matchAvailable {
		c.tally.lit(c.window[c.strStart-1])
		c.matchAvailable = false
	}
	c.insert = c.strStart
	if c.insert > minMatchLength-1 {
		c.insert = minMatchLength - 1
	}
	return c.finishBlocks(flush)
}

// deflateRLE only matches runs of the previous byte.
func (c *Compressor) deflateRLE(flush Flush) blockState {
	for {
		if c.lookahead <= maxMatchLength {
			c.fillWindow()
			if c.lookahead <= maxMatchLength && flush == NoFlush {
				return needMore
			}
			if c.lookahead == 0 {
				break
			}
		}

		c.matchLength = 0
		if c.lookahead >= minMatchLength && c.strStart > 0 {
			prev := c.window[c.strStart-1]
			limit := c.lookahead
			if limit > maxMatchLength {
				limit = maxMatchLength
			}
			n := 0
			for n < limit && c.window[c.strStart+n] == prev {
				n++
			}
			c.matchLength = n
		}

		var full bool
		if c.matchLength >= minMatchLength {
			full = c.tally.match(1, c.matchLength)
			c.lookahead -= c.matchLength
			c.strStart += c.matchLength
			c.matchLength = 0
		} else {
			full = c.tally.lit(c.window[c.strStart])
			c.lookahead--
			c.strStart++
		}
		if full && c.flushBlockOnly(false) {
			return needMore
		}
	}
	c.insert = 0
	return c.finishBlocks(flush)
}

// deflateHuff codes every byte as a literal.
func (c *Compressor) deflateHuff(flush Flush) blockState {
	for {
		if c.lookahead == 0 {
			c.fillWindow()
			if c.lookahead == 0 {
				if flush == NoFlush {
					return needMore
				}
				break
			}
		}
		c.matchLength = 0
		full := c.tally.lit(c.window[c.strStart])
		c.lookahead--
		c.strStart++
		if full && c.flushBlockOnly(false) {
			return needMore
		}
	}
	c.insert = 0
	return c.finishBlocks(flush)
}
