// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

// Package deflate implements the DEFLATE compressor: a hash chain LZ77
// matcher over a sliding window, symbol tallies, the choice between stored,
// static and dynamic Huffman blocks, and the zlib or gzip framing around
// the stream.
package deflate

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/intel/fastzlib/compress/checksum"
	"github.com/intel/fastzlib/compress/internal/container"
)

var (
	// ErrStream reports an invalid parameter or a call that is not allowed
	// in the current state.
	ErrStream = errors.New("stream error")
	// ErrBuffer reports that no progress was possible.
	ErrBuffer = errors.New("buffer error")
)

const (
	statusInit = iota
	statusBusy
	statusFinish
)

// flush values outside the Flush range
const (
	flushNone    = -2 // nothing compressed yet
	flushPending = -1 // output buffer ran full
)

// Compressor is a resumable deflate stream. Input and output are supplied
// per call to Deflate; everything that does not fit stays buffered.
type Compressor struct {
	log   *logrus.Entry
	debug bool

	level    int
	strategy Strategy
	wrap     Wrap
	wBits    int
	memLevel int
	header   *container.Header
	cfg      levelConfig

	wSize      int
	wMask      int
	windowSize int
	window     []byte
	prev       []uint16
	head       []uint16
	insH       uint32
	hashBits   uint
	hashMask   uint32
	hashShift  uint
	hashStale  bool

	blockStart     int
	strStart       int
	lookahead      int
	matchLength    int
	matchStart     int
	prevLength     int
	prevMatch      int
	matchAvailable bool
	insert         int

	tally   tally
	blocks  *blockWriter
	bw      BitBuf
	stored  []byte
	nBlocks int

	status      int
	lastFlush   int
	trailerDone bool
	hasDict     bool
	dictID      uint32

	in      []byte
	out     []byte
	outPos  int
	noCheck bool
	check   uint32

	totalIn  int64
	totalOut int64
}

// NewCompressor allocates a stream for cfg.
func NewCompressor(cfg Config) (*Compressor, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if cfg.Wrap == WrapGzip && cfg.Header != nil {
		if err := cfg.Header.Validate(); err != nil {
			return nil, err
		}
	}
	c := &Compressor{
		log:      cfg.Logger,
		level:    cfg.Level,
		strategy: cfg.Strategy,
		wrap:     cfg.Wrap,
		wBits:    cfg.WindowBits,
		memLevel: cfg.MemLevel,
		header:   cfg.Header,
	}
	c.debug = c.log.Logger.IsLevelEnabled(logrus.DebugLevel)

	c.wSize = 1 << c.wBits
	c.wMask = c.wSize - 1
	c.windowSize = 2 * c.wSize
	c.window = make([]byte, c.windowSize)
	c.prev = make([]uint16, c.wSize)

	c.hashBits = uint(c.memLevel) + 7
	c.head = make([]uint16, 1<<c.hashBits)
	c.hashMask = 1<<c.hashBits - 1
	c.hashShift = (c.hashBits + minMatchLength - 1) / minMatchLength

	litBufsize := 1 << (c.memLevel + 6)
	c.tally.init(litBufsize)
	c.blocks = newBlockWriter()
	c.bw.pending = make([]byte, 0, litBufsize*4)
	c.stored = make([]byte, 0, maxStored)

	c.Reset()
	return c, nil
}

// Reset discards all state and starts a new stream with the same settings.
// A dictionary must be set again.
func (c *Compressor) Reset() {
	c.totalIn = 0
	c.totalOut = 0
	c.bw.reset()
	c.trailerDone = false
	c.hasDict = false
	c.dictID = 0
	c.nBlocks = 0
	c.stored = c.stored[:0]
	c.status = statusInit
	if c.wrap == WrapRaw {
		c.status = statusBusy
	}
	c.check = c.initCheck()
	c.lastFlush = flushNone
	c.tally.reset()
	c.lmInit()
}

func (c *Compressor) lmInit() {
	c.clearHash()
	c.cfg = configTable[c.level]
	c.strStart = 0
	c.blockStart = 0
	c.lookahead = 0
	c.insert = 0
	c.matchLength = minMatchLength - 1
	c.prevLength = minMatchLength - 1
	c.matchAvailable = false
	c.insH = 0
	c.hashStale = false
}

func (c *Compressor) initCheck() uint32 {
	if c.wrap == WrapZlib {
		return checksum.Adler32Init
	}
	return 0
}

func (c *Compressor) updateCheck(p []byte) {
	switch c.wrap {
	case WrapZlib:
		c.check = checksum.Adler32(c.check, p)
	case WrapGzip:
		c.check = checksum.CRC32(c.check, p)
	}
}

// TotalIn is the number of uncompressed bytes consumed so far.
func (c *Compressor) TotalIn() int64 { return c.totalIn }

// TotalOut is the number of compressed bytes produced so far.
func (c *Compressor) TotalOut() int64 { return c.totalOut }

// Check returns the running Adler-32 (zlib) or CRC-32 (gzip) of the input.
func (c *Compressor) Check() uint32 { return c.check }

// Finished reports whether the trailer was written and delivered.
func (c *Compressor) Finished() bool {
	return c.status == statusFinish && c.trailerDone && c.bw.pendingLen() == 0
}

func (c *Compressor) outFull() bool {
	return c.outPos == len(c.out)
}

// flushPending hands as many buffered bytes as possible to the caller.
func (c *Compressor) flushPending() {
	c.bw.Sync()
	if c.bw.pendingLen() == 0 || c.out == nil {
		return
	}
	n := c.bw.drain(c.out[c.outPos:])
	c.outPos += n
	c.totalOut += int64(n)
}

// Deflate compresses as much of in as possible into out. It returns the
// number of bytes consumed and produced; nil means progress was made and
// the call can be repeated, io.EOF that the stream is complete.
//
// With NoFlush the compressor decides how much to buffer. The other flush
// values force the buffered data out, see Flush. Once Finish has been
// requested it must be repeated until io.EOF.
func (c *Compressor) Deflate(in, out []byte, flush Flush) (nIn, nOut int, err error) {
	if flush < NoFlush || flush > Block {
		return 0, 0, ErrStream
	}
	if c.status == statusFinish && flush != Finish {
		return 0, 0, ErrStream
	}
	if len(out) == 0 {
		return 0, 0, ErrBuffer
	}
	c.in, c.out, c.outPos = in, out, 0
	defer func() {
		nIn = len(in) - len(c.in)
		nOut = c.outPos
		c.in, c.out = nil, nil
	}()
	return 0, 0, c.deflate(flush)
}

func (c *Compressor) deflate(flush Flush) error {
	oldFlush := c.lastFlush
	c.lastFlush = int(flush)

	if c.bw.pendingLen() != 0 {
		c.flushPending()
		if c.outFull() {
			// a repeated flush must not be taken as a no-op
			c.lastFlush = flushPending
			return nil
		}
	} else if len(c.in) == 0 && flush.rank() <= rankOf(oldFlush) && flush != Finish {
		return ErrBuffer
	}

	if c.status == statusFinish && len(c.in) != 0 {
		return ErrBuffer
	}

	if c.status == statusInit {
		c.writeHeader()
		c.status = statusBusy
		c.flushPending()
		if c.bw.pendingLen() != 0 {
			c.lastFlush = flushPending
			return nil
		}
	}

	if len(c.in) != 0 || c.lookahead != 0 || len(c.stored) != 0 ||
		(flush != NoFlush && c.status != statusFinish) {
		bstate := c.compress(flush)
		if bstate == finishStarted || bstate == finishDone {
			c.status = statusFinish
		}
		if bstate == needMore || bstate == finishStarted {
			if c.outFull() {
				c.lastFlush = flushPending
			}
			return nil
		}
		if bstate == blockDone {
			switch flush {
			case PartialFlush:
				c.bw.alignWithStaticBlock()
			case Block:
			default:
				c.bw.writeEmptyBlock()
				if flush == FullFlush {
					c.clearHash()
					if c.lookahead == 0 {
						c.strStart = 0
						c.blockStart = 0
						c.insert = 0
					}
				}
			}
			c.flushPending()
			if c.outFull() {
				c.lastFlush = flushPending
				return nil
			}
		}
	}

	if flush != Finish {
		return nil
	}
	if c.trailerDone {
		if c.bw.pendingLen() != 0 {
			return nil
		}
		return io.EOF
	}
	c.writeTrailer()
	c.trailerDone = true
	c.flushPending()
	if c.bw.pendingLen() != 0 {
		return nil
	}
	c.log.Debugf("stream finished: %d bytes in, %d bytes out, %d blocks", c.totalIn, c.totalOut, c.nBlocks)
	return io.EOF
}

func rankOf(f int) int {
	if f < 0 {
		return f * 2
	}
	return Flush(f).rank()
}

func (c *Compressor) writeHeader() {
	switch c.wrap {
	case WrapZlib:
		fastest := c.strategy >= HuffmanOnly
		cmf, flg := container.ZlibHeader(c.wBits, container.LevelFlags(c.level, fastest), c.hasDict)
		c.bw.pending = append(c.bw.pending, cmf, flg)
		if c.hasDict {
			c.bw.pending = container.AppendAdler(c.bw.pending, c.dictID)
		}
		c.check = checksum.Adler32Init
	case WrapGzip:
		xfl := container.ExtraFlags(c.level, c.strategy >= HuffmanOnly)
		c.bw.pending = container.AppendHeader(c.bw.pending, c.header, xfl)
		c.check = 0
	}
}

func (c *Compressor) writeTrailer() {
	switch c.wrap {
	case WrapZlib:
		c.bw.pending = container.AppendAdler(c.bw.pending, c.check)
	case WrapGzip:
		c.bw.pending = container.AppendGzipTrailer(c.bw.pending, c.check, uint32(c.totalIn))
	}
}

// SetHeader replaces the gzip header. It must be called before the first
// call to Deflate.
func (c *Compressor) SetHeader(h *container.Header) error {
	if c.wrap != WrapGzip || c.status != statusInit {
		return ErrStream
	}
	if h != nil {
		if err := h.Validate(); err != nil {
			return err
		}
	}
	c.header = h
	return nil
}

// SetDictionary primes the window with dict. For zlib streams it must be
// called before the first call to Deflate and the header announces the
// dictionary's Adler-32. Raw streams accept a dictionary whenever no input
// is pending. gzip has no way to announce one.
func (c *Compressor) SetDictionary(dict []byte) error {
	if c.wrap == WrapGzip || (c.wrap == WrapZlib && c.status != statusInit) ||
		c.lookahead != 0 || len(c.stored) != 0 {
		return ErrStream
	}
	if c.wrap == WrapZlib {
		c.dictID = checksum.Adler32(checksum.Adler32Init, dict)
		c.hasDict = true
	}

	if len(dict) >= c.wSize {
		if c.wrap == WrapRaw {
			c.clearHash()
			c.strStart = 0
			c.blockStart = 0
			c.insert = 0
		}
		dict = dict[len(dict)-c.wSize:]
	}

	saved := c.in
	c.in = dict
	c.noCheck = true
	c.fillWindow()
	for c.lookahead >= minMatchLength {
		str := c.strStart
		for n := c.lookahead - (minMatchLength - 1); n > 0; n-- {
			c.insH = c.updateHash(c.insH, c.window[str+minMatchLength-1])
			c.prev[str&c.wMask] = c.head[c.insH]
			c.head[c.insH] = uint16(str)
			str++
		}
		c.strStart = str
		c.lookahead = minMatchLength - 1
		c.fillWindow()
	}
	c.strStart += c.lookahead
	c.blockStart = c.strStart
	c.insert = c.lookahead
	c.lookahead = 0
	c.matchLength = minMatchLength - 1
	c.prevLength = minMatchLength - 1
	c.matchAvailable = false
	c.in = saved
	c.noCheck = false
	c.hashStale = false
	return nil
}

// ParamsNeedBlock reports whether switching to level and strategy has to
// complete the current block first (a Deflate call with Block).
func (c *Compressor) ParamsNeedBlock(level int, strategy Strategy) bool {
	if level == DefaultCompression {
		level = defaultLevel
	}
	if level < 0 || level > BestCompression {
		return false
	}
	if c.lastFlush == flushNone {
		return false
	}
	return strategy != c.strategy || configTable[level].fn != c.cfg.fn ||
		len(c.stored) != 0
}

// SetParams changes the level and strategy. Data already buffered is
// compressed with the new parameters unless ParamsNeedBlock was honoured.
func (c *Compressor) SetParams(level int, strategy Strategy) error {
	if level == DefaultCompression {
		level = defaultLevel
	}
	if level < 0 || level > BestCompression || strategy < DefaultStrategy || strategy > Fixed {
		return ErrStream
	}
	if c.level != level {
		if c.level == 0 && c.hashStale {
			c.rehash()
		}
		c.level = level
		c.cfg = configTable[level]
	}
	c.strategy = strategy
	return nil
}

// rehash rebuilds the hash chains over the history copied by stored blocks.
func (c *Compressor) rehash() {
	c.clearHash()
	start := c.strStart - c.wSize
	if start < 0 {
		start = 0
	}
	if c.strStart-start >= minMatchLength {
		c.insH = uint32(c.window[start])
		c.insH = c.updateHash(c.insH, c.window[start+1])
		for str := start; str+minMatchLength <= c.strStart; str++ {
			c.insertString(str)
		}
	}
	c.insert = c.strStart
	if c.insert > minMatchLength-1 {
		c.insert = minMatchLength - 1
	}
	c.hashStale = false
}

// Bound returns an upper bound of the compressed size of n bytes, framing
// included.
func (c *Compressor) Bound(n int64) int64 {
	fixedLen := n + (n >> 3) + (n >> 8) + (n >> 9) + 4
	storeLen := n + (n >> 5) + (n >> 7) + (n >> 11) + 7

	var wrapLen int64
	switch c.wrap {
	case WrapZlib:
		wrapLen = 6
		if c.hasDict {
			wrapLen += 4
		}
	case WrapGzip:
		wrapLen = 18
		if h := c.header; h != nil {
			if h.Extra != nil {
				wrapLen += 2 + int64(len(h.Extra))
			}
			if h.Name != "" {
				wrapLen += int64(len(h.Name)) + 1
			}
			if h.Comment != "" {
				wrapLen += int64(len(h.Comment)) + 1
			}
			if h.HCRC {
				wrapLen += 2
			}
		}
	}

	if c.wBits != MaxWindowBits || c.hashBits != 8+7 {
		if c.wBits <= int(c.hashBits) && c.level != 0 {
			return fixedLen + wrapLen
		}
		return storeLen + wrapLen
	}
	return n + (n >> 12) + (n >> 14) + (n >> 25) + 13 - 6 + wrapLen
}

// Level returns the current compression level.
func (c *Compressor) Level() int { return c.level }

// Strategy returns the current strategy.
func (c *Compressor) Strategy() Strategy { return c.strategy }

// WindowBits returns the effective window size as a power of two.
func (c *Compressor) WindowBits() int { return c.wBits }
