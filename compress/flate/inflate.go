// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/intel/fastzlib/compress/checksum"
)

// Mode is the position of the decompressor in the stream.
type Mode int

const (
	modeHead     Mode = iota // zlib or gzip header
	modeFlags                // gzip FLG and CM
	modeTime                 // gzip MTIME
	modeOS                   // gzip XFL and OS
	modeExLen                // gzip XLEN
	modeExtra                // gzip extra field
	modeName                 // gzip file name
	modeComment              // gzip comment
	modeHCRC                 // gzip header CRC16
	modeDictID               // zlib DICTID
	modeDict                 // waiting for a preset dictionary
	modeType                 // block header, may stop here with Block
	modeTypeDo               // block header
	modeStored               // stored block LEN and NLEN
	modeCopyStart            // stored block data follows
	modeCopy                 // stored block data
	modeTable                // dynamic block HLIT, HDIST and HCLEN
	modeLenLens              // code length code lengths
	modeCodeLens             // literal/length and distance code lengths
	modeLenStart             // codes ready
	modeLen                  // literal/length code
	modeLenExt               // length extra bits
	modeDist                 // distance code
	modeDistExt              // distance extra bits
	modeMatch                // copying a match
	modeLit                  // writing a literal
	modeCheck                // Adler-32 or CRC-32 trailer
	modeLength               // gzip ISIZE
	modeDone                 // stream complete
	modeBad                  // data error, stuck here
	modeMem                  // allocation failure
	modeSync                 // searching for a flush point
)

var modeNames = [...]string{
	"HEAD", "FLAGS", "TIME", "OS", "EXLEN", "EXTRA", "NAME", "COMMENT", "HCRC",
	"DICTID", "DICT", "TYPE", "TYPEDO", "STORED", "COPY_", "COPY", "TABLE",
	"LENLENS", "CODELENS", "LEN_", "LEN", "LENEXT", "DIST", "DISTEXT", "MATCH",
	"LIT", "CHECK", "LENGTH", "DONE", "BAD", "MEM", "SYNC",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// wrap bits
const (
	wrapZlib  = 1
	wrapGzip  = 2
	wrapCheck = 4
)

// Inflater is a resumable DEFLATE decompressor. It accepts input and output
// in pieces of any size, down to single bytes, and keeps whatever state is
// needed to continue at the exact bit where the previous call stopped.
type Inflater struct {
	opts  options
	log   *logrus.Entry
	debug bool

	mode     Mode
	last     bool
	wrap     int
	haveDict bool
	flags    int // gzip CM | FLG<<8, 0 for zlib, -1 before the header
	check    uint32
	dictID   uint32
	total    uint32 // output of this member modulo 2^32
	head     *Header
	field    []byte // gzip name or comment being collected

	wbits  uint
	wsize  int
	whave  int
	wnext  int
	window []byte

	hold uint64
	bits uint

	length int
	offset int
	extra  uint

	lenCode  []code
	distCode []code
	lenBits  uint
	distBits uint
	ncode    int
	nlen     int
	ndist    int
	have     int
	lens     [320]uint16
	work     [288]uint16
	codes    [enough]code

	in        []byte
	inPos     int
	out       []byte
	outPos    int
	checkFrom int

	totalIn  int64
	totalOut int64
	fail     *Error

	// push API
	sink
	chunk []byte
	err   error
	done  bool
}

// NewInflater returns a decompressor for the configured format. Only the
// window bits, format, dictionary, chunk size and logger options apply.
func NewInflater(opts ...Option) (*Inflater, error) {
	o := buildOptions(opts)
	if err := o.validate(false); err != nil {
		return nil, err
	}
	f := &Inflater{
		opts:  o,
		log:   o.logger,
		chunk: make([]byte, o.chunkSize),
	}
	f.debug = f.log.Logger.IsLevelEnabled(logrus.DebugLevel)
	if err := f.Reset(); err != nil {
		return nil, err
	}
	return f, nil
}

// Reset starts a new stream with the same options, keeping the allocated
// window.
func (f *Inflater) Reset() error {
	switch f.opts.format {
	case FormatRaw:
		f.wrap = 0
	case FormatGzip:
		f.wrap = wrapGzip | wrapCheck
	case FormatAuto:
		f.wrap = wrapZlib | wrapGzip | wrapCheck
	default:
		f.wrap = wrapZlib | wrapCheck
	}
	f.wbits = uint(f.opts.windowBits)
	if f.wbits == MinWindowBits && f.wrap&wrapZlib != 0 {
		// the compressor writes a 256 byte window as 512
		f.wbits++
	}
	f.reset()
	f.result = nil
	f.err = nil
	f.done = false
	if f.wrap == 0 && f.opts.dict != nil {
		return f.SetDictionary(f.opts.dict)
	}
	return nil
}

func (f *Inflater) reset() {
	f.wsize, f.whave, f.wnext = 0, 0, 0
	f.totalIn, f.totalOut, f.total = 0, 0, 0
	f.check = 0
	if f.wrap != 0 {
		f.check = uint32(f.wrap & 1)
	}
	f.mode = modeHead
	f.last = false
	f.haveDict = false
	f.flags = -1
	f.dictID = 0
	f.head = nil
	f.field = f.field[:0]
	f.hold, f.bits = 0, 0
	f.lenCode, f.distCode = nil, nil
	f.fail = nil
}

func (f *Inflater) TotalIn() int64 { return f.totalIn }

func (f *Inflater) TotalOut() int64 { return f.totalOut }

// Mode returns the current position in the stream, for diagnostics.
func (f *Inflater) Mode() Mode { return f.mode }

// DictID returns the Adler-32 of the dictionary a zlib stream asked for.
func (f *Inflater) DictID() uint32 { return f.dictID }

// Header returns the gzip header of the current member, nil for other
// formats. Header.Done reports whether it was read completely.
func (f *Inflater) Header() *Header { return f.head }

func (f *Inflater) pullByte() bool {
	if f.inPos == len(f.in) {
		return false
	}
	f.hold |= uint64(f.in[f.inPos]) << f.bits
	f.inPos++
	f.bits += 8
	return true
}

// needBits pulls whole bytes until n bits are buffered, never more.
func (f *Inflater) needBits(n uint) bool {
	for f.bits < n {
		if !f.pullByte() {
			return false
		}
	}
	return true
}

func (f *Inflater) peekBits(n uint) uint32 {
	return uint32(f.hold & (1<<n - 1))
}

func (f *Inflater) dropBits(n uint) {
	f.hold >>= n
	f.bits -= n
}

func (f *Inflater) nextBits(n uint) uint32 {
	v := f.peekBits(n)
	f.dropBits(n)
	return v
}

func (f *Inflater) initBits() {
	f.hold, f.bits = 0, 0
}

// byteBits drops to the next byte boundary.
func (f *Inflater) byteBits() {
	f.dropBits(f.bits & 7)
}

func (f *Inflater) bad(e *Error) {
	f.mode = modeBad
	f.fail = &Error{Kind: e.Kind, Msg: e.Msg, Offset: f.totalIn + int64(f.inPos)}
	if f.debug {
		f.log.Debugf("%v", f.fail)
	}
}

func (f *Inflater) updateCheck(p []byte) uint32 {
	if f.flags > 0 {
		return checksum.CRC32(f.check, p)
	}
	return checksum.Adler32(f.check, p)
}

// settle accounts for the output written since the last call.
func (f *Inflater) settle() {
	n := f.outPos - f.checkFrom
	if n == 0 {
		return
	}
	if f.wrap&wrapCheck != 0 {
		f.check = f.updateCheck(f.out[f.checkFrom:f.outPos])
	}
	f.totalOut += int64(n)
	f.total += uint32(n)
	f.checkFrom = f.outPos
}

// decode reads one symbol with a two level table.
func (f *Inflater) decode(table []code, bits uint) (code, bool) {
	var here code
	for {
		here = table[f.peekBits(bits)]
		if uint(here.bits) <= f.bits {
			break
		}
		if !f.pullByte() {
			return here, false
		}
	}
	if here.op != 0 && here.op&0xf0 == 0 {
		link := here
		for {
			here = table[uint32(link.val)+f.peekBits(uint(link.bits)+uint(link.op))>>link.bits]
			if uint(link.bits)+uint(here.bits) <= f.bits {
				break
			}
			if !f.pullByte() {
				return here, false
			}
		}
		f.dropBits(uint(link.bits))
	}
	f.dropBits(uint(here.bits))
	return here, true
}

// Inflate decompresses from in to out until one of them is exhausted or the
// stream ends. It returns how much of each was used.
//
// err is nil when progress was made, io.EOF once the stream is complete
// (input after the trailer is not consumed), ErrNeedDict when a zlib stream
// asks for a dictionary that was not configured and ErrBuffer when no
// progress was possible. Data errors are sticky.
//
// Finish only changes the error reported while the stream is incomplete.
// Block returns at the next block boundary.
func (f *Inflater) Inflate(in, out []byte, flush Flush) (nIn, nOut int, err error) {
	if flush < NoFlush || flush > Block {
		return 0, 0, ErrStream
	}
	switch f.mode {
	case modeBad:
		return 0, 0, f.fail
	case modeSync:
		return 0, 0, ErrStream
	case modeType:
		f.mode = modeTypeDo
	}
	f.in, f.inPos = in, 0
	f.out, f.outPos, f.checkFrom = out, 0, 0

	err = f.run(flush)

	f.settle()
	if f.wsize != 0 || (f.outPos != 0 && f.mode < modeBad && (f.mode < modeCheck || flush != Finish)) {
		f.updateWindow(f.out[:f.outPos])
	}
	nIn, nOut = f.inPos, f.outPos
	f.totalIn += int64(nIn)
	f.in, f.out = nil, nil
	if err == nil && ((nIn == 0 && nOut == 0) || flush == Finish) {
		err = ErrBuffer
	}
	return nIn, nOut, err
}

func (f *Inflater) run(flush Flush) error {
	for {
		switch f.mode {
		case modeHead, modeFlags, modeTime, modeOS, modeExLen, modeExtra,
			modeName, modeComment, modeHCRC, modeDictID:
			if !f.streamHeader() {
				return nil
			}
		case modeDict:
			if !f.haveDict {
				if f.opts.dict == nil {
					return ErrNeedDict
				}
				if err := f.SetDictionary(f.opts.dict); err != nil {
					f.bad(ErrIncorrectDictionary)
					continue
				}
			}
			f.check = checksum.Adler32Init
			f.mode = modeType
		case modeType:
			if flush == Block {
				return nil
			}
			f.mode = modeTypeDo
		case modeTypeDo:
			if f.last {
				f.byteBits()
				f.mode = modeCheck
				continue
			}
			if !f.needBits(3) {
				return nil
			}
			f.last = f.nextBits(1) == 1
			switch f.nextBits(2) {
			case 0:
				f.mode = modeStored
			case 1:
				f.lenCode, f.lenBits = fixedLen, fixedLenBits
				f.distCode, f.distBits = fixedDist, fixedDistBits
				f.mode = modeLenStart
			case 2:
				f.mode = modeTable
			default:
				f.bad(ErrInvalidBlockType)
			}
		case modeStored:
			f.byteBits()
			if !f.needBits(32) {
				return nil
			}
			if f.hold&0xffff != (f.hold>>16)^0xffff {
				f.bad(ErrInvalidStoredLengths)
				continue
			}
			f.length = int(f.hold & 0xffff)
			f.initBits()
			f.mode = modeCopyStart
		case modeCopyStart:
			f.mode = modeCopy
		case modeCopy:
			if n := f.length; n > 0 {
				if avail := len(f.in) - f.inPos; n > avail {
					n = avail
				}
				if left := len(f.out) - f.outPos; n > left {
					n = left
				}
				if n == 0 {
					return nil
				}
				copy(f.out[f.outPos:], f.in[f.inPos:f.inPos+n])
				f.inPos += n
				f.outPos += n
				f.length -= n
				continue
			}
			f.mode = modeType
		case modeTable, modeLenLens, modeCodeLens:
			if !f.dynamicHeader() {
				return nil
			}
		case modeLenStart:
			f.mode = modeLen
		case modeLen:
			if len(f.in)-f.inPos >= 6 && len(f.out)-f.outPos >= 258 {
				f.inflateFast()
				continue
			}
			here, ok := f.decode(f.lenCode, f.lenBits)
			if !ok {
				return nil
			}
			f.length = int(here.val)
			switch {
			case here.op == opLiteral:
				f.mode = modeLit
			case here.op&opEndBlock != 0:
				f.mode = modeType
			case here.op&opInvalid != 0:
				f.bad(ErrInvalidLitLenCode)
			default:
				f.extra = uint(here.op & 15)
				f.mode = modeLenExt
			}
		case modeLenExt:
			if f.extra != 0 {
				if !f.needBits(f.extra) {
					return nil
				}
				f.length += int(f.nextBits(f.extra))
			}
			f.mode = modeDist
		case modeDist:
			here, ok := f.decode(f.distCode, f.distBits)
			if !ok {
				return nil
			}
			if here.op&opInvalid != 0 {
				f.bad(ErrInvalidDistCode)
				continue
			}
			f.offset = int(here.val)
			f.extra = uint(here.op & 15)
			f.mode = modeDistExt
		case modeDistExt:
			if f.extra != 0 {
				if !f.needBits(f.extra) {
					return nil
				}
				f.offset += int(f.nextBits(f.extra))
			}
			f.mode = modeMatch
		case modeMatch:
			left := len(f.out) - f.outPos
			if left == 0 {
				return nil
			}
			n := f.length
			if n > left {
				n = left
			}
			if f.offset > f.outPos {
				if f.offset-f.outPos > f.whave {
					f.bad(ErrInvalidDistance)
					continue
				}
				n = f.windowCopy(f.out[f.outPos:f.outPos+n], f.offset-f.outPos)
			} else {
				byteCopy(f.out, f.outPos, f.offset, n)
			}
			f.outPos += n
			f.length -= n
			if f.length == 0 {
				f.mode = modeLen
			}
		case modeLit:
			if f.outPos == len(f.out) {
				return nil
			}
			f.out[f.outPos] = byte(f.length)
			f.outPos++
			f.mode = modeLen
		case modeCheck:
			if f.wrap != 0 {
				if !f.needBits(32) {
					return nil
				}
				f.settle()
				want := uint32(f.hold)
				if f.flags == 0 {
					want = swap32(want)
				}
				if f.wrap&wrapCheck != 0 && want != f.check {
					f.bad(ErrDataCheck)
					continue
				}
				f.initBits()
			}
			f.mode = modeLength
		case modeLength:
			if f.wrap != 0 && f.flags > 0 {
				if !f.needBits(32) {
					return nil
				}
				if f.wrap&wrapCheck != 0 && uint32(f.hold) != f.total {
					f.bad(ErrLengthCheck)
					continue
				}
				f.initBits()
			}
			f.mode = modeDone
			if f.debug {
				f.log.Debugf("stream end: %d bytes in, %d bytes out", f.totalIn+int64(f.inPos), f.totalOut+int64(f.outPos-f.checkFrom))
			}
		case modeDone:
			return io.EOF
		case modeBad:
			return f.fail
		case modeMem:
			return ErrMemory
		default:
			return ErrStream
		}
	}
}

func swap32(v uint32) uint32 {
	return v>>24 | v>>8&0xff00 | v<<8&0xff0000 | v<<24
}
