// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"bytes"
	"errors"
	"time"

	"github.com/intel/fastzlib/compress/checksum"
	"github.com/intel/fastzlib/compress/internal/container"
)

const (
	gzFlagText    = container.FlagText << 8
	gzFlagHdrCRC  = container.FlagHdrCRC << 8
	gzFlagExtra   = container.FlagExtra << 8
	gzFlagName    = container.FlagName << 8
	gzFlagComment = container.FlagComment << 8
	gzReserved    = container.FlagReserved << 8
)

// Order of the code length code lengths in a dynamic block header.
var codeLengthOrder = [19]uint16{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

func containerError(err error) *Error {
	switch {
	case errors.Is(err, container.ErrHeaderCheck):
		return ErrHeaderCheck
	case errors.Is(err, container.ErrUnknownMethod):
		return ErrUnknownMethod
	case errors.Is(err, container.ErrWindowSize):
		return ErrWindowSize
	}
	return kindError(DataError, err.Error())
}

// crcHold adds the low n bytes of the bit buffer to the header CRC when
// the member carries one.
func (f *Inflater) crcHold(n int) {
	if f.flags&gzFlagHdrCRC == 0 || f.wrap&wrapCheck == 0 {
		return
	}
	var b [4]byte
	for i := 0; i < n; i++ {
		b[i] = byte(f.hold >> (8 * i))
	}
	f.check = checksum.CRC32(f.check, b[:n])
}

func (f *Inflater) crcBytes(p []byte) {
	if f.flags&gzFlagHdrCRC != 0 && f.wrap&wrapCheck != 0 {
		f.check = checksum.CRC32(f.check, p)
	}
}

// zeroTerminated collects a gzip name or comment. It returns the field and
// true once the terminating zero was consumed.
func (f *Inflater) zeroTerminated() (string, bool) {
	avail := f.in[f.inPos:]
	i := bytes.IndexByte(avail, 0)
	if i < 0 {
		f.field = append(f.field, avail...)
		f.crcBytes(avail)
		f.inPos += len(avail)
		return "", false
	}
	f.field = append(f.field, avail[:i]...)
	f.crcBytes(avail[:i+1])
	f.inPos += i + 1
	s := container.Latin1String(f.field)
	f.field = f.field[:0]
	return s, true
}

// streamHeader reads the zlib or gzip header up to the first block. It
// returns false when more input is needed.
func (f *Inflater) streamHeader() bool {
	for {
		switch f.mode {
		case modeHead:
			if f.wrap == 0 {
				f.mode = modeTypeDo
				return true
			}
			if !f.needBits(16) {
				return false
			}
			if f.wrap&wrapGzip != 0 && f.hold == container.GzipID2<<8|container.GzipID1 {
				f.check = checksum.CRC32(0, []byte{container.GzipID1, container.GzipID2})
				f.head = &Header{}
				f.initBits()
				f.mode = modeFlags
				continue
			}
			if f.wrap&wrapZlib == 0 {
				f.bad(ErrHeaderCheck)
				return true
			}
			_, dict, err := container.ParseZlibHeader(byte(f.hold), byte(f.hold>>8), int(f.wbits))
			if err != nil {
				f.bad(containerError(err))
				return true
			}
			f.flags = 0
			f.check = checksum.Adler32Init
			f.initBits()
			if dict {
				f.mode = modeDictID
				continue
			}
			f.mode = modeType
			return true
		case modeFlags:
			if !f.needBits(16) {
				return false
			}
			f.flags = int(f.hold & 0xffff)
			if f.flags&0xff != container.MethodDeflate {
				f.bad(ErrUnknownMethod)
				return true
			}
			if f.flags&gzReserved != 0 {
				f.bad(ErrHeaderFlags)
				return true
			}
			f.head.Text = f.flags&gzFlagText != 0
			f.crcHold(2)
			f.initBits()
			f.mode = modeTime
		case modeTime:
			if !f.needBits(32) {
				return false
			}
			if mtime := uint32(f.hold); mtime != 0 {
				f.head.ModTime = time.Unix(int64(mtime), 0)
			}
			f.crcHold(4)
			f.initBits()
			f.mode = modeOS
		case modeOS:
			if !f.needBits(16) {
				return false
			}
			f.head.XFlags = byte(f.hold)
			f.head.OS = byte(f.hold >> 8)
			f.crcHold(2)
			f.initBits()
			f.mode = modeExLen
		case modeExLen:
			if f.flags&gzFlagExtra != 0 {
				if !f.needBits(16) {
					return false
				}
				f.length = int(f.hold & 0xffff)
				f.head.Extra = make([]byte, 0, f.length)
				f.crcHold(2)
				f.initBits()
			}
			f.mode = modeExtra
		case modeExtra:
			if f.flags&gzFlagExtra != 0 {
				n := f.length
				if avail := len(f.in) - f.inPos; n > avail {
					n = avail
				}
				if n > 0 {
					p := f.in[f.inPos : f.inPos+n]
					f.head.Extra = append(f.head.Extra, p...)
					f.crcBytes(p)
					f.inPos += n
					f.length -= n
				}
				if f.length > 0 {
					return false
				}
			}
			f.length = 0
			f.mode = modeName
		case modeName:
			if f.flags&gzFlagName != 0 {
				name, ok := f.zeroTerminated()
				if !ok {
					return false
				}
				f.head.Name = name
			}
			f.mode = modeComment
		case modeComment:
			if f.flags&gzFlagComment != 0 {
				comment, ok := f.zeroTerminated()
				if !ok {
					return false
				}
				f.head.Comment = comment
			}
			f.mode = modeHCRC
		case modeHCRC:
			if f.flags&gzFlagHdrCRC != 0 {
				if !f.needBits(16) {
					return false
				}
				if f.wrap&wrapCheck != 0 && uint32(f.hold) != f.check&0xffff {
					f.bad(ErrHeaderCRC)
					return true
				}
				f.initBits()
			}
			f.head.HCRC = f.flags&gzFlagHdrCRC != 0
			f.head.Done = true
			if f.debug {
				f.log.Debugf("gzip header: name %q, os %d, mtime %v", f.head.Name, f.head.OS, f.head.ModTime)
			}
			f.check = 0
			f.mode = modeType
			return true
		case modeDictID:
			if !f.needBits(32) {
				return false
			}
			f.dictID = swap32(uint32(f.hold))
			f.check = f.dictID
			f.initBits()
			f.mode = modeDict
			return true
		default:
			return true
		}
	}
}

// dynamicHeader reads the code lengths of a dynamic block and builds its
// decoding tables. It returns false when more input is needed.
func (f *Inflater) dynamicHeader() bool {
	for {
		switch f.mode {
		case modeTable:
			if !f.needBits(14) {
				return false
			}
			f.nlen = int(f.nextBits(5)) + 257
			f.ndist = int(f.nextBits(5)) + 1
			f.ncode = int(f.nextBits(4)) + 4
			if f.nlen > 286 || f.ndist > 30 {
				f.bad(ErrTooManySymbols)
				return true
			}
			f.have = 0
			f.mode = modeLenLens
		case modeLenLens:
			for f.have < f.ncode {
				if !f.needBits(3) {
					return false
				}
				f.lens[codeLengthOrder[f.have]] = uint16(f.nextBits(3))
				f.have++
			}
			for f.have < len(codeLengthOrder) {
				f.lens[codeLengthOrder[f.have]] = 0
				f.have++
			}
			used, bits, err := buildTable(codesTable, f.lens[:19], f.codes[:], codeRootBits, f.work[:])
			if err != nil {
				f.bad(ErrInvalidCodeLengths)
				return true
			}
			f.lenCode, f.lenBits = f.codes[:used], bits
			f.have = 0
			f.mode = modeCodeLens
		case modeCodeLens:
			for f.have < f.nlen+f.ndist {
				var here code
				for {
					here = f.lenCode[f.peekBits(f.lenBits)]
					if uint(here.bits) <= f.bits {
						break
					}
					if !f.pullByte() {
						return false
					}
				}
				if here.val < 16 {
					f.dropBits(uint(here.bits))
					f.lens[f.have] = here.val
					f.have++
					continue
				}
				var (
					l uint16
					n int
				)
				switch here.val {
				case 16:
					if !f.needBits(uint(here.bits) + 2) {
						return false
					}
					f.dropBits(uint(here.bits))
					if f.have == 0 {
						f.bad(ErrInvalidRepeat)
						return true
					}
					l = f.lens[f.have-1]
					n = 3 + int(f.nextBits(2))
				case 17:
					if !f.needBits(uint(here.bits) + 3) {
						return false
					}
					f.dropBits(uint(here.bits))
					n = 3 + int(f.nextBits(3))
				default:
					if !f.needBits(uint(here.bits) + 7) {
						return false
					}
					f.dropBits(uint(here.bits))
					n = 11 + int(f.nextBits(7))
				}
				if f.have+n > f.nlen+f.ndist {
					f.bad(ErrInvalidRepeat)
					return true
				}
				for ; n > 0; n-- {
					f.lens[f.have] = l
					f.have++
				}
			}

			if f.lens[256] == 0 {
				f.bad(ErrMissingEndOfBlock)
				return true
			}
			used, bits, err := buildTable(lensTable, f.lens[:f.nlen], f.codes[:], lenRootBits, f.work[:])
			if err != nil {
				f.bad(ErrInvalidLitLenSet)
				return true
			}
			f.lenCode, f.lenBits = f.codes[:used], bits
			dused, dbits, err := buildTable(distsTable, f.lens[f.nlen:f.nlen+f.ndist], f.codes[used:], distRootBits, f.work[:])
			if err != nil {
				f.bad(ErrInvalidDistSet)
				return true
			}
			f.distCode, f.distBits = f.codes[used:used+dused], dbits
			if f.debug {
				f.log.Debugf("dynamic block: %d literal/length codes, %d distance codes, %d code length codes", f.nlen, f.ndist, f.ncode)
			}
			f.mode = modeLenStart
			return true
		default:
			return true
		}
	}
}
