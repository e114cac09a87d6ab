// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import "github.com/intel/fastzlib/compress/checksum"

// updateWindow keeps the last 2^wbits bytes of output, which may be spread
// over several calls, for matches that reach back past the current output
// buffer. The window is circular: wnext is where the next byte goes and
// whave how many bytes are valid.
func (f *Inflater) updateWindow(p []byte) {
	if f.window == nil || len(f.window) != 1<<f.wbits {
		f.window = make([]byte, 1<<f.wbits)
	}
	if f.wsize == 0 {
		f.wsize = 1 << f.wbits
		f.wnext = 0
		f.whave = 0
	}

	if len(p) >= f.wsize {
		copy(f.window, p[len(p)-f.wsize:])
		f.wnext = 0
		f.whave = f.wsize
		return
	}
	n := copy(f.window[f.wnext:], p)
	if n < len(p) {
		f.wnext = copy(f.window, p[n:])
		f.whave = f.wsize
		return
	}
	f.wnext += n
	if f.wnext == f.wsize {
		f.wnext = 0
	}
	if f.whave < f.wsize {
		f.whave += n
	}
}

// windowCopy fills dst with the window bytes starting dist bytes before its
// end. It copies at most dist bytes and returns the count.
func (f *Inflater) windowCopy(dst []byte, dist int) int {
	if len(dst) > dist {
		dst = dst[:dist]
	}
	p := f.wnext - dist
	if p < 0 {
		p += f.wsize
	}
	n := copy(dst, f.window[p:f.wsize])
	if n < len(dst) {
		n += copy(dst[n:], f.window)
	}
	return n
}

// SetDictionary supplies a preset dictionary. A zlib stream accepts it only
// after Inflate returned ErrNeedDict, and only when its Adler-32 matches
// DictID. A raw stream accepts it at any time.
func (f *Inflater) SetDictionary(dict []byte) error {
	if f.wrap != 0 && f.mode != modeDict {
		return ErrStream
	}
	if f.mode == modeDict && checksum.Adler32(checksum.Adler32Init, dict) != f.check {
		return ErrIncorrectDictionary
	}
	f.updateWindow(dict)
	f.haveDict = true
	return nil
}

// syncSearch looks for the 00 00 ff ff marker that ends the empty stored
// block of a full flush. got counts the marker bytes matched so far.
func syncSearch(got *int, buf []byte) int {
	g := *got
	next := 0
	for next < len(buf) && g < 4 {
		want := byte(0)
		if g >= 2 {
			want = 0xff
		}
		switch {
		case buf[next] == want:
			g++
		case buf[next] != 0:
			g = 0
		default:
			g = 4 - g
		}
		next++
	}
	*got = g
	return next
}

// Sync skips input up to and including the next full flush point. It
// returns how much of in was consumed; ErrData means no flush point was
// found yet and more input should be offered. After a successful Sync the
// stream continues with the next block; the trailer check is disabled since
// earlier output was lost.
func (f *Inflater) Sync(in []byte) (nIn int, err error) {
	if len(in) == 0 && f.bits < 8 {
		return 0, ErrBuffer
	}
	if f.mode != modeSync {
		f.mode = modeSync
		f.hold >>= f.bits & 7
		f.bits -= f.bits & 7
		var buf [8]byte
		n := 0
		for f.bits >= 8 {
			buf[n] = byte(f.hold)
			n++
			f.hold >>= 8
			f.bits -= 8
		}
		f.have = 0
		syncSearch(&f.have, buf[:n])
	}

	nIn = syncSearch(&f.have, in)
	f.totalIn += int64(nIn)
	if f.have != 4 {
		return nIn, ErrNoFlushPoint
	}

	if f.flags == -1 {
		f.wrap = 0
	} else {
		f.wrap &^= wrapCheck
	}
	flags, totalIn, totalOut := f.flags, f.totalIn, f.totalOut
	f.reset()
	f.flags, f.totalIn, f.totalOut = flags, totalIn, totalOut
	f.mode = modeType
	return nIn, nil
}
