// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"bufio"
	"errors"
	"io"
)

// Resetter resets a ReadCloser returned by NewReader to read a new stream.
// A non-nil dict replaces the configured dictionary.
type Resetter interface {
	Reset(r io.Reader, dict []byte) error
}

const readerBufferSize = 32 << 10

// NewReader returns a ReadCloser decompressing r. Unless r is a
// *bufio.Reader it is wrapped in one, and bytes after the end of the stream
// may be lost in that buffer; pass a *bufio.Reader to keep them available to
// the caller. Invalid options are reported by the first Read.
func NewReader(r io.Reader, opts ...Option) io.ReadCloser {
	f := &decompressor{}
	f.inf, f.err = NewInflater(opts...)
	if f.err == nil {
		f.buf = make([]byte, readerBufferSize)
		f.err = f.Reset(r, nil)
	}
	return f
}

type decompressor struct {
	inf      *Inflater
	buf      []byte
	writePos int
	readPos  int
	rBuf     *bufio.Reader
	ownBuf   bool
	err      error
}

func (f *decompressor) Reset(under io.Reader, dict []byte) error {
	if f.inf == nil {
		return f.err
	}
	switch ur, ok := under.(*bufio.Reader); {
	case ok:
		f.rBuf, f.ownBuf = ur, false
	case f.ownBuf:
		f.rBuf.Reset(under)
	default:
		f.rBuf, f.ownBuf = bufio.NewReader(under), true
	}
	if dict != nil {
		f.inf.opts.dict = dict
	}
	f.readPos, f.writePos = 0, 0
	f.err = f.inf.Reset()
	return f.err
}

func (f *decompressor) Close() error {
	return nil
}

func (f *decompressor) Read(b []byte) (n int, err error) {
	for {
		if f.writePos-f.readPos > 0 {
			n = copy(b, f.buf[f.readPos:f.writePos])
			f.readPos += n
			if f.writePos == f.readPos {
				return n, f.err
			}
			return n, nil
		}
		if f.err != nil {
			return 0, f.err
		}
		f.err = f.step()
	}
}

// step runs the decompressor over whatever input is buffered. Consumed
// bytes are discarded from the bufio.Reader, the rest stays there.
func (f *decompressor) step() error {
	input, err := f.rBuf.Peek(1)
	if len(input) == 0 {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	input, _ = f.rBuf.Peek(f.rBuf.Buffered())

	nIn, nOut, err := f.inf.Inflate(input, f.buf, NoFlush)
	if _, derr := f.rBuf.Discard(nIn); derr != nil {
		return derr
	}
	f.readPos, f.writePos = 0, nOut
	switch {
	case err == io.EOF:
		return io.EOF
	case err == nil:
		return nil
	case errors.Is(err, ErrBuffer):
		if nIn == 0 && nOut == 0 {
			return io.ErrUnexpectedEOF
		}
		return nil
	}
	return err
}
