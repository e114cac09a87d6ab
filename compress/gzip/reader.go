// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package gzip

import (
	"bufio"
	"errors"
	"io"

	"github.com/intel/fastzlib/compress/flate"
)

const readerBufferSize = 32 << 10

// Reader decompresses a gzip stream. Header holds the header of the member
// being read. By default concatenated members are read as one stream.
type Reader struct {
	Header
	r      *bufio.Reader
	ownBuf bool
	inf    *flate.Inflater

	buf         []byte
	readPos     int
	writePos    int
	endOfMember bool
	multistream bool
	err         error
}

// NewReader reads the first member header from r. Bytes of r past the end
// of the stream may be left in a bufio.Reader unless r is one itself.
func NewReader(r io.Reader) (*Reader, error) {
	z := new(Reader)
	if err := z.Reset(r); err != nil {
		return nil, err
	}
	return z, nil
}

// Reset discards the state of z and reads the header of the next member
// from r. It returns io.EOF when r is empty.
func (z *Reader) Reset(r io.Reader) error {
	if z.inf == nil {
		inf, err := flate.NewInflater(flate.WithFormat(flate.FormatGzip))
		if err != nil {
			return err
		}
		z.inf = inf
		z.buf = make([]byte, readerBufferSize)
	}
	switch br, ok := r.(*bufio.Reader); {
	case ok:
		z.r, z.ownBuf = br, false
	case z.ownBuf:
		z.r.Reset(r)
	default:
		z.r, z.ownBuf = bufio.NewReader(r), true
	}
	z.Header = Header{}
	z.readPos, z.writePos = 0, 0
	z.endOfMember = false
	z.multistream = true
	z.err = z.startMember()
	return z.err
}

// Multistream controls whether the end of a member ends the stream. With
// ok false, Read returns io.EOF after one member and the underlying
// bufio.Reader is positioned just past its trailer.
func (z *Reader) Multistream(ok bool) {
	z.multistream = ok
}

// startMember resets the decompressor and reads a member header. The body
// is left to Read.
func (z *Reader) startMember() error {
	if _, err := z.r.Peek(1); err != nil {
		return err
	}
	if err := z.inf.Reset(); err != nil {
		return err
	}
	for {
		if h := z.inf.Header(); h != nil && h.Done {
			z.Header = *h
			return nil
		}
		if err := z.step(flate.Block); err != nil {
			return err
		}
	}
}

// step inflates what is buffered in r into the free part of buf. With
// flate.Block it stops at the first block header.
func (z *Reader) step(flush flate.Flush) error {
	input, err := z.r.Peek(1)
	if len(input) == 0 {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	input, _ = z.r.Peek(z.r.Buffered())
	nIn, nOut, err := z.inf.Inflate(input, z.buf[z.writePos:], flush)
	if _, derr := z.r.Discard(nIn); derr != nil {
		return derr
	}
	z.writePos += nOut
	if errors.Is(err, flate.ErrBuffer) {
		if nIn == 0 && nOut == 0 {
			return io.ErrUnexpectedEOF
		}
		return nil
	}
	return err
}

func (z *Reader) Read(p []byte) (n int, err error) {
	for {
		if z.readPos < z.writePos {
			n = copy(p, z.buf[z.readPos:z.writePos])
			z.readPos += n
			return n, nil
		}
		if z.err != nil {
			return 0, z.err
		}
		z.readPos, z.writePos = 0, 0
		if z.endOfMember {
			z.endOfMember = false
			if !z.multistream {
				z.err = io.EOF
				continue
			}
			z.err = z.startMember()
			continue
		}
		switch err := z.step(flate.NoFlush); {
		case err == io.EOF:
			z.endOfMember = true
		case err != nil:
			z.err = err
		}
	}
}

// Close does not close the underlying reader.
func (z *Reader) Close() error {
	return nil
}
