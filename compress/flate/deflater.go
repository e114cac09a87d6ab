// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/intel/fastzlib/compress/flate/internal/deflate"
)

// Deflater is a resumable DEFLATE compressor producing raw, zlib or gzip
// streams.
type Deflater struct {
	c    *deflate.Compressor
	opts options
	log  *logrus.Entry

	sink
	chunk    []byte
	err      error
	finished bool
}

// NewDeflater returns a compressor. The default is level 6 zlib with a
// 32 KiB window.
func NewDeflater(opts ...Option) (*Deflater, error) {
	o := buildOptions(opts)
	if err := o.validate(true); err != nil {
		return nil, err
	}
	c, err := deflate.NewCompressor(o.deflateConfig())
	if err != nil {
		return nil, fromDeflate(err)
	}
	d := &Deflater{
		c:     c,
		opts:  o,
		log:   o.logger,
		chunk: make([]byte, o.chunkSize),
	}
	if o.dict != nil {
		if err := d.SetDictionary(o.dict); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Deflate compresses from in to out. It returns io.EOF once Finish has
// written the whole trailer and ErrBuffer when no progress was possible.
func (d *Deflater) Deflate(in, out []byte, flush Flush) (nIn, nOut int, err error) {
	nIn, nOut, err = d.c.Deflate(in, out, flush)
	return nIn, nOut, fromDeflate(err)
}

// run feeds data to the compressor until it is consumed and everything the
// flush mode requires was handed to emit.
func (d *Deflater) run(data []byte, flush Flush, emit func([]byte) error) error {
	for {
		nIn, nOut, err := d.Deflate(data, d.chunk, flush)
		data = data[nIn:]
		if werr := emit(d.chunk[:nOut]); werr != nil {
			return werr
		}
		switch {
		case err == io.EOF:
			d.finished = true
			return nil
		case errors.Is(err, ErrBuffer):
			return nil
		case err != nil:
			return err
		}
		if len(data) == 0 && nOut < len(d.chunk) && flush != Finish {
			return nil
		}
	}
}

// Push compresses data. Output is delivered to OnData or collected for
// Result.
func (d *Deflater) Push(data []byte, flush Flush) error {
	if d.err != nil {
		return d.err
	}
	if d.finished {
		if len(data) == 0 && flush == Finish {
			return nil
		}
		return ErrStream
	}
	if err := d.run(data, flush, d.emit); err != nil {
		d.err = err
		return err
	}
	return nil
}

// PushLast compresses the final chunk and finishes the stream.
func (d *Deflater) PushLast(data []byte) error {
	return d.Push(data, Finish)
}

// Err returns the error that stopped the stream, if any.
func (d *Deflater) Err() error { return d.err }

// Done reports whether the trailer was written.
func (d *Deflater) Done() bool { return d.finished }

// SetDictionary primes the window. See WithDictionary.
func (d *Deflater) SetDictionary(dict []byte) error {
	return fromDeflate(d.c.SetDictionary(dict))
}

// SetHeader replaces the gzip header before the first output is produced.
func (d *Deflater) SetHeader(h *Header) error {
	return fromDeflate(d.c.SetHeader(h))
}

// Params changes the level and strategy mid-stream. When the compression
// function changes the pending input is compressed with the old parameters
// and the block is completed first; that output goes to OnData or Result.
func (d *Deflater) Params(level int, strategy Strategy) error {
	if d.err != nil {
		return d.err
	}
	if d.c.ParamsNeedBlock(level, strategy) {
		if err := d.run(nil, Block, d.emit); err != nil {
			d.err = err
			return err
		}
	}
	if err := d.c.SetParams(level, strategy); err != nil {
		return fromDeflate(err)
	}
	d.log.Debugf("params changed: level %d, strategy %v", d.c.Level(), strategy)
	return nil
}

// Reset starts a new stream with the configured options. Output collected
// for Result is discarded; an OnData callback stays installed.
func (d *Deflater) Reset() error {
	d.c.Reset()
	d.result = nil
	d.err = nil
	d.finished = false
	if d.opts.dict != nil {
		return d.SetDictionary(d.opts.dict)
	}
	return nil
}

func (d *Deflater) TotalIn() int64 { return d.c.TotalIn() }

func (d *Deflater) TotalOut() int64 { return d.c.TotalOut() }

// Adler returns the running checksum of the input: Adler-32 for zlib,
// CRC-32 for gzip.
func (d *Deflater) Adler() uint32 { return d.c.Check() }

// Bound returns the largest possible compressed size of n input bytes with
// the current settings, framing included.
func (d *Deflater) Bound(n int64) int64 { return d.c.Bound(n) }
