// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import "io"

// Writer compresses everything written to it into an underlying writer.
type Writer struct {
	d   *Deflater
	w   io.Writer
	err error
}

// NewWriter returns a Writer compressing to w. The default is zlib framing
// at level 6.
func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	d, err := NewDeflater(opts...)
	if err != nil {
		return nil, err
	}
	return &Writer{d: d, w: w}, nil
}

func (w *Writer) write(p []byte) error {
	_, err := w.w.Write(p)
	return err
}

func (w *Writer) run(p []byte, flush Flush) error {
	if w.err != nil {
		return w.err
	}
	if w.d.finished {
		w.err = ErrStream
		return w.err
	}
	w.err = w.d.run(p, flush, func(out []byte) error {
		if len(out) == 0 {
			return nil
		}
		return w.write(out)
	})
	return w.err
}

// Write compresses p. Output is buffered inside the compressor until enough
// accumulates for a block.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.run(p, NoFlush); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush writes all pending data and aligns the stream to a byte boundary
// with an empty stored block, so a reader can decode everything written so
// far.
func (w *Writer) Flush() error {
	return w.run(nil, SyncFlush)
}

// Close finishes the stream and writes the trailer. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if w.d.finished && w.err == nil {
		return nil
	}
	return w.run(nil, Finish)
}

// Reset discards the writer's state and makes it equivalent to the result
// of NewWriter with the same options writing to dst.
func (w *Writer) Reset(dst io.Writer) error {
	w.w = dst
	w.err = w.d.Reset()
	return w.err
}

// Deflater exposes the underlying compressor, e.g. for Params.
func (w *Writer) Deflater() *Deflater { return w.d }
