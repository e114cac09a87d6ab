// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

// Package fastzlib provides DEFLATE compression with zlib and gzip framing
// in pure Go. The streaming API lives in compress/flate; compress/zlib and
// compress/gzip follow the layout of the standard library packages. This
// package offers one-shot helpers over whole buffers.
package fastzlib

import (
	"io"

	"github.com/pkg/errors"

	"github.com/intel/fastzlib/compress/flate"
)

// Version is the zlib release whose stream behaviour is reproduced.
const Version = "1.3.1"

// Compress compresses data in one pass. Without options the result is a
// zlib stream at level 6.
func Compress(data []byte, opts ...flate.Option) ([]byte, error) {
	d, err := flate.NewDeflater(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "compress")
	}
	out := make([]byte, 0, d.Bound(int64(len(data))))
	d.OnData(func(p []byte) { out = append(out, p...) })
	if err := d.PushLast(data); err != nil {
		return nil, errors.Wrap(err, "compress")
	}
	return out, nil
}

// Decompress decompresses a complete stream. Bytes after the end of the
// stream are ignored. Input ending before the stream does gives an error
// matching io.ErrUnexpectedEOF.
func Decompress(data []byte, opts ...flate.Option) ([]byte, error) {
	inf, err := flate.NewInflater(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "decompress")
	}
	out := make([]byte, 0, 4*len(data)+64)
	for {
		if len(out) == cap(out) {
			out = append(out, 0)[:len(out)]
		}
		nIn, nOut, err := inf.Inflate(data, out[len(out):cap(out)], flate.NoFlush)
		data = data[nIn:]
		out = out[:len(out)+nOut]
		switch {
		case err == io.EOF:
			return out, nil
		case errors.Is(err, flate.ErrBuffer):
			if nIn == 0 && nOut == 0 {
				return nil, errors.Wrapf(io.ErrUnexpectedEOF, "decompress: stream ends after %d bytes", inf.TotalIn())
			}
		case errors.Is(err, flate.ErrNeedDict):
			return nil, errors.Wrapf(err, "decompress: dictionary %08x", inf.DictID())
		case err != nil:
			return nil, errors.Wrap(err, "decompress")
		}
	}
}
