// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"errors"
	"io"
)

// sink receives the output of Push: it is handed to the OnData callback,
// or collected for Result when no callback is set.
type sink struct {
	onData func([]byte)
	result []byte
}

func (s *sink) emit(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if s.onData != nil {
		s.onData(p)
		return nil
	}
	s.result = append(s.result, p...)
	return nil
}

// OnData routes output to fn instead of Result. The slice passed to fn is
// reused after fn returns.
func (s *sink) OnData(fn func([]byte)) { s.onData = fn }

// Result returns the output collected so far.
func (s *sink) Result() []byte { return s.result }

// Push decompresses data. last marks the final chunk: if the stream is not
// complete by then Push fails with io.ErrUnexpectedEOF. Bytes following the
// end of the stream are ignored.
func (f *Inflater) Push(data []byte, last bool) error {
	if f.err != nil {
		return f.err
	}
	if f.done {
		if len(data) == 0 {
			return nil
		}
		return ErrStream
	}
	for {
		nIn, nOut, err := f.Inflate(data, f.chunk, NoFlush)
		data = data[nIn:]
		f.emit(f.chunk[:nOut])
		switch {
		case err == io.EOF:
			f.done = true
			if len(data) > 0 && f.debug {
				f.log.Debugf("%d bytes after the end of the stream ignored", len(data))
			}
			return nil
		case err == nil || errors.Is(err, ErrBuffer):
		default:
			f.err = err
			return err
		}
		if nOut < len(f.chunk) && (len(data) == 0 || nIn == 0) {
			if last {
				f.err = io.ErrUnexpectedEOF
				return f.err
			}
			return nil
		}
	}
}

// Err returns the error that stopped the stream, if any.
func (f *Inflater) Err() error { return f.err }

// Done reports whether the end of the stream was reached.
func (f *Inflater) Done() bool { return f.done }
