// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

// Package zlib reads and writes zlib format streams (RFC 1950) with the
// compressor and decompressor of package flate.
package zlib

import (
	"errors"
	"io"

	"github.com/intel/fastzlib/compress/flate"
)

const (
	NoCompression      = flate.NoCompression
	BestSpeed          = flate.BestSpeed
	BestCompression    = flate.BestCompression
	DefaultCompression = flate.DefaultCompression
	HuffmanOnly        = -2
)

var (
	ErrChecksum   = flate.ErrDataCheck
	ErrDictionary = flate.ErrIncorrectDictionary
	ErrHeader     = flate.ErrHeaderCheck
)

// Resetter resets a ReadCloser returned by NewReader or NewReaderDict to
// read a new stream.
type Resetter = flate.Resetter

// NewReader returns a ReadCloser decompressing the zlib stream in r. The
// error is reported for invalid setups only; header problems surface on
// Read.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	return NewReaderDict(r, nil)
}

// NewReaderDict is like NewReader but uses dict when the stream asks for a
// preset dictionary.
func NewReaderDict(r io.Reader, dict []byte) (io.ReadCloser, error) {
	opts := []flate.Option{flate.WithFormat(flate.FormatZlib)}
	if dict != nil {
		opts = append(opts, flate.WithDictionary(dict))
	}
	return &reader{rc: flate.NewReader(r, opts...)}, nil
}

// reader reports a stream that needs a dictionary nobody supplied as
// ErrDictionary.
type reader struct {
	rc io.ReadCloser
}

func (z *reader) Read(p []byte) (int, error) {
	n, err := z.rc.Read(p)
	if errors.Is(err, flate.ErrNeedDict) {
		err = ErrDictionary
	}
	return n, err
}

func (z *reader) Close() error {
	return z.rc.Close()
}

func (z *reader) Reset(r io.Reader, dict []byte) error {
	return z.rc.(Resetter).Reset(r, dict)
}

// Writer compresses into a zlib stream.
type Writer struct {
	*flate.Writer
}

// NewWriter returns a Writer at the default level.
func NewWriter(w io.Writer) *Writer {
	z, _ := NewWriterLevel(w, DefaultCompression)
	return z
}

// NewWriterLevel returns a Writer at level, which is DefaultCompression,
// HuffmanOnly or a value from NoCompression to BestCompression.
func NewWriterLevel(w io.Writer, level int) (*Writer, error) {
	return NewWriterLevelDict(w, level, nil)
}

// NewWriterLevelDict is like NewWriterLevel with a preset dictionary whose
// Adler-32 is announced in the header.
func NewWriterLevelDict(w io.Writer, level int, dict []byte) (*Writer, error) {
	opts := []flate.Option{flate.WithFormat(flate.FormatZlib)}
	if level == HuffmanOnly {
		opts = append(opts, flate.WithLevel(DefaultCompression), flate.WithStrategy(flate.HuffmanOnly))
	} else {
		opts = append(opts, flate.WithLevel(level))
	}
	if dict != nil {
		opts = append(opts, flate.WithDictionary(dict))
	}
	fw, err := flate.NewWriter(w, opts...)
	if err != nil {
		return nil, err
	}
	return &Writer{Writer: fw}, nil
}
