// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

// Package gzip reads and writes gzip members (RFC 1952) with the compressor
// and decompressor of package flate.
package gzip

import (
	"io"

	"github.com/intel/fastzlib/compress/flate"
	"github.com/intel/fastzlib/compress/internal/container"
)

const (
	NoCompression      = flate.NoCompression
	BestSpeed          = flate.BestSpeed
	BestCompression    = flate.BestCompression
	DefaultCompression = flate.DefaultCompression
	HuffmanOnly        = -2
)

var (
	ErrChecksum = flate.ErrDataCheck
	ErrHeader   = flate.ErrHeaderCheck
)

// Header is the gzip member header. Name and Comment must be representable
// in ISO 8859-1.
type Header = flate.Header

// Writer compresses into a gzip member. Header fields may be set until the
// first call to Write, Flush or Close.
type Writer struct {
	Header
	fw          *flate.Writer
	wroteHeader bool
}

// NewWriter returns a Writer at the default level.
func NewWriter(w io.Writer) *Writer {
	z, _ := NewWriterLevel(w, DefaultCompression)
	return z
}

// NewWriterLevel returns a Writer at level, which is DefaultCompression,
// HuffmanOnly or a value from NoCompression to BestCompression.
func NewWriterLevel(w io.Writer, level int) (*Writer, error) {
	opts := []flate.Option{flate.WithFormat(flate.FormatGzip)}
	if level == HuffmanOnly {
		opts = append(opts, flate.WithLevel(DefaultCompression), flate.WithStrategy(flate.HuffmanOnly))
	} else {
		opts = append(opts, flate.WithLevel(level))
	}
	fw, err := flate.NewWriter(w, opts...)
	if err != nil {
		return nil, err
	}
	return &Writer{Header: Header{OS: container.DefaultOS}, fw: fw}, nil
}

func (z *Writer) header() error {
	if z.wroteHeader {
		return nil
	}
	z.wroteHeader = true
	h := z.Header
	return z.fw.Deflater().SetHeader(&h)
}

func (z *Writer) Write(p []byte) (int, error) {
	if err := z.header(); err != nil {
		return 0, err
	}
	return z.fw.Write(p)
}

// Flush writes everything compressed so far, see flate.Writer.Flush.
func (z *Writer) Flush() error {
	if err := z.header(); err != nil {
		return err
	}
	return z.fw.Flush()
}

// Close writes the trailer. It does not close the underlying writer.
func (z *Writer) Close() error {
	if err := z.header(); err != nil {
		return err
	}
	return z.fw.Close()
}

// Reset discards the state and header and writes a new member to w with the
// same level.
func (z *Writer) Reset(w io.Writer) error {
	z.Header = Header{OS: container.DefaultOS}
	z.wroteHeader = false
	return z.fw.Reset(w)
}
