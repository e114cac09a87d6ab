// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

// Package container holds the framing shared by the compressor and the
// decompressor: the gzip member header (RFC 1952) and the two byte zlib
// header (RFC 1950). The DEFLATE payload itself is handled elsewhere.
package container

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/intel/fastzlib/compress/checksum"
)

const (
	GzipID1       = 0x1f
	GzipID2       = 0x8b
	MethodDeflate = 8

	FlagText     = 1 << 0
	FlagHdrCRC   = 1 << 1
	FlagExtra    = 1 << 2
	FlagName     = 1 << 3
	FlagComment  = 1 << 4
	FlagReserved = 0xe0

	// GzipTrailerSize is CRC-32 + ISIZE.
	GzipTrailerSize = 8
	// GzipMinHeaderSize is the fixed part of a member header.
	GzipMinHeaderSize = 10

	maxExtraLen = 1<<16 - 1
)

// Operating system codes from RFC 1952.
const (
	OSFAT     = 0
	OSUnix    = 3
	OSMacOS   = 7
	OSNTFS    = 11
	OSUnknown = 255
)

// DefaultOS is written when no header was configured.
const DefaultOS = OSUnix

// Header is the metadata carried by a gzip member header.
//
// Name and Comment are stored as ISO 8859-1 on the wire; characters outside
// that range are rejected by Validate.
type Header struct {
	Text    bool      // FTEXT: the payload is probably ASCII text
	ModTime time.Time // MTIME, zero means not available
	XFlags  byte      // XFL as read from the stream, ignored when writing
	OS      byte
	Extra   []byte // FEXTRA payload
	Name    string // FNAME
	Comment string // FCOMMENT
	HCRC    bool   // FHCRC: a CRC16 of the header follows it

	// Done is set by the decompressor once the whole header has been read.
	Done bool
}

// Validate reports every field that cannot be represented in a gzip header.
func (h *Header) Validate() error {
	var result *multierror.Error
	if len(h.Extra) > maxExtraLen {
		result = multierror.Append(result, fmt.Errorf("gzip extra field too long: %d bytes", len(h.Extra)))
	}
	if err := checkLatin1("name", h.Name); err != nil {
		result = multierror.Append(result, err)
	}
	if err := checkLatin1("comment", h.Comment); err != nil {
		result = multierror.Append(result, err)
	}
	if !h.ModTime.IsZero() {
		if s := h.ModTime.Unix(); s < 0 || s > 1<<32-1 {
			result = multierror.Append(result, fmt.Errorf("gzip mod time out of range: %v", h.ModTime))
		}
	}
	return result.ErrorOrNil()
}

func checkLatin1(field, s string) error {
	for _, r := range s {
		if r == 0 {
			return fmt.Errorf("gzip %s contains a NUL byte", field)
		}
		if r > 0xff {
			return fmt.Errorf("gzip %s is not representable in ISO 8859-1: %q", field, r)
		}
	}
	return nil
}

// Flags returns the FLG byte announcing the optional fields of h.
func (h *Header) Flags() byte {
	var flg byte
	if h.Text {
		flg |= FlagText
	}
	if h.HCRC {
		flg |= FlagHdrCRC
	}
	if h.Extra != nil {
		flg |= FlagExtra
	}
	if h.Name != "" {
		flg |= FlagName
	}
	if h.Comment != "" {
		flg |= FlagComment
	}
	return flg
}

// AppendHeader appends the gzip member header for h to dst. A nil h writes
// the minimal ten byte header. xfl is the compression hint byte chosen by the
// compressor.
func AppendHeader(dst []byte, h *Header, xfl byte) []byte {
	start := len(dst)
	if h == nil {
		return append(dst, GzipID1, GzipID2, MethodDeflate, 0, 0, 0, 0, 0, xfl, DefaultOS)
	}
	var mtime uint32
	if !h.ModTime.IsZero() {
		mtime = uint32(h.ModTime.Unix())
	}
	dst = append(dst, GzipID1, GzipID2, MethodDeflate, h.Flags(),
		byte(mtime), byte(mtime>>8), byte(mtime>>16), byte(mtime>>24),
		xfl, h.OS)
	if h.Extra != nil {
		n := len(h.Extra)
		dst = append(dst, byte(n), byte(n>>8))
		dst = append(dst, h.Extra...)
	}
	if h.Name != "" {
		dst = appendLatin1(dst, h.Name)
		dst = append(dst, 0)
	}
	if h.Comment != "" {
		dst = appendLatin1(dst, h.Comment)
		dst = append(dst, 0)
	}
	if h.HCRC {
		crc := checksum.CRC32(0, dst[start:])
		dst = append(dst, byte(crc), byte(crc>>8))
	}
	return dst
}

func appendLatin1(dst []byte, s string) []byte {
	for _, r := range s {
		dst = append(dst, byte(r))
	}
	return dst
}

// Latin1String converts ISO 8859-1 bytes read from a header into a string.
func Latin1String(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// AppendGzipTrailer appends the CRC-32 and ISIZE fields, little-endian.
func AppendGzipTrailer(dst []byte, crc uint32, size uint32) []byte {
	return append(dst,
		byte(crc), byte(crc>>8), byte(crc>>16), byte(crc>>24),
		byte(size), byte(size>>8), byte(size>>16), byte(size>>24))
}

// ExtraFlags returns the XFL value zlib writes for a compression setup:
// 2 for maximum compression, 4 for the fastest algorithms.
func ExtraFlags(level int, fastest bool) byte {
	switch {
	case level == 9:
		return 2
	case fastest || level < 2:
		return 4
	}
	return 0
}
