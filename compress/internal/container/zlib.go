// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package container

import "errors"

const (
	// ZlibHeaderSize is CMF + FLG.
	ZlibHeaderSize = 2
	// ZlibTrailerSize is the big-endian Adler-32.
	ZlibTrailerSize = 4

	zlibPresetDict = 0x20
	zlibMaxWBits   = 15
)

var (
	ErrHeaderCheck   = errors.New("incorrect header check")
	ErrUnknownMethod = errors.New("unknown compression method")
	ErrWindowSize    = errors.New("invalid window size")
)

// ZlibHeader returns CMF and FLG for a stream using 2^windowBits bytes of
// window. levelFlags is the FLEVEL hint (0..3); dict sets FDICT.
func ZlibHeader(windowBits int, levelFlags byte, dict bool) (cmf, flg byte) {
	header := uint16(MethodDeflate|(windowBits-8)<<4) << 8
	header |= uint16(levelFlags&3) << 6
	if dict {
		header |= zlibPresetDict
	}
	header += 31 - header%31
	return byte(header >> 8), byte(header)
}

// LevelFlags maps a compression level onto FLEVEL.
func LevelFlags(level int, fastest bool) byte {
	switch {
	case fastest || level < 2:
		return 0
	case level < 6:
		return 1
	case level == 6:
		return 2
	}
	return 3
}

// ParseZlibHeader validates CMF and FLG. maxBits is the largest window the
// caller is prepared to use; windowBits is the size announced by the stream.
func ParseZlibHeader(cmf, flg byte, maxBits int) (windowBits int, dict bool, err error) {
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return 0, false, ErrHeaderCheck
	}
	if cmf&0x0f != MethodDeflate {
		return 0, false, ErrUnknownMethod
	}
	windowBits = int(cmf>>4) + 8
	if windowBits > zlibMaxWBits || windowBits > maxBits {
		return 0, false, ErrWindowSize
	}
	return windowBits, flg&zlibPresetDict != 0, nil
}

// AppendAdler appends a big-endian Adler-32 value, as used for the trailer
// and for DICTID.
func AppendAdler(dst []byte, adler uint32) []byte {
	return append(dst, byte(adler>>24), byte(adler>>16), byte(adler>>8), byte(adler))
}

// LooksLikeGzip reports whether b starts with the gzip magic.
func LooksLikeGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == GzipID1 && b[1] == GzipID2
}
