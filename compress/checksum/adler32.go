// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

// Package checksum implements the running checksums used by the container
// formats: Adler-32 for zlib (RFC 1950) and CRC-32 for gzip (RFC 1952).
//
// Both checksums are updated incrementally: pass the value returned by the
// previous call together with the next chunk of data.
package checksum

import "hash"

const (
	adlerBase = 65521 // largest prime smaller than 65536
	// adlerNMax is the largest n such that
	// 255n(n+1)/2 + (n+1)(adlerBase-1) <= 2^32-1
	adlerNMax = 5552

	// Adler32Init is the Adler-32 value of the empty input.
	Adler32Init = 1
)

// Adler32 returns the Adler-32 checksum adler updated with the bytes of p.
func Adler32(adler uint32, p []byte) uint32 {
	s1, s2 := adler&0xffff, adler>>16
	for len(p) > 0 {
		n := len(p)
		if n > adlerNMax {
			n = adlerNMax
		}
		chunk := p[:n]
		for len(chunk) >= 4 {
			s1 += uint32(chunk[0])
			s2 += s1
			s1 += uint32(chunk[1])
			s2 += s1
			s1 += uint32(chunk[2])
			s2 += s1
			s1 += uint32(chunk[3])
			s2 += s1
			chunk = chunk[4:]
		}
		for _, b := range chunk {
			s1 += uint32(b)
			s2 += s1
		}
		s1 %= adlerBase
		s2 %= adlerBase
		p = p[n:]
	}
	return s2<<16 | s1
}

// Adler32Combine returns the Adler-32 checksum of the concatenation of two
// inputs, given the checksum of each and the length of the second one.
func Adler32Combine(adler1, adler2 uint32, len2 int64) uint32 {
	if len2 < 0 {
		return 0xffffffff
	}
	rem := uint64(len2 % adlerBase)
	sum1 := uint64(adler1 & 0xffff)
	sum2 := (rem * sum1) % adlerBase
	sum1 += uint64(adler2&0xffff) + adlerBase - 1
	sum2 += uint64(adler1>>16) + uint64(adler2>>16) + adlerBase - rem
	if sum1 >= adlerBase {
		sum1 -= adlerBase
	}
	if sum1 >= adlerBase {
		sum1 -= adlerBase
	}
	if sum2 >= adlerBase<<1 {
		sum2 -= adlerBase << 1
	}
	if sum2 >= adlerBase {
		sum2 -= adlerBase
	}
	return uint32(sum1 | sum2<<16)
}

type adler32Digest uint32

// NewAdler32 returns a hash.Hash32 computing the Adler-32 checksum.
func NewAdler32() hash.Hash32 {
	d := adler32Digest(Adler32Init)
	return &d
}

func (d *adler32Digest) Write(p []byte) (int, error) {
	*d = adler32Digest(Adler32(uint32(*d), p))
	return len(p), nil
}

func (d *adler32Digest) Sum32() uint32 { return uint32(*d) }

func (d *adler32Digest) Sum(b []byte) []byte {
	s := uint32(*d)
	return append(b, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

func (d *adler32Digest) Reset()         { *d = Adler32Init }
func (d *adler32Digest) Size() int      { return 4 }
func (d *adler32Digest) BlockSize() int { return 4 }
