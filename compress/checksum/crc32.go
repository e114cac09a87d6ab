// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package checksum

import "hash"

// crc32Poly is the reversed IEEE polynomial.
const crc32Poly = 0xedb88320

// crc32Tables holds the slicing-by-4 lookup tables. Table 0 is the classic
// byte-at-a-time table. Built once and never modified afterwards.
var crc32Tables = makeCRC32Tables()

// x2nTable[k] is x^(2^k) modulo the CRC polynomial, used by CRC32Combine.
var x2nTable = makeX2nTable()

func makeCRC32Tables() *[4][256]uint32 {
	t := new([4][256]uint32)
	for n := 0; n < 256; n++ {
		c := uint32(n)
		for k := 0; k < 8; k++ {
			if c&1 != 0 {
				c = crc32Poly ^ c>>1
			} else {
				c >>= 1
			}
		}
		t[0][n] = c
	}
	for n := 0; n < 256; n++ {
		c := t[0][n]
		for k := 1; k < 4; k++ {
			c = t[0][c&0xff] ^ c>>8
			t[k][n] = c
		}
	}
	return t
}

// CRC32 returns the CRC-32 checksum crc updated with the bytes of p. The
// value for the empty input is 0.
func CRC32(crc uint32, p []byte) uint32 {
	t := crc32Tables
	crc = ^crc
	for len(p) >= 4 {
		crc ^= uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
		crc = t[3][crc&0xff] ^ t[2][crc>>8&0xff] ^ t[1][crc>>16&0xff] ^ t[0][crc>>24]
		p = p[4:]
	}
	for _, b := range p {
		crc = t[0][byte(crc)^b] ^ crc>>8
	}
	return ^crc
}

// multModP returns a(x) multiplied by b(x) modulo p(x), where p(x) is the CRC
// polynomial, reflected. For speed, this requires that a not be zero.
func multModP(a, b uint32) uint32 {
	m := uint32(1) << 31
	p := uint32(0)
	for {
		if a&m != 0 {
			p ^= b
			if a&(m-1) == 0 {
				break
			}
		}
		m >>= 1
		if b&1 != 0 {
			b = b>>1 ^ crc32Poly
		} else {
			b >>= 1
		}
	}
	return p
}

func makeX2nTable() [32]uint32 {
	var t [32]uint32
	p := uint32(1) << 30 // x^1
	t[0] = p
	for n := 1; n < 32; n++ {
		p = multModP(p, p)
		t[n] = p
	}
	return t
}

// x2nModP returns x^(n * 2^k) modulo p(x).
func x2nModP(n uint64, k uint) uint32 {
	p := uint32(1) << 31 // x^0 == 1
	for n != 0 {
		if n&1 != 0 {
			p = multModP(x2nTable[k&31], p)
		}
		n >>= 1
		k++
	}
	return p
}

// CRC32Combine returns the CRC-32 checksum of the concatenation of two
// inputs, given the checksum of each and the length of the second one.
func CRC32Combine(crc1, crc2 uint32, len2 int64) uint32 {
	if len2 < 0 {
		len2 = 0
	}
	return multModP(x2nModP(uint64(len2), 3), crc1) ^ crc2
}

type crc32Digest uint32

// NewCRC32 returns a hash.Hash32 computing the CRC-32 (IEEE) checksum.
func NewCRC32() hash.Hash32 {
	d := crc32Digest(0)
	return &d
}

func (d *crc32Digest) Write(p []byte) (int, error) {
	*d = crc32Digest(CRC32(uint32(*d), p))
	return len(p), nil
}

func (d *crc32Digest) Sum32() uint32 { return uint32(*d) }

func (d *crc32Digest) Sum(b []byte) []byte {
	s := uint32(*d)
	return append(b, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

func (d *crc32Digest) Reset()         { *d = 0 }
func (d *crc32Digest) Size() int      { return 4 }
func (d *crc32Digest) BlockSize() int { return 1 }
