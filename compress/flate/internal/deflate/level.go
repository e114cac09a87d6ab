// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

import (
	"github.com/sirupsen/logrus"

	"github.com/intel/fastzlib/compress/internal/container"
)

const (
	NoCompression      = 0
	BestSpeed          = 1
	BestCompression    = 9
	DefaultCompression = -1

	// defaultLevel is what DefaultCompression means.
	defaultLevel = 6

	MinWindowBits     = 8
	MaxWindowBits     = 15
	DefaultMemLevel   = 8
	MaxMemLevel       = 9
	DefaultWindowBits = MaxWindowBits
)

// Strategy tunes the match finder for particular kinds of data.
type Strategy int

const (
	DefaultStrategy Strategy = iota
	// Filtered favours Huffman coding over short matches, for data produced
	// by a filter or predictor.
	Filtered
	// HuffmanOnly disables string matching.
	HuffmanOnly
	// RLE only looks for matches at distance one.
	RLE
	// Fixed never emits dynamic Huffman blocks.
	Fixed
)

func (s Strategy) String() string {
	switch s {
	case DefaultStrategy:
		return "default"
	case Filtered:
		return "filtered"
	case HuffmanOnly:
		return "huffman-only"
	case RLE:
		return "rle"
	case Fixed:
		return "fixed"
	}
	return "unknown"
}

// Flush controls how much pending output a call must produce.
type Flush int

const (
	NoFlush Flush = iota
	// PartialFlush emits everything and an empty static block.
	PartialFlush
	// SyncFlush emits everything and aligns to a byte boundary with an empty
	// stored block.
	SyncFlush
	// FullFlush is SyncFlush plus a reset of the match history so that
	// decompression can restart from this point.
	FullFlush
	// Finish completes the stream and writes the trailer.
	Finish
	// Block completes the current block without aligning.
	Block
)

// rank orders flush values so that a repeated weaker flush without new
// input is a no-op.
func (f Flush) rank() int {
	if f > Finish {
		return int(f)*2 - 9
	}
	return int(f) * 2
}

func (f Flush) String() string {
	switch f {
	case NoFlush:
		return "none"
	case PartialFlush:
		return "partial"
	case SyncFlush:
		return "sync"
	case FullFlush:
		return "full"
	case Finish:
		return "finish"
	case Block:
		return "block"
	}
	return "unknown"
}

// Wrap selects the container around the deflate stream.
type Wrap int

const (
	WrapRaw Wrap = iota
	WrapZlib
	WrapGzip
)

type compressFunc int

const (
	funcStored compressFunc = iota
	funcFast
	funcSlow
)

// levelConfig are the matcher parameters of one level.
type levelConfig struct {
	goodLength int // reduce lazy search above this match length
	maxLazy    int // do not perform lazy search above this match length
	niceLength int // quit search above this match length
	maxChain   int
	fn         compressFunc
}

// levels 1 to 3 insert new strings only for short matches, 4 to 9 use lazy
// evaluation.
var configTable = [10]levelConfig{
	{0, 0, 0, 0, funcStored},
	{4, 4, 8, 4, funcFast},
	{4, 5, 16, 8, funcFast},
	{4, 6, 32, 32, funcFast},
	{4, 4, 16, 16, funcSlow},
	{8, 16, 32, 32, funcSlow},
	{8, 16, 128, 128, funcSlow},
	{8, 32, 128, 256, funcSlow},
	{32, 128, 258, 1024, funcSlow},
	{32, 258, 258, 4096, funcSlow},
}

// Config describes a compression stream.
type Config struct {
	Level      int
	WindowBits int
	MemLevel   int
	Strategy   Strategy
	Wrap       Wrap
	// Header is written for WrapGzip. nil writes a minimal header.
	Header *container.Header
	Logger *logrus.Entry
}

func (c *Config) normalize() error {
	if c.Level == DefaultCompression {
		c.Level = defaultLevel
	}
	if c.WindowBits == 0 {
		c.WindowBits = DefaultWindowBits
	}
	if c.MemLevel == 0 {
		c.MemLevel = DefaultMemLevel
	}
	if c.Level < 0 || c.Level > BestCompression ||
		c.WindowBits < MinWindowBits || c.WindowBits > MaxWindowBits ||
		c.MemLevel < 1 || c.MemLevel > MaxMemLevel ||
		c.Strategy < DefaultStrategy || c.Strategy > Fixed ||
		c.Wrap < WrapRaw || c.Wrap > WrapGzip {
		return ErrStream
	}
	// 8 is accepted but compresses with a 512 byte window
	if c.WindowBits == 8 {
		c.WindowBits = 9
	}
	if c.Logger == nil {
		c.Logger = logrus.WithField("pkg", "deflate")
	}
	return nil
}
