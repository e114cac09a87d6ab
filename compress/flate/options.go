// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/intel/fastzlib/compress/flate/internal/deflate"
	"github.com/intel/fastzlib/compress/internal/container"
)

const (
	NoCompression      = deflate.NoCompression
	BestSpeed          = deflate.BestSpeed
	BestCompression    = deflate.BestCompression
	DefaultCompression = deflate.DefaultCompression

	MinWindowBits     = deflate.MinWindowBits
	MaxWindowBits     = deflate.MaxWindowBits
	DefaultWindowBits = deflate.DefaultWindowBits
	DefaultMemLevel   = deflate.DefaultMemLevel
	MaxMemLevel       = deflate.MaxMemLevel

	// DefaultChunkSize is the size of the output chunks delivered by Push.
	DefaultChunkSize = 16 << 10
)

type (
	Strategy = deflate.Strategy
	Flush    = deflate.Flush
	// Header is the gzip member header.
	Header = container.Header
)

const (
	DefaultStrategy = deflate.DefaultStrategy
	Filtered        = deflate.Filtered
	HuffmanOnly     = deflate.HuffmanOnly
	RLE             = deflate.RLE
	Fixed           = deflate.Fixed
)

const (
	NoFlush      = deflate.NoFlush
	PartialFlush = deflate.PartialFlush
	SyncFlush    = deflate.SyncFlush
	FullFlush    = deflate.FullFlush
	Finish       = deflate.Finish
	// Block makes Inflate return at the next block boundary.
	Block = deflate.Block
)

// Format selects the framing around the DEFLATE data.
type Format int

const (
	FormatZlib Format = iota
	FormatRaw
	FormatGzip
	// FormatAuto accepts zlib or gzip when decompressing.
	FormatAuto
)

func (f Format) String() string {
	switch f {
	case FormatZlib:
		return "zlib"
	case FormatRaw:
		return "raw"
	case FormatGzip:
		return "gzip"
	case FormatAuto:
		return "auto"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "zlib", "":
		return FormatZlib, nil
	case "raw", "deflate":
		return FormatRaw, nil
	case "gzip", "gz":
		return FormatGzip, nil
	case "auto":
		return FormatAuto, nil
	}
	return 0, fmt.Errorf("unknown format %q", s)
}

// ParseStrategy maps a strategy name, as printed by Strategy.String, to a
// Strategy.
func ParseStrategy(s string) (Strategy, error) {
	for st := DefaultStrategy; st <= Fixed; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// Option configures a Deflater, an Inflater or one of the io adapters.
type Option func(*options)

type options struct {
	level      int
	windowBits int
	memLevel   int
	strategy   Strategy
	format     Format
	dict       []byte
	header     *Header
	chunkSize  int
	logger     *logrus.Entry
}

func defaultOptions() options {
	return options{
		level:      DefaultCompression,
		windowBits: DefaultWindowBits,
		memLevel:   DefaultMemLevel,
		strategy:   DefaultStrategy,
		format:     FormatZlib,
		chunkSize:  DefaultChunkSize,
	}
}

func WithLevel(level int) Option {
	return func(o *options) { o.level = level }
}

func WithWindowBits(bits int) Option {
	return func(o *options) { o.windowBits = bits }
}

func WithMemLevel(memLevel int) Option {
	return func(o *options) { o.memLevel = memLevel }
}

func WithStrategy(s Strategy) Option {
	return func(o *options) { o.strategy = s }
}

func WithFormat(f Format) Option {
	return func(o *options) { o.format = f }
}

// WithDictionary sets a preset dictionary. Compressing gzip with a
// dictionary is not possible.
func WithDictionary(dict []byte) Option {
	return func(o *options) { o.dict = dict }
}

// WithHeader sets the gzip header written by the compressor.
func WithHeader(h *Header) Option {
	return func(o *options) { o.header = h }
}

func WithChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

func WithLogger(l *logrus.Entry) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.WithField("pkg", "flate")
	}
	return o
}

// validate reports every invalid setting at once. compress selects the
// rules of the compressor.
func (o *options) validate(compress bool) error {
	var result *multierror.Error
	if o.windowBits < MinWindowBits || o.windowBits > MaxWindowBits {
		result = multierror.Append(result, fmt.Errorf("window bits %d out of range [%d, %d]", o.windowBits, MinWindowBits, MaxWindowBits))
	}
	if o.format < FormatZlib || o.format > FormatAuto {
		result = multierror.Append(result, fmt.Errorf("unknown format %v", o.format))
	}
	if o.chunkSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("chunk size %d must be positive", o.chunkSize))
	}
	if compress {
		if o.level < DefaultCompression || o.level > BestCompression {
			result = multierror.Append(result, fmt.Errorf("level %d out of range [%d, %d]", o.level, DefaultCompression, BestCompression))
		}
		if o.memLevel < 1 || o.memLevel > MaxMemLevel {
			result = multierror.Append(result, fmt.Errorf("memory level %d out of range [1, %d]", o.memLevel, MaxMemLevel))
		}
		if o.strategy < DefaultStrategy || o.strategy > Fixed {
			result = multierror.Append(result, fmt.Errorf("unknown strategy %v", o.strategy))
		}
		if o.format == FormatAuto {
			result = multierror.Append(result, fmt.Errorf("format %v is only valid for decompression", o.format))
		}
		if o.format == FormatGzip && o.dict != nil {
			result = multierror.Append(result, fmt.Errorf("gzip streams cannot use a preset dictionary"))
		}
		if o.header != nil {
			if o.format != FormatGzip {
				result = multierror.Append(result, fmt.Errorf("a header needs the gzip format, not %v", o.format))
			} else if err := o.header.Validate(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return &Error{Kind: StreamError, Msg: "invalid options", Offset: -1, Err: err}
	}
	return nil
}

func (o *options) deflateConfig() deflate.Config {
	cfg := deflate.Config{
		Level:      o.level,
		WindowBits: o.windowBits,
		MemLevel:   o.memLevel,
		Strategy:   o.strategy,
		Header:     o.header,
		Logger:     o.logger,
	}
	switch o.format {
	case FormatRaw:
		cfg.Wrap = deflate.WrapRaw
	case FormatGzip:
		cfg.Wrap = deflate.WrapGzip
	default:
		cfg.Wrap = deflate.WrapZlib
	}
	return cfg
}
