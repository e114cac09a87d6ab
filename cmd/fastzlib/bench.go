// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"fmt"
	"io"
	"time"

	kzlib "github.com/klauspost/compress/zlib"
	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/intel/fastzlib"
	"github.com/intel/fastzlib/cmd/fastzlib/config"
	"github.com/intel/fastzlib/compress/flate"
)

// engine compresses and decompresses zlib streams.
type engine struct {
	name       string
	compress   func(data []byte, level int) ([]byte, error)
	decompress func(comp []byte) ([]byte, error)
}

type benchResult struct {
	Engine      string
	Level       int
	Size        int
	Compressed  int
	CompressMBs float64
	InflateMBs  float64
}

func engines(opts []flate.Option) []engine {
	return []engine{
		{
			name: "fastzlib",
			compress: func(data []byte, level int) ([]byte, error) {
				return fastzlib.Compress(data, append(opts, flate.WithLevel(level))...)
			},
			decompress: func(comp []byte) ([]byte, error) {
				return fastzlib.Decompress(comp)
			},
		},
		{
			name: "klauspost",
			compress: func(data []byte, level int) ([]byte, error) {
				var buf bytes.Buffer
				w, err := kzlib.NewWriterLevel(&buf, level)
				if err != nil {
					return nil, err
				}
				if _, err := w.Write(data); err != nil {
					return nil, err
				}
				if err := w.Close(); err != nil {
					return nil, err
				}
				return buf.Bytes(), nil
			},
			decompress: func(comp []byte) ([]byte, error) {
				r, err := kzlib.NewReader(bytes.NewReader(comp))
				if err != nil {
					return nil, err
				}
				defer r.Close()
				return io.ReadAll(r)
			},
		},
	}
}

func runBench(cfg *config.Config, stdout io.Writer) error {
	cmd := cfg.CLI.Bench

	in, err := openInput(cmd.Input, nil)
	if err != nil {
		return err
	}
	defer in.Close()

	// engines are compared on zlib streams with the configured window and
	// strategy
	opts := []flate.Option{
		flate.WithFormat(flate.FormatZlib),
		flate.WithWindowBits(cfg.Codec.WindowBits),
		flate.WithMemLevel(cfg.Codec.MemLevel),
	}
	if strategy, err := flate.ParseStrategy(cfg.Codec.Strategy); err == nil {
		opts = append(opts, flate.WithStrategy(strategy))
	}

	results, err := bench(in.data, engines(opts), cmd.Levels, cmd.Rounds)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Fprintf(stdout, "%-10s level %2d  %10d -> %10d (%s)  deflate %8.1f MB/s  inflate %8.1f MB/s\n",
			r.Engine, r.Level, r.Size, r.Compressed, ratio(r.Compressed, r.Size), r.CompressMBs, r.InflateMBs)
	}
	logrus.Debugf("bench results: %# v", pretty.Formatter(results))

	return nil
}

func bench(data []byte, engines []engine, levels []int, rounds int) ([]benchResult, error) {
	var results []benchResult
	for _, level := range levels {
		for _, e := range engines {
			var comp []byte
			var err error

			start := time.Now()
			for i := 0; i < rounds; i++ {
				if comp, err = e.compress(data, level); err != nil {
					return nil, errors.Wrapf(err, "%s level %d", e.name, level)
				}
			}
			deflateTime := time.Since(start)

			var plain []byte
			start = time.Now()
			for i := 0; i < rounds; i++ {
				if plain, err = e.decompress(comp); err != nil {
					return nil, errors.Wrapf(err, "%s level %d", e.name, level)
				}
			}
			inflateTime := time.Since(start)

			if !bytes.Equal(plain, data) {
				return nil, errors.Errorf("%s level %d: round trip mismatch", e.name, level)
			}

			results = append(results, benchResult{
				Engine:      e.name,
				Level:       level,
				Size:        len(data),
				Compressed:  len(comp),
				CompressMBs: throughput(len(data)*rounds, deflateTime),
				InflateMBs:  throughput(len(data)*rounds, inflateTime),
			})
		}
	}
	return results, nil
}

func throughput(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds() / (1 << 20)
}
