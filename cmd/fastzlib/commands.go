// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/intel/fastzlib"
	"github.com/intel/fastzlib/cmd/fastzlib/config"
	"github.com/intel/fastzlib/compress/checksum"
	"github.com/intel/fastzlib/compress/flate"
	"github.com/intel/fastzlib/compress/gzip"
	"github.com/intel/fastzlib/compress/zlib"
)

// osUnix is the RFC 1952 OS code written into gzip headers.
const osUnix = 3

func run(cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	switch cmd := cfg.CLI.Command(); cmd {
	case "compress":
		return runCompress(cfg, stdin, stdout)
	case "decompress":
		return runDecompress(cfg, stdin, stdout)
	case "inspect":
		return runInspect(cfg, stdout)
	case "checksum":
		return runChecksum(cfg, stdout)
	case "bench":
		return runBench(cfg, stdout)
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

// codecOptions translates the merged [codec] settings into stream options.
// Compression settings are left out when decompressing.
func codecOptions(c *config.TOMLCodec, decompress bool) ([]flate.Option, flate.Format, error) {
	format, err := flate.ParseFormat(c.Format)
	if err != nil {
		return nil, format, errors.Wrap(err, "error parsing codec.format")
	}

	opts := []flate.Option{
		flate.WithFormat(format),
		flate.WithWindowBits(c.WindowBits),
		flate.WithChunkSize(c.ChunkSize),
		flate.WithLogger(logrus.WithField("pkg", "flate")),
	}

	if !decompress {
		strategy, err := flate.ParseStrategy(c.Strategy)
		if err != nil {
			return nil, format, errors.Wrap(err, "error parsing codec.strategy")
		}
		opts = append(opts,
			flate.WithLevel(*c.Level),
			flate.WithMemLevel(c.MemLevel),
			flate.WithStrategy(strategy))
	}

	dict, err := readDictionary(c.DictionaryFile)
	if err != nil {
		return nil, format, err
	}
	if dict != nil {
		opts = append(opts, flate.WithDictionary(dict))
	}

	return opts, format, nil
}

func runCompress(cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	cmd := cfg.CLI.Compress

	in, err := openInput(cmd.Input, stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	opts, format, err := codecOptions(cfg.Codec, false)
	if err != nil {
		return err
	}

	if format == flate.FormatGzip && in.file != nil {
		info, err := in.file.Stat()
		if err != nil {
			return errors.Wrap(err, "error reading input info")
		}
		h := &flate.Header{Name: filepath.Base(in.name), ModTime: info.ModTime(), OS: osUnix}
		if err := h.Validate(); err != nil {
			logrus.Warnf("not storing file name in gzip header: %s", err)
			h.Name = ""
		}
		opts = append(opts, flate.WithHeader(h))
	}

	start := time.Now()
	comp, err := fastzlib.Compress(in.data, opts...)
	if err != nil {
		return err
	}

	if err := writeOutput(cmd.Output, stdout, comp); err != nil {
		return err
	}

	logrus.Infof("%s: %d -> %d bytes (%s) in %s", in.name, len(in.data), len(comp),
		ratio(len(comp), len(in.data)), time.Since(start))

	return nil
}

func runDecompress(cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	cmd := cfg.CLI.Decompress

	in, err := openInput(cmd.Input, stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	opts, format, err := codecOptions(cfg.Codec, true)
	if err != nil {
		return err
	}

	var r io.ReadCloser
	src := bytes.NewReader(in.data)
	switch format {
	case flate.FormatGzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return errors.Wrap(err, "error reading gzip header")
		}
		logrus.Debugf("gzip member: name %q, mtime %v, os %d", zr.Name, zr.ModTime, zr.OS)
		r = zr
	case flate.FormatZlib:
		dict, err := readDictionary(cfg.Codec.DictionaryFile)
		if err != nil {
			return err
		}
		if r, err = zlib.NewReaderDict(src, dict); err != nil {
			return err
		}
	default:
		r = flate.NewReader(src, opts...)
	}
	defer r.Close()

	out, err := openOutput(cmd.Output, stdout)
	if err != nil {
		return err
	}

	start := time.Now()
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "decompressing %s", in.name)
	}

	logrus.Infof("%s: %d -> %d bytes in %s", in.name, len(in.data), n, time.Since(start))

	return nil
}

func writeOutput(name string, stdout io.Writer, data []byte) error {
	out, err := openOutput(name, stdout)
	if err != nil {
		return err
	}

	if _, err := out.Write(data); err != nil {
		out.Close()
		return errors.Wrap(err, "error writing output")
	}

	return errors.Wrap(out.Close(), "error closing output")
}

func ratio(n, of int) string {
	if of == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(of))
}

// inspection describes a compressed stream.
type inspection struct {
	File             string
	Format           string
	CompressedSize   int64
	DecompressedSize int64
	TrailingBytes    int
	Adler32          string
	CRC32            string
	DictID           uint32
	Header           *flate.Header
	Problem          string
}

func runInspect(cfg *config.Config, stdout io.Writer) error {
	cmd := cfg.CLI.Inspect

	in, err := openInput(cmd.Input, nil)
	if err != nil {
		return err
	}
	defer in.Close()

	opts, format, err := codecOptions(cfg.Codec, true)
	if err != nil {
		return err
	}

	// zlib is only the default; let the header decide
	if format == flate.FormatZlib && cfg.TOML.Codec.Format == config.DefaultFormat && cmd.Format == "" {
		format = flate.FormatAuto
		opts = append(opts, flate.WithFormat(format))
	}

	rep, err := inspect(in.data, format, opts)
	if err != nil && format == flate.FormatAuto && errors.Is(err, flate.ErrData) && rep.CompressedSize <= 2 {
		logrus.Debug("no zlib or gzip header, trying a raw stream")
		rep, err = inspect(in.data, flate.FormatRaw, append(opts, flate.WithFormat(flate.FormatRaw)))
	}
	rep.File = in.name

	fmt.Fprintf(stdout, "%# v\n", pretty.Formatter(rep))

	return err
}

func inspect(data []byte, format flate.Format, opts []flate.Option) (*inspection, error) {
	rep := &inspection{}
	inf, err := flate.NewInflater(opts...)
	if err != nil {
		return rep, err
	}

	adler, crc := checksum.NewAdler32(), checksum.NewCRC32()
	out := make([]byte, 64<<10)
	rest := data
	for {
		nIn, nOut, err := inf.Inflate(rest, out, flate.NoFlush)
		rest = rest[nIn:]
		adler.Write(out[:nOut])
		crc.Write(out[:nOut])

		if err == io.EOF {
			break
		}
		if errors.Is(err, flate.ErrBuffer) {
			if nIn == 0 && nOut == 0 {
				err = io.ErrUnexpectedEOF
			} else {
				continue
			}
		}
		if err != nil {
			rep.fill(inf, format, len(rest))
			if errors.Is(err, flate.ErrNeedDict) {
				rep.DictID = inf.DictID()
				rep.Problem = "needs a preset dictionary"
				return rep, nil
			}
			rep.Problem = err.Error()
			return rep, err
		}
	}

	rep.fill(inf, format, len(rest))
	rep.Adler32 = fmt.Sprintf("%08x", adler.Sum32())
	rep.CRC32 = fmt.Sprintf("%08x", crc.Sum32())

	return rep, nil
}

func (rep *inspection) fill(inf *flate.Inflater, format flate.Format, rest int) {
	rep.CompressedSize = inf.TotalIn()
	rep.DecompressedSize = inf.TotalOut()
	rep.TrailingBytes = rest
	rep.DictID = inf.DictID()
	rep.Header = inf.Header()
	rep.Format = format.String()
	if format == flate.FormatAuto {
		rep.Format = flate.FormatZlib.String()
		if rep.Header != nil {
			rep.Format = flate.FormatGzip.String()
		}
	}
}

func runChecksum(cfg *config.Config, stdout io.Writer) error {
	cmd := cfg.CLI.Checksum

	in, err := openInput(cmd.Input, nil)
	if err != nil {
		return err
	}
	defer in.Close()

	adler, crc := parallelChecksum(in.data, cmd.Jobs)
	fmt.Fprintf(stdout, "adler32 %08x  crc32 %08x  %s\n", adler, crc, in.name)

	return nil
}

// parallelChecksum splits data into jobs pieces, checksums them
// concurrently and combines the results.
func parallelChecksum(data []byte, jobs int) (adler, crc uint32) {
	if jobs > len(data) {
		jobs = len(data)
	}
	if jobs <= 1 {
		return checksum.Adler32(checksum.Adler32Init, data), checksum.CRC32(0, data)
	}

	size := (len(data) + jobs - 1) / jobs
	type part struct {
		adler, crc uint32
		n          int64
	}
	parts := make([]part, jobs)

	var wg sync.WaitGroup
	for i := range parts {
		lo := i * size
		hi := lo + size
		if lo > len(data) {
			lo = len(data)
		}
		if hi > len(data) {
			hi = len(data)
		}
		wg.Add(1)
		go func(p *part, piece []byte) {
			defer wg.Done()
			p.adler = checksum.Adler32(checksum.Adler32Init, piece)
			p.crc = checksum.CRC32(0, piece)
			p.n = int64(len(piece))
		}(&parts[i], data[lo:hi])
	}
	wg.Wait()

	adler, crc = parts[0].adler, parts[0].crc
	for _, p := range parts[1:] {
		adler = checksum.Adler32Combine(adler, p.adler, p.n)
		crc = checksum.CRC32Combine(crc, p.crc, p.n)
	}

	return adler, crc
}
