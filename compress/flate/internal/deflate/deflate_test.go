// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"hash/adler32"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/intel/fastzlib/compress/internal/container"
)

func opticks(t testing.TB) (data []byte) {
	data, _ = os.ReadFile(filepath.Join(runtime.GOROOT(), "src", "testdata", "Isaac.Newton-Opticks.txt"))
	if data == nil {
		t.Skip("skip for no test data file")
	}
	return data
}

// corpus returns compressible text-like data that does not depend on GOROOT.
func corpus(n int, seed int64) []byte {
	words := []string{"light", "ray", "prism", "colour", "the", "of", "and", "refraction", "glass", "\n"}
	r := rand.New(rand.NewSource(seed))
	var buf bytes.Buffer
	for buf.Len() < n {
		buf.WriteString(words[r.Intn(len(words))])
		buf.WriteByte(' ')
	}
	return buf.Bytes()[:n]
}

func randomBytes(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

// compressAll feeds data in chunks of chunk bytes and finishes the stream.
func compressAll(t testing.TB, cfg Config, dict []byte, data []byte, chunk int) []byte {
	c, err := NewCompressor(cfg)
	require.NoError(t, err)
	if dict != nil {
		require.NoError(t, c.SetDictionary(dict))
	}
	return drive(t, c, data, chunk, 4096)
}

func drive(t testing.TB, c *Compressor, data []byte, chunk, outSize int) []byte {
	var out []byte
	buf := make([]byte, outSize)
	for len(data) > 0 {
		n := chunk
		if n > len(data) {
			n = len(data)
		}
		piece := data[:n]
		for len(piece) > 0 {
			nIn, nOut, err := c.Deflate(piece, buf, NoFlush)
			require.NoError(t, err)
			out = append(out, buf[:nOut]...)
			piece = piece[nIn:]
		}
		data = data[n:]
	}
	for {
		_, nOut, err := c.Deflate(nil, buf, Finish)
		out = append(out, buf[:nOut]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.True(t, c.Finished())
	return out
}

func inflateRaw(t testing.TB, comp, dict []byte) []byte {
	r := flate.NewReaderDict(bytes.NewReader(comp), dict)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func TestEmptyZlibFixture(t *testing.T) {
	out := compressAll(t, Config{Level: DefaultCompression, Wrap: WrapZlib}, nil, nil, 1)
	require.Equal(t, []byte{0x78, 0x9c, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01}, out)
}

func TestHelloZlibFixture(t *testing.T) {
	out := compressAll(t, Config{Level: DefaultCompression, Wrap: WrapZlib}, nil, []byte("hello"), 5)
	require.Equal(t, []byte{0x78, 0x9c, 0xcb, 0x48, 0xcd, 0xc9, 0xc9, 0x07, 0x00, 0x06, 0x2c, 0x02, 0x15}, out)
}

func TestRoundTripLevels(t *testing.T) {
	sources := map[string][]byte{
		"empty":  {},
		"byte":   {'x'},
		"text":   corpus(200*1024, 1),
		"random": randomBytes(70*1024, 2),
		"zeros":  make([]byte, 100*1024),
	}
	for name, src := range sources {
		for level := 0; level <= 9; level++ {
			t.Run(name+"/level="+strconv.Itoa(level), func(t *testing.T) {
				comp := compressAll(t, Config{Level: level}, nil, src, 1<<20)
				require.Equal(t, src, inflateRaw(t, comp, nil))
			})
		}
	}
}

func TestRoundTripOpticks(t *testing.T) {
	data := opticks(t)
	for _, level := range []int{1, 6, 9} {
		comp := compressAll(t, Config{Level: level, Wrap: WrapZlib}, nil, data, 32*1024)
		r, err := zlib.NewReader(bytes.NewReader(comp))
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		require.Equal(t, data, got)
	}
}

func TestRoundTripWindowAndMemLevel(t *testing.T) {
	src := corpus(150*1024, 3)
	for wbits := MinWindowBits; wbits <= MaxWindowBits; wbits++ {
		for _, mem := range []int{1, 8, 9} {
			for _, level := range []int{1, 4, 9} {
				cfg := Config{Level: level, WindowBits: wbits, MemLevel: mem, Wrap: WrapZlib}
				comp := compressAll(t, cfg, nil, src, 10000)
				r, err := zlib.NewReader(bytes.NewReader(comp))
				require.NoError(t, err)
				got, err := io.ReadAll(r)
				require.NoError(t, err, "wbits=%d mem=%d level=%d", wbits, mem, level)
				require.Equal(t, src, got)
			}
		}
	}
}

func TestWindowBits8Promoted(t *testing.T) {
	c, err := NewCompressor(Config{Level: 6, WindowBits: 8, Wrap: WrapZlib})
	require.NoError(t, err)
	require.Equal(t, 9, c.WindowBits())
	out := drive(t, c, []byte("abc"), 3, 64)
	require.Equal(t, byte(0x18), out[0])
}

func TestStrategies(t *testing.T) {
	src := append(corpus(64*1024, 4), make([]byte, 5000)...)
	src = append(src, randomBytes(3000, 5)...)
	for _, s := range []Strategy{DefaultStrategy, Filtered, HuffmanOnly, RLE, Fixed} {
		t.Run(s.String(), func(t *testing.T) {
			comp := compressAll(t, Config{Level: 6, Strategy: s}, nil, src, 7777)
			require.Equal(t, src, inflateRaw(t, comp, nil))
		})
	}
}

func TestChunkingOneByte(t *testing.T) {
	src := corpus(20*1024, 6)
	for _, level := range []int{0, 1, 6, 9} {
		comp := compressAll(t, Config{Level: level, Wrap: WrapGzip}, nil, src, 1)
		r, err := gzip.NewReader(bytes.NewReader(comp))
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		require.Equal(t, src, got)
	}
}

func TestSmallOutputBuffer(t *testing.T) {
	src := corpus(50*1024, 7)
	c, err := NewCompressor(Config{Level: 9, Wrap: WrapZlib})
	require.NoError(t, err)
	comp := drive(t, c, src, 1<<20, 1)
	r, err := zlib.NewReader(bytes.NewReader(comp))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestStoredOverhead(t *testing.T) {
	for _, n := range []int{0, 1, 65534, 65535, 65536, 200000} {
		src := randomBytes(n, int64(n))
		comp := compressAll(t, Config{Level: NoCompression}, nil, src, 1<<20)
		require.Equal(t, n+5*(n/maxStored+1), len(comp), "n=%d", n)
		require.Equal(t, src, inflateRaw(t, comp, nil))

		zcomp := compressAll(t, Config{Level: NoCompression, Wrap: WrapZlib}, nil, src, 1<<20)
		require.Equal(t, len(comp)+6, len(zcomp))
	}
}

func TestRepeatedByteLevel9(t *testing.T) {
	src := bytes.Repeat([]byte{'A'}, 100000)
	comp := compressAll(t, Config{Level: BestCompression, Wrap: WrapZlib}, nil, src, 1<<20)
	require.Less(t, len(comp), 200)

	sum := adler32.Checksum(src)
	trailer := comp[len(comp)-4:]
	require.Equal(t, []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}, trailer)

	r, err := zlib.NewReader(bytes.NewReader(comp))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestDictionary(t *testing.T) {
	dict := corpus(4096, 8)
	src := append(append([]byte{}, dict[100:2000]...), corpus(3000, 9)...)

	comp := compressAll(t, Config{Level: 6, Wrap: WrapZlib}, dict, src, 1<<20)
	// FDICT and DICTID
	require.NotZero(t, comp[1]&0x20)
	sum := adler32.Checksum(dict)
	require.Equal(t, []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}, comp[2:6])
	r, err := zlib.NewReaderDict(bytes.NewReader(comp), dict)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, src, got)

	without := compressAll(t, Config{Level: 6}, nil, src, 1<<20)
	raw := compressAll(t, Config{Level: 6}, dict, src, 1<<20)
	require.Less(t, len(raw), len(without))
	require.Equal(t, src, inflateRaw(t, raw, dict))

	// a dictionary longer than the window keeps its tail
	big := corpus(100*1024, 10)
	raw = compressAll(t, Config{Level: 6, WindowBits: 10}, big, big[len(big)-500:], 1<<20)
	require.Equal(t, big[len(big)-500:], inflateRaw(t, raw, big))
}

func TestGzipHeader(t *testing.T) {
	h := &container.Header{
		Name:    "opticks.txt",
		Comment: "corpus",
		ModTime: time.Unix(1500000000, 0),
		OS:      container.OSUnix,
		Extra:   []byte("xy\x00\x00"),
		HCRC:    true,
	}
	src := corpus(10000, 11)
	comp := compressAll(t, Config{Level: 9, Wrap: WrapGzip, Header: h}, nil, src, 1<<20)
	r, err := gzip.NewReader(bytes.NewReader(comp))
	require.NoError(t, err)
	require.Equal(t, "opticks.txt", r.Name)
	require.Equal(t, "corpus", r.Comment)
	require.Equal(t, byte(2), comp[8]) // XFL for level 9
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestFlushModes(t *testing.T) {
	src := corpus(30000, 12)
	for _, flush := range []Flush{PartialFlush, SyncFlush, FullFlush, Block} {
		t.Run(flush.String(), func(t *testing.T) {
			c, err := NewCompressor(Config{Level: 6})
			require.NoError(t, err)
			buf := make([]byte, 1<<16)
			var out []byte
			for i := 0; i < len(src); i += 10000 {
				piece := src[i : i+10000]
				for {
					nIn, nOut, err := c.Deflate(piece, buf, flush)
					require.NoError(t, err)
					out = append(out, buf[:nOut]...)
					piece = piece[nIn:]
					if len(piece) == 0 && nOut < len(buf) {
						break
					}
				}
				if flush == SyncFlush || flush == FullFlush {
					require.Equal(t, []byte{0, 0, 0xff, 0xff}, out[len(out)-4:])
					// everything so far is decodable
					r := flate.NewReader(bytes.NewReader(out))
					got := make([]byte, i+10000)
					_, err := io.ReadFull(r, got)
					require.NoError(t, err)
					require.Equal(t, src[:i+10000], got)
				}
			}
			for {
				_, nOut, err := c.Deflate(nil, buf, Finish)
				out = append(out, buf[:nOut]...)
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
			}
			require.Equal(t, src, inflateRaw(t, out, nil))
		})
	}
}

func TestFullFlushRestart(t *testing.T) {
	first := corpus(5000, 13)
	second := corpus(5000, 13) // identical, would match without the reset
	c, err := NewCompressor(Config{Level: 6})
	require.NoError(t, err)
	buf := make([]byte, 1<<16)
	nIn, nOut, err := c.Deflate(first, buf, FullFlush)
	require.NoError(t, err)
	require.Equal(t, len(first), nIn)
	mark := nOut
	out := append([]byte{}, buf[:nOut]...)
	_, nOut, err = c.Deflate(second, buf, Finish)
	require.Equal(t, io.EOF, err)
	out = append(out, buf[:nOut]...)

	// the tail decodes on its own
	require.Equal(t, second, inflateRaw(t, out[mark:], nil))
	require.Equal(t, append(first, second...), inflateRaw(t, out, nil))
}

func TestParams(t *testing.T) {
	parts := [][]byte{corpus(40000, 14), randomBytes(20000, 15), corpus(40000, 16)}
	type step struct {
		level    int
		strategy Strategy
	}
	for _, steps := range [][]step{
		{{0, DefaultStrategy}, {9, DefaultStrategy}, {1, DefaultStrategy}},
		{{9, DefaultStrategy}, {0, DefaultStrategy}, {6, Filtered}},
		{{1, DefaultStrategy}, {6, HuffmanOnly}, {6, RLE}},
	} {
		c, err := NewCompressor(Config{Level: steps[0].level, Strategy: steps[0].strategy})
		require.NoError(t, err)
		buf := make([]byte, 1<<17)
		var out, want []byte
		for i, part := range parts {
			if i > 0 {
				if c.ParamsNeedBlock(steps[i].level, steps[i].strategy) {
					for {
						_, nOut, err := c.Deflate(nil, buf, Block)
						if err == ErrBuffer {
							break
						}
						require.NoError(t, err)
						out = append(out, buf[:nOut]...)
						if nOut < len(buf) {
							break
						}
					}
				}
				require.NoError(t, c.SetParams(steps[i].level, steps[i].strategy))
			}
			for len(part) > 0 {
				nIn, nOut, err := c.Deflate(part, buf, NoFlush)
				require.NoError(t, err)
				out = append(out, buf[:nOut]...)
				want = append(want, part[:nIn]...)
				part = part[nIn:]
			}
		}
		for {
			_, nOut, err := c.Deflate(nil, buf, Finish)
			out = append(out, buf[:nOut]...)
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
		}
		require.Equal(t, want, inflateRaw(t, out, nil))
	}
}

func TestBound(t *testing.T) {
	for _, cfg := range []Config{
		{Level: 0},
		{Level: 1, Wrap: WrapZlib},
		{Level: 6, Wrap: WrapGzip},
		{Level: 9, WindowBits: 10, MemLevel: 2},
		{Level: 6, Strategy: HuffmanOnly},
	} {
		for _, n := range []int{0, 1, 100, 70000} {
			src := randomBytes(n, int64(n)+1)
			c, err := NewCompressor(cfg)
			require.NoError(t, err)
			bound := c.Bound(int64(n))
			comp := drive(t, c, src, 1<<20, 4096)
			require.LessOrEqual(t, int64(len(comp)), bound, "cfg=%+v n=%d", cfg, n)
		}
	}
}

func TestRandomDataFallsBackToStored(t *testing.T) {
	src := randomBytes(50000, 17)
	comp := compressAll(t, Config{Level: 6}, nil, src, 1<<20)
	require.Less(t, len(comp), len(src)+len(src)/100)
}

func TestMisuse(t *testing.T) {
	_, err := NewCompressor(Config{Level: 10})
	require.ErrorIs(t, err, ErrStream)
	_, err = NewCompressor(Config{WindowBits: 16})
	require.ErrorIs(t, err, ErrStream)
	_, err = NewCompressor(Config{MemLevel: 10})
	require.ErrorIs(t, err, ErrStream)

	c, err := NewCompressor(Config{Level: 6, Wrap: WrapGzip})
	require.NoError(t, err)
	require.ErrorIs(t, c.SetDictionary([]byte("dict")), ErrStream)

	_, _, err = c.Deflate([]byte("abc"), nil, NoFlush)
	require.ErrorIs(t, err, ErrBuffer)

	buf := make([]byte, 1024)
	_, _, err = c.Deflate([]byte("abc"), buf, Finish)
	require.Equal(t, io.EOF, err)
	_, _, err = c.Deflate(nil, buf, NoFlush)
	require.ErrorIs(t, err, ErrStream)
	_, _, err = c.Deflate(nil, buf, Finish)
	require.Equal(t, io.EOF, err)
	require.ErrorIs(t, c.SetHeader(&container.Header{}), ErrStream)

	z, err := NewCompressor(Config{Level: 6, Wrap: WrapZlib})
	require.NoError(t, err)
	_, _, err = z.Deflate([]byte("abc"), buf, SyncFlush)
	require.NoError(t, err)
	// same flush again without input cannot make progress
	_, _, err = z.Deflate(nil, buf, SyncFlush)
	require.ErrorIs(t, err, ErrBuffer)
	require.ErrorIs(t, z.SetDictionary([]byte("late")), ErrStream)
}

func TestReset(t *testing.T) {
	src := corpus(10000, 18)
	c, err := NewCompressor(Config{Level: 6, Wrap: WrapZlib})
	require.NoError(t, err)
	first := drive(t, c, src, 1<<20, 4096)
	c.Reset()
	require.Zero(t, c.TotalIn())
	second := drive(t, c, src, 1<<20, 4096)
	require.Equal(t, first, second)
	require.Equal(t, int64(len(src)), c.TotalIn())
	require.Equal(t, int64(len(second)), c.TotalOut())
	require.Equal(t, adler32.Checksum(src), c.Check())
}

func BenchmarkCompress(b *testing.B) {
	data := opticks(b)
	for _, lvl := range []int{1, 6, 9} {
		for i := 4; i <= 64; i *= 4 {
			input := data[:i*1024]
			subfix := "@size=" + strconv.Itoa(i) + "KB,level=" + strconv.Itoa(lvl)
			b.Run("fastzlib"+subfix, func(b *testing.B) {
				c, _ := NewCompressor(Config{Level: lvl})
				out := make([]byte, 128*1024)
				b.SetBytes(int64(len(input)))
				for i := 0; i < b.N; i++ {
					c.Reset()
					c.Deflate(input, out, Finish)
				}
			})

			sw, _ := flate.NewWriter(io.Discard, lvl)
			b.Run("std"+subfix, func(b *testing.B) {
				b.SetBytes(int64(len(input)))
				for i := 0; i < b.N; i++ {
					sw.Write(input)
					sw.Close()
					sw.Reset(io.Discard)
				}
			})
		}
	}
}
