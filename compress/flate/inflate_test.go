// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"crypto/rand"
	"errors"
	"hash/adler32"
	"io"
	mrand "math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	kgzip "github.com/klauspost/compress/gzip"
	kzlib "github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opticks(t testing.TB) (data []byte) {
	data, _ = os.ReadFile(filepath.Join(runtime.GOROOT(), "src", "testdata", "Isaac.Newton-Opticks.txt"))
	if data == nil {
		t.Skip("skip for no test data file")
	}
	return data
}

func corpus(n int, seed int64) []byte {
	words := []string{"light", "ray", "prism", "colour", "the", "of", "and", "refraction", "glass", "\n"}
	r := mrand.New(mrand.NewSource(seed))
	var buf bytes.Buffer
	for buf.Len() < n {
		buf.WriteString(words[r.Intn(len(words))])
		buf.WriteByte(' ')
	}
	return buf.Bytes()[:n]
}

func randomBytes(n int, seed int64) []byte {
	b := make([]byte, n)
	mrand.New(mrand.NewSource(seed)).Read(b)
	return b
}

// compress produces a raw stream with the standard library.
func compress(data []byte) []byte {
	buf := bytes.NewBuffer(nil)
	w, _ := flate.NewWriter(buf, flate.DefaultCompression)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func deflateAll(t testing.TB, data []byte, opts ...Option) []byte {
	d, err := NewDeflater(opts...)
	require.NoError(t, err)
	require.NoError(t, d.PushLast(data))
	return append([]byte(nil), d.Result()...)
}

// inflateAll drives Inflate with input and output windows of the given
// sizes.
func inflateAll(inf *Inflater, comp []byte, inChunk, outChunk int) ([]byte, error) {
	out := []byte{}
	buf := make([]byte, outChunk)
	for {
		n := inChunk
		if n > len(comp) {
			n = len(comp)
		}
		nIn, nOut, err := inf.Inflate(comp[:n], buf, NoFlush)
		out = append(out, buf[:nOut]...)
		comp = comp[nIn:]
		switch {
		case err == io.EOF:
			return out, nil
		case errors.Is(err, ErrBuffer):
			if len(comp) == 0 {
				return out, io.ErrUnexpectedEOF
			}
		case err != nil:
			return out, err
		}
	}
}

func inflateBytes(comp []byte, opts ...Option) ([]byte, error) {
	inf, err := NewInflater(opts...)
	if err != nil {
		return nil, err
	}
	return inflateAll(inf, comp, len(comp)+1, 64<<10)
}

func TestReader(t *testing.T) {
	textfile := opticks(t)
	input := compress(textfile)
	r := NewReader(bytes.NewReader(input), WithFormat(FormatRaw))
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, textfile, data)
}

func TestReaderLastBytes(t *testing.T) {
	restSizes := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	testdata := corpus(4096, 1)
	for i := 0; i < len(restSizes); i++ {
		input := compress(testdata[:256*i])
		rdsize := restSizes[i]

		rddata := make([]byte, rdsize)
		rand.Read(rddata)
		input = append(input, rddata...)
		br := bufio.NewReader(bytes.NewReader(input))
		r := NewReader(br, WithFormat(FormatRaw))
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.Equal(t, testdata[:256*i], data)

		rddataTest := make([]byte, rdsize)
		n, err := br.Read(rddataTest)
		require.Equal(t, rddata, rddataTest, "rest bytes wrong: %v %d", err, n)
	}
}

func TestReaderTruncated(t *testing.T) {
	src := corpus(50000, 2)
	comp := deflateAll(t, src)
	for _, cut := range []int{1, 2, 10, len(comp) / 2, len(comp) - 1} {
		r := NewReader(bytes.NewReader(comp[:cut]))
		_, err := io.ReadAll(r)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF, "cut=%d", cut)
	}
}

func TestReaderReset(t *testing.T) {
	a, b := corpus(3000, 3), corpus(5000, 4)
	r := NewReader(bytes.NewReader(deflateAll(t, a)))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, a, got)

	require.NoError(t, r.(Resetter).Reset(bytes.NewReader(deflateAll(t, b)), nil))
	got, err = io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, b, got)

	dict := corpus(1000, 5)
	require.NoError(t, r.(Resetter).Reset(bytes.NewReader(deflateAll(t, b, WithDictionary(dict))), dict))
	got, err = io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, b, got)
}

func TestReaderInvalidOptions(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), WithWindowBits(16))
	_, err := r.Read(make([]byte, 10))
	require.ErrorIs(t, err, ErrStream)
}

func TestRoundTrip(t *testing.T) {
	sources := map[string][]byte{
		"empty":  {},
		"text":   corpus(100*1024, 6),
		"random": randomBytes(40*1024, 7),
		"zeros":  make([]byte, 70*1024),
	}
	for name, src := range sources {
		for _, format := range []Format{FormatRaw, FormatZlib, FormatGzip} {
			for level := 0; level <= 9; level++ {
				t.Run(name+"/"+format.String()+"/level="+strconv.Itoa(level), func(t *testing.T) {
					comp := deflateAll(t, src, WithFormat(format), WithLevel(level))
					got, err := inflateBytes(comp, WithFormat(format))
					require.NoError(t, err)
					require.Equal(t, src, got)
				})
			}
		}
	}
}

func TestRoundTripWindowBits(t *testing.T) {
	src := corpus(120*1024, 8)
	for wbits := MinWindowBits; wbits <= MaxWindowBits; wbits++ {
		comp := deflateAll(t, src, WithWindowBits(wbits), WithLevel(9))
		got, err := inflateBytes(comp, WithWindowBits(wbits))
		require.NoError(t, err, "wbits=%d", wbits)
		require.Equal(t, src, got)
	}
	// a smaller decoder window than the stream needs is rejected
	comp := deflateAll(t, src)
	_, err := inflateBytes(comp, WithWindowBits(10))
	require.ErrorIs(t, err, ErrWindowSize)
}

func TestChunking(t *testing.T) {
	src := corpus(30*1024, 9)
	for _, format := range []Format{FormatRaw, FormatZlib, FormatGzip} {
		comp := deflateAll(t, src, WithFormat(format), WithHeader(gzipHeader(format)))
		for _, sizes := range [][2]int{{1, 1}, {1, 64 << 10}, {64 << 10, 1}, {7, 300}, {13, 259}} {
			inf, err := NewInflater(WithFormat(format))
			require.NoError(t, err)
			got, err := inflateAll(inf, comp, sizes[0], sizes[1])
			require.NoError(t, err, "%v %v", format, sizes)
			require.Equal(t, src, got)
		}
	}
}

func gzipHeader(format Format) *Header {
	if format != FormatGzip {
		return nil
	}
	return &Header{Name: "a.txt", Comment: "chunked", Extra: []byte{1, 2, 3, 4}, HCRC: true}
}

func TestZlibFixtures(t *testing.T) {
	require.Equal(t, []byte{0x78, 0x9c, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01}, deflateAll(t, nil))
	hello := []byte{0x78, 0x9c, 0xcb, 0x48, 0xcd, 0xc9, 0xc9, 0x07, 0x00, 0x06, 0x2c, 0x02, 0x15}
	require.Equal(t, hello, deflateAll(t, []byte("hello")))

	got, err := inflateBytes(hello)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestLevel9RepeatedByte(t *testing.T) {
	src := bytes.Repeat([]byte{'A'}, 100000)
	comp := deflateAll(t, src, WithLevel(9))
	require.Less(t, len(comp), 200)
	inf, err := NewInflater()
	require.NoError(t, err)
	got, err := inflateAll(inf, comp, len(comp), 1<<20)
	require.NoError(t, err)
	require.Equal(t, src, got)
	require.Equal(t, adler32.Checksum(src), inf.check)
}

// bitWriter builds hand made streams, LSB first.
type bitWriter struct {
	buf  []byte
	acc  uint64
	nacc uint
}

func (w *bitWriter) bits(v uint64, n uint) *bitWriter {
	w.acc |= v << w.nacc
	w.nacc += n
	for w.nacc >= 8 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc >>= 8
		w.nacc -= 8
	}
	return w
}

// huff writes a Huffman code, most significant bit first.
func (w *bitWriter) huff(code uint64, n uint) *bitWriter {
	var rev uint64
	for i := uint(0); i < n; i++ {
		rev = rev<<1 | code>>i&1
	}
	return w.bits(rev, n)
}

func (w *bitWriter) bytes(pad int) []byte {
	if w.nacc > 0 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc, w.nacc = 0, 0
	}
	return append(w.buf, make([]byte, pad)...)
}

// fixed literal codes for bytes below 144
func fixedLit(b byte) (uint64, uint) { return 0x30 + uint64(b), 8 }

func TestFixedBlock(t *testing.T) {
	w := &bitWriter{}
	w.bits(1, 1).bits(1, 2)
	w.huff(fixedLit('a'))
	w.huff(1, 7) // length 3
	w.huff(0, 5) // distance 1
	w.huff(0, 7) // end of block
	got, err := inflateBytes(w.bytes(0), WithFormat(FormatRaw))
	require.NoError(t, err)
	require.Equal(t, "aaaa", string(got))
}

func TestDataErrors(t *testing.T) {
	dynamic := func() *bitWriter { return (&bitWriter{}).bits(1, 1).bits(2, 2) }
	overSubscribed := dynamic().bits(0, 5).bits(0, 5).bits(0, 4).
		bits(1, 3).bits(1, 3).bits(1, 3).bits(0, 3).bytes(4)
	farBack := (&bitWriter{}).bits(1, 1).bits(1, 2).huff(1, 7).huff(0, 5).huff(0, 7).bytes(0)
	badLit := (&bitWriter{}).bits(1, 1).bits(1, 2).huff(0xc6, 8).bytes(10)
	badDist := (&bitWriter{}).bits(1, 1).bits(1, 2).huff(fixedLit('a')).huff(1, 7).huff(30, 5).bytes(0)

	hello := deflateAll(t, []byte("hello"))
	badAdler := append([]byte(nil), hello...)
	badAdler[len(badAdler)-1] ^= 1

	gz := deflateAll(t, []byte("hello"), WithFormat(FormatGzip))
	badCRC := append([]byte(nil), gz...)
	badCRC[len(badCRC)-8] ^= 1
	badSize := append([]byte(nil), gz...)
	badSize[len(badSize)-1] ^= 1
	hcrc := deflateAll(t, []byte("hello"), WithFormat(FormatGzip), WithHeader(&Header{HCRC: true}))
	hcrc[10] ^= 1

	for _, tc := range []struct {
		name   string
		input  []byte
		format Format
		want   *Error
	}{
		{"block type", []byte{0x07}, FormatRaw, ErrInvalidBlockType},
		{"stored lengths", []byte{0x01, 0, 0, 0, 0}, FormatRaw, ErrInvalidStoredLengths},
		{"too many symbols", []byte{0xf5, 0, 0}, FormatRaw, ErrTooManySymbols},
		{"code lengths", overSubscribed, FormatRaw, ErrInvalidCodeLengths},
		{"missing end of block", append([]byte{0x05}, make([]byte, 40)...), FormatRaw, ErrMissingEndOfBlock},
		{"distance too far", farBack, FormatRaw, ErrInvalidDistance},
		{"literal code", badLit, FormatRaw, ErrInvalidLitLenCode},
		{"distance code", badDist, FormatRaw, ErrInvalidDistCode},
		{"header check", []byte{0x78, 0x9d, 0x03, 0x00}, FormatZlib, ErrHeaderCheck},
		{"method", []byte{0x77, 0x09, 0x03, 0x00}, FormatZlib, ErrUnknownMethod},
		{"window", []byte{0x88, 0x1c, 0x03, 0x00}, FormatZlib, ErrWindowSize},
		{"gzip flags", []byte{0x1f, 0x8b, 0x08, 0xe0, 0, 0, 0, 0, 0, 3}, FormatGzip, ErrHeaderFlags},
		{"gzip method", []byte{0x1f, 0x8b, 0x07, 0x00}, FormatGzip, ErrUnknownMethod},
		{"not gzip", hello, FormatGzip, ErrHeaderCheck},
		{"adler", badAdler, FormatZlib, ErrDataCheck},
		{"crc", badCRC, FormatGzip, ErrDataCheck},
		{"isize", badSize, FormatGzip, ErrLengthCheck},
		{"header crc", hcrc, FormatGzip, ErrHeaderCRC},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := inflateBytes(tc.input, WithFormat(tc.format))
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, ErrData)
			var e *Error
			require.True(t, errors.As(err, &e))
			assert.GreaterOrEqual(t, e.Offset, int64(0))
			assert.LessOrEqual(t, e.Offset, int64(len(tc.input)))
			assert.Equal(t, tc.want == ErrDataCheck || tc.want == ErrLengthCheck || tc.want == ErrHeaderCRC, e.IsChecksum())
		})
	}
}

func TestErrorsAreSticky(t *testing.T) {
	inf, err := NewInflater(WithFormat(FormatRaw))
	require.NoError(t, err)
	buf := make([]byte, 10)
	_, _, err = inf.Inflate([]byte{0x07}, buf, NoFlush)
	require.ErrorIs(t, err, ErrInvalidBlockType)
	require.Equal(t, "BAD", inf.Mode().String())
	_, _, again := inf.Inflate(compress([]byte("x")), buf, NoFlush)
	require.Equal(t, err, again)
	require.Equal(t, "flate: data error: invalid block type (offset 1)", err.Error())
}

func TestBitFlips(t *testing.T) {
	src := corpus(2000, 10)
	for _, format := range []Format{FormatZlib, FormatGzip} {
		comp := deflateAll(t, src, WithFormat(format))
		for bit := 0; bit < len(comp)*8; bit += 3 {
			bad := append([]byte(nil), comp...)
			bad[bit/8] ^= 1 << (bit % 8)
			got, err := inflateBytes(bad, WithFormat(format))
			if err == nil {
				require.Equal(t, src, got, "bit %d decoded to wrong plaintext", bit)
			}
		}
	}
}

func TestTrailingDataLeftUnread(t *testing.T) {
	src := corpus(5000, 11)
	for _, format := range []Format{FormatRaw, FormatZlib, FormatGzip} {
		comp := deflateAll(t, src, WithFormat(format))
		input := append(append([]byte(nil), comp...), "TRAILER"...)
		inf, err := NewInflater(WithFormat(format))
		require.NoError(t, err)
		buf := make([]byte, 1<<20)
		nIn, nOut, err := inf.Inflate(input, buf, NoFlush)
		require.Equal(t, io.EOF, err)
		require.Equal(t, len(comp), nIn, format.String())
		require.Equal(t, src, buf[:nOut])
		require.Equal(t, int64(len(comp)), inf.TotalIn())
		require.Equal(t, int64(len(src)), inf.TotalOut())

		// the end is reported again without consuming anything
		nIn, _, err = inf.Inflate(input[nIn:], buf, NoFlush)
		require.Equal(t, io.EOF, err)
		require.Zero(t, nIn)
	}
}

func TestFormatAuto(t *testing.T) {
	src := corpus(8000, 12)
	for _, format := range []Format{FormatZlib, FormatGzip} {
		got, err := inflateBytes(deflateAll(t, src, WithFormat(format)), WithFormat(FormatAuto))
		require.NoError(t, err)
		require.Equal(t, src, got)
	}
	_, err := inflateBytes(compress(src), WithFormat(FormatAuto))
	require.ErrorIs(t, err, ErrData)
}

func TestGzipHeaderParsed(t *testing.T) {
	h := &Header{
		Text:    true,
		Name:    "mémoire.txt",
		Comment: "latin-1",
		Extra:   []byte("AB\x02\x00xy"),
		ModTime: time.Unix(1700000000, 0),
		OS:      11,
		HCRC:    true,
	}
	src := corpus(3000, 13)
	comp := deflateAll(t, src, WithFormat(FormatGzip), WithHeader(h), WithLevel(1))

	inf, err := NewInflater(WithFormat(FormatGzip))
	require.NoError(t, err)
	got, err := inflateAll(inf, comp, 1, 100)
	require.NoError(t, err)
	require.Equal(t, src, got)

	parsed := inf.Header()
	require.NotNil(t, parsed)
	assert.True(t, parsed.Done)
	assert.True(t, parsed.Text)
	assert.True(t, parsed.HCRC)
	assert.Equal(t, h.Name, parsed.Name)
	assert.Equal(t, h.Comment, parsed.Comment)
	assert.Equal(t, h.Extra, parsed.Extra)
	assert.Equal(t, byte(11), parsed.OS)
	assert.Equal(t, byte(4), parsed.XFlags)
	assert.True(t, h.ModTime.Equal(parsed.ModTime))

	// the standard library agrees
	r, err := gzip.NewReader(bytes.NewReader(comp))
	require.NoError(t, err)
	assert.Equal(t, h.Name, r.Name)
}

func TestNeedDictionary(t *testing.T) {
	dict := corpus(2000, 14)
	src := append(append([]byte(nil), dict[500:1500]...), corpus(1000, 15)...)
	comp := deflateAll(t, src, WithDictionary(dict))

	inf, err := NewInflater()
	require.NoError(t, err)
	buf := make([]byte, 1<<16)
	nIn, nOut, err := inf.Inflate(comp, buf, NoFlush)
	require.ErrorIs(t, err, ErrNeedDict)
	require.Equal(t, 6, nIn)
	require.Zero(t, nOut)
	require.Equal(t, adler32.Checksum(dict), inf.DictID())
	require.Equal(t, "DICT", inf.Mode().String())

	require.ErrorIs(t, inf.SetDictionary([]byte("wrong")), ErrIncorrectDictionary)
	require.NoError(t, inf.SetDictionary(dict))
	got, err := inflateAll(inf, comp[nIn:], 1<<20, 1<<16)
	require.NoError(t, err)
	require.Equal(t, src, got)

	// configured up front
	got, err = inflateBytes(comp, WithDictionary(dict))
	require.NoError(t, err)
	require.Equal(t, src, got)

	_, err = inflateBytes(comp, WithDictionary([]byte("wrong")))
	require.ErrorIs(t, err, ErrIncorrectDictionary)

	// raw streams take the dictionary silently
	raw := deflateAll(t, src, WithFormat(FormatRaw), WithDictionary(dict))
	got, err = inflateBytes(raw, WithFormat(FormatRaw), WithDictionary(dict))
	require.NoError(t, err)
	require.Equal(t, src, got)
	require.Equal(t, src, inflateStd(t, raw, dict))

	// stdlib zlib with the same dictionary
	zr, err := zlib.NewReaderDict(bytes.NewReader(comp), dict)
	require.NoError(t, err)
	got, err = io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func inflateStd(t testing.TB, raw, dict []byte) []byte {
	got, err := io.ReadAll(flate.NewReaderDict(bytes.NewReader(raw), dict))
	require.NoError(t, err)
	return got
}

func TestBlockFlushStopsAtBoundary(t *testing.T) {
	first, second := corpus(3000, 16), corpus(3000, 17)
	d, err := NewDeflater(WithFormat(FormatRaw))
	require.NoError(t, err)
	require.NoError(t, d.Push(first, FullFlush))
	mark := len(d.Result())
	require.NoError(t, d.PushLast(second))
	comp := d.Result()

	inf, err := NewInflater(WithFormat(FormatRaw))
	require.NoError(t, err)
	buf := make([]byte, 1<<16)
	nIn, nOut, err := inf.Inflate(comp, buf, Block)
	require.NoError(t, err)
	require.Equal(t, first, buf[:nOut])
	require.Equal(t, "TYPE", inf.Mode().String())
	require.Less(t, nIn, mark)
}

func TestSync(t *testing.T) {
	first, second := corpus(6000, 18), corpus(6000, 19)
	d, err := NewDeflater(WithFormat(FormatRaw))
	require.NoError(t, err)
	require.NoError(t, d.Push(first, FullFlush))
	mark := len(d.Result())
	require.NoError(t, d.PushLast(second))
	comp := append([]byte(nil), d.Result()...)

	// lose the first part of the stream
	damaged := append(randomBytes(100, 20), comp[mark-4:]...)
	inf, err := NewInflater(WithFormat(FormatRaw))
	require.NoError(t, err)
	n, err := inf.Sync(damaged)
	require.NoError(t, err)
	require.Equal(t, 104, n)
	got, err := inflateAll(inf, damaged[n:], 1<<20, 1<<16)
	require.NoError(t, err)
	require.Equal(t, second, got)

	inf, err = NewInflater(WithFormat(FormatRaw))
	require.NoError(t, err)
	_, err = inf.Sync([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrNoFlushPoint)
	_, err = inf.Sync(nil)
	require.ErrorIs(t, err, ErrBuffer)
}

func TestInteropStandardLibrary(t *testing.T) {
	src := corpus(80000, 21)

	var zbuf, gbuf bytes.Buffer
	zw := zlib.NewWriter(&zbuf)
	zw.Write(src)
	zw.Close()
	gw := gzip.NewWriter(&gbuf)
	gw.Name = "std"
	gw.Write(src)
	gw.Close()

	got, err := inflateBytes(zbuf.Bytes())
	require.NoError(t, err)
	require.Equal(t, src, got)
	got, err = inflateBytes(gbuf.Bytes(), WithFormat(FormatGzip))
	require.NoError(t, err)
	require.Equal(t, src, got)

	for level := 0; level <= 9; level++ {
		zr, err := zlib.NewReader(bytes.NewReader(deflateAll(t, src, WithLevel(level))))
		require.NoError(t, err)
		got, err := io.ReadAll(zr)
		require.NoError(t, err)
		require.Equal(t, src, got)
	}
}

func TestInteropKlauspost(t *testing.T) {
	src := corpus(80000, 22)

	var zbuf, gbuf bytes.Buffer
	zw, err := kzlib.NewWriterLevel(&zbuf, kzlib.BestCompression)
	require.NoError(t, err)
	zw.Write(src)
	zw.Close()
	gw := kgzip.NewWriter(&gbuf)
	gw.Write(src)
	gw.Close()

	got, err := inflateBytes(zbuf.Bytes())
	require.NoError(t, err)
	require.Equal(t, src, got)
	got, err = inflateBytes(gbuf.Bytes(), WithFormat(FormatGzip))
	require.NoError(t, err)
	require.Equal(t, src, got)

	gr, err := kgzip.NewReader(bytes.NewReader(deflateAll(t, src, WithFormat(FormatGzip), WithLevel(9))))
	require.NoError(t, err)
	got, err = io.ReadAll(gr)
	require.NoError(t, err)
	require.Equal(t, src, got)

	zr, err := kzlib.NewReader(bytes.NewReader(deflateAll(t, src, WithStrategy(RLE))))
	require.NoError(t, err)
	got, err = io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestFastPathMatchesSlowPath(t *testing.T) {
	src := append(corpus(60000, 23), randomBytes(5000, 24)...)
	comp := deflateAll(t, src, WithFormat(FormatRaw), WithLevel(9))

	// output windows below 258 bytes never take the fast path
	slow, err := NewInflater(WithFormat(FormatRaw))
	require.NoError(t, err)
	a, err := inflateAll(slow, comp, 1<<20, 200)
	require.NoError(t, err)

	fast, err := NewInflater(WithFormat(FormatRaw))
	require.NoError(t, err)
	b, err := inflateAll(fast, comp, 1<<20, 1<<20)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, src, b)
}

func TestInflaterPush(t *testing.T) {
	src := corpus(100000, 25)
	comp := deflateAll(t, src)

	inf, err := NewInflater(WithChunkSize(1000))
	require.NoError(t, err)
	for i := 0; i < len(comp); i += 777 {
		end := i + 777
		if end > len(comp) {
			end = len(comp)
		}
		require.NoError(t, inf.Push(comp[i:end], end == len(comp)))
	}
	require.True(t, inf.Done())
	require.NoError(t, inf.Err())
	require.Equal(t, src, inf.Result())

	var chunks int
	var collected []byte
	inf, err = NewInflater(WithChunkSize(4096))
	require.NoError(t, err)
	inf.OnData(func(p []byte) {
		chunks++
		collected = append(collected, p...)
	})
	require.NoError(t, inf.Push(comp, true))
	require.Equal(t, src, collected)
	require.Greater(t, chunks, 1)
	require.Empty(t, inf.Result())

	inf, err = NewInflater()
	require.NoError(t, err)
	require.ErrorIs(t, inf.Push(comp[:len(comp)-3], true), io.ErrUnexpectedEOF)
	require.ErrorIs(t, inf.Err(), io.ErrUnexpectedEOF)

	require.NoError(t, inf.Reset())
	require.NoError(t, inf.Push(comp, true))
	require.Equal(t, src, inf.Result())
	require.ErrorIs(t, inf.Push([]byte{1}, true), ErrStream)
}

func TestInflateMisuse(t *testing.T) {
	inf, err := NewInflater()
	require.NoError(t, err)
	_, _, err = inf.Inflate(nil, make([]byte, 10), NoFlush)
	require.ErrorIs(t, err, ErrBuffer)
	_, _, err = inf.Inflate(nil, nil, Flush(42))
	require.ErrorIs(t, err, ErrStream)
	require.ErrorIs(t, inf.SetDictionary([]byte("x")), ErrStream)

	_, err = NewInflater(WithWindowBits(7), WithChunkSize(0))
	require.ErrorIs(t, err, ErrStream)
}

func benchmarkDecomp(decompressor io.Reader, compressed []byte) func(b *testing.B) {
	input := bytes.NewReader(compressed)
	output := bytes.NewBuffer(make([]byte, len(compressed)*5))
	output.Reset()
	input.Reset(compressed)

	return func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			decompressor.(interface {
				Reset(io.Reader, []byte) error
			}).Reset(input, nil)
			io.Copy(output, decompressor)
			b.SetBytes(int64(output.Len()))
			output.Reset()
			input.Reset(compressed)
		}
	}
}

func BenchmarkInflate(b *testing.B) {
	b.ResetTimer()
	raw := opticks(b)
	input := compress(raw)
	b.Log(float64(len(raw)) / float64(len(input)))
	b.Run("method=fastzlib", benchmarkDecomp(NewReader(nil, WithFormat(FormatRaw)), input))
	b.Run("method=flate", benchmarkDecomp(flate.NewReader(nil), input))
}

func BenchmarkInflateSparseData(b *testing.B) {
	sparse := make([]byte, 1<<20)
	r := mrand.New(mrand.NewSource(1))
	for i := 0; i < len(sparse); i += 1 + r.Intn(4096) {
		sparse[i] = byte(r.Intn(256))
	}
	input := compress(sparse)
	b.Run("gostandard", benchmarkDecomp(flate.NewReader(nil), input))
	b.Run("fastzlib", benchmarkDecomp(NewReader(nil, WithFormat(FormatRaw)), input))
}
