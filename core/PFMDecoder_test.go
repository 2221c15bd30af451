package core

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/kpfaulkner/pfm-go/cache"
	image2 "github.com/kpfaulkner/pfm-go/image"
	"github.com/kpfaulkner/pfm-go/options"
	"github.com/kpfaulkner/pfm-go/preview"
	"github.com/kpfaulkner/pfm-go/testcommon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePreviewGenerator records what it was handed.
type fakePreviewGenerator struct {
	calls  int
	pix    []float32
	width  uint32
	height uint32
	err    error
}

func (f *fakePreviewGenerator) FromRawBuffer(buf *image2.ImageBuffer, width uint32, height uint32) (*preview.Preview, error) {
	f.calls++
	f.pix = append([]float32(nil), buf.Pix...)
	f.width = width
	f.height = height
	if f.err != nil {
		return nil, f.err
	}
	return &preview.Preview{Width: int(width), Height: int(height), SourceWidth: width, SourceHeight: height}, nil
}

// recordingProvider wraps a cache and remembers how buffers were released.
type recordingProvider struct {
	*cache.Cache
	releases []cache.ReleaseMode
}

func (p *recordingProvider) Release(img *cache.Image, mode cache.ReleaseMode) {
	p.releases = append(p.releases, mode)
	p.Cache.Release(img, mode)
}

func newDecoder(t *testing.T, opts ...PFMDecoderOption) *PFMDecoder {
	d, err := NewPFMDecoder(opts...)
	require.NoError(t, err)
	return d
}

func TestDecodeColourFlipsRows(t *testing.T) {
	path := testcommon.WriteTestFile(t, "colour.pfm", testcommon.PFMBytes(t, false, 4, 2, testcommon.Sequence(0, 24)))

	provider := &recordingProvider{Cache: cache.NewCache(0)}
	d := newDecoder(t, WithBufferProvider(provider))
	img := &cache.Image{}
	require.NoError(t, d.Decode(img, path))

	assert.Equal(t, uint32(4), img.Width)
	assert.Equal(t, uint32(2), img.Height)
	assert.Equal(t, path, img.Filename)
	assert.Equal(t, []cache.ReleaseMode{cache.ReleaseReadyForRead}, provider.releases)

	full := img.Full()
	require.NotNil(t, full)
	// output row 0 is the last row of the file
	assert.Equal(t, []float32{
		12, 13, 14, 0,
		15, 16, 17, 0,
		18, 19, 20, 0,
		21, 22, 23, 0,
	}, full.Row(0))
	assert.Equal(t, []float32{
		0, 1, 2, 0,
		3, 4, 5, 0,
		6, 7, 8, 0,
		9, 10, 11, 0,
	}, full.Row(1))
}

func TestDecodeScaleByteOrder(t *testing.T) {

	for _, tc := range []struct {
		name        string
		scale       string
		order       binary.ByteOrder
		honourScale bool
	}{
		{name: "positive scale little endian payload", scale: "1.0", order: binary.LittleEndian},
		{name: "negative scale little endian payload", scale: "-1.0", order: binary.LittleEndian},
		{name: "odd scale little endian payload", scale: "255", order: binary.LittleEndian},
		{name: "positive scale honoured big endian payload", scale: "1.0", order: binary.BigEndian, honourScale: true},
		{name: "negative scale honoured little endian payload", scale: "-1.0", order: binary.LittleEndian, honourScale: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, testcommon.WritePFMWithScale(&buf, false, 4, 2, tc.scale, testcommon.Sequence(0, 24), tc.order))
			path := testcommon.WriteTestFile(t, "scale.pfm", buf.Bytes())

			d := newDecoder(t, WithOptions(&options.PFMOptions{HonourScaleByteOrder: tc.honourScale}))
			img := &cache.Image{}
			require.NoError(t, d.Decode(img, path))

			// row 0 of the output is the last payload row, literal values
			assert.Equal(t, []float32{
				12, 13, 14, 0,
				15, 16, 17, 0,
				18, 19, 20, 0,
				21, 22, 23, 0,
			}, img.Full().Row(0))
		})
	}
}

func TestDecodeGrayBigEndianHonoured(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testcommon.WritePFM(&buf, true, 1, 2, []float32{0.25, 0.75}, binary.BigEndian))
	path := testcommon.WriteTestFile(t, "gray.PFM", buf.Bytes())

	img := &cache.Image{}
	require.NoError(t, newDecoder(t, WithOptions(&options.PFMOptions{HonourScaleByteOrder: true})).Decode(img, path))
	assert.Equal(t, []float32{0.75, 0.75, 0.75, 0, 0.25, 0.25, 0.25, 0}, img.Full().Pix)
}

func TestDecodeGrayChannelsEqual(t *testing.T) {
	const width, height = 7, 5
	samples := make([]float32, width*height)
	rnd := rand.New(rand.NewSource(1))
	for i := range samples {
		samples[i] = rnd.Float32()*30000 - 10000
	}
	path := testcommon.WriteTestFile(t, "gray.Pfm", testcommon.PFMBytes(t, true, width, height, samples))

	img := &cache.Image{}
	require.NoError(t, newDecoder(t).Decode(img, path))

	full := img.Full()
	unclamped := false
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b := full.RGB(x, y)
			assert.Equal(t, r, g)
			assert.Equal(t, r, b)
			assert.Equal(t, samples[(height-1-y)*width+x], r)
			if r < 0 || r > MaxSampleValue {
				unclamped = true
			}
		}
	}
	assert.True(t, unclamped, "gray samples should not be clamped by default")
}

func TestDecodeColourClamped(t *testing.T) {
	const width, height = 9, 6
	samples := make([]float32, width*height*3)
	rnd := rand.New(rand.NewSource(2))
	for i := range samples {
		samples[i] = rnd.Float32()*40000 - 20000
	}
	path := testcommon.WriteTestFile(t, "colour.pfm", testcommon.PFMBytes(t, false, width, height, samples))

	img := &cache.Image{}
	require.NoError(t, newDecoder(t).Decode(img, path))

	full := img.Full()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b := full.RGB(x, y)
			for _, v := range []float32{r, g, b} {
				assert.GreaterOrEqual(t, v, float32(0))
				assert.LessOrEqual(t, v, float32(MaxSampleValue))
			}
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := testcommon.PFMBytes(t, false, 4, 2, testcommon.Sequence(0, 24))

	for _, tc := range []struct {
		name        string
		filename    string
		data        []byte
		skipWrite   bool
		expectedErr error
	}{
		{name: "truncated payload", filename: "short.pfm", data: valid[:len(valid)-5], expectedErr: ErrFormatCorrupt},
		{name: "bad channel tag", filename: "bad.pfm", data: append([]byte("PX"), valid[2:]...), expectedErr: ErrFormatCorrupt},
		{name: "wrong extension", filename: "image.ppm", data: valid, expectedErr: ErrFormatCorrupt},
		{name: "missing extension never opened", filename: "missing", skipWrite: true, expectedErr: ErrFormatCorrupt},
		{name: "missing file", filename: "missing.pfm", skipWrite: true, expectedErr: ErrIOOpen},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.filename)
			if !tc.skipWrite {
				path = testcommon.WriteTestFile(t, tc.filename, tc.data)
			}

			provider := &recordingProvider{Cache: cache.NewCache(0)}
			d := newDecoder(t, WithBufferProvider(provider))
			img := &cache.Image{}
			err := d.Decode(img, path)
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.False(t, img.Ready())
			assert.Nil(t, img.Full())
			assert.Equal(t, int64(0), provider.Used())
		})
	}
}

func TestDecodeTruncatedReleasesDiscard(t *testing.T) {
	valid := testcommon.PFMBytes(t, true, 3, 3, testcommon.Sequence(0, 9))
	path := testcommon.WriteTestFile(t, "short.pfm", valid[:len(valid)-4])

	provider := &recordingProvider{Cache: cache.NewCache(0)}
	img := &cache.Image{}
	err := newDecoder(t, WithBufferProvider(provider)).Decode(img, path)
	assert.ErrorIs(t, err, ErrFormatCorrupt)
	assert.Equal(t, []cache.ReleaseMode{cache.ReleaseDiscard}, provider.releases)
}

func TestDecodeCacheFull(t *testing.T) {
	path := testcommon.WriteTestFile(t, "big.pfm", testcommon.PFMBytes(t, false, 4, 2, testcommon.Sequence(0, 24)))

	d := newDecoder(t, WithOptions(&options.PFMOptions{CacheMaxBytes: 64}))
	img := &cache.Image{}
	err := d.Decode(img, path)
	assert.ErrorIs(t, err, ErrBufferAllocation)
	assert.ErrorIs(t, err, cache.ErrCacheFull)
	// dimensions are known even though allocation failed
	assert.Equal(t, uint32(4), img.Width)
	assert.Equal(t, uint32(2), img.Height)
}

func TestDecodePreview(t *testing.T) {
	path := testcommon.WriteTestFile(t, "preview.pfm", testcommon.PFMBytes(t, true, 2, 3, []float32{1, 2, 3, 4, 5, 6}))

	gen := &fakePreviewGenerator{}
	d := newDecoder(t, WithPreviewGenerator(gen))
	img := &cache.Image{}
	p, err := d.DecodePreview(img, path)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, uint32(2), gen.width)
	assert.Equal(t, uint32(3), gen.height)
	assert.Equal(t, uint32(2), img.Width)
	assert.Equal(t, uint32(3), img.Height)
	assert.Equal(t, []float32{
		5, 5, 5, 0, 6, 6, 6, 0,
		3, 3, 3, 0, 4, 4, 4, 0,
		1, 1, 1, 0, 2, 2, 2, 0,
	}, gen.pix)
	// preview decode never touches the image's full buffer
	assert.Nil(t, img.Full())
}

func TestDecodePreviewErrors(t *testing.T) {
	generatorErr := errors.New("preview failed")

	t.Run("generator error returned", func(t *testing.T) {
		path := testcommon.WriteTestFile(t, "p.pfm", testcommon.PFMBytes(t, true, 1, 1, []float32{1}))
		gen := &fakePreviewGenerator{err: generatorErr}
		_, err := newDecoder(t, WithPreviewGenerator(gen)).DecodePreview(&cache.Image{}, path)
		assert.ErrorIs(t, err, generatorErr)
	})

	t.Run("corrupt file never reaches generator", func(t *testing.T) {
		valid := testcommon.PFMBytes(t, false, 2, 2, testcommon.Sequence(0, 12))
		path := testcommon.WriteTestFile(t, "p.pfm", valid[:len(valid)-1])
		gen := &fakePreviewGenerator{}
		_, err := newDecoder(t, WithPreviewGenerator(gen)).DecodePreview(&cache.Image{}, path)
		assert.ErrorIs(t, err, ErrFormatCorrupt)
		assert.Equal(t, 0, gen.calls)
	})

	t.Run("missing file", func(t *testing.T) {
		gen := &fakePreviewGenerator{}
		_, err := newDecoder(t, WithPreviewGenerator(gen)).DecodePreview(&cache.Image{}, filepath.Join(t.TempDir(), "none.pfm"))
		assert.ErrorIs(t, err, ErrIOOpen)
		assert.Equal(t, 0, gen.calls)
	})
}

func TestDecodePreviewDefaultGenerator(t *testing.T) {
	path := testcommon.WriteTestFile(t, "p.pfm", testcommon.PFMBytes(t, false, 40, 20, make([]float32, 40*20*3)))
	d := newDecoder(t, WithOptions(&options.PFMOptions{PreviewMaxWidth: 10, PreviewMaxHeight: 10}))
	p, err := d.DecodePreview(&cache.Image{}, path)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Width)
	assert.Equal(t, 5, p.Height)
}

func TestDecodeReader(t *testing.T) {
	data := testcommon.PFMBytes(t, false, 4, 2, testcommon.Sequence(0, 24))
	d := newDecoder(t)

	buf, header, err := d.DecodeReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, ChannelsRGB, header.Channels)
	r, g, b := buf.RGB(0, 0)
	assert.Equal(t, []float32{12, 13, 14}, []float32{r, g, b})

	_, _, err = d.DecodeReader(bytes.NewReader(data[:len(data)-1]))
	assert.ErrorIs(t, err, ErrFormatCorrupt)
}

func TestGetPFMHeader(t *testing.T) {
	d := newDecoder(t, WithOptions(&options.PFMOptions{MaxPixels: 4}))

	header, err := d.GetPFMHeader(bytes.NewReader([]byte("Pf\n2 2\n-1\n")))
	require.NoError(t, err)
	assert.Equal(t, ChannelsGray, header.Channels)

	_, err = d.GetPFMHeader(bytes.NewReader([]byte("Pf\n3 2\n-1\n")))
	assert.ErrorIs(t, err, ErrFormatCorrupt)
}

func TestNewPFMDecoderOptionErrors(t *testing.T) {
	_, err := NewPFMDecoder(WithBufferProvider(nil))
	assert.Error(t, err)
	_, err = NewPFMDecoder(WithPreviewGenerator(nil))
	assert.Error(t, err)
}
