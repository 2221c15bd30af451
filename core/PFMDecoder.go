package core

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/kpfaulkner/pfm-go/cache"
	image2 "github.com/kpfaulkner/pfm-go/image"
	"github.com/kpfaulkner/pfm-go/options"
	"github.com/kpfaulkner/pfm-go/preview"
	log "github.com/sirupsen/logrus"
)

// BufferProvider supplies the full resolution buffer a decode writes into.
type BufferProvider interface {
	Allocate(img *cache.Image) (*image2.ImageBuffer, error)
	Release(img *cache.Image, mode cache.ReleaseMode)
}

// PreviewGenerator derives a preview from a decoded buffer. The buffer is
// only valid for the duration of the call.
type PreviewGenerator interface {
	FromRawBuffer(buf *image2.ImageBuffer, width uint32, height uint32) (*preview.Preview, error)
}

type PFMDecoderOption func(d *PFMDecoder) error

func WithOptions(opts *options.PFMOptions) PFMDecoderOption {
	return func(d *PFMDecoder) error {
		d.opts = options.NewPFMOptions(opts)
		return nil
	}
}

func WithBufferProvider(provider BufferProvider) PFMDecoderOption {
	return func(d *PFMDecoder) error {
		if provider == nil {
			return fmt.Errorf("nil buffer provider")
		}
		d.provider = provider
		return nil
	}
}

func WithPreviewGenerator(generator PreviewGenerator) PFMDecoderOption {
	return func(d *PFMDecoder) error {
		if generator == nil {
			return fmt.Errorf("nil preview generator")
		}
		d.previews = generator
		return nil
	}
}

// PFMDecoder decodes PFM files, either to full resolution or to a preview.
// A decoder holds no per-file state.
type PFMDecoder struct {
	opts     *options.PFMOptions
	provider BufferProvider
	previews PreviewGenerator
}

// NewPFMDecoder builds a decoder. Without options it uses an unbounded
// cache.Cache and a preview.Generator with default bounds.
func NewPFMDecoder(opts ...PFMDecoderOption) (*PFMDecoder, error) {
	d := &PFMDecoder{
		opts: options.NewPFMOptions(nil),
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("error applying option to PFMDecoder: %w", err)
		}
	}

	if d.provider == nil {
		d.provider = cache.NewCache(d.opts.CacheMaxBytes)
	}
	if d.previews == nil {
		d.previews = preview.NewGenerator(d.opts)
	}
	return d, nil
}

// Decode reads filename at full resolution into a buffer obtained from the
// buffer provider. img.Width and img.Height are set from the header before
// the buffer is requested. The buffer is released ready for read only when
// the whole payload decoded.
func (d *PFMDecoder) Decode(img *cache.Image, filename string) error {
	f, header, err := d.open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	img.Filename = filename
	img.Width = header.Width
	img.Height = header.Height

	buf, err := d.provider.Allocate(img)
	if err != nil {
		log.Errorf("Error allocating buffer for %s: %v", filename, err)
		return fmt.Errorf("%w: %w", ErrBufferAllocation, err)
	}

	if err := d.decodeInto(f.r, header, buf); err != nil {
		d.provider.Release(img, cache.ReleaseDiscard)
		return err
	}

	d.provider.Release(img, cache.ReleaseReadyForRead)
	return nil
}

// DecodePreview decodes filename into a scratch buffer and returns what the
// preview generator makes of it. The scratch buffer is returned to the pool
// before DecodePreview returns, whatever the outcome.
func (d *PFMDecoder) DecodePreview(img *cache.Image, filename string) (*preview.Preview, error) {
	f, header, err := d.open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img.Filename = filename
	img.Width = header.Width
	img.Height = header.Height

	scratch := image2.NewImageBufferPooled(header.Width, header.Height)
	defer scratch.Release()

	if err := d.decodeInto(f.r, header, scratch); err != nil {
		return nil, err
	}

	return d.previews.FromRawBuffer(scratch, header.Width, header.Height)
}

// DecodeReader decodes a PFM stream into a newly allocated buffer. There is
// no filename, so no extension check is made.
func (d *PFMDecoder) DecodeReader(in io.Reader) (*image2.ImageBuffer, *PFMHeader, error) {
	r := bufio.NewReader(in)
	header, err := ReadPFMHeader(r, d.opts.MaxPixels, d.opts.HonourScaleByteOrder)
	if err != nil {
		return nil, nil, err
	}

	buf := image2.NewImageBuffer(header.Width, header.Height)
	if err := d.decodeInto(r, header, buf); err != nil {
		return nil, nil, err
	}
	return buf, header, nil
}

// GetPFMHeader reads only the header of a PFM stream.
func (d *PFMDecoder) GetPFMHeader(in io.Reader) (*PFMHeader, error) {
	return ReadPFMHeader(bufio.NewReader(in), d.opts.MaxPixels, d.opts.HonourScaleByteOrder)
}

func (d *PFMDecoder) decodeInto(r io.Reader, header *PFMHeader, buf *image2.ImageBuffer) error {
	if err := readPayload(r, header, buf, d.opts.ClampGrayscale); err != nil {
		return err
	}
	// PFM stores the bottom row first.
	buf.FlipRows()
	return nil
}

// pfmFile pairs an open file with the buffered reader over it.
type pfmFile struct {
	*os.File
	r *bufio.Reader
}

// open checks the extension, opens filename and parses its header. On
// success the caller owns the returned file and must close it.
func (d *PFMDecoder) open(filename string) (*pfmFile, *PFMHeader, error) {
	if err := CheckExtension(filename); err != nil {
		log.Errorf("Rejecting %s: %v", filename, err)
		return nil, nil, err
	}

	f, err := os.Open(filename)
	if err != nil {
		log.Errorf("Error opening file: %v", err)
		return nil, nil, fmt.Errorf("%w: %w", ErrIOOpen, err)
	}

	r := bufio.NewReader(f)
	header, err := ReadPFMHeader(r, d.opts.MaxPixels, d.opts.HonourScaleByteOrder)
	if err != nil {
		f.Close()
		log.Errorf("Error reading PFM header of %s: %v", filename, err)
		return nil, nil, err
	}
	return &pfmFile{File: f, r: r}, header, nil
}
