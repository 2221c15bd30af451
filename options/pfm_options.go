package options

import (
	"github.com/nfnt/resize"
)

const (
	DefaultMaxPixels        = 1 << 28
	DefaultPreviewMaxWidth  = 1024
	DefaultPreviewMaxHeight = 768
)

type PFMOptions struct {
	Debug bool

	// MaxPixels rejects headers declaring more than width*height pixels.
	MaxPixels uint64

	// ClampGrayscale clamps single channel files to the same [0, 10000]
	// range as colour files. Off by default, gray samples are copied as is.
	ClampGrayscale bool

	// HonourScaleByteOrder reads payloads with a positive scale as big endian,
	// per the PFM sign convention. Off by default, the payload is always read
	// little endian and the scale is informational.
	HonourScaleByteOrder bool

	// CacheMaxBytes caps the full resolution buffers held by the image cache. 0 is unbounded.
	CacheMaxBytes int64

	PreviewMaxWidth      uint
	PreviewMaxHeight     uint
	PreviewInterpolation resize.InterpolationFunction
}

func NewPFMOptions(options *PFMOptions) *PFMOptions {

	opt := &PFMOptions{
		MaxPixels:            DefaultMaxPixels,
		PreviewMaxWidth:      DefaultPreviewMaxWidth,
		PreviewMaxHeight:     DefaultPreviewMaxHeight,
		PreviewInterpolation: resize.Bilinear,
	}
	if options != nil {
		opt.Debug = options.Debug
		opt.ClampGrayscale = options.ClampGrayscale
		opt.HonourScaleByteOrder = options.HonourScaleByteOrder
		opt.CacheMaxBytes = options.CacheMaxBytes
		opt.PreviewInterpolation = options.PreviewInterpolation
		if options.MaxPixels > 0 {
			opt.MaxPixels = options.MaxPixels
		}
		if options.PreviewMaxWidth > 0 {
			opt.PreviewMaxWidth = options.PreviewMaxWidth
		}
		if options.PreviewMaxHeight > 0 {
			opt.PreviewMaxHeight = options.PreviewMaxHeight
		}
	}
	return opt
}
