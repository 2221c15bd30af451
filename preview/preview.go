package preview

import (
	"errors"
	"fmt"
	"image"
	"math"

	image2 "github.com/kpfaulkner/pfm-go/image"
	"github.com/kpfaulkner/pfm-go/options"
	"github.com/nfnt/resize"
)

// Preview is an 8 bit, display referred thumbnail of a float image.
type Preview struct {
	Width        int
	Height       int
	SourceWidth  uint32
	SourceHeight uint32
	Image        image.Image
}

// Generator derives previews from decoded float buffers. It never keeps a
// reference to the buffer it is given.
type Generator struct {
	maxWidth      uint
	maxHeight     uint
	interpolation resize.InterpolationFunction
}

func NewGenerator(opts *options.PFMOptions) *Generator {
	opts = options.NewPFMOptions(opts)
	return &Generator{
		maxWidth:      opts.PreviewMaxWidth,
		maxHeight:     opts.PreviewMaxHeight,
		interpolation: opts.PreviewInterpolation,
	}
}

// FromRawBuffer tone maps buf to sRGB and shrinks it to fit the generator's
// bounds, preserving aspect ratio. Images already within bounds keep their size.
func (g *Generator) FromRawBuffer(buf *image2.ImageBuffer, width uint32, height uint32) (*Preview, error) {
	if buf == nil {
		return nil, errors.New("no buffer to generate preview from")
	}
	if buf.Width != width || buf.Height != height || len(buf.Pix) != int(width)*int(height)*image2.Channels {
		return nil, fmt.Errorf("buffer is %dx%d, expected %dx%d", buf.Width, buf.Height, width, height)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("invalid preview source dimensions %d x %d", width, height)
	}

	ldr := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	for y := 0; y < int(height); y++ {
		row := buf.Row(y)
		out := ldr.Pix[y*ldr.Stride : y*ldr.Stride+int(width)*4]
		for x := 0; x < int(width); x++ {
			out[x*4+0] = floatToByte(linearToSRGB(toneMap(row[x*image2.Channels+0])))
			out[x*4+1] = floatToByte(linearToSRGB(toneMap(row[x*image2.Channels+1])))
			out[x*4+2] = floatToByte(linearToSRGB(toneMap(row[x*image2.Channels+2])))
			out[x*4+3] = 0xff
		}
	}

	thumb := resize.Thumbnail(g.maxWidth, g.maxHeight, ldr, g.interpolation)
	bounds := thumb.Bounds()
	return &Preview{
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		SourceWidth:  width,
		SourceHeight: height,
		Image:        thumb,
	}, nil
}

// toneMap is a simple Reinhard operator. Negative and NaN input map to 0.
func toneMap(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	return v / (1 + v)
}

func linearToSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*float32(math.Pow(float64(v), 1.0/2.4)) - 0.055
}

func floatToByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*255 + 0.5)
}
