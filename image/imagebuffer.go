package image

import (
	"image"
	"image/color"

	"github.com/kpfaulkner/pfm-go/util"
)

const (
	// Channels is the number of interleaved float32 samples per pixel: R, G, B
	// and one unused padding sample.
	Channels = 4
)

// ImageBuffer holds a decoded float image as interleaved R,G,B,unused samples,
// row-major, top row first. The fourth sample of each pixel is padding and
// carries no data.
type ImageBuffer struct {
	Width  uint32
	Height uint32
	Pix    []float32

	// pix came from the shared float32 pool and goes back there on Release.
	pooled bool
}

func NewImageBuffer(width uint32, height uint32) *ImageBuffer {
	return &ImageBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]float32, int(width)*int(height)*Channels),
	}
}

// NewImageBufferPooled is NewImageBuffer backed by the shared float32 pool.
// Callers must call Release once the buffer is no longer referenced.
func NewImageBufferPooled(width uint32, height uint32) *ImageBuffer {
	return &ImageBuffer{
		Width:  width,
		Height: height,
		Pix:    util.MakeFloat32SlicePooled(int(width) * int(height) * Channels),
		pooled: true,
	}
}

// Release hands pooled storage back to the pool. The buffer must not be used afterwards.
func (ib *ImageBuffer) Release() {
	if ib.pooled {
		util.ReturnFloat32SliceToPool(ib.Pix)
	}
	ib.Pix = nil
	ib.pooled = false
}

// Stride is the number of float32 samples in one row.
func (ib *ImageBuffer) Stride() int {
	return int(ib.Width) * Channels
}

func (ib *ImageBuffer) Row(y int) []float32 {
	stride := ib.Stride()
	return ib.Pix[y*stride : (y+1)*stride]
}

// RGB returns the colour samples of the pixel at (x, y).
func (ib *ImageBuffer) RGB(x int, y int) (float32, float32, float32) {
	i := y*ib.Stride() + x*Channels
	return ib.Pix[i], ib.Pix[i+1], ib.Pix[i+2]
}

// SizeInBytes is the memory footprint of the pixel data.
func (ib *ImageBuffer) SizeInBytes() int64 {
	return int64(len(ib.Pix)) * 4
}

// BufferSizeInBytes is SizeInBytes of a buffer for width x height pixels,
// without allocating it.
func BufferSizeInBytes(width uint32, height uint32) int64 {
	return int64(width) * int64(height) * Channels * 4
}

// FlipRows reverses the row order in place, swapping row j with row
// Height-1-j through a single scratch row. Applying it twice restores
// the original order.
func (ib *ImageBuffer) FlipRows() {
	height := int(ib.Height)
	if height < 2 || ib.Width == 0 {
		return
	}

	line := util.MakeFloat32SlicePooled(ib.Stride())
	defer util.ReturnFloat32SliceToPool(line)

	for j := 0; j < height/2; j++ {
		top := ib.Row(j)
		bottom := ib.Row(height - 1 - j)
		copy(line, top)
		copy(top, bottom)
		copy(bottom, line)
	}
}

// Equals compares two ImageBuffers and returns true if they are equal.
// Padding samples take part in the comparison.
func (ib *ImageBuffer) Equals(other *ImageBuffer) bool {
	if other == nil {
		return false
	}
	if ib.Width != other.Width || ib.Height != other.Height || len(ib.Pix) != len(other.Pix) {
		return false
	}
	for i := range ib.Pix {
		if ib.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}

// ColorModel, Bounds and At let an ImageBuffer be used as a standard Go image.
// Samples are clamped to [0,1] and scaled to 16 bits, fully opaque.
func (ib *ImageBuffer) ColorModel() color.Model {
	return color.RGBA64Model
}

func (ib *ImageBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(ib.Width), int(ib.Height))
}

func (ib *ImageBuffer) At(x int, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(ib.Bounds())) {
		return color.RGBA64{}
	}
	r, g, b := ib.RGB(x, y)
	return color.RGBA64{
		R: toUint16(r),
		G: toUint16(g),
		B: toUint16(b),
		A: 0xffff,
	}
}

func toUint16(v float32) uint16 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*65535.0 + 0.5)
}
