package imageformats

import (
	"errors"
	"image"
	"image/png"
	"io"

	image2 "github.com/kpfaulkner/pfm-go/image"
	"github.com/kpfaulkner/pfm-go/preview"
)

// WritePNG writes a decoded float buffer as a 16 bit PNG. Samples are clamped
// to [0,1], no tone mapping is applied.
func WritePNG(buf *image2.ImageBuffer, output io.Writer) error {
	if buf == nil || len(buf.Pix) == 0 {
		return errors.New("no image data to write")
	}
	return encode(buf, output)
}

// WritePreviewPNG writes a preview's 8 bit image.
func WritePreviewPNG(p *preview.Preview, output io.Writer) error {
	if p == nil || p.Image == nil {
		return errors.New("no preview to write")
	}
	return encode(p.Image, output)
}

func encode(img image.Image, output io.Writer) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(output, img)
}
