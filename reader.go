package pfm_go

import (
	"image"
	"image/color"
	"io"

	"github.com/kpfaulkner/pfm-go/core"
)

func init() {
	image.RegisterFormat("pfm", "PF", Decode, DecodeConfig)
	image.RegisterFormat("pfm", "Pf", Decode, DecodeConfig)
}

// Decode reads a PFM image. The result is a *image.ImageBuffer from this
// module, which keeps the float samples.
func Decode(r io.Reader) (image.Image, error) {
	pfm, err := core.NewPFMDecoder()
	if err != nil {
		return nil, err
	}

	buf, _, err := pfm.DecodeReader(r)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeConfig reports the dimensions of a PFM image. Gray and colour files
// both decode to the same 4 channel buffer, so the model is always RGBA64.
func DecodeConfig(r io.Reader) (image.Config, error) {
	pfm, err := core.NewPFMDecoder()
	if err != nil {
		return image.Config{}, err
	}

	header, err := pfm.GetPFMHeader(r)
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		ColorModel: color.RGBA64Model,
		Width:      int(header.Width),
		Height:     int(header.Height),
	}, nil
}
