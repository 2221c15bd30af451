package core

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	image2 "github.com/kpfaulkner/pfm-go/image"
	"github.com/kpfaulkner/pfm-go/util"
	log "github.com/sirupsen/logrus"
)

const (
	// MaxSampleValue is the upper clamp for colour samples.
	MaxSampleValue = 10000.0
)

// readPayload fills dst with the binary payload in file order, so dst's first
// row is the bottom row of the picture until it is flipped.
//
// Each file row is read into its own scanline buffer before being spread
// into dst, so the forward copy never reads samples it has already written.
func readPayload(r io.Reader, header *PFMHeader, dst *image2.ImageBuffer, clampGray bool) error {
	if dst.Width != header.Width || dst.Height != header.Height {
		return fmt.Errorf("destination is %dx%d, header says %dx%d", dst.Width, dst.Height, header.Width, header.Height)
	}

	channels := int(header.Channels)
	width := int(header.Width)

	raw := util.MakeByteSlicePooled(width * channels * 4)
	defer util.ReturnByteSliceToPool(raw)
	scanline := util.MakeFloat32SlicePooled(width * channels)
	defer util.ReturnFloat32SliceToPool(scanline)

	for y := 0; y < int(header.Height); y++ {
		if _, err := io.ReadFull(r, raw); err != nil {
			log.Errorf("Short PFM payload at row %d of %d: %v", y, header.Height, err)
			return corrupt(fmt.Sprintf("reading row %d", y), err)
		}
		decodeScanline(raw, header.ByteOrder, scanline)

		row := dst.Row(y)
		if header.Channels == ChannelsRGB {
			expandRGB(row, scanline)
		} else {
			expandGray(row, scanline, clampGray)
		}
	}
	return nil
}

func decodeScanline(raw []byte, order binary.ByteOrder, scanline []float32) {
	for i := range scanline {
		scanline[i] = math.Float32frombits(order.Uint32(raw[i*4:]))
	}
}

// expandRGB places R,G,B triples into the first three slots of each pixel,
// clamped to [0, MaxSampleValue].
func expandRGB(row []float32, scanline []float32) {
	for x := 0; x < len(scanline)/3; x++ {
		for c := 0; c < 3; c++ {
			row[x*image2.Channels+c] = util.ClampFloat32(scanline[x*3+c], 0, MaxSampleValue)
		}
	}
}

// expandGray copies each sample into R, G and B. Unlike expandRGB it does
// not clamp unless asked to.
func expandGray(row []float32, scanline []float32, clamp bool) {
	for x, v := range scanline {
		if clamp {
			v = util.ClampFloat32(v, 0, MaxSampleValue)
		}
		row[x*image2.Channels+0] = v
		row[x*image2.Channels+1] = v
		row[x*image2.Channels+2] = v
	}
}
