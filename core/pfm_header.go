package core

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kpfaulkner/pfm-go/pfmio"
	"github.com/kpfaulkner/pfm-go/util"
	log "github.com/sirupsen/logrus"
)

// ChannelMode is the number of samples stored per pixel in the file.
type ChannelMode uint8

const (
	ChannelsGray ChannelMode = 1
	ChannelsRGB  ChannelMode = 3
)

var extensions = []string{".pfm", ".PFM", ".Pfm"}

// PFMHeader is the parsed ASCII header of a PFM file.
type PFMHeader struct {
	Channels ChannelMode
	Width    uint32
	Height   uint32

	// Scale is the raw scale factor. It is informational unless the decoder
	// was asked to honour its sign.
	Scale     float32
	ByteOrder binary.ByteOrder
}

func (h *PFMHeader) NumPixels() uint64 {
	return uint64(h.Width) * uint64(h.Height)
}

// CheckExtension accepts only the literal suffixes .pfm, .PFM and .Pfm.
func CheckExtension(filename string) error {
	dot := strings.LastIndexByte(filename, '.')
	if dot < 0 {
		return fmt.Errorf("%w: %q has no extension", ErrFormatCorrupt, filename)
	}
	ext := filename[dot:]
	for _, e := range extensions {
		if ext == e {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported extension %q", ErrFormatCorrupt, ext)
}

// ReadPFMHeader parses the header and leaves r positioned at the first payload byte.
// The payload is little endian unless honourScale is set, in which case a
// positive scale selects big endian.
func ReadPFMHeader(r *bufio.Reader, maxPixels uint64, honourScale bool) (*PFMHeader, error) {
	header := &PFMHeader{}
	hr := pfmio.NewHeaderReader(r)

	var magic [2]byte
	if err := hr.ReadBytes(magic[:]); err != nil {
		return nil, corrupt("reading magic", err)
	}
	if magic[0] != 'P' {
		return nil, fmt.Errorf("%w: invalid magic %q", ErrFormatCorrupt, magic[:])
	}
	switch magic[1] {
	case 'F':
		header.Channels = ChannelsRGB
	case 'f':
		header.Channels = ChannelsGray
	default:
		return nil, fmt.Errorf("%w: invalid channel tag %q", ErrFormatCorrupt, magic[1])
	}

	width, err := hr.ReadUint32()
	if err != nil {
		return nil, corrupt("reading width", err)
	}
	height, err := hr.ReadUint32()
	if err != nil {
		return nil, corrupt("reading height", err)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %d x %d", ErrFormatCorrupt, width, height)
	}
	header.Width = width
	header.Height = height
	if maxPixels > 0 && header.NumPixels() > maxPixels {
		return nil, fmt.Errorf("%w: %d x %d exceeds %d pixels", ErrFormatCorrupt, width, height, maxPixels)
	}

	// rest of the dimensions line and the scale line; the scale's line
	// terminator is the single separator byte before the payload.
	if err := hr.SkipSpace(); err != nil {
		return nil, corrupt("reading scale", err)
	}
	scale, err := hr.ReadUntilNewline()
	if err != nil {
		return nil, corrupt("reading scale", err)
	}
	if _, err := hr.ReadByte(); err != nil {
		return nil, corrupt("reading separator", err)
	}

	header.Scale, header.ByteOrder = parseScale(scale, honourScale)
	log.Debugf("PFM header: channels %d, %d x %d, scale %v", header.Channels, header.Width, header.Height, header.Scale)
	return header, nil
}

// parseScale returns the scale value and the payload byte order. Without
// honourScale the order is always little endian. With it, the PFM sign
// convention applies: negative is little endian, positive big endian.
// An unparseable or zero scale reads as little endian either way.
func parseScale(token string, honourScale bool) (float32, binary.ByteOrder) {
	scale, err := strconv.ParseFloat(strings.TrimSpace(token), 32)
	if err != nil || scale == 0 {
		log.Debugf("Unusable PFM scale %q, assuming little endian", token)
		return float32(scale), binary.LittleEndian
	}
	return float32(scale), util.IfThenElse[binary.ByteOrder](honourScale && scale > 0, binary.BigEndian, binary.LittleEndian)
}

func corrupt(step string, err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %s: %v", ErrFormatCorrupt, step, err)
}
