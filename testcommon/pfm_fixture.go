package testcommon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// WritePFM writes a PFM file. samples are given in file order, so the first
// width*channels values form the bottom row of the image. Little endian
// files get a negative scale, big endian a positive one.
func WritePFM(output io.Writer, gray bool, width int, height int, samples []float32, order binary.ByteOrder) error {
	scale := "-1.0"
	if order == binary.BigEndian {
		scale = "1.0"
	}
	return WritePFMWithScale(output, gray, width, height, scale, samples, order)
}

// WritePFMWithScale is WritePFM with the scale line given verbatim, so the
// scale and the payload byte order can disagree.
func WritePFMWithScale(output io.Writer, gray bool, width int, height int, scale string, samples []float32, order binary.ByteOrder) error {

	pf := "Pf"
	if !gray {
		pf = "PF"
	}
	header := fmt.Sprintf("%s\n%d %d\n%s\n", pf, width, height, scale)
	if _, err := output.Write([]byte(header)); err != nil {
		return err
	}
	return WriteSamples(output, samples, order)
}

// WriteSamples appends raw float payload with no header.
func WriteSamples(output io.Writer, samples []float32, order binary.ByteOrder) error {
	raw := make([]byte, 4*len(samples))
	for i, s := range samples {
		order.PutUint32(raw[i*4:], math.Float32bits(s))
	}
	_, err := output.Write(raw)
	return err
}

// PFMBytes is WritePFM into memory, little endian.
func PFMBytes(t *testing.T, gray bool, width int, height int, samples []float32) []byte {
	var buf bytes.Buffer
	if err := WritePFM(&buf, gray, width, height, samples, binary.LittleEndian); err != nil {
		t.Fatalf("error writing pfm fixture : %v", err)
	}
	return buf.Bytes()
}

// WriteTestFile stores data under a fresh temp dir and returns the path.
func WriteTestFile(t *testing.T, name string, data []byte) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0666); err != nil {
		t.Fatalf("error writing test file : %v", err)
	}
	return path
}

// Sequence returns n samples start, start+1, ...
func Sequence(start float32, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = start + float32(i)
	}
	return s
}
