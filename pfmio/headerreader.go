package pfmio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	// MaxTokenLength bounds a single header token or line.
	MaxTokenLength = 256
)

// HeaderReader reads the ASCII tokens of a netpbm style header and leaves the
// underlying reader positioned exactly after the last byte it consumed.
type HeaderReader struct {
	r *bufio.Reader
}

func NewHeaderReader(r *bufio.Reader) *HeaderReader {
	return &HeaderReader{r: r}
}

// ReadBytes reads exactly len(buffer) bytes.
func (hr *HeaderReader) ReadBytes(buffer []byte) error {
	_, err := io.ReadFull(hr.r, buffer)
	return err
}

func (hr *HeaderReader) ReadByte() (byte, error) {
	return hr.r.ReadByte()
}

// SkipSpace consumes ASCII whitespace, including line breaks.
func (hr *HeaderReader) SkipSpace() error {
	for {
		b, err := hr.r.ReadByte()
		if err != nil {
			return err
		}
		if !isSpace(b) {
			return hr.r.UnreadByte()
		}
	}
}

// ReadUint32 skips leading whitespace and parses an unsigned decimal integer.
// The byte following the digits is not consumed.
func (hr *HeaderReader) ReadUint32() (uint32, error) {
	if err := hr.SkipSpace(); err != nil {
		return 0, err
	}
	var digits []byte
	for len(digits) < MaxTokenLength {
		b, err := hr.r.ReadByte()
		if err != nil {
			if err == io.EOF && len(digits) > 0 {
				break
			}
			return 0, err
		}
		if b < '0' || b > '9' {
			if err := hr.r.UnreadByte(); err != nil {
				return 0, err
			}
			break
		}
		digits = append(digits, b)
	}
	if len(digits) == 0 {
		return 0, errors.New("expected decimal integer")
	}
	v, err := strconv.ParseUint(string(digits), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// ReadUntilNewline returns the bytes up to, but not including, the next '\n'.
// The newline itself is left unread.
func (hr *HeaderReader) ReadUntilNewline() (string, error) {
	var token []byte
	for {
		b, err := hr.r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == '\n' {
			return string(token), hr.r.UnreadByte()
		}
		if len(token) >= MaxTokenLength {
			return "", fmt.Errorf("header line longer than %d bytes", MaxTokenLength)
		}
		token = append(token, b)
	}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
