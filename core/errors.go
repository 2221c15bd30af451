package core

import "errors"

var (
	// ErrFormatCorrupt covers every way a file can fail to be a readable PFM,
	// from an unexpected extension to a truncated payload.
	ErrFormatCorrupt = errors.New("pfm: file corrupted")

	// ErrIOOpen is returned when the file cannot be opened at all.
	ErrIOOpen = errors.New("pfm: unable to open file")

	// ErrBufferAllocation is returned when the buffer provider cannot supply a
	// full resolution buffer.
	ErrBufferAllocation = errors.New("pfm: unable to allocate image buffer")
)
