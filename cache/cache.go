package cache

import (
	"errors"
	"fmt"
	"sync"

	image2 "github.com/kpfaulkner/pfm-go/image"
	log "github.com/sirupsen/logrus"
)

var ErrCacheFull = errors.New("image cache full")

// ReleaseMode says what state a buffer is left in when a writer releases it.
type ReleaseMode int

const (
	// ReleaseReadyForRead keeps the buffer and marks its contents complete.
	ReleaseReadyForRead ReleaseMode = iota
	// ReleaseDiscard drops the buffer, its contents are not usable.
	ReleaseDiscard
)

// Image describes one image held by the cache. Width and Height are set by
// the decoder before a buffer is requested and are not guarded.
type Image struct {
	Filename string
	Width    uint32
	Height   uint32

	// mu guards full, ready and locked. The cache takes it inside Cache.mu.
	mu     sync.RWMutex
	full   *image2.ImageBuffer
	ready  bool
	locked bool
}

// Full returns the full resolution buffer once a writer has released it as
// ready for read, nil otherwise. Safe to call while the cache is in use, but
// the buffer is only valid until the next Allocate, Free or discard of img.
func (img *Image) Full() *image2.ImageBuffer {
	img.mu.RLock()
	defer img.mu.RUnlock()
	if !img.ready {
		return nil
	}
	return img.full
}

func (img *Image) Ready() bool {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.ready
}

// Cache hands out full resolution float buffers, bounded by a byte budget.
type Cache struct {
	maxBytes int64

	mu       sync.Mutex
	used     int64
	resident map[*Image]int64
}

// NewCache creates a cache holding at most maxBytes of pixel data. 0 means unbounded.
func NewCache(maxBytes int64) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		resident: make(map[*Image]int64),
	}
}

// Allocate returns a write locked buffer sized for img.Width x img.Height.
// Any previous buffer of img is dropped first.
func (c *Cache) Allocate(img *Image) (*image2.ImageBuffer, error) {
	if img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("invalid image dimensions %d x %d", img.Width, img.Height)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	img.mu.Lock()
	defer img.mu.Unlock()

	if img.locked {
		return nil, fmt.Errorf("image %s is already locked for writing", img.Filename)
	}
	c.freeLocked(img)

	need := image2.BufferSizeInBytes(img.Width, img.Height)
	if c.maxBytes > 0 && c.used+need > c.maxBytes {
		log.Errorf("Cache full: need %d bytes, %d of %d in use", need, c.used, c.maxBytes)
		return nil, ErrCacheFull
	}

	img.full = image2.NewImageBufferPooled(img.Width, img.Height)
	img.locked = true
	img.ready = false
	size := img.full.SizeInBytes()
	c.resident[img] = size
	c.used += size
	return img.full, nil
}

// Release ends the write lock taken by Allocate.
func (c *Cache) Release(img *Image, mode ReleaseMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img.mu.Lock()
	defer img.mu.Unlock()

	img.locked = false
	switch mode {
	case ReleaseReadyForRead:
		img.ready = img.full != nil
	case ReleaseDiscard:
		c.freeLocked(img)
	}
}

// Free drops the buffer held for img, if any.
func (c *Cache) Free(img *Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img.mu.Lock()
	defer img.mu.Unlock()
	c.freeLocked(img)
}

// Used returns the number of bytes currently allocated.
func (c *Cache) Used() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// freeLocked expects both c.mu and img.mu to be held.
func (c *Cache) freeLocked(img *Image) {
	if size, ok := c.resident[img]; ok {
		c.used -= size
		delete(c.resident, img)
	}
	if img.full != nil {
		img.full.Release()
		img.full = nil
	}
	img.ready = false
}
