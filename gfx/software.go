package gfx

import (
	"fmt"
	"sync"
	"time"
)

// SoftwareDevice is a CPU-backed Device used by tests and by headless
// simulation. Textures are plain RGBA byte buffers and copies are memcpy,
// which makes copy results observable without a GPU.
type SoftwareDevice struct {
	mu     sync.Mutex
	closed bool

	// CopyDelay artificially slows every copy, letting tests exercise the
	// bounded-timeout path.
	CopyDelay time.Duration
}

// NewSoftwareDevice creates a CPU-backed device.
func NewSoftwareDevice() *SoftwareDevice {
	return &SoftwareDevice{}
}

// CreateTexture allocates an RGBA byte-buffer texture.
func (d *SoftwareDevice) CreateTexture(width, height int) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gfx: texture dimensions must be positive, got %dx%d", width, height)
	}
	return &SoftwareTexture{
		width:  width,
		height: height,
		Pixels: make([]byte, width*height*4),
	}, nil
}

// NewQueue creates a queue handle. The software device has no real
// scheduler, so priority is recorded but has no effect.
func (d *SoftwareDevice) NewQueue(priority QueuePriority) (Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}
	return &softwareQueue{device: d, priority: priority}, nil
}

// NewCopier allocates a copier bound to the queue.
func (d *SoftwareDevice) NewCopier(q Queue) (Copier, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}
	return &softwareCopier{device: d}, nil
}

// Close marks the device closed. Outstanding textures stay readable;
// further resource creation fails.
func (d *SoftwareDevice) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// SoftwareTexture is a CPU texture with directly inspectable pixels.
type SoftwareTexture struct {
	width, height int

	// Pixels is RGBA, 4 bytes per pixel, row-major.
	Pixels []byte
}

// Extent returns the texture dimensions.
func (t *SoftwareTexture) Extent() (int, int) {
	return t.width, t.height
}

// Fill sets every pixel to the given RGBA value. Test helper.
func (t *SoftwareTexture) Fill(r, g, b, a byte) {
	for i := 0; i < len(t.Pixels); i += 4 {
		t.Pixels[i+0] = r
		t.Pixels[i+1] = g
		t.Pixels[i+2] = b
		t.Pixels[i+3] = a
	}
}

type softwareQueue struct {
	device   *SoftwareDevice
	priority QueuePriority
}

func (q *softwareQueue) Device() Device { return q.device }

// softwareCopier copies row by row over the min extent, honoring the
// device's artificial delay against the caller's timeout.
type softwareCopier struct {
	device *SoftwareDevice
	closed bool

	// copies counts successful copies, readable through CopyCount on the
	// concrete type for tests.
	copies int
}

func (c *softwareCopier) Copy(dst, src Texture, timeout time.Duration) error {
	if dst == nil || src == nil {
		return ErrNilTexture
	}
	if c.closed {
		return ErrDeviceClosed
	}

	if delay := c.device.CopyDelay; delay > 0 {
		if delay > timeout {
			// Simulated fence timeout: the wait gives up at the bound.
			time.Sleep(timeout)
			return ErrCopyTimeout
		}
		time.Sleep(delay)
	}

	s, ok1 := src.(*SoftwareTexture)
	d, ok2 := dst.(*SoftwareTexture)
	if !ok1 || !ok2 {
		return fmt.Errorf("gfx: software copier given foreign texture %T/%T", src, dst)
	}

	// Copy region is the minimum of the two extents.
	w := min(s.width, d.width)
	h := min(s.height, d.height)
	for y := 0; y < h; y++ {
		srcRow := s.Pixels[y*s.width*4:]
		dstRow := d.Pixels[y*d.width*4:]
		copy(dstRow[:w*4], srcRow[:w*4])
	}
	c.copies++
	return nil
}

func (c *softwareCopier) Close() { c.closed = true }

// CopyCount returns the number of successful copies. Test helper.
func (c *softwareCopier) CopyCount() int { return c.copies }

// SoftwareSurface emulates the host's swap surface: a fixed device and a
// ring of back buffers that rotates on every Rotate call, the way a real
// surface rotates on present.
type SoftwareSurface struct {
	device  *SoftwareDevice
	buffers []*SoftwareTexture
	current int
}

// NewSoftwareSurface creates a surface with bufferCount rotating back
// buffers of the given size.
func NewSoftwareSurface(device *SoftwareDevice, width, height, bufferCount int) (*SoftwareSurface, error) {
	if bufferCount < 1 {
		return nil, fmt.Errorf("gfx: surface needs at least one buffer, got %d", bufferCount)
	}
	s := &SoftwareSurface{device: device}
	for i := 0; i < bufferCount; i++ {
		tex, err := device.CreateTexture(width, height)
		if err != nil {
			return nil, err
		}
		s.buffers = append(s.buffers, tex.(*SoftwareTexture))
	}
	return s, nil
}

// Device returns the owning device.
func (s *SoftwareSurface) Device() (Device, error) {
	return s.device, nil
}

// CurrentBackBuffer returns the buffer the host would present next.
func (s *SoftwareSurface) CurrentBackBuffer() (Texture, error) {
	return s.buffers[s.current], nil
}

// Rotate advances to the next back buffer, as a real present does.
func (s *SoftwareSurface) Rotate() {
	s.current = (s.current + 1) % len(s.buffers)
}
