// Package wgpu implements gfx on top of the wgpu hardware abstraction
// layer. The Device here adopts a hal.Device captured from the host
// process rather than creating its own; the host keeps ownership of the
// underlying adapter and queue.
//
// Texture copies route through a mappable staging buffer with an explicit
// fence wait, because the HAL exposes no direct texture-to-texture blit.
// Every wait is bounded by the caller's timeout so a hung GPU can never
// wedge the host's render thread.
package wgpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/vrforge/vrbridge/gfx"
)

// copyPitchAlignment is the row pitch granularity required by WebGPU and
// DX12 for buffer-image copies.
const copyPitchAlignment = 256

// Device wraps an adopted hal.Device. The zero value is not usable; call
// Adopt.
type Device struct {
	dev   hal.Device
	queue hal.Queue

	mu       sync.Mutex
	closed   bool
	textures []hal.Texture
}

// Adopt wraps a hal device and its queue captured from the host. The host
// retains ownership of both; Close releases only resources this package
// allocated.
func Adopt(dev hal.Device, queue hal.Queue) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: adopt: nil device or queue")
	}
	return &Device{dev: dev, queue: queue}, nil
}

// CreateTexture allocates an RGBA8 texture usable as both copy source and
// copy destination.
func (d *Device) CreateTexture(width, height int) (gfx.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, gfx.ErrDeviceClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("wgpu: create texture: invalid extent %dx%d", width, height)
	}

	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:     "vrbridge_eye",
		Dimension: gputypes.TextureDimension2D,
		Size: hal.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture: %w", err)
	}
	d.textures = append(d.textures, tex)

	return &texture{tex: tex, width: width, height: height}, nil
}

// WrapBackBuffer wraps a host-owned render target so it can act as a copy
// source. The host keeps ownership; the wrapper is valid only for the
// current present call.
func (d *Device) WrapBackBuffer(tex hal.Texture, width, height int) (gfx.Texture, error) {
	if tex == nil {
		return nil, gfx.ErrNilTexture
	}
	return &texture{tex: tex, width: width, height: height, attachment: true}, nil
}

// NewQueue returns a queue handle for command submission. The HAL exposes
// a single hardware queue per device, so the priority is recorded but all
// handles submit to the same underlying queue.
func (d *Device) NewQueue(priority gfx.QueuePriority) (gfx.Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, gfx.ErrDeviceClosed
	}
	return &queue{dev: d, q: d.queue, priority: priority}, nil
}

// NewCopier allocates the fence used for bounded copy waits.
func (d *Device) NewCopier(q gfx.Queue) (gfx.Copier, error) {
	wq, ok := q.(*queue)
	if !ok || wq.dev != d {
		return nil, fmt.Errorf("wgpu: new copier: queue does not belong to this device")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, gfx.ErrDeviceClosed
	}

	fence, err := d.dev.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	return &copier{dev: d, q: wq, fence: fence}, nil
}

// Close releases textures created through this Device. The adopted hal
// device itself is host-owned and stays alive.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, tex := range d.textures {
		d.dev.DestroyTexture(tex)
	}
	d.textures = nil
}

type texture struct {
	tex    hal.Texture
	width  int
	height int

	// attachment marks host render targets that sit in render-attachment
	// layout and need a barrier before and after acting as a copy source.
	attachment bool
}

func (t *texture) Extent() (int, int) { return t.width, t.height }

type queue struct {
	dev      *Device
	q        hal.Queue
	priority gfx.QueuePriority
}

func (q *queue) Device() gfx.Device { return q.dev }

// copier performs synchronous texture copies through a staging buffer.
// Single-writer: only the host's render thread may call Copy.
type copier struct {
	dev   *Device
	q     *queue
	fence hal.Fence
	value uint64

	closed bool
}

func (c *copier) Copy(dst, src gfx.Texture, timeout time.Duration) error {
	if c.closed {
		return gfx.ErrDeviceClosed
	}
	if dst == nil || src == nil {
		return gfx.ErrNilTexture
	}
	d, ok1 := dst.(*texture)
	s, ok2 := src.(*texture)
	if !ok1 || !ok2 {
		return fmt.Errorf("wgpu: copy: foreign texture type")
	}

	// A size mismatch between the host target and the swapchain image is
	// tolerated; copy the overlapping region.
	w := uint32(min(d.width, s.width))
	h := uint32(min(d.height, s.height))
	if w == 0 || h == 0 {
		return nil
	}

	// DX12 and WebGPU require BytesPerRow aligned to 256 bytes.
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := c.dev.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "vrbridge_copy_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer c.dev.dev.DestroyBuffer(staging)

	encoder, err := c.dev.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "vrbridge_copy",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("vrbridge_copy"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	// Host back buffers sit in render-attachment layout; CopyTextureToBuffer
	// requires transfer-source. No-op on backends without explicit layouts.
	if s.attachment {
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: s.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
	}

	encoder.CopyTextureToBuffer(s.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  alignedBytesPerRow,
			RowsPerImage: h,
		},
		TextureBase: hal.ImageCopyTexture{Texture: s.tex, MipLevel: 0},
		Size:        hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	if s.attachment {
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: s.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopySrc,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		}})
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer c.dev.dev.FreeCommandBuffer(cmdBuf)

	c.value++
	if err := c.q.q.Submit([]hal.CommandBuffer{cmdBuf}, c.fence, c.value); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}

	ok, err := c.dev.dev.Wait(c.fence, c.value, timeout)
	if err != nil {
		return fmt.Errorf("wgpu: fence wait: %w", err)
	}
	if !ok {
		return gfx.ErrCopyTimeout
	}

	readback := make([]byte, stagingSize)
	if err := c.q.q.ReadBuffer(staging, 0, readback); err != nil {
		return fmt.Errorf("wgpu: readback: %w", err)
	}

	// Strip per-row pitch padding before the upload, which wants a tight
	// layout.
	data := readback
	if alignedBytesPerRow != bytesPerRow {
		tight := make([]byte, uint64(bytesPerRow)*uint64(h))
		for row := uint32(0); row < h; row++ {
			srcOff := int(row) * int(alignedBytesPerRow)
			dstOff := int(row) * int(bytesPerRow)
			copy(tight[dstOff:dstOff+int(bytesPerRow)], readback[srcOff:srcOff+int(bytesPerRow)])
		}
		data = tight
	} else {
		data = readback[:uint64(bytesPerRow)*uint64(h)]
	}

	c.q.q.WriteTexture(
		&hal.ImageCopyTexture{Texture: d.tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: bytesPerRow, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

// Close drains outstanding work with a short bounded wait, then releases
// the fence. Never blocks indefinitely.
func (c *copier) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.value > 0 {
		_, _ = c.dev.dev.Wait(c.fence, c.value, time.Second)
	}
	c.dev.dev.DestroyFence(c.fence)
}
