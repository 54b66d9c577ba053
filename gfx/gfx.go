// Package gfx abstracts the graphics resources captured from the host:
// the device, a plugin-owned command queue, textures, and the copy
// machinery used to move the host's color target into a runtime swapchain
// image.
//
// Implementations live in subpackages (gfx/wgpu) or in this package
// (SoftwareDevice, used by tests and headless simulation). The session
// manager and the hooks only ever see these interfaces, so no graphics-API
// types leak into the rest of the system.
package gfx

import (
	"errors"
	"time"
)

// Common gfx errors.
var (
	// ErrCopyTimeout is returned when a texture copy's fence wait exceeds
	// its bounded timeout. The frame is dropped; never fatal.
	ErrCopyTimeout = errors.New("gfx: GPU copy fence wait timed out")

	// ErrNilTexture is returned when a copy is asked to operate on a nil
	// source or destination.
	ErrNilTexture = errors.New("gfx: nil texture")

	// ErrDeviceClosed is returned for operations on a closed device.
	ErrDeviceClosed = errors.New("gfx: device closed")
)

// QueuePriority selects scheduling priority for a plugin-owned queue.
// The presentation hook creates its queue at high priority so VR
// submission work never queues behind the host's own rendering.
type QueuePriority int

// Queue priorities.
const (
	PriorityNormal QueuePriority = iota
	PriorityHigh
)

// Texture is an opaque GPU texture reference. Only its extent is visible
// outside the owning backend.
type Texture interface {
	// Extent returns the texture dimensions in pixels.
	Extent() (width, height int)
}

// Device is a graphics device captured from the host or created by a
// backend. Device creation happens once; the device lives for the process
// lifetime.
type Device interface {
	// CreateTexture allocates a GPU texture usable as a copy source and
	// destination.
	CreateTexture(width, height int) (Texture, error)

	// NewQueue creates a command queue owned by this plugin, distinct from
	// any queue the host uses, at the given priority.
	NewQueue(priority QueuePriority) (Queue, error)

	// NewCopier allocates the command allocator, command list, and fence
	// used for texture copies. The returned Copier is single-writer: it
	// must only ever be driven from the host's render thread.
	NewCopier(q Queue) (Copier, error)

	// Close releases the device's resources.
	Close()
}

// Queue is a plugin-owned command queue.
type Queue interface {
	// Device returns the device this queue belongs to.
	Device() Device
}

// Copier owns one allocator/list/fence triple and performs synchronous
// texture copies with a bounded wait.
//
// Copier is not safe for concurrent use. Only the host's render thread
// invokes it; this single-writer assumption is documented here rather than
// enforced, and must be preserved if the host ever presents from more than
// one thread.
type Copier interface {
	// Copy records and executes a full copy of src into dst, then blocks
	// until the GPU signals completion or timeout elapses. The copied
	// region is the minimum of the two extents, so a size mismatch
	// between the host's target and the swapchain image is tolerated.
	// A timeout returns ErrCopyTimeout and leaves dst undefined.
	Copy(dst, src Texture, timeout time.Duration) error

	// Close releases the copy resources after a final bounded drain.
	Close()
}

// SwapSurface is the host's presentation surface as seen by the
// presentation hook. The back buffer must be re-fetched on every present
// call because the host rotates its buffers.
type SwapSurface interface {
	// Device derives the graphics device that owns the surface.
	Device() (Device, error)

	// CurrentBackBuffer returns the color target the host just finished
	// rendering. Valid only until the next present call.
	CurrentBackBuffer() (Texture, error)
}
