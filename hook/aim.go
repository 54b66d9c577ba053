package hook

import (
	"math"
	"sync/atomic"
)

// AimState carries the decoupled-aim stick deflection from the camera
// override on the render thread to the input hook on the host's polling
// thread. Both sides are lock-free; the two axes are independently
// atomic, not sampled as a pair.
type AimState struct {
	active atomic.Bool
	x      atomic.Uint32
	y      atomic.Uint32
}

// Set publishes a right-stick deflection, axes in [-1,1].
func (a *AimState) Set(x, y float32) {
	a.x.Store(math.Float32bits(x))
	a.y.Store(math.Float32bits(y))
	a.active.Store(true)
}

// Clear deactivates the aim output; the input hook falls back to the
// controller's real thumbstick.
func (a *AimState) Clear() {
	a.active.Store(false)
	a.x.Store(0)
	a.y.Store(0)
}

// Stick returns the current deflection. ok is false when decoupled aim
// is inactive.
func (a *AimState) Stick() (x, y float32, ok bool) {
	if !a.active.Load() {
		return 0, 0, false
	}
	return math.Float32frombits(a.x.Load()), math.Float32frombits(a.y.Load()), true
}
