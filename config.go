package vrbridge

import (
	"math"
	"sync/atomic"
	"time"
)

// Configuration value ranges. Setters clamp to these bounds before storing;
// out-of-range input is never an error.
const (
	// MinIPD and MaxIPD bound the interpupillary distance in meters.
	MinIPD = 0.050
	MaxIPD = 0.080

	// MinWorldScale and MaxWorldScale bound the world scale multiplier.
	MinWorldScale = 0.5
	MaxWorldScale = 2.0

	// MaxAimSmoothing bounds the decoupled-aim smoothing factor.
	// 0 means no smoothing; values near 1 respond very slowly.
	MaxAimSmoothing = 0.95
)

// Default configuration values.
const (
	DefaultIPD            = 0.064
	DefaultWorldScale     = 1.0
	DefaultAimSmoothing   = 0.5
	DefaultGPUWaitTimeout = 5000 * time.Millisecond
)

// Config holds the process-wide tunables read by every component on the
// per-frame path. Each field is an independent atomic: readers are
// lock-free and may observe a torn combination of fields written by
// separate Set calls, which is acceptable because each field's effect is
// independent per frame.
//
// A Config is created once with NewConfig and passed by pointer into every
// component at construction. The settings surface (console/) writes it;
// the hooks and the session manager only read it.
type Config struct {
	ipd            atomic.Uint32 // float32 bits, meters
	worldScale     atomic.Uint32 // float32 bits
	aimSmoothing   atomic.Uint32 // float32 bits
	enabled        atomic.Bool
	decoupledAim   atomic.Bool
	gpuWaitTimeout atomic.Int64 // nanoseconds
}

// NewConfig returns a Config with default values: VR enabled, 64mm IPD,
// world scale 1.0, decoupled aiming on, aim smoothing 0.5, 5s GPU wait.
func NewConfig() *Config {
	c := &Config{}
	c.ipd.Store(math.Float32bits(DefaultIPD))
	c.worldScale.Store(math.Float32bits(DefaultWorldScale))
	c.aimSmoothing.Store(math.Float32bits(DefaultAimSmoothing))
	c.enabled.Store(true)
	c.decoupledAim.Store(true)
	c.gpuWaitTimeout.Store(int64(DefaultGPUWaitTimeout))
	return c
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetIPD stores the interpupillary distance in meters, clamped to
// [MinIPD, MaxIPD].
func (c *Config) SetIPD(meters float32) {
	c.ipd.Store(math.Float32bits(clamp32(meters, MinIPD, MaxIPD)))
}

// IPD returns the interpupillary distance in meters.
func (c *Config) IPD() float32 {
	return math.Float32frombits(c.ipd.Load())
}

// SetWorldScale stores the world scale multiplier, clamped to
// [MinWorldScale, MaxWorldScale].
func (c *Config) SetWorldScale(scale float32) {
	c.worldScale.Store(math.Float32bits(clamp32(scale, MinWorldScale, MaxWorldScale)))
}

// WorldScale returns the world scale multiplier.
func (c *Config) WorldScale() float32 {
	return math.Float32frombits(c.worldScale.Load())
}

// SetAimSmoothing stores the decoupled-aim smoothing factor, clamped to
// [0, MaxAimSmoothing].
func (c *Config) SetAimSmoothing(factor float32) {
	c.aimSmoothing.Store(math.Float32bits(clamp32(factor, 0, MaxAimSmoothing)))
}

// AimSmoothing returns the decoupled-aim smoothing factor.
func (c *Config) AimSmoothing() float32 {
	return math.Float32frombits(c.aimSmoothing.Load())
}

// SetEnabled toggles VR rendering and input injection. When disabled, every
// hook forwards to the host unchanged.
func (c *Config) SetEnabled(on bool) { c.enabled.Store(on) }

// Enabled reports whether VR is engaged.
func (c *Config) Enabled() bool { return c.enabled.Load() }

// SetDecoupledAim toggles decoupled aiming (aim with controller, look with
// head).
func (c *Config) SetDecoupledAim(on bool) { c.decoupledAim.Store(on) }

// DecoupledAim reports whether decoupled aiming is active.
func (c *Config) DecoupledAim() bool { return c.decoupledAim.Load() }

// SetGPUWaitTimeout bounds how long a texture copy may block the host's
// render thread on a fence. Non-positive values restore the default;
// there is deliberately no way to configure an infinite wait.
func (c *Config) SetGPUWaitTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultGPUWaitTimeout
	}
	c.gpuWaitTimeout.Store(int64(d))
}

// GPUWaitTimeout returns the bounded GPU fence wait.
func (c *Config) GPUWaitTimeout() time.Duration {
	return time.Duration(c.gpuWaitTimeout.Load())
}
