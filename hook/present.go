package hook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vrforge/vrbridge"
	"github.com/vrforge/vrbridge/gfx"
)

// Resource capture progresses through exactly one forward pass; the
// enum exists because presentation may reenter before capture finishes
// and the late arrivals must neither capture twice nor observe a half
// built state.
const (
	captureNone int32 = iota
	captureInProgress
	captureDone
)

// shutdownDrain is how long Shutdown waits for in-flight presentation
// callbacks to leave the hook before resources are released. Not a true
// join, a bounded grace period.
const shutdownDrain = 50 * time.Millisecond

// PresentHook intercepts the host's process-wide presentation call.
//
// The first invocation captures the device from the swap surface,
// creates a dedicated high-priority queue so VR copies never contend
// with the host's own submissions, and initializes the session manager.
// Every later invocation re-fetches the current back buffer, derives eye
// parity from a monotonic frame counter (even frames are the left eye)
// and submits it. On left ticks it first opens the frame via Update so
// the pose feeding the camera override belongs to the same stereo pair.
type PresentHook struct {
	cfg     *vrbridge.Config
	mgr     SessionBridge
	surface gfx.SwapSurface

	// captured is the lock-free fast path; state plus mu serialize the
	// one capture pass and the shutdown release.
	captured atomic.Bool
	state    atomic.Int32
	mu       sync.Mutex
	queue    gfx.Queue

	frame atomic.Uint64
	stop  atomic.Bool

	warnDevice     warnOnce
	warnQueue      warnOnce
	warnInit       warnOnce
	warnBackBuffer warnOnce
	warnSubmit     warnOnce
}

// NewPresentHook builds the hook over the given swap surface. The
// surface outlives the hook; the host owns it.
func NewPresentHook(cfg *vrbridge.Config, mgr SessionBridge, surface gfx.SwapSurface) *PresentHook {
	if cfg == nil {
		cfg = vrbridge.NewConfig()
	}
	return &PresentHook{cfg: cfg, mgr: mgr, surface: surface}
}

// OnPresent runs inside the host's presentation call on its render
// thread. present is the trampoline to the real presentation function
// and runs unconditionally, during shutdown, with VR disabled, and even
// if the VR side panics. The host presents normally no matter what.
func (h *PresentHook) OnPresent(present func()) {
	if present != nil {
		defer present()
	}
	defer recoverHook("present")

	if h.stop.Load() || !h.cfg.Enabled() {
		return
	}
	if !h.capture() {
		return
	}

	// Buffer identity rotates every present; it must be re-fetched, never
	// cached.
	tex, err := h.surface.CurrentBackBuffer()
	if err != nil {
		h.warnBackBuffer.warn("back buffer unavailable", err)
		return
	}

	frame := h.frame.Add(1) - 1
	left := frame%2 == 0
	if left {
		if _, ok := h.mgr.Update(); !ok {
			// Skipped frame. The counter has advanced, so the matching
			// right tick becomes a no-op and the pair stays aligned.
			return
		}
	}
	if err := h.mgr.SubmitFrame(tex, left); err != nil {
		h.warnSubmit.warn("frame submission failed", err)
	}
}

// FrameCount reports how many presentation calls reached the submission
// path. Exposed for the simulate command's progress readout.
func (h *PresentHook) FrameCount() uint64 {
	return h.frame.Load()
}

// LeftEye reports the eye the next submission will use. The camera hook
// calls this before OnPresent runs in the same host frame; the counter
// only advances inside OnPresent, so both hooks describe one eye per
// tick.
func (h *PresentHook) LeftEye() bool {
	return h.frame.Load()%2 == 0
}

// Captured reports whether device resources have been captured.
func (h *PresentHook) Captured() bool {
	return h.captured.Load()
}

// capture obtains the device and queue on the first call and initializes
// the session manager. Failure resets the state so the next presentation
// retries; a headset that shows up late is still picked up.
func (h *PresentHook) capture() bool {
	if h.captured.Load() {
		return true
	}
	if !h.state.CompareAndSwap(captureNone, captureInProgress) {
		// A reentrant presentation arrived mid-capture. Skip this frame
		// rather than observe half built resources.
		return h.captured.Load()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	dev, err := h.surface.Device()
	if err != nil {
		h.warnDevice.warn("device capture failed", err)
		h.state.Store(captureNone)
		return false
	}
	q, err := dev.NewQueue(gfx.PriorityHigh)
	if err != nil {
		h.warnQueue.warn("queue creation failed", err)
		h.state.Store(captureNone)
		return false
	}
	if err := h.mgr.Initialize(q); err != nil {
		h.warnInit.warn("session initialization pending", err)
		h.state.Store(captureNone)
		return false
	}

	h.queue = q
	h.state.Store(captureDone)
	h.captured.Store(true)
	logger().Info("presentation resources captured")
	return true
}

// Shutdown stops submission, lets in-flight callbacks drain for a short
// bounded period, then releases the captured resources under the same
// lock capture held. Presentation calls arriving afterwards forward
// straight to the host.
func (h *PresentHook) Shutdown() {
	if h.stop.Swap(true) {
		return
	}
	time.Sleep(shutdownDrain)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.captured.Store(false)
	h.state.Store(captureNone)
	h.queue = nil
}
