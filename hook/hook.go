// Package hook intercepts the host application's presentation, camera
// update, and gamepad query entry points and routes them through the VR
// session pipeline.
//
// Every callback here runs synchronously on a thread the host owns: the
// render thread invokes the presentation and camera hooks, the input
// polling thread invokes the gamepad hook. The package contributes no
// threads of its own. A hook callback is a hard process boundary; nothing
// may panic or block across it, and the real host function is always
// called no matter what happens on the VR side.
package hook

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/vrforge/vrbridge"
	"github.com/vrforge/vrbridge/gfx"
)

// Package errors.
var (
	// ErrTargetNotFound is returned by Registry.Install when the locator
	// produced no address. The corresponding hook stays disabled; nothing
	// else stops working.
	ErrTargetNotFound = errors.New("hook: target address not found")

	// ErrAlreadyInstalled is returned when a second entry is installed on
	// a target that already has one. Each host function has exactly one
	// owner.
	ErrAlreadyInstalled = errors.New("hook: target already hooked")
)

// SessionBridge is the slice of the session manager the hooks drive.
// session.Manager satisfies it; tests substitute recording fakes.
type SessionBridge interface {
	// Initialize is reentrant and retried on every presentation call
	// until it succeeds, so a headset plugged in late is picked up.
	Initialize(q gfx.Queue) error

	// Update opens the next frame and returns the head pose in host
	// space. Called once per left tick by the presentation hook.
	Update() (vrbridge.Pose, bool)

	// HeadPose returns the latest pose Update produced, for callers that
	// must not advance the frame protocol.
	HeadPose() (vrbridge.Pose, bool)

	SubmitFrame(tex gfx.Texture, leftEye bool) error
	ControllerState() (vrbridge.ControllerState, bool)
	IsSessionRunning() bool
}

// EyeSource reports which eye the next submitted frame belongs to. The
// presentation hook owns the frame counter and implements this; the
// camera hook runs earlier in the same host frame and reads it, so the
// offset a frame is rendered with and the eye it is submitted to always
// come from the same count.
type EyeSource interface {
	LeftEye() bool
}

func logger() *slog.Logger {
	return vrbridge.Logger().With("component", "hook")
}

// recoverHook is deferred at the top of every callback. A panic on the
// VR side must never unwind into host-owned stack frames; it is logged
// and swallowed, and the real function still runs.
func recoverHook(name string) {
	if r := recover(); r != nil {
		logger().Error("panic in hook suppressed", "hook", name, "panic", r)
	}
}

// warnOnce logs a warning the first time only. Hook callbacks run every
// frame; a persistent failure must not flood the log.
type warnOnce struct {
	seen atomic.Bool
}

func (w *warnOnce) warn(msg string, err error) {
	if w.seen.Swap(true) {
		return
	}
	logger().Warn(msg, "err", err)
}
