package hook

import (
	"math"
	"sync/atomic"

	"github.com/vrforge/vrbridge"
)

// aimRange is the yaw/pitch delta, in radians, that maps to full stick
// deflection in decoupled-aim mode.
const aimRange = math.Pi / 4

// CameraPose is the transform slot the host's camera update writes. The
// hook mutates it in place before the real update runs.
type CameraPose struct {
	Position    vrbridge.Vec3
	Orientation vrbridge.Quat
}

// CameraHook intercepts the host's per-frame camera update and replaces
// the transform with the tracked head pose.
//
// Position is scaled by the configured world scale, then offset by half
// the IPD along the lateral axis. The offset's sign comes from the
// presentation hook's frame counter, read through EyeSource before the
// counter advances for the tick, so the camera that rendered frame N
// and the eye frame N is submitted to always agree. There is no second
// counter to drift.
type CameraHook struct {
	cfg  *vrbridge.Config
	mgr  SessionBridge
	eyes EyeSource
	aim  *AimState

	stop atomic.Bool

	// Decoupled-aim state, touched only on the render thread.
	hasBaseline  bool
	baseYaw      float32
	basePitch    float32
	smoothYaw    float32
	smoothPitch  float32
	lastRecenter bool
}

// NewCameraHook builds the hook. eyes is normally the presentation
// hook; with nil eyes no submission exists to agree with, so the head
// pose is applied without a stereo offset. aim may be nil when decoupled
// aiming is never used; the input hook then sees no override.
func NewCameraHook(cfg *vrbridge.Config, mgr SessionBridge, eyes EyeSource, aim *AimState) *CameraHook {
	if cfg == nil {
		cfg = vrbridge.NewConfig()
	}
	return &CameraHook{cfg: cfg, mgr: mgr, eyes: eyes, aim: aim}
}

// OnCameraUpdate runs inside the host's camera update on its render
// thread. forward is the trampoline to the real update and always runs,
// so host-side logic hanging off the camera still executes. When VR is
// disabled or no pose is available the transform is left untouched and
// the host's native camera stands.
func (h *CameraHook) OnCameraUpdate(pose *CameraPose, forward func(*CameraPose)) {
	if forward != nil {
		defer forward(pose)
	}
	defer recoverHook("camera")

	if h.stop.Load() || pose == nil || !h.cfg.Enabled() {
		return
	}
	head, ok := h.mgr.HeadPose()
	if !ok || !head.Valid {
		return
	}

	var offset float32
	if h.eyes != nil {
		offset = h.cfg.IPD() / 2
		if h.eyes.LeftEye() {
			offset = -offset
		}
	}

	pos := head.Position.Scale(h.cfg.WorldScale())
	pos.X += offset
	pose.Position = pos
	pose.Orientation = head.Orientation

	if h.cfg.DecoupledAim() {
		h.updateAim(head)
	} else if h.aim != nil {
		h.aim.Clear()
		h.hasBaseline = false
	}
}

// Shutdown stops transform writes. The camera hook holds no resources;
// the flag alone suffices.
func (h *CameraHook) Shutdown() {
	h.stop.Store(true)
	if h.aim != nil {
		h.aim.Clear()
	}
}

// updateAim smooths the head's yaw/pitch delta from a recentered
// baseline and publishes it as a right-stick deflection. The baseline is
// taken on the first valid pose and again whenever the right stick is
// clicked, so the player can re-zero their neutral head position.
func (h *CameraHook) updateAim(head vrbridge.Pose) {
	if h.aim == nil {
		return
	}
	yaw, pitch := vrbridge.HostQuatToRuntime(head.Orientation).YawPitch()

	recenter := false
	if st, ok := h.mgr.ControllerState(); ok {
		pressed := st.Buttons&vrbridge.ButtonRightThumb != 0
		recenter = pressed && !h.lastRecenter
		h.lastRecenter = pressed
	}
	if !h.hasBaseline || recenter {
		h.baseYaw, h.basePitch = yaw, pitch
		h.smoothYaw, h.smoothPitch = 0, 0
		h.hasBaseline = true
		h.aim.Set(0, 0)
		return
	}

	targetYaw := wrapAngle(yaw - h.baseYaw)
	targetPitch := pitch - h.basePitch

	// Exponential smoothing; factor 0 tracks the head directly, larger
	// factors lag further behind.
	f := h.cfg.AimSmoothing()
	h.smoothYaw += (targetYaw - h.smoothYaw) * (1 - f)
	h.smoothPitch += (targetPitch - h.smoothPitch) * (1 - f)

	// Turning the head left (positive yaw) steers the stick left
	// (negative X).
	h.aim.Set(clamp1(-h.smoothYaw/aimRange), clamp1(h.smoothPitch/aimRange))
}

// wrapAngle folds an angle difference into (-pi, pi] so a baseline near
// the wrap seam does not produce a full-turn delta.
func wrapAngle(a float32) float32 {
	w := math.Mod(float64(a)+math.Pi, 2*math.Pi)
	if w <= 0 {
		w += 2 * math.Pi
	}
	return float32(w - math.Pi)
}

func clamp1(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
