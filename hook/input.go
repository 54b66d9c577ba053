package hook

import (
	"sync/atomic"

	"github.com/vrforge/vrbridge"
)

// Gamepad query return codes, matching the host ABI.
const (
	// InputOK mirrors ERROR_SUCCESS.
	InputOK uint32 = 0
	// InputNotConnected mirrors ERROR_DEVICE_NOT_CONNECTED.
	InputNotConnected uint32 = 1167
)

// stickDeadzone is applied to VR thumbstick axes before merging; values
// inside it read as centered.
const stickDeadzone = 0.15

// Gamepad matches the host's gamepad state layout, so VR buttons can be
// OR'd straight in.
type Gamepad struct {
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

// GamepadState is the out parameter of the host's gamepad query.
type GamepadState struct {
	PacketNumber uint32
	Gamepad      Gamepad
}

// NativeInputFunc is the trampoline to the real gamepad query.
type NativeInputFunc func(userIndex uint32, state *GamepadState) uint32

// InputHook merges VR controller input into the host's gamepad query so
// the host keeps reading one gamepad and never learns VR exists.
//
// The real query always runs first; a physical pad stays fully usable.
// VR input is injected for player one only. Buttons are OR'd, triggers
// take the larger value, and each thumbstick axis goes to whichever
// source deflects it further. When no physical pad is connected the
// state is zeroed and the query forced to succeed so VR input alone
// drives the host.
type InputHook struct {
	cfg    *vrbridge.Config
	mgr    SessionBridge
	aim    *AimState
	native NativeInputFunc

	stop atomic.Bool

	// Packet bookkeeping, touched only on the host's polling thread.
	lastButtons uint16
}

// NewInputHook builds the hook. native is the trampoline to the real
// query; when nil every call reports no device, same as the real
// function being unreachable. aim may be nil.
func NewInputHook(cfg *vrbridge.Config, mgr SessionBridge, aim *AimState, native NativeInputFunc) *InputHook {
	if cfg == nil {
		cfg = vrbridge.NewConfig()
	}
	return &InputHook{cfg: cfg, mgr: mgr, aim: aim, native: native}
}

// OnGetState runs inside the host's gamepad query on its polling thread.
func (h *InputHook) OnGetState(userIndex uint32, state *GamepadState) (result uint32) {
	defer recoverHook("input")

	if h.native == nil {
		return InputNotConnected
	}
	result = h.native(userIndex, state)

	if h.stop.Load() || !h.cfg.Enabled() {
		return result
	}
	if userIndex != 0 || state == nil {
		return result
	}
	vr, ok := h.mgr.ControllerState()
	if !ok {
		return result
	}

	if result != InputOK {
		*state = GamepadState{}
		result = InputOK
	}

	state.Gamepad.Buttons |= vr.Buttons
	state.Gamepad.LeftTrigger = maxByte(state.Gamepad.LeftTrigger, FloatToByte(vr.LeftTrigger))
	state.Gamepad.RightTrigger = maxByte(state.Gamepad.RightTrigger, FloatToByte(vr.RightTrigger))

	lx := applyDeadzone(vr.LeftThumbX)
	ly := applyDeadzone(vr.LeftThumbY)
	rx := applyDeadzone(vr.RightThumbX)
	ry := applyDeadzone(vr.RightThumbY)

	// Decoupled aim replaces the right stick with the smoothed head
	// delta; it is already deadzone-processed on the camera side.
	if h.aim != nil && h.cfg.DecoupledAim() {
		if ax, ay, active := h.aim.Stick(); active {
			rx, ry = ax, ay
		}
	}

	mergeAxis(&state.Gamepad.ThumbLX, lx)
	mergeAxis(&state.Gamepad.ThumbLY, ly)
	mergeAxis(&state.Gamepad.ThumbRX, rx)
	mergeAxis(&state.Gamepad.ThumbRY, ry)

	if vr.Buttons != h.lastButtons {
		state.PacketNumber++
		h.lastButtons = vr.Buttons
	}
	return result
}

// Shutdown stops VR injection; the real query keeps being forwarded.
func (h *InputHook) Shutdown() {
	h.stop.Store(true)
}

// mergeAxis writes the VR value over the native one only when it
// deflects further, so whichever input the player is actually using
// wins.
func mergeAxis(native *int16, vr float32) {
	n := float32(*native) / 32767
	if abs32(vr) > abs32(n) {
		*native = FloatToShort(vr)
	}
}

// applyDeadzone zeroes values inside the deadzone and remaps the rest so
// deflection still spans the full [0,1] range.
func applyDeadzone(v float32) float32 {
	if abs32(v) < stickDeadzone {
		return 0
	}
	sign := float32(1)
	if v < 0 {
		sign = -1
	}
	return sign * (abs32(v) - stickDeadzone) / (1 - stickDeadzone)
}

// FloatToShort maps [-1,1] onto the asymmetric int16 range.
func FloatToShort(v float32) int16 {
	v = clamp1(v)
	if v >= 0 {
		return int16(v * 32767)
	}
	return int16(v * 32768)
}

// FloatToByte maps [0,1] onto [0,255].
func FloatToByte(v float32) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v * 255)
}

func maxByte(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
