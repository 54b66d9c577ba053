package hook

import (
	"math"
	"testing"

	"github.com/vrforge/vrbridge"
)

func TestApplyDeadzone(t *testing.T) {
	tests := []struct {
		in   float32
		want float32
	}{
		{0, 0},
		{0.1, 0},
		{-0.1, 0},
		{0.15, 0},
		{1, 1},
		{-1, -1},
		{0.575, 0.5},
		{-0.575, -0.5},
	}
	for _, tt := range tests {
		if got := applyDeadzone(tt.in); math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("applyDeadzone(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFloatToShort(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32768},
		{2, 32767},
		{-2, -32768},
		{0.5, 16383},
	}
	for _, tt := range tests {
		if got := FloatToShort(tt.in); got != tt.want {
			t.Errorf("FloatToShort(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFloatToByte(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{0, 0},
		{1, 255},
		{1.5, 255},
		{-0.5, 0},
		{0.5, 127},
	}
	for _, tt := range tests {
		if got := FloatToByte(tt.in); got != tt.want {
			t.Errorf("FloatToByte(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestInputNoTrampoline(t *testing.T) {
	h := NewInputHook(vrbridge.NewConfig(), newFakeBridge(), nil, nil)
	var state GamepadState
	if got := h.OnGetState(0, &state); got != InputNotConnected {
		t.Errorf("OnGetState = %d, want InputNotConnected", got)
	}
	if state != (GamepadState{}) {
		t.Errorf("state touched without a trampoline: %+v", state)
	}
}

// nativePad returns a trampoline serving a fixed physical-pad state.
func nativePad(result uint32, pad Gamepad) NativeInputFunc {
	return func(userIndex uint32, state *GamepadState) uint32 {
		if result == InputOK && state != nil {
			state.Gamepad = pad
		}
		return result
	}
}

func TestInputMergesWithPhysicalPad(t *testing.T) {
	bridge := newFakeBridge()
	bridge.ctrl = vrbridge.ControllerState{
		Buttons:     vrbridge.ButtonA,
		LeftTrigger: 0.9,
		LeftThumbX:  0.2, // deadzoned to ~0.06, loses to the pad's 16000
	}
	cfg := vrbridge.NewConfig()
	cfg.SetDecoupledAim(false)
	native := nativePad(InputOK, Gamepad{
		Buttons:     vrbridge.ButtonDPadUp,
		LeftTrigger: 100,
		ThumbLX:     16000,
	})
	h := NewInputHook(cfg, bridge, nil, native)

	var state GamepadState
	if got := h.OnGetState(0, &state); got != InputOK {
		t.Fatalf("OnGetState = %d, want InputOK", got)
	}

	wantButtons := vrbridge.ButtonDPadUp | vrbridge.ButtonA
	if state.Gamepad.Buttons != wantButtons {
		t.Errorf("buttons = %#x, want %#x", state.Gamepad.Buttons, wantButtons)
	}
	if state.Gamepad.LeftTrigger != FloatToByte(0.9) {
		t.Errorf("left trigger = %d, want VR value %d", state.Gamepad.LeftTrigger, FloatToByte(0.9))
	}
	if state.Gamepad.ThumbLX != 16000 {
		t.Errorf("thumb LX = %d, want the pad's larger deflection kept", state.Gamepad.ThumbLX)
	}
}

func TestInputForcesSuccessWithoutPad(t *testing.T) {
	bridge := newFakeBridge()
	bridge.ctrl = vrbridge.ControllerState{
		Buttons:    vrbridge.ButtonB,
		LeftThumbY: 1,
	}
	cfg := vrbridge.NewConfig()
	cfg.SetDecoupledAim(false)
	h := NewInputHook(cfg, bridge, nil, nativePad(InputNotConnected, Gamepad{}))

	// Garbage from a previous read must not leak through.
	state := GamepadState{Gamepad: Gamepad{Buttons: 0xFFFF, ThumbRX: -5}}
	if got := h.OnGetState(0, &state); got != InputOK {
		t.Fatalf("OnGetState = %d, want forced InputOK", got)
	}
	if state.Gamepad.Buttons != vrbridge.ButtonB {
		t.Errorf("buttons = %#x, want only the VR bits", state.Gamepad.Buttons)
	}
	if state.Gamepad.ThumbLY != 32767 {
		t.Errorf("thumb LY = %d, want full deflection", state.Gamepad.ThumbLY)
	}
	if state.Gamepad.ThumbRX != 0 {
		t.Errorf("thumb RX = %d, want zero-initialized", state.Gamepad.ThumbRX)
	}
}

func TestInputOnlyPlayerOne(t *testing.T) {
	bridge := newFakeBridge()
	bridge.ctrl = vrbridge.ControllerState{Buttons: vrbridge.ButtonA}
	h := NewInputHook(vrbridge.NewConfig(), bridge, nil, nativePad(InputOK, Gamepad{}))

	var state GamepadState
	if got := h.OnGetState(1, &state); got != InputOK {
		t.Fatalf("OnGetState = %d, want the pad's own result", got)
	}
	if state.Gamepad.Buttons != 0 {
		t.Errorf("VR input injected for player two: %#x", state.Gamepad.Buttons)
	}
}

func TestInputPacketNumberBumpsOnButtonChange(t *testing.T) {
	bridge := newFakeBridge()
	bridge.ctrl = vrbridge.ControllerState{Buttons: vrbridge.ButtonA}
	cfg := vrbridge.NewConfig()
	cfg.SetDecoupledAim(false)
	h := NewInputHook(cfg, bridge, nil, nativePad(InputOK, Gamepad{}))

	var state GamepadState
	h.OnGetState(0, &state)
	first := state.PacketNumber
	if first == 0 {
		t.Fatal("packet number not bumped on first VR button state")
	}

	// Same buttons: no change signal.
	state = GamepadState{}
	h.OnGetState(0, &state)
	if state.PacketNumber != 0 {
		t.Errorf("packet number bumped without a button change")
	}

	// Button released: change signal again.
	bridge.ctrl.Buttons = 0
	state = GamepadState{}
	h.OnGetState(0, &state)
	if state.PacketNumber == 0 {
		t.Error("packet number not bumped on button release")
	}
}

func TestInputAimOverridesRightStick(t *testing.T) {
	bridge := newFakeBridge()
	bridge.ctrl = vrbridge.ControllerState{RightThumbX: 0.3, RightThumbY: 0.3}
	cfg := vrbridge.NewConfig()
	var aim AimState
	aim.Set(1, -0.5)
	h := NewInputHook(cfg, bridge, &aim, nativePad(InputOK, Gamepad{}))

	var state GamepadState
	h.OnGetState(0, &state)
	if state.Gamepad.ThumbRX != FloatToShort(1) {
		t.Errorf("thumb RX = %d, want aim deflection %d", state.Gamepad.ThumbRX, FloatToShort(1))
	}
	if state.Gamepad.ThumbRY != FloatToShort(-0.5) {
		t.Errorf("thumb RY = %d, want aim deflection %d", state.Gamepad.ThumbRY, FloatToShort(-0.5))
	}

	// With the aim output inactive the controller's own stick is used
	// again.
	aim.Clear()
	state = GamepadState{}
	h.OnGetState(0, &state)
	want := FloatToShort(applyDeadzone(0.3))
	if state.Gamepad.ThumbRX != want {
		t.Errorf("thumb RX = %d, want controller value %d", state.Gamepad.ThumbRX, want)
	}
}

func TestInputDisabledPassesThrough(t *testing.T) {
	bridge := newFakeBridge()
	bridge.ctrl = vrbridge.ControllerState{Buttons: vrbridge.ButtonA}
	cfg := vrbridge.NewConfig()
	cfg.SetEnabled(false)
	h := NewInputHook(cfg, bridge, nil, nativePad(InputOK, Gamepad{ThumbLX: 123}))

	var state GamepadState
	if got := h.OnGetState(0, &state); got != InputOK {
		t.Fatalf("OnGetState = %d, want the pad's result", got)
	}
	if state.Gamepad.Buttons != 0 || state.Gamepad.ThumbLX != 123 {
		t.Errorf("state altered while disabled: %+v", state.Gamepad)
	}
}

func TestInputShutdownStopsInjection(t *testing.T) {
	bridge := newFakeBridge()
	bridge.ctrl = vrbridge.ControllerState{Buttons: vrbridge.ButtonA}
	h := NewInputHook(vrbridge.NewConfig(), bridge, nil, nativePad(InputOK, Gamepad{}))
	h.Shutdown()

	var state GamepadState
	if got := h.OnGetState(0, &state); got != InputOK {
		t.Fatalf("OnGetState = %d, want passthrough result", got)
	}
	if state.Gamepad.Buttons != 0 {
		t.Errorf("VR input injected after shutdown: %#x", state.Gamepad.Buttons)
	}
}
