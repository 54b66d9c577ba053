package session

import (
	"github.com/vrforge/vrbridge"
	"github.com/vrforge/vrbridge/xr"
)

// gripClickThreshold is the analog grip value above which a shoulder
// button press is synthesized; most controllers have no native grip
// click. Fixed design constant.
const gripClickThreshold = 0.8

// Action names shared between the binding tables and the runtime.
const (
	actionTrigger    = "trigger"
	actionGrip       = "grip"
	actionThumbstick = "thumbstick"
	actionThumbClick = "thumb_click"
	actionPrimary    = "primary"
	actionSecondary  = "secondary"
	actionMenu       = "menu"
)

// defaultProfiles suggests bindings for the two controller families in
// common use. Paths are suggested per profile because the families
// disagree about which physical button is primary: one puts A/B on the
// right hand with X/Y on the left, the other exposes A/B on both hands.
func defaultProfiles() []xr.InteractionProfile {
	return []xr.InteractionProfile{
		{
			Path: "/interaction_profiles/oculus/touch_controller",
			Bindings: []xr.Binding{
				{Action: actionTrigger, Path: "/user/hand/left/input/trigger/value"},
				{Action: actionTrigger, Path: "/user/hand/right/input/trigger/value"},
				{Action: actionGrip, Path: "/user/hand/left/input/squeeze/value"},
				{Action: actionGrip, Path: "/user/hand/right/input/squeeze/value"},
				{Action: actionThumbstick, Path: "/user/hand/left/input/thumbstick"},
				{Action: actionThumbstick, Path: "/user/hand/right/input/thumbstick"},
				{Action: actionThumbClick, Path: "/user/hand/left/input/thumbstick/click"},
				{Action: actionThumbClick, Path: "/user/hand/right/input/thumbstick/click"},
				{Action: actionPrimary, Path: "/user/hand/left/input/x/click"},
				{Action: actionSecondary, Path: "/user/hand/left/input/y/click"},
				{Action: actionPrimary, Path: "/user/hand/right/input/a/click"},
				{Action: actionSecondary, Path: "/user/hand/right/input/b/click"},
				{Action: actionMenu, Path: "/user/hand/left/input/menu/click"},
			},
		},
		{
			Path: "/interaction_profiles/valve/index_controller",
			Bindings: []xr.Binding{
				{Action: actionTrigger, Path: "/user/hand/left/input/trigger/value"},
				{Action: actionTrigger, Path: "/user/hand/right/input/trigger/value"},
				{Action: actionGrip, Path: "/user/hand/left/input/squeeze/value"},
				{Action: actionGrip, Path: "/user/hand/right/input/squeeze/value"},
				{Action: actionThumbstick, Path: "/user/hand/left/input/thumbstick"},
				{Action: actionThumbstick, Path: "/user/hand/right/input/thumbstick"},
				{Action: actionThumbClick, Path: "/user/hand/left/input/thumbstick/click"},
				{Action: actionThumbClick, Path: "/user/hand/right/input/thumbstick/click"},
				{Action: actionPrimary, Path: "/user/hand/left/input/a/click"},
				{Action: actionSecondary, Path: "/user/hand/left/input/b/click"},
				{Action: actionPrimary, Path: "/user/hand/right/input/a/click"},
				{Action: actionSecondary, Path: "/user/hand/right/input/b/click"},
				{Action: actionMenu, Path: "/user/hand/left/input/system/click"},
			},
		},
	}
}

// pollController syncs the action layer at the predicted display time and
// refreshes the latest controller sample. Runs on the render thread once
// per Update; read failures leave the previous sample in place.
func (m *Manager) pollController(displayTime int64) {
	if !m.actionsOK {
		return
	}
	if err := m.sess.SyncActions(displayTime); err != nil {
		m.warnSync.warn("action sync failed", err)
		return
	}

	var cs vrbridge.ControllerState

	cs.LeftTrigger = m.readFloat(vrbridge.HandLeft, xr.ActionTrigger)
	cs.RightTrigger = m.readFloat(vrbridge.HandRight, xr.ActionTrigger)
	cs.LeftGrip = m.readFloat(vrbridge.HandLeft, xr.ActionGrip)
	cs.RightGrip = m.readFloat(vrbridge.HandRight, xr.ActionGrip)
	cs.LeftThumbX, cs.LeftThumbY = m.readVec2(vrbridge.HandLeft)
	cs.RightThumbX, cs.RightThumbY = m.readVec2(vrbridge.HandRight)

	if m.readBool(vrbridge.HandLeft, xr.ActionPrimary) {
		cs.Buttons |= vrbridge.ButtonX
	}
	if m.readBool(vrbridge.HandLeft, xr.ActionSecondary) {
		cs.Buttons |= vrbridge.ButtonY
	}
	if m.readBool(vrbridge.HandRight, xr.ActionPrimary) {
		cs.Buttons |= vrbridge.ButtonA
	}
	if m.readBool(vrbridge.HandRight, xr.ActionSecondary) {
		cs.Buttons |= vrbridge.ButtonB
	}
	if m.readBool(vrbridge.HandLeft, xr.ActionMenu) {
		cs.Buttons |= vrbridge.ButtonStart
	}
	if m.readBool(vrbridge.HandRight, xr.ActionMenu) {
		cs.Buttons |= vrbridge.ButtonBack
	}
	if m.readBool(vrbridge.HandLeft, xr.ActionThumbClick) {
		cs.Buttons |= vrbridge.ButtonLeftThumb
	}
	if m.readBool(vrbridge.HandRight, xr.ActionThumbClick) {
		cs.Buttons |= vrbridge.ButtonRightThumb
	}

	// No native grip click on most controllers; a firm squeeze stands in
	// for the shoulder buttons.
	if cs.LeftGrip > gripClickThreshold {
		cs.Buttons |= vrbridge.ButtonLeftShoulder
	}
	if cs.RightGrip > gripClickThreshold {
		cs.Buttons |= vrbridge.ButtonRightShoulder
	}

	for _, hand := range []vrbridge.Hand{vrbridge.HandLeft, vrbridge.HandRight} {
		pose, err := m.sess.LocateHand(hand, displayTime, m.space)
		cs.HandValid[hand] = err == nil && pose.Valid
	}

	m.ctrlMu.Lock()
	m.ctrl = cs
	m.ctrlOK = true
	m.ctrlMu.Unlock()
}

func (m *Manager) readFloat(hand vrbridge.Hand, a xr.FloatAction) float32 {
	v, err := m.sess.ActionFloat(hand, a)
	if err != nil {
		return 0
	}
	return v
}

func (m *Manager) readVec2(hand vrbridge.Hand) (float32, float32) {
	x, y, err := m.sess.ActionVec2(hand)
	if err != nil {
		return 0, 0
	}
	return x, y
}

func (m *Manager) readBool(hand vrbridge.Hand, a xr.BoolAction) bool {
	v, err := m.sess.ActionBool(hand, a)
	if err != nil {
		return false
	}
	return v
}

// ControllerState returns the latest controller sample. ok is false
// until the first successful poll and whenever the session is not
// running, so on headset loss the input hook reverts to the host's
// native gamepad instead of injecting the frozen last sample. Safe to
// call from the host's input thread.
func (m *Manager) ControllerState() (vrbridge.ControllerState, bool) {
	if !m.State().IsRunning() {
		return vrbridge.ControllerState{}, false
	}
	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()
	return m.ctrl, m.ctrlOK
}
