package hook

import (
	"testing"

	"github.com/vrforge/vrbridge"
	"github.com/vrforge/vrbridge/gfx"
)

// fakeBridge records the calls the hooks make and serves canned data.
type fakeBridge struct {
	initErr   error
	initCalls int

	pose   vrbridge.Pose
	poseOK bool

	updateOK     bool
	updateCalls  int
	updatePanics bool

	submits   []bool
	submitErr error

	ctrl    vrbridge.ControllerState
	ctrlOK  bool
	running bool
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		pose: vrbridge.Pose{
			Position:    vrbridge.V3(1, 2, 3),
			Orientation: vrbridge.QuatIdentity(),
			Valid:       true,
		},
		poseOK:   true,
		updateOK: true,
		ctrlOK:   true,
		running:  true,
	}
}

func (b *fakeBridge) Initialize(q gfx.Queue) error {
	b.initCalls++
	return b.initErr
}

func (b *fakeBridge) Update() (vrbridge.Pose, bool) {
	if b.updatePanics {
		panic("update exploded")
	}
	b.updateCalls++
	if !b.updateOK {
		return vrbridge.Pose{}, false
	}
	return b.pose, true
}

func (b *fakeBridge) HeadPose() (vrbridge.Pose, bool) {
	if !b.poseOK {
		return vrbridge.Pose{}, false
	}
	return b.pose, true
}

func (b *fakeBridge) SubmitFrame(tex gfx.Texture, leftEye bool) error {
	b.submits = append(b.submits, leftEye)
	return b.submitErr
}

func (b *fakeBridge) ControllerState() (vrbridge.ControllerState, bool) {
	return b.ctrl, b.ctrlOK
}

func (b *fakeBridge) IsSessionRunning() bool {
	return b.running
}

// stubEyes stands in for the presentation hook in camera tests that
// exercise one parity at a time.
type stubEyes struct {
	left bool
}

func (s *stubEyes) LeftEye() bool {
	return s.left
}

func newTestSurface(t *testing.T) (*gfx.SoftwareDevice, *gfx.SoftwareSurface) {
	t.Helper()
	dev := gfx.NewSoftwareDevice()
	t.Cleanup(dev.Close)
	surface, err := gfx.NewSoftwareSurface(dev, 64, 64, 3)
	if err != nil {
		t.Fatalf("NewSoftwareSurface: %v", err)
	}
	return dev, surface
}
