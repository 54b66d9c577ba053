// Package xr abstracts the VR runtime: instance, session, reference
// spaces, swapchains, events, and the action layer used for controller
// input. The session manager talks only to these interfaces; concrete
// runtimes register themselves like render backends do, and a simulated
// runtime ships in this package so the whole pipeline runs headless.
//
// All poses crossing these interfaces are in the runtime's coordinate
// convention (right-handed, Y-up). Conversion to the host convention
// happens above this package.
package xr

import (
	"errors"
	"time"

	"github.com/vrforge/vrbridge"
	"github.com/vrforge/vrbridge/gfx"
)

// Common runtime errors.
var (
	// ErrRuntimeUnavailable is returned when no VR runtime can be reached
	// (loader missing, instance creation failed).
	ErrRuntimeUnavailable = errors.New("xr: runtime unavailable")

	// ErrNoHeadset is returned when the runtime is present but no headset
	// is connected.
	ErrNoHeadset = errors.New("xr: no headset connected")

	// ErrUnsupportedViewConfiguration is returned when the runtime does
	// not report exactly two stereo views.
	ErrUnsupportedViewConfiguration = errors.New("xr: unsupported view configuration")

	// ErrSessionLost is returned once the runtime has declared the session
	// unrecoverable.
	ErrSessionLost = errors.New("xr: session lost")

	// ErrSwapchainTimeout is returned when waiting for a swapchain image
	// exceeds the bounded timeout.
	ErrSwapchainTimeout = errors.New("xr: swapchain image wait timed out")
)

// SessionState mirrors the runtime's session lifecycle.
type SessionState int

// Session states, in the order the runtime normally walks them.
const (
	StateUnknown SessionState = iota
	StateIdle
	StateReady
	StateSynchronized
	StateVisible
	StateFocused
	StateStopping
	StateLossPending
	StateExiting
)

// IsRunning reports whether frames may be submitted in this state.
func (s SessionState) IsRunning() bool {
	switch s {
	case StateSynchronized, StateVisible, StateFocused:
		return true
	}
	return false
}

func (s SessionState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateSynchronized:
		return "synchronized"
	case StateVisible:
		return "visible"
	case StateFocused:
		return "focused"
	case StateStopping:
		return "stopping"
	case StateLossPending:
		return "loss-pending"
	case StateExiting:
		return "exiting"
	}
	return "invalid"
}

// Event is a runtime event drained once per frame.
type Event interface {
	isEvent()
}

// EventStateChanged announces a session state transition.
type EventStateChanged struct {
	State SessionState
}

// EventInstanceLoss announces impending loss of the whole runtime
// instance. Submission must stop; recovery is not attempted.
type EventInstanceLoss struct{}

func (EventStateChanged) isEvent() {}
func (EventInstanceLoss) isEvent() {}

// SystemID identifies a connected headset.
type SystemID uint64

// SpaceType selects a reference space.
type SpaceType int

// Reference space kinds. Stage is preferred; local is the fallback for
// runtimes without stage tracking.
const (
	SpaceStage SpaceType = iota
	SpaceLocal
)

func (t SpaceType) String() string {
	if t == SpaceStage {
		return "stage"
	}
	return "local"
}

// ViewConfig describes one stereo view as recommended by the runtime.
type ViewConfig struct {
	Width  int
	Height int
}

// Fov holds the half-angles of a view frustum in radians.
type Fov struct {
	AngleLeft  float32
	AngleRight float32
	AngleUp    float32
	AngleDown  float32
}

// View is one eye's locate-views result.
type View struct {
	Pose vrbridge.Pose
	Fov  Fov
}

// FrameState is the wait-frame result.
type FrameState struct {
	// PredictedDisplayTime is the runtime's estimate, in runtime time
	// units, of when this frame will reach the display. Used both for
	// locating views and for syncing actions.
	PredictedDisplayTime int64

	// ShouldRender is false while the runtime wants frame timing observed
	// but no content submitted.
	ShouldRender bool
}

// LayerView is one eye of a projection layer.
type LayerView struct {
	Pose       vrbridge.Pose
	Fov        Fov
	Swapchain  Swapchain
	ImageIndex int
}

// ProjectionLayer is a stereo projection layer for end-frame.
type ProjectionLayer struct {
	Space Space
	Views [2]LayerView
}

// EndFrameInfo carries everything end-frame needs. Zero layers is the
// discard-frame form: timing is honored, nothing is displayed.
type EndFrameInfo struct {
	DisplayTime int64
	Layers      []ProjectionLayer
}

// Binding ties one action to an input path within a profile.
type Binding struct {
	Action string
	Path   string
}

// InteractionProfile is one controller family's suggested bindings.
// Profiles are suggested independently: a runtime rejecting one family's
// paths must not prevent the others from binding.
type InteractionProfile struct {
	Path     string
	Bindings []Binding
}

// FloatAction selects an analog controller action.
type FloatAction int

// Analog actions.
const (
	ActionTrigger FloatAction = iota
	ActionGrip
)

// BoolAction selects a boolean controller action.
type BoolAction int

// Boolean actions.
const (
	ActionThumbClick BoolAction = iota
	ActionPrimary
	ActionSecondary
	ActionMenu
)

// Runtime is a connected VR runtime instance.
//
// A Runtime is created in two situations: during early startup before any
// graphics device exists (instance only), and factories must therefore not
// require a device. Everything device-dependent lives on Session.
type Runtime interface {
	// Name identifies the runtime for logs and the registry.
	Name() string

	// System returns the connected headset, or ErrNoHeadset.
	System() (SystemID, error)

	// Views reports the stereo view configuration. Implementations must
	// return exactly two views or ErrUnsupportedViewConfiguration.
	Views(sys SystemID) ([]ViewConfig, error)

	// CreateSession binds the runtime to the captured graphics queue.
	CreateSession(sys SystemID, q gfx.Queue) (Session, error)

	// PollEvent pops one queued event. ok is false when the queue is
	// empty.
	PollEvent() (ev Event, ok bool)

	// Destroy tears down the instance.
	Destroy()
}

// Session is a running binding between the runtime and the graphics
// device.
type Session interface {
	// Begin starts the frame loop after the runtime reports ready.
	Begin() error

	// End stops the frame loop after the runtime requests stopping.
	End() error

	// CreateSpace creates a reference space of the given type.
	CreateSpace(t SpaceType) (Space, error)

	// CreateSwapchain allocates one eye's image chain at the given extent.
	CreateSwapchain(width, height int) (Swapchain, error)

	// WaitFrame blocks until the runtime is ready for the next frame.
	WaitFrame() (FrameState, error)

	// BeginFrame opens the frame that WaitFrame predicted.
	BeginFrame() error

	// LocateViews returns both eye poses at the given display time,
	// relative to the given space.
	LocateViews(displayTime int64, space Space) ([2]View, error)

	// EndFrame closes the current frame.
	EndFrame(info EndFrameInfo) error

	// AttachActions creates the controller action set, suggests the
	// given per-profile bindings, and attaches the set to the session.
	// Must be called once, before the first SyncActions. Profiles the
	// runtime rejects are skipped; the error reports only total failure.
	AttachActions(profiles []InteractionProfile) error

	// SyncActions refreshes action state at the given predicted display
	// time. Called once per frame.
	SyncActions(displayTime int64) error

	// ActionFloat reads an analog action for one hand.
	ActionFloat(hand vrbridge.Hand, a FloatAction) (float32, error)

	// ActionVec2 reads the thumbstick for one hand.
	ActionVec2(hand vrbridge.Hand) (x, y float32, err error)

	// ActionBool reads a boolean action for one hand.
	ActionBool(hand vrbridge.Hand, a BoolAction) (bool, error)

	// LocateHand returns the grip pose of one hand at the given display
	// time, in runtime space. Pose.Valid is false when the controller is
	// not tracked.
	LocateHand(hand vrbridge.Hand, displayTime int64, space Space) (vrbridge.Pose, error)

	// Destroy releases the session.
	Destroy()
}

// Space is an opaque reference space.
type Space interface {
	Type() SpaceType
}

// Swapchain is one eye's image chain.
type Swapchain interface {
	// Acquire reserves the next image and returns its index.
	Acquire() (int, error)

	// Wait blocks until the acquired image is ready for writing, up to
	// timeout. Returns ErrSwapchainTimeout when the bound is exceeded;
	// the implementation then abandons the acquired image itself, so the
	// caller must not Release it and the next Acquire starts fresh. A
	// chain therefore never leaks images across repeated timeouts.
	Wait(timeout time.Duration) error

	// Release hands the waited image back to the runtime for composition.
	Release() error

	// Image returns the texture backing the given index.
	Image(index int) gfx.Texture

	// Extent returns the image dimensions.
	Extent() (width, height int)

	// Destroy releases the chain.
	Destroy()
}
