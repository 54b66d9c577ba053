package xr

import (
	"fmt"
	"sync"
	"time"

	"github.com/vrforge/vrbridge"
	"github.com/vrforge/vrbridge/gfx"
)

func init() {
	Register(RuntimeSim, func() Runtime { return NewSim() })
}

// simFrameDuration is the simulated display period (60 Hz, nanoseconds).
const simFrameDuration = 16_666_666

// SimInput is the scriptable controller state for one simulated hand.
type SimInput struct {
	Tracked    bool
	Trigger    float32
	Grip       float32
	StickX     float32
	StickY     float32
	ThumbClick bool
	Primary    bool
	Secondary  bool
	Menu       bool
}

// Sim is a deterministic in-process runtime. Tests and the demo binary
// script it through exported knobs; the zero configuration behaves like a
// healthy headset walking the normal state sequence.
//
// Knobs are read at call time, so tests may flip them between frames.
type Sim struct {
	// NoSystem makes System report no connected headset.
	NoSystem bool

	// ViewCount overrides the number of reported stereo views. Zero means
	// the normal two. Used to exercise view-configuration validation
	// above this package, so Views does not error on its own.
	ViewCount int

	// RejectStage makes stage space creation fail, forcing the local
	// space fallback.
	RejectStage bool

	// FailSwapchainWait makes every swapchain image wait exceed its
	// timeout.
	FailSwapchainWait bool

	// RejectProfile names interaction profile paths the runtime refuses
	// to bind. Rejected profiles are skipped; binding fails only when
	// every suggested profile is rejected.
	RejectProfile map[string]bool

	// ManualLifecycle suppresses the automatic state events around
	// CreateSession and Begin; the test pushes every event itself.
	ManualLifecycle bool

	// HeadPosition is the reported head pose origin (runtime space).
	// Defaults to standing height at the play-space center.
	HeadPosition vrbridge.Vec3

	mu          sync.Mutex
	events      []Event
	destroyed   bool
	input       [2]SimInput
	lastSession *SimSession
}

// NewSim returns a Sim reporting a healthy headset.
func NewSim() *Sim {
	return &Sim{HeadPosition: vrbridge.Vec3{Y: 1.6}}
}

func (s *Sim) Name() string { return RuntimeSim }

func (s *Sim) System() (SystemID, error) {
	if s.NoSystem {
		return 0, ErrNoHeadset
	}
	return 1, nil
}

func (s *Sim) Views(sys SystemID) ([]ViewConfig, error) {
	n := s.ViewCount
	if n == 0 {
		n = 2
	}
	views := make([]ViewConfig, n)
	for i := range views {
		views[i] = ViewConfig{Width: 1280, Height: 1440}
	}
	return views, nil
}

func (s *Sim) CreateSession(sys SystemID, q gfx.Queue) (Session, error) {
	if q == nil {
		return nil, fmt.Errorf("sim: create session: nil queue")
	}
	if !s.ManualLifecycle {
		s.PushEvent(EventStateChanged{State: StateIdle})
		s.PushEvent(EventStateChanged{State: StateReady})
	}
	sess := &SimSession{sim: s, queue: q}
	s.mu.Lock()
	s.lastSession = sess
	s.mu.Unlock()
	return sess, nil
}

// LastSession returns the most recently created session, or nil. Test
// hook for callers that hand session creation to another component.
func (s *Sim) LastSession() *SimSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSession
}

func (s *Sim) PollEvent() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil, false
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, true
}

// PushEvent queues an event for the next drain.
func (s *Sim) PushEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// RequestExit queues the stopping transition, as the runtime does when
// the user closes the session from outside the host.
func (s *Sim) RequestExit() {
	s.PushEvent(EventStateChanged{State: StateStopping})
}

// SetInput scripts one hand's controller state.
func (s *Sim) SetInput(hand vrbridge.Hand, in SimInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input[hand] = in
}

func (s *Sim) readInput(hand vrbridge.Hand) SimInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input[hand]
}

func (s *Sim) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.events = nil
}

// SimSession is the simulator's session. Its counters let tests verify
// the frame protocol from outside.
type SimSession struct {
	sim   *Sim
	queue gfx.Queue

	mu        sync.Mutex
	began     bool
	frame     int64
	frameOpen bool
	attached  bool
	synced    bool

	boundProfiles []string

	// Frame protocol counters, observable by tests.
	beginFrames   int
	endFrames     int
	lastEndLayers int
}

func (s *SimSession) Begin() error {
	s.mu.Lock()
	if s.began {
		s.mu.Unlock()
		return fmt.Errorf("sim: session already begun")
	}
	s.began = true
	s.mu.Unlock()

	if !s.sim.ManualLifecycle {
		s.sim.PushEvent(EventStateChanged{State: StateSynchronized})
		s.sim.PushEvent(EventStateChanged{State: StateVisible})
		s.sim.PushEvent(EventStateChanged{State: StateFocused})
	}
	return nil
}

func (s *SimSession) End() error {
	s.mu.Lock()
	if !s.began {
		s.mu.Unlock()
		return fmt.Errorf("sim: session not begun")
	}
	s.began = false
	s.mu.Unlock()

	if !s.sim.ManualLifecycle {
		s.sim.PushEvent(EventStateChanged{State: StateIdle})
		s.sim.PushEvent(EventStateChanged{State: StateExiting})
	}
	return nil
}

func (s *SimSession) CreateSpace(t SpaceType) (Space, error) {
	if t == SpaceStage && s.sim.RejectStage {
		return nil, fmt.Errorf("sim: stage space not supported")
	}
	return simSpace{t: t}, nil
}

func (s *SimSession) CreateSwapchain(width, height int) (Swapchain, error) {
	dev := s.queue.Device()
	sc := &simSwapchain{sim: s.sim, width: width, height: height, acquired: -1}
	for i := 0; i < 3; i++ {
		tex, err := dev.CreateTexture(width, height)
		if err != nil {
			return nil, fmt.Errorf("sim: swapchain image %d: %w", i, err)
		}
		sc.images = append(sc.images, tex)
	}
	return sc, nil
}

func (s *SimSession) WaitFrame() (FrameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.began {
		return FrameState{}, fmt.Errorf("sim: wait frame before begin")
	}
	s.frame++
	return FrameState{
		PredictedDisplayTime: s.frame * simFrameDuration,
		ShouldRender:         true,
	}, nil
}

func (s *SimSession) BeginFrame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameOpen {
		return fmt.Errorf("sim: frame already open")
	}
	s.frameOpen = true
	s.beginFrames++
	return nil
}

func (s *SimSession) LocateViews(displayTime int64, space Space) ([2]View, error) {
	if space == nil {
		return [2]View{}, fmt.Errorf("sim: locate views: nil space")
	}
	head := vrbridge.Pose{
		Position:    s.sim.HeadPosition,
		Orientation: vrbridge.Quat{W: 1},
		Valid:       true,
	}
	fov := Fov{AngleLeft: -0.8, AngleRight: 0.8, AngleUp: 0.8, AngleDown: -0.8}
	return [2]View{{Pose: head, Fov: fov}, {Pose: head, Fov: fov}}, nil
}

func (s *SimSession) EndFrame(info EndFrameInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.frameOpen {
		return fmt.Errorf("sim: end frame without begin")
	}
	s.frameOpen = false
	s.endFrames++
	s.lastEndLayers = len(info.Layers)
	return nil
}

func (s *SimSession) AttachActions(profiles []InteractionProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return fmt.Errorf("sim: actions already attached")
	}
	for _, p := range profiles {
		if !s.sim.RejectProfile[p.Path] {
			s.boundProfiles = append(s.boundProfiles, p.Path)
		}
	}
	if len(profiles) > 0 && len(s.boundProfiles) == 0 {
		return fmt.Errorf("sim: no interaction profile accepted")
	}
	s.attached = true
	return nil
}

// BoundProfiles reports which suggested profiles the sim accepted. Test
// hook.
func (s *SimSession) BoundProfiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.boundProfiles...)
}

func (s *SimSession) SyncActions(displayTime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return fmt.Errorf("sim: sync before attach")
	}
	s.synced = true
	return nil
}

func (s *SimSession) ActionFloat(hand vrbridge.Hand, a FloatAction) (float32, error) {
	if err := s.checkSynced(); err != nil {
		return 0, err
	}
	in := s.sim.readInput(hand)
	switch a {
	case ActionTrigger:
		return in.Trigger, nil
	case ActionGrip:
		return in.Grip, nil
	}
	return 0, fmt.Errorf("sim: unknown float action %d", a)
}

func (s *SimSession) ActionVec2(hand vrbridge.Hand) (float32, float32, error) {
	if err := s.checkSynced(); err != nil {
		return 0, 0, err
	}
	in := s.sim.readInput(hand)
	return in.StickX, in.StickY, nil
}

func (s *SimSession) ActionBool(hand vrbridge.Hand, a BoolAction) (bool, error) {
	if err := s.checkSynced(); err != nil {
		return false, err
	}
	in := s.sim.readInput(hand)
	switch a {
	case ActionThumbClick:
		return in.ThumbClick, nil
	case ActionPrimary:
		return in.Primary, nil
	case ActionSecondary:
		return in.Secondary, nil
	case ActionMenu:
		return in.Menu, nil
	}
	return false, fmt.Errorf("sim: unknown bool action %d", a)
}

func (s *SimSession) LocateHand(hand vrbridge.Hand, displayTime int64, space Space) (vrbridge.Pose, error) {
	if space == nil {
		return vrbridge.Pose{}, fmt.Errorf("sim: locate hand: nil space")
	}
	in := s.sim.readInput(hand)
	offset := float32(0.2)
	if hand == vrbridge.HandLeft {
		offset = -0.2
	}
	pos := s.sim.HeadPosition.Add(vrbridge.Vec3{X: offset, Y: -0.4, Z: -0.3})
	return vrbridge.Pose{
		Position:    pos,
		Orientation: vrbridge.Quat{W: 1},
		Valid:       in.Tracked,
	}, nil
}

func (s *SimSession) checkSynced() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.synced {
		return fmt.Errorf("sim: action read before sync")
	}
	return nil
}

// BeginFrames reports how many frames were opened. Test hook.
func (s *SimSession) BeginFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginFrames
}

// EndFrames reports how many frames were closed. Test hook.
func (s *SimSession) EndFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endFrames
}

// LastEndLayers reports the layer count of the most recent end-frame.
// Zero after a discarded frame. Test hook.
func (s *SimSession) LastEndLayers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEndLayers
}

func (s *SimSession) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.began = false
	s.frameOpen = false
}

type simSpace struct {
	t SpaceType
}

func (s simSpace) Type() SpaceType { return s.t }

type simSwapchain struct {
	sim    *Sim
	images []gfx.Texture
	width  int
	height int

	mu       sync.Mutex
	next     int
	acquired int
	waited   bool
}

func (sc *simSwapchain) Acquire() (int, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.acquired >= 0 {
		return 0, fmt.Errorf("sim: image %d still held", sc.acquired)
	}
	sc.acquired = sc.next
	sc.next = (sc.next + 1) % len(sc.images)
	sc.waited = false
	return sc.acquired, nil
}

func (sc *simSwapchain) Wait(timeout time.Duration) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.acquired < 0 {
		return fmt.Errorf("sim: wait without acquire")
	}
	if sc.sim.FailSwapchainWait {
		// A timed-out image is abandoned so the next frame can acquire.
		sc.acquired = -1
		return ErrSwapchainTimeout
	}
	sc.waited = true
	return nil
}

func (sc *simSwapchain) Release() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.acquired < 0 || !sc.waited {
		return fmt.Errorf("sim: release without wait")
	}
	sc.acquired = -1
	sc.waited = false
	return nil
}

func (sc *simSwapchain) Image(index int) gfx.Texture {
	if index < 0 || index >= len(sc.images) {
		return nil
	}
	return sc.images[index]
}

func (sc *simSwapchain) Extent() (int, int) { return sc.width, sc.height }

func (sc *simSwapchain) Destroy() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.images = nil
}
