package xr

import (
	"errors"
	"testing"
	"time"

	"github.com/vrforge/vrbridge"
	"github.com/vrforge/vrbridge/gfx"
)

func newTestSession(t *testing.T, sim *Sim) Session {
	t.Helper()
	dev := gfx.NewSoftwareDevice()
	t.Cleanup(dev.Close)
	q, err := dev.NewQueue(gfx.PriorityHigh)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	sys, err := sim.System()
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	sess, err := sim.CreateSession(sys, q)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	t.Cleanup(sess.Destroy)
	return sess
}

func drainStates(sim *Sim) []SessionState {
	var states []SessionState
	for {
		ev, ok := sim.PollEvent()
		if !ok {
			return states
		}
		if sc, ok := ev.(EventStateChanged); ok {
			states = append(states, sc.State)
		}
	}
}

func TestSimNoSystem(t *testing.T) {
	sim := NewSim()
	sim.NoSystem = true
	if _, err := sim.System(); !errors.Is(err, ErrNoHeadset) {
		t.Errorf("System() error = %v, want ErrNoHeadset", err)
	}
}

func TestSimViewCount(t *testing.T) {
	sim := NewSim()
	views, err := sim.Views(1)
	if err != nil {
		t.Fatalf("Views: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len(views) = %d, want 2", len(views))
	}

	sim.ViewCount = 1
	views, _ = sim.Views(1)
	if len(views) != 1 {
		t.Errorf("len(views) = %d, want 1 with override", len(views))
	}
}

func TestSimLifecycleEvents(t *testing.T) {
	sim := NewSim()
	sess := newTestSession(t, sim)

	got := drainStates(sim)
	want := []SessionState{StateIdle, StateReady}
	if len(got) != len(want) {
		t.Fatalf("states after create = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states after create = %v, want %v", got, want)
		}
	}

	if err := sess.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	got = drainStates(sim)
	want = []SessionState{StateSynchronized, StateVisible, StateFocused}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("states after begin = %v, want %v", got, want)
		}
	}

	if err := sess.Begin(); err == nil {
		t.Error("second Begin succeeded, want error")
	}
}

func TestSimStageFallback(t *testing.T) {
	sim := NewSim()
	sim.RejectStage = true
	sess := newTestSession(t, sim)

	if _, err := sess.CreateSpace(SpaceStage); err == nil {
		t.Fatal("stage space creation succeeded with RejectStage")
	}
	sp, err := sess.CreateSpace(SpaceLocal)
	if err != nil {
		t.Fatalf("local space: %v", err)
	}
	if sp.Type() != SpaceLocal {
		t.Errorf("space type = %v, want local", sp.Type())
	}
}

func TestSimFrameProtocol(t *testing.T) {
	sim := NewSim()
	sess := newTestSession(t, sim)
	if err := sess.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	fs, err := sess.WaitFrame()
	if err != nil {
		t.Fatalf("WaitFrame: %v", err)
	}
	if fs.PredictedDisplayTime <= 0 {
		t.Errorf("PredictedDisplayTime = %d, want > 0", fs.PredictedDisplayTime)
	}
	if !fs.ShouldRender {
		t.Error("ShouldRender = false")
	}

	if err := sess.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if err := sess.BeginFrame(); err == nil {
		t.Error("double BeginFrame succeeded")
	}

	sp, _ := sess.CreateSpace(SpaceStage)
	views, err := sess.LocateViews(fs.PredictedDisplayTime, sp)
	if err != nil {
		t.Fatalf("LocateViews: %v", err)
	}
	if !views[0].Pose.Valid || !views[1].Pose.Valid {
		t.Error("located views not valid")
	}

	if err := sess.EndFrame(EndFrameInfo{DisplayTime: fs.PredictedDisplayTime}); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	if err := sess.EndFrame(EndFrameInfo{}); err == nil {
		t.Error("EndFrame without open frame succeeded")
	}

	// Display time advances monotonically.
	fs2, _ := sess.WaitFrame()
	if fs2.PredictedDisplayTime <= fs.PredictedDisplayTime {
		t.Errorf("display time did not advance: %d then %d",
			fs.PredictedDisplayTime, fs2.PredictedDisplayTime)
	}
}

func TestSimSwapchainProtocol(t *testing.T) {
	sim := NewSim()
	sess := newTestSession(t, sim)

	sc, err := sess.CreateSwapchain(64, 64)
	if err != nil {
		t.Fatalf("CreateSwapchain: %v", err)
	}
	defer sc.Destroy()

	if w, h := sc.Extent(); w != 64 || h != 64 {
		t.Errorf("Extent() = %dx%d, want 64x64", w, h)
	}

	idx, err := sc.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if sc.Image(idx) == nil {
		t.Fatal("Image(idx) = nil")
	}
	if _, err := sc.Acquire(); err == nil {
		t.Error("double Acquire succeeded")
	}
	if err := sc.Release(); err == nil {
		t.Error("Release before Wait succeeded")
	}
	if err := sc.Wait(time.Millisecond); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := sc.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Indices rotate through the chain.
	idx2, err := sc.Acquire()
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if idx2 == idx {
		t.Errorf("second Acquire returned same index %d", idx2)
	}
}

func TestSimSwapchainWaitTimeout(t *testing.T) {
	sim := NewSim()
	sim.FailSwapchainWait = true
	sess := newTestSession(t, sim)

	sc, err := sess.CreateSwapchain(32, 32)
	if err != nil {
		t.Fatalf("CreateSwapchain: %v", err)
	}
	defer sc.Destroy()

	if _, err := sc.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := sc.Wait(time.Millisecond); !errors.Is(err, ErrSwapchainTimeout) {
		t.Fatalf("Wait error = %v, want ErrSwapchainTimeout", err)
	}

	// The abandoned image must not block the next frame.
	sim.FailSwapchainWait = false
	if _, err := sc.Acquire(); err != nil {
		t.Errorf("Acquire after timeout: %v", err)
	}
}

func TestSimActionLayer(t *testing.T) {
	sim := NewSim()
	sess := newTestSession(t, sim)

	if err := sess.SyncActions(1); err == nil {
		t.Error("SyncActions before attach succeeded")
	}
	if err := sess.AttachActions(nil); err != nil {
		t.Fatalf("AttachActions: %v", err)
	}
	if err := sess.AttachActions(nil); err == nil {
		t.Error("double AttachActions succeeded")
	}
	if _, err := sess.ActionFloat(vrbridge.HandLeft, ActionTrigger); err == nil {
		t.Error("action read before sync succeeded")
	}
	if err := sess.SyncActions(1); err != nil {
		t.Fatalf("SyncActions: %v", err)
	}

	sim.SetInput(vrbridge.HandRight, SimInput{
		Tracked: true,
		Trigger: 0.75,
		Grip:    0.9,
		StickX:  0.5,
		StickY:  -0.25,
		Primary: true,
	})

	v, err := sess.ActionFloat(vrbridge.HandRight, ActionTrigger)
	if err != nil || v != 0.75 {
		t.Errorf("trigger = %v, %v, want 0.75", v, err)
	}
	v, _ = sess.ActionFloat(vrbridge.HandRight, ActionGrip)
	if v != 0.9 {
		t.Errorf("grip = %v, want 0.9", v)
	}
	x, y, _ := sess.ActionVec2(vrbridge.HandRight)
	if x != 0.5 || y != -0.25 {
		t.Errorf("stick = (%v, %v), want (0.5, -0.25)", x, y)
	}
	b, _ := sess.ActionBool(vrbridge.HandRight, ActionPrimary)
	if !b {
		t.Error("primary = false, want true")
	}
	b, _ = sess.ActionBool(vrbridge.HandRight, ActionMenu)
	if b {
		t.Error("menu = true, want false")
	}
}

func TestSimProfileRejection(t *testing.T) {
	profiles := []InteractionProfile{
		{Path: "/interaction_profiles/alpha", Bindings: []Binding{{Action: "trigger", Path: "/user/hand/left/input/trigger/value"}}},
		{Path: "/interaction_profiles/beta", Bindings: []Binding{{Action: "trigger", Path: "/user/hand/left/input/trigger/value"}}},
	}

	t.Run("one rejected, other binds", func(t *testing.T) {
		sim := NewSim()
		sim.RejectProfile = map[string]bool{"/interaction_profiles/alpha": true}
		sess := newTestSession(t, sim)
		if err := sess.AttachActions(profiles); err != nil {
			t.Fatalf("AttachActions: %v", err)
		}
		bound := sess.(*SimSession).BoundProfiles()
		if len(bound) != 1 || bound[0] != "/interaction_profiles/beta" {
			t.Errorf("bound = %v, want [beta]", bound)
		}
	})

	t.Run("all rejected fails", func(t *testing.T) {
		sim := NewSim()
		sim.RejectProfile = map[string]bool{
			"/interaction_profiles/alpha": true,
			"/interaction_profiles/beta":  true,
		}
		sess := newTestSession(t, sim)
		if err := sess.AttachActions(profiles); err == nil {
			t.Error("AttachActions succeeded with every profile rejected")
		}
	})
}

func TestSimLocateHand(t *testing.T) {
	sim := NewSim()
	sess := newTestSession(t, sim)
	sp, _ := sess.CreateSpace(SpaceStage)

	// Untracked hand reports an invalid pose, not an error.
	pose, err := sess.LocateHand(vrbridge.HandLeft, 1, sp)
	if err != nil {
		t.Fatalf("LocateHand: %v", err)
	}
	if pose.Valid {
		t.Error("untracked hand reported valid pose")
	}

	sim.SetInput(vrbridge.HandLeft, SimInput{Tracked: true})
	sim.SetInput(vrbridge.HandRight, SimInput{Tracked: true})

	left, _ := sess.LocateHand(vrbridge.HandLeft, 1, sp)
	right, _ := sess.LocateHand(vrbridge.HandRight, 1, sp)
	if !left.Valid || !right.Valid {
		t.Fatal("tracked hands reported invalid poses")
	}
	if left.Position.X >= right.Position.X {
		t.Errorf("left hand X %v not left of right hand X %v",
			left.Position.X, right.Position.X)
	}
}
