// Package session implements the VR session manager: the sole owner of
// the runtime instance, session, tracking space, per-eye swapchains, and
// the GPU copy machinery that moves the host's color target into the
// headset's compositor.
//
// The manager is driven entirely from the host's own threads. Update and
// SubmitFrame run on the host's render thread; ControllerState is read
// from the host's input-polling thread. Readiness is observed through
// lock-free atomics so the per-frame path never takes the initialization
// mutex.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vrforge/vrbridge"
	"github.com/vrforge/vrbridge/gfx"
	"github.com/vrforge/vrbridge/xr"
)

// swapchainWaitTimeout bounds the per-image wait so a hung compositor
// cannot freeze the host's render thread.
const swapchainWaitTimeout = 100 * time.Millisecond

// Manager errors.
var (
	// ErrWrongEye is returned when SubmitFrame repeats an eye without an
	// intervening Update. The open frame is dropped and submission
	// resumes at the next Update.
	ErrWrongEye = errors.New("session: repeated eye submission, frame dropped")
)

// Option configures a Manager.
type Option func(*Manager)

// WithRuntime pins the manager to a specific runtime instead of registry
// selection. Tests use this to inject the simulator.
func WithRuntime(rt xr.Runtime) Option {
	return func(m *Manager) { m.rt = rt }
}

// Manager owns the VR runtime lifecycle. Construct with NewManager, feed
// it a graphics queue via Initialize once the presentation hook has
// captured one, then drive it once per host frame.
type Manager struct {
	cfg *vrbridge.Config
	rt  xr.Runtime

	// mu guards the two-phase initialization and teardown. The per-frame
	// path observes readiness through the atomics below instead.
	mu            sync.Mutex
	instanceReady atomic.Bool
	ready         atomic.Bool
	shutdown      atomic.Bool

	state           atomic.Int32
	frameInProgress atomic.Bool

	sess       xr.Session
	space      xr.Space
	swapchains [2]xr.Swapchain
	queue      gfx.Queue
	copier     gfx.Copier
	actionsOK  bool

	// Per-frame data. Touched only on the host's render thread, between
	// one Update and the matching right-eye SubmitFrame; the single-writer
	// assumption is documented in the package comment, not enforced.
	displayTime  int64
	shouldRender bool
	views        [2]xr.View
	layerViews   [2]xr.LayerView
	leftDone     bool

	ctrlMu sync.Mutex
	ctrl   vrbridge.ControllerState
	ctrlOK bool

	poseMu   sync.Mutex
	headPose vrbridge.Pose

	// First-occurrence warnings for per-frame recoverable failures, to
	// keep the hot path quiet.
	warnWaitFrame onceLog
	warnBegin     onceLog
	warnLocate    onceLog
	warnAcquire   onceLog
	warnWait      onceLog
	warnCopy      onceLog
	warnEnd       onceLog
	warnSync      onceLog
}

// NewManager creates a manager bound to the given configuration. A nil
// cfg gets defaults.
func NewManager(cfg *vrbridge.Config, opts ...Option) *Manager {
	if cfg == nil {
		cfg = vrbridge.NewConfig()
	}
	m := &Manager{cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize brings the runtime up in two phases and is reentrant: calling
// again after a phase has completed is a no-op for that phase.
//
// Phase 1 needs no graphics queue and creates the runtime instance; it
// fails with xr.ErrRuntimeUnavailable when no runtime is reachable.
//
// Phase 2 runs once a queue is present: system acquisition
// (xr.ErrNoHeadset when absent), stereo view validation
// (xr.ErrUnsupportedViewConfiguration unless exactly two views), session,
// tracking space (stage preferred, local fallback), one swapchain per eye
// at the recommended resolution, and the GPU copy resources. A nil queue
// leaves phase 2 pending and returns nil.
func (m *Manager) Initialize(q gfx.Queue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := vrbridge.Logger()

	if !m.instanceReady.Load() {
		if m.rt == nil {
			m.rt = xr.Default()
		}
		if m.rt == nil {
			return xr.ErrRuntimeUnavailable
		}
		m.instanceReady.Store(true)
		log.Info("runtime instance created", "runtime", m.rt.Name())
	}

	if q == nil {
		log.Info("waiting for graphics queue")
		return nil
	}
	if m.ready.Load() {
		return nil
	}

	sys, err := m.rt.System()
	if err != nil {
		return fmt.Errorf("acquire system: %w", err)
	}

	views, err := m.rt.Views(sys)
	if err != nil {
		return fmt.Errorf("enumerate views: %w", err)
	}
	if len(views) != 2 {
		return fmt.Errorf("%w: runtime reported %d views", xr.ErrUnsupportedViewConfiguration, len(views))
	}

	sess, err := m.rt.CreateSession(sys, q)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	space, err := sess.CreateSpace(xr.SpaceStage)
	if err != nil {
		log.Warn("stage space unsupported, falling back to local", "err", err)
		space, err = sess.CreateSpace(xr.SpaceLocal)
		if err != nil {
			sess.Destroy()
			return fmt.Errorf("create tracking space: %w", err)
		}
	}

	var swapchains [2]xr.Swapchain
	for i, vc := range views {
		sc, err := sess.CreateSwapchain(vc.Width, vc.Height)
		if err != nil {
			for _, created := range swapchains {
				if created != nil {
					created.Destroy()
				}
			}
			sess.Destroy()
			return fmt.Errorf("create swapchain %d: %w", i, err)
		}
		swapchains[i] = sc
	}

	copier, err := q.Device().NewCopier(q)
	if err != nil {
		for _, sc := range swapchains {
			sc.Destroy()
		}
		sess.Destroy()
		return fmt.Errorf("create copy resources: %w", err)
	}

	// Binding failure degrades to head tracking only; never fatal.
	if err := sess.AttachActions(defaultProfiles()); err != nil {
		log.Warn("controller bindings unavailable", "err", err)
		m.actionsOK = false
	} else {
		m.actionsOK = true
	}

	m.sess = sess
	m.space = space
	m.swapchains = swapchains
	m.queue = q
	m.copier = copier
	m.ready.Store(true)

	w, h := swapchains[0].Extent()
	log.Info("session ready", "space", space.Type().String(), "eye_width", w, "eye_height", h)
	return nil
}

// State returns the current session state.
func (m *Manager) State() xr.SessionState {
	return xr.SessionState(m.state.Load())
}

// IsSessionRunning reports whether frame operations are currently
// meaningful.
func (m *Manager) IsSessionRunning() bool {
	return m.State().IsRunning()
}

// Update drains runtime events, opens the next frame, and returns the
// head pose converted to host space. ok is false whenever this frame
// should be skipped: session not running, wait-frame or view location
// failed. All of those are per-frame recoverable, never fatal.
func (m *Manager) Update() (vrbridge.Pose, bool) {
	if !m.ready.Load() || m.shutdown.Load() {
		return vrbridge.Pose{}, false
	}

	m.drainEvents()

	if !m.State().IsRunning() {
		return vrbridge.Pose{}, false
	}

	// A frame left open by a tick that never reached the right-eye
	// submission is discarded here; exactly one frame is in progress at a
	// time.
	m.discardFrame()

	fs, err := m.sess.WaitFrame()
	if err != nil {
		m.warnWaitFrame.warn("wait frame failed", err)
		return vrbridge.Pose{}, false
	}

	if err := m.sess.BeginFrame(); err != nil {
		m.warnBegin.warn("begin frame failed", err)
		return vrbridge.Pose{}, false
	}
	m.displayTime = fs.PredictedDisplayTime
	m.shouldRender = fs.ShouldRender
	m.leftDone = false
	m.frameInProgress.Store(true)

	views, err := m.sess.LocateViews(fs.PredictedDisplayTime, m.space)
	if err != nil {
		m.warnLocate.warn("locate views failed", err)
		m.discardFrame()
		return vrbridge.Pose{}, false
	}
	m.views = views

	m.pollController(fs.PredictedDisplayTime)

	pose := vrbridge.RuntimePoseToHost(views[0].Pose)
	m.poseMu.Lock()
	m.headPose = pose
	m.poseMu.Unlock()
	return pose, true
}

// HeadPose returns the most recent head pose produced by Update, already
// converted to host space. The camera override reads this instead of
// driving the frame protocol itself; ok is false before the first
// successful Update, whenever the session is not running, and after
// shutdown. The not-running gate matters on headset loss: the cached
// pose would otherwise keep overriding the host camera with a frozen
// sample, and the host must fall back to its native rendering instead.
func (m *Manager) HeadPose() (vrbridge.Pose, bool) {
	if !m.ready.Load() || m.shutdown.Load() || !m.State().IsRunning() {
		return vrbridge.Pose{}, false
	}
	m.poseMu.Lock()
	defer m.poseMu.Unlock()
	return m.headPose, m.headPose.Valid
}

// SubmitFrame copies the host's color target into the given eye's
// swapchain and, after the right eye, closes the frame opened by Update.
// There is exactly one begin/end pair per logical frame.
//
// Not-running sessions and nil textures are no-ops that modify no state.
// A repeated eye drops the open frame and returns ErrWrongEye; submission
// resumes at the next Update.
func (m *Manager) SubmitFrame(tex gfx.Texture, leftEye bool) error {
	if !m.ready.Load() || m.shutdown.Load() || !m.State().IsRunning() {
		return nil
	}
	eye := 1
	if leftEye {
		eye = 0
	}
	sc := m.swapchains[eye]
	if sc == nil || tex == nil {
		return nil
	}
	if !m.frameInProgress.Load() {
		return nil
	}

	if leftEye == m.leftDone {
		m.discardFrame()
		return ErrWrongEye
	}

	idx, err := sc.Acquire()
	if err != nil {
		m.warnAcquire.warn("swapchain acquire failed", err)
		m.discardFrame()
		return err
	}
	// A timed-out image is abandoned by the chain itself, never released
	// here; the next frame acquires fresh.
	if err := sc.Wait(swapchainWaitTimeout); err != nil {
		m.warnWait.warn("swapchain wait timed out", err)
		m.discardFrame()
		return err
	}

	if err := m.copier.Copy(sc.Image(idx), tex, m.cfg.GPUWaitTimeout()); err != nil {
		m.warnCopy.warn("eye copy failed, frame dropped", err)
		_ = sc.Release()
		m.discardFrame()
		return err
	}

	if err := sc.Release(); err != nil {
		m.discardFrame()
		return err
	}

	m.layerViews[eye] = xr.LayerView{
		Pose:       m.views[eye].Pose,
		Fov:        m.views[eye].Fov,
		Swapchain:  sc,
		ImageIndex: idx,
	}

	if leftEye {
		m.leftDone = true
		return nil
	}

	info := xr.EndFrameInfo{DisplayTime: m.displayTime}
	if m.shouldRender {
		info.Layers = []xr.ProjectionLayer{{Space: m.space, Views: m.layerViews}}
	}
	if err := m.sess.EndFrame(info); err != nil {
		m.warnEnd.warn("end frame failed", err)
	}
	m.frameInProgress.Store(false)
	m.leftDone = false
	return nil
}

// discardFrame closes the open frame without content so the begin/end
// pairing stays intact.
func (m *Manager) discardFrame() {
	if !m.frameInProgress.Load() {
		return
	}
	if err := m.sess.EndFrame(xr.EndFrameInfo{DisplayTime: m.displayTime}); err != nil {
		m.warnEnd.warn("end frame failed", err)
	}
	m.frameInProgress.Store(false)
	m.leftDone = false
}

func (m *Manager) drainEvents() {
	for {
		ev, ok := m.rt.PollEvent()
		if !ok {
			return
		}
		switch e := ev.(type) {
		case xr.EventStateChanged:
			m.applyState(e.State)
		case xr.EventInstanceLoss:
			vrbridge.Logger().Warn("runtime instance loss pending, submission stopped")
			m.state.Store(int32(xr.StateLossPending))
		}
	}
}

func (m *Manager) applyState(st xr.SessionState) {
	m.state.Store(int32(st))
	log := vrbridge.Logger()
	log.Info("session state", "state", st.String())

	switch st {
	case xr.StateReady:
		if err := m.sess.Begin(); err != nil {
			log.Error("begin session failed", "err", err)
		}
	case xr.StateStopping:
		if err := m.sess.End(); err != nil {
			log.Warn("end session failed", "err", err)
		}
	case xr.StateLossPending:
		log.Warn("session loss pending, headset may have disconnected")
	}
}

// Close tears everything down in reverse creation order. Safe to call
// more than once. Callers must ensure no hook invocation is in flight;
// the presentation hook handles that with its shutdown flag.
func (m *Manager) Close() {
	m.shutdown.Store(true)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready.Load() {
		m.discardFrame()
		m.copier.Close()
		for i, sc := range m.swapchains {
			if sc != nil {
				sc.Destroy()
				m.swapchains[i] = nil
			}
		}
		if m.State().IsRunning() {
			if err := m.sess.End(); err != nil {
				vrbridge.Logger().Warn("end session failed", "err", err)
			}
		}
		m.sess.Destroy()
		m.sess = nil
		m.ready.Store(false)
	}

	if m.instanceReady.Load() && m.rt != nil {
		m.rt.Destroy()
		m.instanceReady.Store(false)
	}
	m.state.Store(int32(xr.StateExiting))
}

// onceLog emits a warning for the first occurrence of a recoverable
// per-frame failure and stays quiet afterwards.
type onceLog struct {
	seen atomic.Bool
}

func (o *onceLog) warn(msg string, err error) {
	if o.seen.CompareAndSwap(false, true) {
		vrbridge.Logger().Warn(msg, "err", err)
	}
}
