package openxr

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/vrforge/vrbridge/gfx"
	"github.com/vrforge/vrbridge/xr"
)

func init() {
	xr.Register(xr.RuntimeOpenXR, func() xr.Runtime {
		rt, err := NewRuntime()
		if err != nil {
			return nil
		}
		return rt
	})
}

// Loader shared object names, most specific first.
var loaderNames = []string{"libopenxr_loader.so.1", "libopenxr_loader.so"}

// XrResult values this binding inspects.
const (
	xrSuccess                    = 0
	xrEventUnavailable           = 4
	xrErrorFormFactorUnavailable = -38
)

// Structure type tags.
const (
	typeInstanceCreateInfo             = 3
	typeSystemGetInfo                  = 4
	typeEventDataBuffer                = 16
	typeEventDataInstanceLossPending   = 17
	typeEventDataSessionStateChanged   = 18
	typeViewConfigurationView          = 41
	formFactorHeadMountedDisplay       = 1
	viewConfigurationTypePrimaryStereo = 2
)

// apiVersion1_0 is XR_MAKE_VERSION(1, 0, 34).
const apiVersion1_0 = uint64(1)<<48 | uint64(34)

type xrApplicationInfo struct {
	ApplicationName    [128]byte
	ApplicationVersion uint32
	EngineName         [128]byte
	EngineVersion      uint32
	APIVersion         uint64
}

type xrInstanceCreateInfo struct {
	Type                  int32
	Next                  unsafe.Pointer
	CreateFlags           uint64
	ApplicationInfo       xrApplicationInfo
	EnabledAPILayerCount  uint32
	EnabledAPILayerNames  unsafe.Pointer
	EnabledExtensionCount uint32
	EnabledExtensionNames unsafe.Pointer
}

type xrSystemGetInfo struct {
	Type       int32
	Next       unsafe.Pointer
	FormFactor int32
}

type xrViewConfigurationView struct {
	Type                            int32
	Next                            unsafe.Pointer
	RecommendedImageRectWidth       uint32
	MaxImageRectWidth               uint32
	RecommendedImageRectHeight      uint32
	MaxImageRectHeight              uint32
	RecommendedSwapchainSampleCount uint32
	MaxSwapchainSampleCount         uint32
}

// xrEventDataBuffer is the caller-allocated event union. The varying
// payload is reinterpreted per event type.
type xrEventDataBuffer struct {
	Type    int32
	Next    unsafe.Pointer
	Varying [4000]byte
}

type xrEventDataSessionStateChanged struct {
	Type    int32
	Next    unsafe.Pointer
	Session uintptr
	State   int32
	Time    int64
}

// Runtime is the OpenXR-backed xr.Runtime.
type Runtime struct {
	lib      uintptr
	instance uintptr

	createInstance  func(*xrInstanceCreateInfo, *uintptr) int32
	destroyInstance func(uintptr) int32
	getSystem       func(uintptr, *xrSystemGetInfo, *uint64) int32
	enumViews       func(uintptr, uint64, int32, uint32, *uint32, *xrViewConfigurationView) int32
	pollEvent       func(uintptr, *xrEventDataBuffer) int32
}

// NewRuntime opens the system loader and creates an OpenXR instance.
// Returns xr.ErrRuntimeUnavailable when the loader is absent or instance
// creation fails.
func NewRuntime() (*Runtime, error) {
	var lib uintptr
	var err error
	for _, name := range loaderNames {
		lib, err = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xr.ErrRuntimeUnavailable, err)
	}

	r := &Runtime{lib: lib}
	purego.RegisterLibFunc(&r.createInstance, lib, "xrCreateInstance")
	purego.RegisterLibFunc(&r.destroyInstance, lib, "xrDestroyInstance")
	purego.RegisterLibFunc(&r.getSystem, lib, "xrGetSystem")
	purego.RegisterLibFunc(&r.enumViews, lib, "xrEnumerateViewConfigurationViews")
	purego.RegisterLibFunc(&r.pollEvent, lib, "xrPollEvent")

	info := xrInstanceCreateInfo{Type: typeInstanceCreateInfo}
	info.ApplicationInfo.APIVersion = apiVersion1_0
	copy(info.ApplicationInfo.ApplicationName[:], "vrbridge")
	copy(info.ApplicationInfo.EngineName[:], "vrbridge")
	info.ApplicationInfo.ApplicationVersion = 1
	info.ApplicationInfo.EngineVersion = 1

	if res := r.createInstance(&info, &r.instance); res != xrSuccess {
		purego.Dlclose(lib)
		return nil, fmt.Errorf("%w: xrCreateInstance returned %d", xr.ErrRuntimeUnavailable, res)
	}
	return r, nil
}

func (r *Runtime) Name() string { return xr.RuntimeOpenXR }

func (r *Runtime) System() (xr.SystemID, error) {
	info := xrSystemGetInfo{
		Type:       typeSystemGetInfo,
		FormFactor: formFactorHeadMountedDisplay,
	}
	var sys uint64
	res := r.getSystem(r.instance, &info, &sys)
	if res == xrErrorFormFactorUnavailable {
		return 0, xr.ErrNoHeadset
	}
	if res != xrSuccess {
		return 0, fmt.Errorf("openxr: xrGetSystem returned %d", res)
	}
	return xr.SystemID(sys), nil
}

func (r *Runtime) Views(sys xr.SystemID) ([]xr.ViewConfig, error) {
	var count uint32
	res := r.enumViews(r.instance, uint64(sys), viewConfigurationTypePrimaryStereo, 0, &count, nil)
	if res != xrSuccess {
		return nil, fmt.Errorf("openxr: view enumeration returned %d", res)
	}
	if count != 2 {
		return nil, fmt.Errorf("%w: %d views", xr.ErrUnsupportedViewConfiguration, count)
	}

	views := make([]xrViewConfigurationView, count)
	for i := range views {
		views[i].Type = typeViewConfigurationView
	}
	res = r.enumViews(r.instance, uint64(sys), viewConfigurationTypePrimaryStereo, count, &count, &views[0])
	if res != xrSuccess {
		return nil, fmt.Errorf("openxr: view enumeration returned %d", res)
	}

	out := make([]xr.ViewConfig, count)
	for i, v := range views {
		out[i] = xr.ViewConfig{
			Width:  int(v.RecommendedImageRectWidth),
			Height: int(v.RecommendedImageRectHeight),
		}
	}
	return out, nil
}

// CreateSession is not implemented: binding a session requires the
// graphics-binding extension matching the host's device, which this
// loader-level binding does not negotiate yet.
//
// TODO: wire XR_KHR_vulkan_enable2 once the capture path exposes the
// host's Vulkan handles.
func (r *Runtime) CreateSession(sys xr.SystemID, q gfx.Queue) (xr.Session, error) {
	return nil, fmt.Errorf("openxr: graphics binding not implemented")
}

func (r *Runtime) PollEvent() (xr.Event, bool) {
	for {
		buf := xrEventDataBuffer{Type: typeEventDataBuffer}
		res := r.pollEvent(r.instance, &buf)
		if res != xrSuccess {
			return nil, false
		}
		switch buf.Type {
		case typeEventDataSessionStateChanged:
			ev := (*xrEventDataSessionStateChanged)(unsafe.Pointer(&buf))
			return xr.EventStateChanged{State: sessionState(ev.State)}, true
		case typeEventDataInstanceLossPending:
			return xr.EventInstanceLoss{}, true
		default:
			// Uninteresting event; keep draining.
		}
	}
}

func (r *Runtime) Destroy() {
	if r.instance != 0 {
		r.destroyInstance(r.instance)
		r.instance = 0
	}
	if r.lib != 0 {
		purego.Dlclose(r.lib)
		r.lib = 0
	}
}

// sessionState maps the wire enum (IDLE=1 … EXITING=8) onto xr's states,
// which use the same ordering.
func sessionState(v int32) xr.SessionState {
	if v < 1 || v > 8 {
		return xr.StateUnknown
	}
	return xr.SessionState(v)
}
