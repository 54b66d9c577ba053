// Package vrbridge injects stereoscopic VR rendering and tracking into a
// third-party real-time 3D application by intercepting its presentation,
// camera-update, and gamepad-query entry points.
//
// # Overview
//
// The host application was never designed for VR and is never modified:
// vrbridge captures the host's rendering output at present time, converts
// head/controller poses between the VR runtime's space and the host engine's
// space, and feeds an alternating-eye stereo image pair to the headset while
// the host keeps rendering normally. All of it runs inside hook callbacks on
// the host's own threads, so the hot path is lock-free and every wait is
// bounded.
//
// # Quick Start
//
//	import (
//	    "github.com/vrforge/vrbridge"
//	    "github.com/vrforge/vrbridge/hook"
//	    "github.com/vrforge/vrbridge/session"
//	)
//
//	cfg := vrbridge.NewConfig()
//	mgr := session.NewManager(cfg)
//	var aim hook.AimState
//	present := hook.NewPresentHook(cfg, mgr, surface)
//	camera := hook.NewCameraHook(cfg, mgr, present, &aim)
//
//	// Wire the hooks to the host's entry points, then the host drives
//	// everything: camera.OnCameraUpdate each frame before rendering,
//	// present.OnPresent each frame after.
//
// # Architecture
//
// The library is organized into:
//   - Root package: configuration, logging, pose math, coordinate conversion
//   - xr/: VR runtime abstraction with a backend registry and a simulated
//     runtime for tests and headless development
//   - gfx/: captured graphics resources (device, queue, texture, copier)
//   - session/: the VR session manager (runtime lifecycle, per-eye
//     swapchains, frame submission, controller actions)
//   - hook/: presentation, camera, and input hook callbacks
//   - scan/, console/: signature locator and Lua settings surface
//
// # Eye parity
//
// vrbridge renders one eye per native host frame (alternate eye rendering):
// even frames are the left eye, odd frames the right. The presentation hook
// owns the frame counter; the camera hook reads the upcoming eye from it
// before the counter advances, so the camera offset and the texture
// submission for a given tick always describe the same eye. The runtime's
// reprojection synthesizes the eye that was not freshly rendered.
package vrbridge
