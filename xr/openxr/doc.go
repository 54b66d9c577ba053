// Package openxr binds the system OpenXR loader through purego and
// registers itself as the "openxr" runtime. On platforms without the
// loader (or without a binding in this package) the factory reports the
// runtime unavailable and selection falls through to the simulator.
//
// The binding covers the instance-level services the session manager's
// first initialization phase needs: instance creation, system and view
// enumeration, and the event pump. Session creation requires negotiating
// a graphics binding extension against the host's device and is not
// implemented yet; see NewRuntime.
package openxr
