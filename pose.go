package vrbridge

// Pose is a position and orientation sample with a validity flag. Pose is a
// plain value type: it is produced fresh every tick and copied, never
// shared or queued.
type Pose struct {
	Position    Vec3
	Orientation Quat
	Valid       bool
}

// Hand indexes the two tracked controllers.
type Hand int

// Hand values.
const (
	HandLeft Hand = iota
	HandRight
)

// Gamepad button bits, compatible with the host's gamepad-state layout so
// VR buttons can be OR'd straight into the host's bitmask.
const (
	ButtonDPadUp        uint16 = 0x0001
	ButtonDPadDown      uint16 = 0x0002
	ButtonDPadLeft      uint16 = 0x0004
	ButtonDPadRight     uint16 = 0x0008
	ButtonStart         uint16 = 0x0010
	ButtonBack          uint16 = 0x0020
	ButtonLeftThumb     uint16 = 0x0040
	ButtonRightThumb    uint16 = 0x0080
	ButtonLeftShoulder  uint16 = 0x0100
	ButtonRightShoulder uint16 = 0x0200
	ButtonA             uint16 = 0x1000
	ButtonB             uint16 = 0x2000
	ButtonX             uint16 = 0x4000
	ButtonY             uint16 = 0x8000
)

// ControllerState is the latest-known sample of both motion controllers,
// produced once per session update and consumed by the input hook. Like
// Pose it is copy-by-value with no ownership: always the newest sample,
// never queued.
type ControllerState struct {
	// Buttons uses the gamepad-compatible bits above, both hands merged.
	Buttons uint16

	// Analog values. Triggers and grips are in [0,1], thumbstick axes in
	// [-1,1], all before deadzone processing.
	LeftTrigger, RightTrigger float32
	LeftGrip, RightGrip       float32
	LeftThumbX, LeftThumbY    float32
	RightThumbX, RightThumbY  float32

	// HandValid reports per-hand tracking validity, derived from locating
	// each hand's action space against the tracking space.
	HandValid [2]bool
}

// Coordinate conversion between the VR runtime's tracking convention and
// the host engine's convention.
//
// The runtime is right-handed: X right, Y up, Z back.
// The host engine is left-handed: X right, Y forward, Z up.
//
// The mapping is an axis permutation, so it is its own kind of inverse and
// exactly preserved under round-trip: host.X = x, host.Y = -z, host.Z = y.

// RuntimeToHost converts a position from runtime space to host space.
func RuntimeToHost(p Vec3) Vec3 {
	return Vec3{X: p.X, Y: -p.Z, Z: p.Y}
}

// HostToRuntime converts a position from host space to runtime space.
func HostToRuntime(p Vec3) Vec3 {
	return Vec3{X: p.X, Y: p.Z, Z: -p.Y}
}

// RuntimeQuatToHost converts an orientation from runtime space to host
// space. The imaginary components permute exactly like positions; the
// scalar part is unchanged.
func RuntimeQuatToHost(q Quat) Quat {
	return Quat{X: q.X, Y: -q.Z, Z: q.Y, W: q.W}
}

// HostQuatToRuntime converts an orientation from host space to runtime
// space.
func HostQuatToRuntime(q Quat) Quat {
	return Quat{X: q.X, Y: q.Z, Z: -q.Y, W: q.W}
}

// RuntimePoseToHost converts a full pose from runtime space to host space,
// preserving the validity flag.
func RuntimePoseToHost(p Pose) Pose {
	return Pose{
		Position:    RuntimeToHost(p.Position),
		Orientation: RuntimeQuatToHost(p.Orientation),
		Valid:       p.Valid,
	}
}

// HostPoseToRuntime converts a full pose from host space to runtime space.
func HostPoseToRuntime(p Pose) Pose {
	return Pose{
		Position:    HostToRuntime(p.Position),
		Orientation: HostQuatToRuntime(p.Orientation),
		Valid:       p.Valid,
	}
}
