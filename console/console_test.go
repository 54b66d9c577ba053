package console

import (
	"testing"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/vrforge/vrbridge"
)

func newState(t *testing.T, cfg *vrbridge.Config) *lua.LState {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)
	New(cfg).Register(L)
	return L
}

func TestIPDRoundTripsInMillimeters(t *testing.T) {
	cfg := vrbridge.NewConfig()
	L := newState(t, cfg)

	require.NoError(t, L.DoString(`vr.SetIPD(70)`))
	require.InDelta(t, 0.070, cfg.IPD(), 1e-6)

	require.NoError(t, L.DoString(`ipd = vr.GetIPD()`))
	require.InDelta(t, 70, float64(lua.LVAsNumber(L.GetGlobal("ipd"))), 1e-3)
}

func TestIPDClampedBeforeStore(t *testing.T) {
	cfg := vrbridge.NewConfig()
	L := newState(t, cfg)

	require.NoError(t, L.DoString(`vr.SetIPD(200)`))
	require.InDelta(t, vrbridge.MaxIPD, cfg.IPD(), 1e-6)

	// The readback reflects the clamp, not the requested value.
	require.NoError(t, L.DoString(`ipd = vr.GetIPD()`))
	require.InDelta(t, 80, float64(lua.LVAsNumber(L.GetGlobal("ipd"))), 1e-3)
}

func TestWorldScale(t *testing.T) {
	cfg := vrbridge.NewConfig()
	L := newState(t, cfg)

	require.NoError(t, L.DoString(`vr.SetWorldScale(1.5)`))
	require.InDelta(t, 1.5, cfg.WorldScale(), 1e-6)

	require.NoError(t, L.DoString(`vr.SetWorldScale(99)`))
	require.InDelta(t, vrbridge.MaxWorldScale, cfg.WorldScale(), 1e-6)
}

func TestEnableToggle(t *testing.T) {
	cfg := vrbridge.NewConfig()
	L := newState(t, cfg)

	require.NoError(t, L.DoString(`vr.SetEnabled(false)`))
	require.False(t, cfg.Enabled())

	require.NoError(t, L.DoString(`on = vr.GetEnabled()`))
	require.Equal(t, lua.LFalse, L.GetGlobal("on"))
}

func TestDecoupledAiming(t *testing.T) {
	cfg := vrbridge.NewConfig()
	L := newState(t, cfg)

	require.NoError(t, L.DoString(`vr.SetDecoupledAiming(false)`))
	require.False(t, cfg.DecoupledAim())
}

func TestAimSmoothingClamped(t *testing.T) {
	cfg := vrbridge.NewConfig()
	L := newState(t, cfg)

	require.NoError(t, L.DoString(`vr.SetAimSmoothing(2)`))
	require.InDelta(t, vrbridge.MaxAimSmoothing, cfg.AimSmoothing(), 1e-6)

	require.NoError(t, L.DoString(`f = vr.GetAimSmoothing()`))
	require.InDelta(t, vrbridge.MaxAimSmoothing, float64(lua.LVAsNumber(L.GetGlobal("f"))), 1e-6)
}

func TestNonNumberArgumentRaises(t *testing.T) {
	cfg := vrbridge.NewConfig()
	L := newState(t, cfg)

	require.Error(t, L.DoString(`vr.SetIPD("wide")`))
	// The bad call left the stored value alone.
	require.InDelta(t, vrbridge.DefaultIPD, cfg.IPD(), 1e-6)
}
