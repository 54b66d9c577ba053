// Package console exposes the configuration to the host's scripting
// console as a Lua table. The settings panel running inside the host
// calls these to tune VR at runtime; every write goes through the
// Config's clamping setters, so a script can never store an out-of-range
// value.
//
// IPD crosses this surface in millimeters, the unit players know from
// their headset settings. It is stored in meters.
package console

import (
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/vrforge/vrbridge"
)

// GlobalName is the Lua global the settings table is registered under.
const GlobalName = "vr"

// Console binds one configuration to Lua states.
type Console struct {
	cfg *vrbridge.Config
	log *slog.Logger
}

// New creates a console over cfg. A nil cfg gets defaults.
func New(cfg *vrbridge.Config) *Console {
	if cfg == nil {
		cfg = vrbridge.NewConfig()
	}
	return &Console{
		cfg: cfg,
		log: vrbridge.Logger().With("component", "console"),
	}
}

// Register installs the settings table as the global "vr" in L. Getters
// return the clamped stored values, so a script can read back what a Set
// actually did.
func (c *Console) Register(L *lua.LState) {
	tbl := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"SetEnabled": func(L *lua.LState) int {
			on := L.ToBool(1)
			c.cfg.SetEnabled(on)
			c.log.Info("vr enabled changed", "enabled", on)
			return 0
		},
		"GetEnabled": func(L *lua.LState) int {
			L.Push(lua.LBool(c.cfg.Enabled()))
			return 1
		},
		"SetIPD": func(L *lua.LState) int {
			mm := float32(L.CheckNumber(1))
			c.cfg.SetIPD(mm / 1000)
			c.log.Info("ipd changed", "mm", c.cfg.IPD()*1000)
			return 0
		},
		"GetIPD": func(L *lua.LState) int {
			L.Push(lua.LNumber(c.cfg.IPD() * 1000))
			return 1
		},
		"SetWorldScale": func(L *lua.LState) int {
			c.cfg.SetWorldScale(float32(L.CheckNumber(1)))
			c.log.Info("world scale changed", "scale", c.cfg.WorldScale())
			return 0
		},
		"GetWorldScale": func(L *lua.LState) int {
			L.Push(lua.LNumber(c.cfg.WorldScale()))
			return 1
		},
		"SetDecoupledAiming": func(L *lua.LState) int {
			on := L.ToBool(1)
			c.cfg.SetDecoupledAim(on)
			c.log.Info("decoupled aiming changed", "enabled", on)
			return 0
		},
		"GetDecoupledAiming": func(L *lua.LState) int {
			L.Push(lua.LBool(c.cfg.DecoupledAim()))
			return 1
		},
		"SetAimSmoothing": func(L *lua.LState) int {
			c.cfg.SetAimSmoothing(float32(L.CheckNumber(1)))
			c.log.Info("aim smoothing changed", "factor", c.cfg.AimSmoothing())
			return 0
		},
		"GetAimSmoothing": func(L *lua.LState) int {
			L.Push(lua.LNumber(c.cfg.AimSmoothing()))
			return 1
		},
	})
	L.SetGlobal(GlobalName, tbl)
}
