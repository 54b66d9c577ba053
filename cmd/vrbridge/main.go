// Command vrbridge exercises the VR injection pipeline outside a host
// process: the simulate command runs the full frame loop against the
// simulated runtime, scan searches binaries for hook signatures, and
// console runs a Lua settings script.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	lua "github.com/yuin/gopher-lua"

	"github.com/vrforge/vrbridge"
	"github.com/vrforge/vrbridge/console"
	"github.com/vrforge/vrbridge/gfx"
	"github.com/vrforge/vrbridge/hook"
	"github.com/vrforge/vrbridge/scan"
	"github.com/vrforge/vrbridge/session"
	"github.com/vrforge/vrbridge/xr"
)

var (
	version = "0.1.0"
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vrbridge",
	Short: "VR injection pipeline tools",
	Long:  `vrbridge injects stereo VR rendering and tracking into a host 3D application; this tool drives its pipeline standalone.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		vrbridge.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the frame pipeline against the simulated runtime",
	RunE: func(cmd *cobra.Command, args []string) error {
		frames, _ := cmd.Flags().GetInt("frames")
		return runSimulation(frames)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [pattern]",
	Short: "Search a binary image for a hook signature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		base, _ := cmd.Flags().GetUint64("base")
		return runScan(file, uintptr(base), args[0])
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console [script.lua]",
	Short: "Run a Lua settings script and print the resulting configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(args[0])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vrbridge v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	simulateCmd.Flags().Int("frames", 120, "number of host frames to run")
	scanCmd.Flags().String("file", "", "binary image to scan")
	scanCmd.Flags().Uint64("base", 0x140000000, "load address reported for matches")
	_ = scanCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runSimulation wires the whole pipeline the way a host process would
// see it: a swap surface presents every tick, the camera hook rewrites a
// transform, the input hook answers gamepad queries, and the session
// manager feeds the simulated compositor.
func runSimulation(frames int) error {
	sim := xr.NewSim()
	sim.SetInput(vrbridge.HandRight, xr.SimInput{
		Tracked: true,
		Trigger: 0.8,
		StickX:  0.5,
		Primary: true,
	})

	dev := gfx.NewSoftwareDevice()
	defer dev.Close()
	surface, err := gfx.NewSoftwareSurface(dev, 128, 128, 3)
	if err != nil {
		return err
	}

	cfg := vrbridge.NewConfig()
	mgr := session.NewManager(cfg, session.WithRuntime(sim))
	defer mgr.Close()

	var aim hook.AimState
	present := hook.NewPresentHook(cfg, mgr, surface)
	camera := hook.NewCameraHook(cfg, mgr, present, &aim)
	input := hook.NewInputHook(cfg, mgr, &aim, func(userIndex uint32, state *hook.GamepadState) uint32 {
		return hook.InputNotConnected
	})
	defer present.Shutdown()
	defer camera.Shutdown()
	defer input.Shutdown()

	var pad hook.GamepadState
	transform := hook.CameraPose{}
	for tick := 0; tick < frames; tick++ {
		camera.OnCameraUpdate(&transform, nil)
		present.OnPresent(nil)
		surface.Rotate()
		input.OnGetState(0, &pad)
	}

	fmt.Printf("session state:   %v\n", mgr.State())
	fmt.Printf("frames presented: %d\n", present.FrameCount())
	if sess := sim.LastSession(); sess != nil {
		fmt.Printf("frames begun:    %d\n", sess.BeginFrames())
		fmt.Printf("frames ended:    %d\n", sess.EndFrames())
		fmt.Printf("bound profiles:  %v\n", sess.BoundProfiles())
	}
	if pose, ok := mgr.HeadPose(); ok {
		fmt.Printf("head position:   (%.3f, %.3f, %.3f)\n", pose.Position.X, pose.Position.Y, pose.Position.Z)
	}
	fmt.Printf("camera position: (%.3f, %.3f, %.3f)\n", transform.Position.X, transform.Position.Y, transform.Position.Z)
	fmt.Printf("gamepad buttons: %#04x thumbRX=%d trigger=%d\n",
		pad.Gamepad.Buttons, pad.Gamepad.ThumbRX, pad.Gamepad.RightTrigger)
	return nil
}

func runScan(file string, base uintptr, pattern string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	s := scan.NewScanner(scan.MapProvider{
		"": scan.NewBytesModule(file, base, data),
	})
	addr := s.FindPattern("", pattern)
	if addr == 0 {
		fmt.Println("pattern not found")
		return nil
	}
	fmt.Printf("found at %#x (offset %#x)\n", addr, addr-base)
	return nil
}

func runConsole(script string) error {
	cfg := vrbridge.NewConfig()
	L := lua.NewState()
	defer L.Close()
	console.New(cfg).Register(L)

	if err := L.DoFile(script); err != nil {
		return fmt.Errorf("run %s: %w", script, err)
	}

	fmt.Printf("enabled:          %v\n", cfg.Enabled())
	fmt.Printf("ipd:              %.1f mm\n", cfg.IPD()*1000)
	fmt.Printf("world scale:      %.2f\n", cfg.WorldScale())
	fmt.Printf("decoupled aiming: %v\n", cfg.DecoupledAim())
	fmt.Printf("aim smoothing:    %.2f\n", cfg.AimSmoothing())
	return nil
}
