// Command uidemo loads a UI scene and keeps its instance buffer in sync,
// either on a WebGPU device behind a GLFW window or headless.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/gekkoui"
	"github.com/gekko3d/gekkoui/gpu"
	"github.com/go-gl/glfw/v3.3/glfw"
)

type frameLimit struct {
	frames uint64
}

func frameLimitSystem(cmd *gekkoui.Commands, clock *gekkoui.Time, limit *frameLimit) {
	if clock.Frame >= limit.frames {
		cmd.Exit()
	}
}

type window struct {
	win *glfw.Window
}

func windowEventsSystem(cmd *gekkoui.Commands, w *window) {
	glfw.PollEvents()
	if w.win.ShouldClose() {
		cmd.Exit()
	}
}

func main() {
	scenePath := flag.String("scene", "", "YAML scene description")
	headless := flag.Bool("headless", false, "run without a window or GPU")
	frames := flag.Int("frames", 0, "exit after this many frames (0 runs until the window closes)")
	debug := flag.Bool("debug", false, "enable debug logging")
	width := flag.Int("width", 1280, "window width")
	height := flag.Int("height", 720, "window height")
	flag.Parse()

	if *scenePath == "" {
		fmt.Fprintln(os.Stderr, "uidemo: -scene is required")
		os.Exit(2)
	}
	scene, err := gekkoui.LoadSceneFile(*scenePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "uidemo:", err)
		os.Exit(1)
	}
	if *headless && *frames <= 0 {
		*frames = 1
	}

	app := gekkoui.NewApp()
	app.UseModules(
		gekkoui.LoggingModule{Prefix: "uidemo", Debug: *debug},
		gekkoui.TimeModule{},
		gekkoui.AssetServerModule{},
	)

	if *headless {
		app.UseModules(gekkoui.HeadlessRendererModule{})
	} else {
		runtime.LockOSThread()
		win, device := createWindowAndDevice(*width, *height)
		defer glfw.Terminate()
		defer win.Destroy()
		defer device.Release()

		app.Commands().AddResources(&window{win: win})
		app.UseSystem(gekkoui.System(windowEventsSystem).InStage(gekkoui.PreUpdate))
		app.UseModules(gpu.RendererModule{Device: device})
	}

	app.UseModules(gekkoui.HierarchyModule{}, gekkoui.UiModule{})

	if *frames > 0 {
		app.Commands().AddResources(&frameLimit{frames: uint64(*frames)})
		app.UseSystem(gekkoui.System(frameLimitSystem).InStage(gekkoui.Finale))
	}

	roots := gekkoui.LoadScene(app.Commands(), scene)
	app.FlushCommands()
	app.Logger().Infof("loaded %d root nodes from %s", len(roots), *scenePath)

	app.Run()

	if stats, ok := gekkoui.Resource[gekkoui.UiSyncStats](app); ok {
		app.Logger().Infof("%s", stats)
	}
}

func createWindowAndDevice(width, height int) (*glfw.Window, *wgpu.Device) {
	if err := glfw.Init(); err != nil {
		panic(err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, "gekkoui", nil, nil)
	if err != nil {
		panic(err)
	}

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		panic(err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "UI Device",
	})
	if err != nil {
		panic(err)
	}
	return win, device
}
