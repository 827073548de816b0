package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/internal/opengl"
	"frame-renderer/materials"
	"frame-renderer/postprocess"
	"frame-renderer/programs"
	"frame-renderer/renderer"
	"frame-renderer/scene"
)

func main() {
	configPath := flag.String("config", "", "renderer options (TOML); reloaded on change")
	gltfPath := flag.String("gltf", "", "optional .gltf/.glb model placed at the origin")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	core.SetLogger(log)

	if err := run(*configPath, *gltfPath, log); err != nil {
		log.Error("demo failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// demoOptions are used when no config file is given.
func demoOptions() renderer.Options {
	opts := renderer.DefaultOptions()
	opts.ShadowMap.Enabled = true
	opts.ToneMapping = programs.ACESFilmicToneMapping
	opts.ToneMappingExposure = 1
	return opts
}

func run(configPath, gltfPath string, log *zap.Logger) error {
	opts := demoOptions()
	if configPath != "" {
		var err error
		if opts, err = renderer.LoadOptions(configPath); err != nil {
			return err
		}
	}

	windowConfig := core.DefaultWindowConfig()
	windowConfig.Title = "frame-renderer demo"
	window, err := core.NewWindow(windowConfig)
	if err != nil {
		return err
	}
	defer window.Destroy()

	device, err := opengl.New(log)
	if err != nil {
		return err
	}
	defer device.Close()

	fbWidth, _ := window.GetFramebufferSize()
	opts.Width, opts.Height = window.Width, window.Height
	opts.PixelRatio = float32(fbWidth) / float32(window.Width)
	opts.Logger = log
	r, err := renderer.New(device, opts)
	if err != nil {
		return err
	}
	defer r.Dispose()

	sc := scene.NewScene()
	sky, emitters := buildScene(sc)
	if gltfPath != "" {
		model, err := scene.LoadGLTF(gltfPath)
		if err != nil {
			return err
		}
		sc.Add(model.Roots...)
		log.Info("model loaded", zap.String("path", gltfPath),
			zap.Int("materials", len(model.Materials)), zap.Int("textures", len(model.Textures)))
	}

	camera := scene.NewPerspectiveCamera(60, float32(window.Width)/float32(window.Height), 0.1, 500)
	camera.Node.SetPosition(mgl32.Vec3{0, 1.7, 12})
	camera.Node.LookAt(mgl32.Vec3{0, 1.7, 0})

	postOpts := postprocess.DefaultOptions()
	postOpts.Logger = log
	composer := postprocess.NewComposer(r, postOpts)
	defer composer.Dispose()
	bloom := postprocess.NewBloom(1, 0.6, 1)
	composer.AddPass(postprocess.NewRenderPass(sc, camera))
	composer.AddPass(bloom)
	composer.AddPass(postprocess.NewOutputPass())

	window.OnResize(func(fbWidth, fbHeight int) {
		if fbWidth == 0 || fbHeight == 0 {
			return
		}
		r.SetSize(window.Width, window.Height)
		camera.UpdateAspectRatio(float32(fbWidth), float32(fbHeight))
	})

	var updates <-chan renderer.Options
	if configPath != "" {
		cw, err := watchConfig(configPath, log)
		if err != nil {
			log.Warn("config hot reload disabled", zap.Error(err))
		} else {
			defer cw.Close()
			updates = cw.Updates()
		}
	}

	// Compile everything up front so the first frames do not stall.
	if err := r.Compile(sc, camera); err != nil {
		return err
	}

	dayNight := NewDayNight()
	dayNight.Apply(sc, sky)
	controller := NewCameraController()
	wireframe := materials.Wireframe(core.Color{R: 0.9, G: 0.9, B: 0.9, A: 1})
	defer wireframe.Dispose()

	keys := newToggles(window)
	bloomOn := true
	exposure := opts.ToneMappingExposure
	var status StatusLine
	frames := 0
	lastTitle := time.Now()
	last := time.Now()

	log.Info("controls: WASD move, right-drag look, space jump, B bloom, Z wireframe, left-click pick, N pause sky, [ ] exposure, Esc quit")

	for !window.ShouldClose() {
		window.PollEvents()
		if window.IsKeyPressed(core.KeyEscape) {
			break
		}
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		select {
		case o := <-updates:
			exposure = o.ToneMappingExposure
			r.SetToneMappingExposure(exposure)
			r.SetClearColor(o.ClearColor)
			log.Info("config reloaded", zap.Float32("exposure", exposure))
		default:
		}

		if keys.pressed(core.KeyB) {
			bloomOn = !bloomOn
			composer.SetEnabled(bloom, bloomOn)
		}
		if keys.pressed(core.KeyZ) {
			if sc.OverrideMaterial == nil {
				sc.OverrideMaterial = wireframe
			} else {
				sc.OverrideMaterial = nil
			}
		}
		if keys.clicked(core.MouseButtonLeft) {
			pick(window, sc, camera, log)
		}
		if keys.pressed(core.KeyN) {
			dayNight.Active = !dayNight.Active
		}
		if window.IsKeyPressed(core.KeyLeftBracket) {
			exposure = max(exposure-0.5*dt, 0.1)
			r.SetToneMappingExposure(exposure)
		}
		if window.IsKeyPressed(core.KeyRightBracket) {
			exposure = min(exposure+0.5*dt, 5)
			r.SetToneMappingExposure(exposure)
		}

		dayNight.Update(dt)
		dayNight.Apply(sc, sky)
		controller.Update(window, camera, dt)
		for _, e := range emitters {
			e.Update(dt)
		}

		if err := composer.Render(); err != nil {
			return err
		}
		window.SwapBuffers()

		frames++
		if elapsed := now.Sub(lastTitle); elapsed >= time.Second {
			info := r.Info()
			status.Clear()
			status.Add("FPS %d", int(float64(frames)/elapsed.Seconds()))
			status.Add("%s", dayNight.TimeOfDayStr())
			status.Add("calls %d tris %d", info.Render.Calls, info.Render.Triangles)
			status.Add("programs %d", info.Programs)
			status.Add("exposure %.2f", exposure)
			window.SetTitle("frame-renderer | " + status.String())
			log.Debug("frame stats",
				zap.Int("calls", info.Render.Calls),
				zap.Int("triangles", info.Render.Triangles),
				zap.Int("geometries", info.Memory.Geometries),
				zap.Int("textures", info.Memory.Textures))
			frames = 0
			lastTitle = now
		}
	}
	return nil
}

// toggles debounces keys so a held key fires once.
type toggles struct {
	window *core.Window
	down   map[int]bool
}

func newToggles(w *core.Window) *toggles {
	return &toggles{window: w, down: make(map[int]bool)}
}

func (t *toggles) edge(id int, now bool) bool {
	fire := now && !t.down[id]
	t.down[id] = now
	return fire
}

func (t *toggles) pressed(key int) bool {
	return t.edge(key, t.window.IsKeyPressed(key))
}

// clicked uses negative ids so buttons never collide with key codes.
func (t *toggles) clicked(button int) bool {
	return t.edge(-1-button, t.window.IsMouseButtonPressed(button))
}

// pick logs the nearest mesh under the cursor.
func pick(window *core.Window, sc *scene.Scene, camera *scene.Camera, log *zap.Logger) {
	x, y := window.GetCursorPos()
	ray := camera.ScreenRay(float32(x), float32(y), float32(window.Width), float32(window.Height))
	hits := scene.Raycast(sc.Root, ray)
	if len(hits) == 0 {
		log.Info("pick: nothing")
		return
	}
	h := hits[0]
	log.Info("pick",
		zap.String("node", h.Node.Name),
		zap.Float32("distance", h.Distance),
		zap.Int("face", h.Face),
		zap.Int("hits", len(hits)))
}
