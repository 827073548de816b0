// Package renderer turns a scene graph into GPU commands, one frame at a time.
package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/lights"
	"frame-renderer/programs"
	"frame-renderer/renderlist"
	"frame-renderer/resources"
	"frame-renderer/scene"
	"frame-renderer/state"
)

// Phase is the step of Render currently running.
type Phase int

const (
	Idle Phase = iota
	UpdateTransforms
	Cull
	TransmissionPrepass
	OpaquePass
	TransparentPass
	Resolve
)

var phaseNames = [...]string{"idle", "update-transforms", "cull", "transmission-prepass", "opaque", "transparent", "resolve"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// RenderInfo counts the work submitted by the last frame.
type RenderInfo struct {
	Frame     int
	Calls     int
	Triangles int
	Points    int
	Lines     int
}

type Info struct {
	Memory   resources.Info
	Render   RenderInfo
	Programs int
}

// view is the camera setup of the pass being drawn.
type view struct {
	camera     *scene.Camera
	view       mgl32.Mat4
	projection mgl32.Mat4
	position   mgl32.Vec3
	ortho      bool
	normal     mgl32.Mat3
	frustum    scene.Frustum
	// planes are the global clipping planes in view space.
	planes []mgl32.Vec4
}

// attachment is the cube face and mip level bound to a target's framebuffer.
// Setup attaches face 0, level 0 to a fresh framebuffer.
type attachment struct {
	framebuffer gpu.Framebuffer
	face, mip   int
}

// Renderer draws scenes on one device. It is not safe for concurrent use.
type Renderer struct {
	opts   Options
	device gpu.Device
	log    *zap.Logger

	state     *state.Tracker
	resources *resources.Cache
	programs  *programs.Cache
	lights    *lights.State
	shadows   *lights.ShadowMapper
	builder   renderlist.Builder
	list      *renderlist.List

	materials map[uint64]*materialState
	names     *lightUniformNames

	phase Phase
	lost  bool
	// lostByDevice is set when the device itself reported the loss, which
	// allows Render to restore once the device recovers. A loss signalled by
	// the host lasts until HandleContextRestored.
	lostByDevice bool
	info         RenderInfo

	width, height int
	viewport      core.Rect
	scissor       core.Rect
	scissorTest   bool
	clearColor    core.Color

	target     *scene.RenderTarget
	targetFace int
	targetMip  int
	attached   map[uint64]attachment

	scene *scene.Scene
	view  view
	ctx   programs.Context

	transmission *scene.RenderTarget
	prepass      bool

	fullscreen *fullscreen
	wireframes map[uint64]*wireframe
	instances  map[*scene.Drawable]*instanceStreams
	skinned    map[*scene.Skeleton]int
	attribs    attribState
	warned     map[string]bool

	readbacks []*Readback
}

// New creates a renderer drawing on device.
func New(device gpu.Device, opts Options) (*Renderer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = core.Logger()
	}
	log = log.Named("renderer")

	r := &Renderer{
		opts:       opts,
		device:     device,
		log:        log,
		state:      state.New(device, log),
		resources:  resources.New(device, log),
		programs:   programs.New(device, log),
		lights:     lights.NewState(opts.limits(), log),
		shadows:    lights.NewShadowMapper(opts.ShadowMap.Type, log),
		list:       renderlist.New(),
		materials:  make(map[uint64]*materialState),
		names:      newLightUniformNames(opts.limits()),
		clearColor: opts.ClearColor,
		attached:   make(map[uint64]attachment),
		wireframes: make(map[uint64]*wireframe),
		instances:  make(map[*scene.Drawable]*instanceStreams),
		skinned:    make(map[*scene.Skeleton]int),
		warned:     make(map[string]bool),
	}
	r.resources.SetBinder(r.state)
	r.programs.CheckErrors = opts.CheckShaderErrors
	r.programs.FatalErrors = opts.FatalShaderErrors
	r.programs.OnError = opts.OnShaderError
	r.programs.OnDelete = r.state.ForgetProgram
	r.shadows.AutoUpdate = opts.ShadowMap.AutoUpdate
	r.attribs.reset(device.Caps().MaxVertexAttribs)
	r.fullscreen = newFullscreen()

	r.SetSize(opts.Width, opts.Height)
	r.applyDefaults()
	r.log.Info("renderer created",
		zap.Int("width", r.width), zap.Int("height", r.height),
		zap.Stringer("shadows", opts.ShadowMap.Type), zap.Bool("shadowsEnabled", opts.ShadowMap.Enabled))
	return r, nil
}

// applyDefaults pushes the renderer's own state to a fresh tracker.
func (r *Renderer) applyDefaults() {
	r.state.Color.SetClear(r.clearColor)
	r.state.Depth.SetClear(1)
	r.state.Stencil.SetClear(0)
	r.state.Viewport(r.viewport)
	r.state.Scissor(r.scissor)
	r.state.SetScissorTest(r.scissorTest)
}

func (r *Renderer) Options() Options { return r.opts }
func (r *Renderer) Phase() Phase     { return r.phase }
func (r *Renderer) Device() gpu.Device {
	return r.device
}

// ShadowMap exposes the shadow mapper, mainly to request a one-shot update
// when AutoUpdate is off.
func (r *Renderer) ShadowMap() *lights.ShadowMapper { return r.shadows }

func (r *Renderer) Info() Info {
	return Info{
		Memory:   r.resources.Info(),
		Render:   r.info,
		Programs: len(r.programs.Programs()),
	}
}

// Programs lists the live programs.
func (r *Renderer) Programs() []*programs.Program {
	return r.programs.Programs()
}

// DrawingBufferSize is the default surface size in device pixels.
func (r *Renderer) DrawingBufferSize() (int, int) {
	return r.width, r.height
}

// SetSize resizes the default surface. The viewport and scissor are reset to
// cover it.
func (r *Renderer) SetSize(width, height int) {
	r.opts.Width, r.opts.Height = width, height
	r.width = int(float32(width) * r.opts.PixelRatio)
	r.height = int(float32(height) * r.opts.PixelRatio)
	r.SetViewport(0, 0, width, height)
	r.SetScissor(0, 0, width, height)
}

// SetPixelRatio changes the device pixel ratio and resizes accordingly.
func (r *Renderer) SetPixelRatio(ratio float32) {
	if ratio <= 0 {
		return
	}
	r.opts.PixelRatio = ratio
	r.SetSize(r.opts.Width, r.opts.Height)
}

// SetViewport sets the default surface viewport in logical pixels.
func (r *Renderer) SetViewport(x, y, width, height int) {
	r.viewport = core.Rect{X: x, Y: y, Width: width, Height: height}.Scale(r.opts.PixelRatio)
	if r.target == nil {
		r.state.Viewport(r.viewport)
	}
}

func (r *Renderer) SetScissor(x, y, width, height int) {
	r.scissor = core.Rect{X: x, Y: y, Width: width, Height: height}.Scale(r.opts.PixelRatio)
	if r.target == nil {
		r.state.Scissor(r.scissor)
	}
}

func (r *Renderer) SetScissorTest(on bool) {
	r.scissorTest = on
	if r.target == nil {
		r.state.SetScissorTest(on)
	}
}

func (r *Renderer) SetClearColor(c core.Color) {
	r.clearColor = c
	r.state.Color.SetClear(c)
}

func (r *Renderer) ClearColor() core.Color { return r.clearColor }

// SetToneMappingExposure changes the exposure uniform only; programs are kept.
func (r *Renderer) SetToneMappingExposure(e float32) {
	r.opts.ToneMappingExposure = e
}

// Clear clears the selected buffers of the bound target. Write masks are
// forced on so the clear is never swallowed by material state.
func (r *Renderer) Clear(color, depth, stencil bool) {
	var mask gpu.ClearMask
	if color {
		mask |= gpu.ColorBit
		r.state.Color.SetMask(true)
	}
	if depth {
		mask |= gpu.DepthBit
		r.state.Depth.SetMask(true)
	}
	if stencil {
		mask |= gpu.StencilBit
		r.state.Stencil.SetMask(0xff)
	}
	if mask != 0 {
		r.device.Clear(mask)
	}
}

// RenderTarget returns the bound target, nil for the default surface.
func (r *Renderer) RenderTarget() *scene.RenderTarget { return r.target }

// SetRenderTarget binds target for the following draws, or the default
// surface when target is nil. For cube targets face selects the side; mip
// selects the level, with viewport and scissor scaled to match.
func (r *Renderer) SetRenderTarget(target *scene.RenderTarget, face, mip int) error {
	r.target, r.targetFace, r.targetMip = target, face, mip
	if target == nil {
		r.state.BindFramebuffer(gpu.FramebufferBoth, gpu.DefaultFramebuffer)
		r.state.Viewport(r.viewport)
		r.state.Scissor(r.scissor)
		r.state.SetScissorTest(r.scissorTest)
		return nil
	}

	if err := r.resources.Targets.Setup(target); err != nil {
		r.target = nil
		return fmt.Errorf("set render target: %w", err)
	}
	rec, _ := r.resources.Targets.Get(target)
	r.state.BindFramebuffer(gpu.FramebufferBoth, rec.Framebuffer)

	attach := attachment{framebuffer: rec.Framebuffer, face: face, mip: mip}
	prev, seen := r.attached[target.ID]
	if !seen || prev.framebuffer != rec.Framebuffer {
		prev = attachment{framebuffer: rec.Framebuffer}
	}
	if target.Samples == 0 && prev != attach {
		texTarget := gpu.Texture2D
		if target.IsCube {
			texTarget = gpu.CubeFace(face)
		}
		for i, tex := range target.Textures {
			if trec, ok := r.resources.Textures.Get(tex); ok {
				r.device.FramebufferTexture2D(gpu.ColorAttachment(i), texTarget, trec.Texture, mip)
			}
		}
		r.attached[target.ID] = attach
	}

	scale := 1 / float32(int(1)<<mip)
	r.state.Viewport(target.Viewport.Scale(scale))
	r.state.Scissor(target.Scissor.Scale(scale))
	r.state.SetScissorTest(target.ScissorTest)
	return nil
}

// checkLost reports whether the context is gone, handling a fresh loss.
func (r *Renderer) checkLost() bool {
	if !r.lost && r.device.IsContextLost() {
		r.HandleContextLost()
		r.lostByDevice = true
	}
	return r.lost
}

// HandleContextLost drops every cached device object. Render does nothing
// until the context is restored.
func (r *Renderer) HandleContextLost() {
	if r.lost {
		return
	}
	r.lost = true
	r.phase = Idle
	r.log.Warn("gpu context lost", zap.Int("programs", len(r.programs.Programs())))

	r.resources.Reset()
	r.programs.Reset()
	r.state.Reset()
	clear(r.materials)
	clear(r.attached)
	clear(r.wireframes)
	for d := range r.instances {
		d.OffDispose(r)
	}
	clear(r.instances)
	r.attribs.reset(r.device.Caps().MaxVertexAttribs)
	for _, rb := range r.readbacks {
		rb.fail(core.ErrContextLost)
	}
	r.readbacks = r.readbacks[:0]
	r.target = nil

	if r.opts.OnContextLost != nil {
		r.opts.OnContextLost()
	}
}

// HandleContextRestored re-applies default state. Resources and programs are
// rebuilt lazily by the next frames.
func (r *Renderer) HandleContextRestored() {
	if !r.lost {
		return
	}
	r.lost = false
	r.lostByDevice = false
	r.state.Reset()
	r.applyDefaults()
	r.log.Info("gpu context restored")
	if r.opts.OnContextRestored != nil {
		r.opts.OnContextRestored()
	}
}

// ContextLost reports whether the renderer is waiting for a restore.
func (r *Renderer) ContextLost() bool { return r.lost }

// Render draws sc as seen by camera into the bound target.
func (r *Renderer) Render(sc *scene.Scene, camera *scene.Camera) error {
	if r.lost {
		if !r.lostByDevice || r.device.IsContextLost() {
			return nil
		}
		r.HandleContextRestored()
	}
	if r.checkLost() {
		return nil
	}
	defer func() { r.phase = Idle }()

	r.info = RenderInfo{Frame: r.info.Frame + 1}

	r.phase = UpdateTransforms
	if sc.MatrixWorldAutoUpdate {
		sc.Root.UpdateMatrixWorld(false)
	}
	if camera.Node.Parent == nil && camera.Node.MatrixWorldAutoUpdate {
		camera.Node.UpdateMatrixWorld(false)
	}
	if r.checkLost() {
		return nil
	}

	r.phase = Cull
	r.list.Init()
	r.builder.Traverse(sc.Root, camera, r.list, renderlist.Options{
		OverrideMaterial: sc.OverrideMaterial,
		Sort:             r.opts.SortObjects,
	})
	r.lights.ShadowsEnabled = r.opts.ShadowMap.Enabled
	r.lights.Setup(r.builder.Lights, camera)

	target, face, mip := r.target, r.targetFace, r.targetMip
	if r.opts.ShadowMap.Enabled && len(r.builder.ShadowLights) > 0 {
		r.shadows.Type = r.opts.ShadowMap.Type
		r.shadows.Render(r.builder.Casters, r.lights, camera, r)
	}
	if r.checkLost() {
		return nil
	}

	r.scene = sc
	if err := r.SetRenderTarget(target, face, mip); err != nil {
		return err
	}
	r.beginView(camera)
	r.ctx = r.passContext(sc, target)

	if r.opts.AutoClear {
		if sc.Background != nil && target == nil {
			r.state.Color.SetClear(*sc.Background)
		}
		r.Clear(r.opts.AutoClearColor, r.opts.AutoClearDepth, r.opts.AutoClearStencil)
		r.state.Color.SetClear(r.clearColor)
	}

	if len(r.list.Transmissive) > 0 {
		r.phase = TransmissionPrepass
		if err := r.renderTransmissionPrepass(target, face, mip); err != nil {
			return err
		}
		if r.checkLost() {
			return nil
		}
	}

	r.phase = OpaquePass
	if err := r.renderItems(r.list.Opaque); err != nil {
		return err
	}
	if r.checkLost() {
		return nil
	}

	r.phase = TransparentPass
	if err := r.renderItems(r.list.Transmissive); err != nil {
		return err
	}
	if err := r.renderItems(r.list.Transparent); err != nil {
		return err
	}
	if r.checkLost() {
		return nil
	}

	r.phase = Resolve
	if target != nil {
		r.resources.Targets.Resolve(target)
	}
	r.pollReadbacks()
	return nil
}

// passContext derives the program context of drawing sc into target. Tone
// mapping and output encoding only apply to the default surface.
func (r *Renderer) passContext(sc *scene.Scene, target *scene.RenderTarget) programs.Context {
	ctx := programs.Context{
		ClippingPlanes: len(r.opts.ClippingPlanes),
		LocalClipping:  r.opts.LocalClippingEnabled,
		ShadowsEnabled: r.opts.ShadowMap.Enabled,
		ShadowType:     r.opts.ShadowMap.Type,
		MaxBones:       r.opts.MaxBones,
	}
	if sc != nil {
		ctx.Fog = sc.Fog
		ctx.Environment = sc.Environment
	}
	if target == nil {
		ctx.ToneMapping = r.opts.ToneMapping
		ctx.OutputSRGB = r.opts.OutputColorSpace == SRGB
	}
	return ctx
}

// beginView caches the camera matrices and the view-space global planes.
func (r *Renderer) beginView(camera *scene.Camera) {
	v := &r.view
	v.camera = camera
	v.view = camera.ViewMatrix()
	v.projection = camera.ProjectionMatrix()
	v.position = camera.Position()
	v.ortho = camera.Projection == scene.Orthographic
	v.normal = v.view.Mat3().Inv().Transpose()
	v.frustum = camera.Frustum()
	v.planes = make([]mgl32.Vec4, 0, len(r.opts.ClippingPlanes))
	for _, p := range r.opts.ClippingPlanes {
		v.planes = append(v.planes, r.viewPlane(p))
	}
}

func (r *Renderer) viewPlane(p scene.Plane) mgl32.Vec4 {
	vp := p.ApplyMatrix4(r.view.view, r.view.normal)
	return vp.Normal.Vec4(vp.D)
}

func (r *Renderer) renderItems(items []*renderlist.Item) error {
	for _, it := range items {
		if err := r.drawItem(it.Object, it.Geometry, it.Material, it.Group); err != nil {
			return err
		}
	}
	return nil
}

// Compile acquires the program of every material reachable from sc without
// drawing anything.
func (r *Renderer) Compile(sc *scene.Scene, camera *scene.Camera) error {
	_, err := r.compile(sc, camera)
	return err
}

func (r *Renderer) compile(sc *scene.Scene, camera *scene.Camera) ([]*programs.Program, error) {
	if r.checkLost() {
		return nil, core.ErrContextLost
	}
	if sc.MatrixWorldAutoUpdate {
		sc.Root.UpdateMatrixWorld(false)
	}
	camera.Node.UpdateWorldMatrix(true, false)

	list := renderlist.New()
	var b renderlist.Builder
	b.Traverse(sc.Root, camera, list, renderlist.Options{OverrideMaterial: sc.OverrideMaterial})
	r.lights.ShadowsEnabled = r.opts.ShadowMap.Enabled
	r.lights.Setup(b.Lights, camera)
	r.ctx = r.passContext(sc, r.target)

	var out []*programs.Program
	for _, bucket := range [][]*renderlist.Item{list.Opaque, list.Transmissive, list.Transparent} {
		for _, it := range bucket {
			p, err := r.programFor(it.Material, it.Object)
			if err != nil {
				return out, err
			}
			if p != nil {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// CompileHandle tracks the programs started by CompileAsync.
type CompileHandle struct {
	programs []*programs.Program
	err      error
}

// Done reports whether every program finished compiling.
func (h *CompileHandle) Done() bool {
	if h.err != nil {
		return true
	}
	for _, p := range h.programs {
		if !p.Ready() {
			return false
		}
	}
	return true
}

func (h *CompileHandle) Err() error { return h.err }

// CompileAsync starts compiling every reachable program. On devices with
// parallel compilation Done turns true once the driver finishes.
func (r *Renderer) CompileAsync(sc *scene.Scene, camera *scene.Camera) *CompileHandle {
	progs, err := r.compile(sc, camera)
	return &CompileHandle{programs: progs, err: err}
}

// Dispose releases every device object the renderer owns.
func (r *Renderer) Dispose() {
	for id, ms := range r.materials {
		ms.release(r.programs)
		delete(r.materials, id)
	}
	r.programs.Dispose()
	r.shadows.Dispose()
	if r.transmission != nil {
		r.transmission.Dispose()
		r.transmission = nil
	}
	r.fullscreen.dispose()
	for _, rb := range r.readbacks {
		rb.fail(core.ErrContextLost)
	}
	r.readbacks = nil
	for d := range r.instances {
		d.OffDispose(r)
	}
	clear(r.instances)
	r.resources.Dispose()
	r.log.Debug("renderer disposed")
}
