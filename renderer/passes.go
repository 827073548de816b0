package renderer

import (
	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/lights"
	"frame-renderer/programs"
	"frame-renderer/renderlist"
	"frame-renderer/scene"
)

var _ lights.DepthDrawer = (*Renderer)(nil)

// shadowClear is the clear color of shadow maps: packed distances and moments
// read as "far" when nothing was drawn.
var shadowClear = core.Color{R: 1, G: 1, B: 1, A: 1}

// DrawDepth renders shadow casters for the shadow mapper.
func (r *Renderer) DrawDepth(pass lights.DepthPass) {
	if err := r.SetRenderTarget(pass.Target, 0, 0); err != nil {
		r.log.Error("shadow target", zap.Error(err))
		return
	}
	r.state.Viewport(pass.Viewport)
	if pass.Clear {
		r.state.SetScissorTest(false)
		r.state.Color.SetClear(shadowClear)
		r.Clear(true, true, false)
		r.state.Color.SetClear(r.clearColor)
	}

	prevView, prevCtx := r.view, r.ctx
	r.beginView(pass.Camera)
	r.ctx = programs.Context{MaxBones: r.opts.MaxBones}
	for _, n := range pass.Casters {
		d := n.Drawable
		if d == nil || d.Geometry == nil {
			continue
		}
		if n.FrustumCulled && !r.view.frustum.IntersectsSphere(renderlist.WorldBoundingSphere(n)) {
			continue
		}
		if err := r.drawItem(n, d.Geometry, pass.Material, nil); err != nil {
			r.log.Error("shadow caster", zap.String("node", n.Name), zap.Error(err))
		}
	}
	r.view, r.ctx = prevView, prevCtx
}

// DrawFullscreen binds target and draws m over all of it.
func (r *Renderer) DrawFullscreen(target *scene.RenderTarget, m *scene.Material) {
	if err := r.SetRenderTarget(target, 0, 0); err != nil {
		r.log.Error("fullscreen target", zap.Error(err))
		return
	}
	if err := r.RenderFullscreen(m); err != nil {
		r.log.Error("fullscreen pass", zap.String("material", m.Name), zap.Error(err))
	}
}

// fullscreen is a clip-space triangle covering the viewport, drawn with an
// identity camera.
type fullscreen struct {
	geometry *scene.Geometry
	node     *scene.Node
	camera   *scene.Camera
}

func newFullscreen() *fullscreen {
	geo := scene.NewGeometry("Fullscreen")
	geo.SetAttribute("position", scene.NewFloat32Attribute([]float32{-1, -1, 0, 3, -1, 0, -1, 3, 0}, 3))
	geo.SetAttribute("normal", scene.NewFloat32Attribute([]float32{0, 0, 1, 0, 0, 1, 0, 0, 1}, 3))
	geo.SetAttribute("uv", scene.NewFloat32Attribute([]float32{0, 0, 2, 0, 0, 2}, 2))

	node := scene.NewMesh("Fullscreen", geo, nil)
	node.FrustumCulled = false
	node.UpdateMatrixWorld(true)
	cam := scene.NewOrthographicCamera(-1, 1, 1, -1, -1, 1)
	cam.Node.UpdateMatrixWorld(true)
	return &fullscreen{geometry: geo, node: node, camera: cam}
}

func (f *fullscreen) dispose() {
	f.geometry.Dispose()
}

// RenderFullscreen draws m over the whole bound target. Tone mapping and
// output encoding apply only when drawing to the default surface.
func (r *Renderer) RenderFullscreen(m *scene.Material) error {
	if r.checkLost() {
		return nil
	}
	f := r.fullscreen
	prevView, prevCtx := r.view, r.ctx
	r.beginView(f.camera)
	r.ctx = programs.Context{}
	if r.target == nil {
		r.ctx.ToneMapping = r.opts.ToneMapping
		r.ctx.OutputSRGB = r.opts.OutputColorSpace == SRGB
	}
	f.node.Drawable.Materials[0] = m
	err := r.drawItem(f.node, f.geometry, m, nil)
	r.view, r.ctx = prevView, prevCtx
	return err
}

// TransmissionTarget is the scene-behind-glass texture of the last frame with
// transmissive items, or nil.
func (r *Renderer) TransmissionTarget() *scene.RenderTarget { return r.transmission }

// renderTransmissionPrepass draws the opaque items and the back faces of
// double-sided transmissive items into the transmission target, then restores
// the frame's target.
func (r *Renderer) renderTransmissionPrepass(target *scene.RenderTarget, face, mip int) error {
	scale := r.opts.TransmissionResolutionScale
	w := max(int(float32(r.width)*scale), 1)
	h := max(int(float32(r.height)*scale), 1)
	if r.transmission == nil {
		opts := scene.DefaultRenderTargetOptions()
		opts.Format = gpu.RGBA8
		if r.device.Caps().FloatRenderTargets {
			opts.Format = gpu.RGBA16F
		}
		opts.GenerateMipmaps = true
		opts.MinFilter = gpu.LinearMipmapLinear
		r.transmission = scene.NewRenderTarget(w, h, opts)
	} else {
		r.transmission.SetSize(w, h)
	}

	if err := r.SetRenderTarget(r.transmission, 0, 0); err != nil {
		return err
	}
	r.Clear(true, true, true)

	ctx := r.ctx
	r.ctx.Transmission = true
	r.prepass = true
	err := r.renderItems(r.list.Opaque)
	for _, it := range r.list.Transmissive {
		if err != nil {
			break
		}
		m := it.Material
		if m.Side != scene.DoubleSide {
			continue
		}
		m.Side = scene.BackSide
		err = r.drawItem(it.Object, it.Geometry, m, it.Group)
		m.Side = scene.DoubleSide
	}
	r.prepass = false
	r.ctx = ctx
	r.resources.Targets.Resolve(r.transmission)
	if err != nil {
		return err
	}
	return r.SetRenderTarget(target, face, mip)
}
