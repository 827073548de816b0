// Package state shadows the device's global pipeline state so that redundant
// commands are never issued. Every setter compares against the last value it
// sent and touches the device only on change.
package state

import (
	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/scene"
)

// cached holds the last value sent to the device. The zero value is unknown,
// so the first change always goes through.
type cached[T comparable] struct {
	v  T
	ok bool
}

func (c *cached[T]) change(v T) bool {
	if c.ok && c.v == v {
		return false
	}
	c.v, c.ok = v, true
	return true
}

type boundTexture struct {
	target gpu.TextureTarget
	tex    gpu.Texture
}

// Tracker is the state shadow for one device.
type Tracker struct {
	device gpu.Device
	log    *zap.Logger

	Color   ColorBuffer
	Depth   DepthBuffer
	Stencil StencilBuffer

	enabled [gpu.NumCapabilities]cached[bool]

	blend         cached[blendState]
	blendColor    cached[core.Color]
	cullFace      cached[gpu.Face]
	frontFace     cached[gpu.Winding]
	lineWidth     cached[float32]
	polygonOffset cached[[2]float32]
	scissor       cached[core.Rect]
	viewport      cached[core.Rect]

	program    cached[gpu.Program]
	drawFB     cached[gpu.Framebuffer]
	readFB     cached[gpu.Framebuffer]
	activeUnit cached[int]
	textures   map[int]boundTexture
	nextUnit   int
	maxUnits   int
}

func New(device gpu.Device, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tracker{device: device, log: log.Named("state")}
	t.Reset()
	return t
}

// Reset forgets everything the tracker knows. It issues no device calls; the
// next request for any state is always emitted.
func (t *Tracker) Reset() {
	device, log := t.device, t.log
	*t = Tracker{device: device, log: log}
	t.Color.t, t.Depth.t, t.Stencil.t = t, t, t
	t.textures = make(map[int]boundTexture)
	t.maxUnits = device.Caps().MaxTextureUnits
}

func (t *Tracker) Enable(c gpu.Capability) {
	if t.enabled[c].change(true) {
		t.device.Enable(c)
	}
}

func (t *Tracker) Disable(c gpu.Capability) {
	if t.enabled[c].change(false) {
		t.device.Disable(c)
	}
}

func (t *Tracker) SetEnabled(c gpu.Capability, on bool) {
	if on {
		t.Enable(c)
	} else {
		t.Disable(c)
	}
}

// UseProgram binds p and reports whether the binding changed.
func (t *Tracker) UseProgram(p gpu.Program) bool {
	if !t.program.change(p) {
		return false
	}
	t.device.UseProgram(p)
	return true
}

// BindFramebuffer binds fb and reports whether any binding changed.
func (t *Tracker) BindFramebuffer(target gpu.FramebufferTarget, fb gpu.Framebuffer) bool {
	var changed bool
	switch target {
	case gpu.ReadFramebuffer:
		changed = t.readFB.change(fb)
	case gpu.DrawFramebuffer:
		changed = t.drawFB.change(fb)
	default:
		d := t.drawFB.change(fb)
		r := t.readFB.change(fb)
		changed = d || r
	}
	if changed {
		t.device.BindFramebuffer(target, fb)
	}
	return changed
}

// ForgetFramebuffer marks the bindings of a deleted framebuffer unknown.
func (t *Tracker) ForgetFramebuffer(fb gpu.Framebuffer) {
	if t.drawFB.v == fb {
		t.drawFB = cached[gpu.Framebuffer]{}
	}
	if t.readFB.v == fb {
		t.readFB = cached[gpu.Framebuffer]{}
	}
}

// ForgetProgram marks the program binding unknown if p was bound.
func (t *Tracker) ForgetProgram(p gpu.Program) {
	if t.program.v == p {
		t.program = cached[gpu.Program]{}
	}
}

func (t *Tracker) SetFlipSided(cw bool) {
	w := gpu.CCW
	if cw {
		w = gpu.CW
	}
	if t.frontFace.change(w) {
		t.device.FrontFace(w)
	}
}

// SetCullFace enables culling of face, or disables culling when face is zero.
func (t *Tracker) SetCullFace(face gpu.Face) {
	if face == 0 {
		t.Disable(gpu.CullFaceTest)
		return
	}
	t.Enable(gpu.CullFaceTest)
	if t.cullFace.change(face) {
		t.device.CullFace(face)
	}
}

func (t *Tracker) SetLineWidth(w float32) {
	if t.lineWidth.change(w) {
		t.device.LineWidth(w)
	}
}

func (t *Tracker) SetPolygonOffset(on bool, factor, units float32) {
	t.SetEnabled(gpu.PolygonOffsetFill, on)
	if on && t.polygonOffset.change([2]float32{factor, units}) {
		t.device.PolygonOffset(factor, units)
	}
}

func (t *Tracker) SetScissorTest(on bool) {
	t.SetEnabled(gpu.ScissorTest, on)
}

func (t *Tracker) Scissor(r core.Rect) {
	if t.scissor.change(r) {
		t.device.Scissor(r)
	}
}

func (t *Tracker) Viewport(r core.Rect) {
	if t.viewport.change(r) {
		t.device.Viewport(r)
	}
}

// SetMaterial applies the fixed-function state a material asks for.
// frontFaceCW flips winding for objects with a mirroring world transform.
func (t *Tracker) SetMaterial(m *scene.Material, frontFaceCW bool) {
	if m.Side == scene.DoubleSide {
		t.SetCullFace(0)
	} else {
		t.SetCullFace(gpu.FaceBack)
	}
	flip := m.Side == scene.BackSide
	if frontFaceCW {
		flip = !flip
	}
	t.SetFlipSided(flip)

	if m.Blending == scene.NormalBlending && !m.Transparent {
		t.SetBlending(Blending{Mode: scene.NoBlending})
	} else {
		t.SetBlending(BlendingFromMaterial(m))
	}

	t.Depth.SetFunc(m.DepthFunc)
	t.Depth.SetTest(m.DepthTest)
	t.Depth.SetMask(m.DepthWrite)
	t.Color.SetMask(m.ColorWrite)

	t.Stencil.SetTest(m.StencilWrite)
	if m.StencilWrite {
		t.Stencil.SetMask(m.StencilWriteMask)
		t.Stencil.SetFunc(m.StencilFunc, m.StencilRef, m.StencilFuncMask)
		t.Stencil.SetOp(m.StencilFail, m.StencilZFail, m.StencilZPass)
	}

	t.SetPolygonOffset(m.PolygonOffset, m.PolygonOffsetFactor, m.PolygonOffsetUnits)
	t.SetEnabled(gpu.SampleAlphaToCoverage, m.AlphaToCoverage)
}
