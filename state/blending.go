package state

import (
	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/scene"
)

// Blending describes a blend request. Preset modes ignore the explicit
// equations and factors; CustomBlending uses them as given.
type Blending struct {
	Mode          scene.Blending
	Equation      gpu.BlendEquation
	EquationAlpha gpu.BlendEquation
	Src, Dst      gpu.BlendFactor
	SrcAlpha      gpu.BlendFactor
	DstAlpha      gpu.BlendFactor
	Color         core.Color
	Premultiplied bool
}

// BlendingFromMaterial extracts the blend request of m.
func BlendingFromMaterial(m *scene.Material) Blending {
	return Blending{
		Mode:          m.Blending,
		Equation:      m.BlendEquation,
		EquationAlpha: m.BlendEquationAlpha,
		Src:           m.BlendSrc,
		Dst:           m.BlendDst,
		SrcAlpha:      m.BlendSrcAlpha,
		DstAlpha:      m.BlendDstAlpha,
		Color:         m.BlendColor,
		Premultiplied: m.PremultipliedAlpha,
	}
}

// blendState is the expanded device state of a blend request.
type blendState struct {
	eqRGB, eqAlpha     gpu.BlendEquation
	srcRGB, dstRGB     gpu.BlendFactor
	srcAlpha, dstAlpha gpu.BlendFactor
}

// expand returns the equations and factors a preset stands for.
func (b Blending) expand() blendState {
	add := func(srcRGB, dstRGB, srcAlpha, dstAlpha gpu.BlendFactor) blendState {
		return blendState{gpu.FuncAdd, gpu.FuncAdd, srcRGB, dstRGB, srcAlpha, dstAlpha}
	}
	switch b.Mode {
	case scene.NormalBlending:
		if b.Premultiplied {
			return add(gpu.FactorOne, gpu.FactorOneMinusSrcAlpha, gpu.FactorOne, gpu.FactorOneMinusSrcAlpha)
		}
		return add(gpu.FactorSrcAlpha, gpu.FactorOneMinusSrcAlpha, gpu.FactorOne, gpu.FactorOneMinusSrcAlpha)
	case scene.AdditiveBlending:
		if b.Premultiplied {
			return add(gpu.FactorOne, gpu.FactorOne, gpu.FactorOne, gpu.FactorOne)
		}
		return add(gpu.FactorSrcAlpha, gpu.FactorOne, gpu.FactorOne, gpu.FactorOne)
	case scene.SubtractiveBlending:
		return add(gpu.FactorZero, gpu.FactorOneMinusSrcColor, gpu.FactorZero, gpu.FactorOne)
	case scene.MultiplyBlending:
		if b.Premultiplied {
			return add(gpu.FactorZero, gpu.FactorSrcColor, gpu.FactorZero, gpu.FactorSrcAlpha)
		}
		return add(gpu.FactorZero, gpu.FactorSrcColor, gpu.FactorZero, gpu.FactorSrcColor)
	}

	eqAlpha, srcAlpha, dstAlpha := b.EquationAlpha, b.SrcAlpha, b.DstAlpha
	if eqAlpha == 0 {
		eqAlpha = b.Equation
	}
	if srcAlpha == 0 {
		srcAlpha = b.Src
	}
	if dstAlpha == 0 {
		dstAlpha = b.Dst
	}
	return blendState{b.Equation, eqAlpha, b.Src, b.Dst, srcAlpha, dstAlpha}
}

// SetBlending enables and configures blending, or disables it for NoBlending.
func (t *Tracker) SetBlending(b Blending) {
	if b.Mode == scene.NoBlending {
		t.Disable(gpu.Blend)
		return
	}
	t.Enable(gpu.Blend)

	s := b.expand()
	if prev := t.blend; !prev.ok || prev.v.eqRGB != s.eqRGB || prev.v.eqAlpha != s.eqAlpha {
		t.device.BlendEquationSeparate(s.eqRGB, s.eqAlpha)
	}
	if prev := t.blend; !prev.ok || prev.v.srcRGB != s.srcRGB || prev.v.dstRGB != s.dstRGB ||
		prev.v.srcAlpha != s.srcAlpha || prev.v.dstAlpha != s.dstAlpha {
		t.device.BlendFuncSeparate(s.srcRGB, s.dstRGB, s.srcAlpha, s.dstAlpha)
	}
	t.blend.change(s)

	if b.Mode == scene.CustomBlending && t.blendColor.change(b.Color) {
		t.device.BlendColor(b.Color)
	}
}
