package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/gpu/gputest"
	"frame-renderer/scene"
)

func newTracker() (*Tracker, *gputest.Device) {
	dev := gputest.NewDefault()
	return New(dev, nil), dev
}

func TestRedundantStateIsSkipped(t *testing.T) {
	tr, dev := newTracker()

	tr.Enable(gpu.DepthTest)
	tr.Enable(gpu.DepthTest)
	tr.Depth.SetFunc(gpu.Less)
	tr.Depth.SetFunc(gpu.Less)
	tr.Viewport(core.Rect{Width: 10, Height: 10})
	tr.Viewport(core.Rect{Width: 10, Height: 10})
	assert.True(t, tr.UseProgram(3))
	assert.False(t, tr.UseProgram(3))

	assert.Equal(t, 1, dev.Count("Enable"))
	assert.Equal(t, 1, dev.Count("DepthFunc"))
	assert.Equal(t, 1, dev.Count("Viewport"))
	assert.Equal(t, 1, dev.Count("UseProgram"))

	tr.Disable(gpu.DepthTest)
	assert.Equal(t, 1, dev.Count("Disable"))
}

func TestResetForgetsState(t *testing.T) {
	tr, dev := newTracker()
	tr.Enable(gpu.Blend)
	tr.UseProgram(1)
	tr.BindTexture(gpu.Texture2D, 5, 2)

	dev.Reset()
	tr.Reset()
	assert.Empty(t, dev.Calls())

	tr.Enable(gpu.Blend)
	tr.UseProgram(1)
	tr.BindTexture(gpu.Texture2D, 5, 2)
	assert.Equal(t, 1, dev.Count("Enable"))
	assert.Equal(t, 1, dev.Count("UseProgram"))
	assert.Equal(t, 1, dev.Count("BindTexture"))
	assert.Equal(t, 1, dev.Count("ActiveTexture"))
}

func TestLockedDepthMaskIgnoresWrites(t *testing.T) {
	tr, dev := newTracker()
	tr.Depth.SetMask(true)
	tr.Depth.SetLocked(true)
	tr.Depth.SetMask(false)
	tr.Depth.SetLocked(false)

	calls := dev.Calls("DepthMask")
	require.Len(t, calls, 1)
	assert.Equal(t, true, calls[0].Args[0])
}

func TestBlendingPresets(t *testing.T) {
	cases := []struct {
		name  string
		blend Blending
		want  []any
	}{
		{"normal", Blending{Mode: scene.NormalBlending},
			[]any{gpu.FactorSrcAlpha, gpu.FactorOneMinusSrcAlpha, gpu.FactorOne, gpu.FactorOneMinusSrcAlpha}},
		{"normal premultiplied", Blending{Mode: scene.NormalBlending, Premultiplied: true},
			[]any{gpu.FactorOne, gpu.FactorOneMinusSrcAlpha, gpu.FactorOne, gpu.FactorOneMinusSrcAlpha}},
		{"additive", Blending{Mode: scene.AdditiveBlending},
			[]any{gpu.FactorSrcAlpha, gpu.FactorOne, gpu.FactorOne, gpu.FactorOne}},
		{"subtractive", Blending{Mode: scene.SubtractiveBlending},
			[]any{gpu.FactorZero, gpu.FactorOneMinusSrcColor, gpu.FactorZero, gpu.FactorOne}},
		{"multiply", Blending{Mode: scene.MultiplyBlending},
			[]any{gpu.FactorZero, gpu.FactorSrcColor, gpu.FactorZero, gpu.FactorSrcColor}},
		{"custom", Blending{Mode: scene.CustomBlending, Equation: gpu.FuncAdd, Src: gpu.FactorDstColor, Dst: gpu.FactorZero},
			[]any{gpu.FactorDstColor, gpu.FactorZero, gpu.FactorDstColor, gpu.FactorZero}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, dev := newTracker()
			tr.SetBlending(tc.blend)

			assert.Equal(t, 1, dev.Count("Enable"))
			funcs := dev.Calls("BlendFuncSeparate")
			require.Len(t, funcs, 1)
			assert.Equal(t, tc.want, funcs[0].Args)

			tr.SetBlending(tc.blend)
			assert.Equal(t, 1, dev.Count("BlendFuncSeparate"))
			assert.Equal(t, 1, dev.Count("BlendEquationSeparate"))
		})
	}
}

func TestNoBlendingDisables(t *testing.T) {
	tr, dev := newTracker()
	tr.SetBlending(Blending{Mode: scene.NormalBlending})
	tr.SetBlending(Blending{Mode: scene.NoBlending})
	tr.SetBlending(Blending{Mode: scene.NormalBlending})

	assert.Equal(t, 2, dev.Count("Enable"))
	assert.Equal(t, 1, dev.Count("Disable"))
	assert.Equal(t, 1, dev.Count("BlendFuncSeparate"))
}

func TestSetMaterial(t *testing.T) {
	tr, dev := newTracker()
	m := scene.NewMaterial(scene.BasicMaterial)

	tr.SetMaterial(m, false)
	assert.Contains(t, dev.Calls("Enable"), gputest.Call{Op: "Enable", Args: []any{gpu.CullFaceTest}})
	assert.NotContains(t, dev.Calls("Enable"), gputest.Call{Op: "Enable", Args: []any{gpu.Blend}})
	assert.Equal(t, []any{gpu.CCW}, dev.Calls("FrontFace")[0].Args)

	dev.Reset()
	tr.SetMaterial(m, false)
	assert.Empty(t, dev.Calls())

	m.Side = scene.BackSide
	tr.SetMaterial(m, true)
	assert.Empty(t, dev.Calls("FrontFace"), "back side on a mirrored object keeps CCW")

	m.Side = scene.DoubleSide
	m.Transparent = true
	m.DepthWrite = false
	tr.SetMaterial(m, false)
	assert.Contains(t, dev.Calls("Disable"), gputest.Call{Op: "Disable", Args: []any{gpu.CullFaceTest}})
	assert.Contains(t, dev.Calls("Enable"), gputest.Call{Op: "Enable", Args: []any{gpu.Blend}})
	assert.Equal(t, []any{false}, dev.Calls("DepthMask")[0].Args)
}

func TestTextureUnits(t *testing.T) {
	tr, dev := newTracker()
	a := tr.AllocateTextureUnit()
	b := tr.AllocateTextureUnit()
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)

	tr.BindTexture(gpu.Texture2D, 7, b)
	tr.BindTexture(gpu.Texture2D, 7, b)
	assert.Equal(t, 1, dev.Count("BindTexture"))

	tr.UnbindTexture()
	assert.Equal(t, 2, dev.Count("BindTexture"))

	tr.ResetTextureUnits()
	assert.Equal(t, 0, tr.AllocateTextureUnit())
}

func TestFramebufferBinding(t *testing.T) {
	tr, dev := newTracker()
	assert.True(t, tr.BindFramebuffer(gpu.FramebufferBoth, 4))
	assert.False(t, tr.BindFramebuffer(gpu.FramebufferBoth, 4))
	assert.False(t, tr.BindFramebuffer(gpu.DrawFramebuffer, 4))
	assert.True(t, tr.BindFramebuffer(gpu.ReadFramebuffer, 9))
	assert.True(t, tr.BindFramebuffer(gpu.FramebufferBoth, 4))
	assert.Equal(t, 3, dev.Count("BindFramebuffer"))
}

func TestForgetDeletedHandles(t *testing.T) {
	tr, dev := newTracker()
	tr.BindTexture(gpu.Texture2D, 7, 2)
	tr.BindFramebuffer(gpu.FramebufferBoth, 4)
	tr.UseProgram(3)

	tr.ForgetTexture(7)
	tr.ForgetFramebuffer(4)
	tr.ForgetProgram(3)
	dev.Reset()

	// A recycled name must bind again even though it equals the old one.
	tr.BindTexture(gpu.Texture2D, 7, 2)
	assert.True(t, tr.BindFramebuffer(gpu.FramebufferBoth, 4))
	assert.True(t, tr.UseProgram(3))
	assert.Equal(t, 1, dev.Count("BindTexture"))
	assert.Equal(t, 1, dev.Count("BindFramebuffer"))
	assert.Equal(t, 1, dev.Count("UseProgram"))

	tr.ForgetTexture(99)
	tr.ForgetProgram(99)
	tr.BindTexture(gpu.Texture2D, 7, 2)
	assert.False(t, tr.UseProgram(3))
	assert.Equal(t, 1, dev.Count("BindTexture"), "forgetting another handle keeps the binding")
}
