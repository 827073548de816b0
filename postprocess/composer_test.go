package postprocess

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"frame-renderer/gpu"
	"frame-renderer/gpu/gputest"
	"frame-renderer/renderer"
	"frame-renderer/scene"
)

func setup(t *testing.T) (*renderer.Renderer, *gputest.Device, *scene.Scene, *scene.Camera) {
	t.Helper()
	dev := gputest.NewDefault()
	opts := renderer.DefaultOptions()
	opts.Width, opts.Height = 64, 32
	opts.Logger = zaptest.NewLogger(t)
	r, err := renderer.New(dev, opts)
	require.NoError(t, err)

	sc := scene.NewScene()
	sc.Add(scene.NewMesh("cube", scene.CreateCube(1), scene.NewMaterial(scene.BasicMaterial)))
	cam := scene.NewPerspectiveCamera(60, 2, 0.1, 100)
	cam.Node.SetPosition(mgl32.Vec3{0, 0, 4})
	return r, dev, sc, cam
}

// lastFramebuffer returns the framebuffer bound before the final draw.
func lastFramebuffer(dev *gputest.Device) (gpu.Framebuffer, bool) {
	var fb gpu.Framebuffer
	var drew bool
	for _, c := range dev.Calls("BindFramebuffer", "DrawArrays") {
		if c.Op == "BindFramebuffer" {
			fb = c.Args[1].(gpu.Framebuffer)
			continue
		}
		drew = true
	}
	return fb, drew
}

func TestComposerRendersChainToScreen(t *testing.T) {
	r, dev, sc, cam := setup(t)
	c := NewComposer(r, Options{Format: gpu.RGBA16F, Logger: zaptest.NewLogger(t)})
	bloom := NewBloom(1, 0.6, 1)
	bloom.Passes = 2
	c.AddPass(NewRenderPass(sc, cam))
	c.AddPass(bloom)
	c.AddPass(NewOutputPass())

	dev.Reset()
	require.NoError(t, c.Render())

	assert.Equal(t, 1, dev.Count("DrawElements"), "the scene is drawn once")
	// bright-pass, two blur pairs, composite, output
	assert.Equal(t, 1+2*2+1+1, dev.Count("DrawArrays"))
	fb, drew := lastFramebuffer(dev)
	require.True(t, drew)
	assert.Equal(t, gpu.DefaultFramebuffer, fb)
	assert.Nil(t, r.RenderTarget())

	w, h := c.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)
	assert.Equal(t, 32, bloom.targets[0].Width)
	assert.Equal(t, 16, bloom.targets[0].Height)
}

func TestDisabledPassIsSkipped(t *testing.T) {
	r, dev, sc, cam := setup(t)
	c := NewComposer(r, DefaultOptions())
	bloom := NewBloom(1, 0.6, 1)
	c.AddPass(NewRenderPass(sc, cam))
	c.AddPass(bloom)
	c.AddPass(NewOutputPass())
	c.SetEnabled(bloom, false)

	dev.Reset()
	require.NoError(t, c.Render())
	assert.Equal(t, 1, dev.Count("DrawArrays"))
	assert.Nil(t, bloom.targets[0])
}

func TestShaderPassBindings(t *testing.T) {
	r, _, sc, cam := setup(t)
	c := NewComposer(r, DefaultOptions())
	save := NewSavePass("scene")
	mix := NewShaderPass("mix", `
uniform sampler2D tDiffuse;
uniform sampler2D tScene;
uniform float amount;
in vec2 vUv;
void main() {
    outColor = mix(texture(tDiffuse, vUv), texture(tScene, vUv), amount);
}
`, Bindings{
		"tDiffuse": Input(),
		"tScene":   Target("scene"),
		"amount":   Value(float32(0.25)),
	})
	c.AddPass(NewRenderPass(sc, cam))
	c.AddPass(save)
	c.AddPass(mix)

	require.NoError(t, c.Render())
	saved, ok := c.Target("scene")
	require.True(t, ok)
	assert.Same(t, saved.Texture(), mix.Material.Uniforms["tScene"])
	assert.Equal(t, float32(0.25), mix.Material.Uniforms["amount"])
	// The save pass does not swap, so the mix pass read the scene output.
	assert.Same(t, c.ReadTarget().Texture(), mix.Material.Uniforms["tDiffuse"])
}

func TestShaderPassMissingTarget(t *testing.T) {
	r, _, sc, cam := setup(t)
	c := NewComposer(r, DefaultOptions())
	c.AddPass(NewRenderPass(sc, cam))
	c.AddPass(NewShaderPass("broken", `
uniform sampler2D tMissing;
in vec2 vUv;
void main() { outColor = texture(tMissing, vUv); }
`, Bindings{"tMissing": Target("nowhere")}))

	err := c.Render()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no target named "nowhere"`)
}

func TestComposerFollowsDrawingBufferSize(t *testing.T) {
	r, _, sc, cam := setup(t)
	c := NewComposer(r, DefaultOptions())
	bloom := NewBloom(1, 0.6, 1)
	c.AddPass(NewRenderPass(sc, cam))
	c.AddPass(bloom)
	require.NoError(t, c.Render())

	r.SetSize(128, 64)
	require.NoError(t, c.Render())
	assert.Equal(t, 128, c.ReadTarget().Width)
	assert.Equal(t, 64, bloom.targets[0].Width)
	assert.Equal(t, 32, bloom.targets[0].Height)
}

func TestPassOrdering(t *testing.T) {
	r, _, sc, cam := setup(t)
	c := NewComposer(r, DefaultOptions())
	render := NewRenderPass(sc, cam)
	out := NewOutputPass()
	bloom := NewBloom(1, 1, 1)
	c.AddPass(render)
	c.AddPass(out)
	c.InsertPass(bloom, 1)
	assert.Equal(t, []Pass{render, bloom, out}, c.Passes())

	c.RemovePass(bloom)
	assert.Equal(t, []Pass{render, out}, c.Passes())
}
