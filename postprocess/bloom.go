package postprocess

import (
	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/gpu"
	"frame-renderer/scene"
)

// brightFragment keeps pixels whose luminance exceeds the threshold.
const brightFragment = `
uniform sampler2D inputBuffer;
uniform float threshold;
in vec2 vUv;
void main() {
    vec3 color = texture(inputBuffer, vUv).rgb;
    float luma = dot(color, vec3(0.2126, 0.7152, 0.0722));
    outColor = vec4(color * step(threshold, luma), 1.0);
}
`

// blurFragment is a single-axis 5-tap Gaussian. texelDir is (radius/w, 0)
// for the horizontal pass and (0, radius/h) for the vertical one.
const blurFragment = `
uniform sampler2D blurTexture;
uniform vec2 texelDir;
in vec2 vUv;
void main() {
    const float w[5] = float[](0.0625, 0.25, 0.375, 0.25, 0.0625);
    vec3 result = vec3(0.0);
    for (int i = -2; i <= 2; i++) {
        result += texture(blurTexture, vUv + float(i) * texelDir).rgb * w[i + 2];
    }
    outColor = vec4(result, 1.0);
}
`

const compositeFragment = `
uniform sampler2D inputBuffer;
uniform sampler2D bloomTexture;
uniform float bloomStrength;
in vec2 vUv;
void main() {
    vec4 base = texture(inputBuffer, vUv);
    outColor = vec4(base.rgb + texture(bloomTexture, vUv).rgb * bloomStrength, base.a);
}
`

// Bloom adds a soft glow around bright pixels: bright-pass, ping-pong
// Gaussian blur at half resolution, then an additive composite.
type Bloom struct {
	// Threshold is the luminance cut-off. 1 keeps only HDR-bright pixels.
	Threshold float32
	Strength  float32
	// Radius scales the blur tap spacing.
	Radius float32
	// Passes is the number of horizontal and vertical blur pairs.
	Passes int

	targets   [2]*scene.RenderTarget
	bright    *scene.Material
	blur      *scene.Material
	composite *scene.Material
	w, h      int
}

// NewBloom creates a bloom pass with four blur pairs.
func NewBloom(threshold, strength, radius float32) *Bloom {
	b := &Bloom{
		Threshold: threshold,
		Strength:  strength,
		Radius:    radius,
		Passes:    4,
		bright:    NewFullscreenMaterial("bloom-bright", brightFragment),
		blur:      NewFullscreenMaterial("bloom-blur", blurFragment),
		composite: NewFullscreenMaterial("bloom-composite", compositeFragment),
	}
	for _, m := range []*scene.Material{b.bright, b.blur, b.composite} {
		m.ToneMapped = false
	}
	return b
}

func (b *Bloom) SetSize(width, height int) {
	b.w, b.h = max(width/2, 1), max(height/2, 1)
	for _, rt := range b.targets {
		if rt != nil {
			rt.SetSize(b.w, b.h)
		}
	}
}

func (b *Bloom) allocTargets() {
	opts := scene.DefaultRenderTargetOptions()
	opts.Format = gpu.RGBA16F
	opts.DepthBuffer = false
	for i := range b.targets {
		b.targets[i] = scene.NewRenderTarget(b.w, b.h, opts)
	}
}

func (b *Bloom) Render(f Frame) error {
	if b.targets[0] == nil {
		b.allocTargets()
	}
	r := f.Renderer

	b.bright.Uniforms["inputBuffer"] = f.Input.Texture()
	b.bright.Uniforms["threshold"] = b.Threshold
	if err := drawTo(r, b.targets[0], b.bright); err != nil {
		return err
	}

	// Each pair blurs 0 into 1 horizontally and back vertically, so the
	// result always ends up in targets[0].
	horizontal := mgl32.Vec2{b.Radius / float32(b.w), 0}
	vertical := mgl32.Vec2{0, b.Radius / float32(b.h)}
	for range b.Passes {
		b.blur.Uniforms["blurTexture"] = b.targets[0].Texture()
		b.blur.Uniforms["texelDir"] = horizontal
		if err := drawTo(r, b.targets[1], b.blur); err != nil {
			return err
		}
		b.blur.Uniforms["blurTexture"] = b.targets[1].Texture()
		b.blur.Uniforms["texelDir"] = vertical
		if err := drawTo(r, b.targets[0], b.blur); err != nil {
			return err
		}
	}

	b.composite.Uniforms["inputBuffer"] = f.Input.Texture()
	b.composite.Uniforms["bloomTexture"] = b.targets[0].Texture()
	b.composite.Uniforms["bloomStrength"] = b.Strength
	return drawTo(r, f.Output, b.composite)
}

func (b *Bloom) NeedsSwap() bool { return true }

func (b *Bloom) Dispose() {
	for _, m := range []*scene.Material{b.bright, b.blur, b.composite} {
		m.Dispose()
	}
	for i, rt := range b.targets {
		if rt != nil {
			rt.Dispose()
			b.targets[i] = nil
		}
	}
}
