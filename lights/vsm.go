package lights

import (
	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/scene"
)

const vsmBlurVertex = `
out vec2 vUv;
void main() {
    vUv = uv;
    gl_Position = vec4(position.xy, 0.0, 1.0);
}
`

// Separable Gaussian-ish blur over the depth moments.
const vsmBlurFragment = `
uniform sampler2D shadowPass;
uniform vec2  resolution;
uniform vec2  direction;
uniform float radius;
uniform float samples;
in vec2 vUv;

void main() {
    vec2 texel = direction * radius / resolution;
    float mean = 0.0;
    float squaredMean = 0.0;
    float uvStride = samples <= 1.0 ? 0.0 : 2.0 / (samples - 1.0);
    float uvStart = samples <= 1.0 ? 0.0 : -1.0;
    for (float i = 0.0; i < samples; i++) {
        float offset = uvStart + i * uvStride;
        vec2 moments = texture(shadowPass, vUv + texel * offset).rg;
        mean += moments.x;
        squaredMean += moments.y;
    }
    mean /= samples;
    squaredMean /= samples;
    outColor = vec4(mean, squaredMean, 0.0, 1.0);
}
`

func newBlurMaterial(direction mgl32.Vec2) *scene.Material {
	m := scene.NewShaderMaterial(vsmBlurVertex, vsmBlurFragment, false)
	m.Name = "vsm-blur"
	m.DepthTest = false
	m.DepthWrite = false
	m.Uniforms["direction"] = direction
	return m
}

// blur runs the horizontal pass into the scratch target and the vertical pass
// back into the shadow map.
func (m *ShadowMapper) blur(sm *shadowMap, sh *Shadow, d DepthDrawer) {
	cfg := sh.Light.Light.Shadow
	res := mgl32.Vec2{float32(sm.target.Width), float32(sm.target.Height)}
	samples := float32(max(cfg.BlurSamples, 1))

	for _, pass := range []struct {
		mat      *scene.Material
		src, dst *scene.RenderTarget
	}{
		{m.blurH, sm.target, sm.blurTemp},
		{m.blurV, sm.blurTemp, sm.target},
	} {
		pass.mat.Uniforms["shadowPass"] = pass.src.Texture()
		pass.mat.Uniforms["resolution"] = res
		pass.mat.Uniforms["radius"] = cfg.Radius
		pass.mat.Uniforms["samples"] = samples
		d.DrawFullscreen(pass.dst, pass.mat)
	}
}
