package postprocess

import (
	"fmt"

	"frame-renderer/programs"
	"frame-renderer/scene"
)

// fullscreenVertex passes the clip-space triangle through untouched.
const fullscreenVertex = `
out vec2 vUv;
void main() {
    vUv = uv;
    gl_Position = vec4(position.xy, 0.0, 1.0);
}
`

// NewFullscreenMaterial wraps a fragment shader for fullscreen drawing. The
// shader receives vUv and writes outColor.
func NewFullscreenMaterial(name, fragment string) *scene.Material {
	m := scene.NewShaderMaterial(fullscreenVertex, fragment, false)
	m.Name = name
	m.DepthTest = false
	m.DepthWrite = false
	return m
}

// RenderPass draws a scene into the chain.
type RenderPass struct {
	Scene  *scene.Scene
	Camera *scene.Camera
}

func NewRenderPass(sc *scene.Scene, camera *scene.Camera) *RenderPass {
	return &RenderPass{Scene: sc, Camera: camera}
}

func (p *RenderPass) Render(f Frame) error {
	if err := f.Renderer.SetRenderTarget(f.Output, 0, 0); err != nil {
		return err
	}
	return f.Renderer.Render(p.Scene, p.Camera)
}

func (p *RenderPass) NeedsSwap() bool  { return true }
func (p *RenderPass) SetSize(int, int) {}
func (p *RenderPass) Dispose()         {}

// Source selects where a bound uniform takes its value from.
type Source int

const (
	// InputColor is the color output of the previous pass.
	InputColor Source = iota
	// NamedTarget is a target registered with Composer.SetTarget or written
	// by a SavePass.
	NamedTarget
	// Constant is a fixed value.
	Constant
)

// Binding is the source of one uniform.
type Binding struct {
	Source Source
	Target string
	Value  any
}

// Bindings maps uniform names to their sources.
type Bindings map[string]Binding

func Input() Binding             { return Binding{Source: InputColor} }
func Target(name string) Binding { return Binding{Source: NamedTarget, Target: name} }
func Value(v any) Binding        { return Binding{Source: Constant, Value: v} }

// resolve writes every binding into m's uniforms.
func (b Bindings) resolve(f Frame, m *scene.Material) error {
	for name, bind := range b {
		switch bind.Source {
		case InputColor:
			m.Uniforms[name] = f.Input.Texture()
		case NamedTarget:
			rt, ok := f.Composer.Target(bind.Target)
			if !ok {
				return fmt.Errorf("uniform %q: no target named %q", name, bind.Target)
			}
			m.Uniforms[name] = rt.Texture()
		case Constant:
			m.Uniforms[name] = bind.Value
		default:
			return fmt.Errorf("uniform %q: unknown binding source %d", name, bind.Source)
		}
	}
	return nil
}

// ShaderPass draws a fullscreen material whose uniforms are filled from its
// bindings each frame.
type ShaderPass struct {
	Material *scene.Material
	Bindings Bindings
	// Clear clears the output before drawing.
	Clear bool
}

// NewShaderPass builds a pass from a fragment shader. A nil b binds the
// previous output to tDiffuse.
func NewShaderPass(name, fragment string, b Bindings) *ShaderPass {
	if b == nil {
		b = Bindings{"tDiffuse": Input()}
	}
	return &ShaderPass{Material: NewFullscreenMaterial(name, fragment), Bindings: b}
}

func (p *ShaderPass) Render(f Frame) error {
	if err := p.Bindings.resolve(f, p.Material); err != nil {
		return err
	}
	if err := f.Renderer.SetRenderTarget(f.Output, 0, 0); err != nil {
		return err
	}
	if p.Clear {
		f.Renderer.Clear(true, true, false)
	}
	return f.Renderer.RenderFullscreen(p.Material)
}

func (p *ShaderPass) NeedsSwap() bool  { return true }
func (p *ShaderPass) SetSize(int, int) {}
func (p *ShaderPass) Dispose()         { p.Material.Dispose() }

const copyFragment = `
uniform sampler2D tDiffuse;
uniform float opacity;
in vec2 vUv;
void main() {
    vec4 c = texture(tDiffuse, vUv);
    outColor = vec4(c.rgb, c.a * opacity);
}
`

// SavePass copies the current input into a composer-owned target registered
// under Name, leaving the chain untouched.
type SavePass struct {
	Name   string
	target *scene.RenderTarget
	copy   *scene.Material
	w, h   int
}

func NewSavePass(name string) *SavePass {
	m := NewFullscreenMaterial("save", copyFragment)
	m.Uniforms["opacity"] = float32(1)
	m.ToneMapped = false
	return &SavePass{Name: name, copy: m}
}

func (p *SavePass) Render(f Frame) error {
	if p.target == nil {
		p.target = f.Composer.newTarget(p.w, p.h)
	}
	f.Composer.SetTarget(p.Name, p.target)
	p.copy.Uniforms["tDiffuse"] = f.Input.Texture()
	return drawTo(f.Renderer, p.target, p.copy)
}

func (p *SavePass) NeedsSwap() bool { return false }

func (p *SavePass) SetSize(w, h int) {
	p.w, p.h = max(w, 1), max(h, 1)
	if p.target != nil {
		p.target.SetSize(p.w, p.h)
	}
}

func (p *SavePass) Dispose() {
	p.copy.Dispose()
	if p.target != nil {
		p.target.Dispose()
		p.target = nil
	}
}

const outputFragment = programs.OutputChunk + `
uniform sampler2D tDiffuse;
in vec2 vUv;
void main() {
    outColor = linearToOutput(texture(tDiffuse, vUv));
}
`

// OutputPass copies the chain to its output with the renderer's tone mapping
// and output encoding. Those only apply on the default surface, so it belongs
// last.
type OutputPass struct {
	*ShaderPass
}

func NewOutputPass() *OutputPass {
	return &OutputPass{ShaderPass: NewShaderPass("output", outputFragment, nil)}
}
