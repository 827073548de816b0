package programs

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/lights"
	"frame-renderer/scene"
)

const glslVersion = "#version 410 core"

// Program is a linked GPU program shared by every material whose parameters
// produce the same key.
type Program struct {
	Handle    gpu.Program
	Key       string
	Kind      scene.MaterialKind
	UsedTimes int
	// Diagnostics is set when a stage failed to compile or the program failed
	// to link. The program is still usable but will render incorrectly.
	Diagnostics *core.ShaderCompileError

	VertexSource   string
	FragmentSource string

	device   gpu.Device
	uniforms *Uniforms
	attribs  map[string]int32
	ready    bool
}

// Uniforms returns the program's uniform table.
func (p *Program) Uniforms() *Uniforms {
	return p.uniforms
}

// AttribLocation returns the cached location of an attribute, or -1.
func (p *Program) AttribLocation(name string) int32 {
	loc, ok := p.attribs[name]
	if !ok {
		loc = p.device.AttribLocation(p.Handle, name)
		p.attribs[name] = loc
	}
	return loc
}

// Ready reports whether the program finished compiling. Devices without
// parallel compilation are always ready.
func (p *Program) Ready() bool {
	if p.ready {
		return true
	}
	if !p.device.Caps().ParallelCompile {
		p.ready = true
	} else {
		p.ready = p.device.ProgramReady(p.Handle)
	}
	return p.ready
}

// Cache owns every live program keyed by its parameter key.
type Cache struct {
	device   gpu.Device
	log      *zap.Logger
	programs map[string]*Program

	// CheckErrors reads compile and link status. When off, failures go unnoticed.
	CheckErrors bool
	// FatalErrors makes Acquire return compile and link failures as errors.
	FatalErrors bool
	// OnError receives every compile or link failure.
	OnError func(*core.ShaderCompileError)
	// OnDelete is called with each program handle right after it is deleted.
	OnDelete func(gpu.Program)
}

func New(device gpu.Device, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		device:      device,
		log:         log.Named("programs"),
		programs:    make(map[string]*Program),
		CheckErrors: true,
	}
}

// Acquire returns the program for key, compiling it from p on first use.
// Every successful call must be paired with a Release.
func (c *Cache) Acquire(p Parameters, key string) (*Program, error) {
	if prog, ok := c.programs[key]; ok {
		prog.UsedTimes++
		return prog, nil
	}

	vs, fs, err := c.sources(p)
	if err != nil {
		return nil, err
	}
	prog := &Program{
		Key:            key,
		Kind:           p.Kind,
		UsedTimes:      1,
		VertexSource:   vs,
		FragmentSource: fs,
		device:         c.device,
		attribs:        make(map[string]int32),
	}
	prog.Diagnostics = c.build(prog)
	prog.uniforms = newUniforms(c.device, prog.Handle, c.log)
	c.programs[key] = prog

	c.log.Debug("program compiled",
		zap.Stringer("kind", p.Kind),
		zap.Uint32("handle", uint32(prog.Handle)),
		zap.Int("programs", len(c.programs)))

	if prog.Diagnostics != nil {
		c.log.Error("shader program failed",
			zap.Stringer("kind", p.Kind),
			zap.String("stage", prog.Diagnostics.Stage),
			zap.Int("line", prog.Diagnostics.Line),
			zap.String("log", prog.Diagnostics.Log),
			zap.String("context", prog.Diagnostics.Context))
		if c.OnError != nil {
			c.OnError(prog.Diagnostics)
		}
		if c.FatalErrors {
			return prog, prog.Diagnostics
		}
	}
	return prog, nil
}

func (c *Cache) build(prog *Program) *core.ShaderCompileError {
	d := c.device
	vs := d.CreateShader(gpu.VertexShader, prog.VertexSource)
	fs := d.CreateShader(gpu.FragmentShader, prog.FragmentSource)
	defer d.DeleteShader(vs)
	defer d.DeleteShader(fs)

	vsOK, vsLog := d.CompileShader(vs)
	fsOK, fsLog := d.CompileShader(fs)
	prog.Handle = d.CreateProgram(vs, fs)
	linkOK, linkLog := d.LinkProgram(prog.Handle)
	switch {
	case !c.CheckErrors:
		return nil
	case !vsOK:
		return compileError("vertex", prog.Key, prog.VertexSource, vsLog)
	case !fsOK:
		return compileError("fragment", prog.Key, prog.FragmentSource, fsLog)
	case !linkOK:
		return compileError("link", prog.Key, "", linkLog)
	}
	return nil
}

// Release drops one use of p and deletes it when unused.
func (c *Cache) Release(p *Program) {
	if p == nil || p.UsedTimes <= 0 {
		return
	}
	p.UsedTimes--
	if p.UsedTimes > 0 {
		return
	}
	if c.programs[p.Key] == p {
		delete(c.programs, p.Key)
	}
	c.deleteProgram(p.Handle)
}

func (c *Cache) deleteProgram(h gpu.Program) {
	c.device.DeleteProgram(h)
	if c.OnDelete != nil {
		c.OnDelete(h)
	}
}

// Get returns the live program for key.
func (c *Cache) Get(key string) (*Program, bool) {
	p, ok := c.programs[key]
	return p, ok
}

// Programs lists live programs ordered by key.
func (c *Cache) Programs() []*Program {
	out := make([]*Program, 0, len(c.programs))
	for _, p := range c.programs {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Program) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// Reset forgets every program without deleting it. Used after context loss.
func (c *Cache) Reset() {
	clear(c.programs)
}

// Dispose deletes every live program.
func (c *Cache) Dispose() {
	for _, p := range c.Programs() {
		c.deleteProgram(p.Handle)
	}
	c.Reset()
}

func (c *Cache) sources(p Parameters) (vertex, fragment string, err error) {
	if p.Kind == scene.RawShaderMaterial {
		return p.VertexShader, p.FragmentShader, nil
	}
	var tmpl Template
	if p.Kind == scene.ShaderMaterial {
		tmpl = Template{Vertex: p.VertexShader, Fragment: p.FragmentShader}
	} else {
		var ok bool
		if tmpl, ok = TemplateFor(p.Kind); !ok {
			return "", "", &core.UnsupportedFeatureCombinationError{
				Feature: "material kind",
				Detail:  fmt.Sprintf("no shader template for %s", p.Kind),
			}
		}
	}
	defs := defineLines(p, tmpl.Defines)
	return vertexPrefix(p, defs) + tmpl.Vertex, fragmentPrefix(defs) + tmpl.Fragment, nil
}

var toneMappingFuncs = [...]string{
	LinearToneMapping:     "LinearToneMapping",
	ReinhardToneMapping:   "ReinhardToneMapping",
	CineonToneMapping:     "CineonToneMapping",
	ACESFilmicToneMapping: "ACESFilmicToneMapping",
	AgXToneMapping:        "AgXToneMapping",
	NeutralToneMapping:    "NeutralToneMapping",
}

var shadowTypeDefines = [...]string{
	lights.BasicShadow:   "SHADOWMAP_TYPE_BASIC",
	lights.PCFShadow:     "SHADOWMAP_TYPE_PCF",
	lights.PCFSoftShadow: "SHADOWMAP_TYPE_PCF_SOFT",
	lights.VSMShadow:     "SHADOWMAP_TYPE_VSM",
}

// defineLines turns p into #define lines shared by both stages.
func defineLines(p Parameters, extra []string) string {
	var b strings.Builder
	def := func(name string, on bool) {
		if on {
			b.WriteString("#define " + name + "\n")
		}
	}
	num := func(name string, v int) {
		fmt.Fprintf(&b, "#define %s %d\n", name, v)
	}

	for _, d := range extra {
		def(d, true)
	}
	def("USE_MAP", p.Map)
	def("USE_ALPHAMAP", p.AlphaMap)
	def("USE_NORMALMAP", p.NormalMap)
	def("USE_EMISSIVEMAP", p.EmissiveMap)
	def("USE_ROUGHNESSMAP", p.RoughnessMap)
	def("USE_METALNESSMAP", p.MetalnessMap)
	def("USE_LIGHTMAP", p.LightMap)
	def("USE_AOMAP", p.AOMap)
	def("USE_SPECULARMAP", p.SpecularMap)
	def("USE_GRADIENTMAP", p.GradientMap)
	if p.EnvMap {
		def("USE_ENVMAP", true)
		def("ENVMAP_TYPE_CUBE", p.EnvMapCube)
		def("ENVMAP_TYPE_EQUIREC", !p.EnvMapCube)
		def("ENVMAP_MODE_REFRACTION", p.EnvMapMode == scene.CubeRefractionMapping ||
			p.EnvMapMode == scene.EquirectangularRefractionMapping)
	}

	def("USE_COLOR", p.VertexColors)
	def("USE_COLOR_ALPHA", p.VertexAlphas)
	def("USE_TANGENT", p.VertexTangents)
	if p.Skinning {
		def("USE_SKINNING", true)
		num("MAX_BONES", p.Bones)
	}
	if p.MorphTargets {
		def("USE_MORPHTARGETS", true)
		def("USE_MORPHNORMALS", p.MorphNormals)
		num("MORPHTARGETS_COUNT", p.MorphCount)
	}
	def("USE_INSTANCING", p.Instancing)
	def("USE_INSTANCING_COLOR", p.InstancingColor)

	num("NUM_DIR_LIGHTS", p.Lights.Directional)
	num("NUM_POINT_LIGHTS", p.Lights.Point)
	num("NUM_SPOT_LIGHTS", p.Lights.Spot)
	num("NUM_HEMI_LIGHTS", p.Lights.Hemisphere)
	num("NUM_DIR_LIGHT_SHADOWS", p.Lights.DirectionalShadows)
	num("NUM_POINT_LIGHT_SHADOWS", p.Lights.PointShadows)
	num("NUM_SPOT_LIGHT_SHADOWS", p.Lights.SpotShadows)
	if p.ShadowMap {
		def("USE_SHADOWMAP", true)
		def(shadowTypeDefines[p.ShadowType], true)
	}

	num("NUM_CLIPPING_PLANES", p.ClippingPlanes)
	num("UNION_CLIPPING_PLANES", p.ClippingPlanes-p.ClipIntersection)

	if p.ToneMapping != NoToneMapping {
		def("TONE_MAPPING", true)
		b.WriteString("#define toneMapping(c) " + toneMappingFuncs[p.ToneMapping] + "(c)\n")
	}
	def("OUTPUT_SRGB", p.OutputSRGB)
	def("USE_FOG", p.Fog != NoFog)
	def("FOG_EXP2", p.Fog == Exp2Fog)

	def("FLAT_SHADED", p.FlatShading)
	def("DOUBLE_SIDED", p.DoubleSided)
	def("FLIP_SIDED", p.FlipSided)
	def("USE_ALPHATEST", p.AlphaTest)
	def("PREMULTIPLIED_ALPHA", p.PremultipliedAlpha)
	def("USE_TRANSMISSION", p.Transmission)
	def("DITHERING", p.Dithering)
	def("USE_SIZEATTENUATION", p.SizeAttenuation)
	def("USE_SIZE_ATTRIBUTE", p.SizeAttribute)
	def("DEPTH_PACKING_RGBA", p.DepthPacking == scene.RGBADepthPacking)

	for _, d := range p.Defines {
		name, value, _ := strings.Cut(d, "=")
		if value == "" {
			def(name, true)
		} else {
			b.WriteString("#define " + name + " " + value + "\n")
		}
	}
	return b.String()
}

func vertexPrefix(p Parameters, defines string) string {
	var b strings.Builder
	b.WriteString(glslVersion + "\n")
	b.WriteString(defines)
	b.WriteString(`
uniform mat4 modelMatrix;
uniform mat4 modelViewMatrix;
uniform mat4 projectionMatrix;
uniform mat4 viewMatrix;
uniform mat3 normalMatrix;
uniform vec3 cameraPosition;
uniform bool isOrthographic;

in vec3 position;
in vec3 normal;
in vec2 uv;
#ifdef USE_INSTANCING
in mat4 instanceMatrix;
#endif
#ifdef USE_INSTANCING_COLOR
in vec3 instanceColor;
#endif
#if defined(USE_COLOR_ALPHA)
in vec4 color;
#elif defined(USE_COLOR)
in vec3 color;
#endif
#ifdef USE_TANGENT
in vec4 tangent;
#endif
#ifdef USE_SKINNING
in vec4 skinIndex;
in vec4 skinWeight;
#endif
`)
	if p.MorphTargets {
		b.WriteString(morphChunk(p.MorphCount, p.MorphNormals))
	}
	return b.String()
}

// morphChunk declares one attribute per target and the blend functions. Loops
// are unrolled since attributes cannot be indexed.
func morphChunk(count int, normals bool) string {
	var b strings.Builder
	b.WriteString("uniform float morphTargetBaseInfluence;\n")
	b.WriteString("uniform float morphTargetInfluences[MORPHTARGETS_COUNT];\n")
	for i := range count {
		fmt.Fprintf(&b, "in vec3 morphTarget%d;\n", i)
	}
	b.WriteString("vec3 applyMorph(vec3 p) {\n    p *= morphTargetBaseInfluence;\n")
	for i := range count {
		fmt.Fprintf(&b, "    p += morphTarget%d * morphTargetInfluences[%d];\n", i, i)
	}
	b.WriteString("    return p;\n}\n")
	if normals {
		for i := range count {
			fmt.Fprintf(&b, "in vec3 morphNormal%d;\n", i)
		}
		b.WriteString("vec3 applyMorphNormal(vec3 n) {\n    n *= morphTargetBaseInfluence;\n")
		for i := range count {
			fmt.Fprintf(&b, "    n += morphNormal%d * morphTargetInfluences[%d];\n", i, i)
		}
		b.WriteString("    return n;\n}\n")
	}
	return b.String()
}

func fragmentPrefix(defines string) string {
	return glslVersion + "\n" + defines + `
uniform mat4 viewMatrix;
uniform vec3 cameraPosition;
uniform bool isOrthographic;
out vec4 outColor;
`
}
