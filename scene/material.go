package scene

import (
	"fmt"
	"maps"

	"frame-renderer/core"
	"frame-renderer/gpu"
)

// MaterialKind is the closed set of shading models. Each kind maps to one base
// shader template in the program cache.
type MaterialKind int

const (
	BasicMaterial MaterialKind = iota
	LambertMaterial
	PhongMaterial
	StandardMaterial
	PhysicalMaterial
	ToonMaterial
	NormalMaterial
	LineMaterial
	PointsMaterial
	SpriteMaterial
	ShadowMaterial
	DepthMaterial
	DistanceMaterial
	ShaderMaterial
	RawShaderMaterial
)

var materialKindNames = [...]string{
	"basic", "lambert", "phong", "standard", "physical", "toon", "normal",
	"line", "points", "sprite", "shadow", "depth", "distance", "shader", "raw",
}

func (k MaterialKind) String() string {
	if k >= 0 && int(k) < len(materialKindNames) {
		return materialKindNames[k]
	}
	return fmt.Sprintf("MaterialKind(%d)", int(k))
}

// Lit reports whether the kind reacts to scene lights.
func (k MaterialKind) Lit() bool {
	switch k {
	case LambertMaterial, PhongMaterial, StandardMaterial, PhysicalMaterial, ToonMaterial, ShadowMaterial:
		return true
	}
	return false
}

// Custom reports whether the shader source comes from the material itself.
func (k MaterialKind) Custom() bool {
	return k == ShaderMaterial || k == RawShaderMaterial
}

type Side int

const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

// Blending selects a blend preset. CustomBlending uses the material's factors.
type Blending int

const (
	NoBlending Blending = iota
	NormalBlending
	AdditiveBlending
	SubtractiveBlending
	MultiplyBlending
	CustomBlending
)

// DepthPacking selects how depth kinds encode depth into color.
type DepthPacking int

const (
	BasicDepthPacking DepthPacking = iota
	RGBADepthPacking
)

// Material is a flat property bag. Version must be bumped through NeedsUpdate
// whenever a property that affects the compiled program changes (map presence,
// transparency, kind, defines, shader source, ...). Purely numeric values such
// as Opacity or Color are read every frame and need no bump.
type Material struct {
	Disposable

	ID      uint64
	Name    string
	Kind    MaterialKind
	Visible bool

	Color       core.Color
	Opacity     float32
	Transparent bool
	AlphaTest   float32

	Map               *Texture
	AlphaMap          *Texture
	NormalMap         *Texture
	NormalScale       float32
	EmissiveMap       *Texture
	RoughnessMap      *Texture
	MetalnessMap      *Texture
	AOMap             *Texture
	AOIntensity       float32
	LightMap          *Texture
	LightMapIntensity float32
	SpecularMap       *Texture
	GradientMap       *Texture
	EnvMap            *Texture
	EnvMapIntensity   float32

	Emissive           core.Color
	EmissiveIntensity  float32
	Specular           core.Color
	Shininess          float32
	Roughness          float32
	Metalness          float32
	Clearcoat          float32
	ClearcoatRoughness float32

	Transmission        float32
	Thickness           float32
	IOR                 float32
	AttenuationColor    core.Color
	AttenuationDistance float32

	Size            float32
	SizeAttenuation bool
	Rotation        float32
	LineWidth       float32
	DepthPacking    DepthPacking

	VertexColors bool
	FlatShading  bool
	Wireframe    bool
	Fog          bool
	ToneMapped   bool
	Dithering    bool

	Side               Side
	Blending           Blending
	BlendSrc           gpu.BlendFactor
	BlendDst           gpu.BlendFactor
	BlendEquation      gpu.BlendEquation
	BlendSrcAlpha      gpu.BlendFactor
	BlendDstAlpha      gpu.BlendFactor
	BlendEquationAlpha gpu.BlendEquation
	BlendColor         core.Color
	PremultipliedAlpha bool

	DepthTest  bool
	DepthWrite bool
	DepthFunc  gpu.CompareFunc
	ColorWrite bool

	StencilWrite     bool
	StencilWriteMask uint32
	StencilFunc      gpu.CompareFunc
	StencilRef       int32
	StencilFuncMask  uint32
	StencilFail      gpu.StencilOp
	StencilZFail     gpu.StencilOp
	StencilZPass     gpu.StencilOp

	PolygonOffset       bool
	PolygonOffsetFactor float32
	PolygonOffsetUnits  float32
	AlphaToCoverage     bool

	ClippingPlanes   []Plane
	ClipIntersection bool
	ClipShadows      bool

	// ShaderMaterial / RawShaderMaterial sources and inputs.
	VertexShader   string
	FragmentShader string
	Uniforms       map[string]any
	Defines        map[string]string

	version uint64
}

// NewMaterial returns a material of the given kind with default properties.
func NewMaterial(kind MaterialKind) *Material {
	return &Material{
		ID:                core.NextID(),
		Kind:              kind,
		Visible:           true,
		Color:             core.ColorWhite,
		Opacity:           1,
		NormalScale:       1,
		AOIntensity:       1,
		LightMapIntensity: 1,
		EnvMapIntensity:   1,
		Emissive:          core.ColorBlack,
		EmissiveIntensity: 1,
		Specular:          core.Color{R: 0.067, G: 0.067, B: 0.067, A: 1},
		Shininess:         30,
		Roughness:         1,
		Metalness:         0,
		Thickness:         0,
		IOR:               1.5,
		AttenuationColor:  core.ColorWhite,
		Size:              1,
		SizeAttenuation:   true,
		LineWidth:         1,
		Fog:               true,
		ToneMapped:        true,
		Side:              FrontSide,
		Blending:          NormalBlending,
		BlendSrc:          gpu.FactorSrcAlpha,
		BlendDst:          gpu.FactorOneMinusSrcAlpha,
		BlendEquation:     gpu.FuncAdd,
		BlendColor:        core.Color{},
		DepthTest:         true,
		DepthWrite:        true,
		DepthFunc:         gpu.LessEqual,
		ColorWrite:        true,
		StencilWriteMask:  0xff,
		StencilFunc:       gpu.Always,
		StencilFuncMask:   0xff,
		StencilFail:       gpu.Keep,
		StencilZFail:      gpu.Keep,
		StencilZPass:      gpu.Keep,
		Uniforms:          make(map[string]any),
		Defines:           make(map[string]string),
		version:           1,
	}
}

// NewShaderMaterial returns a ShaderMaterial using custom sources. Raw selects
// RawShaderMaterial, whose sources receive no generated prefix.
func NewShaderMaterial(vertex, fragment string, raw bool) *Material {
	kind := ShaderMaterial
	if raw {
		kind = RawShaderMaterial
	}
	m := NewMaterial(kind)
	m.VertexShader = vertex
	m.FragmentShader = fragment
	return m
}

func (m *Material) Version() uint64 { return m.version }

// NeedsUpdate forces the renderer to re-derive the material's program.
func (m *Material) NeedsUpdate() { m.version++ }

// IsTransmissive reports whether the material samples the scene rendered behind it.
func (m *Material) IsTransmissive() bool {
	return m.Kind == PhysicalMaterial && m.Transmission > 0
}

// Clone returns a copy with a new identity and no dispose listeners.
func (m *Material) Clone() *Material {
	c := *m
	c.Disposable = Disposable{}
	c.ID = core.NextID()
	c.version = 1
	c.ClippingPlanes = append([]Plane(nil), m.ClippingPlanes...)
	c.Uniforms = maps.Clone(m.Uniforms)
	c.Defines = maps.Clone(m.Defines)
	return &c
}

// Dispose notifies the renderer that the material's program reference can be released.
func (m *Material) Dispose() {
	m.dispatchDispose()
}
