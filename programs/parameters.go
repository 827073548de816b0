package programs

import (
	"fmt"
	"hash/fnv"
	"slices"
	"strconv"
	"strings"

	"frame-renderer/lights"
	"frame-renderer/scene"
)

// ToneMapping selects the operator applied before output encoding.
type ToneMapping int

const (
	NoToneMapping ToneMapping = iota
	LinearToneMapping
	ReinhardToneMapping
	CineonToneMapping
	ACESFilmicToneMapping
	AgXToneMapping
	NeutralToneMapping
)

var toneMappingNames = [...]string{"none", "linear", "reinhard", "cineon", "aces", "agx", "neutral"}

func (t ToneMapping) String() string {
	if t >= 0 && int(t) < len(toneMappingNames) {
		return toneMappingNames[t]
	}
	return fmt.Sprintf("ToneMapping(%d)", int(t))
}

func (t ToneMapping) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ToneMapping) UnmarshalText(b []byte) error {
	i := slices.Index(toneMappingNames[:], string(b))
	if i < 0 {
		return fmt.Errorf("unknown tone mapping %q", b)
	}
	*t = ToneMapping(i)
	return nil
}

type FogMode int

const (
	NoFog FogMode = iota
	LinearFog
	Exp2Fog
)

// Context is the per-pass state that feeds program parameters.
type Context struct {
	Fog         *scene.Fog
	Environment *scene.Texture
	ToneMapping ToneMapping
	OutputSRGB  bool
	// ClippingPlanes counts the renderer's global planes.
	ClippingPlanes int
	LocalClipping  bool
	// Transmission is set while rendering the transmission prepass, which
	// stays in linear space.
	Transmission   bool
	ShadowsEnabled bool
	ShadowType     lights.ShadowType
	MaxBones       int
}

// Parameters is the complete feature set a program is compiled for. Equal
// parameters always produce the same key.
type Parameters struct {
	Kind scene.MaterialKind
	// SourceHash is set for custom shader kinds only. The sources themselves
	// are carried for compilation but only the hash enters the key.
	SourceHash     uint64
	VertexShader   string
	FragmentShader string
	Defines        []string

	Map          bool
	AlphaMap     bool
	NormalMap    bool
	EmissiveMap  bool
	RoughnessMap bool
	MetalnessMap bool
	EnvMap       bool
	EnvMapCube   bool
	EnvMapMode   scene.Mapping
	LightMap     bool
	AOMap        bool
	SpecularMap  bool
	GradientMap  bool

	VertexColors   bool
	VertexAlphas   bool
	VertexTangents bool

	Skinning bool
	Bones    int

	MorphTargets bool
	MorphNormals bool
	MorphCount   int

	Instancing      bool
	InstancingColor bool

	Lights        lights.Hash
	ShadowMap     bool
	ShadowType    lights.ShadowType
	ReceiveShadow bool

	ClippingPlanes   int
	ClipIntersection int

	ToneMapping ToneMapping
	OutputSRGB  bool
	Fog         FogMode

	FlatShading        bool
	DoubleSided        bool
	FlipSided          bool
	AlphaTest          bool
	PremultipliedAlpha bool
	Transmission       bool
	Dithering          bool
	SizeAttenuation    bool
	SizeAttribute      bool
	DepthPacking       scene.DepthPacking
}

// Morph targets share the vertex attribute budget with the regular streams.
const (
	maxMorphTargets     = 8
	maxMorphWithNormals = 4
)

func sourceHash(vertex, fragment string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(vertex))
	h.Write([]byte{0})
	h.Write([]byte(fragment))
	return h.Sum64()
}

func sortedDefines(defines map[string]string) []string {
	if len(defines) == 0 {
		return nil
	}
	out := make([]string, 0, len(defines))
	for k, v := range defines {
		if v == "" {
			out = append(out, k)
		} else {
			out = append(out, k+"="+v)
		}
	}
	slices.Sort(out)
	return out
}

// Parameters derives the program features of drawing obj with m under the
// given light setup and pass context.
func (c *Cache) Parameters(m *scene.Material, lh lights.Hash, ctx Context, obj *scene.Node) Parameters {
	p := Parameters{
		Kind:               m.Kind,
		Defines:            sortedDefines(m.Defines),
		Map:                m.Map != nil,
		AlphaMap:           m.AlphaMap != nil,
		NormalMap:          m.NormalMap != nil,
		EmissiveMap:        m.EmissiveMap != nil,
		RoughnessMap:       m.RoughnessMap != nil,
		MetalnessMap:       m.MetalnessMap != nil,
		LightMap:           m.LightMap != nil,
		AOMap:              m.AOMap != nil,
		SpecularMap:        m.SpecularMap != nil,
		GradientMap:        m.GradientMap != nil,
		VertexColors:       m.VertexColors,
		FlatShading:        m.FlatShading,
		DoubleSided:        m.Side == scene.DoubleSide,
		FlipSided:          m.Side == scene.BackSide,
		AlphaTest:          m.AlphaTest > 0,
		PremultipliedAlpha: m.PremultipliedAlpha,
		Transmission:       m.IsTransmissive(),
		Dithering:          m.Dithering,
		SizeAttenuation:    m.Kind == scene.PointsMaterial && m.SizeAttenuation,
		DepthPacking:       m.DepthPacking,
	}
	if m.Kind.Custom() {
		p.SourceHash = sourceHash(m.VertexShader, m.FragmentShader)
		p.VertexShader = m.VertexShader
		p.FragmentShader = m.FragmentShader
	}

	env := m.EnvMap
	if env == nil && (m.Kind == scene.StandardMaterial || m.Kind == scene.PhysicalMaterial) {
		env = ctx.Environment
	}
	if env != nil && m.Kind != scene.DepthMaterial && m.Kind != scene.DistanceMaterial {
		p.EnvMap = true
		p.EnvMapCube = env.IsCube
		p.EnvMapMode = env.Mapping
	}

	if obj != nil && obj.Drawable != nil {
		d := obj.Drawable
		if geo := d.Geometry; geo != nil {
			if c := geo.Attribute("color"); c != nil && m.VertexColors {
				p.VertexAlphas = c.ItemSize == 4
			}
			p.VertexTangents = m.NormalMap != nil && geo.Attribute("tangent") != nil
			if targets := geo.MorphAttributes["position"]; len(targets) > 0 {
				p.MorphTargets = true
				p.MorphCount = len(targets)
				p.MorphNormals = len(geo.MorphAttributes["normal"]) == len(targets) && !m.FlatShading
				if p.MorphNormals {
					p.MorphCount = min(p.MorphCount, maxMorphWithNormals)
				} else {
					p.MorphCount = min(p.MorphCount, maxMorphTargets)
				}
			}
			p.SizeAttribute = m.Kind == scene.PointsMaterial && geo.Attribute("size") != nil
		}
		if d.Skeleton != nil && len(d.Skeleton.Bones) > 0 {
			p.Skinning = true
			p.Bones = len(d.Skeleton.Bones)
			if ctx.MaxBones > 0 {
				p.Bones = min(p.Bones, ctx.MaxBones)
			}
		}
		if d.InstanceCount > 0 && d.InstanceMatrix != nil {
			p.Instancing = true
			p.InstancingColor = d.InstanceColor != nil
		}
		p.ReceiveShadow = obj.ReceiveShadow
	}

	if m.Kind.Lit() {
		p.Lights = lh
		p.ShadowMap = ctx.ShadowsEnabled && p.ReceiveShadow
		if p.ShadowMap {
			p.ShadowType = ctx.ShadowType
		} else {
			p.Lights.DirectionalShadows = 0
			p.Lights.PointShadows = 0
			p.Lights.SpotShadows = 0
		}
	}
	if !p.ShadowMap {
		p.ReceiveShadow = false
	}

	p.ClippingPlanes = ctx.ClippingPlanes
	if ctx.LocalClipping {
		p.ClippingPlanes += len(m.ClippingPlanes)
		if m.ClipIntersection {
			p.ClipIntersection = len(m.ClippingPlanes)
		}
	}

	if m.ToneMapped && !ctx.Transmission {
		p.ToneMapping = ctx.ToneMapping
	}
	p.OutputSRGB = ctx.OutputSRGB && !ctx.Transmission

	if ctx.Fog != nil && m.Fog {
		p.Fog = LinearFog
		if ctx.Fog.Kind == scene.ExpFog {
			p.Fog = Exp2Fog
		}
	}
	return p
}

// Key returns the cache key of p. Only features that change the generated
// source take part in it.
func (c *Cache) Key(p Parameters) string {
	b := func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	}
	i := strconv.Itoa
	parts := []string{
		p.Kind.String(),
		strconv.FormatUint(p.SourceHash, 16),
		strings.Join(p.Defines, ";"),
		b(p.Map), b(p.AlphaMap), b(p.NormalMap), b(p.EmissiveMap), b(p.RoughnessMap), b(p.MetalnessMap),
		b(p.EnvMap), b(p.EnvMapCube), i(int(p.EnvMapMode)),
		b(p.LightMap), b(p.AOMap), b(p.SpecularMap), b(p.GradientMap),
		b(p.VertexColors), b(p.VertexAlphas), b(p.VertexTangents),
		b(p.Skinning), i(p.Bones),
		b(p.MorphTargets), b(p.MorphNormals), i(p.MorphCount),
		b(p.Instancing), b(p.InstancingColor),
		i(p.Lights.Directional), i(p.Lights.Point), i(p.Lights.Spot), i(p.Lights.Hemisphere),
		i(p.Lights.DirectionalShadows), i(p.Lights.PointShadows), i(p.Lights.SpotShadows),
		b(p.ShadowMap), p.ShadowType.String(), b(p.ReceiveShadow),
		i(p.ClippingPlanes), i(p.ClipIntersection),
		p.ToneMapping.String(), b(p.OutputSRGB), i(int(p.Fog)),
		b(p.FlatShading), b(p.DoubleSided), b(p.FlipSided),
		b(p.AlphaTest), b(p.PremultipliedAlpha), b(p.Transmission), b(p.Dithering),
		b(p.SizeAttenuation), b(p.SizeAttribute), i(int(p.DepthPacking)),
	}
	return strings.Join(parts, ",")
}
