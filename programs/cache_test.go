package programs

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/gpu/gputest"
	"frame-renderer/lights"
	"frame-renderer/scene"
)

func newCache() (*Cache, *gputest.Device) {
	dev := gputest.NewDefault()
	return New(dev, nil), dev
}

func acquire(t *testing.T, c *Cache, m *scene.Material, lh lights.Hash, ctx Context, obj *scene.Node) *Program {
	t.Helper()
	p := c.Parameters(m, lh, ctx, obj)
	prog, err := c.Acquire(p, c.Key(p))
	require.NoError(t, err)
	return prog
}

func TestIdenticalFeaturesShareProgram(t *testing.T) {
	c, dev := newCache()

	red := scene.NewMaterial(scene.StandardMaterial)
	red.Color = core.Color{R: 1, A: 1}
	red.Roughness = 0.2
	blue := scene.NewMaterial(scene.StandardMaterial)
	blue.Color = core.Color{B: 1, A: 1}
	blue.Metalness = 1

	a := acquire(t, c, red, lights.Hash{}, Context{}, nil)
	b := acquire(t, c, blue, lights.Hash{}, Context{}, nil)

	assert.Same(t, a, b)
	assert.Equal(t, 2, a.UsedTimes)
	assert.Equal(t, 1, dev.Count("CreateProgram"))
	assert.Len(t, c.Programs(), 1)
}

func TestOpacityOnlyDifferenceSharesProgram(t *testing.T) {
	c, _ := newCache()

	a := scene.NewMaterial(scene.PhongMaterial)
	a.Transparent = true
	a.Opacity = 0.3
	b := scene.NewMaterial(scene.PhongMaterial)
	b.Transparent = true
	b.Opacity = 0.8

	pa := c.Parameters(a, lights.Hash{}, Context{}, nil)
	pb := c.Parameters(b, lights.Hash{}, Context{}, nil)
	assert.Equal(t, c.Key(pa), c.Key(pb))
	assert.Same(t, acquire(t, c, a, lights.Hash{}, Context{}, nil), acquire(t, c, b, lights.Hash{}, Context{}, nil))
}

func TestFeatureDifferenceCompilesNewProgram(t *testing.T) {
	c, dev := newCache()

	plain := scene.NewMaterial(scene.BasicMaterial)
	mapped := scene.NewMaterial(scene.BasicMaterial)
	mapped.Map = scene.NewSolidTexture("white", 255, 255, 255, 255)

	a := acquire(t, c, plain, lights.Hash{}, Context{}, nil)
	b := acquire(t, c, mapped, lights.Hash{}, Context{}, nil)

	assert.NotSame(t, a, b)
	assert.NotEqual(t, a.Handle, b.Handle)
	assert.Equal(t, 2, dev.Count("CreateProgram"))
	assert.Contains(t, b.FragmentSource, "#define USE_MAP\n")
	assert.NotContains(t, a.FragmentSource, "#define USE_MAP\n")
}

func TestLightHashChangeForcesNewProgram(t *testing.T) {
	c, _ := newCache()
	lit := scene.NewMaterial(scene.LambertMaterial)
	unlit := scene.NewMaterial(scene.BasicMaterial)

	one := lights.Hash{Directional: 1}
	two := lights.Hash{Directional: 2}

	assert.NotEqual(t,
		c.Key(c.Parameters(lit, one, Context{}, nil)),
		c.Key(c.Parameters(lit, two, Context{}, nil)))
	assert.Equal(t,
		c.Key(c.Parameters(unlit, one, Context{}, nil)),
		c.Key(c.Parameters(unlit, two, Context{}, nil)))

	prog := acquire(t, c, lit, two, Context{}, nil)
	assert.Contains(t, prog.FragmentSource, "#define NUM_DIR_LIGHTS 2\n")
}

func TestShadowCountsRequireReceiver(t *testing.T) {
	c, _ := newCache()
	m := scene.NewMaterial(scene.StandardMaterial)
	lh := lights.Hash{Directional: 1, DirectionalShadows: 1}
	ctx := Context{ShadowsEnabled: true, ShadowType: lights.PCFShadow}

	node := scene.NewMesh("mesh", scene.CreateCube(1), m)
	p := c.Parameters(m, lh, ctx, node)
	assert.False(t, p.ShadowMap)
	assert.Zero(t, p.Lights.DirectionalShadows)

	node.ReceiveShadow = true
	p = c.Parameters(m, lh, ctx, node)
	assert.True(t, p.ShadowMap)
	assert.Equal(t, 1, p.Lights.DirectionalShadows)

	prog, err := c.Acquire(p, c.Key(p))
	require.NoError(t, err)
	assert.Contains(t, prog.FragmentSource, "#define SHADOWMAP_TYPE_PCF\n")
	assert.Contains(t, prog.VertexSource, "#define USE_SHADOWMAP\n")
}

func TestReleaseEvictsAtZero(t *testing.T) {
	c, dev := newCache()
	m := scene.NewMaterial(scene.BasicMaterial)

	a := acquire(t, c, m, lights.Hash{}, Context{}, nil)
	acquire(t, c, m, lights.Hash{}, Context{}, nil)

	c.Release(a)
	assert.Equal(t, 1, a.UsedTimes)
	assert.Zero(t, dev.Count("DeleteProgram"))
	assert.Len(t, c.Programs(), 1)

	c.Release(a)
	assert.Equal(t, 1, dev.Count("DeleteProgram"))
	assert.Empty(t, c.Programs())
	assert.False(t, dev.LiveProgram(a.Handle))

	c.Release(a)
	assert.Equal(t, 1, dev.Count("DeleteProgram"))

	b := acquire(t, c, m, lights.Hash{}, Context{}, nil)
	assert.NotEqual(t, a.Handle, b.Handle)
}

func TestShadersDeletedAfterLink(t *testing.T) {
	c, dev := newCache()
	acquire(t, c, scene.NewMaterial(scene.NormalMaterial), lights.Hash{}, Context{}, nil)

	assert.Equal(t, 2, dev.Count("CreateShader"))
	assert.Equal(t, 2, dev.Count("DeleteShader"))
	assert.Equal(t, 1, dev.Count("LinkProgram"))
}

const brokenFragment = `void main() {
    outColor = vec4(1.0);
#error broken
}`

func TestCompileErrorIsReportedWithExcerpt(t *testing.T) {
	c, _ := newCache()
	var reported []*core.ShaderCompileError
	c.OnError = func(e *core.ShaderCompileError) { reported = append(reported, e) }

	m := scene.NewShaderMaterial("void main() { gl_Position = vec4(position, 1.0); }", brokenFragment, false)
	prog := acquire(t, c, m, lights.Hash{}, Context{}, nil)

	require.NotNil(t, prog)
	require.NotNil(t, prog.Diagnostics)
	require.Len(t, reported, 1)
	diag := reported[0]
	assert.Equal(t, "fragment", diag.Stage)
	assert.Positive(t, diag.Line)

	lines := strings.Split(prog.FragmentSource, "\n")
	assert.Equal(t, "#error broken", lines[diag.Line-1])
	assert.Contains(t, diag.Context, "> "+strconv.Itoa(diag.Line)+": #error broken")
	assert.True(t, errors.Is(diag, core.ErrShaderCompile))
	assert.Len(t, c.Programs(), 1)
}

func TestFatalModeReturnsError(t *testing.T) {
	c, _ := newCache()
	c.FatalErrors = true

	m := scene.NewShaderMaterial("void main() {}", brokenFragment, false)
	p := c.Parameters(m, lights.Hash{}, Context{}, nil)
	prog, err := c.Acquire(p, c.Key(p))

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrShaderCompile)
	var compileErr *core.ShaderCompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "fragment", compileErr.Stage)
	assert.NotNil(t, prog)
}

func TestLinkErrorHasNoExcerpt(t *testing.T) {
	c, dev := newCache()
	dev.LinkHook = func(gpu.Program) (bool, string) { return false, "varying mismatch" }

	prog := acquire(t, c, scene.NewMaterial(scene.BasicMaterial), lights.Hash{}, Context{}, nil)
	require.NotNil(t, prog.Diagnostics)
	assert.Equal(t, "link", prog.Diagnostics.Stage)
	assert.Empty(t, prog.Diagnostics.Context)
	assert.Equal(t, "varying mismatch", prog.Diagnostics.Log)
}

func TestRawShaderSourceIsUntouched(t *testing.T) {
	c, _ := newCache()
	vs := "#version 410 core\nin vec3 position;\nvoid main() { gl_Position = vec4(position, 1.0); }\n"
	fs := "#version 410 core\nout vec4 color;\nvoid main() { color = vec4(1.0); }\n"

	raw := acquire(t, c, scene.NewShaderMaterial(vs, fs, true), lights.Hash{}, Context{}, nil)
	assert.Equal(t, vs, raw.VertexSource)
	assert.Equal(t, fs, raw.FragmentSource)

	other := scene.NewShaderMaterial(vs, fs+"\n", true)
	p1 := c.Parameters(scene.NewShaderMaterial(vs, fs, true), lights.Hash{}, Context{}, nil)
	p2 := c.Parameters(other, lights.Hash{}, Context{}, nil)
	assert.NotEqual(t, c.Key(p1), c.Key(p2))
}

func TestCustomDefinesAreSorted(t *testing.T) {
	c, _ := newCache()
	m := scene.NewShaderMaterial("void main() {}", "void main() {}", false)
	m.Defines["B_FLAG"] = ""
	m.Defines["A_COUNT"] = "3"

	p := c.Parameters(m, lights.Hash{}, Context{}, nil)
	assert.Equal(t, []string{"A_COUNT=3", "B_FLAG"}, p.Defines)

	prog, err := c.Acquire(p, c.Key(p))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prog.VertexSource, "#version 410 core\n"))
	assert.Contains(t, prog.FragmentSource, "#define A_COUNT 3\n#define B_FLAG\n")
}

func TestContextFeatures(t *testing.T) {
	c, _ := newCache()
	m := scene.NewMaterial(scene.StandardMaterial)
	ctx := Context{
		Fog:            &scene.Fog{Kind: scene.ExpFog},
		ToneMapping:    ACESFilmicToneMapping,
		OutputSRGB:     true,
		ClippingPlanes: 2,
	}
	p := c.Parameters(m, lights.Hash{}, ctx, nil)
	assert.Equal(t, Exp2Fog, p.Fog)
	assert.Equal(t, ACESFilmicToneMapping, p.ToneMapping)
	assert.True(t, p.OutputSRGB)
	assert.Equal(t, 2, p.ClippingPlanes)

	m.ToneMapped = false
	m.Fog = false
	p = c.Parameters(m, lights.Hash{}, ctx, nil)
	assert.Equal(t, NoFog, p.Fog)
	assert.Equal(t, NoToneMapping, p.ToneMapping)

	ctx.Transmission = true
	p = c.Parameters(m, lights.Hash{}, ctx, nil)
	assert.False(t, p.OutputSRGB)
}

func TestUnknownKindIsRejected(t *testing.T) {
	c, _ := newCache()
	_, err := c.Acquire(Parameters{Kind: scene.MaterialKind(99)}, "bogus")
	assert.ErrorIs(t, err, core.ErrUnsupportedFeatureCombination)
	assert.Empty(t, c.Programs())
}

func TestReadyPollsParallelCompile(t *testing.T) {
	caps := gpu.DefaultCaps()
	caps.ParallelCompile = true
	dev := gputest.New(caps)
	c := New(dev, nil)

	done := false
	dev.ReadyHook = func(gpu.Program) bool { return done }

	prog := acquire(t, c, scene.NewMaterial(scene.BasicMaterial), lights.Hash{}, Context{}, nil)
	assert.False(t, prog.Ready())
	done = true
	assert.True(t, prog.Ready())
}

func TestResetForgetsWithoutDeleting(t *testing.T) {
	c, dev := newCache()
	acquire(t, c, scene.NewMaterial(scene.BasicMaterial), lights.Hash{}, Context{}, nil)

	c.Reset()
	assert.Empty(t, c.Programs())
	assert.Zero(t, dev.Count("DeleteProgram"))
}

func TestToneMappingText(t *testing.T) {
	var tm ToneMapping
	require.NoError(t, tm.UnmarshalText([]byte("agx")))
	assert.Equal(t, AgXToneMapping, tm)
	assert.Error(t, tm.UnmarshalText([]byte("filmic")))

	b, err := NeutralToneMapping.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "neutral", string(b))
}
