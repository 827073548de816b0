package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/gpu/gputest"
	"frame-renderer/lights"
	"frame-renderer/programs"
	"frame-renderer/scene"
)

func newRenderer(t *testing.T, dev *gputest.Device, tweak func(*Options)) *Renderer {
	t.Helper()
	opts := DefaultOptions()
	opts.Width, opts.Height = 200, 100
	opts.Logger = zaptest.NewLogger(t)
	if tweak != nil {
		tweak(&opts)
	}
	r, err := New(dev, opts)
	require.NoError(t, err)
	return r
}

func newCamera() *scene.Camera {
	cam := scene.NewPerspectiveCamera(60, 2, 0.1, 100)
	cam.Node.SetPosition(mgl32.Vec3{0, 0, 5})
	return cam
}

func meshAt(name string, geo *scene.Geometry, m *scene.Material, z float32) *scene.Node {
	n := scene.NewMesh(name, geo, m)
	n.SetPosition(mgl32.Vec3{0, 0, z})
	return n
}

func TestOpaqueDrawnBeforeFartherTransparent(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, nil)

	glass := scene.NewMaterial(scene.BasicMaterial)
	glass.Transparent = true
	glass.Opacity = 0.5

	sc := scene.NewScene()
	sc.Add(
		meshAt("plane", scene.CreateQuad(), glass, -5),
		meshAt("cube", scene.CreateCube(1), scene.NewMaterial(scene.BasicMaterial), 0),
	)
	dev.Reset()
	require.NoError(t, r.Render(sc, newCamera()))

	var draws, blendAt int
	blendAt = -1
	for _, c := range dev.Calls("Enable", "DrawElements") {
		switch {
		case c.Op == "DrawElements":
			draws++
		case c.Args[0] == gpu.Blend && blendAt < 0:
			blendAt = draws
		}
	}
	assert.Equal(t, 2, draws)
	assert.Equal(t, 1, blendAt, "blending must switch on between the cube and the plane")
	assert.Equal(t, Idle, r.Phase())
	assert.Equal(t, 2, r.Info().Render.Calls)
	assert.Equal(t, 1, r.Info().Render.Frame)
}

func TestContextLossAndRestore(t *testing.T) {
	dev := gputest.NewDefault()
	var lost, restored int
	r := newRenderer(t, dev, func(o *Options) {
		o.OnContextLost = func() { lost++ }
		o.OnContextRestored = func() { restored++ }
	})

	sc := scene.NewScene()
	sc.Add(scene.NewMesh("cube", scene.CreateCube(1), scene.NewMaterial(scene.StandardMaterial)))
	cam := newCamera()
	require.NoError(t, r.Render(sc, cam))
	require.Len(t, r.Programs(), 1)
	before := r.Programs()[0].Handle

	dev.LoseContext()
	dev.Reset()
	require.NoError(t, r.Render(sc, cam))
	assert.True(t, r.ContextLost())
	assert.Equal(t, 1, lost)
	assert.Empty(t, r.Programs())
	assert.Zero(t, dev.Count("DrawElements"))

	require.NoError(t, r.Render(sc, cam))
	assert.Zero(t, dev.Count("DrawElements"), "rendering stays a no-op while the context is lost")

	dev.RestoreContext()
	require.NoError(t, r.Render(sc, cam))
	assert.False(t, r.ContextLost())
	assert.Equal(t, 1, restored)
	require.Len(t, r.Programs(), 1)
	assert.NotEqual(t, before, r.Programs()[0].Handle)
	assert.True(t, dev.LiveProgram(r.Programs()[0].Handle))
	assert.Equal(t, 1, dev.Count("DrawElements"))
}

func TestPartialAttributeWriteUploadsRange(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, nil)

	const vertices = 2500
	geo := scene.NewGeometry("cloud")
	geo.SetAttribute("position", scene.NewFloat32Attribute(make([]float32, 3*vertices), 3))
	color := scene.NewBufferAttribute(make([]byte, 4*vertices), 4, gpu.UnsignedByte)
	color.Normalized = true
	geo.SetAttribute("color", color)
	require.Equal(t, 10000, color.ByteLength())

	node := scene.NewMesh("cloud", geo, scene.NewMaterial(scene.BasicMaterial))
	node.FrustumCulled = false
	sc := scene.NewScene()
	sc.Add(node)
	cam := newCamera()
	require.NoError(t, r.Render(sc, cam))

	dev.Reset()
	color.Write(400, make([]byte, 10))
	require.NoError(t, r.Render(sc, cam))

	subs := dev.Calls("BufferSubData")
	require.Len(t, subs, 1)
	assert.Equal(t, []any{gpu.ArrayBuffer, 400, 10}, subs[0].Args)
	assert.Zero(t, dev.Count("BufferData"))
}

func TestMaterialDisposeReleasesProgram(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, nil)

	m := scene.NewMaterial(scene.PhongMaterial)
	node := scene.NewMesh("cube", scene.CreateCube(1), m)
	sc := scene.NewScene()
	sc.Add(node)
	require.NoError(t, r.Render(sc, newCamera()))
	require.Len(t, r.Programs(), 1)
	handle := r.Programs()[0].Handle

	sc.Remove(node)
	m.Dispose()
	assert.Empty(t, r.Programs())
	assert.False(t, dev.LiveProgram(handle))
	assert.Equal(t, 0, r.Info().Programs)
}

func TestProgramReusedAcrossFrames(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, nil)

	sc := scene.NewScene()
	sc.Add(scene.NewMesh("cube", scene.CreateCube(1), scene.NewMaterial(scene.LambertMaterial)))
	cam := newCamera()
	for range 3 {
		require.NoError(t, r.Render(sc, cam))
	}
	assert.Equal(t, 1, dev.Count("CreateProgram"))
	assert.Equal(t, 3, r.Info().Render.Frame)
	assert.Equal(t, 12, r.Info().Render.Triangles)
}

func TestTransmissionTargetFollowsScale(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, nil)

	glass := scene.NewMaterial(scene.PhysicalMaterial)
	glass.Transmission = 1
	sc := scene.NewScene()
	sc.Add(
		scene.NewMesh("glass", scene.CreateSphere(1, 8, 8), glass),
		meshAt("floor", scene.CreateQuad(), scene.NewMaterial(scene.StandardMaterial), -2),
	)
	assert.Nil(t, r.TransmissionTarget())
	require.NoError(t, r.Render(sc, newCamera()))

	rt := r.TransmissionTarget()
	require.NotNil(t, rt)
	assert.Equal(t, 100, rt.Width)
	assert.Equal(t, 50, rt.Height)
	assert.Equal(t, gpu.RGBA16F, rt.Texture().Format)
	assert.Nil(t, r.RenderTarget(), "the frame's target is restored after the prepass")

	r.SetSize(400, 300)
	require.NoError(t, r.Render(sc, newCamera()))
	assert.Equal(t, 200, rt.Width)
	assert.Equal(t, 150, rt.Height)
}

func TestToneMappingOnlyOnDefaultSurface(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, func(o *Options) {
		o.ToneMapping = programs.ACESFilmicToneMapping
	})

	assert.Equal(t, programs.ACESFilmicToneMapping, r.passContext(nil, nil).ToneMapping)
	assert.True(t, r.passContext(nil, nil).OutputSRGB)

	rt := scene.NewRenderTarget(64, 64, scene.DefaultRenderTargetOptions())
	ctx := r.passContext(nil, rt)
	assert.Equal(t, programs.NoToneMapping, ctx.ToneMapping)
	assert.False(t, ctx.OutputSRGB)
}

func TestReadPixelsAsync(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, nil)
	rect := core.Rect{X: 0, Y: 0, Width: 2, Height: 2}

	rb := r.ReadPixelsAsync(nil, rect)
	data, ok, err := rb.Poll()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
	assert.Equal(t, 1, r.PendingReadbacks())

	reads := dev.Calls("ReadPixels")
	require.Len(t, reads, 1)
	buf := reads[0].Args[2].(gpu.Buffer)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	dev.SetBufferContent(buf, want)
	dev.SignalFences()

	data, ok, err = rb.Poll()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, data)
	assert.Equal(t, 1, dev.Count("DeleteFence"))

	require.NoError(t, r.Render(scene.NewScene(), newCamera()))
	assert.Zero(t, r.PendingReadbacks())
}

func TestReadbackFailsOnContextLoss(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, nil)

	rb := r.ReadPixelsAsync(nil, core.Rect{Width: 4, Height: 4})
	dev.LoseContext()
	require.NoError(t, r.Render(scene.NewScene(), newCamera()))

	_, ok, err := rb.Poll()
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrContextLost)
	assert.Zero(t, r.PendingReadbacks())
}

func TestCompileAsyncWaitsForDriver(t *testing.T) {
	caps := gpu.DefaultCaps()
	caps.ParallelCompile = true
	dev := gputest.New(caps)
	ready := false
	dev.ReadyHook = func(gpu.Program) bool { return ready }
	r := newRenderer(t, dev, nil)

	sc := scene.NewScene()
	sc.Add(scene.NewMesh("cube", scene.CreateCube(1), scene.NewMaterial(scene.StandardMaterial)))
	cam := newCamera()

	h := r.CompileAsync(sc, cam)
	require.NoError(t, h.Err())
	assert.False(t, h.Done())

	dev.Reset()
	require.NoError(t, r.Render(sc, cam))
	assert.Zero(t, dev.Count("DrawElements"), "unfinished programs are skipped")

	ready = true
	assert.True(t, h.Done())
	require.NoError(t, r.Render(sc, cam))
	assert.Equal(t, 1, dev.Count("DrawElements"))
	assert.Equal(t, 1, dev.Count("CreateProgram"))
}

func TestSetRenderTargetScalesMipViewport(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, nil)

	opts := scene.DefaultRenderTargetOptions()
	opts.GenerateMipmaps = true
	rt := scene.NewRenderTarget(64, 32, opts)

	dev.Reset()
	require.NoError(t, r.SetRenderTarget(rt, 0, 1))
	assert.Same(t, rt, r.RenderTarget())
	vps := dev.Calls("Viewport")
	require.NotEmpty(t, vps)
	assert.Equal(t, core.Rect{Width: 32, Height: 16}, vps[len(vps)-1].Args[0])
	attach := dev.Calls("FramebufferTexture2D")
	require.NotEmpty(t, attach)
	assert.Equal(t, 1, attach[len(attach)-1].Args[3])

	require.NoError(t, r.SetRenderTarget(nil, 0, 0))
	vps = dev.Calls("Viewport")
	assert.Equal(t, core.Rect{Width: 200, Height: 100}, vps[len(vps)-1].Args[0])
}

func TestShadowsRenderedWhenEnabled(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, func(o *Options) {
		o.ShadowMap.Enabled = true
		o.ShadowMap.Type = lights.PCFShadow
	})

	sun := scene.NewDirectionalLight(core.ColorWhite, 1)
	sun.SetPosition(mgl32.Vec3{5, 10, 5})
	sun.CastShadow = true
	cube := scene.NewMesh("cube", scene.CreateCube(1), scene.NewMaterial(scene.StandardMaterial))
	cube.CastShadow = true
	floor := scene.NewMesh("floor", scene.CreatePlane(10, 10, 1), scene.NewMaterial(scene.StandardMaterial))
	floor.ReceiveShadow = true
	floor.SetPosition(mgl32.Vec3{0, -1, 0})

	sc := scene.NewScene()
	sc.Add(sun, cube, floor)
	require.NoError(t, r.Render(sc, newCamera()))

	assert.Equal(t, 1, r.ShadowMap().Maps())
	assert.Equal(t, Idle, r.Phase())
	// One depth draw for the caster, then the two lit meshes.
	assert.Equal(t, 3, r.Info().Render.Calls)
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions([]byte(`
width = 800
height = 600
pixel_ratio = 2.0
tone_mapping = "aces"
output_color_space = "linear"
transmission_resolution_scale = 0.25

[shadow_map]
enabled = true
type = "vsm"
auto_update = false
`))
	require.NoError(t, err)
	assert.Equal(t, 800, opts.Width)
	assert.Equal(t, 600, opts.Height)
	assert.Equal(t, float32(2), opts.PixelRatio)
	assert.Equal(t, programs.ACESFilmicToneMapping, opts.ToneMapping)
	assert.Equal(t, Linear, opts.OutputColorSpace)
	assert.Equal(t, float32(0.25), opts.TransmissionResolutionScale)
	assert.Equal(t, ShadowMapOptions{Enabled: true, Type: lights.VSMShadow, AutoUpdate: false}, opts.ShadowMap)
	assert.True(t, opts.SortObjects, "absent keys keep their defaults")
	assert.Equal(t, 64, opts.MaxBones)

	r := newRenderer(t, gputest.NewDefault(), func(o *Options) { *o = opts })
	w, h := r.DrawingBufferSize()
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, h)
}

func TestParseOptionsRejectsBadValues(t *testing.T) {
	for name, doc := range map[string]string{
		"tone mapping":  `tone_mapping = "filmic"`,
		"shadow type":   "[shadow_map]\ntype = \"soft\"",
		"color space":   `output_color_space = "p3"`,
		"pixel ratio":   `pixel_ratio = 0.0`,
		"transmission":  `transmission_resolution_scale = 1.5`,
		"negative size": `width = -1`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOptions([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "opaque", OpaquePass.String())
	assert.Equal(t, "Phase(42)", Phase(42).String())
}

func TestHostSignalledLossWaitsForRestore(t *testing.T) {
	dev := gputest.NewDefault()
	var restored int
	r := newRenderer(t, dev, func(o *Options) {
		o.OnContextRestored = func() { restored++ }
	})
	sc := scene.NewScene()
	sc.Add(scene.NewMesh("cube", scene.CreateCube(1), scene.NewMaterial(scene.BasicMaterial)))
	cam := newCamera()

	r.HandleContextLost()
	dev.Reset()
	for range 2 {
		require.NoError(t, r.Render(sc, cam))
	}
	assert.True(t, r.ContextLost(), "a live device must not end a loss the host reported")
	assert.Zero(t, dev.Count("DrawElements"))
	assert.Zero(t, restored)

	r.HandleContextRestored()
	require.NoError(t, r.Render(sc, cam))
	assert.False(t, r.ContextLost())
	assert.Equal(t, 1, restored)
	assert.Equal(t, 1, dev.Count("DrawElements"))
}

func TestMaterialMapUploadsAndBindsSampler(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, nil)

	m := scene.NewMaterial(scene.BasicMaterial)
	m.Map = scene.NewSolidTexture("red", 255, 0, 0, 255)
	sc := scene.NewScene()
	sc.Add(scene.NewMesh("cube", scene.CreateCube(1), m))
	require.NoError(t, r.Render(sc, newCamera()))

	assert.Equal(t, 1, dev.Count("CreateTexture"))
	uploads := dev.Calls("TexImage2D")
	require.Len(t, uploads, 1)
	assert.Equal(t, []any{gpu.Texture2D, 0, m.Map.Format, 1, 1, 4}, uploads[0].Args)
	assert.Equal(t, 1, r.Info().Memory.Textures)

	require.Len(t, r.Programs(), 1)
	loc := r.Programs()[0].Uniforms().Location("map")
	require.GreaterOrEqual(t, loc, int32(0))
	assert.Contains(t, dev.Calls("Uniform1i"), gputest.Call{Op: "Uniform1i", Args: []any{loc, int32(0)}})
}

func TestDirectionalLightUniformsUploaded(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, nil)

	sun := scene.NewDirectionalLight(core.ColorWhite, 1)
	sun.SetPosition(mgl32.Vec3{1, 2, 3})
	sc := scene.NewScene()
	sc.Add(sun, scene.NewMesh("cube", scene.CreateCube(1), scene.NewMaterial(scene.StandardMaterial)))
	require.NoError(t, r.Render(sc, newCamera()))

	require.Len(t, r.Programs(), 1)
	u := r.Programs()[0].Uniforms()
	for _, name := range []string{"directionalLights[0].color", "directionalLights[0].direction"} {
		loc := u.Location(name)
		require.GreaterOrEqual(t, loc, int32(0), name)
		var uploaded bool
		for _, c := range dev.Calls("Uniform3f") {
			uploaded = uploaded || c.Args[0] == loc
		}
		assert.True(t, uploaded, "%s not uploaded", name)
	}
	assert.Equal(t, 1, dev.Count("DrawElements"))
}

func TestDisposedTextureNameReusedIsRebound(t *testing.T) {
	dev := gputest.NewDefault()
	dev.RecycleNames = true
	r := newRenderer(t, dev, nil)

	first := scene.NewSolidTexture("first", 255, 0, 0, 255)
	m := scene.NewMaterial(scene.BasicMaterial)
	m.Map = first
	sc := scene.NewScene()
	sc.Add(scene.NewMesh("cube", scene.CreateCube(1), m))
	cam := newCamera()
	require.NoError(t, r.Render(sc, cam))
	created := dev.Calls("CreateTexture")
	require.Len(t, created, 1)
	name := created[0].Args[0]

	first.Dispose()
	m.Map = scene.NewSolidTexture("second", 0, 255, 0, 255)
	dev.Reset()
	require.NoError(t, r.Render(sc, cam))

	created = dev.Calls("CreateTexture")
	require.Len(t, created, 1)
	require.Equal(t, name, created[0].Args[0], "the device hands the freed name out again")
	calls := dev.Calls("BindTexture", "TexImage2D")
	require.Len(t, calls, 2)
	assert.Equal(t, gputest.Call{Op: "BindTexture", Args: []any{gpu.Texture2D, name}}, calls[0])
	assert.Equal(t, "TexImage2D", calls[1].Op)
}

func TestInstanceStreamsFreedOnDrawableDispose(t *testing.T) {
	dev := gputest.NewDefault()
	r := newRenderer(t, dev, nil)

	node := scene.NewInstancedMesh("crowd", scene.CreateCube(1), scene.NewMaterial(scene.BasicMaterial), 4)
	d := node.Drawable
	d.InstanceColor = scene.NewFloat32Attribute(make([]float32, 3*4), 3)
	d.InstanceColor.Divisor = 1
	sc := scene.NewScene()
	sc.Add(node)
	cam := newCamera()
	for range 2 {
		require.NoError(t, r.Render(sc, cam))
	}
	rec, ok := r.resources.Attributes.Get(d.InstanceMatrix)
	require.True(t, ok)
	assert.Equal(t, 1, rec.Refs())
	buffers := r.Info().Memory.Buffers

	oldColor, _ := r.resources.Attributes.Get(d.InstanceColor)
	d.InstanceColor = scene.NewFloat32Attribute(make([]float32, 3*4), 3)
	d.InstanceColor.Divisor = 1
	dev.Reset()
	require.NoError(t, r.Render(sc, cam))
	deletes := dev.Calls("DeleteBuffer")
	require.Len(t, deletes, 1)
	assert.Equal(t, oldColor.Buffer, deletes[0].Args[0])
	assert.Equal(t, buffers, r.Info().Memory.Buffers)

	sc.Remove(node)
	dev.Reset()
	d.Dispose()
	assert.Equal(t, 2, dev.Count("DeleteBuffer"))
	assert.Equal(t, buffers-2, r.Info().Memory.Buffers)
	assert.Empty(t, r.instances)

	_, ok = r.resources.Attributes.Get(d.InstanceMatrix)
	assert.False(t, ok)
}
