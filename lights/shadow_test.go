package lights

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-renderer/core"
	"frame-renderer/scene"
)

type recordingDrawer struct {
	passes     []DepthPass
	fullscreen []*scene.RenderTarget
}

func (r *recordingDrawer) DrawDepth(pass DepthPass) {
	r.passes = append(r.passes, pass)
}

func (r *recordingDrawer) DrawFullscreen(target *scene.RenderTarget, m *scene.Material) {
	r.fullscreen = append(r.fullscreen, target)
}

func newCaster(pos mgl32.Vec3) *scene.Node {
	n := scene.NewMesh("caster", scene.CreateCube(1), scene.NewMaterial(scene.StandardMaterial))
	n.CastShadow = true
	n.SetPosition(pos)
	n.UpdateMatrixWorld(false)
	return n
}

func TestFitDirectionalContainsCasters(t *testing.T) {
	light := scene.NewDirectionalLight(core.ColorWhite, 1)
	light.SetPosition(mgl32.Vec3{5, 10, 5})
	light.UpdateMatrixWorld(false)

	casters := []*scene.Node{
		newCaster(mgl32.Vec3{3, 0, 0}),
		newCaster(mgl32.Vec3{-2, 1, 4}),
		newCaster(mgl32.Vec3{0, -3, -6}),
	}
	view, proj := FitDirectional(light, casters, 0.5, 500)
	vp := proj.Mul4(view)

	for _, c := range casters {
		box := c.Drawable.Geometry.BoundingBox().ApplyMatrix4(c.WorldMatrix())
		for _, corner := range box.Corners() {
			ndc := mgl32.TransformCoordinate(corner, vp)
			for axis := 0; axis < 3; axis++ {
				assert.LessOrEqual(t, ndc[axis], float32(1.0001))
				assert.GreaterOrEqual(t, ndc[axis], float32(-1.0001))
			}
		}
	}
}

func shadowScene(light *scene.Node) (*State, *scene.Camera) {
	cam := scene.NewPerspectiveCamera(60, 1, 0.1, 100)
	cam.Node.UpdateMatrixWorld(false)
	light.CastShadow = true
	light.UpdateMatrixWorld(false)
	st := NewState(DefaultLimits(), nil)
	st.ShadowsEnabled = true
	st.Setup([]*scene.Node{light}, cam)
	return st, cam
}

func TestDirectionalShadowRecord(t *testing.T) {
	light := scene.NewDirectionalLight(core.ColorWhite, 1)
	light.SetPosition(mgl32.Vec3{0, 10, 0})
	caster := newCaster(mgl32.Vec3{})
	st, cam := shadowScene(light)

	m := NewShadowMapper(PCFShadow, nil)
	d := &recordingDrawer{}
	m.Render([]*scene.Node{caster}, st, cam, d)

	require.Len(t, d.passes, 1)
	sh := st.DirectionalShadows[0]
	require.NotNil(t, sh.Map)
	assert.NotNil(t, sh.Map.DepthTexture)
	assert.Same(t, sh.Map, d.passes[0].Target)

	// The caster's center lands inside the [0,1] shadow texture.
	p := mgl32.TransformCoordinate(mgl32.Vec3{}, sh.Matrix)
	for axis := 0; axis < 3; axis++ {
		assert.Greater(t, p[axis], float32(0))
		assert.Less(t, p[axis], float32(1))
	}
	assert.Equal(t, 1, m.Maps())
}

func TestPointShadowRendersSixFaces(t *testing.T) {
	light := scene.NewPointLight(core.ColorWhite, 1, 20, 2)
	caster := newCaster(mgl32.Vec3{2, 0, 0})
	st, cam := shadowScene(light)

	m := NewShadowMapper(PCFShadow, nil)
	d := &recordingDrawer{}
	m.Render([]*scene.Node{caster}, st, cam, d)

	require.Len(t, d.passes, 6)
	target := st.PointShadows[0].Map
	assert.Equal(t, 4096, target.Width)
	assert.Equal(t, 2048, target.Height)

	seen := map[core.Rect]bool{}
	for i, p := range d.passes {
		assert.Equal(t, i == 0, p.Clear)
		assert.Equal(t, scene.DistanceMaterial, p.Material.Kind)
		seen[p.Viewport] = true
	}
	assert.Len(t, seen, 6)
	assert.Equal(t, float32(20), st.PointShadows[0].Far)
}

func TestVSMBlursTwice(t *testing.T) {
	light := scene.NewSpotLight(core.ColorWhite, 1, 30, 0.6, 0.1, 2)
	light.SetPosition(mgl32.Vec3{0, 5, 0})
	caster := newCaster(mgl32.Vec3{})
	st, cam := shadowScene(light)

	m := NewShadowMapper(VSMShadow, nil)
	d := &recordingDrawer{}
	m.Render([]*scene.Node{caster}, st, cam, d)

	require.Len(t, d.passes, 1)
	require.Len(t, d.fullscreen, 2)
	assert.Same(t, st.SpotShadows[0].Map, d.fullscreen[1])
	assert.NotSame(t, d.fullscreen[0], d.fullscreen[1])
}

func TestShadowAutoUpdateOff(t *testing.T) {
	light := scene.NewDirectionalLight(core.ColorWhite, 1)
	caster := newCaster(mgl32.Vec3{})
	st, cam := shadowScene(light)

	m := NewShadowMapper(BasicShadow, nil)
	m.AutoUpdate = false
	d := &recordingDrawer{}
	m.Render([]*scene.Node{caster}, st, cam, d)
	m.Render([]*scene.Node{caster}, st, cam, d)
	assert.Len(t, d.passes, 1, "the first render always draws")

	m.NeedsUpdate = true
	m.Render([]*scene.Node{caster}, st, cam, d)
	assert.Len(t, d.passes, 2)
}

func TestUnusedShadowMapsAreDisposed(t *testing.T) {
	light := scene.NewDirectionalLight(core.ColorWhite, 1)
	caster := newCaster(mgl32.Vec3{})
	st, cam := shadowScene(light)

	m := NewShadowMapper(BasicShadow, nil)
	d := &recordingDrawer{}
	m.Render([]*scene.Node{caster}, st, cam, d)
	target := st.DirectionalShadows[0].Map
	disposed := false
	target.OnDispose(t, func() { disposed = true })

	st.ShadowsEnabled = false
	st.Setup([]*scene.Node{light}, cam)
	m.Render([]*scene.Node{caster}, st, cam, d)

	assert.True(t, disposed)
	assert.Zero(t, m.Maps())
}
