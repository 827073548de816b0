package lights

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-renderer/core"
	"frame-renderer/scene"
)

func updated(nodes ...*scene.Node) []*scene.Node {
	for _, n := range nodes {
		n.UpdateMatrixWorld(false)
	}
	return nodes
}

func TestSetupGroupsLights(t *testing.T) {
	cam := scene.NewPerspectiveCamera(60, 1, 0.1, 100)
	updated(cam.Node)

	amb1 := scene.NewAmbientLight(core.ColorWhite, 0.25)
	amb2 := scene.NewAmbientLight(core.ColorRed, 0.5)
	dir := scene.NewDirectionalLight(core.ColorWhite, 2)
	point := scene.NewPointLight(core.ColorWhite, 1, 10, 2)
	point.SetPosition(mgl32.Vec3{1, 2, 3})
	hemi := scene.NewHemisphereLight(core.ColorBlue, core.ColorGreen, 1)

	st := NewState(DefaultLimits(), nil)
	st.Setup(updated(amb1, amb2, dir, point, hemi), cam)

	assert.InDeltaSlice(t, []float32{0.75, 0.25, 0.25}, st.Ambient[:], 1e-6)
	require.Len(t, st.Directional, 1)
	assert.InDeltaSlice(t, []float32{0, 1, 0}, st.Directional[0].Direction[:], 1e-6)
	assert.InDeltaSlice(t, []float32{2, 2, 2}, st.Directional[0].Color[:], 1e-6)
	require.Len(t, st.Point, 1)
	assert.InDeltaSlice(t, []float32{1, 2, 3}, st.Point[0].Position[:], 1e-6)
	assert.Len(t, st.Hemisphere, 1)
	assert.Equal(t, Hash{Directional: 1, Point: 1, Hemisphere: 1}, st.Hash)
}

func TestSetupPositionsAreViewSpace(t *testing.T) {
	cam := scene.NewPerspectiveCamera(60, 1, 0.1, 100)
	cam.Node.SetPosition(mgl32.Vec3{0, 0, 5})
	updated(cam.Node)

	point := scene.NewPointLight(core.ColorWhite, 1, 0, 2)
	st := NewState(DefaultLimits(), nil)
	st.Setup(updated(point), cam)

	require.Len(t, st.Point, 1)
	assert.InDeltaSlice(t, []float32{0, 0, -5}, st.Point[0].Position[:], 1e-5)
}

func TestSetupDropsOverflow(t *testing.T) {
	cam := scene.NewPerspectiveCamera(60, 1, 0.1, 100)
	limits := DefaultLimits()
	limits.Point = 2

	var nodes []*scene.Node
	for i := 0; i < 5; i++ {
		nodes = append(nodes, scene.NewPointLight(core.ColorWhite, 1, 0, 2))
	}
	st := NewState(limits, nil)
	st.Setup(updated(nodes...), cam)

	assert.Len(t, st.Point, 2)
	assert.Equal(t, 2, st.Hash.Point)
}

func TestShadowCastersComeFirst(t *testing.T) {
	cam := scene.NewPerspectiveCamera(60, 1, 0.1, 100)
	plain := scene.NewSpotLight(core.ColorRed, 1, 0, 0.5, 0, 2)
	casting := scene.NewSpotLight(core.ColorGreen, 1, 0, 0.5, 0, 2)
	casting.CastShadow = true

	st := NewState(DefaultLimits(), nil)
	st.ShadowsEnabled = true
	st.Setup(updated(plain, casting), cam)

	require.Len(t, st.Spot, 2)
	require.Len(t, st.SpotShadows, 1)
	assert.Same(t, casting, st.SpotShadows[0].Light)
	assert.InDeltaSlice(t, []float32{0, 1, 0}, st.Spot[0].Color[:], 1e-6)
	assert.Equal(t, 1, st.Hash.SpotShadows)

	st.ShadowsEnabled = false
	st.Setup(updated(plain, casting), cam)
	assert.Empty(t, st.SpotShadows)
	assert.Zero(t, st.Hash.SpotShadows)
}

func TestHashTracksCounts(t *testing.T) {
	cam := scene.NewPerspectiveCamera(60, 1, 0.1, 100)
	st := NewState(DefaultLimits(), nil)
	a := scene.NewPointLight(core.ColorWhite, 1, 0, 2)

	st.Setup(updated(a), cam)
	first := st.Hash
	st.Setup(updated(a), cam)
	assert.Equal(t, first, st.Hash)

	st.Setup(updated(a, scene.NewPointLight(core.ColorWhite, 1, 0, 2)), cam)
	assert.NotEqual(t, first, st.Hash)
}

func TestShadowTypeText(t *testing.T) {
	var typ ShadowType
	require.NoError(t, typ.UnmarshalText([]byte("pcf_soft")))
	assert.Equal(t, PCFSoftShadow, typ)
	assert.Error(t, typ.UnmarshalText([]byte("soft")))
}
