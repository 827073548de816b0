package renderlist

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-renderer/core"
	"frame-renderer/scene"
)

func testCamera() *scene.Camera {
	cam := scene.NewPerspectiveCamera(60, 1, 0.1, 100)
	cam.Node.SetPosition(mgl32.Vec3{0, 0, 10})
	cam.Node.UpdateMatrixWorld(true)
	return cam
}

func cube(name string, m *scene.Material, pos mgl32.Vec3) *scene.Node {
	n := scene.NewMesh(name, scene.CreateCube(1), m)
	n.SetPosition(pos)
	return n
}

func build(t *testing.T, root *scene.Node, opts Options) (*Builder, *List) {
	t.Helper()
	root.UpdateMatrixWorld(true)
	b := NewBuilder()
	l := New()
	b.Traverse(root, testCamera(), l, opts)
	return b, l
}

func names(items []*Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Object.Name
	}
	return out
}

func TestFrustumCulling(t *testing.T) {
	root := scene.NewNode("root")
	m := scene.NewMaterial(scene.BasicMaterial)
	root.Add(
		cube("inside", m, mgl32.Vec3{}),
		cube("outside", m, mgl32.Vec3{100, 0, 0}),
		cube("behind", m, mgl32.Vec3{0, 0, 50}),
	)
	unculled := cube("unculled", m, mgl32.Vec3{-100, 0, 0})
	unculled.FrustumCulled = false
	root.Add(unculled)

	b, l := build(t, root, Options{Sort: true})
	assert.ElementsMatch(t, []string{"inside", "unculled"}, names(l.Opaque))
	assert.Equal(t, 2, b.Culled)
}

func TestSpritesCullByCenter(t *testing.T) {
	root := scene.NewNode("root")
	m := scene.NewMaterial(scene.SpriteMaterial)
	in := scene.NewSprite("in", m)
	out := scene.NewSprite("out", m)
	out.SetPosition(mgl32.Vec3{0, 0, 20})
	root.Add(in, out)

	_, l := build(t, root, Options{})
	assert.Equal(t, []string{"in"}, names(l.Opaque))
}

func TestBucketsByMaterial(t *testing.T) {
	root := scene.NewNode("root")
	opaque := scene.NewMaterial(scene.StandardMaterial)
	tinted := scene.NewMaterial(scene.StandardMaterial)
	tinted.Transparent = true
	glass := scene.NewMaterial(scene.PhysicalMaterial)
	glass.Transmission = 1
	glass.Transparent = true

	root.Add(cube("a", opaque, mgl32.Vec3{}), cube("b", tinted, mgl32.Vec3{}), cube("c", glass, mgl32.Vec3{}))

	_, l := build(t, root, Options{Sort: true})
	assert.Equal(t, []string{"a"}, names(l.Opaque))
	assert.Equal(t, []string{"b"}, names(l.Transparent))
	assert.Equal(t, []string{"c"}, names(l.Transmissive))
	assert.Equal(t, 3, l.Len())
}

func TestGroupsResolveMaterials(t *testing.T) {
	geo := scene.CreateCube(1)
	geo.AddGroup(0, 18, 0)
	geo.AddGroup(18, 18, 1)
	geo.AddGroup(0, 6, 5)

	front := scene.NewMaterial(scene.BasicMaterial)
	back := scene.NewMaterial(scene.BasicMaterial)
	back.Transparent = true
	node := scene.NewMesh("grouped", geo, front, back)

	root := scene.NewNode("root")
	root.Add(node)
	_, l := build(t, root, Options{Sort: true})

	require.Len(t, l.Opaque, 1)
	require.Len(t, l.Transparent, 1)
	assert.Same(t, front, l.Opaque[0].Material)
	assert.Equal(t, 0, l.Opaque[0].Group.Start)
	assert.Same(t, back, l.Transparent[0].Material)
	assert.Equal(t, 18, l.Transparent[0].Group.Start)
}

func TestOverrideMaterialIgnoresGroups(t *testing.T) {
	geo := scene.CreateCube(1)
	geo.AddGroup(0, 18, 0)
	geo.AddGroup(18, 18, 1)
	node := scene.NewMesh("grouped", geo, scene.NewMaterial(scene.BasicMaterial), scene.NewMaterial(scene.BasicMaterial))
	root := scene.NewNode("root")
	root.Add(node)

	override := scene.NewMaterial(scene.NormalMaterial)
	_, l := build(t, root, Options{OverrideMaterial: override})
	require.Len(t, l.Opaque, 1)
	assert.Same(t, override, l.Opaque[0].Material)
	assert.Nil(t, l.Opaque[0].Group)
}

func TestOpaqueSortsByMaterialThenDepth(t *testing.T) {
	root := scene.NewNode("root")
	m1 := scene.NewMaterial(scene.BasicMaterial)
	m2 := scene.NewMaterial(scene.BasicMaterial)
	root.Add(
		cube("m2-near", m2, mgl32.Vec3{0, 0, 2}),
		cube("m1-far", m1, mgl32.Vec3{0, 0, -5}),
		cube("m1-near", m1, mgl32.Vec3{0, 0, 1}),
	)
	late := cube("late", m1, mgl32.Vec3{0, 0, 3})
	late.RenderOrder = 1
	root.Add(late)

	_, l := build(t, root, Options{Sort: true})
	assert.Equal(t, []string{"m1-near", "m1-far", "m2-near", "late"}, names(l.Opaque))
}

func TestTransparentSortsBackToFront(t *testing.T) {
	root := scene.NewNode("root")
	m := scene.NewMaterial(scene.BasicMaterial)
	m.Transparent = true
	root.Add(
		cube("near", m, mgl32.Vec3{0, 0, 3}),
		cube("far", m, mgl32.Vec3{0, 0, -5}),
		cube("mid", m, mgl32.Vec3{0, 0, 0}),
	)
	first := cube("first", m, mgl32.Vec3{0, 0, 4})
	first.RenderOrder = -1
	root.Add(first)

	_, l := build(t, root, Options{Sort: true})
	assert.Equal(t, []string{"first", "far", "mid", "near"}, names(l.Transparent))
}

func TestSortIsDeterministic(t *testing.T) {
	root := scene.NewNode("root")
	shared := scene.NewMaterial(scene.BasicMaterial)
	blend := scene.NewMaterial(scene.BasicMaterial)
	blend.Transparent = true
	for i := range 20 {
		// Pairs at equal depth exercise the insertion-order tiebreak.
		x := float32(i % 4)
		root.Add(cube("o", shared, mgl32.Vec3{x, 0, 0}), cube("t", blend, mgl32.Vec3{x, 0, 0}))
	}
	root.UpdateMatrixWorld(true)

	cam := testCamera()
	b := NewBuilder()
	l := New()
	snapshot := func() [][]*scene.Node {
		b.Traverse(root, cam, l, Options{Sort: true})
		var out [][]*scene.Node
		for _, bucket := range [][]*Item{l.Opaque, l.Transparent, l.Transmissive} {
			var nodes []*scene.Node
			for _, it := range bucket {
				nodes = append(nodes, it.Object)
			}
			out = append(out, nodes)
		}
		return out
	}
	first := snapshot()
	second := snapshot()
	assert.Equal(t, first, second)
	assert.Len(t, first[0], 20)
	assert.Len(t, first[1], 20)
}

func TestLightsAndCasters(t *testing.T) {
	root := scene.NewNode("root")
	sun := scene.NewDirectionalLight(core.ColorWhite, 1)
	sun.CastShadow = true
	sun.Light.Shadow = scene.DefaultLightShadow()
	ambient := scene.NewAmbientLight(core.ColorWhite, 0.2)

	caster := cube("caster", scene.NewMaterial(scene.StandardMaterial), mgl32.Vec3{100, 0, 0})
	caster.CastShadow = true

	hidden := scene.NewNode("hidden")
	hidden.Visible = false
	hidden.Add(cube("under-hidden", scene.NewMaterial(scene.BasicMaterial), mgl32.Vec3{}))

	otherLayer := cube("other-layer", scene.NewMaterial(scene.BasicMaterial), mgl32.Vec3{})
	otherLayer.Layers.Set(3)
	otherLayer.Add(cube("child", scene.NewMaterial(scene.BasicMaterial), mgl32.Vec3{}))

	root.Add(sun, ambient, caster, hidden, otherLayer)
	b, l := build(t, root, Options{})

	assert.ElementsMatch(t, []*scene.Node{sun, ambient}, b.Lights)
	assert.Equal(t, []*scene.Node{sun}, b.ShadowLights)
	assert.Equal(t, []*scene.Node{caster}, b.Casters)
	assert.Equal(t, []string{"child"}, names(l.Opaque))
}

func TestInitClearsBuckets(t *testing.T) {
	root := scene.NewNode("root")
	root.Add(cube("a", scene.NewMaterial(scene.BasicMaterial), mgl32.Vec3{}))
	b, l := build(t, root, Options{})
	require.Equal(t, 1, l.Len())

	root.Clear()
	b.Traverse(root, testCamera(), l, Options{})
	assert.Zero(t, l.Len())
}
