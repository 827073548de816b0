package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mat4Near(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	assert.True(t, want.ApproxEqualThreshold(got, 1e-5), "want %v\ngot  %v", want, got)
}

func TestWorldMatrixIsAncestorProduct(t *testing.T) {
	root := NewNode("root")
	root.SetPosition(mgl32.Vec3{1, 0, 0})

	child := NewNode("child")
	child.SetPosition(mgl32.Vec3{0, 0, 2})
	child.SetRotation(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))

	grand := NewNode("grand")
	grand.SetPosition(mgl32.Vec3{0, 1, 0})
	grand.SetScale(mgl32.Vec3{2, 2, 2})

	root.Add(child)
	child.Add(grand)
	root.UpdateMatrixWorld(false)

	want := root.LocalMatrix().Mul4(child.LocalMatrix()).Mul4(grand.LocalMatrix())
	mat4Near(t, want, grand.WorldMatrix())
	assert.Equal(t, Clean, grand.State())
}

func TestParentMovePropagates(t *testing.T) {
	root := NewNode("root")
	child := NewNode("child")
	child.SetPosition(mgl32.Vec3{0, 1, 0})
	root.Add(child)
	root.UpdateMatrixWorld(false)
	assert.InDelta(t, 1, child.WorldPosition().Y(), 1e-6)

	root.SetPosition(mgl32.Vec3{5, 0, 0})
	assert.Equal(t, LocalDirty, root.State())
	root.UpdateMatrixWorld(false)

	pos := child.WorldPosition()
	assert.InDelta(t, 5, pos.X(), 1e-6)
	assert.InDelta(t, 1, pos.Y(), 1e-6)
}

func TestNewChildUnderMovedParent(t *testing.T) {
	root := NewNode("root")
	root.SetPosition(mgl32.Vec3{0, 0, -3})
	root.UpdateMatrixWorld(false)

	child := NewNode("child")
	root.Add(child)
	root.UpdateMatrixWorld(false)
	assert.InDelta(t, -3, child.WorldPosition().Z(), 1e-6)
}

func TestAddReparents(t *testing.T) {
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	a.Add(c)
	b.Add(c)

	assert.Empty(t, a.Children)
	require.Len(t, b.Children, 1)
	assert.Same(t, b, c.Parent)

	a.Add(a)
	assert.Empty(t, a.Children)
}

func TestRemoveClearsParent(t *testing.T) {
	root, child := NewNode("root"), NewNode("child")
	root.Add(child)
	child.RemoveFromParent()

	assert.Nil(t, child.Parent)
	assert.Empty(t, root.Children)

	root.Add(NewNode("x"), NewNode("y"))
	kids := append([]*Node(nil), root.Children...)
	root.Clear()
	for _, k := range kids {
		assert.Nil(t, k.Parent)
	}
}

func TestManualMatrix(t *testing.T) {
	n := NewNode("manual")
	n.MatrixAutoUpdate = false
	m := mgl32.Translate3D(3, 4, 5)
	n.SetMatrix(m)
	n.UpdateMatrixWorld(false)
	mat4Near(t, m, n.WorldMatrix())
}

func TestTraverseVisibleSkipsHiddenSubtree(t *testing.T) {
	root := NewNode("root")
	hidden := NewNode("hidden")
	hidden.Visible = false
	hidden.Add(NewNode("under"))
	root.Add(hidden, NewNode("shown"))

	var names []string
	root.TraverseVisible(func(n *Node) { names = append(names, n.Name) })
	assert.Equal(t, []string{"root", "shown"}, names)

	assert.NotNil(t, root.Find("under"))
	assert.Nil(t, root.Find("missing"))
}

func TestLookAtPointsCameraAtTarget(t *testing.T) {
	cam := NewPerspectiveCamera(60, 1, 0.1, 100)
	cam.Node.SetPosition(mgl32.Vec3{0, 0, 10})
	cam.Node.LookAt(mgl32.Vec3{0, 0, 0})
	cam.Node.UpdateMatrixWorld(false)

	// Cameras look down their local -Z axis.
	dir := cam.Node.WorldDirection().Mul(-1)
	assert.InDelta(t, -1, dir.Z(), 1e-5)
}

func TestLayers(t *testing.T) {
	var l Layers
	l.Set(3)
	assert.False(t, l.Test(DefaultLayers))
	l.Enable(0)
	assert.True(t, l.Test(DefaultLayers))
	l.Disable(0)
	assert.False(t, l.Test(DefaultLayers))
	assert.True(t, AllLayers.Test(l))
}

func TestDisposeListeners(t *testing.T) {
	g := NewGeometry("g")
	calls := map[string]int{}
	owner := new(int)
	g.OnDispose(owner, func() { calls["first"]++ })
	g.OnDispose(owner, func() { calls["second"]++ })
	other := new(int)
	g.OnDispose(other, func() { calls["other"]++ })
	g.OffDispose(other)

	g.Dispose()
	g.Dispose()
	assert.Equal(t, map[string]int{"second": 1}, calls)
}

func TestOutOfBandRefreshThenFramePass(t *testing.T) {
	root := NewNode("root")
	child := NewNode("child")
	child.SetPosition(mgl32.Vec3{0, 1, 0})
	root.Add(child)
	root.UpdateMatrixWorld(false)

	root.SetPosition(mgl32.Vec3{5, 0, 0})
	root.UpdateWorldMatrix(false, false)
	assert.Equal(t, WorldDirty, child.State())
	root.UpdateMatrixWorld(false)

	vecNear(t, mgl32.Vec3{5, 1, 0}, child.WorldPosition())
}

func TestLookAtKeepsSiblingsCurrent(t *testing.T) {
	root := NewNode("root")
	a := NewNode("a")
	b := NewNode("b")
	b.SetPosition(mgl32.Vec3{0, 1, 0})
	root.Add(a, b)
	root.UpdateMatrixWorld(false)

	root.SetPosition(mgl32.Vec3{3, 0, 0})
	a.LookAt(mgl32.Vec3{3, 0, -10})
	root.UpdateMatrixWorld(false)

	vecNear(t, mgl32.Vec3{3, 1, 0}, b.WorldPosition())
	want := root.LocalMatrix().Mul4(b.LocalMatrix())
	mat4Near(t, want, b.WorldMatrix())
}
