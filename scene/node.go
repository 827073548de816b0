package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/core"
)

// NodeState tracks which cached matrices are stale.
type NodeState int

const (
	Clean NodeState = iota
	LocalDirty
	WorldDirty
)

// Node represents an object in the scene graph. Parent is a non-owning back
// reference; Children is the only ownership edge.
type Node struct {
	Name     string
	ID       uint64
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Parent   *Node
	Children []*Node

	// MatrixAutoUpdate recomputes the local matrix from Position/Rotation/Scale on every update.
	MatrixAutoUpdate bool
	// MatrixWorldAutoUpdate lets a parent's update pass descend into this node.
	MatrixWorldAutoUpdate bool

	Visible       bool
	Layers        Layers
	RenderOrder   int
	FrustumCulled bool
	CastShadow    bool
	ReceiveShadow bool

	// Optional components. A node may carry at most one of them in practice.
	Drawable *Drawable
	Light    *Light
	Camera   *Camera

	matrix      mgl32.Mat4
	matrixWorld mgl32.Mat4
	localDirty  bool
	worldDirty  bool
}

func NewNode(name string) *Node {
	return &Node{
		Name:                  name,
		ID:                    core.NextID(),
		Rotation:              mgl32.QuatIdent(),
		Scale:                 mgl32.Vec3{1, 1, 1},
		MatrixAutoUpdate:      true,
		MatrixWorldAutoUpdate: true,
		Visible:               true,
		Layers:                DefaultLayers,
		FrustumCulled:         true,
		matrix:                mgl32.Ident4(),
		matrixWorld:           mgl32.Ident4(),
		localDirty:            true,
		worldDirty:            true,
	}
}

func (n *Node) State() NodeState {
	switch {
	case n.localDirty:
		return LocalDirty
	case n.worldDirty:
		return WorldDirty
	}
	return Clean
}

// Add attaches children, detaching each from its previous parent first.
func (n *Node) Add(children ...*Node) {
	for _, child := range children {
		if child == n || child == nil {
			continue
		}
		if child.Parent != nil {
			child.Parent.Remove(child)
		}
		child.Parent = n
		child.markWorldDirty()
		n.Children = append(n.Children, child)
	}
}

// Remove detaches child and clears its back-reference.
func (n *Node) Remove(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			child.markWorldDirty()
			return
		}
	}
}

func (n *Node) RemoveFromParent() {
	if n.Parent != nil {
		n.Parent.Remove(n)
	}
}

// Clear detaches every child.
func (n *Node) Clear() {
	for _, c := range n.Children {
		c.Parent = nil
		c.markWorldDirty()
	}
	n.Children = nil
}

func (n *Node) markWorldDirty() {
	n.worldDirty = true
}

func (n *Node) SetPosition(pos mgl32.Vec3) {
	n.Position = pos
	n.localDirty = true
}

func (n *Node) SetRotation(rot mgl32.Quat) {
	n.Rotation = rot
	n.localDirty = true
}

func (n *Node) SetScale(scale mgl32.Vec3) {
	n.Scale = scale
	n.localDirty = true
}

func (n *Node) Translate(delta mgl32.Vec3) {
	n.SetPosition(n.Position.Add(delta))
}

func (n *Node) Rotate(axis mgl32.Vec3, angle float32) {
	n.SetRotation(n.Rotation.Mul(mgl32.QuatRotate(angle, axis.Normalize())).Normalize())
}

// SetMatrix replaces the local matrix and decomposes nothing. Use it with
// MatrixAutoUpdate disabled, otherwise the next update overwrites it.
func (n *Node) SetMatrix(m mgl32.Mat4) {
	n.matrix = m
	n.localDirty = false
	n.worldDirty = true
}

// LookAt rotates the node so that its -Z axis points at target (+Z for non-cameras,
// matching the glTF convention for lights and meshes).
func (n *Node) LookAt(target mgl32.Vec3) {
	n.UpdateWorldMatrix(true, false)
	pos := n.WorldPosition()
	up := mgl32.Vec3{0, 1, 0}
	var look mgl32.Mat4
	if n.Camera != nil || n.Light != nil {
		look = mgl32.LookAtV(pos, target, up).Inv()
	} else {
		look = mgl32.LookAtV(target, pos, up).Inv()
	}
	q := mgl32.Mat4ToQuat(look)
	if n.Parent != nil {
		pq := mgl32.Mat4ToQuat(n.Parent.matrixWorld)
		q = pq.Inverse().Mul(q)
	}
	n.SetRotation(q.Normalize())
}

// UpdateMatrix recomputes the local matrix from Position/Rotation/Scale and
// reports whether it changed.
func (n *Node) UpdateMatrix() bool {
	m := mgl32.Translate3D(n.Position.X(), n.Position.Y(), n.Position.Z()).
		Mul4(n.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z()))
	n.localDirty = false
	if m == n.matrix {
		return false
	}
	n.matrix = m
	n.worldDirty = true
	return true
}

func (n *Node) computeWorld() {
	if n.Parent != nil {
		n.matrixWorld = n.Parent.matrixWorld.Mul4(n.matrix)
	} else {
		n.matrixWorld = n.matrix
	}
	n.worldDirty = false
}

// UpdateMatrixWorld is the per-frame propagation pass. The world matrix is
// recomputed when the local matrix changed, the node was reparented, or force
// (the parent's world changed) is set; the changed flag is forwarded to children.
func (n *Node) UpdateMatrixWorld(force bool) {
	if n.MatrixAutoUpdate {
		n.UpdateMatrix()
	}
	if n.worldDirty || force {
		n.computeWorld()
		force = true
	}
	for _, child := range n.Children {
		if child.MatrixWorldAutoUpdate || force {
			child.UpdateMatrixWorld(force)
		}
	}
}

// UpdateWorldMatrix refreshes this node out of band, optionally walking up to
// refresh ancestors first and down to refresh descendants.
func (n *Node) UpdateWorldMatrix(updateParents, updateChildren bool) {
	if updateParents && n.Parent != nil {
		n.Parent.UpdateWorldMatrix(true, false)
	}
	if n.MatrixAutoUpdate {
		n.UpdateMatrix()
	}
	prev := n.matrixWorld
	n.computeWorld()
	if updateChildren {
		for _, child := range n.Children {
			child.UpdateWorldMatrix(false, true)
		}
		return
	}
	// The next frame pass sees this node as clean, so children that were not
	// refreshed here must carry the change themselves.
	if n.matrixWorld != prev {
		for _, child := range n.Children {
			child.markWorldDirty()
		}
	}
}

// LocalMatrix returns the cached local matrix.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	return n.matrix
}

// WorldMatrix returns the cached world matrix as of the last update pass.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	return n.matrixWorld
}

func (n *Node) WorldPosition() mgl32.Vec3 {
	return n.matrixWorld.Col(3).Vec3()
}

// WorldDirection returns the node's +Z axis in world space, normalized.
func (n *Node) WorldDirection() mgl32.Vec3 {
	return n.matrixWorld.Col(2).Vec3().Normalize()
}

// Traverse visits all nodes in the graph depth-first.
func (n *Node) Traverse(callback func(*Node)) {
	callback(n)
	for _, child := range n.Children {
		child.Traverse(callback)
	}
}

// TraverseVisible is like Traverse but skips invisible subtrees.
func (n *Node) TraverseVisible(callback func(*Node)) {
	if !n.Visible {
		return
	}
	callback(n)
	for _, child := range n.Children {
		child.TraverseVisible(callback)
	}
}

// TraverseAncestors calls callback for every ancestor, nearest first.
func (n *Node) TraverseAncestors(callback func(*Node)) {
	for p := n.Parent; p != nil; p = p.Parent {
		callback(p)
	}
}

// Find finds a node by name.
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}
