package renderlist

import (
	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/scene"
)

// Options adjusts a traversal.
type Options struct {
	// OverrideMaterial replaces every drawable's materials and groups.
	OverrideMaterial *scene.Material
	// Sort runs List.Finish after the walk.
	Sort bool
}

// Builder walks a scene and fills a List. Lights and shadow casters are
// collected on the way; they are valid until the next Traverse.
type Builder struct {
	// Lights holds every light node the camera can see.
	Lights []*scene.Node
	// ShadowLights holds the lights among Lights that cast shadows.
	ShadowLights []*scene.Node
	// Casters holds visible drawables with CastShadow, regardless of the
	// camera frustum.
	Casters []*scene.Node

	// Culled counts drawables rejected by the frustum in the last walk.
	Culled int

	frustum  scene.Frustum
	viewProj mgl32.Mat4
	layers   scene.Layers
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Traverse walks root depth-first and pushes one item per visible
// (drawable, material, group) into list. World matrices must be current.
func (b *Builder) Traverse(root *scene.Node, camera *scene.Camera, list *List, opts Options) {
	b.Lights = b.Lights[:0]
	b.ShadowLights = b.ShadowLights[:0]
	b.Casters = b.Casters[:0]
	b.Culled = 0
	b.viewProj = camera.ViewProjectionMatrix()
	b.frustum = scene.FrustumFromMatrix(b.viewProj)
	b.layers = camera.Layers()

	list.Init()
	b.walk(root, list, opts)
	if opts.Sort {
		list.Finish()
	}
}

func (b *Builder) walk(n *scene.Node, list *List, opts Options) {
	if !n.Visible {
		return
	}
	if n.Layers.Test(b.layers) {
		switch {
		case n.Light != nil:
			b.Lights = append(b.Lights, n)
			if n.CastShadow && n.Light.Shadow != nil {
				b.ShadowLights = append(b.ShadowLights, n)
			}
		case n.Drawable != nil && n.Drawable.Geometry != nil:
			b.drawable(n, list, opts)
		}
	}
	for _, c := range n.Children {
		b.walk(c, list, opts)
	}
}

func (b *Builder) drawable(n *scene.Node, list *List, opts Options) {
	d := n.Drawable
	if n.CastShadow {
		b.Casters = append(b.Casters, n)
	}

	var center mgl32.Vec3
	if d.Kind == scene.KindSprite {
		center = n.WorldPosition()
		if n.FrustumCulled && !b.frustum.ContainsPoint(center) {
			b.Culled++
			return
		}
	} else {
		sphere := WorldBoundingSphere(n)
		if n.FrustumCulled && !sphere.Empty() && !b.frustum.IntersectsSphere(sphere) {
			b.Culled++
			return
		}
		center = sphere.Center
		if sphere.Empty() {
			center = n.WorldPosition()
		}
	}
	z := mgl32.TransformCoordinate(center, b.viewProj).Z()

	geo := d.Geometry
	if opts.OverrideMaterial != nil {
		list.Push(n, geo, opts.OverrideMaterial, nil, z)
		return
	}
	if len(d.Materials) > 1 && len(geo.Groups) > 0 {
		for i := range geo.Groups {
			g := &geo.Groups[i]
			if g.MaterialIndex < 0 || g.MaterialIndex >= len(d.Materials) {
				continue
			}
			if m := d.Materials[g.MaterialIndex]; m != nil && m.Visible {
				list.Push(n, geo, m, g, z)
			}
		}
		return
	}
	if m := d.Material(); m != nil && m.Visible {
		list.Push(n, geo, m, nil, z)
	}
}

// WorldBoundingSphere returns the drawable's bounding sphere in world space,
// covering every instance of instanced drawables.
func WorldBoundingSphere(n *scene.Node) scene.Sphere {
	d := n.Drawable
	var s scene.Sphere
	if d.InstanceCount > 0 && d.InstanceMatrix != nil {
		s = d.InstanceBoundingSphere()
	} else {
		s = d.Geometry.BoundingSphere()
	}
	if s.Empty() {
		return s
	}
	return s.ApplyMatrix4(n.WorldMatrix())
}
