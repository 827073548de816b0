// Package renderlist turns a scene graph into sorted per-bucket draw lists.
package renderlist

import (
	"cmp"
	"slices"

	"frame-renderer/scene"
)

// Item is one queued draw: an object, one of its materials and an optional
// group range.
type Item struct {
	// ID is the insertion order within the frame, used as the final tiebreak.
	ID          int
	Object      *scene.Node
	Geometry    *scene.Geometry
	Material    *scene.Material
	Group       *scene.Group
	Z           float32
	RenderOrder int
}

// List holds the three buckets of a frame. Items are pooled across frames
// but never carried over.
type List struct {
	Opaque       []*Item
	Transparent  []*Item
	Transmissive []*Item

	pool []*Item
	next int
}

func New() *List {
	return &List{}
}

// Init empties every bucket.
func (l *List) Init() {
	l.Opaque = l.Opaque[:0]
	l.Transparent = l.Transparent[:0]
	l.Transmissive = l.Transmissive[:0]
	l.next = 0
}

func (l *List) item() *Item {
	if l.next == len(l.pool) {
		l.pool = append(l.pool, &Item{})
	}
	it := l.pool[l.next]
	l.next++
	return it
}

// Push queues a draw into the bucket chosen by the material.
func (l *List) Push(obj *scene.Node, geo *scene.Geometry, m *scene.Material, group *scene.Group, z float32) *Item {
	it := l.item()
	*it = Item{
		ID:          l.next - 1,
		Object:      obj,
		Geometry:    geo,
		Material:    m,
		Group:       group,
		Z:           z,
		RenderOrder: obj.RenderOrder,
	}
	switch {
	case m.Transmission > 0:
		l.Transmissive = append(l.Transmissive, it)
	case m.Transparent:
		l.Transparent = append(l.Transparent, it)
	default:
		l.Opaque = append(l.Opaque, it)
	}
	return it
}

// Len is the number of queued items across buckets.
func (l *List) Len() int {
	return len(l.Opaque) + len(l.Transparent) + len(l.Transmissive)
}

// Finish sorts the buckets. Opaque items go front-to-back grouped by
// material; blended items go back to front.
func (l *List) Finish() {
	slices.SortFunc(l.Opaque, opaqueOrder)
	slices.SortFunc(l.Transparent, blendedOrder)
	slices.SortFunc(l.Transmissive, blendedOrder)
}

func opaqueOrder(a, b *Item) int {
	return cmp.Or(
		cmp.Compare(a.RenderOrder, b.RenderOrder),
		cmp.Compare(a.Material.ID, b.Material.ID),
		cmp.Compare(a.Z, b.Z),
		cmp.Compare(a.ID, b.ID),
	)
}

func blendedOrder(a, b *Item) int {
	return cmp.Or(
		cmp.Compare(a.RenderOrder, b.RenderOrder),
		cmp.Compare(b.Z, a.Z),
		cmp.Compare(a.ID, b.ID),
	)
}
