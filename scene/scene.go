package scene

import "frame-renderer/core"

type FogKind int

const (
	LinearFog FogKind = iota
	ExpFog
)

// Fog fades distant fragments toward Color. Linear fog uses Near/Far, exponential
// fog uses Density.
type Fog struct {
	Kind      FogKind
	Color     core.Color
	Near, Far float32
	Density   float32
}

// Scene is the root of a renderable graph plus scene-wide settings.
type Scene struct {
	Root *Node
	// Background, when set, is the clear color of the default surface.
	Background  *core.Color
	Environment *Texture
	Fog         *Fog
	// OverrideMaterial replaces every drawable's material when set.
	OverrideMaterial *Material
	// MatrixWorldAutoUpdate lets the renderer run the transform pass each frame.
	MatrixWorldAutoUpdate bool
}

func NewScene() *Scene {
	return &Scene{
		Root:                  NewNode("Root"),
		MatrixWorldAutoUpdate: true,
	}
}

// Add attaches nodes to the root.
func (s *Scene) Add(nodes ...*Node) {
	s.Root.Add(nodes...)
}

func (s *Scene) Remove(node *Node) {
	s.Root.Remove(node)
}
