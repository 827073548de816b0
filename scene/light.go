package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/core"
)

type LightKind int

const (
	AmbientLight LightKind = iota
	HemisphereLight
	DirectionalLight
	PointLight
	SpotLight
)

// LightShadow configures shadow casting for a light. The shadow map and
// light-space matrix are owned by the renderer's shadow pass.
type LightShadow struct {
	Bias        float32
	NormalBias  float32
	Radius      float32
	BlurSamples int
	MapSize     [2]int
	// Near/Far bound the shadow camera. For point and spot lights Far
	// defaults to the light distance when zero.
	Near, Far float32
	// AutoUpdate re-renders the map every frame. When false, set NeedsUpdate.
	AutoUpdate  bool
	NeedsUpdate bool
}

func DefaultLightShadow() *LightShadow {
	return &LightShadow{
		Bias:        -0.0005,
		Radius:      1,
		BlurSamples: 8,
		MapSize:     [2]int{1024, 1024},
		Near:        0.5,
		Far:         500,
		AutoUpdate:  true,
	}
}

// Light is the light component of a node. Position and direction come from the
// node's world matrix; directional and spot lights aim at Target.
type Light struct {
	Kind        LightKind
	Color       core.Color
	GroundColor core.Color
	Intensity   float32
	// Distance is the cutoff range of point and spot lights; zero means unlimited.
	Distance float32
	Decay    float32
	// Angle is the spot cone half-angle in radians.
	Angle    float32
	Penumbra float32
	Target   *Node
	Shadow   *LightShadow
}

func newLightNode(name string, l *Light) *Node {
	n := NewNode(name)
	n.Light = l
	return n
}

func NewAmbientLight(color core.Color, intensity float32) *Node {
	return newLightNode("AmbientLight", &Light{Kind: AmbientLight, Color: color, Intensity: intensity})
}

func NewHemisphereLight(sky, ground core.Color, intensity float32) *Node {
	n := newLightNode("HemisphereLight", &Light{
		Kind: HemisphereLight, Color: sky, GroundColor: ground, Intensity: intensity,
	})
	n.SetPosition(mgl32.Vec3{0, 1, 0})
	return n
}

func NewDirectionalLight(color core.Color, intensity float32) *Node {
	n := newLightNode("DirectionalLight", &Light{
		Kind: DirectionalLight, Color: color, Intensity: intensity, Shadow: DefaultLightShadow(),
	})
	n.SetPosition(mgl32.Vec3{0, 1, 0})
	return n
}

func NewPointLight(color core.Color, intensity, distance, decay float32) *Node {
	return newLightNode("PointLight", &Light{
		Kind: PointLight, Color: color, Intensity: intensity, Distance: distance, Decay: decay,
		Shadow: DefaultLightShadow(),
	})
}

func NewSpotLight(color core.Color, intensity, distance, angle, penumbra, decay float32) *Node {
	return newLightNode("SpotLight", &Light{
		Kind: SpotLight, Color: color, Intensity: intensity, Distance: distance,
		Angle: angle, Penumbra: penumbra, Decay: decay, Shadow: DefaultLightShadow(),
	})
}

// TargetPosition returns the world-space point a directional or spot light aims at.
func (l *Light) TargetPosition() mgl32.Vec3 {
	if l.Target != nil {
		return l.Target.WorldPosition()
	}
	return mgl32.Vec3{}
}

// ConeCos returns the cosine of the outer and inner spot cone angles.
func (l *Light) ConeCos() (outer, inner float32) {
	outer = float32(math.Cos(float64(l.Angle)))
	inner = float32(math.Cos(float64(l.Angle * (1 - l.Penumbra))))
	return outer, inner
}
