// Package lights aggregates the scene's lights into the fixed-size arrays the
// lit shader templates consume and renders their shadow maps.
package lights

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"frame-renderer/scene"
)

// ShadowType is the shadow filtering technique. It is baked into programs.
type ShadowType int

const (
	BasicShadow ShadowType = iota
	PCFShadow
	PCFSoftShadow
	VSMShadow
)

var shadowTypeNames = [...]string{"basic", "pcf", "pcf_soft", "vsm"}

func (t ShadowType) String() string {
	if t >= 0 && int(t) < len(shadowTypeNames) {
		return shadowTypeNames[t]
	}
	return fmt.Sprintf("ShadowType(%d)", int(t))
}

func (t ShadowType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ShadowType) UnmarshalText(b []byte) error {
	i := slices.Index(shadowTypeNames[:], string(b))
	if i < 0 {
		return fmt.Errorf("unknown shadow map type %q", b)
	}
	*t = ShadowType(i)
	return nil
}

// Limits caps the number of lights of each kind a program is compiled for.
type Limits struct {
	Directional int
	Point       int
	Spot        int
	Hemisphere  int
}

func DefaultLimits() Limits {
	return Limits{Directional: 4, Point: 8, Spot: 4, Hemisphere: 1}
}

// Hash summarizes the light setup that affects program compilation. Two
// frames with equal hashes can share programs.
type Hash struct {
	Directional        int
	Point              int
	Spot               int
	Hemisphere         int
	DirectionalShadows int
	PointShadows       int
	SpotShadows        int
}

type DirectionalLight struct {
	Color mgl32.Vec3
	// Direction points from the target toward the light, in view space.
	Direction mgl32.Vec3
}

type PointLight struct {
	Color    mgl32.Vec3
	Position mgl32.Vec3
	Distance float32
	Decay    float32
}

type SpotLight struct {
	Color       mgl32.Vec3
	Position    mgl32.Vec3
	Direction   mgl32.Vec3
	Distance    float32
	Decay       float32
	ConeCos     float32
	PenumbraCos float32
}

type HemisphereLight struct {
	SkyColor    mgl32.Vec3
	GroundColor mgl32.Vec3
	Direction   mgl32.Vec3
}

// Shadow is the per-light shadow record. Map and Matrix are filled by the
// ShadowMapper; for point lights Matrix only translates by the light position.
type Shadow struct {
	Light      *scene.Node
	Bias       float32
	NormalBias float32
	Radius     float32
	MapSize    [2]int
	Near, Far  float32
	Matrix     mgl32.Mat4
	Map        *scene.RenderTarget
}

// State is the per-frame light aggregate. Shadow-casting lights come first in
// each per-kind array so shadow record i belongs to light i.
type State struct {
	Limits         Limits
	ShadowsEnabled bool

	Ambient     mgl32.Vec3
	Directional []DirectionalLight
	Point       []PointLight
	Spot        []SpotLight
	Hemisphere  []HemisphereLight

	DirectionalShadows []Shadow
	PointShadows       []Shadow
	SpotShadows        []Shadow

	Hash Hash

	log *zap.Logger
}

func NewState(limits Limits, log *zap.Logger) *State {
	if log == nil {
		log = zap.NewNop()
	}
	return &State{Limits: limits, log: log.Named("lights")}
}

func castsShadow(n *scene.Node) bool {
	return n.CastShadow && n.Light.Shadow != nil
}

// Setup rebuilds the aggregate from the collected light nodes. Lights beyond
// the per-kind limits are dropped with a single warning.
func (s *State) Setup(nodes []*scene.Node, camera *scene.Camera) {
	s.Ambient = mgl32.Vec3{}
	s.Directional = s.Directional[:0]
	s.Point = s.Point[:0]
	s.Spot = s.Spot[:0]
	s.Hemisphere = s.Hemisphere[:0]
	s.DirectionalShadows = s.DirectionalShadows[:0]
	s.PointShadows = s.PointShadows[:0]
	s.SpotShadows = s.SpotShadows[:0]

	sorted := slices.Clone(nodes)
	slices.SortStableFunc(sorted, func(a, b *scene.Node) int {
		ca, cb := castsShadow(a), castsShadow(b)
		switch {
		case ca && !cb:
			return -1
		case cb && !ca:
			return 1
		}
		return 0
	})

	view := camera.ViewMatrix()
	toView := func(p mgl32.Vec3) mgl32.Vec3 { return mgl32.TransformCoordinate(p, view) }
	dirToView := func(d mgl32.Vec3) mgl32.Vec3 {
		v := mgl32.TransformNormal(d, view)
		if v.Len() == 0 {
			return v
		}
		return v.Normalize()
	}

	dropped := 0
	for _, n := range sorted {
		l := n.Light
		if l == nil {
			continue
		}
		color := l.Color.Vec3().Mul(l.Intensity)
		pos := n.WorldPosition()
		shadowed := s.ShadowsEnabled && castsShadow(n)

		switch l.Kind {
		case scene.AmbientLight:
			s.Ambient = s.Ambient.Add(color)

		case scene.HemisphereLight:
			if len(s.Hemisphere) >= s.Limits.Hemisphere {
				dropped++
				continue
			}
			s.Hemisphere = append(s.Hemisphere, HemisphereLight{
				SkyColor:    color,
				GroundColor: l.GroundColor.Vec3().Mul(l.Intensity),
				Direction:   dirToView(pos),
			})

		case scene.DirectionalLight:
			if len(s.Directional) >= s.Limits.Directional {
				dropped++
				continue
			}
			s.Directional = append(s.Directional, DirectionalLight{
				Color:     color,
				Direction: dirToView(pos.Sub(l.TargetPosition())),
			})
			if shadowed {
				s.DirectionalShadows = append(s.DirectionalShadows, newShadow(n))
			}

		case scene.PointLight:
			if len(s.Point) >= s.Limits.Point {
				dropped++
				continue
			}
			s.Point = append(s.Point, PointLight{
				Color:    color,
				Position: toView(pos),
				Distance: l.Distance,
				Decay:    l.Decay,
			})
			if shadowed {
				s.PointShadows = append(s.PointShadows, newShadow(n))
			}

		case scene.SpotLight:
			if len(s.Spot) >= s.Limits.Spot {
				dropped++
				continue
			}
			outer, inner := l.ConeCos()
			s.Spot = append(s.Spot, SpotLight{
				Color:       color,
				Position:    toView(pos),
				Direction:   dirToView(pos.Sub(l.TargetPosition())),
				Distance:    l.Distance,
				Decay:       l.Decay,
				ConeCos:     outer,
				PenumbraCos: inner,
			})
			if shadowed {
				s.SpotShadows = append(s.SpotShadows, newShadow(n))
			}
		}
	}
	if dropped > 0 {
		s.log.Warn("light limit exceeded, extra lights ignored", zap.Int("dropped", dropped))
	}

	s.Hash = Hash{
		Directional:        len(s.Directional),
		Point:              len(s.Point),
		Spot:               len(s.Spot),
		Hemisphere:         len(s.Hemisphere),
		DirectionalShadows: len(s.DirectionalShadows),
		PointShadows:       len(s.PointShadows),
		SpotShadows:        len(s.SpotShadows),
	}
}

func newShadow(n *scene.Node) Shadow {
	cfg := n.Light.Shadow
	return Shadow{
		Light:      n,
		Bias:       cfg.Bias,
		NormalBias: cfg.NormalBias,
		Radius:     cfg.Radius,
		MapSize:    cfg.MapSize,
		Near:       cfg.Near,
		Far:        cfg.Far,
		Matrix:     mgl32.Ident4(),
	}
}
