package scene

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"frame-renderer/core"
	"frame-renderer/gpu"
)

// Particle is a single live particle instance.
type Particle struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	Life     float32 // remaining lifetime in seconds
	MaxLife  float32
	Size     float32
	Color    core.Color
}

// ParticleEmitter spawns and simulates CPU particles and mirrors the live
// ones into a Points drawable. Only the live prefix of each attribute is
// re-uploaded, and the draw range is clamped to the live count.
type ParticleEmitter struct {
	Position  mgl32.Vec3
	Direction mgl32.Vec3 // mean emission direction, normalized
	Spread    float32    // cone half-angle in radians

	Rate int // particles per second

	MinLife, MaxLife   float32
	MinSpeed, MaxSpeed float32
	MinSize, MaxSize   float32

	// Color is interpolated from StartColor to EndColor over a particle's life.
	StartColor core.Color
	EndColor   core.Color

	Gravity mgl32.Vec3

	// Active=false stops spawning; live particles finish out.
	Active bool

	Particles []Particle
	Node      *Node

	pool       int
	spawnAccum float32
	rng        *rand.Rand

	position *BufferAttribute
	color    *BufferAttribute
	size     *BufferAttribute
}

func newEmitter(maxParticles int, seed int64, blending Blending) *ParticleEmitter {
	e := &ParticleEmitter{
		Direction: mgl32.Vec3{0, 1, 0},
		Active:    true,
		Particles: make([]Particle, 0, maxParticles),
		pool:      maxParticles,
		rng:       rand.New(rand.NewSource(seed)),
		position:  NewFloat32Attribute(make([]float32, 3*maxParticles), 3),
		color:     NewFloat32Attribute(make([]float32, 4*maxParticles), 4),
		size:      NewFloat32Attribute(make([]float32, maxParticles), 1),
	}
	for _, a := range []*BufferAttribute{e.position, e.color, e.size} {
		a.Usage = gpu.DynamicDraw
	}

	geo := NewGeometry("Particles")
	geo.SetAttribute("position", e.position)
	geo.SetAttribute("color", e.color)
	geo.SetAttribute("size", e.size)
	geo.DrawRange = DrawRange{Start: 0, Count: 0}

	mat := NewMaterial(PointsMaterial)
	mat.Name = "ParticleMaterial"
	mat.VertexColors = true
	mat.Transparent = true
	mat.DepthWrite = false
	mat.Blending = blending

	e.Node = NewPoints("ParticleEmitter", geo, mat)
	e.Node.FrustumCulled = false
	return e
}

// NewParticleEmitter returns a fire-like additive emitter.
func NewParticleEmitter(maxParticles int) *ParticleEmitter {
	e := newEmitter(maxParticles, 42, AdditiveBlending)
	e.Spread = 0.4
	e.Rate = 80
	e.MinLife, e.MaxLife = 0.6, 1.8
	e.MinSpeed, e.MaxSpeed = 2, 5
	e.MinSize, e.MaxSize = 0.06, 0.22
	e.StartColor = core.Color{R: 1, G: 0.7, B: 0.15, A: 1}
	e.EndColor = core.Color{R: 0.8, G: 0.05, B: 0, A: 0}
	e.Gravity = mgl32.Vec3{0, 0.3, 0}
	return e
}

// NewSmokeEmitter returns a slow rising smoke emitter with normal blending.
func NewSmokeEmitter(maxParticles int) *ParticleEmitter {
	e := newEmitter(maxParticles, 99, NormalBlending)
	e.Spread = 0.5
	e.Rate = 20
	e.MinLife, e.MaxLife = 2, 4
	e.MinSpeed, e.MaxSpeed = 0.5, 1.5
	e.MinSize, e.MaxSize = 0.15, 0.5
	e.StartColor = core.Color{R: 0.3, G: 0.3, B: 0.3, A: 0.4}
	e.EndColor = core.Color{R: 0.6, G: 0.6, B: 0.6, A: 0}
	e.Gravity = mgl32.Vec3{0, 0.1, 0}
	return e
}

// Update advances the simulation by dt seconds and refreshes the attributes.
func (e *ParticleEmitter) Update(dt float32) {
	if e.Active {
		e.spawnAccum += float32(e.Rate) * dt
		for e.spawnAccum >= 1 && len(e.Particles) < e.pool {
			e.spawnParticle()
			e.spawnAccum--
		}
	}

	write := 0
	for i := range e.Particles {
		p := e.Particles[i]
		p.Life -= dt
		if p.Life <= 0 {
			continue
		}
		p.Velocity = p.Velocity.Add(e.Gravity.Mul(dt))
		p.Position = p.Position.Add(p.Velocity.Mul(dt))

		t := 1 - p.Life/p.MaxLife
		p.Color = lerpColor(e.StartColor, e.EndColor, t)
		p.Size = e.MinSize + (e.MaxSize-e.MinSize)*(1-t)

		e.Particles[write] = p
		write++
	}
	e.Particles = e.Particles[:write]
	e.sync()
}

func (e *ParticleEmitter) sync() {
	n := len(e.Particles)
	for i, p := range e.Particles {
		e.position.SetVec3(i, p.Position)
		e.color.SetFloat32(i, 0, p.Color.R)
		e.color.SetFloat32(i, 1, p.Color.G)
		e.color.SetFloat32(i, 2, p.Color.B)
		e.color.SetFloat32(i, 3, p.Color.A)
		e.size.SetFloat32(i, 0, p.Size)
	}
	e.Node.Drawable.Geometry.DrawRange.Count = n
	if n == 0 {
		return
	}
	for _, a := range []*BufferAttribute{e.position, e.color, e.size} {
		a.AddUpdateRange(0, n*a.Stride())
		a.NeedsUpdate()
	}
}

// Count returns the number of live particles.
func (e *ParticleEmitter) Count() int { return len(e.Particles) }

func (e *ParticleEmitter) spawnParticle() {
	life := e.MinLife + e.rng.Float32()*(e.MaxLife-e.MinLife)
	speed := e.MinSpeed + e.rng.Float32()*(e.MaxSpeed-e.MinSpeed)
	dir := randomInCone(e.Direction, e.Spread, e.rng)
	e.Particles = append(e.Particles, Particle{
		Position: e.Position,
		Velocity: dir.Mul(speed),
		Life:     life,
		MaxLife:  life,
		Size:     e.MinSize,
		Color:    e.StartColor,
	})
}

// randomInCone returns a unit vector uniformly distributed over the spherical
// cap of half-angle spread around axis.
func randomInCone(axis mgl32.Vec3, spread float32, rng *rand.Rand) mgl32.Vec3 {
	phi := rng.Float64() * 2 * math.Pi
	cosMin := float32(math.Cos(float64(spread)))
	cosTheta := cosMin + rng.Float32()*(1-cosMin)
	sinTheta := float32(math.Sqrt(float64(1 - cosTheta*cosTheta)))

	up := mgl32.Vec3{0, 1, 0}
	if abs32(axis.Dot(up)) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	right := axis.Cross(up).Normalize()
	up = right.Cross(axis).Normalize()

	return axis.Mul(cosTheta).
		Add(right.Mul(sinTheta * float32(math.Cos(phi)))).
		Add(up.Mul(sinTheta * float32(math.Sin(phi)))).
		Normalize()
}

func lerpColor(a, b core.Color, t float32) core.Color {
	return core.Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}
