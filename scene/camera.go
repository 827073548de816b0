package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Projection int

const (
	Perspective Projection = iota
	Orthographic
)

// Camera is a projection attached to a scene node. The view matrix is the
// inverse of the node's world matrix.
type Camera struct {
	Node       *Node
	Projection Projection

	// Perspective parameters. Fov is the vertical field of view in degrees.
	Fov    float32
	Aspect float32
	// Orthographic parameters.
	Left, Right, Top, Bottom float32

	Near, Far float32
	Zoom      float32

	projection        mgl32.Mat4
	projectionInverse mgl32.Mat4
}

// NewPerspectiveCamera creates a camera node looking down -Z.
func NewPerspectiveCamera(fov, aspect, near, far float32) *Camera {
	c := &Camera{
		Projection: Perspective,
		Fov:        fov,
		Aspect:     aspect,
		Near:       near,
		Far:        far,
		Zoom:       1,
	}
	c.attach("PerspectiveCamera")
	return c
}

// NewOrthographicCamera creates an orthographic camera node looking down -Z.
func NewOrthographicCamera(left, right, top, bottom, near, far float32) *Camera {
	c := &Camera{
		Projection: Orthographic,
		Left:       left,
		Right:      right,
		Top:        top,
		Bottom:     bottom,
		Near:       near,
		Far:        far,
		Zoom:       1,
	}
	c.attach("OrthographicCamera")
	return c
}

func (c *Camera) attach(name string) {
	c.Node = NewNode(name)
	c.Node.Camera = c
	c.UpdateProjectionMatrix()
}

// UpdateAspectRatio updates the perspective aspect and rebuilds the projection.
func (c *Camera) UpdateAspectRatio(width, height float32) {
	if height > 0 {
		c.Aspect = width / height
		c.UpdateProjectionMatrix()
	}
}

// UpdateProjectionMatrix must be called after changing any projection parameter.
func (c *Camera) UpdateProjectionMatrix() {
	switch c.Projection {
	case Orthographic:
		dx := (c.Right - c.Left) / (2 * c.Zoom)
		dy := (c.Top - c.Bottom) / (2 * c.Zoom)
		cx := (c.Right + c.Left) / 2
		cy := (c.Top + c.Bottom) / 2
		c.projection = mgl32.Ortho(cx-dx, cx+dx, cy-dy, cy+dy, c.Near, c.Far)
	default:
		fov := 2 * float32(math.Atan(math.Tan(float64(mgl32.DegToRad(c.Fov))/2)/float64(c.Zoom)))
		c.projection = mgl32.Perspective(fov, c.Aspect, c.Near, c.Far)
	}
	c.projectionInverse = c.projection.Inv()
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return c.projection
}

func (c *Camera) ProjectionMatrixInverse() mgl32.Mat4 {
	return c.projectionInverse
}

// ViewMatrix returns the inverse of the camera node's world matrix.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return c.Node.WorldMatrix().Inv()
}

func (c *Camera) ViewProjectionMatrix() mgl32.Mat4 {
	return c.projection.Mul4(c.ViewMatrix())
}

// Frustum returns the world-space view frustum.
func (c *Camera) Frustum() Frustum {
	return FrustumFromMatrix(c.ViewProjectionMatrix())
}

func (c *Camera) Layers() Layers {
	return c.Node.Layers
}

func (c *Camera) Position() mgl32.Vec3 {
	return c.Node.WorldPosition()
}

// Orbit keeps a camera on a sphere around a target point.
type Orbit struct {
	Camera   *Camera
	Target   mgl32.Vec3
	Distance float32
	Yaw      float32
	Pitch    float32
}

func NewOrbit(camera *Camera, target mgl32.Vec3, distance float32) *Orbit {
	o := &Orbit{
		Camera:   camera,
		Target:   target,
		Distance: distance,
		Pitch:    0.3,
	}
	o.UpdatePosition()
	return o
}

func (o *Orbit) UpdatePosition() {
	o.Pitch = mgl32.Clamp(o.Pitch, -1.5, 1.5)

	cosPitch := float32(math.Cos(float64(o.Pitch)))
	sinPitch := float32(math.Sin(float64(o.Pitch)))
	cosYaw := float32(math.Cos(float64(o.Yaw)))
	sinYaw := float32(math.Sin(float64(o.Yaw)))

	offset := mgl32.Vec3{
		o.Distance * cosPitch * sinYaw,
		o.Distance * sinPitch,
		o.Distance * cosPitch * cosYaw,
	}
	o.Camera.Node.SetPosition(o.Target.Add(offset))
	o.Camera.Node.LookAt(o.Target)
}

func (o *Orbit) Rotate(deltaYaw, deltaPitch float32) {
	o.Yaw += deltaYaw
	o.Pitch += deltaPitch
	o.UpdatePosition()
}

func (o *Orbit) Zoom(delta float32) {
	o.Distance = max(o.Distance+delta, 0.1)
	o.UpdatePosition()
}
