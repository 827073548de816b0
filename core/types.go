package core

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

type Color struct {
	R, G, B, A float32
}

var (
	ColorWhite  = Color{1, 1, 1, 1}
	ColorBlack  = Color{0, 0, 0, 1}
	ColorRed    = Color{1, 0, 0, 1}
	ColorGreen  = Color{0, 1, 0, 1}
	ColorBlue   = Color{0, 0, 1, 1}
	ColorYellow = Color{1, 1, 0, 1}
)

// Vec3 returns the RGB channels.
func (c Color) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{c.R, c.G, c.B}
}

func (c Color) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{c.R, c.G, c.B, c.A}
}

// Scale multiplies the RGB channels, leaving alpha untouched.
func (c Color) Scale(s float32) Color {
	return Color{c.R * s, c.G * s, c.B * s, c.A}
}

func (c Color) Add(o Color) Color {
	return Color{c.R + o.R, c.G + o.G, c.B + o.B, c.A}
}

// Rect is an integer pixel rectangle with a bottom-left origin.
type Rect struct {
	X, Y, Width, Height int
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Scale multiplies every component by s, rounding down.
func (r Rect) Scale(s float32) Rect {
	return Rect{
		X:      int(float32(r.X) * s),
		Y:      int(float32(r.Y) * s),
		Width:  int(float32(r.Width) * s),
		Height: int(float32(r.Height) * s),
	}
}

var idCounter atomic.Uint64

// NextID hands out process-wide unique ids for GPU-backed resources.
// Ids start at 1 so that zero can mean "unset".
func NextID() uint64 {
	return idCounter.Add(1)
}
