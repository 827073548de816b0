// Package materials is a small library of ready-made scene materials.
package materials

import (
	"frame-renderer/core"
	"frame-renderer/scene"
)

// New creates a named material of the given kind with default values.
func New(name string, kind scene.MaterialKind) *scene.Material {
	m := scene.NewMaterial(kind)
	m.Name = name
	return m
}

// --- Default Material Library ---

// Default creates a standard grey material
func Default() *scene.Material {
	m := New("Default", scene.StandardMaterial)
	m.Color = core.Color{R: 0.8, G: 0.8, B: 0.8, A: 1}
	m.Roughness = 0.5
	return m
}

// Basic creates an unlit material of a flat color
func Basic(c core.Color) *scene.Material {
	m := New("Basic", scene.BasicMaterial)
	m.Color = c
	return m
}

// Metal creates a polished metallic material
func Metal(c core.Color) *scene.Material {
	m := New("Metal", scene.StandardMaterial)
	m.Color = c
	m.Metalness = 1
	m.Roughness = 0.2
	return m
}

// Plastic creates a glossy dielectric material
func Plastic(c core.Color) *scene.Material {
	m := New("Plastic", scene.PhongMaterial)
	m.Color = c
	m.Specular = core.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}
	m.Shininess = 80
	return m
}

// Emissive creates a self-illuminating material
func Emissive(r, g, b float32) *scene.Material {
	m := New("Emissive", scene.StandardMaterial)
	m.Color = core.Color{R: r, G: g, B: b, A: 1}
	m.Emissive = core.Color{R: r, G: g, B: b, A: 1}
	m.EmissiveIntensity = 2
	return m
}

// Glass creates a clear transmissive material. The scene behind it is
// sampled from the transmission target.
func Glass() *scene.Material {
	m := New("Glass", scene.PhysicalMaterial)
	m.Color = core.Color{R: 0.95, G: 0.97, B: 1, A: 1}
	m.Roughness = 0.05
	m.Transmission = 1
	m.Thickness = 0.5
	m.IOR = 1.5
	m.Side = scene.DoubleSide
	return m
}

// Ghost creates an alpha-blended material that does not write depth
func Ghost(c core.Color, opacity float32) *scene.Material {
	m := New("Ghost", scene.LambertMaterial)
	m.Color = c
	m.Transparent = true
	m.Opacity = opacity
	m.DepthWrite = false
	m.Side = scene.DoubleSide
	return m
}

// Wireframe creates an unlit material drawing triangle edges
func Wireframe(c core.Color) *scene.Material {
	m := New("Wireframe", scene.BasicMaterial)
	m.Color = c
	m.Wireframe = true
	return m
}

// ByName returns the preset called name with its default colors, or nil.
func ByName(name string) *scene.Material {
	switch name {
	case "default":
		return Default()
	case "basic":
		return Basic(core.ColorWhite)
	case "metal":
		return Metal(core.Color{R: 0.9, G: 0.9, B: 0.9, A: 1})
	case "plastic":
		return Plastic(core.ColorRed)
	case "emissive":
		return Emissive(1, 0.8, 0.3)
	case "glass":
		return Glass()
	case "ghost":
		return Ghost(core.ColorBlue, 0.4)
	case "wireframe":
		return Wireframe(core.ColorGreen)
	}
	return nil
}
