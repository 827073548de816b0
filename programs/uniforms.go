package programs

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"frame-renderer/core"
	"frame-renderer/gpu"
)

// Uniforms resolves uniform locations lazily and remembers the last value
// uploaded to each, so repeated sets of an equal value cost nothing.
type Uniforms struct {
	device  gpu.Device
	program gpu.Program
	log     *zap.Logger

	locations map[string]int32
	values    map[string]any
}

func newUniforms(device gpu.Device, program gpu.Program, log *zap.Logger) *Uniforms {
	return &Uniforms{
		device:    device,
		program:   program,
		log:       log,
		locations: make(map[string]int32),
		values:    make(map[string]any),
	}
}

// Location returns the uniform location, or -1 when the program has no such uniform.
func (u *Uniforms) Location(name string) int32 {
	loc, ok := u.locations[name]
	if !ok {
		loc = u.device.UniformLocation(u.program, name)
		u.locations[name] = loc
	}
	return loc
}

// Has reports whether the program declares name.
func (u *Uniforms) Has(name string) bool {
	return u.Location(name) >= 0
}

// Set uploads v when the program uses name and v differs from the last
// uploaded value. Colors upload as vec3.
func (u *Uniforms) Set(name string, v any) {
	loc := u.Location(name)
	if loc < 0 {
		return
	}
	if prev, ok := u.values[name]; ok && equalValue(prev, v) {
		return
	}
	if !u.upload(loc, v) {
		u.log.Warn("unsupported uniform type", zap.String("uniform", name), zap.Any("value", v))
		return
	}
	u.values[name] = cloneValue(v)
}

// SetMatrices uploads a flat column-major mat4 array. Values are not
// remembered since bone palettes change every frame.
func (u *Uniforms) SetMatrices(name string, flat []float32) {
	if loc := u.Location(name); loc >= 0 && len(flat) >= 16 {
		u.device.UniformMatrix4fv(loc, flat)
	}
}

// Forget drops the remembered value of name so the next Set uploads.
func (u *Uniforms) Forget(name string) {
	delete(u.values, name)
}

func (u *Uniforms) upload(loc int32, v any) bool {
	d := u.device
	switch v := v.(type) {
	case bool:
		var i int32
		if v {
			i = 1
		}
		d.Uniform1i(loc, i)
	case int:
		d.Uniform1i(loc, int32(v))
	case int32:
		d.Uniform1i(loc, v)
	case float32:
		d.Uniform1f(loc, v)
	case float64:
		d.Uniform1f(loc, float32(v))
	case mgl32.Vec2:
		d.Uniform2f(loc, v[0], v[1])
	case mgl32.Vec3:
		d.Uniform3f(loc, v[0], v[1], v[2])
	case mgl32.Vec4:
		d.Uniform4f(loc, v[0], v[1], v[2], v[3])
	case core.Color:
		d.Uniform3f(loc, v.R, v.G, v.B)
	case mgl32.Mat3:
		d.UniformMatrix3fv(loc, v[:])
	case mgl32.Mat4:
		d.UniformMatrix4fv(loc, v[:])
	case []float32:
		d.Uniform1fv(loc, v)
	case []int32:
		d.Uniform1iv(loc, v)
	case []mgl32.Vec3:
		d.Uniform3fv(loc, flatten(v))
	case []mgl32.Vec4:
		d.Uniform4fv(loc, flatten(v))
	case []mgl32.Mat4:
		d.UniformMatrix4fv(loc, flatten(v))
	default:
		return false
	}
	return true
}

func flatten[T mgl32.Vec3 | mgl32.Vec4 | mgl32.Mat4](vs []T) []float32 {
	var out []float32
	for _, v := range vs {
		switch v := any(v).(type) {
		case mgl32.Vec3:
			out = append(out, v[:]...)
		case mgl32.Vec4:
			out = append(out, v[:]...)
		case mgl32.Mat4:
			out = append(out, v[:]...)
		}
	}
	return out
}

func equalValue(a, b any) bool {
	switch a := a.(type) {
	case []float32:
		b, ok := b.([]float32)
		return ok && slices.Equal(a, b)
	case []int32:
		b, ok := b.([]int32)
		return ok && slices.Equal(a, b)
	case []mgl32.Vec3:
		b, ok := b.([]mgl32.Vec3)
		return ok && slices.Equal(a, b)
	case []mgl32.Vec4:
		b, ok := b.([]mgl32.Vec4)
		return ok && slices.Equal(a, b)
	case []mgl32.Mat4:
		b, ok := b.([]mgl32.Mat4)
		return ok && slices.Equal(a, b)
	}
	switch b.(type) {
	case []float32, []int32, []mgl32.Vec3, []mgl32.Vec4, []mgl32.Mat4:
		return false
	}
	return a == b
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case []float32:
		return slices.Clone(v)
	case []int32:
		return slices.Clone(v)
	case []mgl32.Vec3:
		return slices.Clone(v)
	case []mgl32.Vec4:
		return slices.Clone(v)
	case []mgl32.Mat4:
		return slices.Clone(v)
	}
	return v
}
