package programs

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"frame-renderer/core"
	"frame-renderer/lights"
	"frame-renderer/scene"
)

func TestUniformUploadsSkipEqualValues(t *testing.T) {
	c, dev := newCache()
	prog := acquire(t, c, scene.NewMaterial(scene.BasicMaterial), lights.Hash{}, Context{}, nil)
	u := prog.Uniforms()

	u.Set("diffuse", core.Color{R: 1, A: 1})
	u.Set("diffuse", core.Color{R: 1, A: 1})
	assert.Equal(t, 1, dev.Count("Uniform3f"))

	u.Set("diffuse", core.Color{G: 1, A: 1})
	assert.Equal(t, 2, dev.Count("Uniform3f"))

	u.Set("opacity", float32(0.5))
	u.Set("opacity", float32(0.5))
	assert.Equal(t, 1, dev.Count("Uniform1f"))

	u.Forget("opacity")
	u.Set("opacity", float32(0.5))
	assert.Equal(t, 2, dev.Count("Uniform1f"))
}

func TestUnusedUniformsAreIgnored(t *testing.T) {
	c, dev := newCache()
	prog := acquire(t, c, scene.NewMaterial(scene.BasicMaterial), lights.Hash{}, Context{}, nil)
	u := prog.Uniforms()

	assert.False(t, u.Has("noSuchUniform"))
	u.Set("noSuchUniform", float32(1))
	assert.Zero(t, dev.Count("Uniform1f"))

	assert.True(t, u.Has("modelViewMatrix"))
	assert.Equal(t, u.Location("modelViewMatrix"), u.Location("modelViewMatrix"))
}

func TestSliceUniformsCompareByContent(t *testing.T) {
	c, dev := newCache()
	prog := acquire(t, c, scene.NewMaterial(scene.BasicMaterial), lights.Hash{}, Context{}, nil)
	u := prog.Uniforms()

	mats := []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()}
	u.Set("modelMatrix", mats)
	mats[1] = mgl32.Translate3D(1, 0, 0)
	u.Set("modelMatrix", mats)
	u.Set("modelMatrix", mats)

	assert.Equal(t, 2, dev.Count("UniformMatrix4fv"))
}
