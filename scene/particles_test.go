package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticleEmitterSyncsLivePrefix(t *testing.T) {
	e := NewParticleEmitter(100)
	geo := e.Node.Drawable.Geometry
	assert.Equal(t, 0, geo.DrawRange.Count)

	pos := geo.Attribute("position")
	v := pos.Version()
	e.Update(0.5)

	require.Equal(t, 40, e.Count())
	assert.Equal(t, 40, geo.DrawRange.Count)
	assert.Equal(t, []Range{{Offset: 0, Length: 40 * 12}}, pos.UpdateRanges())
	assert.Greater(t, pos.Version(), v)
	assert.Equal(t, []Range{{Offset: 0, Length: 40 * 16}}, geo.Attribute("color").UpdateRanges())

	e.Active = false
	e.Update(10)
	assert.Equal(t, 0, e.Count())
	assert.Equal(t, 0, geo.DrawRange.Count)
}

func TestParticleEmitterRespectsPool(t *testing.T) {
	e := NewSmokeEmitter(5)
	e.Update(1)
	assert.Equal(t, 5, e.Count())
	assert.True(t, e.Node.Drawable.Material().Transparent)
	assert.Equal(t, NormalBlending, e.Node.Drawable.Material().Blending)
}
