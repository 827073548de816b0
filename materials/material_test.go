package materials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-renderer/scene"
)

func TestPresets(t *testing.T) {
	glass := Glass()
	assert.True(t, glass.IsTransmissive())
	assert.Equal(t, scene.DoubleSide, glass.Side)

	ghost := ByName("ghost")
	require.NotNil(t, ghost)
	assert.True(t, ghost.Transparent)
	assert.False(t, ghost.DepthWrite)
	assert.Equal(t, float32(0.4), ghost.Opacity)

	assert.True(t, ByName("wireframe").Wireframe)
	assert.Equal(t, float32(1), ByName("metal").Metalness)
	assert.Nil(t, ByName("velvet"))
}

func TestPresetsAreDistinct(t *testing.T) {
	a, b := Default(), Default()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "Default", a.Name)
}
