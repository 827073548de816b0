package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-renderer/core"
	"frame-renderer/gpu"
	"frame-renderer/scene"
)

func TestTextureUploadAndRebind(t *testing.T) {
	c, dev := newCache(t)
	tex := scene.NewTexture("checker", 2, 2, make([]byte, 16))

	require.NoError(t, c.Textures.Update(tex, 3))
	assert.Equal(t, 1, dev.Count("TexImage2D"))
	assert.Equal(t, 1, dev.Count("GenerateMipmap"))
	assert.Equal(t, []any{3}, dev.Calls("ActiveTexture")[0].Args)

	dev.Reset()
	require.NoError(t, c.Textures.Update(tex, 3))
	assert.Zero(t, dev.Count("TexImage2D"))
	assert.Equal(t, 1, dev.Count("BindTexture"))

	tex.NeedsUpdate()
	require.NoError(t, c.Textures.Update(tex, 3))
	assert.Equal(t, 1, dev.Count("TexImage2D"))
	assert.Zero(t, dev.Count("CreateTexture"))
}

func TestCubeTextureUploadsSixFaces(t *testing.T) {
	c, dev := newCache(t)
	var faces [6][]byte
	for i := range faces {
		faces[i] = make([]byte, 4)
	}
	tex := scene.NewCubeTexture("sky", 1, faces)
	require.NoError(t, c.Textures.Update(tex, 0))

	calls := dev.Calls("TexImage2D")
	require.Len(t, calls, 6)
	assert.Equal(t, gpu.CubeFace(5), calls[5].Args[0])
	rec, _ := c.Textures.Get(tex)
	assert.Equal(t, gpu.TextureCubeMap, rec.Target)
	assert.Equal(t, 24, rec.Size)
}

func TestTextureResizeIsMismatch(t *testing.T) {
	c, _ := newCache(t)
	tex := scene.NewTexture("t", 2, 2, make([]byte, 16))
	require.NoError(t, c.Textures.Update(tex, 0))

	tex.Width, tex.Height = 4, 4
	tex.Pixels = make([]byte, 64)
	tex.NeedsUpdate()
	assert.ErrorIs(t, c.Textures.Update(tex, 0), core.ErrResourceSizeMismatch)
}

func TestTextureDispose(t *testing.T) {
	c, dev := newCache(t)
	tex := scene.NewSolidTexture("white", 255, 255, 255, 255)
	require.NoError(t, c.Textures.Update(tex, 0))
	assert.Equal(t, 1, c.Info().Textures)

	tex.Dispose()
	assert.Equal(t, 1, dev.Count("DeleteTexture"))
	assert.Zero(t, c.Info().Textures)
	assert.Zero(t, c.Info().TextureBytes)
}
