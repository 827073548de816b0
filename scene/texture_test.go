package scene

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frame-renderer/gpu"
)

func TestCheckerTextureCells(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	black := color.RGBA{0, 0, 0, 255}
	tex := NewCheckerTexture("checker", 16, white, black)

	require.Len(t, tex.Pixels, 16*16*4)
	assert.Equal(t, gpu.Repeat, tex.WrapS)
	at := func(x, y int) byte { return tex.Pixels[(y*16+x)*4] }
	assert.Equal(t, byte(255), at(0, 0))
	assert.Equal(t, byte(255), at(1, 1))
	assert.Equal(t, byte(0), at(2, 0))
	assert.Equal(t, byte(0), at(0, 2))
	assert.Equal(t, byte(255), at(2, 2))
}

func TestDecodeTexturePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	img.Set(1, 0, color.NRGBA{0, 0, 255, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	tex, err := DecodeTextureBytes("px", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, tex.Width)
	assert.Equal(t, 1, tex.Height)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 0, 255, 255}, tex.Pixels)
}

func TestTextureVersionBumps(t *testing.T) {
	tex := NewSolidTexture("s", 1, 2, 3, 4)
	v := tex.Version()
	tex.NeedsUpdate()
	assert.Greater(t, tex.Version(), v)
	assert.Equal(t, 4, tex.ByteSize())
}
