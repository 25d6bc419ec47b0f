package players

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAvatarCropsFaceRegion(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x >= 8 && x < 16 && y >= 8 && y < 16 {
				src.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				src.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	avatarPNG, err := extractAvatar(buf.Bytes())
	require.NoError(t, err)

	avatar, err := png.Decode(bytes.NewReader(avatarPNG))
	require.NoError(t, err)
	assert.Equal(t, 8, avatar.Bounds().Dx())
	assert.Equal(t, 8, avatar.Bounds().Dy())

	r, g, b, a := avatar.At(0, 0).RGBA()
	assert.Greater(t, r, uint32(0))
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)
	assert.Greater(t, a, uint32(0))
}
