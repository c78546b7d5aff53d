package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedExtension(t *testing.T) {
	assert.True(t, IsSupportedExtension(".png"))
	assert.True(t, IsSupportedExtension(".PPM"))
	assert.False(t, IsSupportedExtension(".gif"))
	assert.False(t, IsSupportedExtension(""))
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load("map.gif", []byte{0x47, 0x49, 0x46})
	require.Error(t, err)
}

func TestLoad_CorruptPNG(t *testing.T) {
	_, err := Load("map.png", []byte{0x89, 'P', 'N', 'G', 0, 0, 0})
	require.Error(t, err)
}

func TestLoad_PlainPGM(t *testing.T) {
	data := []byte("P2\n2 2\n255\n0 128\n255 64\n")
	img, err := Load("map.pgm", data)
	require.NoError(t, err)
	require.Equal(t, 2, img.Width)
	require.Equal(t, 2, img.Height)
	assert.InDelta(t, 0, img.R[img.At(0, 0)], 1e-6)
	assert.InDelta(t, 1, img.R[img.At(0, 1)], 0.05)
}

func TestLoad_PlainPPM(t *testing.T) {
	data := []byte("P3\n1 1\n255\n255 0 0\n")
	img, err := Load("map.ppm", data)
	require.NoError(t, err)
	assert.InDelta(t, 1, img.R[0], 1e-6)
	assert.InDelta(t, 0, img.G[0], 1e-6)
	assert.InDelta(t, 0, img.B[0], 1e-6)
}
