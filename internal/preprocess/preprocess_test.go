package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapwright/extractpipe/internal/types"
)

func solidImage(w, h int, r, g, b float64) *types.Image {
	img := types.NewImage(w, h)
	for i := range img.R {
		img.R[i], img.G[i], img.B[i] = r, g, b
	}
	return img
}

func TestResizeCap_NoOpBelowLimit(t *testing.T) {
	img := solidImage(10, 10, 0.5, 0.5, 0.5)
	out := resizeCap(img, 20)
	assert.Same(t, img, out)
}

func TestResizeCap_ScalesDownLongestSide(t *testing.T) {
	img := solidImage(200, 100, 0.2, 0.4, 0.6)
	out := resizeCap(img, 100)
	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 50, out.Height)
}

func TestFlatFieldCorrect_UniformImageUnchanged(t *testing.T) {
	img := solidImage(40, 40, 0.8, 0.8, 0.8)
	out := flatFieldCorrect(img, 10)
	assert.InDelta(t, 0.8, out.R[out.At(20, 20)], 0.05)
}

func TestLinearize_RoundTripsThroughDelinearize(t *testing.T) {
	img := solidImage(4, 4, 0.2, 0.5, 0.9)
	out := delinearize(linearize(img))
	i := out.At(1, 1)
	assert.InDelta(t, 0.2, out.R[i], 1e-6)
	assert.InDelta(t, 0.5, out.G[i], 1e-6)
	assert.InDelta(t, 0.9, out.B[i], 1e-6)
}

func TestWhiteBalance_UniformImageUnchanged(t *testing.T) {
	img := solidImage(10, 10, 0.5, 0.5, 0.5)
	out := whiteBalance(img, 99.5)
	i := out.At(5, 5)
	assert.InDelta(t, 0.5, out.R[i], 1e-6)
	assert.InDelta(t, 0.5, out.G[i], 1e-6)
	assert.InDelta(t, 0.5, out.B[i], 1e-6)
}

func TestWhiteBalance_CorrectsColorCast(t *testing.T) {
	img := solidImage(10, 10, 0.4, 0.5, 0.6)
	out := whiteBalance(img, 99.5)
	i := out.At(5, 5)
	assert.InDelta(t, out.B[i], out.R[i], 1e-6)
	assert.InDelta(t, out.B[i], out.G[i], 1e-6)
}

func TestPercentileNormalize_StretchesRange(t *testing.T) {
	img := types.NewImage(10, 1)
	for i := range img.R {
		v := float64(i) / 9
		img.R[i], img.G[i], img.B[i] = v, v, v
	}
	out := percentileNormalize(img, 0, 100)
	assert.InDelta(t, 0, out.R[0], 1e-6)
	assert.InDelta(t, 1, out.R[9], 1e-6)
}

func TestPaperMask_ExcludesWhiteBackground(t *testing.T) {
	img := solidImage(4, 4, 1, 1, 1)
	out := paperMask(img, 10)
	for _, v := range out.Valid {
		assert.False(t, v)
	}
}

func TestPaperMask_KeepsSaturatedColor(t *testing.T) {
	img := solidImage(4, 4, 0.1, 0.2, 0.8)
	out := paperMask(img, 10)
	for _, v := range out.Valid {
		assert.True(t, v)
	}
}

func TestRun_RejectsEmptyImage(t *testing.T) {
	_, err := Run(types.NewImage(0, 0), types.PreprocessConfig{})
	require.Error(t, err)
}

func TestRun_NoOpsWhenDisabled(t *testing.T) {
	img := solidImage(8, 8, 0.3, 0.3, 0.3)
	out, err := Run(img, types.PreprocessConfig{})
	require.NoError(t, err)
	assert.Equal(t, img.Width, out.Width)
}

func TestRun_FullPipelineProducesValidImage(t *testing.T) {
	img := solidImage(32, 32, 0.6, 0.55, 0.5)
	cfg := types.PreprocessConfig{
		LinearizeEnabled:           true,
		FlatFieldEnabled:           true,
		FlatFieldSigma:             8,
		WhiteBalanceEnabled:        true,
		WhiteBalancePercentile:     99.5,
		DenoiseEnabled:             true,
		DenoiseSigmaColor:          5,
		DenoiseSigmaSpatial:        5,
		ClaheEnabled:               true,
		ClaheClipLimit:             2.0,
		ClaheTileSize:              8,
		PercentileNormalizeEnabled: true,
		PercentileLow:              1,
		PercentileHigh:             99,
		PaperMaskEnabled:           true,
		PaperMaskDEThreshold:       10,
	}
	out, err := Run(img, cfg)
	require.NoError(t, err)
	assert.Equal(t, img.Width, out.Width)
	assert.Equal(t, img.Height, out.Height)
	assert.Len(t, out.Valid, img.Width*img.Height)
}
