package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapwright/extractpipe/internal/types"
)

// splitImage builds a two-color image: the left half one solid color,
// the right half another, so quantization should yield exactly two
// well-separated bins.
func splitImage(w, h int) *types.Image {
	img := types.NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.At(x, y)
			if x < w/2 {
				img.R[i], img.G[i], img.B[i] = 0.2, 0.3, 0.8
			} else {
				img.R[i], img.G[i], img.B[i] = 0.9, 0.8, 0.1
			}
		}
	}
	return img
}

func baseColorConfig() types.ColorConfig {
	return types.ColorConfig{
		BinL: 10, BinA: 10, BinB: 10,
		TopNBins:       200,
		DominantRatio:  0.1,
		AccentMinRatio: 0.01,
		AccentMinDE:    20,
		MergeDE:        12,
		MaskDE:         10,
	}
}

func TestExtract_RejectsEmptyImage(t *testing.T) {
	_, err := Extract(types.NewImage(0, 0), types.ColorConfig{})
	require.Error(t, err)
}

func TestExtract_SeparatesTwoDominantColors(t *testing.T) {
	img := splitImage(20, 20)
	cfg := baseColorConfig()
	cfg.MinRegionPixels = 1

	layers, err := Extract(img, cfg)
	require.NoError(t, err)
	require.Len(t, layers, 2)

	assert.GreaterOrEqual(t, layers[0].PixelCount, layers[1].PixelCount)
	for _, l := range layers {
		assert.NotEmpty(t, l.Geometry)
		assert.NotEmpty(t, l.Name)
	}
}

func TestExtract_DropsLayersBelowMinRegionPixels(t *testing.T) {
	img := splitImage(20, 20)
	cfg := baseColorConfig()
	cfg.MinRegionPixels = 10_000

	layers, err := Extract(img, cfg)
	require.NoError(t, err)
	assert.Empty(t, layers)
}

func TestSelectBins_AccentsRespectMinSeparation(t *testing.T) {
	bins := map[int64]*types.ColorBin{
		1: {ID: 1, L: 50, A: 0, B: 0, Count: 100},
		2: {ID: 2, L: 51, A: 0, B: 0, Count: 80},
		3: {ID: 3, L: 10, A: 40, B: -30, Count: 60},
	}
	cfg := types.ColorConfig{
		TopNBins: 200, DominantRatio: 0.4, AccentMinRatio: 0.1, AccentMinDE: 20,
	}

	chosen := selectBins(bins, cfg)

	var ids []int64
	for _, c := range chosen {
		ids = append(ids, c.bin.ID)
	}
	assert.Contains(t, ids, int64(1))
	assert.Contains(t, ids, int64(3))
	assert.NotContains(t, ids, int64(2), "bin 2 is too close in ΔE00 to the dominant bin 1")
}

func TestSelectBins_FallbackFillsMinColors(t *testing.T) {
	bins := map[int64]*types.ColorBin{
		1: {ID: 1, L: 50, A: 0, B: 0, Count: 100},
		2: {ID: 2, L: 51, A: 0, B: 0, Count: 80},
		3: {ID: 3, L: 52, A: 0, B: 0, Count: 60},
	}
	cfg := types.ColorConfig{
		TopNBins: 200, DominantRatio: 0.3, AccentMinRatio: 0.01, AccentMinDE: 50,
		MinColorsFallback: 3,
	}

	chosen := selectBins(bins, cfg)
	assert.Len(t, chosen, 3)
}

func TestMergeBins_AbsorbsWithinMergeDE(t *testing.T) {
	chosen := []selected{
		{bin: &types.ColorBin{ID: 1, L: 50, A: 0, B: 0}, ratio: 0.5},
		{bin: &types.ColorBin{ID: 2, L: 51, A: 0, B: 0}, ratio: 0.3},
		{bin: &types.ColorBin{ID: 3, L: 10, A: 40, B: -30}, ratio: 0.2},
	}

	merged := mergeBins(chosen, 12)
	require.Len(t, merged, 2)
	assert.Equal(t, int64(1), merged[0].bin.ID)
	assert.InDelta(t, 0.8, merged[0].ratio, 1e-9)
	assert.Equal(t, int64(3), merged[1].bin.ID)
}

func TestAssignExclusive_LeavesFarPixelsUnassigned(t *testing.T) {
	lab := types.NewLabImage(2, 1)
	lab.L[0], lab.A[0], lab.B[0] = 50, 0, 0
	lab.L[1], lab.A[1], lab.B[1] = 90, 50, 50 // far from the only chosen center

	rgb := types.NewImage(2, 1)
	chosen := []selected{{bin: &types.ColorBin{ID: 1, L: 50, A: 0, B: 0}, ratio: 1}}

	masks, sums := assignExclusive(lab, rgb, chosen, 10)
	assert.True(t, masks[1][0])
	assert.False(t, masks[1][1])
	assert.Equal(t, 1, sums[1].n)
}
