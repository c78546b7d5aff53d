package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapwright/extractpipe/internal/types"
)

func TestQuantize_SkipsInvalidPixels(t *testing.T) {
	lab := types.NewLabImage(2, 1)
	lab.L[0], lab.A[0], lab.B[0] = 50, 10, 10
	lab.L[1], lab.A[1], lab.B[1] = 50, 10, 10
	lab.Valid[1] = false

	bins := Quantize(lab, 10, 10, 10)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 1, total)
}

func TestQuantize_GroupsSameBin(t *testing.T) {
	lab := types.NewLabImage(3, 1)
	for i := range lab.L {
		lab.L[i], lab.A[i], lab.B[i] = 51, 11, 9
	}
	bins := Quantize(lab, 10, 10, 10)
	require.Len(t, bins, 1)
	for _, b := range bins {
		assert.Equal(t, 3, b.Count)
	}
}

func TestSortedBins_DescendingCountAscendingID(t *testing.T) {
	bins := map[int64]*types.ColorBin{
		5: {ID: 5, Count: 2},
		2: {ID: 2, Count: 5},
		9: {ID: 9, Count: 5},
	}
	sorted := SortedBins(bins)
	require.Len(t, sorted, 3)
	assert.Equal(t, int64(2), sorted[0].ID)
	assert.Equal(t, int64(9), sorted[1].ID)
	assert.Equal(t, int64(5), sorted[2].ID)
}

func TestBinID_Packing(t *testing.T) {
	assert.Equal(t, int64(1_002_003), BinID(1, 2, 3))
}
