package color

import (
	"math"
	"sort"

	"github.com/mapwright/extractpipe/internal/types"
)

// BinID packs a quantized (Lq, aq, bq) triple into a single comparable
// integer, following the original pipeline's packing scheme.
func BinID(lq, aq, bq int64) int64 {
	return lq*1_000_000 + aq*1_000 + bq
}

// Quantize builds the LAB bin histogram for a LabImage, skipping
// invalid pixels. cfg.BinL/A/B are the bin widths in LAB units.
func Quantize(lab *types.LabImage, binL, binA, binB float64) map[int64]*types.ColorBin {
	bins := make(map[int64]*types.ColorBin)
	for i := range lab.L {
		if !lab.Valid[i] {
			continue
		}
		lq := int64(math.Floor(lab.L[i] / binL))
		aq := int64(math.Floor((lab.A[i] + 128) / binA))
		bq := int64(math.Floor((lab.B[i] + 128) / binB))
		id := BinID(lq, aq, bq)

		bin, ok := bins[id]
		if !ok {
			bin = &types.ColorBin{
				ID: id,
				L:  (float64(lq) + 0.5) * binL,
				A:  (float64(aq)+0.5)*binA - 128,
				B:  (float64(bq)+0.5)*binB - 128,
			}
			bins[id] = bin
		}
		bin.Count++
	}
	return bins
}

// SortedBins returns the histogram's bins ordered by descending pixel
// count, breaking ties by ascending ID for determinism.
func SortedBins(bins map[int64]*types.ColorBin) []*types.ColorBin {
	out := make([]*types.ColorBin, 0, len(bins))
	for _, b := range bins {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	return out
}
