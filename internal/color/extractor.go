package color

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"github.com/mapwright/extractpipe/internal/cvutil"
	"github.com/mapwright/extractpipe/internal/geomrepair"
	"github.com/mapwright/extractpipe/internal/stageerr"
	"github.com/mapwright/extractpipe/internal/types"
	"github.com/paulmach/orb"
)

const stageName = "color"

// selected is a bin chosen as a dominant or accent color, holding the
// sum of its member pixels' RGB so a mean representative color can be
// computed after exclusive assignment.
type selected struct {
	bin              *types.ColorBin
	ratio            float64 // fraction of valid pixels the bin (and anything merged into it) accounts for
	sumR, sumG, sumB float64
	n                int
}

// Extract runs LAB quantization, dominant/accent selection, exclusive
// pixel assignment, and contour vectorization, producing one
// ColorLayer per surviving zone, ordered deterministically by
// descending pixel count then ascending bin ID.
func Extract(rgb *types.Image, cfg types.ColorConfig) ([]types.ColorLayer, error) {
	if rgb.Width == 0 || rgb.Height == 0 {
		return nil, stageerr.New(stageName, stageerr.KindInvalidConfig, "empty image", nil)
	}
	lab := ToLab(rgb)
	bins := Quantize(lab, cfg.BinL, cfg.BinA, cfg.BinB)
	if len(bins) == 0 {
		return nil, stageerr.New(stageName, stageerr.KindInsufficientData, "no valid pixels to quantize", nil)
	}

	chosen := selectBins(bins, cfg)
	if len(chosen) == 0 {
		// SelectionEmpty: fall back to the single top bin rather than
		// producing no layers at all.
		top := SortedBins(bins)[0]
		total := totalCount(bins)
		chosen = []selected{{bin: top, ratio: float64(top.Count) / float64(total)}}
	}
	chosen = mergeBins(chosen, cfg.MergeDE)

	assigned, sums := assignExclusive(lab, rgb, chosen, cfg.MaskDE)

	layers := make([]types.ColorLayer, 0, len(chosen))
	for _, c := range chosen {
		sum := sums[c.bin.ID]
		if sum.n < cfg.MinRegionPixels {
			continue
		}
		mask := assigned[c.bin.ID]
		geom, err := vectorizeMask(mask, rgb.Width, rgb.Height)
		if err != nil {
			return nil, stageerr.New(stageName, stageerr.KindInsufficientData, "vectorize layer", err)
		}
		if len(geom) == 0 {
			continue
		}
		meanR := uint8(clamp255(sum.sumR / float64(sum.n) * 255))
		meanG := uint8(clamp255(sum.sumG / float64(sum.n) * 255))
		meanB := uint8(clamp255(sum.sumB / float64(sum.n) * 255))
		layers = append(layers, types.ColorLayer{
			BinID:      c.bin.ID,
			L:          c.bin.L,
			A:          c.bin.A,
			B:          c.bin.B,
			R:          meanR,
			G:          meanG,
			B8:         meanB,
			Name:       NearestCSS4Name(meanR, meanG, meanB),
			PixelCount: sum.n,
			Geometry:   geom,
		})
	}

	sort.Slice(layers, func(i, j int) bool {
		if layers[i].PixelCount != layers[j].PixelCount {
			return layers[i].PixelCount > layers[j].PixelCount
		}
		return layers[i].BinID < layers[j].BinID
	})
	return layers, nil
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// selectBins retains the top TopNBins bins by count, then selects
// dominants (ratio >= DominantRatio) and accents (ratio in
// [AccentMinRatio, DominantRatio) whose ΔE00 to every already-selected
// center is >= AccentMinDE). If the result is short of
// MinColorsFallback, the accent ΔE floor is relaxed to half and more
// bins are added by descending ratio; if that still leaves it short,
// the remaining bins are added by descending ratio regardless of ΔE
// until the floor is met or the retained bins run out.
func selectBins(bins map[int64]*types.ColorBin, cfg types.ColorConfig) []selected {
	sorted := SortedBins(bins)
	total := totalCount(bins)

	topN := cfg.TopNBins
	if topN <= 0 || topN > len(sorted) {
		topN = len(sorted)
	}
	sorted = sorted[:topN]

	have := make(map[int64]bool, topN)
	var chosen []selected
	take := func(b *types.ColorBin) {
		chosen = append(chosen, selected{bin: b, ratio: float64(b.Count) / float64(total)})
		have[b.ID] = true
	}

	for _, b := range sorted {
		ratio := float64(b.Count) / float64(total)
		if ratio >= cfg.DominantRatio {
			take(b)
		}
	}

	for _, b := range sorted {
		if have[b.ID] {
			continue
		}
		ratio := float64(b.Count) / float64(total)
		if ratio < cfg.AccentMinRatio || ratio >= cfg.DominantRatio {
			continue
		}
		if farEnough(b, chosen, cfg.AccentMinDE) {
			take(b)
		}
	}

	if cfg.MinColorsFallback > 0 && len(chosen) < cfg.MinColorsFallback {
		relaxedDE := cfg.AccentMinDE / 2
		for _, b := range sorted {
			if len(chosen) >= cfg.MinColorsFallback {
				break
			}
			if have[b.ID] {
				continue
			}
			if farEnough(b, chosen, relaxedDE) {
				take(b)
			}
		}
		for _, b := range sorted {
			if len(chosen) >= cfg.MinColorsFallback {
				break
			}
			if !have[b.ID] {
				take(b)
			}
		}
	}
	return chosen
}

func totalCount(bins map[int64]*types.ColorBin) int {
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total == 0 {
		return 1
	}
	return total
}

func farEnough(cand *types.ColorBin, chosen []selected, minDE float64) bool {
	for _, c := range chosen {
		if DeltaE00(cand.L, cand.A, cand.B, c.bin.L, c.bin.A, c.bin.B) < minDE {
			return false
		}
	}
	return true
}

// mergeBins iteratively lets the highest-ratio unmerged selection
// absorb any other selection within MergeDE, summing ratios and
// keeping the absorbing (higher-ratio) center as the representative.
func mergeBins(chosen []selected, mergeDE float64) []selected {
	sort.Slice(chosen, func(i, j int) bool {
		if chosen[i].ratio != chosen[j].ratio {
			return chosen[i].ratio > chosen[j].ratio
		}
		return chosen[i].bin.ID < chosen[j].bin.ID
	})

	absorbed := make([]bool, len(chosen))
	for i := range chosen {
		if absorbed[i] {
			continue
		}
		for j := i + 1; j < len(chosen); j++ {
			if absorbed[j] {
				continue
			}
			a, b := chosen[i].bin, chosen[j].bin
			if DeltaE00(a.L, a.A, a.B, b.L, b.A, b.B) <= mergeDE {
				absorbed[j] = true
				chosen[i].ratio += chosen[j].ratio
			}
		}
	}

	out := make([]selected, 0, len(chosen))
	for i, a := range absorbed {
		if !a {
			out = append(out, chosen[i])
		}
	}
	return out
}

// assignExclusive assigns every valid pixel to its nearest chosen bin
// center by ΔE00, building one boolean mask per bin ID and accumulating
// each bin's RGB sum for the mean representative color. A pixel whose
// best ΔE00 exceeds maskDE is left unassigned in every mask, satisfying
// the exclusivity invariant: a pixel belongs to at most one bin, never
// the nearest bin regardless of distance.
func assignExclusive(lab *types.LabImage, rgb *types.Image, chosen []selected, maskDE float64) (map[int64][]bool, map[int64]*selected) {
	n := lab.Width * lab.Height
	masks := make(map[int64][]bool, len(chosen))
	sums := make(map[int64]*selected, len(chosen))
	for _, c := range chosen {
		masks[c.bin.ID] = make([]bool, n)
		s := c
		sums[c.bin.ID] = &s
	}

	for i := 0; i < n; i++ {
		if !lab.Valid[i] {
			continue
		}
		bestID := int64(0)
		bestDist := -1.0
		for _, c := range chosen {
			d := DeltaE00(lab.L[i], lab.A[i], lab.B[i], c.bin.L, c.bin.A, c.bin.B)
			if bestDist < 0 || d < bestDist || (d == bestDist && c.bin.ID < bestID) {
				bestDist = d
				bestID = c.bin.ID
			}
		}
		if bestDist > maskDE {
			continue
		}
		masks[bestID][i] = true
		s := sums[bestID]
		s.sumR += rgb.R[i]
		s.sumG += rgb.G[i]
		s.sumB += rgb.B[i]
		s.n++
	}
	return masks, sums
}

// vectorizeMask traces external contours on a binary mask and repairs
// each resulting ring into valid, non-self-intersecting polygons.
func vectorizeMask(mask []bool, width, height int) (orb.MultiPolygon, error) {
	mat := cvutil.MaskToMat(mask, width, height)
	defer mat.Close()

	contours, err := cvutil.FindContours(mat, gocv.RetrievalExternal)
	if err != nil {
		return nil, fmt.Errorf("find contours: %w", err)
	}

	var rings []orb.Ring
	for _, c := range contours {
		if len(c.Points) < 3 {
			continue
		}
		rings = append(rings, pointsToRing(c.Points))
	}
	return geomrepair.UnionPolygons(rings), nil
}

func pointsToRing(pts []image.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, orb.Point{float64(p.X), float64(p.Y)})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring
}
