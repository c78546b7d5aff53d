package georef

import (
	"math"
	"math/rand"

	"github.com/mapwright/extractpipe/internal/types"
)

// Fit selects and runs the configured transform fit. When
// RANSACEnabled and enough control points are available, it robustly
// re-fits against the largest inlier consensus set before falling back
// to a direct fit over all points.
func Fit(points []types.ControlPoint, cfg types.GeorefConfig) (types.Transform, error) {
	minPoints := minPointsFor(cfg.PreferredKind)

	if cfg.RANSACEnabled && len(points) > minPoints {
		if t, ok := fitRANSAC(points, cfg); ok {
			return t, nil
		}
	}
	return fitDirect(points, cfg.PreferredKind)
}

func minPointsFor(kind string) int {
	switch kind {
	case "homography":
		return 4
	default:
		return 3
	}
}

func fitDirect(points []types.ControlPoint, kind string) (types.Transform, error) {
	switch kind {
	case "homography":
		return FitHomography(points)
	case "tps":
		return FitTPS(points)
	default:
		return FitAffine(points)
	}
}

// fitRANSAC repeatedly fits a transform from a minimal random sample
// and keeps the sample with the largest consensus set (residual below
// RANSACThresholdM meters in WebMercator space), re-fitting over that
// consensus at the end. Returns ok=false if no sample yields a usable
// transform.
func fitRANSAC(points []types.ControlPoint, cfg types.GeorefConfig) (types.Transform, bool) {
	minPoints := minPointsFor(cfg.PreferredKind)
	iterations := cfg.RANSACIterations
	if iterations <= 0 {
		iterations = 200
	}
	threshold := cfg.RANSACThresholdM
	if threshold <= 0 {
		threshold = 50
	}

	rng := rand.New(rand.NewSource(1))
	var bestInliers []int

	for iter := 0; iter < iterations; iter++ {
		sampleIdx := sampleIndices(rng, len(points), minPoints)
		sample := make([]types.ControlPoint, len(sampleIdx))
		for i, idx := range sampleIdx {
			sample[i] = points[idx]
		}

		t, err := fitDirect(sample, cfg.PreferredKind)
		if err != nil {
			continue
		}

		inliers := consensus(points, t, threshold)
		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
		}
	}

	if len(bestInliers) < minPoints {
		return nil, false
	}

	consensusPoints := make([]types.ControlPoint, len(bestInliers))
	for i, idx := range bestInliers {
		consensusPoints[i] = points[idx]
	}
	t, err := fitDirect(consensusPoints, cfg.PreferredKind)
	if err != nil {
		return nil, false
	}
	return t, true
}

func sampleIndices(rng *rand.Rand, n, k int) []int {
	perm := rng.Perm(n)
	return perm[:k]
}

func consensus(points []types.ControlPoint, t types.Transform, thresholdM float64) []int {
	var inliers []int
	for i, p := range points {
		mx, my := LonLatToMercator(p.Lon, p.Lat)
		px, py := t.Apply(p.PixelX, p.PixelY)
		dist := math.Hypot(mx-px, my-py)
		if dist <= thresholdM {
			inliers = append(inliers, i)
		}
	}
	return inliers
}
