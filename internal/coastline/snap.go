package coastline

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/mapwright/extractpipe/internal/georef"
)

// mercDistanceKM returns the WebMercator-projected distance between two
// lon/lat points, in kilometers — the same metric the snapping
// thresholds are expressed in.
func mercDistanceKM(a, b orb.Point) float64 {
	ax, ay := georef.LonLatToMercator(a[0], a[1])
	bx, by := georef.LonLatToMercator(b[0], b[1])
	return math.Hypot(ax-bx, ay-by) / 1000.0
}

func nearSiftPoint(p orb.Point, siftPoints []orb.Point, proximityKM float64) bool {
	for _, sp := range siftPoints {
		if mercDistanceKM(p, sp) <= proximityKM {
			return true
		}
	}
	return false
}

func onCoastline(p orb.Point, idx *Index, maxDistanceKM float64) bool {
	nearest := idx.Nearest(p)
	return mercDistanceKM(p, nearest) <= maxDistanceKM
}

func snapPoint(p orb.Point, idx *Index, maxSnapDistanceKM float64) orb.Point {
	nearest := idx.Nearest(p)
	if mercDistanceKM(p, nearest) <= maxSnapDistanceKM {
		return nearest
	}
	return p
}

// snapResult reports how many of a ring's vertices were moved and how
// many were even considered coastline candidates, mirroring the
// per-feature counters the original pipeline attaches as properties.
type snapResult struct {
	Points           []orb.Point
	PointsSnapped    int
	CoastlinePoints  int
}

// snapRingSelective snaps only the vertices of ring that are BOTH near
// a SIFT marker point (indicating a coastline region) and actually
// close to the reference coastline (as opposed to an inland border
// that merely happens to sit near a marker). Vertices failing either
// gate pass through unchanged, so inland borders are preserved even
// when a marker sits nearby.
func snapRingSelective(ring []orb.Point, idx *Index, siftPoints []orb.Point, maxSnapDistanceKM, siftProximityKM float64) snapResult {
	out := make([]orb.Point, 0, len(ring))
	var result snapResult

	for _, p := range ring {
		candidate := nearSiftPoint(p, siftPoints, siftProximityKM)
		coastal := candidate && onCoastline(p, idx, maxSnapDistanceKM*2)

		if !coastal {
			out = append(out, p)
			continue
		}

		result.CoastlinePoints++
		snapped := snapPoint(p, idx, maxSnapDistanceKM)
		out = append(out, snapped)
		if snapped != p {
			result.PointsSnapped++
		}
	}

	result.Points = removeDuplicateConsecutive(out)
	return result
}

// removeDuplicateConsecutive drops consecutive near-duplicate vertices
// that snapping can introduce, since they would otherwise make the
// repaired ring self-intersect at a zero-length edge.
func removeDuplicateConsecutive(points []orb.Point) []orb.Point {
	if len(points) == 0 {
		return points
	}
	const tolerance = 1e-9
	cleaned := make([]orb.Point, 0, len(points))
	cleaned = append(cleaned, points[0])
	for _, p := range points[1:] {
		prev := cleaned[len(cleaned)-1]
		if math.Abs(p[0]-prev[0]) > tolerance || math.Abs(p[1]-prev[1]) > tolerance {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}
