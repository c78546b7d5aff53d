package shape

import (
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/convexhull"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// ringArea is the unsigned planar area of a closed ring.
func ringArea(ring orb.Ring) float64 {
	return math.Abs(planar.Area(ring))
}

// ringPerimeter is the planar length of a closed ring's boundary.
func ringPerimeter(ring orb.Ring) float64 {
	return planar.Length(orb.LineString(ring))
}

// ringCentroid is the area-weighted centroid of a closed ring.
func ringCentroid(ring orb.Ring) orb.Point {
	c, _ := planar.CentroidArea(ring)
	return c
}

// convexHull returns the convex hull vertices of a point set, in
// image.Point form so callers working in pixel coordinates don't need
// to juggle two point types.
func convexHull(pts []image.Point) []image.Point {
	mp := make(orb.MultiPoint, len(pts))
	for i, p := range pts {
		mp[i] = orb.Point{float64(p.X), float64(p.Y)}
	}
	hull := convexhull.New(mp)
	ring, ok := hull.(orb.Ring)
	if !ok {
		if poly, ok := hull.(orb.Polygon); ok && len(poly) > 0 {
			ring = poly[0]
		}
	}
	out := make([]image.Point, len(ring))
	for i, p := range ring {
		out[i] = image.Point{X: int(p.X() + 0.5), Y: int(p.Y() + 0.5)}
	}
	return out
}

// douglasPeucker simplifies a closed ring to within the given pixel
// tolerance, matching the original pipeline's
// approxPolyDP(epsilon=0.02*perimeter) simplification.
func douglasPeucker(ring orb.Ring, epsilon float64) orb.Ring {
	if epsilon <= 0 || len(ring) < 4 {
		return ring
	}
	simplifier := simplify.DouglasPeucker(epsilon)
	simplified := simplifier.Simplify(ring.Clone())
	out, ok := simplified.(orb.Ring)
	if !ok || len(out) < 4 {
		return ring
	}
	return out
}
