// Package geomrepair fixes up self-intersecting or duplicate-vertex
// polygon rings produced by mask vectorization, using a zero-buffer-
// equivalent union pass. This mirrors the two-step "vectorize then
// repair" approach the original pipeline performs with a buffer(0)
// call on shapely geometries (see DESIGN.md), implemented here with
// clipper2's polygon boolean engine since Go has no shapely analogue.
package geomrepair

import (
	"github.com/go-clipper/clipper2"
	"github.com/paulmach/orb"
)

// precisionScale converts floating pixel coordinates to the fixed-point
// integers clipper2 operates on, and back.
const precisionScale = 1000.0

func ringToPath(ring orb.Ring) clipper.Path64 {
	path := make(clipper.Path64, len(ring))
	for i, p := range ring {
		path[i] = clipper.Point64{
			X: int64(p[0] * precisionScale),
			Y: int64(p[1] * precisionScale),
		}
	}
	return path
}

func pathToRing(path clipper.Path64) orb.Ring {
	ring := make(orb.Ring, len(path))
	for i, p := range path {
		ring[i] = orb.Point{float64(p.X) / precisionScale, float64(p.Y) / precisionScale}
	}
	if len(ring) > 0 && !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring
}

// RepairRing self-unions a single ring to eliminate self-intersections
// and duplicate/collinear vertices, returning possibly multiple simple
// rings. If the union fails or yields nothing, the original ring is
// returned unchanged so callers can fall back rather than drop data.
func RepairRing(ring orb.Ring) []orb.Ring {
	if len(ring) < 4 {
		return []orb.Ring{ring}
	}
	subject := clipper.Paths64{ringToPath(ring)}
	result := clipper.Union(subject, clipper.Paths64{}, clipper.NonZero)
	if len(result) == 0 {
		return []orb.Ring{ring}
	}
	out := make([]orb.Ring, 0, len(result))
	for _, p := range result {
		if len(p) < 3 {
			continue
		}
		out = append(out, pathToRing(p))
	}
	if len(out) == 0 {
		return []orb.Ring{ring}
	}
	return out
}

// UnionPolygons merges a set of same-layer polygons (from multiple
// contours or overlapping bins) into a single repaired MultiPolygon.
func UnionPolygons(rings []orb.Ring) orb.MultiPolygon {
	if len(rings) == 0 {
		return nil
	}
	subject := make(clipper.Paths64, 0, len(rings))
	for _, r := range rings {
		subject = append(subject, ringToPath(r))
	}
	result := clipper.Union(subject, clipper.Paths64{}, clipper.NonZero)
	if len(result) == 0 {
		mp := make(orb.MultiPolygon, 0, len(rings))
		for _, r := range rings {
			mp = append(mp, orb.Polygon{r})
		}
		return mp
	}
	mp := make(orb.MultiPolygon, 0, len(result))
	for _, p := range result {
		if len(p) < 3 {
			continue
		}
		mp = append(mp, orb.Polygon{pathToRing(p)})
	}
	return mp
}
