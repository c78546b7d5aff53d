// Package coastline implements the Coastline Snapper stage: selective
// vertex snapping of georeferenced zone boundaries onto a reference
// coastline, gated by proximity to a marker control point so inland
// borders are left untouched.
package coastline

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// minRectSize keeps degenerate (horizontal or vertical) segment
// bounding boxes non-zero, which rtreego's Rect requires.
const minRectSize = 1e-9

// segment is a single reference-coastline edge, indexed by its
// bounding box for nearest-neighbor queries.
type segment struct {
	a, b orb.Point
}

func (s *segment) Bounds() rtreego.Rect {
	minX, maxX := s.a[0], s.b[0]
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := s.a[1], s.b[1]
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	lengths := []float64{maxX - minX, maxY - minY}
	if lengths[0] < minRectSize {
		lengths[0] = minRectSize
	}
	if lengths[1] < minRectSize {
		lengths[1] = minRectSize
	}
	rect, _ := rtreego.NewRect(rtreego.Point{minX, minY}, lengths)
	return rect
}

// Index is an R-tree over a reference coastline's segments, letting
// the snapper find the nearest reference edge to any boundary vertex
// in O(log n) rather than scanning every segment.
type Index struct {
	tree *rtreego.Rtree
}

// NewIndex builds a spatial index over every segment of every line in
// the reference coastline.
func NewIndex(reference orb.MultiLineString) *Index {
	tree := rtreego.NewTree(2, 25, 50)
	for _, line := range reference {
		for i := 0; i+1 < len(line); i++ {
			tree.Insert(&segment{a: line[i], b: line[i+1]})
		}
	}
	return &Index{tree: tree}
}

// Nearest returns the closest point on the reference coastline to p,
// found via the R-tree's nearest-neighbor search over segment bounding
// boxes and then an exact projection onto the winning segment.
func (idx *Index) Nearest(p orb.Point) orb.Point {
	spatial := rtreego.NearestNeighbor(rtreego.Point{p[0], p[1]}, idx.tree)
	if spatial == nil {
		return p
	}
	seg := spatial.(*segment)
	return closestPointOnSegment(p, seg.a, seg.b)
}

func closestPointOnSegment(p, a, b orb.Point) orb.Point {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return orb.Point{a[0] + t*dx, a[1] + t*dy}
}
