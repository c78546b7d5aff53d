package types

import "github.com/paulmach/orb"

// Shape is a single contour-derived polygon from the shape extractor,
// carrying its pixel-space geometry and descriptive geometry statistics.
type Shape struct {
	ID            string
	Geometry      orb.Polygon // outer ring + holes, pixel space
	Area          float64     // px^2
	Perimeter     float64     // px
	BoundingBox   orb.Bound   // pixel space
	Centroid      orb.Point   // pixel space
	AspectRatio   float64
	Extent        float64 // area / bounding box area
	Solidity      float64 // area / convex hull area
	VertexCount   int
	DominantColor [3]uint8 // sampled sRGB, 0-255
	HasHoles      bool
}
