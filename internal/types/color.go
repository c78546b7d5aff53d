package types

import "github.com/paulmach/orb"

// ColorBin is one cell of the LAB quantization grid: every pixel whose
// (L, a, b) falls in the bin's range is counted here during the
// histogram pass, before dominant/accent selection.
type ColorBin struct {
	ID      int64   // Lq*1_000_000 + aq*1_000 + bq, see internal/color
	L, A, B float64 // bin center in LAB space
	Count   int
}

// ColorLayer is one exclusively-assigned color zone surviving dominant/
// accent selection, merge, and vectorization.
type ColorLayer struct {
	BinID      int64
	L, A, B    float64
	R, G, B8   uint8  // sRGB representative color, 0-255
	Name       string // nearest CSS4 color name
	PixelCount int
	Geometry   orb.MultiPolygon // pixel-space rings, one polygon per disjoint region
}
