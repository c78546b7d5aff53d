// Package shape implements the Shape Extractor stage: adaptive/simple
// binarization, contour-tree discovery, and per-contour geometric
// descriptor computation, following the OpenCV pipeline the original
// implementation used (adaptiveThreshold/findContours/moments/
// convexHull/approxPolyDP), ported onto gocv.
package shape

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"github.com/paulmach/orb"

	"github.com/mapwright/extractpipe/internal/cvutil"
	"github.com/mapwright/extractpipe/internal/geomrepair"
	"github.com/mapwright/extractpipe/internal/stageerr"
	"github.com/mapwright/extractpipe/internal/types"
)

const stageName = "shape"

// Extract binarizes the image to grayscale, finds the contour tree,
// filters by the configured geometric bounds, and computes descriptors
// for every surviving contour, returning shapes ordered by descending
// area then ascending centroid (x, then y) for determinism.
func Extract(img *types.Image, cfg types.ShapeConfig) ([]types.Shape, error) {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return nil, stageerr.New(stageName, stageerr.KindInvalidConfig, "empty image", nil)
	}

	gray := toGray(img)
	unique := countUniqueLevels(gray)

	binary := gocv.NewMatWithSize(img.Height, img.Width, gocv.MatTypeCV8U)
	defer binary.Close()

	grayMat := cvutil.GrayToMat(gray, img.Width, img.Height)
	defer grayMat.Close()

	if unique > 3 {
		gocv.AdaptiveThreshold(grayMat, &binary, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 11, 2)
	} else {
		gocv.Threshold(grayMat, &binary, 127, 255, gocv.ThresholdBinary)
	}

	contours, err := cvutil.FindContours(binary, gocv.RetrievalTree)
	if err != nil {
		return nil, stageerr.New(stageName, stageerr.KindInsufficientData, "find contours", err)
	}

	minArea := cfg.MinArea
	maxAreaFrac := cfg.MaxAreaFraction * float64(img.Width*img.Height)
	epsFrac := cfg.ApproxEpsilonFrac
	if epsFrac <= 0 {
		epsFrac = 0.02
	}

	shapes := make([]types.Shape, 0, len(contours))
	for i, c := range contours {
		if len(c.Points) < 3 {
			continue
		}
		if cfg.MinVertexCount > 0 && len(c.Points) < cfg.MinVertexCount {
			continue
		}

		s, err := describeContour(c.Points, img, epsFrac)
		if err != nil {
			continue
		}
		if s.Area < minArea {
			continue
		}
		if cfg.MaxArea > 0 && s.Area > cfg.MaxArea {
			continue
		}
		if maxAreaFrac > 0 && s.Area > maxAreaFrac {
			continue
		}
		s.HasHoles = hasChild(contours, i)
		s.ID = fmt.Sprintf("shape-%d", i)
		shapes = append(shapes, s)
	}

	sort.Slice(shapes, func(i, j int) bool {
		if shapes[i].Area != shapes[j].Area {
			return shapes[i].Area > shapes[j].Area
		}
		if shapes[i].Centroid.X() != shapes[j].Centroid.X() {
			return shapes[i].Centroid.X() < shapes[j].Centroid.X()
		}
		return shapes[i].Centroid.Y() < shapes[j].Centroid.Y()
	})
	return shapes, nil
}

func hasChild(contours []cvutil.Contour, parentIdx int) bool {
	for i, c := range contours {
		if i != parentIdx && c.Parent == parentIdx {
			return true
		}
	}
	return false
}

func toGray(img *types.Image) []uint8 {
	out := make([]uint8, img.Width*img.Height)
	for i := range out {
		// Rec. 601 luma.
		v := 0.299*img.R[i] + 0.587*img.G[i] + 0.114*img.B[i]
		out[i] = uint8(clampF(v, 0, 1) * 255)
	}
	return out
}

func countUniqueLevels(gray []uint8) int {
	seen := make(map[uint8]bool)
	for _, v := range gray {
		seen[v] = true
		if len(seen) > 3 {
			return len(seen)
		}
	}
	return len(seen)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// describeContour computes the geometric descriptors for one traced
// contour: area, perimeter, bounding box, aspect ratio, extent,
// centroid (with bounding-box-center fallback when moments are
// degenerate), convex hull solidity, simplified polygon, and dominant
// sampled color.
func describeContour(points []image.Point, img *types.Image, epsFrac float64) (types.Shape, error) {
	if len(points) < 3 {
		return types.Shape{}, fmt.Errorf("shape: contour has fewer than 3 points")
	}

	ring := pointsToRing(points)
	area := ringArea(ring)
	perimeter := ringPerimeter(ring)

	minX, minY, maxX, maxY := boundingBox(points)
	bboxW := float64(maxX - minX)
	bboxH := float64(maxY - minY)

	var aspect float64
	if bboxH > 0 {
		aspect = bboxW / bboxH
	}

	bboxArea := bboxW * bboxH
	var extent float64
	if bboxArea > 0 {
		extent = area / bboxArea
	}

	centroid := ringCentroid(ring)
	if centroid == (orb.Point{}) {
		// Degenerate moments (zero-area sliver): fall back to the
		// bounding box center, as the original pipeline does.
		centroid = orb.Point{float64(minX+maxX) / 2, float64(minY+maxY) / 2}
	}

	hull := convexHull(points)
	hullRing := pointsToRing(hull)
	hullArea := ringArea(hullRing)
	var solidity float64
	if hullArea > 0 {
		solidity = area / hullArea
	}

	simplified := douglasPeucker(ring, epsFrac*perimeter)
	repaired := geomrepair.RepairRing(simplified)
	poly := orb.Polygon{repaired[0]}

	dominant := sampleDominantColor(img, minX, minY, maxX, maxY)

	return types.Shape{
		Geometry:      poly,
		Area:          area,
		Perimeter:     perimeter,
		BoundingBox:   orb.Bound{Min: orb.Point{float64(minX), float64(minY)}, Max: orb.Point{float64(maxX), float64(maxY)}},
		Centroid:      centroid,
		AspectRatio:   aspect,
		Extent:        extent,
		Solidity:      solidity,
		VertexCount:   len(simplified),
		DominantColor: dominant,
	}, nil
}

func pointsToRing(pts []image.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, orb.Point{float64(p.X), float64(p.Y)})
	}
	if len(ring) > 0 && !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring
}

func boundingBox(pts []image.Point) (minX, minY, maxX, maxY int) {
	minX, minY = pts[0].X, pts[0].Y
	maxX, maxY = pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return
}

func sampleDominantColor(img *types.Image, minX, minY, maxX, maxY int) [3]uint8 {
	var sr, sg, sb float64
	n := 0
	for y := minY; y <= maxY && y < img.Height; y++ {
		if y < 0 {
			continue
		}
		for x := minX; x <= maxX && x < img.Width; x++ {
			if x < 0 {
				continue
			}
			i := img.At(x, y)
			sr += img.R[i]
			sg += img.G[i]
			sb += img.B[i]
			n++
		}
	}
	if n == 0 {
		return [3]uint8{0, 0, 0}
	}
	return [3]uint8{
		uint8(clampF(sr/float64(n), 0, 1) * 255),
		uint8(clampF(sg/float64(n), 0, 1) * 255),
		uint8(clampF(sb/float64(n), 0, 1) * 255),
	}
}
