package georef

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/mapwright/extractpipe/internal/stageerr"
	"github.com/mapwright/extractpipe/internal/types"
)

const stageName = "georef"

// FitAffine solves the 6-parameter affine least-squares system
//
//	A[2i]   = [x, y, 1, 0, 0, 0]   -> X
//	A[2i+1] = [0, 0, 0, x, y, 1]   -> Y
//
// exactly as the original pipeline's control-point fit, mapping pixel
// coordinates to WebMercator meters. At least 3 control points are
// required.
func FitAffine(points []types.ControlPoint) (types.AffineTransform, error) {
	n := len(points)
	if n < 3 {
		return types.AffineTransform{}, stageerr.New(stageName, stageerr.KindInvalidControlPoint,
			fmt.Sprintf("affine fit requires at least 3 control points, got %d", n), nil)
	}

	a := mat.NewDense(2*n, 6, nil)
	b := mat.NewDense(2*n, 1, nil)

	for i, p := range points {
		mx, my := LonLatToMercator(p.Lon, p.Lat)
		a.SetRow(2*i, []float64{p.PixelX, p.PixelY, 1, 0, 0, 0})
		a.SetRow(2*i+1, []float64{0, 0, 0, p.PixelX, p.PixelY, 1})
		b.Set(2*i, 0, mx)
		b.Set(2*i+1, 0, my)
	}

	var x mat.Dense
	if err := x.Solve(a, b); err != nil {
		return types.AffineTransform{}, stageerr.New(stageName, stageerr.KindSingularTransform, "affine least squares solve failed", err)
	}

	return types.AffineTransform{
		A: x.At(0, 0), B: x.At(1, 0), Tx: x.At(2, 0),
		C: x.At(3, 0), D: x.At(4, 0), Ty: x.At(5, 0),
	}, nil
}

// FitHomography solves the 8-parameter projective least-squares
// system for a planar homography mapping pixel coordinates to
// WebMercator meters. At least 4 control points are required.
func FitHomography(points []types.ControlPoint) (types.HomographyTransform, error) {
	n := len(points)
	if n < 4 {
		return types.HomographyTransform{}, stageerr.New(stageName, stageerr.KindInvalidControlPoint,
			fmt.Sprintf("homography fit requires at least 4 control points, got %d", n), nil)
	}

	// Direct Linear Transform: for each correspondence (x,y) -> (X,Y),
	//   X*(h6*x + h7*y + 1) = h0*x + h1*y + h2
	//   Y*(h6*x + h7*y + 1) = h3*x + h4*y + h5
	a := mat.NewDense(2*n, 8, nil)
	b := mat.NewDense(2*n, 1, nil)

	for i, p := range points {
		x, y := p.PixelX, p.PixelY
		mx, my := LonLatToMercator(p.Lon, p.Lat)

		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -mx * x, -mx * y})
		b.Set(2*i, 0, mx)

		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -my * x, -my * y})
		b.Set(2*i+1, 0, my)
	}

	var h mat.Dense
	if err := h.Solve(a, b); err != nil {
		return types.HomographyTransform{}, stageerr.New(stageName, stageerr.KindSingularTransform, "homography least squares solve failed", err)
	}

	return types.HomographyTransform{M: [9]float64{
		h.At(0, 0), h.At(1, 0), h.At(2, 0),
		h.At(3, 0), h.At(4, 0), h.At(5, 0),
		h.At(6, 0), h.At(7, 0), 1,
	}}, nil
}
