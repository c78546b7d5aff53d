package georef

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mapwright/extractpipe/internal/stageerr"
	"github.com/mapwright/extractpipe/internal/types"
)

// FitTPS solves a thin-plate-spline warp from pixel control points to
// WebMercator meters, independently for the X and Y output components
// — the same decomposition the original pipeline's scipy Rbf(function=
// "thin_plate") wrapper performs. At least 3 control points are
// required (the underlying system is singular below that).
func FitTPS(points []types.ControlPoint) (types.TPSTransform, error) {
	n := len(points)
	if n < 3 {
		return types.TPSTransform{}, stageerr.New(stageName, stageerr.KindInvalidControlPoint,
			"tps fit requires at least 3 control points", nil)
	}

	size := n + 3
	L := mat.NewDense(size, size, nil)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dx := points[i].PixelX - points[j].PixelX
			dy := points[i].PixelY - points[j].PixelY
			r2 := dx*dx + dy*dy
			u := 0.0
			if r2 > 0 {
				u = 0.5 * r2 * math.Log(r2)
			}
			L.Set(i, j, u)
		}
		L.Set(i, n, 1)
		L.Set(i, n+1, points[i].PixelX)
		L.Set(i, n+2, points[i].PixelY)
		L.Set(n, i, 1)
		L.Set(n+1, i, points[i].PixelX)
		L.Set(n+2, i, points[i].PixelY)
	}

	vx := mat.NewDense(size, 1, nil)
	vy := mat.NewDense(size, 1, nil)
	for i, p := range points {
		mx, my := LonLatToMercator(p.Lon, p.Lat)
		vx.Set(i, 0, mx)
		vy.Set(i, 0, my)
	}

	var solX, solY mat.Dense
	if err := solX.Solve(L, vx); err != nil {
		return types.TPSTransform{}, stageerr.New(stageName, stageerr.KindSingularTransform, "tps X solve failed", err)
	}
	if err := solY.Solve(L, vy); err != nil {
		return types.TPSTransform{}, stageerr.New(stageName, stageerr.KindSingularTransform, "tps Y solve failed", err)
	}

	ctrlX := make([]float64, n)
	ctrlY := make([]float64, n)
	wx := make([]float64, n)
	wy := make([]float64, n)
	for i, p := range points {
		ctrlX[i] = p.PixelX
		ctrlY[i] = p.PixelY
		wx[i] = solX.At(i, 0)
		wy[i] = solY.At(i, 0)
	}

	return types.TPSTransform{
		CtrlX: ctrlX, CtrlY: ctrlY,
		WX: wx, WY: wy,
		AX: [3]float64{solX.At(n, 0), solX.At(n+1, 0), solX.At(n+2, 0)},
		AY: [3]float64{solY.At(n, 0), solY.At(n+1, 0), solY.At(n+2, 0)},
	}, nil
}
