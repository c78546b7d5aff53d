package preprocess

import (
	colorpkg "github.com/mapwright/extractpipe/internal/color"
	"github.com/mapwright/extractpipe/internal/types"
)

// white is the CIELAB coordinate of pure white (L=100, a=b=0), the
// reference the paper-mask op measures every pixel's ΔE00 against.
const (
	whiteL = 100.0
	whiteA = 0.0
	whiteB = 0.0
)

// paperMask marks every pixel within deThreshold ΔE00 of white as
// background, AND-ing that exclusion into the image's validity mask
// rather than altering any channel value.
func paperMask(img *types.Image, deThreshold float64) *types.Image {
	out := types.NewImage(img.Width, img.Height)
	copy(out.R, img.R)
	copy(out.G, img.G)
	copy(out.B, img.B)
	for i := range img.R {
		l, a, b := colorpkg.RGBToLab(img.R[i], img.G[i], img.B[i])
		de := colorpkg.DeltaE00(l, a, b, whiteL, whiteA, whiteB)
		out.Valid[i] = img.Valid[i] && de > deThreshold
	}
	return out
}
