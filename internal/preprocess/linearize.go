package preprocess

import (
	colorpkg "github.com/mapwright/extractpipe/internal/color"
	"github.com/mapwright/extractpipe/internal/types"
)

// linearize applies the sRGB electro-optical transfer inverse to every
// channel (threshold 0.04045, exponent 2.4), producing a linear-light
// image for the flat-field and white-balance arithmetic that follows it.
func linearize(img *types.Image) *types.Image {
	return mapChannels(img, colorpkg.Linearize)
}

// delinearize is linearize's inverse. The ops downstream of
// white-balance (denoise, CLAHE, percentile-normalize, paper-mask) all
// assume sRGB-like input, matching the stage's "returned Image is
// sRGB-ish [0,1] float" contract, so Run delinearizes immediately
// after white-balance runs.
func delinearize(img *types.Image) *types.Image {
	return mapChannels(img, colorpkg.Delinearize)
}

func mapChannels(img *types.Image, f func(float64) float64) *types.Image {
	out := types.NewImage(img.Width, img.Height)
	for i := range img.R {
		out.R[i] = clampF(f(img.R[i]), 0, 1)
		out.G[i] = clampF(f(img.G[i]), 0, 1)
		out.B[i] = clampF(f(img.B[i]), 0, 1)
		out.Valid[i] = img.Valid[i]
	}
	return out
}
