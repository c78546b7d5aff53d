package preprocess

import "github.com/mapwright/extractpipe/internal/types"

// percentileNormalize linearly stretches each channel between its own
// pLow and pHigh percentile values, clamping the result to [0, 1].
func percentileNormalize(img *types.Image, pLow, pHigh float64) *types.Image {
	rLo, rHi := channelPercentile(img.R, img.Valid, pLow), channelPercentile(img.R, img.Valid, pHigh)
	gLo, gHi := channelPercentile(img.G, img.Valid, pLow), channelPercentile(img.G, img.Valid, pHigh)
	bLo, bHi := channelPercentile(img.B, img.Valid, pLow), channelPercentile(img.B, img.Valid, pHigh)

	out := types.NewImage(img.Width, img.Height)
	for i := range img.R {
		out.R[i] = stretch(img.R[i], rLo, rHi)
		out.G[i] = stretch(img.G[i], gLo, gHi)
		out.B[i] = stretch(img.B[i], bLo, bHi)
		out.Valid[i] = img.Valid[i]
	}
	return out
}

func stretch(v, lo, hi float64) float64 {
	if hi-lo < 1e-9 {
		return clampF(v, 0, 1)
	}
	return clampF((v-lo)/(hi-lo), 0, 1)
}
