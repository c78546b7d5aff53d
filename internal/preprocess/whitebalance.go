package preprocess

import "github.com/mapwright/extractpipe/internal/types"

// whiteBalance corrects color cast with a per-channel gain: each
// channel's high-percentile value (the scan's "brightest material",
// standing in for the gray-world mean when the paper itself is the
// brightest thing on the page) is scaled to match the brightest
// channel's percentile, rather than letting each channel's gain drift
// independently.
func whiteBalance(img *types.Image, percentile float64) *types.Image {
	pr := channelPercentile(img.R, img.Valid, percentile)
	pg := channelPercentile(img.G, img.Valid, percentile)
	pb := channelPercentile(img.B, img.Valid, percentile)

	target := pr
	if pg > target {
		target = pg
	}
	if pb > target {
		target = pb
	}
	if target < 1e-6 {
		return img
	}

	gainR := gainTo(target, pr)
	gainG := gainTo(target, pg)
	gainB := gainTo(target, pb)

	out := types.NewImage(img.Width, img.Height)
	for i := range img.R {
		out.R[i] = clampF(img.R[i]*gainR, 0, 1)
		out.G[i] = clampF(img.G[i]*gainG, 0, 1)
		out.B[i] = clampF(img.B[i]*gainB, 0, 1)
		out.Valid[i] = img.Valid[i]
	}
	return out
}

func gainTo(target, value float64) float64 {
	if value < 1e-6 {
		return 1
	}
	return target / value
}
