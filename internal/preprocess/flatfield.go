package preprocess

import (
	"image"
	"image/color"

	"github.com/mapwright/extractpipe/internal/mask"
	"github.com/mapwright/extractpipe/internal/types"
)

// flatFieldCorrect estimates uneven paper/background illumination from
// a wide Gaussian blur of the image's luminance and divides every
// channel by that single estimate, rescaling to preserve the original
// mean luminance. Using one luminance-derived factor for all three
// channels (rather than a per-channel background) keeps the hue of the
// original scan intact while flattening vignetting and lighting
// gradients before color/shape extraction.
func flatFieldCorrect(img *types.Image, sigma float64) *types.Image {
	if sigma <= 0 {
		sigma = 100
	}

	lum := luminanceToGray(img)
	bg := mask.GaussianBlur(lum, float32(sigma))
	meanBg := meanGray(bg)

	out := types.NewImage(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := out.At(x, y)
			factor := float64(bg.GrayAt(x, y).Y) / 255

			out.R[i] = correctChannel(img.R[i], factor, meanBg)
			out.G[i] = correctChannel(img.G[i], factor, meanBg)
			out.B[i] = correctChannel(img.B[i], factor, meanBg)
			out.Valid[i] = img.Valid[i]
		}
	}
	return out
}

// luminanceToGray computes Rec. 709 luma into an 8-bit grayscale image,
// the input type mask's blur helpers operate on.
func luminanceToGray(img *types.Image) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := img.At(x, y)
			lum := 0.2126*img.R[i] + 0.7152*img.G[i] + 0.0722*img.B[i]
			gray.SetGray(x, y, color.Gray{Y: to8(lum)})
		}
	}
	return gray
}

func meanGray(g *image.Gray) float64 {
	bounds := g.Bounds()
	n := bounds.Dx() * bounds.Dy()
	if n == 0 {
		return 1
	}
	var sum int
	for _, v := range g.Pix {
		sum += int(v)
	}
	return float64(sum) / float64(n) / 255
}

func correctChannel(v, background, mean float64) float64 {
	if background < 1e-6 {
		return v
	}
	corrected := v / background * mean
	if corrected < 0 {
		return 0
	}
	if corrected > 1 {
		return 1
	}
	return corrected
}
