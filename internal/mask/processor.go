// Package mask provides grayscale blur and threshold primitives used
// by the Preprocessor's flat-field illumination correction.
package mask

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/gift"
)

// GaussianBlur applies a Gaussian blur to a grayscale image. sigma
// controls the blur radius (larger = more blur).
func GaussianBlur(mask *image.Gray, sigma float32) *image.Gray {
	g := gift.New(gift.GaussianBlur(sigma))
	dst := image.NewGray(g.Bounds(mask.Bounds()))
	g.Draw(dst, mask)
	return dst
}

// ApplyThreshold applies a binary threshold: values below threshold
// become 0, values at or above become 255.
func ApplyThreshold(mask *image.Gray, threshold uint8) *image.Gray {
	bounds := mask.Bounds()
	result := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			val := mask.GrayAt(x, y).Y
			if val >= threshold {
				result.SetGray(x, y, color.Gray{Y: 255})
			} else {
				result.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return result
}

// BoxBlur applies a box blur of the given radius using a sliding
// window sum, in two separable passes. O(1) per pixel regardless of
// radius, unlike a naive convolution.
func BoxBlur(mask *image.Gray, radius int) *image.Gray {
	if radius < 1 {
		bounds := mask.Bounds()
		dst := image.NewGray(bounds)
		copy(dst.Pix, mask.Pix)
		return dst
	}

	bounds := mask.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	temp := image.NewGray(bounds)
	for y := 0; y < height; y++ {
		sum := 0
		count := 0
		for x := -radius; x <= radius; x++ {
			if x >= 0 && x < width {
				sum += int(mask.Pix[y*mask.Stride+x])
				count++
			}
		}
		temp.Pix[y*temp.Stride] = uint8(sum / count)
		for x := 1; x < width; x++ {
			leftX := x - radius - 1
			if leftX >= 0 {
				sum -= int(mask.Pix[y*mask.Stride+leftX])
				count--
			}
			rightX := x + radius
			if rightX < width {
				sum += int(mask.Pix[y*mask.Stride+rightX])
				count++
			}
			temp.Pix[y*temp.Stride+x] = uint8(sum / count)
		}
	}

	dst := image.NewGray(bounds)
	for x := 0; x < width; x++ {
		sum := 0
		count := 0
		for y := -radius; y <= radius; y++ {
			if y >= 0 && y < height {
				sum += int(temp.Pix[y*temp.Stride+x])
				count++
			}
		}
		dst.Pix[x] = uint8(sum / count)
		for y := 1; y < height; y++ {
			topY := y - radius - 1
			if topY >= 0 {
				sum -= int(temp.Pix[topY*temp.Stride+x])
				count--
			}
			bottomY := y + radius
			if bottomY < height {
				sum += int(temp.Pix[bottomY*temp.Stride+x])
				count++
			}
			dst.Pix[y*dst.Stride+x] = uint8(sum / count)
		}
	}

	return dst
}

// BoxBlurSigma approximates a Gaussian blur of the given sigma with a
// 3-pass box blur (Burt's formula: r = sqrt(12*sigma^2/3 + 1)),
// substantially cheaper than a true Gaussian for the sigma values the
// flat-field background estimate uses.
func BoxBlurSigma(mask *image.Gray, sigma float32) *image.Gray {
	if sigma <= 0 {
		bounds := mask.Bounds()
		dst := image.NewGray(bounds)
		copy(dst.Pix, mask.Pix)
		return dst
	}

	sigmaSquared := float64(sigma) * float64(sigma)
	radius := int(math.Sqrt(12.0*sigmaSquared/3.0 + 1.0))
	if radius < 1 {
		radius = 1
	}

	result := BoxBlur(mask, radius)
	result = BoxBlur(result, radius)
	result = BoxBlur(result, radius)
	return result
}
