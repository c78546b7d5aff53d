package types

import "image"

// ToNRGBA renders an Image to a standard library image.NRGBA, for
// stages that need to hand pixels to an image/* based library (gift,
// the debug sink, test fixtures). Invalid pixels are written through
// unchanged; Valid is not representable in image.NRGBA.
func (img *Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := img.At(x, y)
			o := out.PixOffset(x, y)
			out.Pix[o+0] = clamp8(img.R[i])
			out.Pix[o+1] = clamp8(img.G[i])
			out.Pix[o+2] = clamp8(img.B[i])
			out.Pix[o+3] = 255
		}
	}
	return out
}

// FromNRGBA builds an Image from a standard library image.NRGBA, with
// every pixel marked valid.
func FromNRGBA(src *image.NRGBA) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			i := out.At(x, y)
			out.R[i] = float64(src.Pix[o+0]) / 255
			out.G[i] = float64(src.Pix[o+1]) / 255
			out.B[i] = float64(src.Pix[o+2]) / 255
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
