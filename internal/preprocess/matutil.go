package preprocess

import (
	"image"

	"gocv.io/x/gocv"

	colorpkg "github.com/mapwright/extractpipe/internal/color"
	"github.com/mapwright/extractpipe/internal/types"
)

// imageToMat packs an Image's RGB channels into an 8-bit 3-channel
// gocv.Mat for consumption by OpenCV filter operations.
func imageToMat(img *types.Image) gocv.Mat {
	mat := gocv.NewMatWithSize(img.Height, img.Width, gocv.MatTypeCV8UC3)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := img.At(x, y)
			mat.SetUCharAt3(y, x, 0, to8(img.R[i]))
			mat.SetUCharAt3(y, x, 1, to8(img.G[i]))
			mat.SetUCharAt3(y, x, 2, to8(img.B[i]))
		}
	}
	return mat
}

// matToImage unpacks an 8-bit 3-channel gocv.Mat back into an Image,
// copying the Valid mask from the original source image.
func matToImage(mat gocv.Mat, ref *types.Image) *types.Image {
	out := types.NewImage(ref.Width, ref.Height)
	for y := 0; y < ref.Height; y++ {
		for x := 0; x < ref.Width; x++ {
			i := out.At(x, y)
			out.R[i] = float64(mat.GetUCharAt3(y, x, 0)) / 255
			out.G[i] = float64(mat.GetUCharAt3(y, x, 1)) / 255
			out.B[i] = float64(mat.GetUCharAt3(y, x, 2)) / 255
			out.Valid[i] = ref.Valid[i]
		}
	}
	return out
}

// lightnessMat extracts the CIELAB L channel, scaled to 0-255, as a
// single-channel Mat for CLAHE.
func lightnessMat(img *types.Image) gocv.Mat {
	mat := gocv.NewMatWithSize(img.Height, img.Width, gocv.MatTypeCV8U)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := img.At(x, y)
			l, _, _ := colorpkg.RGBToLab(img.R[i], img.G[i], img.B[i])
			mat.SetUCharAt(y, x, uint8(clampF(l*2.55, 0, 255)))
		}
	}
	return mat
}

// applyLightness reconstructs an Image using equalized is a new L
// channel (0-255) while keeping the source's a/b chroma unchanged.
func applyLightness(img *types.Image, equalized gocv.Mat) *types.Image {
	out := types.NewImage(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := img.At(x, y)
			_, a, b := colorpkg.RGBToLab(img.R[i], img.G[i], img.B[i])
			l := float64(equalized.GetUCharAt(y, x)) / 2.55
			x2, y2, z2 := colorpkg.LabToXYZ(l, a, b)
			r, g, bb := colorpkg.XYZToRGB(x2, y2, z2)
			out.R[i] = clampF(r, 0, 1)
			out.G[i] = clampF(g, 0, 1)
			out.B[i] = clampF(bb, 0, 1)
			out.Valid[i] = img.Valid[i]
		}
	}
	return out
}

func tilePoint(tileSize int) image.Point {
	if tileSize <= 0 {
		tileSize = 8
	}
	return image.Point{X: tileSize, Y: tileSize}
}

func to8(v float64) uint8 { return uint8(clampF(v, 0, 1) * 255) }

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
