// Package color implements the Color Extractor stage: LAB
// quantization, dominant/accent bin selection by perceptual (ΔE00)
// separation, exclusive pixel assignment, and mask vectorization into
// polygon zones.
//
// No library in the reference corpus converts sRGB to CIELAB or
// computes CIEDE2000, so both are hand-rolled here from the standard
// CIE formulas (see DESIGN.md).
package color

import (
	"math"

	"github.com/mapwright/extractpipe/internal/types"
)

// D65 reference white in CIEXYZ, normalized so Y = 100.
const (
	refX = 95.047
	refY = 100.000
	refZ = 108.883
)

// srgbToLinear applies the sRGB electro-optical transfer inverse to a
// single channel in [0, 1].
func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// Linearize exposes the sRGB-to-linear transform for the Preprocessor's
// linearize op: threshold 0.04045, exponent 2.4.
func Linearize(c float64) float64 { return srgbToLinear(c) }

// Delinearize exposes the inverse transform, for converting a linear
// image back to sRGB.
func Delinearize(c float64) float64 { return linearToSRGB(c) }

// RGBToXYZ converts normalized sRGB (each channel in [0,1]) to CIEXYZ
// scaled to the D65 reference white used above.
func RGBToXYZ(r, g, b float64) (x, y, z float64) {
	r = srgbToLinear(r) * 100
	g = srgbToLinear(g) * 100
	b = srgbToLinear(b) * 100

	x = r*0.4124564 + g*0.3575761 + b*0.1804375
	y = r*0.2126729 + g*0.7151522 + b*0.0721750
	z = r*0.0193339 + g*0.1191920 + b*0.9503041
	return x, y, z
}

func labF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}

// XYZToLab converts CIEXYZ (D65-normalized as RGBToXYZ produces) to
// CIELAB.
func XYZToLab(x, y, z float64) (l, a, b float64) {
	fx := labF(x / refX)
	fy := labF(y / refY)
	fz := labF(z / refZ)

	l = 116*fy - 16
	a = 500 * (fx - fy)
	b = 200 * (fy - fz)
	return l, a, b
}

// RGBToLab converts normalized sRGB directly to CIELAB.
func RGBToLab(r, g, b float64) (l, a, bb float64) {
	x, y, z := RGBToXYZ(r, g, b)
	return XYZToLab(x, y, z)
}

func labFInv(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta {
		return t * t * t
	}
	return 3 * delta * delta * (t - 4.0/29.0)
}

// LabToXYZ is the inverse of XYZToLab.
func LabToXYZ(l, a, b float64) (x, y, z float64) {
	fy := (l + 16) / 116
	fx := fy + a/500
	fz := fy - b/200

	x = refX * labFInv(fx)
	y = refY * labFInv(fy)
	z = refZ * labFInv(fz)
	return x, y, z
}

func linearToSRGB(c float64) float64 {
	if c <= 0.0031308 {
		return c * 12.92
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

// XYZToRGB is the inverse of RGBToXYZ, returning normalized sRGB
// channels (not clamped to [0,1] — callers should clamp).
func XYZToRGB(x, y, z float64) (r, g, b float64) {
	x /= 100
	y /= 100
	z /= 100

	r = x*3.2404542 + y*-1.5371385 + z*-0.4985314
	g = x*-0.9692660 + y*1.8760108 + z*0.0415560
	b = x*0.0556434 + y*-0.2040259 + z*1.0572252

	return linearToSRGB(r), linearToSRGB(g), linearToSRGB(b)
}

// LabToRGB converts CIELAB directly to normalized sRGB.
func LabToRGB(l, a, b float64) (r, g, bb float64) {
	x, y, z := LabToXYZ(l, a, b)
	return XYZToRGB(x, y, z)
}

// ToLab converts an entire Image to a LabImage, preserving the Valid
// mask.
func ToLab(img *types.Image) *types.LabImage {
	out := types.NewLabImage(img.Width, img.Height)
	for i := range img.R {
		l, a, b := RGBToLab(img.R[i], img.G[i], img.B[i])
		out.L[i], out.A[i], out.B[i] = l, a, b
		out.Valid[i] = img.Valid[i]
	}
	return out
}
