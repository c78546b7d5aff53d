// Package cvutil holds the small gocv/OpenCV glue shared by the Color
// Extractor and Shape Extractor stages: boolean-mask <-> gocv.Mat
// conversion and contour discovery.
package cvutil

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// MaskToMat renders a flat row-major boolean mask as an 8-bit
// single-channel gocv.Mat (255 where true, 0 elsewhere).
func MaskToMat(mask []bool, width, height int) gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mask[y*width+x] {
				mat.SetUCharAt(y, x, 255)
			}
		}
	}
	return mat
}

// GrayToMat copies an 8-bit grayscale image (row-major, 0-255) into a
// gocv.Mat of the same dimensions.
func GrayToMat(gray []uint8, width, height int) gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mat.SetUCharAt(y, x, gray[y*width+x])
		}
	}
	return mat
}

// Contour is one traced boundary with its parent index as reported by
// gocv's contour hierarchy (-1 for a top-level contour).
type Contour struct {
	Points []image.Point
	Parent int
}

// FindContours traces contours on a binary mask mat using the given
// retrieval mode, returning each contour's points and hierarchy parent
// index so callers can reconstruct holes when RetrievalTree is used.
func FindContours(mat gocv.Mat, mode gocv.RetrievalMode) ([]Contour, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("cvutil: FindContours on empty mat")
	}
	hierarchy := gocv.NewMat()
	defer hierarchy.Close()

	pts := gocv.FindContoursWithParams(mat, &hierarchy, mode, gocv.ChainApproxSimple)
	defer pts.Close()

	n := pts.Size()
	out := make([]Contour, 0, n)
	for i := 0; i < n; i++ {
		parent := -1
		if hierarchy.Cols() >= 4 && i < hierarchy.Rows()*hierarchy.Cols() {
			parent = int(hierarchy.GetIntAt(0, i*4+3))
		}
		out = append(out, Contour{
			Points: pts.At(i).ToPoints(),
			Parent: parent,
		})
	}
	return out, nil
}
