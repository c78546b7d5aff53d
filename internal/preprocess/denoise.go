package preprocess

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/mapwright/extractpipe/internal/types"
)

// bilateralDenoise runs an edge-preserving bilateral filter over the
// image, sigmaColor and sigmaSpatial controlling how much intensity and
// spatial distance, respectively, a pixel tolerates before it stops
// contributing to its neighbor's smoothed value.
func bilateralDenoise(img *types.Image, sigmaColor, sigmaSpatial float64) (*types.Image, error) {
	src := imageToMat(img)
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	diameter := 9
	gocv.BilateralFilter(src, &dst, diameter, sigmaColor, sigmaSpatial)
	if dst.Empty() {
		return nil, fmt.Errorf("preprocess: bilateral filter produced empty mat")
	}
	return matToImage(dst, img), nil
}

// claheContrast applies contrast-limited adaptive histogram equalization
// to the image's LAB lightness channel, then recomposes with the
// original a/b chroma. tileSize is the side length, in pixels, of the
// square contextual region CLAHE equalizes independently.
func claheContrast(img *types.Image, clipLimit float64, tileSize int) (*types.Image, error) {
	lightness := lightnessMat(img)
	defer lightness.Close()

	clahe := gocv.NewCLAHEWithParams(clipLimit, tilePoint(tileSize))
	defer clahe.Close()

	equalized := gocv.NewMat()
	defer equalized.Close()
	clahe.Apply(lightness, &equalized)

	return applyLightness(img, equalized), nil
}
