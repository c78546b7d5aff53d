// Package preprocess implements the Preprocessor stage: resize-cap
// followed by a fixed-order pipeline of seven individually-toggleable
// ops — linearize, flat-field, white-balance, denoise, CLAHE, percentile
// normalize, and paper-mask.
package preprocess

import (
	"image"

	"github.com/disintegration/gift"

	"github.com/mapwright/extractpipe/internal/stageerr"
	"github.com/mapwright/extractpipe/internal/types"
)

const stageName = "preprocess"

// Run applies the Preprocessor's op pipeline. Ordering is fixed:
// linearize -> flat-field -> white-balance -> denoise -> CLAHE-via-LAB
// -> percentile-normalize -> paper-mask; deviating from this order is a
// correctness bug, since flat-field and white-balance are meant to run
// in linear light while everything after them assumes sRGB-like
// values. The input Image is never mutated; the returned Image's Valid
// mask is the input's, AND-ed with the paper-mask's background
// exclusion when that op is enabled. resize-cap is a practical
// pre-step, not one of the seven ops, and always runs first so every
// later op sees a bounded image.
func Run(img *types.Image, cfg types.PreprocessConfig) (*types.Image, error) {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return nil, stageerr.New(stageName, stageerr.KindInvalidConfig, "empty image", nil)
	}

	out := img
	if cfg.MaxDimension > 0 {
		out = resizeCap(out, cfg.MaxDimension)
	}

	linear := cfg.LinearizeEnabled
	if linear {
		out = linearize(out)
	}
	if cfg.FlatFieldEnabled {
		out = flatFieldCorrect(out, cfg.FlatFieldSigma)
	}
	if cfg.WhiteBalanceEnabled {
		out = whiteBalance(out, cfg.WhiteBalancePercentile)
	}
	if linear {
		// Denoise, CLAHE, percentile-normalize, and paper-mask all
		// assume sRGB-like input (CLAHE and paper-mask both convert
		// through RGBToLab, which expects sRGB), matching the stage's
		// "returned Image is sRGB-ish" contract.
		out = delinearize(out)
	}

	if cfg.DenoiseEnabled {
		var err error
		out, err = bilateralDenoise(out, cfg.DenoiseSigmaColor, cfg.DenoiseSigmaSpatial)
		if err != nil {
			return nil, stageerr.New(stageName, stageerr.KindDecodeFailure, "denoise failed", err)
		}
	}
	if cfg.ClaheEnabled {
		var err error
		out, err = claheContrast(out, cfg.ClaheClipLimit, cfg.ClaheTileSize)
		if err != nil {
			return nil, stageerr.New(stageName, stageerr.KindDecodeFailure, "contrast normalize failed", err)
		}
	}
	if cfg.PercentileNormalizeEnabled {
		out = percentileNormalize(out, cfg.PercentileLow, cfg.PercentileHigh)
	}
	if cfg.PaperMaskEnabled {
		out = paperMask(out, cfg.PaperMaskDEThreshold)
	}
	return out, nil
}

// resizeCap downsamples the image so its longest side is at most max,
// preserving aspect ratio. Images already within the cap are returned
// unchanged.
func resizeCap(img *types.Image, max int) *types.Image {
	longest := img.Width
	if img.Height > longest {
		longest = img.Height
	}
	if longest <= max {
		return img
	}

	scale := float64(max) / float64(longest)
	newW := int(float64(img.Width)*scale + 0.5)
	newH := int(float64(img.Height)*scale + 0.5)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	src := img.ToNRGBA()
	g := gift.New(gift.Resize(newW, newH, gift.LinearResampling))
	dst := image.NewNRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return types.FromNRGBA(dst)
}
