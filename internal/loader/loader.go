// Package loader implements the Loader stage: decode a source raster
// into the pipeline's internal Image representation, rejecting
// unsupported formats and corrupt files with tagged errors.
package loader

import (
	"bytes"
	stdimage "image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/mapwright/extractpipe/internal/stageerr"
	"github.com/mapwright/extractpipe/internal/types"
)

const stageName = "loader"

// SupportedExtensions lists the file extensions this loader accepts,
// matching the original pipeline's upload validation.
var SupportedExtensions = []string{
	".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp", ".ppm", ".pgm", ".pbm",
}

// IsSupportedExtension reports whether ext (as returned by
// filepath.Ext, case-insensitive) is an accepted raster format.
func IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// Load decodes raw image bytes into an Image, dispatching on the file
// extension of name. name is used only to select a decoder; callers
// supply the bytes directly so the stage never touches the filesystem
// itself.
func Load(name string, data []byte) (*types.Image, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !IsSupportedExtension(ext) {
		return nil, stageerr.New(stageName, stageerr.KindUnsupportedFormat, "unsupported extension "+ext, nil)
	}

	var (
		img stdimage.Image
		err error
	)
	r := bytes.NewReader(data)

	switch ext {
	case ".jpg", ".jpeg", ".png":
		img, _, err = stdimage.Decode(r)
	case ".bmp":
		img, err = bmp.Decode(r)
	case ".tif", ".tiff":
		img, err = tiff.Decode(r)
	case ".webp":
		img, err = webp.Decode(r)
	case ".ppm", ".pgm", ".pbm":
		img, err = decodeNetPBM(r)
	default:
		return nil, stageerr.New(stageName, stageerr.KindUnsupportedFormat, "unsupported extension "+ext, nil)
	}
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, stageerr.New(stageName, stageerr.KindDecodeFailure, "truncated image data", err)
		}
		return nil, stageerr.New(stageName, stageerr.KindDecodeFailure, "decode failed", err)
	}

	return fromStdImage(img), nil
}

// fromStdImage converts a decoded image.Image into the pipeline's
// normalized-float Image, marking every pixel valid.
func fromStdImage(img stdimage.Image) *types.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := types.NewImage(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := out.At(x, y)
			out.R[i] = float64(r) / 65535
			out.G[i] = float64(g) / 65535
			out.B[i] = float64(b) / 65535
		}
	}
	return out
}
