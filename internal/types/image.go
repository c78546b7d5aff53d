// Package types holds the core data model shared by every pipeline
// stage: raster images in both sRGB and CIELAB space, color bins and
// layers, extracted shapes, place points, control points, coordinate
// transforms, and the Feature/FeatureCollection/MapJob records that
// flow out of the orchestrator.
package types

// Image is a decoded raster in normalized sRGB space. Channel values lie
// in [0, 1]; Valid marks pixels that participate in downstream stages
// (false for out-of-canvas padding introduced by a transform, or pixels
// masked out upstream).
type Image struct {
	Width, Height int
	R, G, B       []float64
	Valid         []bool
}

// NewImage allocates an Image with all pixels valid.
func NewImage(width, height int) *Image {
	n := width * height
	valid := make([]bool, n)
	for i := range valid {
		valid[i] = true
	}
	return &Image{
		Width:  width,
		Height: height,
		R:      make([]float64, n),
		G:      make([]float64, n),
		B:      make([]float64, n),
		Valid:  valid,
	}
}

// At returns the index into the flat channel slices for pixel (x, y).
func (img *Image) At(x, y int) int {
	return y*img.Width + x
}

// InBounds reports whether (x, y) lies on the canvas.
func (img *Image) InBounds(x, y int) bool {
	return x >= 0 && x < img.Width && y >= 0 && y < img.Height
}

// LabImage is an Image converted to CIELAB (D65 reference white). Valid
// is shared semantics with Image: false pixels are excluded from
// quantization, mean/centroid computation, and ΔE00 comparisons.
type LabImage struct {
	Width, Height int
	L, A, B       []float64
	Valid         []bool
}

// NewLabImage allocates a LabImage with all pixels valid.
func NewLabImage(width, height int) *LabImage {
	n := width * height
	valid := make([]bool, n)
	for i := range valid {
		valid[i] = true
	}
	return &LabImage{
		Width:  width,
		Height: height,
		L:      make([]float64, n),
		A:      make([]float64, n),
		B:      make([]float64, n),
		Valid:  valid,
	}
}

func (img *LabImage) At(x, y int) int {
	return y*img.Width + x
}

func (img *LabImage) InBounds(x, y int) bool {
	return x >= 0 && x < img.Width && y >= 0 && y < img.Height
}
