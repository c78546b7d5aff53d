package text

import "context"

// Token is a single word-like span the OCR adapter reported, with its
// pixel-space anchor position (the original token's bounding box
// center) and the engine's own confidence score.
type Token struct {
	Text       string
	X, Y       float64
	Confidence float64
}

// OCR is the external text-recognition adapter. The pipeline never
// preprocesses or mutates the source image for OCR purposes — the
// decoded Image is handed through unchanged and OCR output is consumed
// only as metadata (tokens in, PlacePoints out), per the design's
// explicit resolution that text detection never edits pixels.
type OCR interface {
	Recognize(ctx context.Context, imagePNG []byte, languages []string) ([]Token, error)
}
