package types

import "time"

// Config holds the typed, stage-by-stage tuning parameters for a
// MapJob. It is populated once at the CLI/config boundary and passed
// down unchanged; no stage reads from an untyped dict.
type Config struct {
	Preprocess PreprocessConfig
	Color      ColorConfig
	Shape      ShapeConfig
	Text       TextConfig
	Georef     GeorefConfig
	Coastline  CoastlineConfig
}

// PreprocessConfig controls internal/preprocess. Every op is individually
// toggleable and the pipeline always applies them in the fixed order
// linearize -> flat-field -> white-balance -> denoise -> clahe ->
// percentile-normalize -> paper-mask.
type PreprocessConfig struct {
	MaxDimension int // resize cap, 0 disables; not one of the seven ops, a practical pre-step

	LinearizeEnabled bool

	FlatFieldEnabled bool
	FlatFieldSigma   float64 // Gaussian blur sigma in px, default 100

	WhiteBalanceEnabled    bool
	WhiteBalancePercentile float64 // default 99.5

	DenoiseEnabled      bool
	DenoiseSigmaColor   float64
	DenoiseSigmaSpatial float64

	ClaheEnabled   bool
	ClaheClipLimit float64
	ClaheTileSize  int // square tile side in px, default 8

	PercentileNormalizeEnabled bool
	PercentileLow              float64 // default 1
	PercentileHigh             float64 // default 99

	PaperMaskEnabled   bool
	PaperMaskDEThreshold float64 // ΔE00-to-white threshold, default 10
}

// ColorConfig controls internal/color.
type ColorConfig struct {
	BinL, BinA, BinB float64 // LAB quantization bin widths

	TopNBins int // bins retained by count before selection, default 200

	DominantRatio   float64 // min pixel-ratio for a bin to become a dominant, default 0.001
	AccentMinRatio  float64 // min pixel-ratio for a bin to be considered as an accent
	AccentMinDE     float64 // min ΔE00 an accent must keep from every selected bin, default 20

	MergeDE float64 // bins within this ΔE00 of a higher-ratio selection merge into it, default 12
	MaskDE  float64 // pixels farther than this ΔE00 from every layer center go unassigned, default 10

	MinRegionPixels   int
	MinColorsFallback int // 0 disables the floor on distinct color count
}

// ShapeConfig controls internal/shape.
type ShapeConfig struct {
	MinArea           float64
	MaxArea           float64 // absolute area cap in px^2, 0 disables
	MaxAreaFraction   float64 // fraction of image area
	MinVertexCount    int
	ApproxEpsilonFrac float64 // fraction of perimeter, Douglas-Peucker
	ExcludeTextMask   bool
}

// TextConfig controls internal/text.
type TextConfig struct {
	Languages       []string
	EnableNGrams    bool
	MaxNGramTokens  int
	MinMatchScore   float64
}

// GeorefConfig controls internal/georef.
type GeorefConfig struct {
	PreferredKind string // "affine", "homography", "tps"
	RANSACEnabled bool
	RANSACThresholdM float64
	RANSACIterations int
}

// CoastlineConfig controls internal/coastline.
type CoastlineConfig struct {
	Enabled           bool
	MaxSnapDistanceKM float64
	SiftProximityKM   float64 // only vertices within this radius of a SIFT match are snapped, default 25
}

// JobState is the orchestrator's lifecycle state machine.
type JobState string

const (
	JobStatePending  JobState = "PENDING"
	JobStateProgress JobState = "PROGRESS"
	JobStateSuccess  JobState = "SUCCESS"
	JobStateFailure  JobState = "FAILURE"
)

// MapJob is a single extraction request: a source image, optional
// control points, and the typed configuration to run it with.
type MapJob struct {
	ID            string
	MapID         string
	ImagePath     string
	ControlPoints []ControlPoint
	Config        Config
	CreatedAt     time.Time
	// StartDate and EndDate describe the historical period the source
	// map depicts, e.g. "1842"; both are caller-supplied and may be
	// empty when unknown. They are copied onto every emitted Feature.
	StartDate string
	EndDate   string
}
