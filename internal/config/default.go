// Package config holds the process-wide default parameter set every
// stage falls back to when a job doesn't override it, read once at
// startup the way the teacher's generate command reads its flag
// defaults through viper.
package config

import "github.com/mapwright/extractpipe/internal/types"

// Default returns the baseline Config a job runs with absent any
// per-job overrides.
func Default() types.Config {
	return types.Config{
		Preprocess: types.PreprocessConfig{
			MaxDimension: 4096,

			LinearizeEnabled: true,

			FlatFieldEnabled: true,
			FlatFieldSigma:   100,

			WhiteBalanceEnabled:    true,
			WhiteBalancePercentile: 99.5,

			DenoiseEnabled:      true,
			DenoiseSigmaColor:   5,
			DenoiseSigmaSpatial: 5,

			ClaheEnabled:   true,
			ClaheClipLimit: 2.0,
			ClaheTileSize:  8,

			PercentileNormalizeEnabled: true,
			PercentileLow:              1,
			PercentileHigh:             99,

			PaperMaskEnabled:     true,
			PaperMaskDEThreshold: 10,
		},
		Color: types.ColorConfig{
			BinL:              4,
			BinA:              8,
			BinB:              8,
			TopNBins:          200,
			DominantRatio:     0.001,
			AccentMinRatio:    0.0002,
			AccentMinDE:       20,
			MergeDE:           12,
			MaskDE:            10,
			MinRegionPixels:   50,
			MinColorsFallback: 0,
		},
		Shape: types.ShapeConfig{
			MinArea:           50,
			MaxArea:           100000,
			MaxAreaFraction:   0.5,
			MinVertexCount:    3,
			ApproxEpsilonFrac: 0.02,
			ExcludeTextMask:   false,
		},
		Text: types.TextConfig{
			Languages:      []string{"en"},
			EnableNGrams:   false,
			MaxNGramTokens: 4,
			MinMatchScore:  0.5,
		},
		Georef: types.GeorefConfig{
			PreferredKind:    "affine",
			RANSACEnabled:    true,
			RANSACThresholdM: 50,
			RANSACIterations: 200,
		},
		Coastline: types.CoastlineConfig{
			Enabled:           false,
			MaxSnapDistanceKM: 1.0,
			SiftProximityKM:   25.0,
		},
	}
}
