package preprocess

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// channelPercentile returns the value at the given percentile (0-100)
// of a channel's valid pixels, using gonum/stat's empirical quantile.
func channelPercentile(channel []float64, valid []bool, percentile float64) float64 {
	vals := make([]float64, 0, len(channel))
	for i, v := range channel {
		if valid[i] {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	return stat.Quantile(percentile/100, stat.Empirical, vals, nil)
}
