package georef

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapwright/extractpipe/internal/types"
)

func TestMercatorRoundTrip(t *testing.T) {
	cases := []struct{ lon, lat float64 }{
		{0, 0}, {9.73, 52.37}, {-74.0, 40.7}, {139.69, 35.68}, {-0.1, -33.9},
	}
	for _, c := range cases {
		x, y := LonLatToMercator(c.lon, c.lat)
		lon, lat := MercatorToLonLat(x, y)
		assert.InDelta(t, c.lon, lon, 1e-6)
		assert.InDelta(t, c.lat, lat, 1e-6)
	}
}

func TestMercatorClampsExtremeLatitude(t *testing.T) {
	xNorth, yNorth := LonLatToMercator(0, 89.9)
	_, yBeyond := LonLatToMercator(0, 89.999999)
	assert.InDelta(t, yNorth, yBeyond, 1e-3)
	_ = xNorth
}

// syntheticAffinePoints generates control points that exactly satisfy a
// known affine map, so the fitted parameters can be checked directly.
func syntheticAffinePoints() ([]types.ControlPoint, AffineParams) {
	params := AffineParams{A: 2, B: 0.1, Tx: 1000, C: -0.05, D: 1.8, Ty: -500}
	pixels := [][2]float64{{0, 0}, {100, 0}, {0, 100}, {100, 100}, {50, 25}}

	points := make([]types.ControlPoint, len(pixels))
	for i, p := range pixels {
		mx := params.A*p[0] + params.B*p[1] + params.Tx
		my := params.C*p[0] + params.D*p[1] + params.Ty
		lon, lat := MercatorToLonLat(mx, my)
		points[i] = types.ControlPoint{PixelX: p[0], PixelY: p[1], Lon: lon, Lat: lat}
	}
	return points, params
}

// AffineParams mirrors types.AffineTransform's fields for test
// construction without depending on its exported layout.
type AffineParams struct {
	A, B, Tx float64
	C, D, Ty float64
}

func TestFitAffine_RecoversKnownTransform(t *testing.T) {
	points, want := syntheticAffinePoints()

	got, err := FitAffine(points)
	require.NoError(t, err)

	assert.InDelta(t, want.A, got.A, 1e-4)
	assert.InDelta(t, want.B, got.B, 1e-4)
	assert.InDelta(t, want.Tx, got.Tx, 1e-2)
	assert.InDelta(t, want.C, got.C, 1e-4)
	assert.InDelta(t, want.D, got.D, 1e-4)
	assert.InDelta(t, want.Ty, got.Ty, 1e-2)
}

func TestFitAffine_RequiresMinimumPoints(t *testing.T) {
	_, err := FitAffine([]types.ControlPoint{{PixelX: 0, PixelY: 0}, {PixelX: 1, PixelY: 1}})
	require.Error(t, err)
}

func TestFitHomography_RecoversAffineAsDegenerateCase(t *testing.T) {
	points, want := syntheticAffinePoints()

	got, err := FitHomography(points)
	require.NoError(t, err)

	for _, p := range points {
		wantX := want.A*p.PixelX + want.B*p.PixelY + want.Tx
		wantY := want.C*p.PixelX + want.D*p.PixelY + want.Ty
		gotX, gotY := got.Apply(p.PixelX, p.PixelY)
		assert.InDelta(t, wantX, gotX, 1.0)
		assert.InDelta(t, wantY, gotY, 1.0)
	}
}

func TestFitTPS_InterpolatesControlPoints(t *testing.T) {
	points, _ := syntheticAffinePoints()

	tps, err := FitTPS(points)
	require.NoError(t, err)

	for _, p := range points {
		wantX, wantY := LonLatToMercator(p.Lon, p.Lat)
		gotX, gotY := tps.Apply(p.PixelX, p.PixelY)
		assert.InDelta(t, wantX, gotX, 1e-1)
		assert.InDelta(t, wantY, gotY, 1e-1)
	}
}

func TestFitTPS_RequiresMinimumPoints(t *testing.T) {
	_, err := FitTPS([]types.ControlPoint{{PixelX: 0, PixelY: 0}, {PixelX: 1, PixelY: 1}})
	require.Error(t, err)
}

func TestFit_DirectAffineByDefault(t *testing.T) {
	points, _ := syntheticAffinePoints()
	transform, err := Fit(points, types.GeorefConfig{PreferredKind: "affine"})
	require.NoError(t, err)
	assert.Equal(t, "affine", transform.Kind())
}

func TestFit_RANSACRejectsOutlier(t *testing.T) {
	points, want := syntheticAffinePoints()
	// Inject one wild outlier far from the true affine map.
	points = append(points, types.ControlPoint{PixelX: 50, PixelY: 50, Lon: 179, Lat: -85})

	transform, err := Fit(points, types.GeorefConfig{
		PreferredKind:    "affine",
		RANSACEnabled:    true,
		RANSACIterations: 100,
		RANSACThresholdM: 10,
	})
	require.NoError(t, err)

	mx, my := transform.Apply(50, 25)
	wantX := want.A*50 + want.B*25 + want.Tx
	wantY := want.C*50 + want.D*25 + want.Ty
	assert.InDelta(t, wantX, mx, 50)
	assert.InDelta(t, wantY, my, 50)
}

func TestSampleIndices_ReturnsDistinctIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	idx := sampleIndices(rng, 10, 3)
	seen := map[int]bool{}
	for _, i := range idx {
		assert.False(t, seen[i])
		seen[i] = true
		assert.True(t, i >= 0 && i < 10)
	}
}
