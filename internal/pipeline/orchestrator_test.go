package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapwright/extractpipe/internal/gazetteer"
	"github.com/mapwright/extractpipe/internal/text"
	"github.com/mapwright/extractpipe/internal/types"
)

// noopOCR reports no tokens, exercising the path where text resolution
// legitimately finds nothing to resolve.
type noopOCR struct{}

func (noopOCR) Recognize(ctx context.Context, imagePNG []byte, languages []string) ([]text.Token, error) {
	return nil, nil
}

// failingOCR always errors, used to confirm OCR failures are tagged
// and propagated rather than silently swallowed.
type failingOCR struct{ err error }

func (f failingOCR) Recognize(ctx context.Context, imagePNG []byte, languages []string) ([]text.Token, error) {
	return nil, f.err
}

func syntheticPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := color.NRGBA{R: 60, G: 90, B: 200, A: 255}
			if x >= 8 {
				c = color.NRGBA{R: 220, G: 200, B: 40, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testConfig() types.Config {
	return types.Config{
		Color: types.ColorConfig{
			BinL: 100, BinA: 100, BinB: 100,
			DominantRatio:   0.01,
			MaskDE:          100,
			MinRegionPixels: 1,
		},
		Shape: types.ShapeConfig{
			MinArea:           1,
			MinVertexCount:    3,
			ApproxEpsilonFrac: 0.02,
		},
		Text: types.TextConfig{
			Languages:     []string{"en"},
			MinMatchScore: 0,
		},
		Georef: types.GeorefConfig{
			PreferredKind: "affine",
		},
	}
}

func testControlPoints() []types.ControlPoint {
	return []types.ControlPoint{
		{PixelX: 0, PixelY: 0, Lon: 9.70, Lat: 52.35},
		{PixelX: 16, PixelY: 0, Lon: 9.75, Lat: 52.35},
		{PixelX: 0, PixelY: 16, Lon: 9.70, Lat: 52.30},
	}
}

// recordingPersistence captures every feature it's handed, in call
// order, so tests can assert on emission order and cancellation cutoff.
type recordingPersistence struct {
	mu       sync.Mutex
	mapIDs   []string
	featured int
}

func (r *recordingPersistence) PersistFeature(mapID string, _ []byte, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mapIDs = append(r.mapIDs, mapID)
	r.featured++
	return nil
}

func (r *recordingPersistence) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.featured
}

// recordingProgress captures every Report call, in order.
type recordingProgress struct {
	mu      sync.Mutex
	reports []string
}

func (r *recordingProgress) Report(_ string, _, _ int, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, status)
}

func (r *recordingProgress) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reports) == 0 {
		return ""
	}
	return r.reports[len(r.reports)-1]
}

func TestRun_ProducesGeoreferencedFeatures(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(nil)
	orch := New(Resources{Gazetteer: gaz, OCR: noopOCR{}}, nil, nil)

	job := types.MapJob{
		ID:            "job-1",
		MapID:         "map-1",
		ImagePath:     "source.png",
		ControlPoints: testControlPoints(),
		Config:        testConfig(),
		CreatedAt:     time.Now(),
	}

	fc, err := orch.Run(context.Background(), job, syntheticPNG(t))
	require.NoError(t, err)

	for _, f := range fc.All() {
		assert.False(t, f.IsPixelSpace, "feature %s should be georeferenced", f.ID)
		assert.Equal(t, "EPSG:4326", f.CRS)
		assert.Equal(t, "map-1", f.MapID)
	}
}

// An unavailable OCR engine is a recoverable condition: the text stage
// is skipped and the job still succeeds with zone/shape features only.
func TestRun_SkipsTextStageWhenOCRUnavailable(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(nil)
	orch := New(Resources{Gazetteer: gaz, OCR: failingOCR{err: assert.AnError}}, nil, nil)

	job := types.MapJob{
		ID:            "job-2",
		MapID:         "map-1",
		ImagePath:     "source.png",
		ControlPoints: testControlPoints(),
		Config:        testConfig(),
	}

	fc, err := orch.Run(context.Background(), job, syntheticPNG(t))
	require.NoError(t, err)
	assert.Empty(t, fc.Places)
}

func TestRun_RejectsCancelledContext(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(nil)
	orch := New(Resources{Gazetteer: gaz, OCR: noopOCR{}}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := types.MapJob{
		ID:            "job-3",
		MapID:         "map-1",
		ImagePath:     "source.png",
		ControlPoints: testControlPoints(),
		Config:        testConfig(),
	}

	_, err := orch.Run(ctx, job, syntheticPNG(t))
	require.Error(t, err)
}

// Fewer than 3 control points can't fit even the minimal affine
// transform: georeferencing is a recoverable stage failure, so the job
// still succeeds, with zones and shapes left in pixel space.
func TestRun_ContinuesInPixelSpaceOnInsufficientControlPoints(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(nil)
	orch := New(Resources{Gazetteer: gaz, OCR: noopOCR{}}, nil, nil)

	job := types.MapJob{
		ID:        "job-5",
		MapID:     "map-1",
		ImagePath: "source.png",
		ControlPoints: []types.ControlPoint{
			{PixelX: 0, PixelY: 0, Lon: 9.70, Lat: 52.35},
		},
		Config: testConfig(),
	}

	fc, err := orch.Run(context.Background(), job, syntheticPNG(t))
	require.NoError(t, err)
	require.NotEmpty(t, fc.Zones)
	for _, f := range fc.Zones {
		assert.True(t, f.IsPixelSpace)
	}
}

func TestRun_PersistsFeaturesAsStagesComplete(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(nil)
	persistence := &recordingPersistence{}
	orch := New(Resources{Gazetteer: gaz, OCR: noopOCR{}}, nil, nil)
	orch.WithSinks(nil, persistence)

	job := types.MapJob{
		ID:            "job-6",
		MapID:         "map-1",
		ImagePath:     "source.png",
		ControlPoints: testControlPoints(),
		Config:        testConfig(),
	}

	fc, err := orch.Run(context.Background(), job, syntheticPNG(t))
	require.NoError(t, err)

	// Zones and shapes are persisted once pixel-space and once more
	// after georeferencing; places persist once, already in WGS84.
	expected := 2*len(fc.Zones) + 2*len(fc.Shapes) + len(fc.Places)
	assert.Equal(t, expected, persistence.count())
}

func TestRun_ReportsProgressThroughSuccess(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(nil)
	progress := &recordingProgress{}
	orch := New(Resources{Gazetteer: gaz, OCR: noopOCR{}}, nil, nil)
	orch.WithSinks(progress, nil)

	job := types.MapJob{
		ID:            "job-7",
		MapID:         "map-1",
		ImagePath:     "source.png",
		ControlPoints: testControlPoints(),
		Config:        testConfig(),
	}

	_, err := orch.Run(context.Background(), job, syntheticPNG(t))
	require.NoError(t, err)
	assert.Equal(t, string(types.JobStateSuccess), progress.last())
}

func TestRun_ReportsFailureOnCancellation(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(nil)
	progress := &recordingProgress{}
	orch := New(Resources{Gazetteer: gaz, OCR: noopOCR{}}, nil, nil)
	orch.WithSinks(progress, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := types.MapJob{
		ID:            "job-8",
		MapID:         "map-1",
		ImagePath:     "source.png",
		ControlPoints: testControlPoints(),
		Config:        testConfig(),
	}

	_, err := orch.Run(ctx, job, syntheticPNG(t))
	require.Error(t, err)
	assert.Equal(t, string(types.JobStateFailure), progress.last())
}

func TestRun_CapturesDebugArtifactsWhenSinkProvided(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(nil)
	sink := NewDebugSink()
	orch := New(Resources{Gazetteer: gaz, OCR: noopOCR{}}, sink, nil)

	job := types.MapJob{
		ID:            "job-4",
		MapID:         "map-1",
		ImagePath:     "source.png",
		ControlPoints: testControlPoints(),
		Config:        testConfig(),
	}

	_, err := orch.Run(context.Background(), job, syntheticPNG(t))
	require.NoError(t, err)
	assert.NotEmpty(t, sink.Artifacts())
}
