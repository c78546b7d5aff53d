// Package pipeline wires the Loader, Preprocessor, Color Extractor,
// Shape Extractor, Text/Place Resolver, Georeferencer, and optional
// Coastline Snapper into the single stage sequence a MapJob runs
// through, following the same sequential fetch/transform/encode shape
// the teacher's tile Generator used, generalized from tile rendering
// to raster-to-vector extraction.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/mapwright/extractpipe/internal/color"
	"github.com/mapwright/extractpipe/internal/coastline"
	"github.com/mapwright/extractpipe/internal/gazetteer"
	"github.com/mapwright/extractpipe/internal/geojson"
	"github.com/mapwright/extractpipe/internal/georef"
	"github.com/mapwright/extractpipe/internal/loader"
	"github.com/mapwright/extractpipe/internal/preprocess"
	"github.com/mapwright/extractpipe/internal/shape"
	"github.com/mapwright/extractpipe/internal/stageerr"
	"github.com/mapwright/extractpipe/internal/text"
	"github.com/mapwright/extractpipe/internal/types"
)

const stageName = "orchestrator"

// Resources bundles the external adapters a job needs that aren't part
// of its own Config: the gazetteer lookup, the OCR engine, and the
// optional reference coastline used by the Snapper. All three may be
// shared across concurrently running jobs.
type Resources struct {
	Gazetteer      gazetteer.Gazetteer
	OCR            text.OCR
	CoastlineIndex *coastline.Index // nil disables coastline snapping regardless of Config.Coastline.Enabled
	SiftPoints     []orb.Point      // detected shoreline marker positions, WGS84 lon/lat
}

// Orchestrator runs a MapJob through every extraction stage in order,
// optionally recording intermediate artifacts to a DebugSink, reporting
// PENDING/PROGRESS/SUCCESS/FAILURE transitions to a ProgressSink, and
// persisting each stage's features to a PersistenceSink as soon as
// they're produced. Progress and Persistence are both optional; a nil
// sink simply means the orchestrator doesn't report or persist.
type Orchestrator struct {
	Resources   Resources
	Debug       *DebugSink
	Progress    ProgressSink
	Persistence PersistenceSink
	Logger      *slog.Logger
}

// New builds an Orchestrator. A nil logger falls back to slog.Default.
func New(resources Resources, debug *DebugSink, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{Resources: resources, Debug: debug, Logger: logger}
}

// WithSinks attaches a progress and/or persistence sink, returning the
// same Orchestrator for chaining. Either argument may be nil.
func (o *Orchestrator) WithSinks(progress ProgressSink, persistence PersistenceSink) *Orchestrator {
	o.Progress = progress
	o.Persistence = persistence
	return o
}

// totalStages returns the number of PROGRESS boundaries this job will
// report, for the ProgressSink's total field: the six stages that
// always run, plus coastline snapping when configured.
func totalStages(job types.MapJob) int {
	n := 6
	if job.Config.Coastline.Enabled {
		n++
	}
	return n
}

func (o *Orchestrator) reportProgress(mapID string, current, total int, stage string) {
	if o.Progress == nil {
		return
	}
	o.Progress.Report(mapID, current, total, stage)
}

// Run executes the stage sequence for job against imageData (the raw
// bytes of job.ImagePath), returning the resulting FeatureCollection.
// Zones and shapes are georeferenced when control points are sufficient;
// places are already in WGS84 from the gazetteer. Stage errors the error
// taxonomy marks recoverable (insufficient/singular transform, OCR or
// gazetteer unavailability) degrade that stage's contribution rather
// than failing the job; everything else is terminal and reported as a
// FAILURE event. Every produced FeatureCollection is handed to the
// persistence sink one Feature at a time, in emission order, as soon as
// it's available, so a cancelled or terminally failed job retains
// whatever earlier stages already persisted.
func (o *Orchestrator) Run(ctx context.Context, job types.MapJob, imageData []byte) (fc types.FeatureCollection, err error) {
	log := o.Logger.With("job_id", job.ID, "map_id", job.MapID)
	total := totalStages(job)
	stage := 0

	if o.Progress != nil {
		o.Progress.Report(job.MapID, 0, total, string(types.JobStatePending))
	}
	defer func() {
		if o.Progress == nil {
			return
		}
		if err != nil {
			o.Progress.Report(job.MapID, stage, total, string(types.JobStateFailure))
		} else {
			o.Progress.Report(job.MapID, total, total, string(types.JobStateSuccess))
		}
	}()

	img, loadErr := loader.Load(job.ImagePath, imageData)
	if loadErr != nil {
		return types.FeatureCollection{}, fmt.Errorf("load: %w", loadErr)
	}
	o.Debug.Capture("loader", "decoded", "decoded source raster", img, 0)
	stage++
	o.reportProgress(job.MapID, stage, total, "load")

	if cancelErr := checkContext(ctx); cancelErr != nil {
		return types.FeatureCollection{}, cancelErr
	}

	img, preErr := preprocess.Run(img, job.Config.Preprocess)
	if preErr != nil {
		return types.FeatureCollection{}, fmt.Errorf("preprocess: %w", preErr)
	}
	o.Debug.Capture("preprocess", "corrected", "preprocessed raster", img, 10)
	log.Debug("preprocess complete", "width", img.Width, "height", img.Height)
	stage++
	o.reportProgress(job.MapID, stage, total, "preprocess")

	if cancelErr := checkContext(ctx); cancelErr != nil {
		return types.FeatureCollection{}, cancelErr
	}

	layers, colorErr := color.Extract(img, job.Config.Color)
	if colorErr != nil {
		return types.FeatureCollection{}, fmt.Errorf("color extract: %w", colorErr)
	}
	fc.Zones = zoneFeatures(job.MapID, layers, job.StartDate, job.EndDate)
	o.Debug.Capture("color", "layers", fmt.Sprintf("%d color layers", len(layers)), layers, 20)
	log.Debug("color extraction complete", "layers", len(layers))
	if persistErr := o.persistStage(job.MapID, fc.Zones); persistErr != nil {
		return types.FeatureCollection{}, persistErr
	}
	stage++
	o.reportProgress(job.MapID, stage, total, "color")

	if cancelErr := checkContext(ctx); cancelErr != nil {
		return types.FeatureCollection{}, cancelErr
	}

	shapes, shapeErr := shape.Extract(img, job.Config.Shape)
	if shapeErr != nil {
		return types.FeatureCollection{}, fmt.Errorf("shape extract: %w", shapeErr)
	}
	fc.Shapes = shapeFeatures(job.MapID, shapes, job.StartDate, job.EndDate)
	o.Debug.Capture("shape", "contours", fmt.Sprintf("%d shapes", len(shapes)), shapes, 30)
	log.Debug("shape extraction complete", "shapes", len(shapes))
	if persistErr := o.persistStage(job.MapID, fc.Shapes); persistErr != nil {
		return types.FeatureCollection{}, persistErr
	}
	stage++
	o.reportProgress(job.MapID, stage, total, "shape")

	if cancelErr := checkContext(ctx); cancelErr != nil {
		return types.FeatureCollection{}, cancelErr
	}

	places, textErr := o.resolvePlaces(ctx, img, job.Config.Text)
	if textErr != nil {
		if kind, ok := stageerr.KindOf(textErr); ok && (kind == stageerr.KindOCRUnavailable || kind == stageerr.KindGazetteerUnavailable) {
			log.Warn("text resolution unavailable, skipping stage", "err", textErr)
			places = nil
		} else {
			return types.FeatureCollection{}, fmt.Errorf("text resolve: %w", textErr)
		}
	}
	fc.Places = placeFeatures(job.MapID, places, job.StartDate, job.EndDate)
	o.Debug.Capture("text", "places", fmt.Sprintf("%d resolved places", len(places)), places, 40)
	log.Debug("text resolution complete", "places", len(places))
	if persistErr := o.persistStage(job.MapID, fc.Places); persistErr != nil {
		return types.FeatureCollection{}, persistErr
	}
	stage++
	o.reportProgress(job.MapID, stage, total, "text")

	if cancelErr := checkContext(ctx); cancelErr != nil {
		return types.FeatureCollection{}, cancelErr
	}

	transform, fitErr := georef.Fit(job.ControlPoints, job.Config.Georef)
	if fitErr != nil {
		kind, _ := stageerr.KindOf(fitErr)
		if kind == stageerr.KindInsufficientData || kind == stageerr.KindSingularTransform || kind == stageerr.KindInvalidControlPoint {
			log.Warn("georeferencing unavailable, leaving zones and shapes in pixel space", "err", fitErr)
			stage++
			o.reportProgress(job.MapID, stage, total, "georef")
			log.Info("job complete", "features", fc.FeatureCounts())
			return fc, nil
		}
		return types.FeatureCollection{}, fmt.Errorf("georef fit: %w", fitErr)
	}
	o.Debug.Capture("georef", "transform", fmt.Sprintf("fitted %s transform", transform.Kind()), transform, 50)
	log.Debug("georeferencing fit complete", "kind", transform.Kind(), "control_points", len(job.ControlPoints))

	fc, warpErr := warpCollection(fc, transform)
	if warpErr != nil {
		return types.FeatureCollection{}, fmt.Errorf("georef warp: %w", warpErr)
	}
	if persistErr := o.persistStage(job.MapID, fc.Zones); persistErr != nil {
		return types.FeatureCollection{}, persistErr
	}
	if persistErr := o.persistStage(job.MapID, fc.Shapes); persistErr != nil {
		return types.FeatureCollection{}, persistErr
	}
	stage++
	o.reportProgress(job.MapID, stage, total, "georef")

	if job.Config.Coastline.Enabled && o.Resources.CoastlineIndex != nil {
		before := fc.Count()
		fc = coastline.Refine(fc, o.Resources.CoastlineIndex, o.Resources.SiftPoints, job.Config.Coastline)
		o.Debug.Capture("coastline", "refined", "coastline snapping applied", fc, 60)
		log.Debug("coastline refinement complete", "features", before)
		stage++
		o.reportProgress(job.MapID, stage, total, "coastline")
	}

	log.Info("job complete", "features", fc.FeatureCounts())
	return fc, nil
}

// persistStage sends each feature in fs to the persistence sink, in
// order, one Feature at a time. A nil sink makes this a no-op.
func (o *Orchestrator) persistStage(mapID string, fs []types.Feature) error {
	if o.Persistence == nil {
		return nil
	}
	for _, f := range fs {
		data, err := geojson.ToGeoJSONFeatureBytes(f)
		if err != nil {
			return stageerr.New(stageName, stageerr.KindPersistence, "marshal feature", err)
		}
		if err := o.Persistence.PersistFeature(mapID, data, false); err != nil {
			return stageerr.New(stageName, stageerr.KindPersistence, "persist feature", err)
		}
	}
	return nil
}

// resolvePlaces runs OCR over the preprocessed image and resolves the
// recognized tokens against the gazetteer. The image is handed to the
// OCR engine unmodified: text detection never edits pixels.
func (o *Orchestrator) resolvePlaces(ctx context.Context, img *types.Image, cfg types.TextConfig) ([]types.PlacePoint, error) {
	if o.Resources.OCR == nil {
		return nil, stageerr.New(stageName, stageerr.KindOCRUnavailable, "no OCR engine configured", nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img.ToNRGBA()); err != nil {
		return nil, stageerr.New(stageName, stageerr.KindDecodeFailure, "encode image for OCR", err)
	}

	tokens, err := o.Resources.OCR.Recognize(ctx, buf.Bytes(), cfg.Languages)
	if err != nil {
		return nil, stageerr.New(stageName, stageerr.KindOCRUnavailable, "OCR recognize", err)
	}

	ocrTokens := make([]text.Token, len(tokens))
	copy(ocrTokens, tokens)
	o.Debug.Capture("text", "tokens", fmt.Sprintf("%d raw OCR tokens", len(ocrTokens)), ocrTokens, 35)

	return text.Resolve(ctx, ocrTokens, o.Resources.Gazetteer, cfg)
}

// warpCollection warps every pixel-space feature in fc through t. Places
// are left untouched: their geometry is already the gazetteer's WGS84
// lon/lat, set at resolution time, not a pixel coordinate.
func warpCollection(fc types.FeatureCollection, t types.Transform) (types.FeatureCollection, error) {
	var err error
	if fc.Zones, err = warpFeatures(fc.Zones, t); err != nil {
		return fc, err
	}
	if fc.Shapes, err = warpFeatures(fc.Shapes, t); err != nil {
		return fc, err
	}
	return fc, nil
}

func warpFeatures(features []types.Feature, t types.Transform) ([]types.Feature, error) {
	out := make([]types.Feature, len(features))
	for i, f := range features {
		warped, err := warpFeature(f, t)
		if err != nil {
			return nil, err
		}
		out[i] = warped
	}
	return out, nil
}

func zoneFeatures(mapID string, layers []types.ColorLayer, startDate, endDate string) []types.Feature {
	out := make([]types.Feature, len(layers))
	for i, l := range layers {
		out[i] = types.Feature{
			ID:       uuid.NewString(),
			MapID:    mapID,
			Kind:     types.FeatureKindZone,
			Geometry: l.Geometry,
			Zone: &types.ZoneProperties{
				ColorName: l.Name,
				L:         l.L,
				A:         l.A,
				B:         l.B,
				R:         l.R,
				G:         l.G,
				B8:        l.B8,
			},
			IsPixelSpace: true,
			StartDate:    startDate,
			EndDate:      endDate,
		}
	}
	return out
}

func shapeFeatures(mapID string, shapes []types.Shape, startDate, endDate string) []types.Feature {
	out := make([]types.Feature, len(shapes))
	for i, s := range shapes {
		out[i] = types.Feature{
			ID:       uuid.NewString(),
			MapID:    mapID,
			Kind:     types.FeatureKindShape,
			Geometry: s.Geometry,
			Shape: &types.ShapeProperties{
				Area:          s.Area,
				Perimeter:     s.Perimeter,
				AspectRatio:   s.AspectRatio,
				Extent:        s.Extent,
				Solidity:      s.Solidity,
				VertexCount:   s.VertexCount,
				DominantColor: s.DominantColor,
			},
			IsPixelSpace: true,
			StartDate:    startDate,
			EndDate:      endDate,
		}
	}
	return out
}

// placeFeatures builds Place features directly from the resolver's
// gazetteer matches. Unlike zones and shapes, these are already
// georeferenced: the gazetteer supplies WGS84 lon/lat, so no warp stage
// applies to them.
func placeFeatures(mapID string, places []types.PlacePoint, startDate, endDate string) []types.Feature {
	out := make([]types.Feature, len(places))
	for i, p := range places {
		out[i] = types.Feature{
			ID:       uuid.NewString(),
			MapID:    mapID,
			Kind:     types.FeatureKindPlace,
			Geometry: p.Location,
			Place: &types.PlaceProperties{
				Token:      p.Token,
				MatchName:  p.MatchName,
				MatchID:    p.MatchID,
				Confidence: p.Confidence,
				Found:      p.Found,
			},
			IsPixelSpace: false,
			CRS:          "EPSG:4326",
			StartDate:    startDate,
			EndDate:      endDate,
		}
	}
	return out
}

// checkContext reports a tagged stage error if ctx has been cancelled
// or has timed out, letting the orchestrator bail between stages
// instead of only at blocking calls.
func checkContext(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return stageerr.New(stageName, stageerr.KindTimeout, "job deadline exceeded", err)
	}
	return stageerr.New(stageName, stageerr.KindCancelled, "job cancelled", err)
}
