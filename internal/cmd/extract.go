package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mapwright/extractpipe/internal/coastline"
	"github.com/mapwright/extractpipe/internal/config"
	"github.com/mapwright/extractpipe/internal/gazetteer"
	extractgeojson "github.com/mapwright/extractpipe/internal/geojson"
	"github.com/mapwright/extractpipe/internal/pipeline"
	"github.com/mapwright/extractpipe/internal/types"
	"github.com/mapwright/extractpipe/internal/worker"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract georeferenced vector features from a map image",
	Long: `extract runs a scanned map image (or a batch of them) through the
extraction pipeline: color zones, shapes, gazetteer-resolved place
names, and, when enough control points are supplied, a fitted
georeferencing transform. Results are written as GeoJSON.`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("image", "", "Path to a single map image (single-job mode)")
	extractCmd.Flags().String("map-id", "", "Map identifier for single-job mode (defaults to the image's base name)")
	extractCmd.Flags().String("control-points", "", "Path to a JSON file of control points for single-job mode")
	extractCmd.Flags().String("start-date", "", "Historical period start the map depicts, single-job mode (e.g. 1842)")
	extractCmd.Flags().String("end-date", "", "Historical period end the map depicts, single-job mode")
	extractCmd.Flags().String("batch-manifest", "", "Path to a JSON manifest describing a batch of jobs")
	extractCmd.Flags().String("coastline-reference", "", "Path to a GeoJSON (Multi)LineString used as the coastline reference")
	extractCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers for batch mode (default: number of CPUs)")
	extractCmd.Flags().Bool("progress", true, "Show a progress bar during batch extraction")
	extractCmd.Flags().Bool("allow-failures", false, "Continue a batch even if some jobs fail")

	bindFlags := []struct{ key, flag string }{
		{"extract.image", "image"},
		{"extract.map_id", "map-id"},
		{"extract.control_points", "control-points"},
		{"extract.start_date", "start-date"},
		{"extract.end_date", "end-date"},
		{"extract.batch_manifest", "batch-manifest"},
		{"extract.coastline_reference", "coastline-reference"},
		{"extract.workers", "workers"},
		{"extract.progress", "progress"},
		{"extract.allow_failures", "allow-failures"},
	}
	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, extractCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// controlPointFile is the on-disk JSON shape of a single job's control
// points, one entry per matched (pixel, lon/lat) pair.
type controlPointFile struct {
	PixelX float64 `json:"pixel_x"`
	PixelY float64 `json:"pixel_y"`
	Lon    float64 `json:"lon"`
	Lat    float64 `json:"lat"`
}

// manifestEntry is one job in a --batch-manifest file. Image and
// ControlPoints are paths resolved relative to the manifest's own
// directory.
type manifestEntry struct {
	MapID         string `json:"map_id"`
	Image         string `json:"image"`
	ControlPoints string `json:"control_points,omitempty"`
	StartDate     string `json:"start_date,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
}

func loadControlPoints(path string) ([]types.ControlPoint, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read control points %s: %w", path, err)
	}
	var raw []controlPointFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse control points %s: %w", path, err)
	}
	out := make([]types.ControlPoint, len(raw))
	for i, r := range raw {
		out[i] = types.ControlPoint{PixelX: r.PixelX, PixelY: r.PixelY, Lon: r.Lon, Lat: r.Lat}
	}
	return out, nil
}

func loadCoastlineIndex(path string) (*coastline.Index, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coastline reference %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse coastline reference %s: %w", path, err)
	}
	var mls orb.MultiLineString
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.LineString:
			mls = append(mls, g)
		case orb.MultiLineString:
			mls = append(mls, g...)
		}
	}
	if len(mls) == 0 {
		return nil, fmt.Errorf("coastline reference %s has no line geometry", path)
	}
	return coastline.NewIndex(mls), nil
}

// extractGenerator adapts Orchestrator.Run to worker.Generator: read the
// job's source image, run the pipeline, write the result as GeoJSON
// under outputDir/<map_id>.geojson.
type extractGenerator struct {
	orch      *pipeline.Orchestrator
	outputDir string
}

func (g *extractGenerator) Generate(ctx context.Context, job types.MapJob) (string, error) {
	data, err := os.ReadFile(job.ImagePath)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", job.ImagePath, err)
	}

	fc, err := g.orch.Run(ctx, job, data)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	out, err := extractgeojson.ToGeoJSONBytes(fc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(g.outputDir, job.MapID+".geojson")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func buildOrchestrator() (*pipeline.Orchestrator, error) {
	gazPath := viper.GetString("gazetteer-db")
	gaz, err := gazetteer.NewSQLiteStore(gazPath)
	if err != nil {
		return nil, fmt.Errorf("open gazetteer %s: %w", gazPath, err)
	}

	coastlinePath := viper.GetString("extract.coastline_reference")
	coastlineIndex, err := loadCoastlineIndex(coastlinePath)
	if err != nil {
		return nil, err
	}

	// No OCR adapter is wired by default: the OCR engine is an external
	// collaborator the pipeline only depends on through internal/text.OCR.
	// Leaving it nil means the text stage is skipped (OCRUnavailable is a
	// recoverable condition), not that the job fails.
	resources := pipeline.Resources{
		Gazetteer:      gaz,
		CoastlineIndex: coastlineIndex,
	}

	outputDir := viper.GetString("output-dir")
	orch := pipeline.New(resources, nil, logger)
	orch.WithSinks(stdoutProgressSink{logger: logger}, &filePersistenceSink{dir: filepath.Join(outputDir, "persisted")})
	return orch, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	manifestPath := viper.GetString("extract.batch_manifest")
	if manifestPath != "" {
		return runBatchExtract(manifestPath)
	}
	return runSingleExtract()
}

func runSingleExtract() error {
	imagePath := viper.GetString("extract.image")
	if imagePath == "" {
		return fmt.Errorf("--image is required outside batch mode (use --batch-manifest for batch mode)")
	}

	mapID := viper.GetString("extract.map_id")
	if mapID == "" {
		mapID = strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	}

	controlPoints, err := loadControlPoints(viper.GetString("extract.control_points"))
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator()
	if err != nil {
		return err
	}

	gen := &extractGenerator{orch: orch, outputDir: viper.GetString("output-dir")}

	job := types.MapJob{
		ID:            mapID,
		MapID:         mapID,
		ImagePath:     imagePath,
		ControlPoints: controlPoints,
		Config:        config.Default(),
		StartDate:     viper.GetString("extract.start_date"),
		EndDate:       viper.GetString("extract.end_date"),
	}

	path, err := gen.Generate(context.Background(), job)
	if err != nil {
		return fmt.Errorf("extract %s: %w", imagePath, err)
	}
	logger.Info("map extracted", "map_id", mapID, "output", path)
	return nil
}

func runBatchExtract(manifestPath string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}
	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse manifest %s: %w", manifestPath, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("manifest %s lists no jobs", manifestPath)
	}

	baseDir := filepath.Dir(manifestPath)
	workers := viper.GetInt("extract.workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	showProgress := viper.GetBool("extract.progress")
	allowFailures := viper.GetBool("extract.allow_failures")

	orch, err := buildOrchestrator()
	if err != nil {
		return err
	}
	gen := &extractGenerator{orch: orch, outputDir: viper.GetString("output-dir")}

	tasks := make([]worker.Task, 0, len(entries))
	for _, e := range entries {
		controlPoints, err := loadControlPoints(resolveManifestPath(baseDir, e.ControlPoints))
		if err != nil {
			return err
		}
		tasks = append(tasks, worker.Task{Job: types.MapJob{
			ID:            e.MapID,
			MapID:         e.MapID,
			ImagePath:     resolveManifestPath(baseDir, e.Image),
			ControlPoints: controlPoints,
			Config:        config.Default(),
			StartDate:     e.StartDate,
			EndDate:       e.EndDate,
		}})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received interrupt signal, cancelling...")
		cancel()
	}()

	progress := worker.NewProgress(len(tasks), showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Generator:  gen,
		OnProgress: progress.Callback(),
	})

	logger.Info("starting batch extraction", "jobs", len(tasks), "workers", workers)
	results := pool.Run(ctx, tasks)
	progress.Done()

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("map extraction failed", "map_id", r.Task.Job.MapID, "error", r.Err)
		}
	}
	logger.Info(progress.Summary(), "failure_rate", progress.FailureRate())

	if failed > 0 && !allowFailures {
		return fmt.Errorf("%d of %d jobs failed", failed, len(tasks))
	}
	return nil
}

func resolveManifestPath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
