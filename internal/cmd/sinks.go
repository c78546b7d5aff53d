package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// stdoutProgressSink logs each stage transition through the command's
// shared slog logger, the CLI's stand-in for the HTTP-facing progress
// polling a hosted deployment would offer instead.
type stdoutProgressSink struct {
	logger *slog.Logger
}

func (s stdoutProgressSink) Report(mapID string, current, total int, status string) {
	s.logger.Info("job progress", "map_id", mapID, "stage", status, "step", current, "of", total)
}

// filePersistenceSink appends each persisted feature as one line of a
// per-map newline-delimited GeoJSON file under dir, mirroring the
// incremental persist_feature contract for local runs that have no
// database behind them. It exists alongside extractGenerator's combined
// end-of-job .geojson file so a cancelled run still leaves behind
// whatever features had already streamed through by the time it stopped.
type filePersistenceSink struct {
	mu  sync.Mutex
	dir string
}

func (f *filePersistenceSink) PersistFeature(mapID string, featureJSON []byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create persistence dir: %w", err)
	}
	path := filepath.Join(f.dir, mapID+".ndjson")
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	if _, err := fh.Write(featureJSON); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	_, err = fh.Write([]byte("\n"))
	return err
}
