package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mapwright/extractpipe/internal/gazetteer"
	"github.com/mapwright/extractpipe/internal/text"
)

var gazetteerCmd = &cobra.Command{
	Use:   "gazetteer",
	Short: "Manage the place-name gazetteer database",
}

var gazetteerLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk-load place names into the gazetteer database",
	Long: `load reads a CSV or JSON file of (name, lon, lat) place records and
inserts them into the gazetteer SQLite database, normalizing each name
the same way the Text/Place Resolver normalizes OCR tokens so lookups
match at query time.`,
	RunE: runGazetteerLoad,
}

func init() {
	rootCmd.AddCommand(gazetteerCmd)
	gazetteerCmd.AddCommand(gazetteerLoadCmd)

	gazetteerLoadCmd.Flags().String("input", "", "Path to a .csv or .json gazetteer source file (required)")

	if err := viper.BindPFlag("gazetteer.input", gazetteerLoadCmd.Flags().Lookup("input")); err != nil {
		panic(fmt.Sprintf("failed to bind flag input: %v", err))
	}
}

func runGazetteerLoad(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	inputPath := viper.GetString("gazetteer.input")
	if inputPath == "" {
		return fmt.Errorf("--input is required")
	}

	entries, err := readGazetteerSource(inputPath)
	if err != nil {
		return fmt.Errorf("read gazetteer source %s: %w", inputPath, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("gazetteer source %s has no entries", inputPath)
	}

	dbPath := viper.GetString("gazetteer-db")
	store, err := gazetteer.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("open gazetteer %s: %w", dbPath, err)
	}
	defer store.Close()

	logger.Info("loading gazetteer entries", "source", inputPath, "count", len(entries), "database", dbPath)
	if err := store.LoadEntries(context.Background(), entries, text.Normalize); err != nil {
		return fmt.Errorf("load gazetteer entries: %w", err)
	}

	logger.Info("gazetteer load complete", "entries", len(entries))
	return nil
}

// readGazetteerSource dispatches on file extension: .json expects an
// array of {"name","lon","lat"} objects, anything else is parsed as a
// CSV with a name,lon,lat header row.
func readGazetteerSource(path string) ([]gazetteer.Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return readGazetteerJSON(path)
	default:
		return readGazetteerCSV(path)
	}
}

func readGazetteerJSON(path string) ([]gazetteer.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Name       string  `json:"name"`
		Lon        float64 `json:"lon"`
		Lat        float64 `json:"lat"`
		Population int64   `json:"population"`
		Country    string  `json:"country"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	entries := make([]gazetteer.Entry, len(raw))
	for i, r := range raw {
		entries[i] = gazetteer.Entry{Name: r.Name, Lon: r.Lon, Lat: r.Lat, Population: r.Population, Country: r.Country}
	}
	return entries, nil
}

func readGazetteerCSV(path string) ([]gazetteer.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range []string{"name", "lon", "lat"} {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("missing required column %q", want)
		}
	}

	var entries []gazetteer.Entry
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		lon, err := strconv.ParseFloat(row[col["lon"]], 64)
		if err != nil {
			return nil, fmt.Errorf("parse lon %q: %w", row[col["lon"]], err)
		}
		lat, err := strconv.ParseFloat(row[col["lat"]], 64)
		if err != nil {
			return nil, fmt.Errorf("parse lat %q: %w", row[col["lat"]], err)
		}

		var population int64
		if idx, ok := col["population"]; ok && row[idx] != "" {
			population, err = strconv.ParseInt(row[idx], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse population %q: %w", row[idx], err)
			}
		}
		var country string
		if idx, ok := col["country"]; ok {
			country = row[idx]
		}

		entries = append(entries, gazetteer.Entry{Name: row[col["name"]], Lon: lon, Lat: lat, Population: population, Country: country})
	}
	return entries, nil
}
