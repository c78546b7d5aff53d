package gazetteer

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// DefaultBatchSize is the number of entries buffered per transaction
// during a bulk load.
const DefaultBatchSize = 500

// SQLiteStore is an embedded, pure-Go gazetteer backed by
// modernc.org/sqlite, adapted from the teacher's MBTiles tile writer:
// same WAL-pragma connection setup, same batched-transaction insert
// pattern, repurposed to place-name rows instead of tile blobs.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (creating if necessary) a gazetteer database at
// path, sets the same performance pragmas the MBTiles writer used, and
// ensures the places schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("gazetteer: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 50000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("gazetteer: set pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("gazetteer: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS places (
			name       TEXT NOT NULL,
			norm_name  TEXT NOT NULL,
			lon        REAL NOT NULL,
			lat        REAL NOT NULL,
			population INTEGER NOT NULL DEFAULT 0,
			country    TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS places_norm_name ON places (norm_name);
	`
	_, err := db.Exec(schema)
	return err
}

// LoadEntries bulk-inserts entries in batched transactions, storing each
// entry's raw name alongside normalize(name) as its lookup key; passing
// the same normalizer used at lookup time keeps stored and queried keys
// in agreement.
func (s *SQLiteStore) LoadEntries(ctx context.Context, entries []Entry, normalize func(string) string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for start := 0; start < len(entries); start += DefaultBatchSize {
		end := start + DefaultBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := s.loadBatch(ctx, entries[start:end], normalize); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) loadBatch(ctx context.Context, batch []Entry, normalize func(string) string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("gazetteer: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO places (name, norm_name, lon, lat, population, country) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("gazetteer: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.ExecContext(ctx, e.Name, normalize(e.Name), e.Lon, e.Lat, e.Population, e.Country); err != nil {
			return fmt.Errorf("gazetteer: insert %q: %w", e.Name, err)
		}
	}
	return tx.Commit()
}

// Lookup returns every entry whose normalized name matches exactly.
func (s *SQLiteStore) Lookup(ctx context.Context, normalized string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, lon, lat, population, country FROM places WHERE norm_name = ?", normalized)
	if err != nil {
		return nil, fmt.Errorf("gazetteer: lookup %q: %w", normalized, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Lon, &e.Lat, &e.Population, &e.Country); err != nil {
			return nil, fmt.Errorf("gazetteer: scan row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
