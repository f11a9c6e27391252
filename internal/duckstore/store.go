// Package duckstore converts BIM catalogs to DuckDB files and loads them
// back. A converted catalog loads considerably faster than re-parsing the
// flat file, and the stored source fingerprint guards against serving a
// stale conversion.
package duckstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for one converted catalog.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	// row_idx preserves catalog row order across reloads: a later row wins
	// duplicate (chrom, pos) keys at index build, so reload order must
	// match the source file.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS variants (
		row_idx BIGINT,
		chrom VARCHAR,
		snp_id VARCHAR,
		genetic_distance DOUBLE,
		pos BIGINT,
		ref_allele VARCHAR,
		alt_allele VARCHAR
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS catalog_meta (
		source_path VARCHAR,
		source_size BIGINT,
		source_mtime TIMESTAMP,
		record_count BIGINT
	)`)
	return err
}

// FileFingerprint holds stat-based identity for a catalog source file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}
