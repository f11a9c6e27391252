package duckstore

import (
	"context"
	"database/sql/driver"
	"fmt"
	"os"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/cropseq/genedit/internal/bim"
)

// Convert parses a BIM catalog and writes it into a DuckDB file, replacing
// any previous conversion. Returns the number of records written.
func Convert(bimPath, dbPath string) (int, error) {
	table, err := bim.Load(bimPath)
	if err != nil {
		return 0, err
	}

	fp, err := StatFile(bimPath)
	if err != nil {
		return 0, fmt.Errorf("stat catalog: %w", err)
	}

	s, err := Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	if _, err := s.db.Exec("DELETE FROM variants"); err != nil {
		return 0, fmt.Errorf("clear variants: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM catalog_meta"); err != nil {
		return 0, fmt.Errorf("clear metadata: %w", err)
	}

	if err := s.writeRecords(table.Records()); err != nil {
		return 0, err
	}

	if _, err := s.db.Exec(
		"INSERT INTO catalog_meta VALUES (?, ?, ?, ?)",
		fp.Path, fp.Size, fp.ModTime, table.Len(),
	); err != nil {
		return 0, fmt.Errorf("write metadata: %w", err)
	}

	return table.Len(), nil
}

// writeRecords batch-inserts records using the Appender API.
func (s *Store) writeRecords(recs []bim.Record) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "variants")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i := range recs {
		r := &recs[i]
		if err := appender.AppendRow(
			int64(i), r.Chromosome, r.ID, r.GeneticDistance, r.Position, r.RefAllele, r.AltAllele,
		); err != nil {
			return fmt.Errorf("append record %s: %w", r.ID, err)
		}
	}

	return appender.Flush()
}

// Load reads a converted catalog back into an in-memory table, preserving
// the original row order.
func Load(dbPath string) (*bim.Table, error) {
	s, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	rows, err := s.db.Query(
		"SELECT chrom, snp_id, genetic_distance, pos, ref_allele, alt_allele FROM variants ORDER BY row_idx")
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	table := &bim.Table{}
	for rows.Next() {
		var r bim.Record
		if err := rows.Scan(
			&r.Chromosome, &r.ID, &r.GeneticDistance, &r.Position, &r.RefAllele, &r.AltAllele,
		); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		table.Append(r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}

	return table, nil
}

// Fresh reports whether the conversion at dbPath matches the current
// fingerprint of sourcePath. Any error means stale.
func Fresh(dbPath, sourcePath string) bool {
	if _, err := os.Stat(dbPath); err != nil {
		return false
	}
	fp, err := StatFile(sourcePath)
	if err != nil {
		return false
	}

	s, err := Open(dbPath)
	if err != nil {
		return false
	}
	defer s.Close()

	var size int64
	var path string
	row := s.db.QueryRow("SELECT source_path, source_size FROM catalog_meta")
	if err := row.Scan(&path, &size); err != nil {
		return false
	}

	return path == fp.Path && size == fp.Size
}
