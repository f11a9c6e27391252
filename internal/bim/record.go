// Package bim provides BIM variant catalog parsing functionality.
package bim

import "fmt"

// Column positions in a BIM file.
const (
	ColChromosome = iota
	ColID
	ColGeneticDistance
	ColPosition
	ColRefAllele
	ColAltAllele

	NumColumns = 6
)

// Record is a single variant (SNP) row from a BIM catalog.
// Records are immutable once loaded and are uniquely keyed by
// (Chromosome, Position) within one catalog.
type Record struct {
	Chromosome      string  `json:"chromosome"`
	ID              string  `json:"snp_id"`
	GeneticDistance float64 `json:"genetic_distance"`
	Position        int64   `json:"position"`
	RefAllele       string  `json:"ref_allele"`
	AltAllele       string  `json:"alt_allele"`
}

// Key returns the (chromosome, position) lookup key for the record.
func (r *Record) Key() Key {
	return Key{Chromosome: r.Chromosome, Position: r.Position}
}

// Key identifies a record by chromosome and position.
type Key struct {
	Chromosome string
	Position   int64
}

// String formats the key as "chrom:pos", the form used in cache fields.
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Chromosome, k.Position)
}

// Table is an in-memory variant catalog. The row order matches the
// source file.
type Table struct {
	records []Record
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Records returns the backing slice of records. Callers must not modify it.
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	return t.records
}

// ByID returns the first record with the given SNP ID, or nil.
// IDs are only guaranteed unique within one catalog.
func (t *Table) ByID(id string) *Record {
	if t == nil {
		return nil
	}
	for i := range t.records {
		if t.records[i].ID == id {
			return &t.records[i]
		}
	}
	return nil
}

// Chromosome returns all records on the given chromosome, in file order.
func (t *Table) Chromosome(chrom string) []Record {
	if t == nil {
		return nil
	}
	var out []Record
	for i := range t.records {
		if t.records[i].Chromosome == chrom {
			out = append(out, t.records[i])
		}
	}
	return out
}

// Append adds records to the table. Used by loaders.
func (t *Table) Append(recs ...Record) {
	t.records = append(t.records, recs...)
}
