// Package snpindex provides fast point and range lookups over variant
// catalogs, with a cache-aside layer against the shared external cache.
package snpindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cropseq/genedit/internal/bim"
)

// ErrInvalidRange indicates a range query with start >= end.
var ErrInvalidRange = errors.New("invalid query range")

// Index answers point and range queries for one catalog. The point map is
// built once from the backing table; the table itself serves range scans.
type Index struct {
	table  *bim.Table
	points map[bim.Key]bim.Record
}

// Build indexes every row of the table. Duplicate (chromosome, position)
// keys resolve last-write-wins, pinned by TestBuild_DuplicateKeyLastWins.
func Build(table *bim.Table) *Index {
	points := make(map[bim.Key]bim.Record, table.Len())
	for _, rec := range table.Records() {
		points[rec.Key()] = rec
	}
	return &Index{table: table, points: points}
}

// Len returns the number of distinct indexed positions.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.points)
}

// TableLen returns the number of rows in the backing table.
func (ix *Index) TableLen() int {
	if ix == nil {
		return 0
	}
	return ix.table.Len()
}

// Point returns the record at (chromosome, position). A nil index answers
// every query with a miss.
func (ix *Index) Point(chrom string, pos int64) (bim.Record, bool) {
	if ix == nil {
		return bim.Record{}, false
	}
	rec, ok := ix.points[bim.Key{Chromosome: chrom, Position: pos}]
	return rec, ok
}

// Range returns all records on chrom with start <= position <= end, sorted
// by position. The scan is linear over the backing table; results are
// sorted so cache-served and scan-served answers are identical.
func (ix *Index) Range(chrom string, start, end int64) ([]bim.Record, error) {
	if start >= end {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, start, end)
	}
	if ix == nil {
		return nil, nil
	}

	var out []bim.Record
	for _, rec := range ix.table.Records() {
		if rec.Chromosome == chrom && rec.Position >= start && rec.Position <= end {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// Near returns all records within window positions of pos on chrom.
func (ix *Index) Near(chrom string, pos, window int64) ([]bim.Record, error) {
	return ix.Range(chrom, pos-window, pos+window)
}

// Records returns the backing table rows, used when pushing the full index
// to the external cache.
func (ix *Index) Records() []bim.Record {
	if ix == nil {
		return nil
	}
	return ix.table.Records()
}
