package bim

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// chunkRows bounds how many rows are accumulated before being appended to
// the table, keeping peak allocation churn flat for multi-million row files.
const chunkRows = 100000

// LoadError describes a catalog file that could not be loaded: missing,
// wrong column count, or an unparseable numeric field.
type LoadError struct {
	Path string
	Line int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load catalog %s: line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("load catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads a BIM catalog file into a Table. The format is tab-separated
// with no header and exactly six columns: chromosome, SNP ID, genetic
// distance, position, ref allele, alt allele. Gzipped catalogs (.bim.gz)
// are detected by magic bytes.
func Load(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer file.Close()

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	if _, err := file.Read(buf); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("read header: %w", err)}
	}
	if _, err := file.Seek(0, 0); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("seek: %w", err)}
	}

	var reader io.Reader = file
	if buf[0] == 0x1f && buf[1] == 0x8b {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("create gzip reader: %w", err)}
		}
		defer gz.Close()
		reader = gz
	}

	table, err := parse(reader, path)
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Parse reads catalog rows from r. Exposed for loaders that already hold a
// stream (tests, converted stores).
func Parse(r io.Reader) (*Table, error) {
	return parse(r, "<stream>")
}

func parse(r io.Reader, path string) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	table := &Table{}
	chunk := make([]Record, 0, chunkRows)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" {
			continue
		}

		rec, err := parseLine(line)
		if err != nil {
			return nil, &LoadError{Path: path, Line: lineNumber, Err: err}
		}

		chunk = append(chunk, rec)
		if len(chunk) == chunkRows {
			table.Append(chunk...)
			chunk = chunk[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Path: path, Line: lineNumber, Err: err}
	}

	table.Append(chunk...)
	return table, nil
}

func parseLine(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != NumColumns {
		return Record{}, fmt.Errorf("expected %d columns, got %d", NumColumns, len(fields))
	}

	dist, err := strconv.ParseFloat(fields[ColGeneticDistance], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid genetic distance %q: %w", fields[ColGeneticDistance], err)
	}

	pos, err := strconv.ParseInt(fields[ColPosition], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid position %q: %w", fields[ColPosition], err)
	}

	return Record{
		Chromosome:      fields[ColChromosome],
		ID:              fields[ColID],
		GeneticDistance: dist,
		Position:        pos,
		RefAllele:       fields[ColRefAllele],
		AltAllele:       fields[ColAltAllele],
	}, nil
}
