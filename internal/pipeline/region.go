package pipeline

import (
	"strconv"
	"strings"

	"github.com/cropseq/genedit/internal/suggest"
)

// defaultChromosome is used for impact mapping when the request carries no
// target region.
const defaultChromosome = "1"

// parseTargetRegion parses "chrom:start-end" or "start-end" into a
// suggestion region and the chromosome for impact mapping. A leading "chr"
// prefix on the chromosome is stripped. Malformed input yields a nil
// region over the default chromosome.
func parseTargetRegion(s string) (*suggest.Region, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, defaultChromosome
	}

	chrom := defaultChromosome
	span := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		chrom = strings.TrimPrefix(strings.TrimSpace(s[:i]), "chr")
		span = s[i+1:]
	}

	start, end, ok := parseSpan(span)
	if !ok {
		return nil, defaultChromosome
	}
	return &suggest.Region{Start: start, End: end}, chrom
}

func parseSpan(s string) (int, int, bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || end <= start || start < 0 {
		return 0, 0, false
	}
	return start, end, true
}
