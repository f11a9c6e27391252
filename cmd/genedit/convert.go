package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cropseq/genedit/internal/duckstore"
)

func runConvert(args []string) int {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)

	var (
		inputPath  string
		outputPath string
	)

	fs.StringVar(&inputPath, "input", "", "Input .bim or .bim.gz variant catalog")
	fs.StringVar(&inputPath, "i", "", "Input .bim or .bim.gz variant catalog (shorthand)")
	fs.StringVar(&outputPath, "output", "", "Output DuckDB file path")
	fs.StringVar(&outputPath, "o", "", "Output DuckDB file path (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Convert a variant catalog to DuckDB format.

The converted file loads much faster than the text catalog. When the
output sits next to the source with a .duckdb extension it is picked up
automatically on the next load.

Usage:
  genedit convert [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  genedit convert --input data/maize.bim --output data/maize.duckdb
  genedit convert -i data/rice.bim.gz -o data/rice.duckdb
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	if inputPath == "" {
		fmt.Fprintf(os.Stderr, "Error: --input is required\n\n")
		fs.Usage()
		return ExitUsage
	}
	if outputPath == "" {
		outputPath = defaultConversionPath(inputPath)
	}

	count, err := duckstore.Convert(inputPath, outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	fmt.Printf("Converted %d variants from %s to %s\n", count, inputPath, outputPath)
	return ExitSuccess
}

func defaultConversionPath(bimPath string) string {
	p := strings.TrimSuffix(bimPath, ".gz")
	p = strings.TrimSuffix(p, ".bim")
	return p + ".duckdb"
}
