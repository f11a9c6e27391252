// Package main provides the genedit command-line tool.
package main

import (
	"flag"
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Global flags
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	// Parse global flags first
	flag.Parse()

	if showVersion {
		fmt.Printf("genedit version %s (%s) built %s\n", version, commit, date)
		return ExitSuccess
	}

	initConfig()

	// Check for subcommand
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return ExitUsage
	}

	switch args[0] {
	case "analyze":
		return runAnalyze(args[1:])
	case "datasets":
		return runDatasets(args[1:])
	case "snps":
		return runSNPs(args[1:])
	case "warm":
		return runWarm(args[1:])
	case "convert":
		return runConvert(args[1:])
	case "config":
		return runConfig(args[1:])
	case "help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		printUsage()
		return ExitUsage
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `genedit - Crop genome edit suggestion and validation

Usage:
  genedit [options] <command> [arguments]

Commands:
  analyze     Suggest and validate genome edits for a DNA sequence
  datasets    List and search available variant catalogs
  snps        Query variants in a catalog by position or range
  warm        Preload catalogs into memory and the external cache
  convert     Convert a variant catalog to DuckDB format
  config      Manage genedit configuration
  help        Show this help message

Global Options:
  --version   Show version information

Examples:
  # List discovered variant catalogs
  genedit datasets --data-dir ./data

  # Suggest edits for a sequence against the maize catalog
  genedit analyze --dataset maize --sequence ATCGATCGATCGATCGATCGATCG

  # Query variants near a position
  genedit snps --dataset maize --chrom 1 --near 29450000

  # Preload every catalog before serving traffic
  genedit warm --data-dir ./data

For more information on a command, use:
  genedit <command> --help
`)
}
