package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/cropseq/genedit/internal/oracle"
	"github.com/cropseq/genedit/internal/pipeline"
	"github.com/cropseq/genedit/internal/report"
	"github.com/cropseq/genedit/internal/suggest"
	"github.com/cropseq/genedit/internal/validate"
)

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)

	var (
		sequence      string
		seqFile       string
		trait         string
		description   string
		region        string
		dataset       string
		category      string
		maxSugs       int
		minEfficiency float64
		threshold     float64
		outputFormat  string
		outputFile    string
		dataDir       string
		redisAddr     string
		effURL        string
		seqURL        string
		verbose       bool
	)

	fs.StringVar(&sequence, "sequence", "", "DNA sequence to analyze")
	fs.StringVar(&sequence, "s", "", "DNA sequence to analyze (shorthand)")
	fs.StringVar(&seqFile, "seq-file", "", "Read the DNA sequence from a file (use '-' for stdin)")
	fs.StringVar(&trait, "trait", "", "Target trait, e.g. 'drought tolerance'")
	fs.StringVar(&description, "description", "", "Free-text request description (used for catalog auto-detection)")
	fs.StringVar(&region, "region", "", "Target region, e.g. 'chr1:1000-2000'")
	fs.StringVar(&dataset, "dataset", "", "Variant catalog name, e.g. maize")
	fs.StringVar(&category, "category", "", "Catalog category, e.g. cereals")
	fs.IntVar(&maxSugs, "max", 0, "Maximum number of suggestions (default 5)")
	fs.Float64Var(&minEfficiency, "min-efficiency", 0, "Minimum efficiency score (default 50)")
	fs.Float64Var(&threshold, "threshold", 0, "Validation score-change threshold (default 0.1)")
	fs.StringVar(&outputFormat, "f", "tab", "Output format: tab, json")
	fs.StringVar(&outputFormat, "output-format", "tab", "Output format: tab, json")
	fs.StringVar(&outputFile, "o", "", "Output file (default: stdout)")
	fs.StringVar(&outputFile, "output", "", "Output file (default: stdout)")
	fs.StringVar(&dataDir, "data-dir", viper.GetString("data_dir"), "Directory containing .bim variant catalogs")
	fs.StringVar(&redisAddr, "redis", viper.GetString("redis.addr"), "Redis address for the external cache ('none' to disable)")
	fs.StringVar(&effURL, "efficiency-url", viper.GetString("oracle.efficiency_url"), "Efficiency scoring service URL (empty: heuristic scoring)")
	fs.StringVar(&seqURL, "sequence-url", viper.GetString("oracle.sequence_url"), "Sequence scoring service URL (empty: heuristic scoring)")
	fs.BoolVar(&verbose, "v", false, "Verbose logging to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Suggest genome edits for a DNA sequence and validate their impact.

Usage:
  genedit analyze [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  genedit analyze --dataset maize --sequence ATCGATCGATCGATCGATCGATCG
  genedit analyze --description "improve corn drought tolerance" --seq-file seq.txt
  genedit analyze --dataset rice --region chr1:100-400 -f json -o result.json
  cat seq.txt | genedit analyze --dataset maize --seq-file -
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	if seqFile != "" {
		data, err := readSequence(seqFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitError
		}
		sequence = data
	}
	if sequence == "" {
		fmt.Fprintf(os.Stderr, "Error: a sequence is required (--sequence or --seq-file)\n\n")
		fs.Usage()
		return ExitUsage
	}

	logger := newLogger(verbose)
	defer logger.Sync()

	reg, catalogs, m, err := newCatalogService(dataDir, redisAddr, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	effOracle, err := oracle.NewEfficiency(oracleKind(effURL), oracle.HTTPConfig{URL: effURL, Timeout: oracleTimeout()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	seqOracle, err := oracle.NewSequence(oracleKind(seqURL), oracle.HTTPConfig{URL: seqURL, Timeout: oracleTimeout()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	generator := suggest.NewGenerator(effOracle)
	generator.SetLogger(logger)
	generator.SetMetrics(m)
	validator := validate.NewValidator(seqOracle)
	validator.SetLogger(logger)
	validator.SetMetrics(m)

	p := pipeline.New(reg, catalogs, generator, validator)
	p.SetLogger(logger)
	p.SetMetrics(m)

	resp, err := p.Run(context.Background(), pipeline.Request{
		Sequence:       sequence,
		TargetTrait:    trait,
		Description:    description,
		TargetRegion:   region,
		Dataset:        dataset,
		Category:       category,
		MaxSuggestions: maxSugs,
		MinEfficiency:  minEfficiency,
		Threshold:      threshold,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	out := os.Stdout
	if outputFile != "" {
		out, err = os.Create(outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			return ExitError
		}
		defer out.Close()
	}

	switch outputFormat {
	case "json":
		if err := report.WriteJSON(out, resp); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitError
		}
	case "tab":
		w := report.NewTabWriter(out)
		if err := w.WriteHeader(); err == nil {
			err = w.WriteResponse(resp)
		}
		if err == nil {
			err = w.WriteSummary(resp)
		}
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitError
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown output format %q\n", outputFormat)
		return ExitError
	}

	return ExitSuccess
}

// readSequence reads a raw or FASTA-style sequence file, stripping header
// lines and whitespace.
func readSequence(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading sequence: %w", err)
	}

	var b strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}
		b.WriteString(line)
	}
	return strings.ToUpper(b.String()), nil
}
