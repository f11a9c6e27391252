package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"

	"github.com/cropseq/genedit/internal/registry"
)

func runDatasets(args []string) int {
	fs := flag.NewFlagSet("datasets", flag.ExitOnError)

	var (
		dataDir      string
		category     string
		organismType string
		search       string
		outputFormat string
		verbose      bool
	)

	fs.StringVar(&dataDir, "data-dir", viper.GetString("data_dir"), "Directory containing .bim variant catalogs")
	fs.StringVar(&category, "category", "", "Filter by category ('all' for every catalog)")
	fs.StringVar(&organismType, "type", "", "Filter by organism type, e.g. cereal")
	fs.StringVar(&search, "search", "", "Search catalogs by name or description")
	fs.StringVar(&outputFormat, "f", "table", "Output format: table, json")
	fs.StringVar(&outputFormat, "output-format", "table", "Output format: table, json")
	fs.BoolVar(&verbose, "v", false, "Verbose logging to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `List variant catalogs discovered in the data directory.

Usage:
  genedit datasets [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  genedit datasets
  genedit datasets --category cereals
  genedit datasets --search corn
  genedit datasets -f json
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	logger := newLogger(verbose)
	defer logger.Sync()

	reg, err := registry.Discover(dataDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	var descs []*registry.Descriptor
	switch {
	case search != "":
		descs = reg.Search(search)
	case category != "":
		descs = reg.ByCategory(category)
	case organismType != "":
		descs = reg.ByType(organismType)
	default:
		descs = reg.List()
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(descs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitError
		}
		return ExitSuccess
	}

	if len(descs) == 0 {
		fmt.Fprintf(os.Stderr, "No catalogs found in %s\n", dataDir)
		return ExitSuccess
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Display Name", "Category", "Type", "File"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
	})

	for _, d := range descs {
		table.Append([]string{d.Name, d.DisplayName, d.Category, d.OrganismType, d.FilePath})
	}
	table.SetFooter([]string{fmt.Sprintf("Total %d", len(descs)), "", "", "", ""})
	table.Render()

	return ExitSuccess
}
