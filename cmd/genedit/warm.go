package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

func runWarm(args []string) int {
	fs := flag.NewFlagSet("warm", flag.ExitOnError)

	var (
		dataDir   string
		redisAddr string
		parallel  int
		verbose   bool
	)

	fs.StringVar(&dataDir, "data-dir", viper.GetString("data_dir"), "Directory containing .bim variant catalogs")
	fs.StringVar(&redisAddr, "redis", viper.GetString("redis.addr"), "Redis address for the external cache ('none' to disable)")
	fs.IntVar(&parallel, "parallel", 2, "Catalogs to load concurrently")
	fs.BoolVar(&verbose, "v", false, "Verbose logging to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Preload variant catalogs into memory and the external cache.

With no arguments every discovered catalog is warmed; otherwise only the
named catalogs are.

Usage:
  genedit warm [options] [catalog ...]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  genedit warm
  genedit warm maize rice
  genedit warm --parallel 4 --redis localhost:6379
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	logger := newLogger(verbose)
	defer logger.Sync()

	reg, catalogs, _, err := newCatalogService(dataDir, redisAddr, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	names := fs.Args()
	if len(names) == 0 {
		names = reg.Names()
	}
	if len(names) == 0 {
		fmt.Fprintf(os.Stderr, "No catalogs found in %s\n", dataDir)
		return ExitError
	}

	if err := catalogs.Warm(context.Background(), names, parallel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	for _, name := range names {
		fmt.Printf("Warmed %s (%d variants)\n", name, catalogs.IndexSize(name))
	}
	return ExitSuccess
}
