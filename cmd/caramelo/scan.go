package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// runScan handles the scan subcommand
func runScan(args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file (optional)")
	seed := fs.String("url", "", "Seed URL to crawl (required)")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: caramelo scan -url <seed> [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  caramelo scan -url https://shop.example\n")
		fmt.Fprintf(os.Stderr, "  caramelo scan -url https://shop.example -config caramelo.yaml -loglevel debug\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *seed == "" {
		fmt.Fprintln(os.Stderr, "Error: -url is required")
		fs.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := doScan(ctx, *configFile, flagPassed(fs, "config"), *seed, *logLevel, os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}

// doScan crawls seed synchronously and writes the checklist as JSON to stdout.
// A failing checklist is still a successful scan; only setup errors return 1.
func doScan(ctx context.Context, configPath string, explicitConfig bool, seed, logLevel string, stdout, stderr io.Writer) int {
	log := setupLogger(logLevel, stderr)

	appCfg, err := loadAndValidateConfig(configPath, explicitConfig, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := buildApp(ctx, appCfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	results := a.crawler.Run(ctx, seed)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		fmt.Fprintf(stderr, "Error writing results: %v\n", err)
		return 1
	}
	return 0
}
