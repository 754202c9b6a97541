package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datasniffing/caramelo/pkg/mcp"
)

// runMcpServer handles the mcp-server subcommand
func runMcpServer(args []string) {
	fs := flag.NewFlagSet("mcp-server", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file (optional)")
	transport := fs.String("transport", "stdio", "Transport type (stdio, sse)")
	port := fs.Int("port", 8081, "HTTP port (for sse transport)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: caramelo mcp-server [options]

Start an MCP (Model Context Protocol) server for AI tool integration.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Start with stdio transport
  caramelo mcp-server

  # Start with SSE transport on port 8081
  caramelo mcp-server -transport sse -port 8081

Available MCP Tools:
  run_crawler            Start a background compliance crawl
  get_crawler_result     Poll a crawl task for its checklist
  check_password_policy  Inspect one page for a password strength policy
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := doMcpServer(ctx, *configFile, flagPassed(fs, "config"), *transport, *port, *logLevel, os.Stderr)
	stop()
	os.Exit(exitCode)
}

// doMcpServer is the testable implementation of the MCP server.
// Logs go to stderr since stdio transport owns stdout.
func doMcpServer(ctx context.Context, configPath string, explicitConfig bool, transport string, port int, logLevel string, stderr io.Writer) int {
	log := setupLogger(logLevel, stderr)

	appCfg, err := loadAndValidateConfig(configPath, explicitConfig, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	crawlCtx, cancelCrawls := context.WithCancel(ctx)
	defer cancelCrawls()

	a, err := buildApp(crawlCtx, appCfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error building pipeline: %v\n", err)
		return 1
	}
	defer a.close()

	server, err := mcp.NewServer(&mcp.ServerConfig{
		Version:   version,
		Transport: transport,
		Addr:      fmt.Sprintf(":%d", port),
		Registry:  a.registry,
		Run:       a.crawler.Run,
		Password:  a.checker,
		Robots:    a.robots,
		Logger:    log,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return 1
	}

	go func() {
		<-crawlCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Infof("Starting MCP server (transport: %s)", transport)
	if err := server.Run(); err != nil {
		fmt.Fprintf(stderr, "MCP server error: %v\n", err)
		return 1
	}

	return 0
}
