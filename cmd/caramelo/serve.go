package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/api"
	"github.com/datasniffing/caramelo/pkg/config"
)

// shutdownTimeout bounds the HTTP drain and the wait for running crawls
const shutdownTimeout = 30 * time.Second

// runServe handles the serve subcommand
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file (optional)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	pprofAddr := fs.String("pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: caramelo serve [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nThe PORT environment variable overrides the listen port.\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel, os.Stderr)
	appCfg, err := loadAndValidateConfig(*configFile, flagPassed(fs, "config"), log)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	startPprof(*pprofAddr, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, appCfg.ListenAddr, buildAppFunc(appCfg, log), log); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// serve runs the HTTP API until ctx ends, then drains requests and waits for running crawls
func serve(ctx context.Context, addr string, build func(context.Context) (*app, error), log *logrus.Logger) error {
	crawlCtx, cancelCrawls := context.WithCancel(context.Background())
	defer cancelCrawls()

	a, err := build(crawlCtx)
	if err != nil {
		return err
	}

	srv := api.NewServer(addr, a.registry, a.crawler.Run,
		promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}), logrus.NewEntry(log))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		cancelCrawls()
		a.close()
		return err
	case <-ctx.Done():
	}

	log.Warn("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP shutdown: %v", err)
	}

	// Crawls still running get their shutdown verdict once the deadline passes
	go func() {
		<-shutdownCtx.Done()
		cancelCrawls()
	}()
	a.close()
	log.Info("Shutdown complete")
	return nil
}

// buildAppFunc defers pipeline construction until the crawl context exists
func buildAppFunc(appCfg *config.AppConfig, log *logrus.Logger) func(context.Context) (*app, error) {
	return func(ctx context.Context) (*app, error) {
		return buildApp(ctx, appCfg, log)
	}
}

// flagPassed reports whether name was set explicitly on the command line
func flagPassed(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
