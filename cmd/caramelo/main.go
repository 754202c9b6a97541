package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/datasniffing/caramelo/pkg/config"
)

const version = "0.4.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "scan":
		runScan(os.Args[2:])
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("caramelo %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `caramelo - Privacy compliance crawler

Usage:
  caramelo <command> [options]

Commands:
  serve       Start the HTTP API (POST /run-crawler, GET /crawler-result/{id})
  scan        Crawl one site and print the checklist as JSON
  mcp-server  Start MCP server for AI tool integration
  validate    Validate configuration file
  version     Show version info

Run 'caramelo <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file. An empty path yields the defaults.
func loadConfig(path string) (*config.AppConfig, error) {
	var cfg config.AppConfig
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// loadAndValidateConfig loads the config file, applies defaults and the PORT override, and logs warnings.
// A missing default config file is not an error.
func loadAndValidateConfig(configFile string, explicit bool, log *logrus.Logger) (*config.AppConfig, error) {
	appCfg, err := loadConfig(configFile)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		log.Infof("No config file at %s, using defaults", configFile)
		appCfg = &config.AppConfig{}
	} else if configFile != "" {
		log.Infof("Loaded configuration from %s", configFile)
	}

	appWarnings, err := appCfg.Validate()
	for _, w := range appWarnings {
		log.Warn(w)
	}
	if err != nil {
		return nil, err
	}

	applyPortOverride(appCfg, os.Getenv("PORT"))
	logAppConfig(appCfg, log)
	return appCfg, nil
}

// applyPortOverride replaces the listen port when PORT is set, keeping the configured host
func applyPortOverride(appCfg *config.AppConfig, port string) {
	if port == "" {
		return
	}
	host, _, err := net.SplitHostPort(appCfg.ListenAddr)
	if err != nil {
		host = ""
	}
	appCfg.ListenAddr = net.JoinHostPort(host, port)
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: caramelo validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doValidate(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: fetch_mode=%s max_pages=%d visited_store=%s language=%s\n",
		appCfg.FetchMode, config.GetEffectiveMaxPages(*appCfg), appCfg.VisitedStore, appCfg.ResultLanguage)
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
		log.Debugf("Setting log level to: %s", level.String())
	}

	return log
}

// startPprof starts the pprof HTTP server if addr is non-empty.
func startPprof(addr string, log *logrus.Logger) {
	if addr != "" {
		go func() {
			log.Infof("Starting pprof server at http://%s/debug/pprof/", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Errorf("pprof server error: %v", err)
			}
		}()
	}
}

// logAppConfig logs the effective global configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Config: Listen:%s, FetchMode:%s, MaxPages:%d, MaxConcurrentCrawls:%d",
		appCfg.ListenAddr, appCfg.FetchMode, config.GetEffectiveMaxPages(*appCfg), appCfg.MaxConcurrentCrawls)
	log.Infof("Config Politeness: UserAgent:%q, RobotsAgent:%q, DelayPerHost:%v, MaxReqPerHost:%d",
		appCfg.UserAgent, appCfg.RobotsAgent, appCfg.DelayPerHost, appCfg.MaxRequestsPerHost)
	log.Infof("Config Retries: Max:%d, InitialDelay:%v, MaxDelay:%v",
		appCfg.MaxRetries, appCfg.InitialRetryDelay, appCfg.MaxRetryDelay)
	log.Infof("Config Timeouts: PerPage:%v, Renderer:%v, RobotsCache:%v, RobotsFailure:%v",
		appCfg.PerPageTimeout, appCfg.Renderer.PageTimeout, appCfg.Robots.CacheTTL, appCfg.Robots.FailureTTL)
	log.Infof("Config Results: Language:%s, VisitedStore:%s, DetectPrivacyLinks:%t",
		appCfg.ResultLanguage, appCfg.VisitedStore, appCfg.DetectPrivacyLinks)
}
