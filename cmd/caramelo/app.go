package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/analyze"
	"github.com/datasniffing/caramelo/pkg/config"
	"github.com/datasniffing/caramelo/pkg/crawler"
	"github.com/datasniffing/caramelo/pkg/fetch"
	"github.com/datasniffing/caramelo/pkg/metrics"
	"github.com/datasniffing/caramelo/pkg/models"
	"github.com/datasniffing/caramelo/pkg/page"
	"github.com/datasniffing/caramelo/pkg/password"
	"github.com/datasniffing/caramelo/pkg/registry"
)

// hostGateEviction is how often idle per-host politeness entries are dropped
const hostGateEviction = 5 * time.Minute

// app holds the components shared by every front-end
type app struct {
	cfg      *config.AppConfig
	log      *logrus.Logger
	source   page.Source
	robots   *fetch.RobotsGate
	checker  *password.Checker
	crawler  *crawler.Crawler
	registry *registry.Registry
	promReg  *prometheus.Registry
}

// buildApp wires the crawl pipeline. ctx bounds background work and every crawl the registry starts.
func buildApp(ctx context.Context, cfg *config.AppConfig, log *logrus.Logger) (*app, error) {
	entry := logrus.NewEntry(log)

	httpClient := fetch.NewClient(cfg.HTTPClientSettings, cfg.UserAgent, log)
	fetcher := fetch.NewFetcher(httpClient, fetch.RetryPolicyFromConfig(cfg), entry)

	gate := fetch.NewHostGate(cfg.MaxRequestsPerHost, cfg.DelayPerHost, entry)
	go gate.RunEviction(ctx, hostGateEviction)

	robots := fetch.NewRobotsGate(fetcher, cfg.RobotsAgent, cfg.Robots.CacheTTL, cfg.Robots.FailureTTL, entry)

	source, err := page.NewSource(cfg, fetcher, gate, entry)
	if err != nil {
		return nil, fmt.Errorf("create page source: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	labels := models.LabelsFor(cfg.ResultLanguage)
	analyzer := analyze.New(cfg.Keywords, cfg.DetectPrivacyLinks)
	checker := password.NewChecker(source, analyzer.Keywords().PasswordPolicy, analyzer.Keywords().StrengthScripts, entry)

	c := crawler.NewCrawler(source, robots, analyzer, checker, crawler.Options{
		MaxPages:     config.GetEffectiveMaxPages(*cfg),
		VisitedStore: cfg.VisitedStore,
		Labels:       labels,
		Observer:     m,
	}, entry)

	reg := registry.New(ctx, registry.Options{
		MaxConcurrent: cfg.MaxConcurrentCrawls,
		ErrorLabel:    labels.URLProcessingError,
	}, entry)
	m.TrackTasks(reg.Len, reg.Pending)
	m.TrackHosts(gate.Len)

	log.Infof("Pipeline ready: source=%s, max_pages=%d, visited_store=%s, language=%s",
		source.Name(), config.GetEffectiveMaxPages(*cfg), cfg.VisitedStore, cfg.ResultLanguage)

	return &app{
		cfg:      cfg,
		log:      log,
		source:   source,
		robots:   robots,
		checker:  checker,
		crawler:  c,
		registry: reg,
		promReg:  promReg,
	}, nil
}

// close waits for running crawls and releases the page source
func (a *app) close() {
	a.registry.Wait()
	if err := a.source.Close(); err != nil {
		a.log.Warnf("Closing page source: %v", err)
	}
}
