package crawler

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/analyze"
	"github.com/datasniffing/caramelo/pkg/models"
	"github.com/datasniffing/caramelo/pkg/page"
	"github.com/datasniffing/caramelo/pkg/parse"
	"github.com/datasniffing/caramelo/pkg/password"
	"github.com/datasniffing/caramelo/pkg/queue"
	"github.com/datasniffing/caramelo/pkg/storage"
	"github.com/datasniffing/caramelo/pkg/utils"
)

// Terminal reasons recorded in RunStats
const (
	ReasonBudget    = "budget"
	ReasonExhausted = "exhausted"
	ReasonShutdown  = "shutdown"
)

// Page outcomes reported to the Observer
const (
	OutcomeAnalyzed     = "analyzed"
	OutcomeRobotsDenied = "robots_denied"
	OutcomeFetchFailed  = "fetch_failed"
	OutcomeOffHost      = "off_host"
)

// RobotsChecker reports whether a URL may be crawled
type RobotsChecker interface {
	Allowed(ctx context.Context, target *url.URL) (bool, error)
}

// Observer receives crawl progress, typically for metrics
type Observer interface {
	PageProcessed(outcome string)
	RunFinished(stats models.RunStats)
}

// Options tunes a Crawler
type Options struct {
	MaxPages     int           // Page budget per run, must be > 0
	VisitedStore string        // config.VisitedStoreMemory or config.VisitedStoreBadger
	Labels       models.Labels // Check names used in the checklist
	Observer     Observer      // Optional
}

// Crawler runs breadth-first compliance crawls.
// A Crawler is safe for concurrent Runs; each Run owns its frontier, visited set and signals.
type Crawler struct {
	source   page.Source
	robots   RobotsChecker
	analyzer *analyze.Analyzer
	password *password.Checker
	opts     Options
	log      *logrus.Entry
}

// NewCrawler creates a Crawler from its collaborators
func NewCrawler(source page.Source, robots RobotsChecker, analyzer *analyze.Analyzer, checker *password.Checker, opts Options, log *logrus.Entry) *Crawler {
	return &Crawler{
		source:   source,
		robots:   robots,
		analyzer: analyzer,
		password: checker,
		opts:     opts,
		log:      log.WithField("component", "crawler"),
	}
}

// Run crawls the site at seed and returns its compliance checklist.
// Seed-level failures (bad URL, robots denial, unreachable seed) yield a single failing result.
// Failures on later pages are logged and contribute no signal.
// ctx is only expected to end on process shutdown; the checklist then reflects the pages seen so far.
func (c *Crawler) Run(ctx context.Context, seed string) []models.CheckResult {
	start := time.Now()
	stats := models.RunStats{Seed: seed}
	runLog := c.log.WithField("seed", seed)
	defer func() {
		stats.Duration = time.Since(start)
		c.finish(runLog, stats)
	}()

	seedURL, err := parse.ParseSeed(seed)
	if err != nil {
		runLog.Warnf("Seed rejected: %v", err)
		stats.TerminalReason = utils.CategorizeError(err)
		return []models.CheckResult{models.NewFailedCheck(c.opts.Labels.URLProcessingError, err)}
	}
	runLog = runLog.WithField("host", seedURL.Hostname())

	allowed, err := c.robots.Allowed(ctx, seedURL)
	if err != nil && errors.Is(err, utils.ErrFetch) {
		runLog.WithField("error_type", utils.CategorizeError(err)).Warnf("Seed unreachable: %v", err)
		stats.TerminalReason = utils.CategorizeError(err)
		stats.FetchFailures++
		return []models.CheckResult{models.NewFailedCheck(c.opts.Labels.URLUnreachable, err)}
	}
	if err != nil {
		runLog.WithField("error_type", utils.CategorizeError(err)).Warnf("Robots.txt check failed, not crawling: %v", err)
		stats.TerminalReason = utils.CategorizeError(err)
		return []models.CheckResult{models.NewFailedCheck(c.opts.Labels.CrawlingNotPermitted, err)}
	}
	if !allowed {
		runLog.Info("Seed disallowed by robots.txt")
		stats.TerminalReason = utils.CategorizeError(utils.ErrRobotsDisallowed)
		stats.RobotsDenials++
		return []models.CheckResult{models.NewCheckResult(c.opts.Labels.CrawlingNotPermitted, false)}
	}

	store, err := storage.Open(c.opts.VisitedStore, runLog)
	if err != nil {
		runLog.Errorf("Cannot open visited store: %v", err)
		stats.TerminalReason = utils.CategorizeError(err)
		return []models.CheckResult{models.NewFailedCheck(c.opts.Labels.URLProcessingError, err)}
	}
	defer func() {
		if err := store.Close(); err != nil {
			runLog.Warnf("Closing visited store: %v", err)
		}
	}()

	seedView, err := c.source.Load(ctx, seedURL.String())
	if err != nil {
		runLog.WithField("error_type", utils.CategorizeError(err)).Warnf("Seed unreachable: %v", err)
		stats.TerminalReason = utils.CategorizeError(err)
		stats.FetchFailures++
		return []models.CheckResult{models.NewFailedCheck(c.opts.Labels.URLUnreachable, err)}
	}

	r := &run{
		Crawler:  c,
		seed:     seedURL,
		seedView: seedView,
		store:    store,
		frontier: queue.NewFrontier(),
		stats:    &stats,
		log:      runLog,
	}
	return c.checklist(r.walk(ctx))
}

// checklist renders accumulated signals.
// Privacy, refusal and consent are always present; the password line only once a check was confirmed.
func (c *Crawler) checklist(s models.ComplianceSignals) []models.CheckResult {
	labels := c.opts.Labels
	results := []models.CheckResult{
		models.NewCheckResult(labels.PrivacyPolicy, s.HasPrivacyPolicy),
		models.NewCheckResult(labels.CookieRefusal, s.HasCookieRefusal),
		models.NewCheckResult(labels.CookieConsent, s.RespectsCookieConsent),
	}
	if s.PasswordPolicy != nil {
		results = append(results, models.NewCheckResult(labels.PasswordPolicy, s.PasswordPolicy.PassedChecks))
	}
	return results
}

func (c *Crawler) finish(runLog *logrus.Entry, stats models.RunStats) {
	runLog.WithFields(logrus.Fields{
		"pages":          stats.PagesVisited,
		"fetch_failures": stats.FetchFailures,
		"robots_denials": stats.RobotsDenials,
		"off_host":       stats.OffHost,
		"links_enqueued": stats.LinksEnqueued,
		"urls_seen":      stats.URLsSeen,
		"signup_pages":   stats.SignupPages,
		"duration":       stats.Duration.Round(time.Millisecond),
		"reason":         stats.TerminalReason,
	}).Info("Crawl finished")
	if c.opts.Observer != nil {
		c.opts.Observer.RunFinished(stats)
	}
}

func (c *Crawler) pageProcessed(outcome string) {
	if c.opts.Observer != nil {
		c.opts.Observer.PageProcessed(outcome)
	}
}
