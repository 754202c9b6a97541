package crawler

import (
	"context"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/models"
	"github.com/datasniffing/caramelo/pkg/page"
	"github.com/datasniffing/caramelo/pkg/parse"
	"github.com/datasniffing/caramelo/pkg/queue"
	"github.com/datasniffing/caramelo/pkg/storage"
	"github.com/datasniffing/caramelo/pkg/utils"
)

// run is the transient state of one crawl, owned by a single goroutine
type run struct {
	*Crawler
	seed     *url.URL
	seedView page.View
	store    storage.VisitedStore
	frontier *queue.Frontier
	signals  models.ComplianceSignals
	stats    *models.RunStats
	log      *logrus.Entry
}

// walk drains the frontier until it is empty or the page budget is spent.
// Every dequeued URL is charged to the budget, including robots-denied and failed ones.
func (r *run) walk(ctx context.Context) models.ComplianceSignals {
	defer func() { r.stats.URLsSeen = r.store.Count() }()

	seedKey := parse.NormalizeURL(r.seed)
	if _, err := r.store.MarkVisited(seedKey); err != nil {
		r.log.Warnf("Marking seed visited: %v", err)
	}
	r.frontier.Push(models.WorkItem{URL: seedKey, Depth: 0})

	for r.stats.PagesVisited < r.opts.MaxPages {
		// The seed view is already loaded, so it is analyzed even during shutdown
		if r.stats.PagesVisited > 0 && ctx.Err() != nil {
			r.stats.TerminalReason = ReasonShutdown
			return r.signals
		}
		item, ok := r.frontier.Pop()
		if !ok {
			r.stats.TerminalReason = ReasonExhausted
			return r.signals
		}
		r.stats.PagesVisited++
		r.visit(ctx, item)
	}

	if r.frontier.Len() == 0 {
		r.stats.TerminalReason = ReasonExhausted
	} else {
		r.stats.TerminalReason = ReasonBudget
	}
	return r.signals
}

// visit processes one dequeued URL. The seed reuses the view loaded by Run.
func (r *run) visit(ctx context.Context, item models.WorkItem) {
	pageLog := r.log.WithFields(logrus.Fields{"url": item.URL, "depth": item.Depth})

	view := r.seedView
	if item.Depth > 0 {
		target, err := url.Parse(item.URL)
		if err != nil {
			pageLog.Warnf("Skipping unparsable queued URL: %v", err)
			r.stats.FetchFailures++
			r.pageProcessed(OutcomeFetchFailed)
			return
		}

		allowed, err := r.robots.Allowed(ctx, target)
		if err != nil || !allowed {
			if err != nil {
				pageLog.WithField("error_type", utils.CategorizeError(err)).Debugf("Robots check failed, skipping: %v", err)
			} else {
				pageLog.Debug("Disallowed by robots.txt, skipping")
			}
			r.stats.RobotsDenials++
			r.pageProcessed(OutcomeRobotsDenied)
			return
		}

		view, err = r.source.Load(ctx, item.URL)
		if err != nil {
			pageLog.WithField("error_type", utils.CategorizeError(err)).Warnf("Page skipped: %v", err)
			r.stats.FetchFailures++
			r.pageProcessed(OutcomeFetchFailed)
			return
		}
		if !parse.SameHost(view.URL(), r.seed) {
			pageLog.WithField("final_url", view.URL().String()).Debug("Redirected off the seed host, skipping")
			r.stats.OffHost++
			r.pageProcessed(OutcomeOffHost)
			return
		}
	}

	r.analyzePage(view, item.URL, pageLog)
	r.enqueueLinks(view, item.Depth+1, pageLog)
	r.pageProcessed(OutcomeAnalyzed)
}

// analyzePage folds one page into the run's signals. The sign-up heuristic matches
// the dequeued URL as well as the final one, so a redirecting sign-up link still counts.
func (r *run) analyzePage(view page.View, queuedURL string, pageLog *logrus.Entry) {
	verdict := r.analyzer.Evaluate(view)
	if !verdict.Signup {
		verdict.Signup = r.analyzer.LooksLikeSignup(queuedURL)
	}
	r.signals.Observe(verdict.PrivacyPolicy, verdict.CookieRefusal, verdict.CookieConsent)
	pageLog.WithFields(logrus.Fields{
		"privacy": verdict.PrivacyPolicy,
		"refusal": verdict.CookieRefusal,
		"consent": verdict.CookieConsent,
	}).Debug("Page analyzed")

	if !verdict.Signup {
		return
	}
	r.stats.SignupPages++
	if r.signals.PasswordPolicy != nil {
		pageLog.Debug("Sign-up page found, password policy already decided")
		return
	}
	result := r.password.Inspect(view)
	if r.signals.ObservePassword(result) {
		pageLog.WithFields(logrus.Fields{"passed": result.PassedChecks, "reason": result.Reason}).Info("Password policy decided")
	}
}

// enqueueLinks queues same-host links not seen before. URLs are marked visited on enqueue,
// so each normalized URL enters the frontier at most once per run.
func (r *run) enqueueLinks(view page.View, depth int, pageLog *logrus.Entry) {
	added := 0
	for _, link := range view.Links() {
		if !parse.SameHost(link, r.seed) {
			continue
		}
		key := parse.NormalizeURL(link)
		isNew, err := r.store.MarkVisited(key)
		if err != nil {
			pageLog.Warnf("Visited store error for %s: %v", key, err)
			continue
		}
		if !isNew {
			continue
		}
		r.frontier.Push(models.WorkItem{URL: key, Depth: depth})
		added++
	}
	r.stats.LinksEnqueued += added
	if added > 0 {
		pageLog.WithField("new_links", added).Debug("Links enqueued")
	}
}
