package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"github.com/datasniffing/caramelo/pkg/utils"
)

const maxRobotsBytes = 512 << 10

// robotsEntry is a cached robots.txt outcome for one scheme+host
type robotsEntry struct {
	data      *robotstxt.RobotsData // nil when err is set
	err       error
	expiresAt time.Time
}

// RobotsGate decides whether the crawler may fetch a URL.
// Any failure to obtain or parse robots.txt denies; a 4xx means no rules and allows.
type RobotsGate struct {
	fetcher    *Fetcher
	agent      string
	cacheTTL   time.Duration
	failureTTL time.Duration
	now        func() time.Time

	mu    sync.Mutex
	cache map[string]robotsEntry // scheme://host -> outcome
	group singleflight.Group
	log   *logrus.Entry
}

// NewRobotsGate creates a RobotsGate testing rules against agent
func NewRobotsGate(fetcher *Fetcher, agent string, cacheTTL, failureTTL time.Duration, log *logrus.Entry) *RobotsGate {
	return &RobotsGate{
		fetcher:    fetcher,
		agent:      agent,
		cacheTTL:   cacheTTL,
		failureTTL: failureTTL,
		now:        time.Now,
		cache:      make(map[string]robotsEntry),
		log:        log,
	}
}

// Allowed reports whether target may be crawled.
// A non-nil error means robots.txt could not be obtained; allowed is then always false.
func (g *RobotsGate) Allowed(ctx context.Context, target *url.URL) (bool, error) {
	if target == nil || target.Host == "" {
		return false, fmt.Errorf("%w: no host to check robots.txt for", utils.ErrInvalidURL)
	}
	data, err := g.robotsFor(ctx, target)
	if err != nil {
		return false, err
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return data.TestAgent(path, g.agent), nil
}

// robotsFor returns the parsed robots.txt for target's origin, from cache or network.
// Concurrent callers for the same origin share one fetch.
func (g *RobotsGate) robotsFor(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	origin := target.Scheme + "://" + target.Host

	g.mu.Lock()
	entry, found := g.cache[origin]
	g.mu.Unlock()
	if found && g.now().Before(entry.expiresAt) {
		return entry.data, entry.err
	}

	v, err, _ := g.group.Do(origin, func() (interface{}, error) {
		data, fetchErr := g.fetchRobots(ctx, origin)
		// A caller's own cancellation says nothing about the site
		if fetchErr != nil && (errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded)) && ctx.Err() != nil {
			return nil, fetchErr
		}
		ttl := g.cacheTTL
		if fetchErr != nil {
			ttl = g.failureTTL
		}
		g.mu.Lock()
		g.cache[origin] = robotsEntry{data: data, err: fetchErr, expiresAt: g.now().Add(ttl)}
		g.mu.Unlock()
		return data, fetchErr
	})
	if err != nil {
		return nil, err
	}
	return v.(*robotstxt.RobotsData), nil
}

func (g *RobotsGate) fetchRobots(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	robotsURL := origin + "/robots.txt"
	robotsLog := g.log.WithField("robots_url", robotsURL)
	robotsLog.Debug("Fetching robots.txt")

	resp, err := g.fetcher.Get(ctx, robotsURL)
	if err != nil && resp == nil {
		robotsLog.Warnf("Fetching robots.txt failed: %v", err)
		if errors.Is(err, utils.ErrServerHTTPError) || errors.Is(err, utils.ErrClientHTTPError) {
			return nil, fmt.Errorf("%w: %s: %w", utils.ErrRobotsUnavailable, robotsURL, err)
		}
		// No HTTP answer at all: the site itself is unreachable
		return nil, fmt.Errorf("%w: %s: %w: %w", utils.ErrRobotsUnavailable, robotsURL, utils.ErrFetch, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if readErr != nil {
		return nil, fmt.Errorf("%w: %s: %w: %w", utils.ErrRobotsUnavailable, robotsURL, utils.ErrResponseBodyRead, readErr)
	}

	// 2xx parses the rules, 4xx means allow-all, anything else denies
	if resp.StatusCode >= http.StatusInternalServerError || (resp.StatusCode >= 300 && resp.StatusCode < 400) {
		return nil, fmt.Errorf("%w: %s: status %d", utils.ErrRobotsUnavailable, robotsURL, resp.StatusCode)
	}
	data, parseErr := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if parseErr != nil {
		robotsLog.Warnf("Parsing robots.txt failed: %v", parseErr)
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrRobotsUnavailable, robotsURL, parseErr)
	}
	robotsLog.WithField("status_code", resp.StatusCode).Debug("Robots.txt loaded")
	return data, nil
}
