package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// hostEntry tracks one host's concurrency permits and request timing.
type hostEntry struct {
	sem         *semaphore.Weighted
	activeCount int64     // held + waiting permits
	lastRequest time.Time // zero until the first request completes
	lastRelease time.Time
}

// HostGate bounds concurrent requests per host and spaces them by a minimum delay.
// One gate is shared by every crawl in the process, so two tasks against the same
// site together still respect the limits.
type HostGate struct {
	entries map[string]*hostEntry
	mu      sync.Mutex
	limit   int64
	delay   time.Duration
	log     *logrus.Entry
}

// NewHostGate creates a gate allowing maxPerHost concurrent requests per host,
// each at least minDelay after the previous one (0 disables the delay).
func NewHostGate(maxPerHost int, minDelay time.Duration, log *logrus.Entry) *HostGate {
	limit := int64(maxPerHost)
	if limit <= 0 {
		limit = 2
	}
	return &HostGate{
		entries: make(map[string]*hostEntry),
		limit:   limit,
		delay:   minDelay,
		log:     log,
	}
}

// Acquire takes a permit for host and waits out the politeness delay.
// The returned release func must be called once the request has finished.
func (g *HostGate) Acquire(ctx context.Context, host string) (release func(), err error) {
	g.mu.Lock()
	entry, exists := g.entries[host]
	if !exists {
		entry = &hostEntry{sem: semaphore.NewWeighted(g.limit)}
		g.entries[host] = entry
		g.log.WithFields(logrus.Fields{"host": host, "limit": g.limit}).Debug("Created new host entry")
	}
	entry.activeCount++
	g.mu.Unlock()

	if err := entry.sem.Acquire(ctx, 1); err != nil {
		g.mu.Lock()
		entry.activeCount--
		g.mu.Unlock()
		return nil, err
	}

	if err := g.applyDelay(ctx, host, entry); err != nil {
		g.finish(entry, false)
		return nil, err
	}

	var once sync.Once
	return func() { once.Do(func() { g.finish(entry, true) }) }, nil
}

func (g *HostGate) finish(entry *hostEntry, requested bool) {
	g.mu.Lock()
	entry.activeCount--
	now := time.Now()
	entry.lastRelease = now
	if requested {
		entry.lastRequest = now
	}
	g.mu.Unlock()
	entry.sem.Release(1)
}

// applyDelay sleeps if the last request to host finished less than the delay ago.
// Jitter of +/- 10% desynchronizes concurrent crawls.
func (g *HostGate) applyDelay(ctx context.Context, host string, entry *hostEntry) error {
	if g.delay <= 0 {
		return nil
	}
	g.mu.Lock()
	last := entry.lastRequest
	g.mu.Unlock()
	if last.IsZero() {
		return nil
	}

	elapsed := time.Since(last)
	if elapsed >= g.delay {
		return nil
	}
	sleep := g.delay - elapsed
	if jitterRange := int64(sleep) / 5; jitterRange > 0 {
		sleep += time.Duration(rand.Int63n(jitterRange)) - (sleep / 10)
	}
	if sleep <= 0 {
		return nil
	}

	g.log.WithFields(logrus.Fields{"host": host, "sleep": sleep, "required_delay": g.delay}).Debug("Politeness delay")
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunEviction periodically removes idle host entries. Should be run in a goroutine.
func (g *HostGate) RunEviction(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.evictIdle(interval)
		case <-ctx.Done():
			return
		}
	}
}

// evictIdle drops entries with no activity for longer than maxIdle.
func (g *HostGate) evictIdle(maxIdle time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	evicted := 0
	for host, entry := range g.entries {
		if entry.activeCount == 0 && !entry.lastRelease.IsZero() && now.Sub(entry.lastRelease) >= maxIdle {
			delete(g.entries, host)
			evicted++
		}
	}
	if evicted > 0 {
		g.log.Debugf("Evicted %d idle host entries, %d remain", evicted, len(g.entries))
	}
}

// Len returns the current number of tracked hosts.
func (g *HostGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
