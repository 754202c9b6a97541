package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/datasniffing/caramelo/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.RobotsAgent == "" {
		c.RobotsAgent = DefaultRobotsAgent
	}

	// FetchMode
	if c.FetchMode == "" {
		c.FetchMode = FetchModeStatic
	}
	if !c.FetchMode.IsValid() {
		return warnings, fmt.Errorf("%w: fetch_mode must be %q or %q, got %q",
			utils.ErrConfigValidation, FetchModeStatic, FetchModeRendered, c.FetchMode)
	}

	// MaxPages
	if c.MaxPages < 0 {
		warnings = append(warnings, "max_pages cannot be negative, using the fetch mode default")
		c.MaxPages = 0
	}

	// DelayPerHost
	if c.DelayPerHost < 0 {
		warnings = append(warnings, "delay_per_host cannot be negative, disabling delay")
		c.DelayPerHost = 0
	}

	// MaxRequestsPerHost
	if c.MaxRequestsPerHost < 0 {
		warnings = append(warnings, "max_requests_per_host cannot be negative, defaulting to 2")
	}
	if c.MaxRequestsPerHost <= 0 {
		c.MaxRequestsPerHost = 2
	}

	// PerPageTimeout
	if c.PerPageTimeout <= 0 {
		c.PerPageTimeout = DefaultPerPageTimeout
	}

	if c.MaxPageSizeBytes <= 0 {
		c.MaxPageSizeBytes = DefaultMaxPageSize
	}

	if c.MaxConcurrentCrawls < 0 {
		warnings = append(warnings, "max_concurrent_crawls cannot be negative, setting to 0 (unbounded)")
		c.MaxConcurrentCrawls = 0
	}

	// VisitedStore
	switch c.VisitedStore {
	case "":
		c.VisitedStore = VisitedStoreMemory
	case VisitedStoreMemory, VisitedStoreBadger:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown visited_store %q, defaulting to %q", c.VisitedStore, VisitedStoreMemory))
		c.VisitedStore = VisitedStoreMemory
	}

	// ResultLanguage
	c.ResultLanguage = strings.ToLower(strings.TrimSpace(c.ResultLanguage))
	switch c.ResultLanguage {
	case "":
		c.ResultLanguage = DefaultLanguage
	case "en", "pt":
	default:
		warnings = append(warnings, fmt.Sprintf("unsupported result_language %q, defaulting to %q", c.ResultLanguage, DefaultLanguage))
		c.ResultLanguage = DefaultLanguage
	}

	// MaxRetries: one attempt per page unless configured otherwise
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	c.validateHTTPClientSettings()
	c.validateRobots()
	c.validateRenderer()
	c.Keywords = c.Keywords.withDefaults()

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = c.PerPageTimeout
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 10 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

func (c *AppConfig) validateRobots() {
	if c.Robots.CacheTTL <= 0 {
		c.Robots.CacheTTL = 10 * time.Minute
	}
	if c.Robots.FailureTTL <= 0 {
		c.Robots.FailureTTL = 30 * time.Second
	}
}

func (c *AppConfig) validateRenderer() {
	r := &c.Renderer
	if r.SettleDelay <= 0 {
		r.SettleDelay = 1500 * time.Millisecond
	}
	if r.PageTimeout <= 0 {
		r.PageTimeout = 30 * time.Second
	}
	if r.WindowWidth <= 0 {
		r.WindowWidth = 1366
	}
	if r.WindowHeight <= 0 {
		r.WindowHeight = 768
	}
}

// withDefaults fills every empty list and lower-cases configured entries.
func (k KeywordSets) withDefaults() KeywordSets {
	d := DefaultKeywords()
	pick := func(configured, fallback []string) []string {
		if len(configured) == 0 {
			return fallback
		}
		out := make([]string, 0, len(configured))
		for _, s := range configured {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return fallback
		}
		return out
	}
	return KeywordSets{
		PrivacyPolicy:       pick(k.PrivacyPolicy, d.PrivacyPolicy),
		PrivacyLinkPatterns: pick(k.PrivacyLinkPatterns, d.PrivacyLinkPatterns),
		CookieRefusal:       pick(k.CookieRefusal, d.CookieRefusal),
		ConsentBanner:       pick(k.ConsentBanner, d.ConsentBanner),
		PasswordPolicy:      pick(k.PasswordPolicy, d.PasswordPolicy),
		StrengthScripts:     pick(k.StrengthScripts, d.StrengthScripts),
		Signup:              pick(k.Signup, d.Signup),
	}
}
