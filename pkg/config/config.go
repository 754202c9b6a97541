package config

import (
	"time"
)

// FetchMode selects which page source a crawl uses
type FetchMode string

const (
	FetchModeStatic   FetchMode = "static"   // Plain HTTP GET, server-sent HTML only
	FetchModeRendered FetchMode = "rendered" // Headless browser, post-JavaScript DOM
)

// IsValid returns true if the mode is a known value
func (m FetchMode) IsValid() bool {
	switch m {
	case FetchModeStatic, FetchModeRendered:
		return true
	}
	return false
}

// Visited set backends
const (
	VisitedStoreMemory = "memory"
	VisitedStoreBadger = "badger"
)

// AppConfig holds the global application configuration
type AppConfig struct {
	ListenAddr          string           `yaml:"listen_addr"`
	UserAgent           string           `yaml:"user_agent"`
	RobotsAgent         string           `yaml:"robots_agent"`
	FetchMode           FetchMode        `yaml:"fetch_mode"`
	MaxPages            int              `yaml:"max_pages,omitempty"` // 0 = per-mode default
	DelayPerHost        time.Duration    `yaml:"delay_per_host,omitempty"`
	MaxRequestsPerHost  int              `yaml:"max_requests_per_host,omitempty"`
	PerPageTimeout      time.Duration    `yaml:"per_page_timeout,omitempty"`
	MaxPageSizeBytes    int64            `yaml:"max_page_size_bytes,omitempty"`
	MaxConcurrentCrawls int              `yaml:"max_concurrent_crawls,omitempty"` // 0 = unbounded
	VisitedStore        string           `yaml:"visited_store,omitempty"`
	ResultLanguage      string           `yaml:"result_language,omitempty"` // "en" or "pt"
	DetectPrivacyLinks  bool             `yaml:"detect_privacy_links,omitempty"`
	MaxRetries          int              `yaml:"max_retries,omitempty"`
	InitialRetryDelay   time.Duration    `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay       time.Duration    `yaml:"max_retry_delay,omitempty"`
	HTTPClientSettings  HTTPClientConfig `yaml:"http_client_settings,omitempty"`
	Robots              RobotsConfig     `yaml:"robots,omitempty"`
	Renderer            RendererConfig   `yaml:"renderer,omitempty"`
	Keywords            KeywordSets      `yaml:"keywords,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// RobotsConfig controls robots.txt caching
type RobotsConfig struct {
	CacheTTL   time.Duration `yaml:"cache_ttl,omitempty"`   // How long a parsed robots.txt is reused
	FailureTTL time.Duration `yaml:"failure_ttl,omitempty"` // How long a failed fetch keeps denying before a refetch
}

// RendererConfig holds headless browser settings for rendered fetches
type RendererConfig struct {
	SettleDelay  time.Duration `yaml:"settle_delay,omitempty"` // Wait after load so client-side scripts can run
	PageTimeout  time.Duration `yaml:"page_timeout,omitempty"`
	Headless     *bool         `yaml:"headless,omitempty"`
	ExecPath     string        `yaml:"exec_path,omitempty"` // Empty = chromedp autodetect
	WindowWidth  int           `yaml:"window_width,omitempty"`
	WindowHeight int           `yaml:"window_height,omitempty"`
}

// KeywordSets are the lower-case phrase lists behind every heuristic.
// Empty lists are replaced by the built-in Portuguese/English defaults.
type KeywordSets struct {
	PrivacyPolicy       []string `yaml:"privacy_policy,omitempty"`
	PrivacyLinkPatterns []string `yaml:"privacy_link_patterns,omitempty"`
	CookieRefusal       []string `yaml:"cookie_refusal,omitempty"`
	ConsentBanner       []string `yaml:"consent_banner,omitempty"`
	PasswordPolicy      []string `yaml:"password_policy,omitempty"`
	StrengthScripts     []string `yaml:"strength_scripts,omitempty"`
	Signup              []string `yaml:"signup,omitempty"`
}

// GetEffectiveMaxPages returns the page budget for the configured fetch mode
func GetEffectiveMaxPages(appCfg AppConfig) int {
	if appCfg.MaxPages > 0 {
		return appCfg.MaxPages
	}
	if appCfg.FetchMode == FetchModeRendered {
		return DefaultMaxPagesRendered
	}
	return DefaultMaxPagesStatic
}

// GetEffectiveHeadless determines whether the browser runs without a window
func GetEffectiveHeadless(rc RendererConfig) bool {
	if rc.Headless != nil {
		return *rc.Headless
	}
	return true
}
