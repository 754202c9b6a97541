package config

import (
	"strings"
	"testing"
	"time"

	"github.com/datasniffing/caramelo/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_Validate_Defaults(t *testing.T) {
	cfg := AppConfig{} // Zero value
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, "DataSniffingCaramelo", cfg.RobotsAgent)
	assert.Equal(t, FetchModeStatic, cfg.FetchMode)
	assert.Equal(t, 0, cfg.MaxPages)
	assert.Equal(t, 2, cfg.MaxRequestsPerHost)
	assert.Equal(t, 10*time.Second, cfg.PerPageTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxPageSizeBytes)
	assert.Equal(t, VisitedStoreMemory, cfg.VisitedStore)
	assert.Equal(t, "en", cfg.ResultLanguage)

	// A single attempt per page by default
	assert.Equal(t, 0, cfg.MaxRetries)

	// HTTP client timeout follows the per-page timeout
	assert.Equal(t, 10*time.Second, cfg.HTTPClientSettings.Timeout)
	assert.Equal(t, 100, cfg.HTTPClientSettings.MaxIdleConns)
	assert.Equal(t, 2, cfg.HTTPClientSettings.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, cfg.HTTPClientSettings.IdleConnTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTPClientSettings.TLSHandshakeTimeout)
	assert.Equal(t, 1*time.Second, cfg.HTTPClientSettings.ExpectContinueTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTPClientSettings.DialerTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientSettings.DialerKeepAlive)

	assert.Equal(t, 10*time.Minute, cfg.Robots.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.Robots.FailureTTL)

	assert.Equal(t, 1500*time.Millisecond, cfg.Renderer.SettleDelay)
	assert.Equal(t, 30*time.Second, cfg.Renderer.PageTimeout)

	assert.Equal(t, DefaultKeywords(), cfg.Keywords)
}

func TestAppConfig_Validate_InvalidFetchMode(t *testing.T) {
	cfg := AppConfig{FetchMode: "telepathic"}
	_, err := cfg.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrConfigValidation)
	assert.Contains(t, err.Error(), "telepathic")
}

func TestAppConfig_Validate_Warnings(t *testing.T) {
	cfg := AppConfig{
		MaxPages:            -1,
		DelayPerHost:        -time.Second,
		MaxConcurrentCrawls: -3,
		VisitedStore:        "redis",
		ResultLanguage:      "fr",
		MaxRetries:          -2,
		MaxRequestsPerHost:  -1,
	}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.True(t, containsWarning(warnings, "max_pages cannot be negative"))
	assert.True(t, containsWarning(warnings, "delay_per_host cannot be negative"))
	assert.True(t, containsWarning(warnings, "max_concurrent_crawls cannot be negative"))
	assert.True(t, containsWarning(warnings, "unknown visited_store"))
	assert.True(t, containsWarning(warnings, "unsupported result_language"))
	assert.True(t, containsWarning(warnings, "max_retries cannot be negative"))
	assert.True(t, containsWarning(warnings, "max_requests_per_host cannot be negative"))

	assert.Equal(t, 0, cfg.MaxPages)
	assert.Equal(t, time.Duration(0), cfg.DelayPerHost)
	assert.Equal(t, 0, cfg.MaxConcurrentCrawls)
	assert.Equal(t, VisitedStoreMemory, cfg.VisitedStore)
	assert.Equal(t, "en", cfg.ResultLanguage)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 2, cfg.MaxRequestsPerHost)
}

func TestAppConfig_Validate_PreservesValues(t *testing.T) {
	cfg := AppConfig{
		ListenAddr:     ":9000",
		FetchMode:      FetchModeRendered,
		MaxPages:       5,
		VisitedStore:   VisitedStoreBadger,
		ResultLanguage: " PT ",
		MaxRetries:     2,
		HTTPClientSettings: HTTPClientConfig{
			Timeout: 3 * time.Second,
		},
	}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, FetchModeRendered, cfg.FetchMode)
	assert.Equal(t, 5, cfg.MaxPages)
	assert.Equal(t, VisitedStoreBadger, cfg.VisitedStore)
	assert.Equal(t, "pt", cfg.ResultLanguage)
	assert.Equal(t, 3*time.Second, cfg.HTTPClientSettings.Timeout)

	// Retry delays get defaults once retries are enabled
	assert.Equal(t, 1*time.Second, cfg.InitialRetryDelay)
	assert.Equal(t, 30*time.Second, cfg.MaxRetryDelay)
}

func TestAppConfig_Validate_RetryDelayClamp(t *testing.T) {
	cfg := AppConfig{
		MaxRetries:        1,
		InitialRetryDelay: 10 * time.Second,
		MaxRetryDelay:     2 * time.Second,
	}
	warnings, err := cfg.Validate()

	require.NoError(t, err)
	assert.True(t, containsWarning(warnings, "initial_retry_delay"))
	assert.Equal(t, 2*time.Second, cfg.InitialRetryDelay)
}

func TestAppConfig_Validate_KeywordOverrides(t *testing.T) {
	cfg := AppConfig{
		Keywords: KeywordSets{
			PrivacyPolicy: []string{"  Datenschutz ", ""},
			Signup:        []string{"   "},
		},
	}
	_, err := cfg.Validate()
	require.NoError(t, err)

	assert.Equal(t, []string{"datenschutz"}, cfg.Keywords.PrivacyPolicy)
	// A list with no usable entries falls back to the defaults
	assert.Equal(t, DefaultKeywords().Signup, cfg.Keywords.Signup)
	assert.Equal(t, DefaultKeywords().CookieRefusal, cfg.Keywords.CookieRefusal)
}

func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
