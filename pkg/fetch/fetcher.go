package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/config"
	"github.com/datasniffing/caramelo/pkg/utils"
)

// RetryPolicy controls how many extra attempts a fetch makes on transient failures
type RetryPolicy struct {
	MaxRetries        int
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
}

// RetryPolicyFromConfig extracts the retry settings from the application config
func RetryPolicyFromConfig(cfg *config.AppConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        cfg.MaxRetries,
		InitialRetryDelay: cfg.InitialRetryDelay,
		MaxRetryDelay:     cfg.MaxRetryDelay,
	}
}

// Fetcher makes HTTP requests with the configured retry logic, using an underlying http.Client
type Fetcher struct {
	client *http.Client
	policy RetryPolicy
	log    *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, policy RetryPolicy, log *logrus.Entry) *Fetcher {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Fetcher{client: client, policy: policy, log: log}
}

// Get builds a GET request for rawURL and runs it through FetchWithRetry
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	return f.FetchWithRetry(ctx, req)
}

// FetchWithRetry performs an HTTP request associated with the provided context.
// Network errors, 5xx and 429 are retried with exponential backoff and jitter.
// Other 4xx and non-2xx statuses return the response together with a wrapped sentinel error; the caller must close the body.
func (f *Fetcher) FetchWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	reqLog := f.log.WithField("url", req.URL.String())
	maxRetries := f.policy.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("context cancelled (%v) during retry backoff after error: %w", err, lastErr)
			}
			return nil, fmt.Errorf("context cancelled before first attempt: %w", err)
		}

		if attempt > 0 {
			delay := f.backoff(attempt)
			reqLog.WithFields(logrus.Fields{"attempt": attempt, "max_retries": maxRetries, "delay": delay}).Warn("Retrying request...")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled (%v) during retry delay after error: %w", ctx.Err(), lastErr)
			}
		}

		resp, err := f.client.Do(req.WithContext(ctx))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				reqLog.Debugf("Context ended during request: %v", err)
				return nil, err
			}
			reqLog.WithField("attempt", attempt).Debugf("Network error: %v", err)
			lastErr = err
			continue
		}

		statusCode := resp.StatusCode
		resLog := reqLog.WithFields(logrus.Fields{"status_code": statusCode, "attempt": attempt})

		switch {
		case statusCode >= 200 && statusCode < 300:
			resLog.Debug("Successfully fetched")
			return resp, nil

		case statusCode >= 500:
			lastErr = fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, statusCode, http.StatusText(statusCode))
			drainAndClose(resp)
			continue

		case statusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, http.StatusText(statusCode))
			drainAndClose(resp)
			continue

		case statusCode >= 400:
			resLog.Debug("Client error (4xx), not retrying")
			return resp, fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, http.StatusText(statusCode))

		default:
			resLog.Debugf("Non-retryable/unexpected status: %d", statusCode)
			return resp, fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, statusCode, http.StatusText(statusCode))
		}
	}

	// A single-attempt policy reports the underlying cause directly
	if maxRetries == 0 {
		return nil, lastErr
	}
	reqLog.Debugf("All %d fetch attempts failed. Last error: %v", maxRetries+1, lastErr)
	return nil, fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
}

// backoff returns initial * 2^(attempt-1), capped at the max delay, with +/- 10% jitter
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(f.policy.InitialRetryDelay) * math.Pow(2, float64(attempt-1)))
	if delay <= 0 || (f.policy.MaxRetryDelay > 0 && delay > f.policy.MaxRetryDelay) {
		delay = f.policy.MaxRetryDelay
	}
	if delay <= 0 {
		return 0
	}
	var jitter time.Duration
	if jitterRange := int64(delay) / 5; jitterRange > 0 {
		jitter = time.Duration(rand.Int63n(jitterRange)) - (delay / 10)
	}
	if finalDelay := delay + jitter; finalDelay > 0 {
		return finalDelay
	}
	return 0
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
