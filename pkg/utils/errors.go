package utils

import (
	"context"
	"errors"
	"net"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrRetryFailed       = errors.New("request failed after all retries") // Wraps the last underlying error
	ErrClientHTTPError   = errors.New("client HTTP error (4xx)")          // Wraps original error/status
	ErrServerHTTPError   = errors.New("server HTTP error (5xx)")          // Wraps original error/status
	ErrOtherHTTPError    = errors.New("other HTTP error (non-2xx)")       // Wraps original error/status
	ErrInvalidURL        = errors.New("invalid URL")
	ErrRobotsDisallowed  = errors.New("disallowed by robots.txt")
	ErrRobotsUnavailable = errors.New("robots.txt unavailable")
	ErrFetch             = errors.New("page fetch failed")     // Network, timeout, DNS or non-2xx
	ErrDecode            = errors.New("page decode failed")    // Body is not parseable text/HTML
	ErrBrowserLaunch     = errors.New("browser launch failed") // Headless browser could not start
	ErrDatabase          = errors.New("database error")        // Wraps badger errors
	ErrSemaphoreTimeout  = errors.New("timeout acquiring semaphore")
	ErrRequestCreation   = errors.New("failed to create HTTP request")
	ErrResponseBodyRead  = errors.New("failed to read response body")
	ErrConfigValidation  = errors.New("configuration validation error")
)

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrRetryFailed):
		underlying := errors.Unwrap(err)
		if underlying != nil {
			if errors.Is(underlying, ErrServerHTTPError) {
				return "RetryFailed_HTTPServer"
			}
			if errors.Is(underlying, ErrClientHTTPError) {
				return "RetryFailed_HTTPClient"
			}
			return "RetryFailed_" + networkCategory(underlying)
		}
		return "RetryFailed_Unknown"
	case errors.Is(err, ErrBrowserLaunch):
		return "Browser_Launch"
	case errors.Is(err, ErrRobotsDisallowed):
		return "Policy_Robots"
	case errors.Is(err, ErrRobotsUnavailable):
		return "Robots_Unavailable"
	case errors.Is(err, ErrInvalidURL):
		return "Input_InvalidURL"
	case errors.Is(err, ErrClientHTTPError):
		errMsg := err.Error()
		for _, code := range []string{"404", "403", "401", "429"} {
			if strings.Contains(errMsg, " "+code+" ") {
				return "HTTP_" + code
			}
		}
		return "HTTP_4xx"
	case errors.Is(err, ErrServerHTTPError):
		return "HTTP_5xx"
	case errors.Is(err, ErrOtherHTTPError):
		return "HTTP_OtherStatus"
	case errors.Is(err, ErrDecode):
		return "Content_Decode"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrSemaphoreTimeout):
		return "Resource_SemaphoreTimeout"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrResponseBodyRead):
		return "Network_BodyRead"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// Context errors
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		if strings.Contains(err.Error(), "semaphore") {
			return "Resource_SemaphoreTimeout"
		}
		return "System_ContextDeadlineExceeded"
	}

	if category := networkCategory(err); category != "NetworkOther" {
		return "Network_" + strings.TrimPrefix(category, "Network")
	}
	if errors.Is(err, ErrFetch) {
		return "Fetch_Other"
	}
	return "Unknown"
}

// networkCategory classifies transport-level failures by type or message.
func networkCategory(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "NetworkTimeout"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerErrMsg, "timeout"), strings.Contains(lowerErrMsg, "deadline exceeded"):
		return "NetworkTimeout"
	case strings.Contains(lowerErrMsg, "connection refused"):
		return "ConnectionRefused"
	case strings.Contains(lowerErrMsg, "no such host"):
		return "DNSLookup"
	case strings.Contains(lowerErrMsg, "tls"), strings.Contains(lowerErrMsg, "certificate"):
		return "TLS"
	case strings.Contains(lowerErrMsg, "reset by peer"):
		return "ConnectionReset"
	}
	return "NetworkOther"
}
