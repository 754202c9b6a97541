package parse

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode"

	"github.com/datasniffing/caramelo/pkg/utils"
)

// NormalizeURL standardizes a URL for the visited set
// It lowercases the scheme and host, removes default ports (80 for http, 443 for https), removes trailing slashes from paths (unless root "/"), ensures empty path becomes "/", removes the fragment and sorts query parameters
// Query strings are kept: "?page=2" is a distinct page on most sites
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil {
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	if normalized.Path == "" {
		normalized.Path = "/"
	} else if len(normalized.Path) > 1 && strings.HasSuffix(normalized.Path, "/") {
		normalized.Path = strings.TrimRight(normalized.Path, "/")
		if normalized.Path == "" {
			normalized.Path = "/"
		}
	}
	normalized.RawPath = ""

	normalized.Fragment = ""
	normalized.RawFragment = ""
	if normalized.RawQuery != "" {
		normalized.RawQuery = normalized.Query().Encode() // Encode sorts by key
	}
	normalized.ForceQuery = false

	return normalized.String()
}

// ParseSeed parses a user-supplied seed URL with the stricter url.ParseRequestURI
// and requires an http(s) scheme and a non-empty host
func ParseSeed(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty URL", utils.ErrInvalidURL)
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q in %s", utils.ErrInvalidURL, parsed.Scheme, raw)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host in %s", utils.ErrInvalidURL, raw)
	}
	return parsed, nil
}

// SameHost reports whether two URLs share a hostname, ignoring case and port
func SameHost(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Hostname(), b.Hostname())
}

// CompactURL lowercases s and drops every character that is not a letter or digit,
// so "/Criar-Conta" and "/criar_conta" compare equal
func CompactURL(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
