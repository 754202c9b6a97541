package page

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"

	"github.com/datasniffing/caramelo/pkg/fetch"
	"github.com/datasniffing/caramelo/pkg/utils"
)

// StaticSource loads pages with a single HTTP GET and parses the server-sent HTML.
// Client-side scripts never run, so banners injected by JavaScript are invisible.
type StaticSource struct {
	fetcher  *fetch.Fetcher
	gate     *fetch.HostGate // nil = no per-host politeness
	maxBytes int64
	log      *logrus.Entry
}

// NewStaticSource creates a StaticSource. gate may be nil.
func NewStaticSource(fetcher *fetch.Fetcher, gate *fetch.HostGate, maxBytes int64, log *logrus.Entry) *StaticSource {
	return &StaticSource{
		fetcher:  fetcher,
		gate:     gate,
		maxBytes: maxBytes,
		log:      log.WithField("source", "static"),
	}
}

func (s *StaticSource) Name() string { return "static" }
func (s *StaticSource) Close() error { return nil }

// Load fetches rawURL and returns its view.
// Errors wrap utils.ErrFetch (transport or status) or utils.ErrDecode (unusable body).
func (s *StaticSource) Load(ctx context.Context, rawURL string) (View, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrFetch, err)
	}

	if s.gate != nil {
		release, err := s.gate.Acquire(ctx, target.Hostname())
		if err != nil {
			return nil, fmt.Errorf("%w: waiting for host slot: %w", utils.ErrFetch, err)
		}
		defer release()
	}

	resp, err := s.fetcher.Get(ctx, rawURL)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%w: %w", utils.ErrFetch, err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !isTextual(contentType) {
		return nil, fmt.Errorf("%w: unsupported content type %q", utils.ErrDecode, contentType)
	}

	body := io.Reader(resp.Body)
	if s.maxBytes > 0 {
		body = io.LimitReader(resp.Body, s.maxBytes)
	}
	decoded, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: charset: %w", utils.ErrDecode, err)
	}
	doc, err := goquery.NewDocumentFromReader(decoded)
	if err != nil {
		// Body read failures surface here too
		return nil, fmt.Errorf("%w: %w", utils.ErrFetch, err)
	}

	final := resp.Request.URL
	if final == nil {
		final = target
	}
	cookies := setCookieNames(resp.Header)
	s.log.WithFields(logrus.Fields{"url": final.String(), "cookies": len(cookies)}).Debug("Page loaded")
	return newHTMLView(final, doc, cookies), nil
}

// isTextual accepts HTML, XHTML and plain text; a missing header is given the benefit of the doubt
func isTextual(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain":
		return true
	}
	return false
}

// setCookieNames returns the cookie name of every Set-Cookie header line,
// including lines net/http would reject as malformed
func setCookieNames(h http.Header) []string {
	var names []string
	for _, line := range h.Values("Set-Cookie") {
		pair, _, _ := strings.Cut(line, ";")
		name, _, _ := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			name = "(unnamed)"
		}
		names = append(names, name)
	}
	return names
}
