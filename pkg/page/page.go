// Package page loads web pages and exposes the read-only view the analyzers work on.
// Two sources exist: a static HTTP fetch and a headless-browser render.
package page

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// View is a loaded page. Implementations are immutable once returned.
type View interface {
	// URL is the final URL after redirects
	URL() *url.URL
	// FullText is the visible text, lower-cased, whitespace collapsed
	FullText() string
	// Links are absolute http(s) links found on the page, resolved against URL()
	Links() []*url.URL
	// CookiesSet lists the names of cookies the page set, sorted and unique
	CookiesSet() []string
	// Document gives access to the parsed DOM for structural checks
	Document() *goquery.Document
}

// Source loads pages. Implementations must be safe for concurrent use.
type Source interface {
	Load(ctx context.Context, rawURL string) (View, error)
	Name() string
	Close() error
}

// Banner describes a cookie-consent banner found on a rendered page
type Banner struct {
	Selector string   // Matching vendor selector, or "heuristic"
	Text     string   // Visible banner text, lower-cased
	Buttons  []string // Visible labels of clickable elements inside the banner
}

// BannerProber is implemented by views that can see client-side consent banners
type BannerProber interface {
	FindConsentBanner() (Banner, bool)
	// BannerRefusalButtonText returns the label of the banner's refusal control, if any
	BannerRefusalButtonText() (string, bool)
}

// htmlView is the View shared by both sources
type htmlView struct {
	url     *url.URL
	doc     *goquery.Document
	text    string
	links   []*url.URL
	cookies []string
}

func newHTMLView(final *url.URL, doc *goquery.Document, cookieNames []string) *htmlView {
	return &htmlView{
		url:     final,
		doc:     doc,
		text:    visibleText(doc),
		links:   extractLinks(doc, final),
		cookies: uniqueSorted(cookieNames),
	}
}

func (v *htmlView) URL() *url.URL               { return v.url }
func (v *htmlView) FullText() string            { return v.text }
func (v *htmlView) Document() *goquery.Document { return v.doc }

func (v *htmlView) Links() []*url.URL {
	out := make([]*url.URL, len(v.links))
	copy(out, v.links)
	return out
}

func (v *htmlView) CookiesSet() []string {
	out := make([]string, len(v.cookies))
	copy(out, v.cookies)
	return out
}

// visibleText returns the document text without script and style content.
// Works on a clone so the DOM keeps its scripts for later inspection.
func visibleText(doc *goquery.Document) string {
	clone := doc.Selection.Clone()
	clone.Find("script, style, noscript, template, svg").Remove()
	return strings.ToLower(strings.Join(strings.Fields(clone.Text()), " "))
}

// extractLinks resolves every a[href] against base, keeping unique http(s) targets.
// A <base href> in the document takes precedence over the page URL.
func extractLinks(doc *goquery.Document, base *url.URL) []*url.URL {
	if base == nil {
		return nil
	}
	resolveBase := base
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			resolveBase = b
		}
	}

	seen := make(map[string]struct{})
	var links []*url.URL
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		u, err := resolveBase.Parse(href)
		if err != nil {
			return
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return // mailto:, javascript:, tel:, ...
		}
		u.Fragment = ""
		u.RawFragment = ""
		key := u.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, u)
	})
	return links
}

func uniqueSorted(names []string) []string {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
