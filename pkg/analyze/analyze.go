// Package analyze holds the keyword heuristics that turn a page into compliance verdicts.
// Every check is a pure function of its input.
package analyze

import (
	"net/url"
	"strings"

	"github.com/datasniffing/caramelo/pkg/config"
	"github.com/datasniffing/caramelo/pkg/page"
	"github.com/datasniffing/caramelo/pkg/parse"
)

// Analyzer evaluates pages against configurable phrase lists.
// Matching is case-insensitive substring matching: "reject" also hits "rejected".
type Analyzer struct {
	keywords    config.KeywordSets
	detectLinks bool
}

// New creates an Analyzer. Empty keyword lists fall back to the built-in defaults.
// detectLinks enables href-based privacy policy detection in addition to text search.
func New(keywords config.KeywordSets, detectLinks bool) *Analyzer {
	d := config.DefaultKeywords()
	fill := func(list, fallback []string) []string {
		if len(list) == 0 {
			return fallback
		}
		return lowerAll(list)
	}
	return &Analyzer{
		keywords: config.KeywordSets{
			PrivacyPolicy:       fill(keywords.PrivacyPolicy, d.PrivacyPolicy),
			PrivacyLinkPatterns: fill(keywords.PrivacyLinkPatterns, d.PrivacyLinkPatterns),
			CookieRefusal:       fill(keywords.CookieRefusal, d.CookieRefusal),
			ConsentBanner:       fill(keywords.ConsentBanner, d.ConsentBanner),
			PasswordPolicy:      fill(keywords.PasswordPolicy, d.PasswordPolicy),
			StrengthScripts:     fill(keywords.StrengthScripts, d.StrengthScripts),
			Signup:              fill(keywords.Signup, d.Signup),
		},
		detectLinks: detectLinks,
	}
}

// Keywords returns the effective phrase lists
func (a *Analyzer) Keywords() config.KeywordSets {
	return a.keywords
}

// HasPrivacyPolicy reports whether text mentions a privacy policy
func (a *Analyzer) HasPrivacyPolicy(text string) bool {
	return containsAny(text, a.keywords.PrivacyPolicy)
}

// HasPrivacyPolicyLink reports whether any link path looks like a privacy policy page
func (a *Analyzer) HasPrivacyPolicyLink(links []*url.URL) bool {
	for _, l := range links {
		if l == nil {
			continue
		}
		path := strings.ToLower(strings.TrimRight(l.Path, "/"))
		for _, pattern := range a.keywords.PrivacyLinkPatterns {
			if strings.HasSuffix(path, strings.TrimRight(pattern, "/")) || strings.Contains(path, pattern+"/") {
				return true
			}
		}
	}
	return false
}

// HasCookieRefusal reports whether text offers a way to refuse cookies
func (a *Analyzer) HasCookieRefusal(text string) bool {
	return containsAny(text, a.keywords.CookieRefusal)
}

// RespectsCookieConsent is true iff the page set no cookies before any interaction
func (a *Analyzer) RespectsCookieConsent(cookies []string) bool {
	return len(cookies) == 0
}

// LooksLikeSignup reports whether rawURL looks like a registration page.
// Punctuation is ignored, so "/criar-conta" matches "criarconta".
func (a *Analyzer) LooksLikeSignup(rawURL string) bool {
	compact := parse.CompactURL(rawURL)
	for _, kw := range a.keywords.Signup {
		if k := parse.CompactURL(kw); k != "" && strings.Contains(compact, k) {
			return true
		}
	}
	return false
}

// PageVerdict is the analyzer output for one page
type PageVerdict struct {
	PrivacyPolicy bool
	CookieRefusal bool
	CookieConsent bool
	Signup        bool
}

// Evaluate runs every page-level check on view.
// Views that can see consent banners are judged on the banner's refusal button first.
func (a *Analyzer) Evaluate(view page.View) PageVerdict {
	text := view.FullText()
	v := PageVerdict{
		PrivacyPolicy: a.HasPrivacyPolicy(text),
		CookieConsent: a.RespectsCookieConsent(view.CookiesSet()),
		Signup:        a.LooksLikeSignup(view.URL().String()),
	}
	if !v.PrivacyPolicy && a.detectLinks {
		v.PrivacyPolicy = a.HasPrivacyPolicyLink(view.Links())
	}

	if prober, ok := view.(page.BannerProber); ok {
		if label, found := prober.BannerRefusalButtonText(); found && a.HasCookieRefusal(strings.ToLower(label)) {
			v.CookieRefusal = true
			return v
		}
	}
	v.CookieRefusal = a.HasCookieRefusal(text)
	return v
}

func containsAny(text string, phrases []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func lowerAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
