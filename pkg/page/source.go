package page

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/datasniffing/caramelo/pkg/config"
	"github.com/datasniffing/caramelo/pkg/fetch"
	"github.com/datasniffing/caramelo/pkg/utils"
)

// NewSource builds the Source selected by cfg.FetchMode
func NewSource(cfg *config.AppConfig, fetcher *fetch.Fetcher, gate *fetch.HostGate, log *logrus.Entry) (Source, error) {
	switch cfg.FetchMode {
	case config.FetchModeStatic:
		return NewStaticSource(fetcher, gate, cfg.MaxPageSizeBytes, log), nil
	case config.FetchModeRendered:
		rs, err := NewRenderedSource(RenderedOptions{
			Renderer:        cfg.Renderer,
			UserAgent:       cfg.UserAgent,
			MaxBytes:        cfg.MaxPageSizeBytes,
			ConsentKeywords: cfg.Keywords.ConsentBanner,
			RefusalKeywords: cfg.Keywords.CookieRefusal,
		}, log)
		if err != nil {
			return nil, err
		}
		return rs, nil
	}
	return nil, fmt.Errorf("%w: unknown fetch mode %q", utils.ErrConfigValidation, cfg.FetchMode)
}

// FromHTML builds a View from markup already in memory, e.g. a page captured elsewhere
func FromHTML(pageURL, html string, cookieNames ...string) (View, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrInvalidURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrDecode, err)
	}
	return newHTMLView(u, doc, cookieNames), nil
}
