package page

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/datasniffing/caramelo/pkg/config"
	"github.com/datasniffing/caramelo/pkg/utils"
)

// RenderedOptions configures a RenderedSource
type RenderedOptions struct {
	Renderer        config.RendererConfig
	UserAgent       string
	MaxBytes        int64
	ConsentKeywords []string // Phrases that mark a fixed container as a consent banner
	RefusalKeywords []string // Phrases that mark a banner button as a refusal control
}

// RenderedSource loads pages in a shared headless Chrome instance.
// Each Load runs in a fresh incognito browser context, so cookies never leak between pages,
// and loads are serialized because one browser is shared by every crawl.
type RenderedSource struct {
	opts          RenderedOptions
	script        string
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	sem           *semaphore.Weighted
	log           *logrus.Entry
}

// NewRenderedSource starts the browser. Failure to start wraps utils.ErrBrowserLaunch.
func NewRenderedSource(opts RenderedOptions, log *logrus.Entry) (*RenderedSource, error) {
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.GetEffectiveHeadless(opts.Renderer)),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(opts.Renderer.WindowWidth, opts.Renderer.WindowHeight),
	)
	if opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Renderer.ExecPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(opts.Renderer.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// The first Run launches the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %w", utils.ErrBrowserLaunch, err)
	}

	rs := &RenderedSource{
		opts:          opts,
		script:        bannerScript(vendorBannerSelectors, opts.ConsentKeywords),
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		sem:           semaphore.NewWeighted(1),
		log:           log.WithField("source", "rendered"),
	}
	rs.log.WithField("settle_delay", opts.Renderer.SettleDelay).Info("Headless browser started")
	return rs, nil
}

func (r *RenderedSource) Name() string { return "rendered" }

// Close shuts the browser down
func (r *RenderedSource) Close() error {
	r.browserCancel()
	r.allocCancel()
	return nil
}

// Load navigates to rawURL, waits for the page to settle and snapshots DOM, cookies and banner.
// Errors wrap utils.ErrFetch (navigation, timeout, error status) or utils.ErrDecode.
func (r *RenderedSource) Load(ctx context.Context, rawURL string) (View, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: waiting for browser: %w", utils.ErrFetch, err)
	}
	defer r.sem.Release(1)

	tabCtx, tabCancel := chromedp.NewContext(r.browserCtx, chromedp.WithNewBrowserContext())
	defer tabCancel()
	runCtx, runCancel := context.WithTimeout(tabCtx, r.opts.Renderer.PageTimeout)
	defer runCancel()

	// Tie the tab to the caller's context as well
	stop := context.AfterFunc(ctx, runCancel)
	defer stop()

	var document documentStatus
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument && e.Response != nil {
			document.observe(e.FrameID, int64(e.Response.Status))
		}
	})

	var (
		html     string
		location string
		cookies  []*network.Cookie
		probe    probeResult
	)
	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// A page target's main frame shares the target's id
			document.setMainFrame(cdp.FrameID(chromedp.FromContext(ctx).Target.TargetID))
			return nil
		}),
		chromedp.Navigate(rawURL),
		chromedp.Sleep(r.opts.Renderer.SettleDelay),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
		chromedp.Evaluate(r.script, &probe),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrFetch, err)
	}
	if status := document.status.Load(); status >= 400 {
		return nil, fmt.Errorf("%w: status %d", utils.ErrFetch, status)
	}

	if r.opts.MaxBytes > 0 && int64(len(html)) > r.opts.MaxBytes {
		html = html[:r.opts.MaxBytes]
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrDecode, err)
	}

	final, err := url.Parse(location)
	if err != nil || final.Host == "" {
		final, _ = url.Parse(rawURL)
	}
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}

	view := &renderedView{htmlView: newHTMLView(final, doc, names), refusalKeywords: r.opts.RefusalKeywords}
	view.banner, view.hasBanner = probe.toBanner()

	r.log.WithFields(logrus.Fields{
		"url":     final.String(),
		"cookies": len(names),
		"banner":  view.banner.Selector,
	}).Debug("Page rendered")
	return view, nil
}

// renderedView adds the consent banner snapshot to an htmlView
type renderedView struct {
	*htmlView
	banner          Banner
	hasBanner       bool
	refusalKeywords []string
}

func (v *renderedView) FindConsentBanner() (Banner, bool) {
	return v.banner, v.hasBanner
}

func (v *renderedView) BannerRefusalButtonText() (string, bool) {
	if !v.hasBanner {
		return "", false
	}
	return refusalButton(v.banner.Buttons, v.refusalKeywords)
}

// documentStatus keeps the HTTP status of the main frame's document.
// Iframe documents report through the same event and are ignored.
type documentStatus struct {
	mainFrame atomic.Value // cdp.FrameID
	status    atomic.Int64
}

func (d *documentStatus) setMainFrame(id cdp.FrameID) {
	d.mainFrame.Store(id)
}

func (d *documentStatus) observe(frame cdp.FrameID, status int64) {
	main, _ := d.mainFrame.Load().(cdp.FrameID)
	if main == "" || frame != main {
		return
	}
	d.status.Store(status)
}
