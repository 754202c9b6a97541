package page

import (
	"encoding/json"
	"fmt"
	"strings"
)

// vendorBannerSelectors are the containers used by common consent-management platforms
var vendorBannerSelectors = []string{
	"#onetrust-banner-sdk",
	"#onetrust-consent-sdk",
	"#CybotCookiebotDialog",
	"#didomi-notice",
	"#didomi-host",
	".qc-cmp2-container",
	"#truste-consent-track",
	".osano-cm-dialog",
	".cky-consent-container",
	"#cookie-law-info-bar",
	"#cmplz-cookiebanner-container",
	"#usercentrics-root",
	"#iubenda-cs-banner",
	"#cookie-banner",
	"#cookie-consent",
	"#cookieConsent",
	".cookie-banner",
	".cookie-consent",
	".cookie-notice",
	"[aria-label*='cookie' i]",
}

// probeResult is the JSON shape returned by the banner probe script
type probeResult struct {
	Found    bool     `json:"found"`
	Selector string   `json:"selector"`
	Text     string   `json:"text"`
	Buttons  []string `json:"buttons"`
}

// bannerScript builds the in-page probe. Vendor selectors are tried first; otherwise the
// first visible fixed or sticky container whose text mentions a consent keyword wins.
func bannerScript(selectors, consentKeywords []string) string {
	sel, _ := json.Marshal(selectors)
	kw, _ := json.Marshal(consentKeywords)
	return fmt.Sprintf(`(() => {
  const selectors = %s;
  const keywords = %s;
  const visible = (el) => {
    const s = window.getComputedStyle(el);
    const r = el.getBoundingClientRect();
    return s.display !== 'none' && s.visibility !== 'hidden' && r.width > 0 && r.height > 0;
  };
  let banner = null;
  let matched = '';
  for (const s of selectors) {
    let el = null;
    try { el = document.querySelector(s); } catch (e) { continue; }
    if (el && visible(el)) { banner = el; matched = s; break; }
  }
  if (!banner) {
    for (const el of document.querySelectorAll('div, section, dialog, aside')) {
      const pos = window.getComputedStyle(el).position;
      if ((pos === 'fixed' || pos === 'sticky') && visible(el)) {
        const text = (el.innerText || '').toLowerCase();
        if (keywords.some((k) => text.includes(k))) { banner = el; matched = 'heuristic'; break; }
      }
    }
  }
  if (!banner) { return {found: false, selector: '', text: '', buttons: []}; }
  const buttons = [];
  for (const b of banner.querySelectorAll('button, a, [role=button], input[type=button], input[type=submit]')) {
    if (!visible(b)) { continue; }
    const label = String(b.innerText || b.value || b.getAttribute('aria-label') || '').trim();
    if (label) { buttons.push(label); }
  }
  return {found: true, selector: matched, text: (banner.innerText || '').trim().slice(0, 4000), buttons: buttons};
})()`, sel, kw)
}

// toBanner converts a probe result; ok is false when no banner was found
func (p probeResult) toBanner() (Banner, bool) {
	if !p.Found {
		return Banner{}, false
	}
	buttons := make([]string, 0, len(p.Buttons))
	for _, b := range p.Buttons {
		if b = strings.Join(strings.Fields(b), " "); b != "" {
			buttons = append(buttons, b)
		}
	}
	return Banner{
		Selector: p.Selector,
		Text:     strings.ToLower(strings.Join(strings.Fields(p.Text), " ")),
		Buttons:  buttons,
	}, true
}

// refusalButton returns the first button label containing a refusal keyword
func refusalButton(buttons, refusalKeywords []string) (string, bool) {
	for _, label := range buttons {
		lower := strings.ToLower(label)
		for _, kw := range refusalKeywords {
			if strings.Contains(lower, kw) {
				return label, true
			}
		}
	}
	return "", false
}
