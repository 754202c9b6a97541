package analyze

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasniffing/caramelo/pkg/config"
	"github.com/datasniffing/caramelo/pkg/page"
)

func defaultAnalyzer() *Analyzer {
	return New(config.KeywordSets{}, false)
}

func TestHasPrivacyPolicy(t *testing.T) {
	a := defaultAnalyzer()
	tests := []struct {
		text string
		want bool
	}{
		{"read our privacy policy", true},
		{"Leia a POLÍTICA DE PRIVACIDADE", true},
		{"aviso de privacidade atualizado", true},
		{"privacy notice", true},
		{"terms of service", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, a.HasPrivacyPolicy(tt.text))
		})
	}
}

func TestHasCookieRefusal(t *testing.T) {
	a := defaultAnalyzer()
	assert.True(t, a.HasCookieRefusal("you can reject all cookies"))
	assert.True(t, a.HasCookieRefusal("clique para recusar"))
	assert.True(t, a.HasCookieRefusal("Não aceitar"))
	assert.True(t, a.HasCookieRefusal("Decline"))
	assert.False(t, a.HasCookieRefusal("accept all"))
	assert.False(t, a.HasCookieRefusal(""))
}

func TestRespectsCookieConsent(t *testing.T) {
	a := defaultAnalyzer()
	assert.True(t, a.RespectsCookieConsent(nil))
	assert.True(t, a.RespectsCookieConsent([]string{}))
	assert.False(t, a.RespectsCookieConsent([]string{"sid"}))
}

func TestLooksLikeSignup(t *testing.T) {
	a := defaultAnalyzer()
	tests := []struct {
		url  string
		want bool
	}{
		{"https://shop.example/cadastro", true},
		{"https://shop.example/Sign-Up", true},
		{"https://shop.example/conta/criar-conta", true},
		{"https://shop.example/nova_conta", true},
		{"https://shop.example/cadastre-se", false},
		{"https://shop.example/cadastrar-se", true},
		{"https://shop.example/login", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, a.LooksLikeSignup(tt.url))
		})
	}
}

func TestHasPrivacyPolicyLink(t *testing.T) {
	a := defaultAnalyzer()
	parse := func(raw string) *url.URL {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		return u
	}

	assert.True(t, a.HasPrivacyPolicyLink([]*url.URL{parse("https://x.example/privacy")}))
	assert.True(t, a.HasPrivacyPolicyLink([]*url.URL{parse("https://x.example/pt/politica-de-privacidade/")}))
	assert.True(t, a.HasPrivacyPolicyLink([]*url.URL{parse("https://x.example/legal/privacy-policy")}))
	assert.True(t, a.HasPrivacyPolicyLink([]*url.URL{parse("https://x.example/privacy/cookies")}))
	assert.False(t, a.HasPrivacyPolicyLink([]*url.URL{parse("https://x.example/privacyshield-faq")}))
	assert.False(t, a.HasPrivacyPolicyLink([]*url.URL{parse("https://x.example/about"), nil}))
	assert.False(t, a.HasPrivacyPolicyLink(nil))
}

func TestNew_CustomKeywords(t *testing.T) {
	a := New(config.KeywordSets{PrivacyPolicy: []string{" Datenschutz "}}, false)
	assert.True(t, a.HasPrivacyPolicy("datenschutzerklärung"))
	assert.False(t, a.HasPrivacyPolicy("privacy policy"))
	// Unset lists keep the defaults
	assert.True(t, a.HasCookieRefusal("reject"))
}

func TestEvaluate_StaticView(t *testing.T) {
	html := `<html><body><footer><a href="/privacy">Privacy</a> <button>Reject</button></footer></body></html>`
	view, err := page.FromHTML("https://shop.example/signup", html, "sid")
	require.NoError(t, err)

	v := defaultAnalyzer().Evaluate(view)
	assert.False(t, v.PrivacyPolicy, "link detection is off by default")
	assert.True(t, v.CookieRefusal)
	assert.False(t, v.CookieConsent)
	assert.True(t, v.Signup)

	withLinks := New(config.KeywordSets{}, true).Evaluate(view)
	assert.True(t, withLinks.PrivacyPolicy)
}

// bannerView decorates a View with a fixed banner answer
type bannerView struct {
	page.View
	label string
	found bool
}

func (b bannerView) FindConsentBanner() (page.Banner, bool) {
	return page.Banner{Buttons: []string{b.label}}, b.found
}

func (b bannerView) BannerRefusalButtonText() (string, bool) {
	return b.label, b.found
}

func TestEvaluate_BannerTakesPrecedence(t *testing.T) {
	base, err := page.FromHTML("https://shop.example/", "<html><body>Bem-vindo</body></html>")
	require.NoError(t, err)
	a := defaultAnalyzer()

	assert.True(t, a.Evaluate(bannerView{View: base, label: "Rejeitar todos", found: true}).CookieRefusal)

	// No banner button: fall back to page text
	assert.False(t, a.Evaluate(bannerView{View: base, found: false}).CookieRefusal)

	withText, err := page.FromHTML("https://shop.example/", "<html><body>Você pode recusar cookies</body></html>")
	require.NoError(t, err)
	assert.True(t, a.Evaluate(bannerView{View: withText, found: false}).CookieRefusal)
}
