package config

import "time"

const (
	DefaultListenAddr       = ":8080"
	DefaultUserAgent        = "DataSniffingCaramelo/1.0 (+https://github.com/datasniffing/caramelo)"
	DefaultRobotsAgent      = "DataSniffingCaramelo"
	DefaultMaxPagesStatic   = 30
	DefaultMaxPagesRendered = 20
	DefaultPerPageTimeout   = 10 * time.Second
	DefaultMaxPageSize      = 10 << 20
	DefaultLanguage         = "en"
)

// DefaultKeywords returns the built-in phrase lists. All entries are lower case.
func DefaultKeywords() KeywordSets {
	return KeywordSets{
		PrivacyPolicy: []string{
			"privacy policy",
			"privacy notice",
			"política de privacidade",
			"politica de privacidade",
			"notificação de privacidade",
			"aviso de privacidade",
		},
		PrivacyLinkPatterns: []string{
			"/privacy",
			"/privacy-policy",
			"/politica-de-privacidade",
			"/legal/privacy-policy",
		},
		CookieRefusal: []string{
			"refuse",
			"reject",
			"decline",
			"do not accept",
			"recusar",
			"rejeitar",
			"negar",
			"não aceitar",
		},
		ConsentBanner: []string{
			"cookie",
			"consent",
			"consentimento",
			"privacidade",
		},
		PasswordPolicy: []string{
			"at least",
			"uppercase",
			"lowercase",
			"special character",
			"digit",
			"password must",
			"mínimo de caracteres",
			"mínimo de",
			"letra maiúscula",
			"caractere especial",
			"requisitos de senha",
			"complexidade",
		},
		StrengthScripts: []string{
			"zxcvbn",
			"password-strength",
			"pwstrength",
			"strength-meter",
			"check-password-strength",
		},
		Signup: []string{
			"cadastro",
			"signup",
			"criarconta",
			"novaconta",
			"cadastrarse",
		},
	}
}
