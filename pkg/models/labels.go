package models

// Labels names each checklist entry in one language
type Labels struct {
	PrivacyPolicy        string
	CookieRefusal        string
	CookieConsent        string
	PasswordPolicy       string
	URLProcessingError   string
	URLUnreachable       string
	CrawlingNotPermitted string
}

var labelsByLanguage = map[string]Labels{
	"en": {
		PrivacyPolicy:        "Privacy Policy",
		CookieRefusal:        "Option to refuse cookie collection",
		CookieConsent:        "Collects cookies only after user consent",
		PasswordPolicy:       "Has a password strength policy",
		URLProcessingError:   "Error processing URL",
		URLUnreachable:       "Error accessing URL",
		CrawlingNotPermitted: "Website does not allow crawling",
	},
	"pt": {
		PrivacyPolicy:        "Política de Privacidade",
		CookieRefusal:        "Opção de recusar coleta de Cookies",
		CookieConsent:        "Coleta cookies somente após consentimento do usuário",
		PasswordPolicy:       "Tem uma política de força de senha",
		URLProcessingError:   "Erro ao processar URL",
		URLUnreachable:       "Erro ao acessar URL",
		CrawlingNotPermitted: "Website inserido não permite a ação de webcrawlers",
	},
}

// LabelsFor returns the labels for lang, falling back to English
func LabelsFor(lang string) Labels {
	if l, ok := labelsByLanguage[lang]; ok {
		return l
	}
	return labelsByLanguage["en"]
}
