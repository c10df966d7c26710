package extract

import "strings"

const (
	LangPortuguese = "pt-BR"
	LangEnglish    = "en"
	LangUnknown    = "unknown"
)

var (
	ptChars     = []string{"ã", "õ", "ç", "á", "é", "í", "ó", "ú"}
	ptWords     = []string{"não", "queria", "amanhã", "filhos", "esposa", "marido"}
	enFragments = []string{" i ", " my ", " wish", " die", " kill", " suicide"}
)

// DetectLanguage makes an advisory guess from accents and a few stopwords.
// Portuguese is checked first.
func DetectLanguage(text string) string {
	lower := strings.ToLower(text)

	if containsAny(lower, ptChars) || containsAny(lower, ptWords) {
		return LangPortuguese
	}
	if containsAny(" "+lower+" ", enFragments) {
		return LangEnglish
	}
	return LangUnknown
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
