package i18n

import "strings"

var languageNames = map[string]string{
	"en": "English",
	"ru": "Russian",
	"uk": "Ukrainian",
}

func GetLanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// Resolve picks the language to answer in: the user's own when supported, else fallback.
func Resolve(userLanguage, fallback string) string {
	code := strings.ToLower(userLanguage)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if _, ok := languageNames[code]; ok {
		return code
	}
	return fallback
}
