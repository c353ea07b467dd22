package languages

import "sort"

// names maps every supported language code to its display name.
var names = map[string]string{
	"ja": "日本語",
	"zh": "中文",
	"en": "English",
	"ko": "한국어",
	"es": "Español",
	"fr": "Français",
	"de": "Deutsch",
	"ru": "Русский",
}

var rtlLanguages = map[string]bool{
	"ar": true, // Arabic
	"fa": true, // Persian (Farsi)
	"he": true, // Hebrew
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
	"yi": true, // Yiddish
	"ku": true, // Kurdish (some dialects)
	"dv": true, // Divehi (Maldivian)
}

// Language is a supported language code with its display name.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Name returns the display name for code, or code itself if unsupported.
func Name(code string) string {
	if name, ok := names[code]; ok {
		return name
	}
	return code
}

// IsValid reports whether code is a supported language code.
func IsValid(code string) bool {
	_, ok := names[code]
	return ok
}

// IsRTL reports whether code is written right-to-left.
func IsRTL(code string) bool {
	return rtlLanguages[code]
}

// All returns every supported language sorted by code.
func All() []Language {
	all := make([]Language, 0, len(names))
	for code, name := range names {
		all = append(all, Language{Code: code, Name: name})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return all
}
