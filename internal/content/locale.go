package content

import (
	"strings"

	"golang.org/x/text/language"
)

// Supported lists the locales the curriculum ships; the first is the default.
var Supported = []language.Tag{language.Spanish, language.English}

// DefaultLocale is the locale used when nothing better matches.
var DefaultLocale = Supported[0]

var matcher = language.NewMatcher(Supported)

// MatchLocale maps a user-supplied locale ("en", "en-GB", "es_MX") to one
// of the Supported tags. Empty, malformed or unsupported input yields
// DefaultLocale.
func MatchLocale(raw string) language.Tag {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	if raw == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return DefaultLocale
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return DefaultLocale
	}
	return Supported[idx]
}
