// Package report turns dose reports and validation errors into the rounded,
// labelled form shown to clinicians, in Japanese or English.
package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Supported lists the display languages, Japanese first.
var Supported = []language.Tag{language.Japanese, language.English}

var matcher = language.NewMatcher(Supported)

// ParseLanguage accepts a language name such as "ja", "en" or "en-US" and
// returns the supported tag it maps to.
func ParseLanguage(s string) (language.Tag, error) {
	if tag, ok := match(s); ok {
		return tag, nil
	}
	return language.Und, fmt.Errorf("unsupported language %q", s)
}

// Negotiate picks the display language from an explicit query value, then
// an Accept-Language header, then the fallback.
func Negotiate(query, acceptLanguage string, fallback language.Tag) language.Tag {
	if tag, ok := match(query); ok {
		return tag
	}
	if tag, ok := match(acceptLanguage); ok {
		return tag
	}
	return fallback
}

func match(s string) (language.Tag, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return language.Und, false
	}
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		return language.Und, false
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.Und, false
	}
	return Supported[idx], true
}
