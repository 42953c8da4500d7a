package search

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

const maxSnippetRunes = 300

var stripPolicy = bluemonday.StrictPolicy()

// cleanSnippet strips markup from provider text, decodes entities and bounds its length.
func cleanSnippet(s string) string {
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxSnippetRunes {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxSnippetRunes-3])) + "..."
}

// cleanTitle strips markup from a title without bounding it.
func cleanTitle(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(stripPolicy.Sanitize(s))), " ")
}
