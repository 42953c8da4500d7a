// Package query derives bounded search strings from noisy user text.
package query

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxWords bounds the number of words in any sanitized query.
	MaxWords = 10
	// SummaryWords is used when the query falls back to the summary text.
	SummaryWords = 8
	// MaxRunes bounds the length of any sanitized query.
	MaxRunes = 80

	minUsefulLen = 3
)

// Input is the raw text a query can be derived from, in order of preference.
type Input struct {
	Title     string
	Summary   string
	ClaimText string
}

// Sanitize returns a plain-text search string, or "" when none of the inputs
// carries enough readable text to search for.
func Sanitize(in Input) string {
	if q := Clean(in.Title, MaxWords); utf8.RuneCountInString(q) > minUsefulLen {
		return q
	}
	if q := Clean(in.Summary, SummaryWords); utf8.RuneCountInString(q) > minUsefulLen {
		return q
	}
	if q := Clean(in.ClaimText, MaxWords); utf8.RuneCountInString(q) > minUsefulLen {
		return q
	}
	return ""
}

// Clean keeps letters, digits, combining marks and whitespace, collapses
// whitespace and returns at most maxWords words within MaxRunes runes.
// Clean is idempotent.
func Clean(s string, maxWords int) string {
	if maxWords <= 0 || maxWords > MaxWords {
		maxWords = MaxWords
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsMark(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(norm.NFC.String(b.String()))
	if len(words) > maxWords {
		words = words[:maxWords]
	}

	var out []rune
	for _, w := range words {
		wr := []rune(w)
		sep := 0
		if len(out) > 0 {
			sep = 1
		}
		if len(out)+sep+len(wr) > MaxRunes {
			if len(out) == 0 {
				out = wr[:MaxRunes]
			}
			break
		}
		if sep == 1 {
			out = append(out, ' ')
		}
		out = append(out, wr...)
	}
	return string(out)
}
