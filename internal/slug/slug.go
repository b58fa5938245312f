// Package slug derives URL-safe feed identifiers from podcast titles.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make lowercases title, folds accents and joins the remaining letter and
// digit runs with single dashes. It returns "" when nothing survives.
func Make(title string) string {
	folded, _, err := transform.String(foldAccents, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r == 'ß':
			b.WriteString("ss")
			dash = false
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Valid reports whether s is already in the form Make produces.
func Valid(s string) bool {
	return s != "" && Make(s) == s
}

// reserved slugs collide with fixed feed routes; /feeds/all.xml is the
// catalog.
var reserved = map[string]struct{}{"all": {}}

// Reserved reports whether s cannot be used as a podcast slug.
func Reserved(s string) bool {
	_, ok := reserved[s]
	return ok
}
