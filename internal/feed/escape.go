package feed

import (
	"fmt"
	"strings"
	"time"
)

// EscapeXML is the single escaping step for every text value written into a
// feed. The ampersand has to go first so the entities added afterwards are
// not escaped again.
func EscapeXML(s string) string {
	s = stripInvalidXMLChars(s)
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}

// stripInvalidXMLChars drops runes outside the XML 1.0 Char production;
// they cannot be represented even as character references.
func stripInvalidXMLChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r >= 0x20 && r <= 0xD7FF:
			return r
		case r >= 0xE000 && r <= 0xFFFD:
			return r
		case r >= 0x10000 && r <= 0x10FFFF:
			return r
		}
		return -1
	}, s)
}

const rfc2822GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

// FormatRFC2822 renders t the way podcast clients expect pubDate values.
func FormatRFC2822(t time.Time) string {
	return t.UTC().Format(rfc2822GMT)
}

// FormatDuration renders seconds as HH:MM:SS for itunes:duration.
func FormatDuration(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
