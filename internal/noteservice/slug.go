package noteservice

import (
	"strings"
	"unicode"
)

const fallbackSlug = "note"

// Slugify turns a note title into a filename stem. ASCII letters and digits
// are kept lowercased, runs of whitespace, hyphens and underscores become a
// single hyphen, and everything else is dropped.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastHyphen := false
	for _, r := range title {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		case unicode.IsSpace(r) || r == '-' || r == '_':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}
