package simplecms

import "strings"

// Slugify lowercases a title and reduces it to a URL-safe slug: runs of
// non-alphanumeric characters collapse into single hyphens, leading and
// trailing hyphens are dropped.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
