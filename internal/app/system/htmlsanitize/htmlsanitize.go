// Package htmlsanitize cleans text that arrives from users or the video
// platform before it is stored or returned.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// Text strips every tag and returns plain text. Titles, names and channel
// titles go through Text; entities the platform sends (&amp;, &#39;) are
// decoded so clients see the literal characters. Decoding can expose
// escaped markup, so stripping repeats until the text is stable.
func Text(s string) string {
	if s == "" {
		return ""
	}
	for i := 0; i < maxTextRounds; i++ {
		out := html.UnescapeString(strict.Sanitize(html.UnescapeString(s)))
		if out == s {
			return strings.TrimSpace(out)
		}
		s = out
	}
	// Still changing: nested escapes deeper than we unwind. Drop brackets.
	return strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(s))
}

const maxTextRounds = 4

// Sanitize keeps safe formatting markup and removes scripts, event handlers
// and unsafe URLs. Used for free-form descriptions.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// URL returns u when it is an http(s) URL and "" otherwise.
func URL(u string) string {
	u = strings.TrimSpace(u)
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") {
		return u
	}
	return ""
}
