package youtube

import (
	"regexp"
	"strings"
)

var linkRe = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|shorts/|embed/)|youtu\.be/)([^&?/]+)`)

// VideoIDFromLink extracts the video id from a pasted watch, shorts, embed
// or youtu.be link. ok is false when the text is not a recognizable link.
func VideoIDFromLink(link string) (id string, ok bool) {
	m := linkRe.FindStringSubmatch(strings.TrimSpace(link))
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}
