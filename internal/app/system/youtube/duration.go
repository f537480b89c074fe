package youtube

import (
	"regexp"
	"strconv"
)

// ShortVideoLimit is the eligibility bar: videos strictly shorter qualify.
const ShortVideoLimit = 120

var durationRe = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseDuration decodes the PT#H#M#S subset of ISO-8601 the platform uses
// for video lengths into seconds. Each component is optional; a string that
// does not contain the pattern decodes to 0.
func ParseDuration(s string) int {
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	part := func(v string) int {
		if v == "" {
			return 0
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	}
	return part(m[1])*3600 + part(m[2])*60 + part(m[3])
}

// IsShort reports whether a video of the given length is short-form.
func IsShort(seconds int) bool { return seconds < ShortVideoLimit }
