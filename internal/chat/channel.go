package chat

import (
	"regexp"
	"strings"
)

var channelPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// NormalizeChannel trims and lower-cases a channel name. ok is false when
// the result is not 1-64 of a-z, 0-9, '-' or '_' starting with a letter or digit.
func NormalizeChannel(raw string) (name string, ok bool) {
	name = strings.ToLower(strings.TrimSpace(raw))
	return name, channelPattern.MatchString(name)
}
