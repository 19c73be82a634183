package media

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	youTubeIDPattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	youTubeURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`youtube\.com/watch\?(?:.*&)?v=([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/[^?#]*\?(?:.*&)?v=([a-zA-Z0-9_-]{11})`),
	}
)

// IsYouTubeRef reports whether v names a YouTube video, either as a bare
// 11-character id or as one of the watch/short/embed URL forms.
func IsYouTubeRef(v string) bool {
	_, ok := YouTubeID(v)
	return ok
}

// YouTubeID extracts the 11-character video id from v.
func YouTubeID(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if youTubeIDPattern.MatchString(v) {
		return v, true
	}
	for _, p := range youTubeURLPatterns {
		if m := p.FindStringSubmatch(v); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// YouTubeEmbedURL returns the privacy-enhanced embed URL for a reference.
func YouTubeEmbedURL(v string) string {
	id, ok := YouTubeID(v)
	if !ok {
		return ""
	}
	return "https://www.youtube-nocookie.com/embed/" + url.PathEscape(id)
}
