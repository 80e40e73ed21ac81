package engine

import (
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
)

// UserAgentChrome is the desktop UA used when no stealth client is configured.
const UserAgentChrome = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

var (
	titleNoise  = regexp.MustCompile(`(?i)\s*[\(\[](official|lyric|lyrics|audio|video|music video|hd|4k|visualizer|remaster(ed)?)[^\)\]]*[\)\]]`)
	topicSuffix = regexp.MustCompile(`(?i)\s*-\s*topic$|VEVO$`)
)

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// SongQuery derives a (title, artist) lyrics query from a video title and
// channel name. "Artist - Song (Official Video)" splits on the dash;
// otherwise the channel (minus " - Topic"/VEVO) is used as the artist.
func SongQuery(videoTitle, channel string) (title, artist string) {
	t := strings.TrimSpace(titleNoise.ReplaceAllString(videoTitle, ""))
	if a, s, ok := strings.Cut(t, " - "); ok && strings.TrimSpace(a) != "" && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s), strings.TrimSpace(a)
	}
	return t, strings.TrimSpace(topicSuffix.ReplaceAllString(channel, ""))
}
