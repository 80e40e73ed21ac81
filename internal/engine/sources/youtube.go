// Package sources implements the transcript acquisition strategies and the
// YouTube plumbing they share. Files are split by responsibility:
//
//	innertube.go          Innertube API types, constants and HTTP primitives
//	pagestate.go          watch-page player response scrape (captions, audio formats)
//	engagement.go         engagement panel transcript (get_transcript)
//	youtube_transcript.go direct caption endpoint strategy
//	browser.go            shared headless browser (go-rod)
//	youtube_dom.go        transcript panel automation in the browser
//	youtube_intercept.go  passive capture of caption responses in the browser
//	invidious.go          third-party mirror instances
//	proxy.go, lyrics.go, stt.go  strategies served by the background broker
//	lyrics_finder.go      LRCLIB and Genius lookups
//	gemini.go             audio transcription through Gemini
//	handlers.go           the privileged background handlers
//	service.go            strategy wiring, caching and the Service facade
package sources

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIDRE = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/|live/|v/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	bareIDRE  = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// ExtractVideoID pulls the 11-char video ID from a bare ID or any YouTube
// URL format (watch, youtu.be, embed, shorts, live). Returns "" when none.
func ExtractVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if bareIDRE.MatchString(raw) {
		return raw
	}
	if m := videoIDRE.FindStringSubmatch(raw); len(m) >= 2 {
		return m[1]
	}
	if u, err := url.Parse(raw); err == nil {
		if v := u.Query().Get("v"); bareIDRE.MatchString(v) {
			return v
		}
	}
	return ""
}
