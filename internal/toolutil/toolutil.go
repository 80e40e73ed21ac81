// Package toolutil provides shared helper functions for go_transcript MCP tools.
package toolutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// Output formats accepted by the transcript tool.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatSRT  = "srt"
	FormatVTT  = "vtt"
)

// maxTimeout caps the per-method timeout a caller may request.
const maxTimeout = 5 * time.Minute

// NormLang trims a language field. Empty means the configured default.
func NormLang(lang string) string {
	return strings.TrimSpace(lang)
}

// NormFormat validates an output format; empty → json.
func NormFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	switch f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatText, FormatSRT, FormatVTT:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q (want json, text, srt or vtt)", format)
}

// Timeout converts a millisecond field into a per-method timeout. Zero or
// negative means "use the default"; large values are capped.
func Timeout(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	d := time.Duration(ms) * time.Millisecond
	if d > maxTimeout {
		return maxTimeout
	}
	return d
}

// Render formats segments for the tool output. json keeps the segment
// list and renders no text; the other formats return only text.
// maxChars > 0 truncates the rendered text.
func Render(segs []transcript.Segment, format string, maxChars int) ([]transcript.Segment, string) {
	var text string
	switch format {
	case FormatText:
		text = transcript.FormatText(segs)
	case FormatSRT:
		text = transcript.FormatSRT(segs)
	case FormatVTT:
		text = transcript.FormatVTT(segs)
	default:
		return segs, ""
	}
	if maxChars > 0 {
		text = engine.TruncateRunes(text, maxChars, "...")
	}
	return nil, text
}
