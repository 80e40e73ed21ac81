package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	// The timed-text formats are a flat tag stream, so a pattern scan is
	// enough and tolerates the partial documents some mirrors return.
	// Self-closing elements match with an empty body and are skipped.
	xmlTextRe = regexp.MustCompile(`(?s)<text\b([^>]*?)(?:/>|>(.*?)</text>)`)
	xmlParaRe = regexp.MustCompile(`(?s)<p\b([^>]*?)(?:/>|>(.*?)</p>)`)
	xmlAttrRe = regexp.MustCompile(`([a-zA-Z_:][-a-zA-Z0-9_:.]*)\s*=\s*"([^"]*)"`)
	tagRe     = regexp.MustCompile(`<[^>]*>`)
	spaceRe   = regexp.MustCompile(`\s+`)
	vttTimeRe = regexp.MustCompile(`^\s*(\S+)\s+-->\s+(\S+)`)
)

// DecodeEntities decodes HTML entities. Caption XML is frequently
// double-encoded (&amp;#39;), so a second pass runs when the first one
// still leaves an entity behind.
func DecodeEntities(s string) string {
	out := html.UnescapeString(s)
	if strings.Contains(out, "&") {
		out = html.UnescapeString(out)
	}
	return out
}

// cleanText strips inline tags, decodes entities and collapses whitespace.
func cleanText(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = DecodeEntities(s)
	// Decoding can reveal tags that were entity-escaped in the source.
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// finite parses a non-negative, finite number. ParseFloat alone accepts
// NaN and Inf.
func finite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseAttrs(raw string) map[string]string {
	attrs := make(map[string]string, 2)
	for _, m := range xmlAttrRe.FindAllStringSubmatch(raw, -1) {
		attrs[m[1]] = m[2]
	}
	return attrs
}

// ParseXML extracts segments from timed-text XML. It understands the
// classic <text start="S" dur="D"> stream and srv3 <p t="ms" d="ms">
// paragraphs. Elements with bad attributes or empty text are skipped.
func ParseXML(text string) []Segment {
	var segs []Segment
	for _, m := range xmlTextRe.FindAllStringSubmatch(text, -1) {
		attrs := parseAttrs(m[1])
		start, ok := finite(attrs["start"])
		if !ok {
			continue
		}
		dur, _ := finite(attrs["dur"])
		body := cleanText(m[2])
		if body == "" {
			continue
		}
		segs = append(segs, Segment{Start: start, Duration: dur, Text: body})
	}
	if len(segs) > 0 {
		return segs
	}

	for _, m := range xmlParaRe.FindAllStringSubmatch(text, -1) {
		attrs := parseAttrs(m[1])
		startMs, ok := finite(attrs["t"])
		if !ok {
			continue
		}
		durMs, _ := finite(attrs["d"])
		body := cleanText(m[2])
		if body == "" {
			continue
		}
		segs = append(segs, Segment{Start: startMs / 1000, Duration: durMs / 1000, Text: body})
	}
	return segs
}

// JSON3 is the structured caption format (fmt=json3).
type JSON3 struct {
	Events []JSON3Event `json:"events"`
}

// JSON3Event is one timed event. Segs is nil when the field is absent.
type JSON3Event struct {
	TStartMs    float64    `json:"tStartMs"`
	DDurationMs float64    `json:"dDurationMs"`
	Segs        []JSON3Seg `json:"segs"`
}

// JSON3Seg is a text fragment of an event.
type JSON3Seg struct {
	UTF8 string `json:"utf8"`
}

// Segments converts events to segments. Events without segs are dropped;
// an event with an empty segs array yields an empty-text segment.
func (d JSON3) Segments() []Segment {
	segs := make([]Segment, 0, len(d.Events))
	for _, ev := range d.Events {
		if ev.Segs == nil {
			continue
		}
		var sb strings.Builder
		for _, s := range ev.Segs {
			sb.WriteString(s.UTF8)
		}
		segs = append(segs, Segment{
			Start:    ev.TStartMs / 1000,
			Duration: ev.DDurationMs / 1000,
			Text:     strings.TrimSpace(sb.String()),
		})
	}
	return segs
}

// ParseJSON3 decodes a JSON3 document. Syntax errors come back wrapped in
// ErrParse.
func ParseJSON3(data []byte) ([]Segment, error) {
	var doc JSON3
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: json3: %v", ErrParse, err)
	}
	return doc.Segments(), nil
}

// ParseVTT parses WebVTT cue blocks. Cue text lines are joined with a
// space, inline tags are stripped and cues without text are skipped.
func ParseVTT(text string) []Segment {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var (
		segs   []Segment
		inCue  bool
		start  float64
		end    float64
		buffer []string
	)
	flush := func() {
		if inCue {
			body := cleanText(strings.Join(buffer, " "))
			if body != "" {
				dur := end - start
				if dur < 0 {
					dur = 0
				}
				segs = append(segs, Segment{Start: start, Duration: dur, Text: body})
			}
		}
		inCue = false
		buffer = buffer[:0]
	}

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if m := vttTimeRe.FindStringSubmatch(line); m != nil {
			flush()
			s, err1 := ParseTimestamp(m[1])
			e, err2 := ParseTimestamp(m[2])
			if err1 != nil || err2 != nil {
				continue
			}
			start, end, inCue = s, e, true
			continue
		}
		// Header, NOTE, STYLE and REGION blocks never follow a timing
		// line, so anything outside a cue is skipped.
		if !inCue {
			continue
		}
		buffer = append(buffer, line)
	}
	flush()
	return segs
}

// ParseTimestamp converts H:MM:SS, MM:SS or bare seconds to seconds.
// The seconds part keeps its fractional component; a comma decimal
// separator (SRT style) is accepted.
func ParseTimestamp(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, fmt.Errorf("%w: empty timestamp", ErrParse)
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: timestamp %q has too many fields", ErrParse, s)
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, ok := finite(p)
		if !ok {
			return 0, fmt.Errorf("%w: timestamp %q", ErrParse, s)
		}
		vals[i] = v
	}
	switch len(vals) {
	case 3:
		return vals[0]*3600 + vals[1]*60 + vals[2], nil
	case 2:
		return vals[0]*60 + vals[1], nil
	default:
		return vals[0], nil
	}
}

// ParseAny sniffs the payload and applies the matching parser:
// JSON3 first, then timed-text XML, then WebVTT.
func ParseAny(body []byte) ([]Segment, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty body", ErrParse)
	}
	if strings.HasPrefix(trimmed, "{") {
		segs, err := ParseJSON3([]byte(trimmed))
		if err != nil {
			return nil, err
		}
		return nonEmpty(Compact(segs), "json3")
	}
	if strings.HasPrefix(trimmed, "WEBVTT") {
		return nonEmpty(ParseVTT(trimmed), "vtt")
	}
	if segs := ParseXML(trimmed); len(segs) > 0 {
		return segs, nil
	}
	return nonEmpty(ParseVTT(trimmed), "xml/vtt")
}

func nonEmpty(segs []Segment, format string) ([]Segment, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: no segments in %s payload", ErrParse, format)
	}
	return segs, nil
}

// Compact drops segments whose text is empty.
func Compact(segs []Segment) []Segment {
	out := segs[:0:0]
	for _, s := range segs {
		if s.Text != "" {
			out = append(out, s)
		}
	}
	return out
}
