package transcript

import (
	"fmt"
	"math"
	"strings"
)

// FormatText joins segment texts with single spaces.
func FormatText(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}

// FormatSRT renders segments as SubRip.
func FormatSRT(segs []Segment) string {
	var sb strings.Builder
	for i, s := range segs {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n", i+1, clock(s.Start, ","), clock(s.End(), ","), s.Text)
	}
	return strings.TrimSpace(sb.String())
}

// FormatVTT renders segments as WebVTT.
func FormatVTT(segs []Segment) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, s := range segs {
		fmt.Fprintf(&sb, "%s --> %s\n%s\n\n", clock(s.Start, "."), clock(s.End(), "."), s.Text)
	}
	return strings.TrimSpace(sb.String())
}

// clock formats seconds as HH:MM:SS<sep>mmm.
func clock(sec float64, sep string) string {
	ms := int64(math.Round(sec * 1000))
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms%1000)
}
