package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// Engagement panel flow, served by the background broker:
//  1. POST /next → engagementPanels carry the transcript continuation token
//  2. POST /get_transcript with the token → timed segment renderers
//
// Works from datacenter IPs where /player returns LOGIN_REQUIRED.

// getTranscriptRE extracts the continuation token from a raw /next JSON response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

func extractTranscriptToken(data []byte) (string, error) {
	if m := getTranscriptRE.FindSubmatch(data); len(m) >= 2 {
		// The params value in the /next JSON response is URL-encoded.
		// /get_transcript expects the decoded (raw base64) form.
		decoded, err := url.QueryUnescape(string(m[1]))
		if err != nil {
			return string(m[1]), nil
		}
		return decoded, nil
	}
	return "", fmt.Errorf("getTranscriptEndpoint not found in engagement panels: %w", transcript.ErrNoCaptions)
}

// engagementSegments converts /get_transcript renderers into segments.
// Renderers without a parsable start or with blank text are skipped.
func engagementSegments(resp ytGetTranscriptResp) []transcript.Segment {
	var out []transcript.Segment
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			r := seg.TranscriptSegmentRenderer
			if r == nil {
				continue
			}
			startMs, err := strconv.ParseFloat(r.StartMs, 64)
			if err != nil || startMs < 0 || math.IsNaN(startMs) || math.IsInf(startMs, 0) {
				continue
			}
			var sb strings.Builder
			for _, run := range r.Snippet.Runs {
				sb.WriteString(run.Text)
			}
			text := strings.Join(strings.Fields(sb.String()), " ")
			if text == "" {
				continue
			}
			var dur float64
			if endMs, err := strconv.ParseFloat(r.EndMs, 64); err == nil && endMs > startMs && !math.IsInf(endMs, 0) {
				dur = (endMs - startMs) / 1000
			}
			out = append(out, transcript.Segment{Start: startMs / 1000, Duration: dur, Text: text})
		}
	}
	return out
}

// FetchEngagementTranscript runs the /next → /get_transcript flow.
func FetchEngagementTranscript(ctx context.Context, videoID, lang string) ([]transcript.Segment, error) {
	visitorData := generateVisitorData()

	nextData, err := postInnerTubeWEB(ctx, ytNextPath, map[string]any{
		"videoId": videoID,
		"context": ytWebContext(visitorData, lang),
	}, visitorData)
	if err != nil {
		return nil, fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}

	transcriptData, err := postInnerTubeWEB(ctx, ytGetTranscriptPath, map[string]any{
		"params":  token,
		"context": ytWebContext(visitorData, lang),
	}, visitorData)
	if err != nil {
		return nil, fmt.Errorf("/get_transcript: %w", err)
	}

	var resp ytGetTranscriptResp
	if err := json.Unmarshal(transcriptData, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode transcript: %v", transcript.ErrParse, err)
	}

	segs := engagementSegments(resp)
	if len(segs) == 0 {
		return nil, errors.New("empty transcript segments")
	}
	return segs, nil
}
