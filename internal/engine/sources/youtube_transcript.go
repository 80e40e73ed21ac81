package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// Direct caption endpoint strategy.
// Primary:  caption track from the watch page player response, fetched as json3
// Fallback: /api/timedtext built from the video id, json3 then srv3/srv2/srv1

// timedTextFormats is the degrading order tried against /api/timedtext.
var timedTextFormats = []string{"json3", "srv3", "srv2", "srv1"}

const maxCaptionBody = 2 * 1024 * 1024

// DirectStrategy fetches captions straight from YouTube's caption endpoint.
type DirectStrategy struct {
	pages PageSource // nil skips the player-response track lookup
}

// NewDirectStrategy returns the direct caption endpoint strategy.
func NewDirectStrategy(pages PageSource) *DirectStrategy {
	return &DirectStrategy{pages: pages}
}

func (s *DirectStrategy) Method() transcript.Method { return transcript.MethodDirect }
func (s *DirectStrategy) Priority() int             { return PriorityDirect }

// Fetch implements transcript.Strategy.
func (s *DirectStrategy) Fetch(ctx context.Context, videoID, lang string) ([]transcript.Segment, error) {
	if segs, err := s.fetchFromTrack(ctx, videoID, lang); err == nil {
		return segs, nil
	} else if ctx.Err() != nil {
		return nil, ctx.Err()
	} else {
		slog.Debug("youtube: caption track lookup failed, building timedtext URL",
			slog.String("id", videoID), slog.Any("error", err))
	}

	var lastErr error
	lastFormat := ""
	for _, format := range timedTextFormats {
		u := timedTextURL(videoID, lang, format)
		segs, err := fetchCaption(ctx, u, format)
		if err == nil && len(segs) > 0 {
			return segs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			err = transcript.ErrEmptyResult
		}
		lastErr, lastFormat = err, format
		slog.Debug("youtube: timedtext format failed",
			slog.String("id", videoID), slog.String("fmt", format), slog.Any("error", err))
	}
	return nil, fmt.Errorf("direct: no captions in any format (last %s): %w", lastFormat, lastErr)
}

// fetchFromTrack uses the player response's own caption track list.
func (s *DirectStrategy) fetchFromTrack(ctx context.Context, videoID, lang string) ([]transcript.Segment, error) {
	if s.pages == nil {
		return nil, transcript.ErrNotApplicable
	}
	ps, err := s.pages.PageState(ctx, videoID)
	if err != nil {
		return nil, err
	}
	track, ok := pickTrack(ps.CaptionTracks, lang)
	if !ok {
		return nil, transcript.ErrNoCaptions
	}
	u, err := withFormat(track.BaseURL, "json3")
	if err != nil {
		return nil, err
	}
	segs, err := fetchCaption(ctx, u, "json3")
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, transcript.ErrEmptyResult
	}
	return segs, nil
}

func timedTextURL(videoID, lang, format string) string {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)
	q.Set("fmt", format)
	return youtubeOrigin + "/api/timedtext?" + q.Encode()
}

// withFormat sets the fmt query parameter on a caption track URL.
func withFormat(rawURL, format string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("caption track url: %w", err)
	}
	if !u.IsAbs() {
		base, _ := url.Parse(youtubeOrigin)
		u = base.ResolveReference(u)
	}
	q := u.Query()
	q.Set("fmt", format)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetchCaption GETs one caption resource and parses it as format. Status,
// empty body and parse failures are returned as errors so the caller can
// move on to the next format.
func fetchCaption(ctx context.Context, captionURL, format string) ([]transcript.Segment, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
		if err != nil {
			return nil, err
		}
		engine.SetBrowserHeaders(req)
		return httpClient().Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", transcript.ErrUpstream, format, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: HTTP %d", transcript.ErrUpstream, format, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptionBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", transcript.ErrUpstream, format, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%s: %w", format, transcript.ErrEmptyResult)
	}
	return parseCaptionBody(body, format)
}

// parseCaptionBody parses body by the requested format name.
func parseCaptionBody(body []byte, format string) ([]transcript.Segment, error) {
	switch format {
	case "json3":
		segs, err := transcript.ParseJSON3(body)
		if err != nil {
			return nil, err
		}
		return transcript.Compact(segs), nil
	case "vtt":
		return transcript.ParseVTT(string(body)), nil
	case "srv1", "srv2", "srv3", "xml":
		return transcript.ParseXML(string(body)), nil
	}
	segs, err := transcript.ParseAny(body)
	if errors.Is(err, transcript.ErrParse) {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	return segs, err
}
