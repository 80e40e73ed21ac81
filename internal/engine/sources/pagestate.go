package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// PageState is what the strategies read from a video's watch page: the
// displayed title and channel plus the player's caption tracks and
// adaptive stream descriptors.
type PageState struct {
	VideoID         string
	Title           string
	Channel         string
	Description     string
	Duration        float64
	CaptionTracks   []CaptionTrack
	AdaptiveFormats []StreamFormat
}

// PageSource loads page state for a video.
type PageSource interface {
	PageState(ctx context.Context, videoID string) (PageState, error)
}

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

const maxWatchPage = 6 * 1024 * 1024

// PageLoader scrapes watch pages and keeps each result for a short TTL so
// consecutive strategies in one call share a single page load.
type PageLoader struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]*transcript.TTLCache[PageState]
}

// NewPageLoader returns a loader caching page state for ttl.
func NewPageLoader(ttl time.Duration) *PageLoader {
	return &PageLoader{ttl: ttl, entries: make(map[string]*transcript.TTLCache[PageState])}
}

func (l *PageLoader) entry(videoID string) *transcript.TTLCache[PageState] {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, c := range l.entries {
		if _, ok := c.Get(); !ok {
			delete(l.entries, id)
		}
	}
	c, ok := l.entries[videoID]
	if !ok {
		c = transcript.NewTTLCache[PageState](l.ttl)
		l.entries[videoID] = c
	}
	return c
}

// PageState returns cached state or scrapes the watch page. When the page
// carries no player response (consent walls, bot checks) the ANDROID
// player endpoint is used instead.
func (l *PageLoader) PageState(ctx context.Context, videoID string) (PageState, error) {
	c := l.entry(videoID)
	if ps, ok := c.Get(); ok {
		return ps, nil
	}

	pr, err := scrapeWatchPage(ctx, videoID)
	if err != nil {
		slog.Debug("youtube: watch page scrape failed, trying player",
			slog.String("id", videoID), slog.Any("error", err))
		var perr error
		pr, perr = fetchPlayerANDROID(ctx, videoID)
		if perr != nil {
			return PageState{}, fmt.Errorf("page state: %w", errors.Join(err, perr))
		}
	}

	ps := pageStateFrom(videoID, pr)
	c.Set(ps)
	return ps, nil
}

// scrapeWatchPage fetches the watch page HTML and decodes
// ytInitialPlayerResponse.
func scrapeWatchPage(ctx context.Context, videoID string) (*playerResponse, error) {
	watchURL := youtubeOrigin + "/watch?v=" + videoID

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		engine.SetBrowserHeaders(req)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return httpClient().Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watch page: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWatchPage))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}
	return parsePlayerResponse(body)
}

// parsePlayerResponse extracts ytInitialPlayerResponse from watch page HTML.
func parsePlayerResponse(page []byte) (*playerResponse, error) {
	idx := strings.Index(string(page), ytInitialPlayerResponseMarker)
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(page[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}
	var pr playerResponse
	if err := json.Unmarshal(jsonData, &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &pr, nil
}

func pageStateFrom(videoID string, pr *playerResponse) PageState {
	ps := PageState{VideoID: videoID}
	if d := pr.VideoDetails; d != nil {
		ps.Title = d.Title
		ps.Channel = d.Author
		ps.Description = d.ShortDescription
		ps.Duration, _ = strconv.ParseFloat(d.LengthSeconds, 64)
	}
	if pr.Captions != nil {
		ps.CaptionTracks = pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	}
	if pr.StreamingData != nil {
		ps.AdaptiveFormats = pr.StreamingData.AdaptiveFormats
	}
	return ps
}

// extractJSON returns the first balanced {...} object at the start of b.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// pickTrack returns the track whose language matches lang exactly, else
// the first track.
func pickTrack(tracks []CaptionTrack, lang string) (CaptionTrack, bool) {
	if len(tracks) == 0 {
		return CaptionTrack{}, false
	}
	for _, t := range tracks {
		if t.LanguageCode == lang {
			return t, true
		}
	}
	return tracks[0], true
}

// audioFormat returns the first audio-only adaptive format with a direct URL.
func (ps PageState) audioFormat() (StreamFormat, bool) {
	for _, f := range ps.AdaptiveFormats {
		if f.URL == "" {
			continue
		}
		if isAudioMime(f.MimeType) {
			return f, true
		}
	}
	return StreamFormat{}, false
}
