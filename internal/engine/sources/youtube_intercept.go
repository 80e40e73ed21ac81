package sources

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// Network interception strategy: the player's own caption responses are
// captured by the browser hijack router (see browser.go) and served from
// memory.

// CaptureStore keeps the latest caption body per language.
type CaptureStore struct {
	mu     sync.RWMutex
	bodies map[string]capture
	maxAge time.Duration
	now    func() time.Time
}

type capture struct {
	videoID string
	body    []byte
	at      time.Time
}

// NewCaptureStore returns an empty store. Captures older than maxAge are
// ignored (0 = keep forever).
func NewCaptureStore(maxAge time.Duration) *CaptureStore {
	return &CaptureStore{bodies: make(map[string]capture), maxAge: maxAge, now: time.Now}
}

// captureKey is the translated language (tlang) when present, else lang.
func captureKey(u *url.URL) string {
	q := u.Query()
	if t := q.Get("tlang"); t != "" {
		return t
	}
	return q.Get("lang")
}

// Record stores body under the language of the caption request URL.
func (c *CaptureStore) Record(u *url.URL, body []byte) {
	key := captureKey(u)
	if key == "" || len(body) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies[key] = capture{videoID: u.Query().Get("v"), body: body, at: c.now()}
}

// Lookup returns the captured body for lang. A capture recorded for a
// different video is ignored when both ids are known.
func (c *CaptureStore) Lookup(videoID, lang string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp, ok := c.bodies[lang]
	if !ok {
		return nil, false
	}
	if cp.videoID != "" && videoID != "" && cp.videoID != videoID {
		return nil, false
	}
	if c.maxAge > 0 && c.now().Sub(cp.at) > c.maxAge {
		return nil, false
	}
	return cp.body, true
}

// InterceptStrategy serves transcripts from captured caption responses.
type InterceptStrategy struct {
	store *CaptureStore
	// prime, when set, loads the watch page with captions enabled so the
	// player issues its own caption request. nil = purely passive.
	prime func(ctx context.Context, videoID, lang string) error
}

// NewInterceptStrategy returns a passive strategy over store. prime may be nil.
func NewInterceptStrategy(store *CaptureStore, prime func(ctx context.Context, videoID, lang string) error) *InterceptStrategy {
	return &InterceptStrategy{store: store, prime: prime}
}

func (s *InterceptStrategy) Method() transcript.Method { return transcript.MethodIntercept }
func (s *InterceptStrategy) Priority() int             { return PriorityIntercept }

// Fetch implements transcript.Strategy.
func (s *InterceptStrategy) Fetch(ctx context.Context, videoID, lang string) ([]transcript.Segment, error) {
	body, ok := s.store.Lookup(videoID, lang)
	if !ok && s.prime != nil {
		if err := s.prime(ctx, videoID, lang); err != nil {
			return nil, fmt.Errorf("intercept: prime: %w", err)
		}
		body, ok = s.store.Lookup(videoID, lang)
	}
	if !ok {
		return nil, fmt.Errorf("intercept: %w: no captured captions for %q", transcript.ErrNotApplicable, lang)
	}
	return parseCaptured(body)
}

// parseCaptured tries JSON3, then timed-text XML, then WebVTT.
func parseCaptured(body []byte) ([]transcript.Segment, error) {
	if segs, err := transcript.ParseJSON3(body); err == nil {
		if segs = transcript.Compact(segs); len(segs) > 0 {
			return segs, nil
		}
	}
	if segs := transcript.ParseXML(string(body)); len(segs) > 0 {
		return segs, nil
	}
	if segs := transcript.ParseVTT(string(body)); len(segs) > 0 {
		return segs, nil
	}
	return nil, fmt.Errorf("intercept: %w: captured body has no segments", transcript.ErrParse)
}
