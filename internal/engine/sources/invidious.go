package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// Third-party mirror strategy: Invidious instances expose video metadata
// and caption tracks over a public API.

// ErrNoWorkingInstance is returned when every mirror fails its health probe.
var ErrNoWorkingInstance = errors.New("invidious: no working instance")

// DefaultInvidiousInstances is used when the directory is unreachable.
var DefaultInvidiousInstances = []string{
	"https://inv.nadeko.net",
	"https://invidious.nerdvpn.de",
	"https://yewtu.be",
	"https://invidious.privacyredirect.com",
}

// MirrorOptions configures the mirror strategy.
type MirrorOptions struct {
	Instances     []string // static list; also the fallback for DirectoryURL
	DirectoryURL  string   // instance directory (api.invidious.io format); empty = static only
	ProbeTimeout  time.Duration
	TTL           time.Duration // lifetime of the host list and the adopted host
	ProbeInterval time.Duration // minimum spacing between health probes
}

// MirrorStrategy fetches captions through Invidious mirrors.
type MirrorStrategy struct {
	opts    MirrorOptions
	hosts   *transcript.TTLCache[[]string]
	good    *transcript.TTLCache[string]
	limiter *rate.Limiter
}

// NewMirrorStrategy returns the mirror strategy with its own caches.
func NewMirrorStrategy(opts MirrorOptions) *MirrorStrategy {
	if len(opts.Instances) == 0 {
		opts.Instances = DefaultInvidiousInstances
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 4 * time.Second
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = 100 * time.Millisecond
	}
	return &MirrorStrategy{
		opts:    opts,
		hosts:   transcript.NewTTLCache[[]string](opts.TTL),
		good:    transcript.NewTTLCache[string](opts.TTL),
		limiter: rate.NewLimiter(rate.Every(opts.ProbeInterval), 1),
	}
}

func (s *MirrorStrategy) Method() transcript.Method { return transcript.MethodInvidious }
func (s *MirrorStrategy) Priority() int             { return PriorityInvidious }

type invidiousCaption struct {
	Label        string `json:"label"`
	LanguageCode string `json:"languageCode"`
	URL          string `json:"url"`
}

type invidiousVideo struct {
	Title    string             `json:"title"`
	Author   string             `json:"author"`
	Captions []invidiousCaption `json:"captions"`
}

// Fetch implements transcript.Strategy. Failures on the adopted host are
// returned as-is; the next call re-probes only once the host expires.
func (s *MirrorStrategy) Fetch(ctx context.Context, videoID, lang string) ([]transcript.Segment, error) {
	host, err := s.goodHost(ctx)
	if err != nil {
		return nil, err
	}

	meta, err := engine.Fetch(ctx, host+"/api/v1/videos/"+url.PathEscape(videoID)+"?fields=title,author,captions", engine.FetchOpts{Accept: "application/json", Tries: 1})
	if err != nil {
		return nil, fmt.Errorf("invidious %s: metadata: %w", host, err)
	}
	var video invidiousVideo
	if err := json.Unmarshal(meta.Body, &video); err != nil {
		return nil, fmt.Errorf("invidious %s: %w: metadata: %v", host, transcript.ErrUpstream, err)
	}

	track, ok := pickInvidiousCaption(video.Captions, lang)
	if !ok {
		return nil, fmt.Errorf("invidious %s: %w", host, transcript.ErrNoCaptions)
	}
	capURL, err := resolveURL(host, track.URL)
	if err != nil {
		return nil, fmt.Errorf("invidious %s: caption url: %w", host, err)
	}

	res, err := engine.Fetch(ctx, capURL, engine.FetchOpts{Tries: 1})
	if err != nil {
		return nil, fmt.Errorf("invidious %s: captions: %w", host, err)
	}
	segs, err := parseByContentType(res.Body, res.ContentType())
	if err != nil {
		return nil, fmt.Errorf("invidious %s: %w", host, err)
	}
	return segs, nil
}

func pickInvidiousCaption(caps []invidiousCaption, lang string) (invidiousCaption, bool) {
	if len(caps) == 0 {
		return invidiousCaption{}, false
	}
	for _, c := range caps {
		if c.LanguageCode == lang {
			return c, true
		}
	}
	return caps[0], true
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// parseByContentType picks the parser from the declared content type.
func parseByContentType(body []byte, contentType string) ([]transcript.Segment, error) {
	ct := strings.ToLower(contentType)
	var segs []transcript.Segment
	switch {
	case strings.Contains(ct, "json"):
		parsed, err := transcript.ParseJSON3(body)
		if err != nil {
			return nil, err
		}
		segs = transcript.Compact(parsed)
	case strings.Contains(ct, "xml"):
		segs = transcript.ParseXML(string(body))
	case strings.Contains(ct, "vtt"):
		segs = transcript.ParseVTT(string(body))
	default:
		return transcript.ParseAny(body)
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: no segments in %s body", transcript.ErrParse, ct)
	}
	return segs, nil
}

// goodHost returns the cached healthy host or probes the list in order.
func (s *MirrorStrategy) goodHost(ctx context.Context) (string, error) {
	if h, ok := s.good.Get(); ok {
		return h, nil
	}
	for _, h := range s.hostList(ctx) {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
		if err := s.probe(ctx, h); err != nil {
			slog.Debug("invidious: probe failed", slog.String("host", h), slog.Any("error", err))
			continue
		}
		s.good.Set(h)
		slog.Info("invidious: adopted instance", slog.String("host", h))
		return h, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return "", ErrNoWorkingInstance
}

func (s *MirrorStrategy) probe(ctx context.Context, host string) error {
	engine.IncrMirrorProbes()
	pctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()
	_, err := engine.Fetch(pctx, host+"/api/v1/stats", engine.FetchOpts{Accept: "application/json", Tries: 1, MaxBytes: 64 * 1024})
	return err
}

// hostList returns the cached mirror list, refreshing it from the
// directory when configured.
func (s *MirrorStrategy) hostList(ctx context.Context) []string {
	if hs, ok := s.hosts.Get(); ok {
		return hs
	}
	hs := s.opts.Instances
	if s.opts.DirectoryURL != "" {
		if fetched, err := fetchInstanceDirectory(ctx, s.opts.DirectoryURL); err != nil {
			slog.Warn("invidious: instance directory failed, using static list", slog.Any("error", err))
		} else if len(fetched) > 0 {
			hs = fetched
		}
	}
	s.hosts.Set(hs)
	return hs
}

// fetchInstanceDirectory reads api.invidious.io/instances.json:
// [["host", {"uri": "...", "type": "https", "api": true}], ...]
func fetchInstanceDirectory(ctx context.Context, dirURL string) ([]string, error) {
	res, err := engine.Fetch(ctx, dirURL, engine.FetchOpts{Accept: "application/json", MaxBytes: 1 << 20})
	if err != nil {
		return nil, err
	}
	var rows [][]json.RawMessage
	if err := json.Unmarshal(res.Body, &rows); err != nil {
		return nil, fmt.Errorf("decode directory: %w", err)
	}
	var hosts []string
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		var info struct {
			URI  string `json:"uri"`
			Type string `json:"type"`
			API  *bool  `json:"api"`
		}
		if json.Unmarshal(row[1], &info) != nil {
			continue
		}
		if info.Type != "https" || info.API == nil || !*info.API || info.URI == "" {
			continue
		}
		hosts = append(hosts, strings.TrimRight(info.URI, "/"))
	}
	return hosts, nil
}
