package sources

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/background"
	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// Static strategy priorities; lower runs first.
const (
	PriorityDirect    = 1
	PriorityDOM       = 2
	PriorityIntercept = 3
	PriorityInvidious = 4
	PriorityProxy     = 5
	PriorityLyrics    = 6
	PrioritySTT       = 7
)

// primeWait bounds how long the intercept strategy waits for the player's
// own caption request after toggling captions.
const primeWait = 8 * time.Second

// Deps are the shared collaborators the strategies are built on.
type Deps struct {
	Pages    PageSource
	Channel  background.Channel
	Browser  *Browser      // nil disables dom-automation and network-intercept
	Captures *CaptureStore // store filled by Browser's hijack router
	Audio    AudioResolver // nil = page-state audio formats only
}

// BuildStrategies assembles every enabled strategy from config.
func BuildStrategies(c *engine.Config, d Deps) []transcript.Strategy {
	disabled := make(map[transcript.Method]bool, len(c.DisabledMethods))
	for _, m := range c.DisabledMethods {
		disabled[transcript.Method(strings.ToLower(strings.TrimSpace(m)))] = true
	}

	var out []transcript.Strategy
	add := func(s transcript.Strategy, ok bool, reason string) {
		switch {
		case disabled[s.Method()]:
			slog.Info("transcript: method disabled by config", slog.String("method", string(s.Method())))
		case !ok:
			slog.Info("transcript: method unavailable", slog.String("method", string(s.Method())), slog.String("reason", reason))
		default:
			out = append(out, s)
		}
	}

	add(NewDirectStrategy(d.Pages), true, "")
	if d.Browser != nil {
		add(NewDOMStrategy(d.Browser, DOMOptions{}), true, "")
		add(NewInterceptStrategy(d.Captures, func(ctx context.Context, videoID, lang string) error {
			return d.Browser.PrimeCaptions(ctx, videoID, lang, primeWait)
		}), d.Captures != nil, "no capture store")
	} else {
		slog.Info("transcript: browser disabled, skipping dom-automation and network-intercept")
	}
	add(NewMirrorStrategy(MirrorOptions{
		Instances:    c.InvidiousInstances,
		DirectoryURL: c.InvidiousDirectory,
		ProbeTimeout: c.MirrorProbeTimeout,
		TTL:          c.MirrorTTL,
	}), true, "")
	add(NewProxyStrategy(d.Channel), d.Channel != nil, "no background channel")
	add(NewLyricsStrategy(d.Pages, d.Channel), d.Channel != nil && d.Pages != nil && c.LLMClient != nil, "music classification needs an LLM client")
	add(NewSTTStrategy(d.Pages, d.Channel, d.Audio), d.Channel != nil && c.GeminiAPIKey != "", "GEMINI_API_KEY not set")
	return out
}

// ConfigPreference reads the preferred method and language from the
// engine config on every call.
type ConfigPreference struct{}

// Preference implements transcript.PreferenceProvider.
func (ConfigPreference) Preference(context.Context) transcript.Preference {
	lang := strings.TrimSpace(engine.Cfg.TranscriptLanguage)
	if lang == "" {
		lang = transcript.DefaultLanguage
	}
	return transcript.Preference{
		Method:   transcript.ParseMethod(engine.Cfg.TranscriptMethod),
		Language: lang,
	}
}

// Service fronts the orchestrator with the tiered transcript cache.
type Service struct {
	strategies []transcript.Strategy
	prefs      transcript.PreferenceProvider
	timeout    time.Duration
}

// NewService returns a service over strategies. timeout <= 0 uses the
// orchestrator default.
func NewService(strategies []transcript.Strategy, prefs transcript.PreferenceProvider, timeout time.Duration) *Service {
	if prefs == nil {
		prefs = ConfigPreference{}
	}
	return &Service{strategies: strategies, prefs: prefs, timeout: timeout}
}

// Methods returns the enabled methods with their priorities, in default order.
func (s *Service) Methods(ctx context.Context) []engine.MethodInfo {
	preferred := s.prefs.Preference(ctx).Method
	o := transcript.New(s.strategies)
	infos := make([]engine.MethodInfo, 0, len(s.strategies))
	for _, st := range o.Order(transcript.MethodAuto) {
		infos = append(infos, engine.MethodInfo{
			Name:      string(st.Method()),
			Priority:  st.Priority(),
			Preferred: st.Method() == preferred,
		})
	}
	return infos
}

// TranscriptRequest is one call to Service.Transcript.
type TranscriptRequest struct {
	VideoID string
	Lang    string            // empty = preference language
	Method  transcript.Method // empty or auto = preference method
	Timeout time.Duration     // per strategy; 0 = service default
}

// Transcript returns the cached transcript or runs the orchestrator and
// caches a successful result. cached reports a cache hit. A request
// naming a method only accepts a cached entry produced by that method.
func (s *Service) Transcript(ctx context.Context, req TranscriptRequest) (t engine.CachedTranscript, cached bool, err error) {
	pref := s.prefs.Preference(ctx)
	lang := req.Lang
	if lang == "" {
		lang = pref.Language
	}
	if lang == "" {
		lang = transcript.DefaultLanguage
	}
	explicit := req.Method != "" && req.Method != transcript.MethodAuto
	if explicit {
		pref.Method = req.Method
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}

	if hit, ok := engine.CacheGetTranscript(ctx, req.VideoID, lang); ok && (!explicit || hit.Method == string(req.Method)) {
		return hit, true, nil
	}

	engine.IncrTranscriptRequests()
	var winner transcript.Method
	o := transcript.New(s.strategies,
		transcript.WithPreferences(transcript.StaticPreference(pref)),
		transcript.WithAttemptHook(func(a transcript.Attempt) {
			engine.RecordStrategyAttempt(string(a.Method), string(a.Outcome))
			if a.Outcome == transcript.OutcomeOK {
				winner = a.Method
			}
		}),
	)

	var segs []transcript.Segment
	err = engine.TrackOperation(ctx, "transcript:"+req.VideoID, func(ctx context.Context) error {
		var ferr error
		segs, ferr = o.FetchTranscript(ctx, req.VideoID, lang, timeout)
		return ferr
	})
	if err != nil {
		engine.IncrTranscriptErrors()
		return engine.CachedTranscript{}, false, err
	}

	t = engine.CachedTranscript{
		VideoID:  req.VideoID,
		Language: lang,
		Method:   string(winner),
		Segments: segs,
	}
	engine.CacheSetTranscript(ctx, t)
	return t, false, nil
}
