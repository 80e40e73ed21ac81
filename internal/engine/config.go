package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey            string
	LLMAPIKeyFallbacks   []string
	LLMAPIBase           string
	LLMModel             string
	LLMTemperature       float64
	LLMMaxTokens         int
	LLMClient            *llm.Client // nil = music classification disabled
	GeminiAPIKey         string      // speech-to-text; empty = stt disabled
	GeminiAPIBase        string
	GeminiModel          string
	FetchTimeout         time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client
	BrowserClient        *BrowserClient // nil = privileged proxy falls back to HTTPClient

	TranscriptMethod   string        // preferred method, "auto" by default
	TranscriptLanguage string        // preferred language, "en" by default
	StrategyTimeout    time.Duration // per-strategy race window
	DisabledMethods    []string

	InvidiousInstances []string // static mirror list
	InvidiousDirectory string   // public instance directory; empty = static list only
	MirrorProbeTimeout time.Duration
	MirrorTTL          time.Duration

	BrowserEnabled bool   // enables dom-automation and network-intercept
	BrowserBin     string // empty = let the launcher download/locate Chromium
	BrowserControl string // ws URL of an already running browser

	MaxAudioBytes int64 // cap on audio downloaded for transcription
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration. A nil
// HTTPClient is replaced by one bounded by FetchTimeout.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = NewHTTPClient(c.FetchTimeout)
	}
	cfg = c
	Cfg = &cfg
}
