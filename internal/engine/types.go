package engine

import "github.com/anatolykoptev/go_transcript/internal/engine/transcript"

// --- MCP tool types ---

type TranscriptInput struct {
	Video     string `json:"video" jsonschema:"YouTube video ID or URL (watch, youtu.be, embed, shorts)"`
	Language  string `json:"language,omitempty" jsonschema:"Caption language code (default: en)"`
	Method    string `json:"method,omitempty" jsonschema:"Preferred method: auto (default), direct, dom-automation, network-intercept, invidious, background-proxy, genius, stt"`
	TimeoutMs int    `json:"timeout_ms,omitempty" jsonschema:"Per-method timeout in milliseconds (default: 30000)"`
	Format    string `json:"format,omitempty" jsonschema:"Output format: json (default), text, srt, vtt"`
	MaxChars  int    `json:"max_chars,omitempty" jsonschema:"Truncate the rendered text to this many characters (0 = no limit)"`
}

type TranscriptOutput struct {
	VideoID  string               `json:"video_id"`
	Language string               `json:"language"`
	Method   string               `json:"method,omitempty"`
	Cached   bool                 `json:"cached,omitempty"`
	Segments []transcript.Segment `json:"segments,omitempty"`
	Text     string               `json:"text,omitempty"`
}

type MethodsInput struct{}

type MethodInfo struct {
	Name      string `json:"name"`
	Priority  int    `json:"priority"`
	Preferred bool   `json:"preferred,omitempty"`
}

type MethodsOutput struct {
	Methods []MethodInfo `json:"methods"`
	Actions []string     `json:"background_actions,omitempty"`
}
