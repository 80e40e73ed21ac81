// Package transcript holds the transcript segment model, the wire-format
// parsers and the strategy orchestrator that tries acquisition methods in
// order until one yields segments.
package transcript

import (
	"context"
	"strings"
)

// Segment is one caption unit. Start and Duration are seconds.
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// End returns Start + Duration.
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

// Method identifies a transcript acquisition strategy.
// The string value is the key used for preference matching.
type Method string

const (
	MethodAuto      Method = "auto"
	MethodDirect    Method = "direct"
	MethodDOM       Method = "dom-automation"
	MethodIntercept Method = "network-intercept"
	MethodInvidious Method = "invidious"
	MethodProxy     Method = "background-proxy"
	MethodLyrics    Method = "genius"
	MethodSTT       Method = "stt"
)

// Methods lists every concrete method in default priority order.
var Methods = []Method{
	MethodDirect,
	MethodDOM,
	MethodIntercept,
	MethodInvidious,
	MethodProxy,
	MethodLyrics,
	MethodSTT,
}

// ParseMethod normalises a user-supplied method name. Unknown or empty
// names map to MethodAuto.
func ParseMethod(s string) Method {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range Methods {
		if string(m) == s {
			return m
		}
	}
	return MethodAuto
}

// DefaultLanguage is used when no language preference is set.
const DefaultLanguage = "en"

// Preference is the caller's method/language choice.
type Preference struct {
	Method   Method
	Language string
}

// PreferenceProvider supplies the current preference (settings collaborator).
type PreferenceProvider interface {
	Preference(ctx context.Context) Preference
}

// StaticPreference is a PreferenceProvider that always returns itself.
type StaticPreference Preference

// Preference implements PreferenceProvider.
func (p StaticPreference) Preference(context.Context) Preference {
	return Preference(p)
}

// Strategy is one independently implemented way of obtaining a transcript.
// Fetch must return a non-empty slice or an error.
type Strategy interface {
	Method() Method
	Priority() int
	Fetch(ctx context.Context, videoID, lang string) ([]Segment, error)
}

// FetchFunc is the fetch signature shared by all strategies.
type FetchFunc func(ctx context.Context, videoID, lang string) ([]Segment, error)

// funcStrategy adapts a FetchFunc into a Strategy.
type funcStrategy struct {
	method   Method
	priority int
	fetch    FetchFunc
}

// NewStrategy wraps fn as a Strategy with the given method and priority.
func NewStrategy(method Method, priority int, fn FetchFunc) Strategy {
	return &funcStrategy{method: method, priority: priority, fetch: fn}
}

func (s *funcStrategy) Method() Method { return s.method }
func (s *funcStrategy) Priority() int  { return s.priority }

func (s *funcStrategy) Fetch(ctx context.Context, videoID, lang string) ([]Segment, error) {
	return s.fetch(ctx, videoID, lang)
}
