package transcript

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotApplicable means a strategy decided up front it cannot help
	// (non-music content, no audio stream, nothing captured).
	ErrNotApplicable = errors.New("not applicable")
	// ErrTimeout means a strategy did not settle within its window.
	ErrTimeout = errors.New("strategy timed out")
	// ErrUpstream wraps non-success statuses and malformed remote payloads.
	ErrUpstream = errors.New("upstream failure")
	// ErrParse means a wire-format parser could not extract segments.
	ErrParse = errors.New("parse failure")
	// ErrEmptyResult marks a strategy that returned zero segments.
	ErrEmptyResult = errors.New("empty transcript")
	// ErrNoCaptions means the video has no caption tracks at all.
	ErrNoCaptions = errors.New("no captions available")
	// ErrAllStrategiesFailed is matched by the orchestrator's terminal error.
	ErrAllStrategiesFailed = errors.New("all transcript strategies failed")
)

// Outcome of a single strategy attempt.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeEmpty   Outcome = "empty"
	OutcomeError   Outcome = "error"
	OutcomeTimeout Outcome = "timeout"
)

// Attempt records how one strategy fared during a FetchTranscript call.
type Attempt struct {
	Method  Method
	Outcome Outcome
	Err     error
	Elapsed time.Duration
}

// ExhaustedError is returned when every strategy failed.
type ExhaustedError struct {
	Attempts []Attempt
	last     error
}

func (e *ExhaustedError) Error() string {
	if e.last != nil && e.last.Error() != "" {
		return e.last.Error()
	}
	return ErrAllStrategiesFailed.Error()
}

// Unwrap exposes both the sentinel and the last underlying error.
func (e *ExhaustedError) Unwrap() []error {
	if e.last == nil {
		return []error{ErrAllStrategiesFailed}
	}
	return []error{ErrAllStrategiesFailed, e.last}
}

// Summary renders the attempts as "method=outcome" pairs for logs.
func (e *ExhaustedError) Summary() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, string(a.Method)+"="+string(a.Outcome))
	}
	return strings.Join(parts, " ")
}

// IsNoCaptions reports whether err clearly indicates the video has no
// captions, so callers can show a captions-specific message.
func IsNoCaptions(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoCaptions) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no captions") || strings.Contains(msg, "no caption tracks")
}
