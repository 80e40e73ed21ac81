package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests atomic.Int64
	TranscriptErrors   atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	BackgroundRequests atomic.Int64
	MirrorProbes       atomic.Int64
	STTRequests        atomic.Int64
	LyricsRequests     atomic.Int64
}

// strategyStats counts attempt outcomes for one transcript method.
type strategyStats struct {
	attempts atomic.Int64
	ok       atomic.Int64
	empty    atomic.Int64
	errors   atomic.Int64
	timeouts atomic.Int64
}

var strategyMetrics sync.Map // method → *strategyStats

// RecordStrategyAttempt counts one finished strategy attempt.
// outcome is one of ok, empty, error, timeout.
func RecordStrategyAttempt(method, outcome string) {
	v, _ := strategyMetrics.LoadOrStore(method, &strategyStats{})
	s := v.(*strategyStats)
	s.attempts.Add(1)
	switch outcome {
	case "ok":
		s.ok.Add(1)
	case "empty":
		s.empty.Add(1)
	case "timeout":
		s.timeouts.Add(1)
	default:
		s.errors.Add(1)
	}
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	m := map[string]int64{
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"transcript_errors":   metrics.TranscriptErrors.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"background_requests": metrics.BackgroundRequests.Load(),
		"mirror_probes":       metrics.MirrorProbes.Load(),
		"stt_requests":        metrics.STTRequests.Load(),
		"lyrics_requests":     metrics.LyricsRequests.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
	strategyMetrics.Range(func(k, v any) bool {
		name := strings.ReplaceAll(k.(string), "-", "_")
		s := v.(*strategyStats)
		m["strategy_"+name+"_attempts"] = s.attempts.Load()
		m["strategy_"+name+"_ok"] = s.ok.Load()
		m["strategy_"+name+"_empty"] = s.empty.Load()
		m["strategy_"+name+"_errors"] = s.errors.Load()
		m["strategy_"+name+"_timeouts"] = s.timeouts.Load()
		return true
	})
	return m
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptErrors()   { metrics.TranscriptErrors.Add(1) }
func IncrBackgroundRequests() { metrics.BackgroundRequests.Add(1) }
func IncrMirrorProbes()       { metrics.MirrorProbes.Add(1) }
func IncrSTTRequests()        { metrics.STTRequests.Add(1) }
func IncrLyricsRequests()     { metrics.LyricsRequests.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 10*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
