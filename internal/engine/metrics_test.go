package engine

import (
	"strings"
	"testing"
)

func TestRecordStrategyAttempt(t *testing.T) {
	RecordStrategyAttempt("dom-automation", "ok")
	RecordStrategyAttempt("dom-automation", "timeout")
	RecordStrategyAttempt("dom-automation", "error")
	RecordStrategyAttempt("dom-automation", "empty")

	m := GetMetrics()
	if got := m["strategy_dom_automation_attempts"]; got < 4 {
		t.Errorf("attempts = %d, want >= 4", got)
	}
	for _, k := range []string{"ok", "timeouts", "errors", "empty"} {
		if m["strategy_dom_automation_"+k] < 1 {
			t.Errorf("strategy_dom_automation_%s not counted", k)
		}
	}
}

func TestFormatMetricsSorted(t *testing.T) {
	IncrTranscriptRequests()
	out := FormatMetrics()
	if !strings.Contains(out, "transcript_requests ") {
		t.Fatalf("missing transcript_requests in:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i-1] > lines[i] {
			t.Fatalf("metrics not sorted: %q before %q", lines[i-1], lines[i])
		}
	}
}
