package toolutil

import (
	"testing"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

func TestNormFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", FormatJSON, false},
		{" JSON ", FormatJSON, false},
		{"text", FormatText, false},
		{"Srt", FormatSRT, false},
		{"vtt", FormatVTT, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := NormFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("NormFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("NormFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTimeout(t *testing.T) {
	if got := Timeout(0); got != 0 {
		t.Errorf("Timeout(0) = %v", got)
	}
	if got := Timeout(-5); got != 0 {
		t.Errorf("Timeout(-5) = %v", got)
	}
	if got := Timeout(1500); got != 1500*time.Millisecond {
		t.Errorf("Timeout(1500) = %v", got)
	}
	if got := Timeout(1 << 30); got != maxTimeout {
		t.Errorf("Timeout(huge) = %v, want cap %v", got, maxTimeout)
	}
}

func TestRender(t *testing.T) {
	segs := []transcript.Segment{{Start: 0, Duration: 1, Text: "a"}, {Start: 1, Duration: 1, Text: "b"}}

	kept, text := Render(segs, FormatJSON, 0)
	if len(kept) != 2 || text != "" {
		t.Errorf("json render = %v, %q", kept, text)
	}
	kept, text = Render(segs, FormatText, 0)
	if kept != nil || text != "a b" {
		t.Errorf("text render = %v, %q", kept, text)
	}
}
