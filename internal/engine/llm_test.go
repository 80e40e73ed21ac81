package engine

import (
	"context"
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "yes", "yes"},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"bare fence", "```\nno\n```", "no"},
		{"whitespace", "  \n yes \n", "yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.raw); got != tt.want {
				t.Errorf("StripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseYesNo(t *testing.T) {
	tests := []struct {
		raw     string
		want    bool
		wantErr bool
	}{
		{"yes", true, false},
		{"Yes.", true, false},
		{" YES ", true, false},
		{"no", false, false},
		{"No!", false, false},
		{"\"no\"", false, false},
		{"maybe", false, true},
		{"", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseYesNo(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseYesNo(%q) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseYesNo(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestClassifyMusicVideoWithoutClient(t *testing.T) {
	saved := cfg
	defer Init(saved)
	Init(Config{})

	_, err := ClassifyMusicVideo(context.Background(), "Song", "Artist")
	if !errors.Is(err, ErrLLMDisabled) {
		t.Fatalf("expected ErrLLMDisabled, got %v", err)
	}
}
