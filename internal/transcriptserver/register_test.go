package transcriptserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

type fakeService struct {
	got    sources.TranscriptRequest
	result engine.CachedTranscript
	cached bool
	err    error
}

func (f *fakeService) Transcript(_ context.Context, req sources.TranscriptRequest) (engine.CachedTranscript, bool, error) {
	f.got = req
	return f.result, f.cached, f.err
}

func (f *fakeService) Methods(context.Context) []engine.MethodInfo {
	return []engine.MethodInfo{{Name: "direct", Priority: 1}}
}

var twoSegs = []transcript.Segment{
	{Start: 0, Duration: 1.5, Text: "Hello"},
	{Start: 1.5, Duration: 2, Text: "world"},
}

func TestHandleTranscriptJSON(t *testing.T) {
	svc := &fakeService{result: engine.CachedTranscript{VideoID: "dQw4w9WgXcQ", Language: "en", Method: "direct", Segments: twoSegs}}

	_, out, err := handleTranscript(context.Background(), svc, engine.TranscriptInput{
		Video:     "https://youtu.be/dQw4w9WgXcQ",
		Language:  " de ",
		Method:    "Invidious",
		TimeoutMs: 1500,
	})
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", out.VideoID)
	assert.Equal(t, twoSegs, out.Segments)
	assert.Empty(t, out.Text)

	assert.Equal(t, "dQw4w9WgXcQ", svc.got.VideoID)
	assert.Equal(t, "de", svc.got.Lang)
	assert.Equal(t, transcript.MethodInvidious, svc.got.Method)
	assert.Equal(t, int64(1500), svc.got.Timeout.Milliseconds())
}

func TestHandleTranscriptFormats(t *testing.T) {
	svc := &fakeService{result: engine.CachedTranscript{Segments: twoSegs}, cached: true}

	tests := []struct {
		format string
		want   string
	}{
		{"text", "Hello world"},
		{"SRT", "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n2\n00:00:01,500 --> 00:00:03,500\nworld"},
		{"vtt", "WEBVTT\n\n00:00:00.000 --> 00:00:01.500\nHello\n\n00:00:01.500 --> 00:00:03.500\nworld"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			_, out, err := handleTranscript(context.Background(), svc, engine.TranscriptInput{Video: "dQw4w9WgXcQ", Format: tt.format})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Text)
			assert.Nil(t, out.Segments)
			assert.True(t, out.Cached)
		})
	}
}

func TestHandleTranscriptMaxChars(t *testing.T) {
	svc := &fakeService{result: engine.CachedTranscript{Segments: twoSegs}}
	_, out, err := handleTranscript(context.Background(), svc, engine.TranscriptInput{Video: "dQw4w9WgXcQ", Format: "text", MaxChars: 5})
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(out.Text)), 8)
	assert.True(t, strings.HasPrefix(out.Text, "He"), out.Text)
	assert.NotEqual(t, "Hello world", out.Text)
}

func TestHandleTranscriptErrors(t *testing.T) {
	tests := []struct {
		name  string
		input engine.TranscriptInput
		err   error
		want  string
	}{
		{"missing video", engine.TranscriptInput{}, nil, "video is required"},
		{"bad video", engine.TranscriptInput{Video: "https://example.com/x"}, nil, "not a YouTube video"},
		{"bad format", engine.TranscriptInput{Video: "dQw4w9WgXcQ", Format: "pdf"}, nil, "unsupported format"},
		{"no captions", engine.TranscriptInput{Video: "dQw4w9WgXcQ"}, fmt.Errorf("direct: %w", transcript.ErrNoCaptions), "no captions available"},
		{"exhausted", engine.TranscriptInput{Video: "dQw4w9WgXcQ"}, errors.New("stt: no audio"), "stt: no audio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := handleTranscript(context.Background(), &fakeService{err: tt.err}, tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
