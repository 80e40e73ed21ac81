package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{" dQw4w9WgXcQ ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://example.com/video", ""},
		{"short", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExtractVideoID(tt.in); got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPickTrack(t *testing.T) {
	tracks := []CaptionTrack{
		{LanguageCode: "de", BaseURL: "u-de"},
		{LanguageCode: "en", BaseURL: "u-en", Kind: "asr"},
	}
	got, ok := pickTrack(tracks, "en")
	require.True(t, ok)
	assert.Equal(t, "u-en", got.BaseURL)

	got, ok = pickTrack(tracks, "fr")
	require.True(t, ok)
	assert.Equal(t, "u-de", got.BaseURL, "no exact match falls back to the first track")

	_, ok = pickTrack(nil, "en")
	assert.False(t, ok)
}

const watchPage = `<html><script>var ytInitialPlayerResponse = {"videoDetails":{"videoId":"abc12345678","title":"Song {live}","author":"Band","lengthSeconds":"212"},` +
	`"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"/api/timedtext?v=abc12345678&lang=en","languageCode":"en"}]}},` +
	`"streamingData":{"adaptiveFormats":[{"itag":137,"mimeType":"video/mp4; codecs=\"avc1\"","url":"https://v"},{"itag":251,"mimeType":"audio/webm; codecs=\"opus\""},{"itag":140,"mimeType":"audio/mp4; codecs=\"mp4a.40.2\"","url":"https://a"}]}};var meta = {};</script></html>`

func TestParsePlayerResponse(t *testing.T) {
	pr, err := parsePlayerResponse([]byte(watchPage))
	require.NoError(t, err)

	ps := pageStateFrom("abc12345678", pr)
	assert.Equal(t, "Song {live}", ps.Title)
	assert.Equal(t, "Band", ps.Channel)
	assert.Equal(t, 212.0, ps.Duration)
	require.Len(t, ps.CaptionTracks, 1)
	assert.Equal(t, "en", ps.CaptionTracks[0].LanguageCode)

	f, ok := ps.audioFormat()
	require.True(t, ok)
	assert.Equal(t, 140, f.Itag, "ciphered audio formats without a URL are skipped")

	_, err = parsePlayerResponse([]byte("<html>consent</html>"))
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", `{"a":1} trailing`, `{"a":1}`},
		{"nested", `{"a":{"b":{}}};x`, `{"a":{"b":{}}}`},
		{"brace in string", `{"a":"}{"}, more`, `{"a":"}{"}`},
		{"escaped quote", `{"a":"\"}"}x`, `{"a":"\"}"}`},
		{"not object", `[1,2]`, ""},
		{"unbalanced", `{"a":1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(extractJSON([]byte(tt.in))))
		})
	}
}

func TestPageLoaderCachesPerVideo(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(watchPage))
	}))
	defer srv.Close()
	withYouTubeOrigin(t, srv)

	l := NewPageLoader(time.Minute)
	for i := 0; i < 3; i++ {
		ps, err := l.PageState(context.Background(), "abc12345678")
		require.NoError(t, err)
		assert.Equal(t, "Band", ps.Channel)
	}
	assert.Equal(t, int32(1), hits.Load())

	_, err := l.PageState(context.Background(), "zzz12345678")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}
