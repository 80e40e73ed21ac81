package sources

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

func TestTranscribeAudio(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio.webm":
			w.Header().Set("Content-Type", "audio/webm; codecs=opus")
			_, _ = w.Write([]byte("fake-opus"))
		case "/v1beta/models/test-model:generateContent":
			if r.Header.Get("x-goog-api-key") != "secret" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			text := "```json\n" + `[{"start":0,"duration":1.5,"text":" Bonjour "},{"start":2,"duration":1,"text":""}]` + "\n```"
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []any{map[string]any{
					"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	engine.Init(engine.Config{GeminiAPIKey: "secret", GeminiAPIBase: srv.URL, GeminiModel: "test-model"})
	t.Cleanup(func() { engine.Init(engine.Config{}) })

	segs, err := TranscribeAudio(context.Background(), srv.URL+"/audio.webm", "fr")
	require.NoError(t, err)
	assert.Equal(t, []transcript.Segment{{Start: 0, Duration: 1.5, Text: "Bonjour"}}, segs)

	require.Len(t, got.Contents, 1)
	parts := got.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.True(t, strings.Contains(parts[0].Text, "language is fr"), parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "audio/webm", parts[1].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("fake-opus")), parts[1].InlineData.Data)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
}

func TestTranscribeAudioFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio":
			_, _ = w.Write([]byte("bytes"))
		case "/v1beta/models/test-model:generateContent":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"audio too long"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	t.Cleanup(func() { engine.Init(engine.Config{}) })

	t.Run("disabled without key", func(t *testing.T) {
		engine.Init(engine.Config{})
		_, err := TranscribeAudio(context.Background(), srv.URL+"/audio", "en")
		assert.True(t, errors.Is(err, ErrSTTDisabled))
	})

	t.Run("upstream status", func(t *testing.T) {
		engine.Init(engine.Config{GeminiAPIKey: "k", GeminiAPIBase: srv.URL, GeminiModel: "test-model"})
		_, err := TranscribeAudio(context.Background(), srv.URL+"/audio", "en")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("audio missing", func(t *testing.T) {
		engine.Init(engine.Config{GeminiAPIKey: "k", GeminiAPIBase: srv.URL, GeminiModel: "test-model"})
		_, err := TranscribeAudio(context.Background(), srv.URL+"/gone", "en")
		var se *engine.StatusError
		require.True(t, errors.As(err, &se), "got %v", err)
		assert.Equal(t, http.StatusNotFound, se.Code)
	})
}
