package sources

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// ErrSTTDisabled is returned when no speech-to-text key is configured.
var ErrSTTDisabled = errors.New("stt: gemini api key not configured")

const (
	defaultGeminiBase  = "https://generativelanguage.googleapis.com"
	defaultGeminiModel = "gemini-2.0-flash"
	defaultMaxAudio    = 20 * 1024 * 1024
)

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string  `json:"responseMimeType"`
		Temperature      float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// TranscribeAudio downloads up to Cfg.MaxAudioBytes of audio and asks
// Gemini for a JSON segment list.
func TranscribeAudio(ctx context.Context, audioURL, lang string) ([]transcript.Segment, error) {
	c := engine.Cfg
	if c.GeminiAPIKey == "" {
		return nil, ErrSTTDisabled
	}
	maxBytes := c.MaxAudioBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxAudio
	}

	audio, err := engine.Fetch(ctx, audioURL, engine.FetchOpts{MaxBytes: maxBytes})
	if err != nil {
		return nil, fmt.Errorf("stt: download audio: %w", err)
	}
	if len(audio.Body) == 0 {
		return nil, fmt.Errorf("stt: download audio: %w", transcript.ErrEmptyResult)
	}

	if lang == "" {
		lang = transcript.DefaultLanguage
	}
	var req geminiRequest
	req.Contents = append(req.Contents, geminiContent{Parts: []geminiPart{
		{Text: fmt.Sprintf(engine.TranscribePrompt, lang)},
		{InlineData: &geminiInlineData{
			MimeType: audioMimeType(audio.ContentType()),
			Data:     base64.StdEncoding.EncodeToString(audio.Body),
		}},
	}})
	req.GenerationConfig.ResponseMimeType = "application/json"

	raw, err := postGemini(ctx, req)
	if err != nil {
		return nil, err
	}
	return parseGeminiSegments(raw)
}

func postGemini(ctx context.Context, payload geminiRequest) ([]byte, error) {
	c := engine.Cfg
	base := c.GeminiAPIBase
	if base == "" {
		base = defaultGeminiBase
	}
	model := c.GeminiModel
	if model == "" {
		model = defaultGeminiModel
	}
	endpoint := strings.TrimRight(base, "/") + "/v1beta/models/" + url.PathEscape(model) + ":generateContent"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.GeminiAPIKey)
		return httpClient().Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("stt: gemini: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxInnertubeBody))
	if err != nil {
		return nil, fmt.Errorf("stt: gemini: read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stt: gemini: HTTP %d: %s", resp.StatusCode, engine.TruncateRunes(string(data), 200, "..."))
	}
	return data, nil
}

// parseGeminiSegments pulls the JSON segment array out of the first
// candidate's text parts.
func parseGeminiSegments(raw []byte) ([]transcript.Segment, error) {
	var gr geminiResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return nil, fmt.Errorf("stt: %w: gemini response: %v", transcript.ErrParse, err)
	}
	if gr.Error != nil {
		return nil, fmt.Errorf("stt: gemini error %d: %s", gr.Error.Code, gr.Error.Message)
	}
	if len(gr.Candidates) == 0 {
		return nil, fmt.Errorf("stt: gemini: %w: no candidates", transcript.ErrUpstream)
	}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := engine.StripFences(sb.String())

	var segs []transcript.Segment
	if err := json.Unmarshal([]byte(text), &segs); err != nil {
		return nil, fmt.Errorf("stt: %w: segments: %v", transcript.ErrParse, err)
	}
	out := segs[:0]
	for _, s := range segs {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// audioMimeType normalises a stream Content-Type for inline upload.
func audioMimeType(ct string) string {
	ct = strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	if strings.HasPrefix(ct, "audio/") {
		return ct
	}
	return "audio/mp4"
}
