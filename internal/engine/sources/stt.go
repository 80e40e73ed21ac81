package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/anatolykoptev/go_transcript/internal/background"
	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// AudioResolver finds a direct audio stream URL for a video.
type AudioResolver interface {
	AudioURL(ctx context.Context, videoID string) (string, error)
}

// STTStrategy sends the video's audio stream to the background
// transcription service.
type STTStrategy struct {
	pages    PageSource
	ch       background.Channel
	fallback AudioResolver // nil disables stream resolution for ciphered formats
}

// NewSTTStrategy returns the speech-to-text strategy.
func NewSTTStrategy(pages PageSource, ch background.Channel, fallback AudioResolver) *STTStrategy {
	return &STTStrategy{pages: pages, ch: ch, fallback: fallback}
}

func (s *STTStrategy) Method() transcript.Method { return transcript.MethodSTT }
func (s *STTStrategy) Priority() int             { return PrioritySTT }

// Fetch implements transcript.Strategy.
func (s *STTStrategy) Fetch(ctx context.Context, videoID, lang string) ([]transcript.Segment, error) {
	audioURL, err := s.audioURL(ctx, videoID)
	if err != nil {
		return nil, err
	}

	engine.IncrSTTRequests()
	resp, err := background.Call(ctx, s.ch, background.ActionTranscribeAudio,
		background.TranscribeRequest{AudioURL: audioURL, Lang: lang})
	if err != nil {
		return nil, fmt.Errorf("stt: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("stt: %s", failureMessage(resp))
	}
	segs, err := unwrapSegments(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("stt: %w", err)
	}
	return segs, nil
}

func (s *STTStrategy) audioURL(ctx context.Context, videoID string) (string, error) {
	if s.pages != nil {
		ps, err := s.pages.PageState(ctx, videoID)
		if err == nil {
			if f, ok := ps.audioFormat(); ok {
				return f.URL, nil
			}
		} else if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	if s.fallback != nil {
		u, err := s.fallback.AudioURL(ctx, videoID)
		if err == nil && u != "" {
			return u, nil
		}
		slog.Debug("stt: stream resolution failed", slog.String("id", videoID), slog.Any("error", err))
	}
	return "", fmt.Errorf("stt: no audio stream: %w", transcript.ErrNotApplicable)
}

// StreamResolver resolves ciphered adaptive formats with kkdai/youtube.
type StreamResolver struct {
	client youtube.Client
}

// NewStreamResolver returns a resolver using the configured HTTP client.
func NewStreamResolver() *StreamResolver {
	return &StreamResolver{client: youtube.Client{HTTPClient: httpClient()}}
}

// AudioURL implements AudioResolver. The highest bitrate audio/mp4 or
// audio/webm format wins.
func (r *StreamResolver) AudioURL(ctx context.Context, videoID string) (string, error) {
	video, err := r.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("resolve video %s: %w", videoID, err)
	}
	var best *youtube.Format
	for i := range video.Formats {
		f := &video.Formats[i]
		if !isAudioMime(f.MimeType) {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	if best == nil {
		return "", fmt.Errorf("resolve video %s: no audio format", videoID)
	}
	u, err := r.client.GetStreamURLContext(ctx, video, best)
	if err != nil {
		return "", fmt.Errorf("resolve stream itag %d: %w", best.ItagNo, err)
	}
	return u, nil
}

func isAudioMime(mime string) bool {
	return strings.Contains(mime, "audio/mp4") || strings.Contains(mime, "audio/webm")
}
