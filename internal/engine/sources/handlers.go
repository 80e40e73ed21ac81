package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anatolykoptev/go_transcript/internal/background"
	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// RegisterHandlers installs the privileged operations on the broker.
func RegisterHandlers(b *background.Broker, pages PageSource) {
	b.Handle(background.ActionFetchTranscript, counted(handleFetchTranscript))
	b.Handle(background.ActionFetchMetadata, counted(func(ctx context.Context, raw json.RawMessage) (any, error) {
		return handleFetchMetadata(ctx, pages, raw)
	}))
	b.Handle(background.ActionGetLyrics, counted(handleGetLyrics))
	b.Handle(background.ActionTranscribeAudio, counted(handleTranscribeAudio))
	b.Handle(background.ActionClassifyMusic, counted(handleClassifyMusic))
}

func counted(h background.Handler) background.Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		engine.IncrBackgroundRequests()
		return h(ctx, raw)
	}
}

type segmentsReply struct {
	Segments any `json:"segments"`
}

func handleFetchTranscript(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := background.Payload[background.TranscriptRequest](raw)
	if err != nil {
		return nil, err
	}
	if req.VideoID == "" {
		return nil, errors.New("videoId is required")
	}
	segs, err := FetchEngagementTranscript(ctx, req.VideoID, req.Lang)
	if err != nil {
		return nil, err
	}
	return segmentsReply{Segments: segs}, nil
}

func handleFetchMetadata(ctx context.Context, pages PageSource, raw json.RawMessage) (any, error) {
	req, err := background.Payload[background.MetadataRequest](raw)
	if err != nil {
		return nil, err
	}
	if pages == nil {
		return nil, errors.New("page source not configured")
	}
	ps, err := pages.PageState(ctx, req.VideoID)
	if err != nil {
		return nil, fmt.Errorf("metadata %s: %w", req.VideoID, err)
	}
	return background.Metadata{
		VideoID:     ps.VideoID,
		Title:       ps.Title,
		Channel:     ps.Channel,
		Description: ps.Description,
		Duration:    ps.Duration,
	}, nil
}

func handleGetLyrics(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := background.Payload[background.LyricsRequest](raw)
	if err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, errors.New("title is required")
	}
	lyrics, source, err := FindLyrics(ctx, req.Title, req.Artist)
	if errors.Is(err, errLyricsNotFound) {
		return background.LyricsResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	return background.LyricsResult{Lyrics: lyrics, Source: source}, nil
}

func handleTranscribeAudio(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := background.Payload[background.TranscribeRequest](raw)
	if err != nil {
		return nil, err
	}
	if req.AudioURL == "" {
		return nil, errors.New("audioUrl is required")
	}
	segs, err := TranscribeAudio(ctx, req.AudioURL, req.Lang)
	if err != nil {
		return nil, err
	}
	return segmentsReply{Segments: segs}, nil
}

func handleClassifyMusic(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := background.Payload[background.ClassifyRequest](raw)
	if err != nil {
		return nil, err
	}
	isMusic, err := engine.ClassifyMusicVideo(ctx, req.Title, req.Channel)
	if err != nil {
		return nil, err
	}
	return background.ClassifyResult{IsMusic: isMusic}, nil
}
