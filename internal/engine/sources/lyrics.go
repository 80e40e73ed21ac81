package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_transcript/internal/background"
	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

var errNotMusic = errors.New("not music")

// LyricsStrategy substitutes song lyrics for a transcript on music videos.
// The result is a single untimed segment.
type LyricsStrategy struct {
	pages PageSource
	ch    background.Channel
}

// NewLyricsStrategy returns the lyrics lookup strategy.
func NewLyricsStrategy(pages PageSource, ch background.Channel) *LyricsStrategy {
	return &LyricsStrategy{pages: pages, ch: ch}
}

func (s *LyricsStrategy) Method() transcript.Method { return transcript.MethodLyrics }
func (s *LyricsStrategy) Priority() int             { return PriorityLyrics }

// Fetch implements transcript.Strategy.
func (s *LyricsStrategy) Fetch(ctx context.Context, videoID, _ string) ([]transcript.Segment, error) {
	meta, err := s.metadata(ctx, videoID)
	if err != nil {
		return nil, err
	}

	resp, err := background.Call(ctx, s.ch, background.ActionClassifyMusic,
		background.ClassifyRequest{Title: meta.Title, Channel: meta.Channel})
	if err != nil {
		return nil, fmt.Errorf("lyrics: classify: %w", err)
	}
	var class background.ClassifyResult
	if err := resp.Decode(&class); err != nil {
		return nil, fmt.Errorf("lyrics: classify: %w", err)
	}
	if !class.IsMusic {
		return nil, fmt.Errorf("lyrics: %w: %w", errNotMusic, transcript.ErrNotApplicable)
	}

	title, artist := engine.SongQuery(meta.Title, meta.Channel)
	engine.IncrLyricsRequests()
	resp, err = background.Call(ctx, s.ch, background.ActionGetLyrics,
		background.LyricsRequest{Title: title, Artist: artist})
	if err != nil {
		return nil, fmt.Errorf("lyrics: %w", err)
	}
	var found background.LyricsResult
	if err := resp.Decode(&found); err != nil {
		return nil, fmt.Errorf("lyrics: %w", err)
	}
	if found.Lyrics == "" {
		return nil, fmt.Errorf("lyrics: no lyrics for %q by %q: %w", title, artist, transcript.ErrEmptyResult)
	}
	slog.Debug("lyrics: found", slog.String("id", videoID), slog.String("source", found.Source))
	return []transcript.Segment{{Start: 0, Duration: 0, Text: found.Lyrics}}, nil
}

// metadata reads title and channel from the page state, falling back to
// the background metadata action when the page is unavailable or untitled.
func (s *LyricsStrategy) metadata(ctx context.Context, videoID string) (background.Metadata, error) {
	ps, pageErr := s.pages.PageState(ctx, videoID)
	if pageErr == nil && ps.Title != "" {
		return background.Metadata{VideoID: videoID, Title: ps.Title, Channel: ps.Channel}, nil
	}
	if pageErr == nil {
		pageErr = fmt.Errorf("%w: no video title", transcript.ErrUpstream)
	}

	var meta background.Metadata
	resp, err := background.Call(ctx, s.ch, background.ActionFetchMetadata, background.MetadataRequest{VideoID: videoID})
	if err == nil {
		err = resp.Decode(&meta)
	}
	if err == nil && meta.Title == "" {
		err = fmt.Errorf("%w: no video title", transcript.ErrUpstream)
	}
	if err != nil {
		return background.Metadata{}, fmt.Errorf("lyrics: page state: %w; metadata: %w", pageErr, err)
	}
	slog.Debug("lyrics: metadata from background", slog.String("id", videoID))
	return meta, nil
}
