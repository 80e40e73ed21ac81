package sources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anatolykoptev/go_transcript/internal/background"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// ProxyStrategy asks the background broker to run the innertube
// engagement-panel flow on its fingerprinted client.
type ProxyStrategy struct {
	ch background.Channel
}

// NewProxyStrategy returns the privileged proxy strategy.
func NewProxyStrategy(ch background.Channel) *ProxyStrategy {
	return &ProxyStrategy{ch: ch}
}

func (s *ProxyStrategy) Method() transcript.Method { return transcript.MethodProxy }
func (s *ProxyStrategy) Priority() int             { return PriorityProxy }

// Fetch implements transcript.Strategy.
func (s *ProxyStrategy) Fetch(ctx context.Context, videoID, lang string) ([]transcript.Segment, error) {
	resp, err := background.Call(ctx, s.ch, background.ActionFetchTranscript,
		background.TranscriptRequest{VideoID: videoID, Lang: lang})
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("proxy: %s", failureMessage(resp))
	}
	return unwrapSegments(resp.Data)
}

// unwrapSegments accepts either {"segments": [...]} or a bare segment list.
func unwrapSegments(data json.RawMessage) ([]transcript.Segment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response data", transcript.ErrUpstream)
	}
	var wrapped struct {
		Segments []transcript.Segment `json:"segments"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Segments != nil {
		return wrapped.Segments, nil
	}
	var segs []transcript.Segment
	if err := json.Unmarshal(data, &segs); err != nil {
		return nil, fmt.Errorf("%w: segments: %v", transcript.ErrParse, err)
	}
	return segs, nil
}

func failureMessage(resp background.Response) string {
	if resp.Error != "" {
		return resp.Error
	}
	return "background request failed"
}
